package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/spherical/pitch-analyzer/internal/domain"
	"github.com/spherical/pitch-analyzer/internal/observability"
	"github.com/spherical/pitch-analyzer/internal/staging"
	"github.com/spherical/pitch-analyzer/internal/storage"
	"github.com/spherical/pitch-analyzer/internal/transcribe"
)

// AnalysisService is the subset of the insight service used by the API.
type AnalysisService interface {
	AnalyzeTranscript(ctx context.Context, kind domain.AnalysisKind, sourceName, text string) (*domain.TranscriptAnalysis, error)
	AnalyzeAudio(ctx context.Context, sourceName, path string) (*domain.MediaAnalysis, error)
	AnalyzeVideoFile(ctx context.Context, sourceName, path string) (*domain.MediaAnalysis, error)
	AnalyzeVideoURL(ctx context.Context, rawURL string) (*domain.MediaAnalysis, error)
	AnalyzePitchDeck(ctx context.Context, sourceName, path string, events chan<- domain.StreamEvent) (*domain.AnalysisResult, error)
	GetAnalysis(ctx context.Context, id string) (*storage.AnalysisRecord, error)
	ListAnalyses(ctx context.Context, limit int) ([]storage.AnalysisSummary, error)
}

// Options configures upload handling.
type Options struct {
	TempDir        string
	MaxUploadBytes int64
}

// AnalysisHandler handles the analysis endpoints.
type AnalysisHandler struct {
	logger  *observability.Logger
	service AnalysisService
	opts    Options
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(logger *observability.Logger, service AnalysisService, opts Options) *AnalysisHandler {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &AnalysisHandler{
		logger:  logger,
		service: service,
		opts:    opts,
	}
}

// TranscriptRequest is the body of POST /analyze-text/.
type TranscriptRequest struct {
	Transcript string `json:"transcript"`
}

// VideoURLRequest is the body of POST /analyze-video-url/.
type VideoURLRequest struct {
	URL string `json:"url"`
}

// MediaResponse is returned by the audio and video endpoints.
type MediaResponse struct {
	ID         string           `json:"id"`
	Transcript string           `json:"transcript"`
	Analysis   []domain.Insight `json:"analysis"`
}

// PitchDeckResponse is returned by POST /analyze-pitch-deck/.
type PitchDeckResponse struct {
	ID                 string                 `json:"id"`
	TOC                domain.TableOfContents `json:"toc"`
	Analysis           domain.TopicSummaries  `json:"analysis"`
	EmbeddingDimension int                    `json:"embedding_dimension"`
	SkippedTopics      []string               `json:"skipped_topics"`
	FailedTopics       []domain.TopicFailure  `json:"failed_topics"`
	Markdown           string                 `json:"markdown"`
	Artifacts          *domain.Artifacts      `json:"artifacts,omitempty"`
	Cached             bool                   `json:"cached,omitempty"`
}

// AnalyzeText handles POST /analyze-text/.
func (h *AnalysisHandler) AnalyzeText(w http.ResponseWriter, r *http.Request) {
	var req TranscriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		failure(w, r, h.logger, "analyze_text", domain.ValidationError("Invalid request body.", err))
		return
	}
	if strings.TrimSpace(req.Transcript) == "" {
		failure(w, r, h.logger, "analyze_text", domain.ValidationError("Transcript cannot be empty.", nil))
		return
	}

	result, err := h.service.AnalyzeTranscript(r.Context(), domain.KindTranscript, "", req.Transcript)
	if err != nil {
		failure(w, r, h.logger, "analyze_text", err)
		return
	}

	w.Header().Set("X-Analysis-ID", result.ID)
	writeJSON(w, http.StatusOK, result.Insights)
}

// AnalyzeFile handles POST /analyze-file/.
func (h *AnalysisHandler) AnalyzeFile(w http.ResponseWriter, r *http.Request) {
	part, err := filePart(r)
	if err != nil {
		failure(w, r, h.logger, "analyze_file", err)
		return
	}

	name := part.FileName()
	if strings.ToLower(filepath.Ext(name)) != ".txt" {
		failure(w, r, h.logger, "analyze_file", domain.UnsupportedFormatError("Only .txt files are supported.", nil))
		return
	}
	defer part.Close()

	var body io.Reader = part
	if h.opts.MaxUploadBytes > 0 {
		body = io.LimitReader(part, h.opts.MaxUploadBytes+1)
	}
	content, err := io.ReadAll(body)
	if err != nil {
		failure(w, r, h.logger, "analyze_file", domain.ValidationError("Cannot read uploaded file.", err))
		return
	}
	if h.opts.MaxUploadBytes > 0 && int64(len(content)) > h.opts.MaxUploadBytes {
		failure(w, r, h.logger, "analyze_file", domain.ValidationError("Uploaded file is too large.", staging.ErrTooLarge))
		return
	}
	if !utf8.Valid(content) {
		failure(w, r, h.logger, "analyze_file", domain.ValidationError("File must be UTF-8 text.", nil))
		return
	}

	result, err := h.service.AnalyzeTranscript(r.Context(), domain.KindTextFile, filepath.Base(name), string(content))
	if err != nil {
		failure(w, r, h.logger, "analyze_file", err)
		return
	}

	w.Header().Set("X-Analysis-ID", result.ID)
	writeJSON(w, http.StatusOK, result.Insights)
}

// AnalyzeAudio handles POST /analyze-audio/.
func (h *AnalysisHandler) AnalyzeAudio(w http.ResponseWriter, r *http.Request) {
	h.analyzeUpload(w, r, "analyze_audio", transcribe.ValidateAudioName, h.service.AnalyzeAudio)
}

// AnalyzeVideo handles POST /analyze-video/.
func (h *AnalysisHandler) AnalyzeVideo(w http.ResponseWriter, r *http.Request) {
	h.analyzeUpload(w, r, "analyze_video", transcribe.ValidateVideoName, h.service.AnalyzeVideoFile)
}

// AnalyzeVideoURL handles POST /analyze-video-url/.
func (h *AnalysisHandler) AnalyzeVideoURL(w http.ResponseWriter, r *http.Request) {
	var req VideoURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		failure(w, r, h.logger, "analyze_video_url", domain.ValidationError("Invalid request body.", err))
		return
	}
	if _, err := transcribe.ValidateURL(req.URL); err != nil {
		failure(w, r, h.logger, "analyze_video_url", err)
		return
	}

	result, err := h.service.AnalyzeVideoURL(r.Context(), req.URL)
	if err != nil {
		failure(w, r, h.logger, "analyze_video_url", err)
		return
	}
	writeJSON(w, http.StatusOK, mediaResponse(result))
}

type mediaFunc func(ctx context.Context, sourceName, path string) (*domain.MediaAnalysis, error)

// analyzeUpload validates the uploaded file name, stages the file and runs
// analyze on it. The staged file is removed on every path.
func (h *AnalysisHandler) analyzeUpload(w http.ResponseWriter, r *http.Request, op string, validate func(string) error, analyze mediaFunc) {
	part, err := filePart(r)
	if err != nil {
		failure(w, r, h.logger, op, err)
		return
	}

	if err := validate(part.FileName()); err != nil {
		failure(w, r, h.logger, op, err)
		return
	}
	defer part.Close()

	staged, err := staging.Stage(h.opts.TempDir, part.FileName(), part, h.opts.MaxUploadBytes)
	if err != nil {
		failure(w, r, h.logger, op, err)
		return
	}
	defer staged.Cleanup()

	result, err := analyze(r.Context(), staged.Name, staged.Path)
	if err != nil {
		failure(w, r, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, mediaResponse(result))
}

// AnalyzePitchDeck handles POST /analyze-pitch-deck/.
func (h *AnalysisHandler) AnalyzePitchDeck(w http.ResponseWriter, r *http.Request) {
	part, err := filePart(r)
	if err != nil {
		failure(w, r, h.logger, "analyze_pitch_deck", err)
		return
	}

	if strings.ToLower(filepath.Ext(part.FileName())) != ".pdf" {
		failure(w, r, h.logger, "analyze_pitch_deck", domain.UnsupportedFormatError("Only .pdf files are supported.", nil))
		return
	}
	defer part.Close()

	staged, err := staging.Stage(h.opts.TempDir, part.FileName(), part, h.opts.MaxUploadBytes)
	if err != nil {
		failure(w, r, h.logger, "analyze_pitch_deck", err)
		return
	}
	defer staged.Cleanup()

	h.logger.WithContext(r.Context()).Info().
		Str("file", staged.Name).
		Int64("bytes", staged.Size).
		Msg("Analyzing pitch deck")

	result, err := h.service.AnalyzePitchDeck(r.Context(), staged.Name, staged.Path, nil)
	if err != nil {
		failure(w, r, h.logger, "analyze_pitch_deck", err)
		return
	}

	writeJSON(w, http.StatusOK, PitchDeckResponse{
		ID:                 result.ID,
		TOC:                result.TOC,
		Analysis:           result.Analysis,
		EmbeddingDimension: result.EmbeddingDimension,
		SkippedTopics:      result.SkippedTopics,
		FailedTopics:       result.FailedTopics,
		Markdown:           result.Markdown,
		Artifacts:          result.Artifacts,
		Cached:             result.Cached,
	})
}

func mediaResponse(result *domain.MediaAnalysis) MediaResponse {
	return MediaResponse{
		ID:         result.ID,
		Transcript: result.Transcript,
		Analysis:   result.Analysis,
	}
}
