// Package insights wires the analyzers, result cache and analysis
// repository behind the operations exposed by the API and the CLI.
package insights

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spherical/pitch-analyzer/internal/cache"
	"github.com/spherical/pitch-analyzer/internal/domain"
	"github.com/spherical/pitch-analyzer/internal/observability"
	"github.com/spherical/pitch-analyzer/internal/pitchdeck"
	"github.com/spherical/pitch-analyzer/internal/storage"
)

// Repository persists analyses.
type Repository interface {
	Create(ctx context.Context, rec *storage.AnalysisRecord) error
	GetByID(ctx context.Context, id string) (*storage.AnalysisRecord, error)
	List(ctx context.Context, limit int) ([]*storage.AnalysisRecord, error)
}

// VideoTranscriber transcribes local and remote videos.
type VideoTranscriber interface {
	TranscribeFile(ctx context.Context, path string) (string, error)
	TranscribeURL(ctx context.Context, rawURL string) (string, error)
}

// DeckAnalyzer runs the pitch-deck pipeline.
type DeckAnalyzer interface {
	Analyze(ctx context.Context, req pitchdeck.Request, events chan<- domain.StreamEvent) (*domain.AnalysisResult, error)
}

// Pinger is implemented by dependencies that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps holds the collaborators of a Service. Repository, Cache and Store
// may be nil.
type Deps struct {
	Analyzer   domain.InsightAnalyzer
	Audio      domain.Transcriber
	Video      VideoTranscriber
	Decks      DeckAnalyzer
	Repository Repository
	Store      Pinger
	Cache      *cache.ResultCache
	Logger     *observability.Logger
}

// Service runs analyses and records their results.
type Service struct {
	analyzer domain.InsightAnalyzer
	audio    domain.Transcriber
	video    VideoTranscriber
	decks    DeckAnalyzer
	repo     Repository
	store    Pinger
	cache    *cache.ResultCache
	logger   *observability.Logger
}

// NewService creates a new insight service.
func NewService(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Service{
		analyzer: deps.Analyzer,
		audio:    deps.Audio,
		video:    deps.Video,
		decks:    deps.Decks,
		repo:     deps.Repository,
		store:    deps.Store,
		cache:    deps.Cache,
		logger:   logger.WithOperation("insights"),
	}
}

// AnalyzeTranscript extracts insights from transcript text. Results are
// cached by content hash.
func (s *Service) AnalyzeTranscript(ctx context.Context, kind domain.AnalysisKind, sourceName, text string) (*domain.TranscriptAnalysis, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ValidationError("Transcript cannot be empty.", nil)
	}

	hash := cache.HashBytes([]byte(text))
	var cached domain.TranscriptAnalysis
	if s.cache.Lookup(ctx, kind, hash, &cached) {
		cached.Cached = true
		s.logger.WithContext(ctx).Info().Str("analysis_id", cached.ID).Msg("Transcript analysis served from cache")
		return &cached, nil
	}

	insights, err := s.analyzer.Analyze(ctx, text)
	if err != nil {
		return nil, err
	}

	result := &domain.TranscriptAnalysis{
		ID:         uuid.NewString(),
		Kind:       kind,
		SourceName: sourceName,
		Insights:   insights,
		CreatedAt:  time.Now().UTC(),
	}

	s.save(ctx, &storage.AnalysisRecord{
		ID:            result.ID,
		Kind:          kind,
		SourceName:    sourceName,
		ContentSHA256: hash,
		CreatedAt:     result.CreatedAt,
	}, result)
	s.cache.Store(ctx, kind, hash, result)

	return result, nil
}

// AnalyzeAudio transcribes an audio file and analyzes the transcript.
func (s *Service) AnalyzeAudio(ctx context.Context, sourceName, path string) (*domain.MediaAnalysis, error) {
	transcript, err := s.audio.Transcribe(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.analyzeMedia(ctx, domain.KindAudio, sourceName, transcript)
}

// AnalyzeVideoFile transcribes a local video and analyzes the transcript.
func (s *Service) AnalyzeVideoFile(ctx context.Context, sourceName, path string) (*domain.MediaAnalysis, error) {
	transcript, err := s.video.TranscribeFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.analyzeMedia(ctx, domain.KindVideo, sourceName, transcript)
}

// AnalyzeVideoURL downloads, transcribes and analyzes a remote video.
func (s *Service) AnalyzeVideoURL(ctx context.Context, rawURL string) (*domain.MediaAnalysis, error) {
	transcript, err := s.video.TranscribeURL(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return s.analyzeMedia(ctx, domain.KindVideo, rawURL, transcript)
}

func (s *Service) analyzeMedia(ctx context.Context, kind domain.AnalysisKind, sourceName, transcript string) (*domain.MediaAnalysis, error) {
	insights, err := s.analyzer.Analyze(ctx, transcript)
	if err != nil {
		return nil, err
	}

	result := &domain.MediaAnalysis{
		ID:         uuid.NewString(),
		Kind:       kind,
		SourceName: sourceName,
		Transcript: transcript,
		Analysis:   insights,
		CreatedAt:  time.Now().UTC(),
	}

	s.save(ctx, &storage.AnalysisRecord{
		ID:            result.ID,
		Kind:          kind,
		SourceName:    sourceName,
		ContentSHA256: cache.HashBytes([]byte(transcript)),
		CreatedAt:     result.CreatedAt,
	}, result)

	return result, nil
}

// AnalyzePitchDeck runs the pitch-deck pipeline on the PDF at path. A deck
// with identical bytes is served from the cache.
func (s *Service) AnalyzePitchDeck(ctx context.Context, sourceName, path string, events chan<- domain.StreamEvent) (*domain.AnalysisResult, error) {
	hash, err := cache.HashFile(path)
	if err != nil {
		return nil, domain.DocumentReadError("cannot read PDF", err)
	}

	var cached domain.AnalysisResult
	if s.cache.Lookup(ctx, domain.KindPitchDeck, hash, &cached) {
		cached.Cached = true
		s.logger.WithContext(ctx).Info().Str("analysis_id", cached.ID).Msg("Pitch deck analysis served from cache")
		return &cached, nil
	}

	result, err := s.decks.Analyze(ctx, pitchdeck.Request{SourceName: sourceName, Path: path}, events)
	if err != nil {
		return nil, err
	}

	s.save(ctx, &storage.AnalysisRecord{
		ID:            result.ID,
		Kind:          domain.KindPitchDeck,
		SourceName:    sourceName,
		ContentSHA256: hash,
		Markdown:      result.Markdown,
		Embedding:     result.Embedding,
		CreatedAt:     result.CreatedAt,
	}, result)
	s.cache.Store(ctx, domain.KindPitchDeck, hash, result)

	return result, nil
}

// GetAnalysis returns a stored analysis.
func (s *Service) GetAnalysis(ctx context.Context, id string) (*storage.AnalysisRecord, error) {
	if s.repo == nil {
		return nil, domain.NotFoundError("analysis history is disabled", nil)
	}
	rec, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, domain.NotFoundError("analysis not found: "+id, err)
	}
	if err != nil {
		return nil, domain.IOError("load analysis", err)
	}
	return rec, nil
}

// ListAnalyses returns summaries of the most recent analyses.
func (s *Service) ListAnalyses(ctx context.Context, limit int) ([]storage.AnalysisSummary, error) {
	out := []storage.AnalysisSummary{}
	if s.repo == nil {
		return out, nil
	}
	records, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, domain.IOError("list analyses", err)
	}
	for _, rec := range records {
		out = append(out, rec.Summary())
	}
	return out, nil
}

// PurgeCache drops cached results of kind, or of every kind when kind is
// empty.
func (s *Service) PurgeCache(ctx context.Context, kind domain.AnalysisKind) error {
	return s.cache.Purge(ctx, kind)
}

// Ping checks the repository and cache.
func (s *Service) Ping(ctx context.Context) error {
	if s.store != nil {
		if err := s.store.Ping(ctx); err != nil {
			return err
		}
	}
	return s.cache.Ping(ctx)
}

// save persists rec with result as its JSON body. Failures are logged only.
func (s *Service) save(ctx context.Context, rec *storage.AnalysisRecord, result interface{}) {
	if s.repo == nil {
		return
	}
	body, err := json.Marshal(result)
	if err != nil {
		s.logger.WithContext(ctx).Error().Err(err).Str("analysis_id", rec.ID).Msg("Cannot encode analysis")
		return
	}
	rec.Result = body
	if err := s.repo.Create(ctx, rec); err != nil {
		s.logger.WithContext(ctx).Error().Err(err).Str("analysis_id", rec.ID).Msg("Failed to store analysis")
	}
}
