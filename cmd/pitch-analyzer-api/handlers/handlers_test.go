package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/pitch-analyzer/internal/domain"
	"github.com/spherical/pitch-analyzer/internal/storage"
)

// fakeService records calls and the staged paths it was handed.
type fakeService struct {
	transcriptCalls int
	lastText        string
	lastKind        domain.AnalysisKind
	stagedPaths     []string
	stagedExisted   bool
	mediaErr        error
	deckErr         error
	records         map[string]*storage.AnalysisRecord
}

func (f *fakeService) AnalyzeTranscript(ctx context.Context, kind domain.AnalysisKind, sourceName, text string) (*domain.TranscriptAnalysis, error) {
	f.transcriptCalls++
	f.lastText = text
	f.lastKind = kind
	return &domain.TranscriptAnalysis{
		ID:       "t-1",
		Kind:     kind,
		Insights: []domain.Insight{{"startup_name": "Acme"}},
	}, nil
}

func (f *fakeService) media(path string) (*domain.MediaAnalysis, error) {
	f.stagedPaths = append(f.stagedPaths, path)
	_, err := os.Stat(path)
	f.stagedExisted = err == nil
	if f.mediaErr != nil {
		return nil, f.mediaErr
	}
	return &domain.MediaAnalysis{ID: "m-1", Transcript: "hello", Analysis: []domain.Insight{{"startup_name": "Acme"}}}, nil
}

func (f *fakeService) AnalyzeAudio(ctx context.Context, sourceName, path string) (*domain.MediaAnalysis, error) {
	return f.media(path)
}

func (f *fakeService) AnalyzeVideoFile(ctx context.Context, sourceName, path string) (*domain.MediaAnalysis, error) {
	return f.media(path)
}

func (f *fakeService) AnalyzeVideoURL(ctx context.Context, rawURL string) (*domain.MediaAnalysis, error) {
	if f.mediaErr != nil {
		return nil, f.mediaErr
	}
	return &domain.MediaAnalysis{ID: "m-2", Transcript: rawURL}, nil
}

func (f *fakeService) AnalyzePitchDeck(ctx context.Context, sourceName, path string, events chan<- domain.StreamEvent) (*domain.AnalysisResult, error) {
	f.stagedPaths = append(f.stagedPaths, path)
	if f.deckErr != nil {
		return nil, f.deckErr
	}
	return &domain.AnalysisResult{
		ID:                 "d-1",
		TOC:                domain.TableOfContents{Entries: []domain.TOCEntry{{Topic: "team", Pages: []int{1}}}},
		Analysis:           domain.TopicSummaries{{Topic: "team", Summary: "Two founders"}},
		EmbeddingDimension: 768,
		SkippedTopics:      []string{},
		FailedTopics:       []domain.TopicFailure{},
		Markdown:           "## Team\n\nTwo founders\n\n",
	}, nil
}

func (f *fakeService) GetAnalysis(ctx context.Context, id string) (*storage.AnalysisRecord, error) {
	if rec, ok := f.records[id]; ok {
		return rec, nil
	}
	return nil, domain.NotFoundError("analysis not found: "+id, nil)
}

func (f *fakeService) ListAnalyses(ctx context.Context, limit int) ([]storage.AnalysisSummary, error) {
	out := []storage.AnalysisSummary{}
	for _, rec := range f.records {
		out = append(out, rec.Summary())
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// trackingReader reports whether any byte of the upload was read.
type trackingReader struct {
	r    io.Reader
	read bool
}

func (t *trackingReader) Read(p []byte) (int, error) {
	t.read = true
	return t.r.Read(p)
}

func multipartRequest(t *testing.T, target, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newHandler(svc *fakeService, tempDir string) *AnalysisHandler {
	return NewAnalysisHandler(nil, svc, Options{TempDir: tempDir, MaxUploadBytes: 1 << 20})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestAnalyzeText(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCalls  int
	}{
		{name: "empty transcript", body: `{"transcript": ""}`, wantStatus: http.StatusBadRequest},
		{name: "whitespace transcript", body: `{"transcript": "  \n\t"}`, wantStatus: http.StatusBadRequest},
		{name: "invalid json", body: `{"transcript":`, wantStatus: http.StatusBadRequest},
		{name: "valid", body: `{"transcript": "We are Acme."}`, wantStatus: http.StatusOK, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/analyze-text/", strings.NewReader(tt.body))

			newHandler(svc, t.TempDir()).AnalyzeText(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCalls, svc.transcriptCalls)
		})
	}
}

func TestAnalyzeText_ReturnsInsightArray(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/analyze-text/", strings.NewReader(`{"transcript": "We are Acme."}`))
	newHandler(&fakeService{}, t.TempDir()).AnalyzeText(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "t-1", rec.Header().Get("X-Analysis-ID"))

	var insights []map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&insights))
	require.Len(t, insights, 1)
	assert.Equal(t, "Acme", insights[0]["startup_name"])
}

func TestAnalyzeText_BlankErrorBody(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/analyze-text/", strings.NewReader(`{"transcript": ""}`))
	newHandler(&fakeService{}, t.TempDir()).AnalyzeText(rec, req)

	body := decodeError(t, rec)
	assert.Equal(t, "validation", body.Error)
	assert.Equal(t, "Transcript cannot be empty.", body.Detail)
}

func TestAnalyzeFile_WrongExtensionNotRead(t *testing.T) {
	svc := &fakeService{}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "pitch.pdf")
	require.NoError(t, err)
	fw.Write([]byte(strings.Repeat("x", 64)))
	require.NoError(t, mw.Close())

	// Everything after the part header is the file content.
	raw := buf.Bytes()
	headerEnd := bytes.Index(raw, []byte("\r\n\r\n")) + 4
	content := &trackingReader{r: bytes.NewReader(raw[headerEnd:])}
	body := io.MultiReader(bytes.NewReader(raw[:headerEnd]), content)

	req := httptest.NewRequest(http.MethodPost, "/analyze-file/", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()

	newHandler(svc, t.TempDir()).AnalyzeFile(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, svc.transcriptCalls)
	assert.Equal(t, "Only .txt files are supported.", decodeError(t, rec).Detail)
	assert.False(t, content.read, "file content must not be read")
}

func TestAnalyzeFile(t *testing.T) {
	svc := &fakeService{}
	rec := httptest.NewRecorder()
	newHandler(svc, t.TempDir()).AnalyzeFile(rec, multipartRequest(t, "/analyze-file/", "pitch.txt", "We are Acme."))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "We are Acme.", svc.lastText)
	assert.Equal(t, domain.KindTextFile, svc.lastKind)
}

func TestAnalyzeFile_Errors(t *testing.T) {
	t.Run("missing file field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/analyze-file/", strings.NewReader("plain"))
		req.Header.Set("Content-Type", "text/plain")
		rec := httptest.NewRecorder()
		newHandler(&fakeService{}, t.TempDir()).AnalyzeFile(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid utf-8", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newHandler(&fakeService{}, t.TempDir()).AnalyzeFile(rec, multipartRequest(t, "/analyze-file/", "a.txt", "\xff\xfe"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("too large", func(t *testing.T) {
		h := NewAnalysisHandler(nil, &fakeService{}, Options{TempDir: t.TempDir(), MaxUploadBytes: 4})
		rec := httptest.NewRecorder()
		h.AnalyzeFile(rec, multipartRequest(t, "/analyze-file/", "a.txt", "too long"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAnalyzeAudio_RemovesTempFileOnFailure(t *testing.T) {
	dir := t.TempDir()
	svc := &fakeService{mediaErr: domain.GatewayError("gateway unavailable", errors.New("503"))}
	rec := httptest.NewRecorder()

	newHandler(svc, dir).AnalyzeAudio(rec, multipartRequest(t, "/analyze-audio/", "pitch.mp3", "ID3 audio"))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	require.Len(t, svc.stagedPaths, 1)
	assert.True(t, svc.stagedExisted, "file is staged before analysis")
	assert.NoFileExists(t, svc.stagedPaths[0])
	assert.True(t, strings.HasSuffix(svc.stagedPaths[0], ".mp3"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAnalyzeAudio(t *testing.T) {
	tests := []struct {
		name       string
		filename   string
		err        error
		wantStatus int
	}{
		{name: "wav", filename: "a.wav", wantStatus: http.StatusOK},
		{name: "upper case ogg", filename: "a.OGG", wantStatus: http.StatusOK},
		{name: "unsupported", filename: "a.flac", wantStatus: http.StatusBadRequest},
		{name: "empty transcript", filename: "a.m4a", err: domain.EmptyTranscriptError("Transcription failed or returned empty text.", nil), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			svc := &fakeService{mediaErr: tt.err}
			rec := httptest.NewRecorder()
			newHandler(svc, dir).AnalyzeAudio(rec, multipartRequest(t, "/analyze-audio/", tt.filename, "audio"))

			assert.Equal(t, tt.wantStatus, rec.Code)
			for _, p := range svc.stagedPaths {
				assert.NoFileExists(t, p)
			}
			if tt.wantStatus == http.StatusOK {
				var body MediaResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				assert.Equal(t, "hello", body.Transcript)
				assert.Equal(t, "m-1", body.ID)
			}
		})
	}
}

func TestAnalyzeVideo(t *testing.T) {
	svc := &fakeService{mediaErr: domain.AudioExtractionError("Failed to extract audio", nil)}
	rec := httptest.NewRecorder()
	newHandler(svc, t.TempDir()).AnalyzeVideo(rec, multipartRequest(t, "/analyze-video/", "demo.mp4", "video"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Len(t, svc.stagedPaths, 1)
	assert.NoFileExists(t, svc.stagedPaths[0])

	rec = httptest.NewRecorder()
	newHandler(&fakeService{}, t.TempDir()).AnalyzeVideo(rec, multipartRequest(t, "/analyze-video/", "demo.mp3", "video"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeVideoURL(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "valid", body: `{"url": "https://example.com/watch?v=1"}`, wantStatus: http.StatusOK},
		{name: "bad scheme", body: `{"url": "ftp://example.com/a.mp4"}`, wantStatus: http.StatusBadRequest},
		{name: "empty", body: `{"url": ""}`, wantStatus: http.StatusBadRequest},
		{name: "invalid json", body: `nope`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/analyze-video-url/", strings.NewReader(tt.body))
			newHandler(&fakeService{}, t.TempDir()).AnalyzeVideoURL(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestAnalyzePitchDeck(t *testing.T) {
	t.Run("wrong extension", func(t *testing.T) {
		svc := &fakeService{}
		rec := httptest.NewRecorder()
		newHandler(svc, t.TempDir()).AnalyzePitchDeck(rec, multipartRequest(t, "/analyze-pitch-deck/", "deck.pptx", "x"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, svc.stagedPaths)
		assert.Equal(t, "Only .pdf files are supported.", decodeError(t, rec).Detail)
	})

	t.Run("unreadable pdf", func(t *testing.T) {
		svc := &fakeService{deckErr: domain.DocumentReadError("cannot open PDF", nil)}
		rec := httptest.NewRecorder()
		newHandler(svc, t.TempDir()).AnalyzePitchDeck(rec, multipartRequest(t, "/analyze-pitch-deck/", "deck.pdf", "not a pdf"))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.Len(t, svc.stagedPaths, 1)
		assert.NoFileExists(t, svc.stagedPaths[0])
	})

	t.Run("success", func(t *testing.T) {
		svc := &fakeService{}
		rec := httptest.NewRecorder()
		newHandler(svc, t.TempDir()).AnalyzePitchDeck(rec, multipartRequest(t, "/analyze-pitch-deck/", "deck.pdf", "%PDF"))
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.JSONEq(t, `{"team": [1]}`, string(body["toc"]))
		assert.JSONEq(t, `{"team": "Two founders"}`, string(body["analysis"]))
		assert.JSONEq(t, `768`, string(body["embedding_dimension"]))
		assert.JSONEq(t, `[]`, string(body["skipped_topics"]))
		assert.Contains(t, body, "markdown")
	})
}

func TestHistory(t *testing.T) {
	svc := &fakeService{records: map[string]*storage.AnalysisRecord{
		"d-1": {
			ID:        "d-1",
			Kind:      domain.KindPitchDeck,
			Result:    json.RawMessage(`{"id":"d-1"}`),
			Markdown:  "## Team\n",
			CreatedAt: time.Now().UTC(),
		},
		"t-1": {ID: "t-1", Kind: domain.KindTranscript, Result: json.RawMessage(`{"id":"t-1"}`)},
	}}
	h := newHandler(svc, t.TempDir())

	r := chi.NewRouter()
	r.Get("/analyses", h.ListAnalyses)
	r.Get("/analyses/{id}", h.GetAnalysis)
	r.Get("/analyses/{id}/markdown", h.GetMarkdown)

	tests := []struct {
		name        string
		target      string
		wantStatus  int
		contentType string
	}{
		{name: "list", target: "/analyses", wantStatus: http.StatusOK, contentType: "application/json"},
		{name: "list with limit", target: "/analyses?limit=1", wantStatus: http.StatusOK, contentType: "application/json"},
		{name: "bad limit", target: "/analyses?limit=zero", wantStatus: http.StatusBadRequest, contentType: "application/json"},
		{name: "get", target: "/analyses/d-1", wantStatus: http.StatusOK, contentType: "application/json"},
		{name: "get unknown", target: "/analyses/nope", wantStatus: http.StatusNotFound, contentType: "application/json"},
		{name: "markdown", target: "/analyses/d-1/markdown", wantStatus: http.StatusOK, contentType: "text/markdown; charset=utf-8"},
		{name: "no markdown", target: "/analyses/t-1/markdown", wantStatus: http.StatusNotFound, contentType: "application/json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
		})
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/analyses?limit=1", nil))
	var list struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Equal(t, 1, list.Count)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ValidationError("x", nil), http.StatusBadRequest},
		{domain.UnsupportedFormatError("x", nil), http.StatusBadRequest},
		{domain.DocumentReadError("x", nil), http.StatusUnprocessableEntity},
		{domain.AudioExtractionError("x", nil), http.StatusUnprocessableEntity},
		{domain.EmptyTranscriptError("x", nil), http.StatusInternalServerError},
		{domain.ResponseParseError("x", nil), http.StatusBadGateway},
		{domain.GatewayError("x", nil), http.StatusBadGateway},
		{domain.NotFoundError("x", nil), http.StatusNotFound},
		{domain.ExtractionError("x", nil), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

type errPinger struct{ err error }

func (p errPinger) Ping(ctx context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(nil, nil, "pitch-analyzer").Root(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome to the Startup Pitch Analyzer API")

	rec = httptest.NewRecorder()
	NewHealthHandler(nil, errPinger{}, "pitch-analyzer").Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	NewHealthHandler(nil, errPinger{err: errors.New("db down")}, "pitch-analyzer").Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
