package transcribe

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/pitch-analyzer/internal/domain"
)

type recordingGateway struct {
	reply string
	err   error
	blobs []domain.Blob
}

func (g *recordingGateway) Generate(ctx context.Context, prompt string, attachments ...domain.Blob) (string, error) {
	g.blobs = attachments
	return g.reply, g.err
}

func (g *recordingGateway) Embed(ctx context.Context, text string) (domain.EmbeddingVector, error) {
	return nil, errors.New("not used")
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestAudioMIMEType(t *testing.T) {
	assert.Equal(t, "audio/mp3", AudioMIMEType("pitch.mp3"))
	assert.Equal(t, "audio/mp3", AudioMIMEType("PITCH.MP3"))
	assert.Equal(t, "audio/wav", AudioMIMEType("pitch.wav"))
	assert.Equal(t, "audio/wav", AudioMIMEType("pitch.m4a"))
	assert.Equal(t, "audio/wav", AudioMIMEType("pitch.ogg"))
}

func TestValidateNames(t *testing.T) {
	assert.NoError(t, ValidateAudioName("a.OGG"))
	assert.NoError(t, ValidateVideoName("clip.mkv"))

	err := ValidateAudioName("a.flac")
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeUnsupportedFormat))

	err = ValidateVideoName("clip.webm")
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeUnsupportedFormat))
}

func TestAudioTranscriber(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "pitch.mp3", "ID3 audio")

	gw := &recordingGateway{reply: "  Hello investors.\n"}
	text, err := NewAudioTranscriber(gw, nil).Transcribe(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Hello investors.", text)
	require.Len(t, gw.blobs, 1)
	assert.Equal(t, "audio/mp3", gw.blobs[0].MIMEType)
	assert.Equal(t, []byte("ID3 audio"), gw.blobs[0].Data)
}

func TestAudioTranscriber_Errors(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "pitch.wav", "RIFF")
	empty := writeFile(t, dir, "empty.wav", "")

	tests := []struct {
		name     string
		path     string
		gw       *recordingGateway
		wantType domain.ErrorType
	}{
		{name: "blank transcript", path: path, gw: &recordingGateway{reply: " \n "}, wantType: domain.ErrorTypeEmptyTranscript},
		{name: "gateway failure", path: path, gw: &recordingGateway{err: domain.GatewayError("generate content", nil)}, wantType: domain.ErrorTypeGateway},
		{name: "missing file", path: filepath.Join(dir, "nope.wav"), gw: &recordingGateway{}, wantType: domain.ErrorTypeIO},
		{name: "empty file", path: empty, gw: &recordingGateway{}, wantType: domain.ErrorTypeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAudioTranscriber(tt.gw, nil).Transcribe(context.Background(), tt.path)
			require.Error(t, err)
			assert.True(t, domain.IsType(err, tt.wantType), err.Error())
		})
	}
}

func TestCommandExtractor(t *testing.T) {
	dir := t.TempDir()
	video := writeFile(t, dir, "clip.mp4", "video bytes")
	audio := filepath.Join(dir, "audio.wav")

	ok := NewCommandExtractor("copy", []string{"cp", "{input}", "{output}"})
	require.NoError(t, ok.Extract(context.Background(), video, audio))
	data, err := os.ReadFile(audio)
	require.NoError(t, err)
	assert.Equal(t, "video bytes", string(data))

	silent := NewCommandExtractor("noop", []string{"true"})
	os.Remove(audio)
	err = silent.Extract(context.Background(), video, audio)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "produced no audio output")
}

func TestExtractorChain_FallsBack(t *testing.T) {
	dir := t.TempDir()
	video := writeFile(t, dir, "clip.mp4", "video bytes")
	audio := filepath.Join(dir, "audio.wav")

	chain := ExtractorChain{
		NewCommandExtractor("primary", []string{"sh", "-c", "echo codec missing >&2; exit 3"}),
		NewCommandExtractor("fallback", []string{"cp", "{input}", "{output}"}),
	}
	require.NoError(t, chain.Extract(context.Background(), video, audio))
	assert.FileExists(t, audio)
	assert.Equal(t, "primary,fallback", chain.Name())
}

func TestExtractorChain_AllFail(t *testing.T) {
	dir := t.TempDir()
	video := writeFile(t, dir, "clip.mp4", "video bytes")

	chain := ExtractorChain{
		NewCommandExtractor("primary", []string{"sh", "-c", "echo primary broke >&2; exit 1"}),
		NewCommandExtractor("fallback", []string{"definitely-not-a-real-binary-xyz"}),
	}
	err := chain.Extract(context.Background(), video, filepath.Join(dir, "audio.wav"))
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeAudioExtraction))
	assert.Contains(t, err.Error(), "primary broke")
	assert.Contains(t, err.Error(), "fallback")

	err = ExtractorChain{}.Extract(context.Background(), video, filepath.Join(dir, "audio.wav"))
	assert.True(t, domain.IsType(err, domain.ErrorTypeAudioExtraction))
}

type copyExtractor struct{ err error }

func (c copyExtractor) Name() string { return "copy" }

func (c copyExtractor) Extract(ctx context.Context, videoPath, audioPath string) error {
	if c.err != nil {
		return c.err
	}
	data, err := os.ReadFile(videoPath)
	if err != nil {
		return err
	}
	return os.WriteFile(audioPath, data, 0o644)
}

type pathTranscriber struct {
	text string
	seen string
}

func (p *pathTranscriber) Transcribe(ctx context.Context, path string) (string, error) {
	p.seen = path
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return p.text, nil
}

func TestVideoTranscriber_File(t *testing.T) {
	work := t.TempDir()
	video := writeFile(t, t.TempDir(), "pitch.MOV", "frames")
	audio := &pathTranscriber{text: "We build rockets."}

	v := NewVideoTranscriber(audio, copyExtractor{}, nil, work, nil)
	text, err := v.TranscribeFile(context.Background(), video)
	require.NoError(t, err)
	assert.Equal(t, "We build rockets.", text)
	assert.Equal(t, "audio.wav", filepath.Base(audio.seen))

	// Working directory is removed.
	entries, err := os.ReadDir(work)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestVideoTranscriber_FileErrors(t *testing.T) {
	work := t.TempDir()
	video := writeFile(t, t.TempDir(), "pitch.mp4", "frames")

	v := NewVideoTranscriber(&pathTranscriber{}, copyExtractor{}, nil, work, nil)
	_, err := v.TranscribeFile(context.Background(), "slides.pdf")
	assert.True(t, domain.IsType(err, domain.ErrorTypeUnsupportedFormat))

	_, err = v.TranscribeFile(context.Background(), video)
	assert.True(t, domain.IsType(err, domain.ErrorTypeEmptyTranscript))

	failing := NewVideoTranscriber(&pathTranscriber{text: "x"},
		copyExtractor{err: domain.AudioExtractionError("Failed to extract audio", nil)}, nil, work, nil)
	_, err = failing.TranscribeFile(context.Background(), video)
	assert.True(t, domain.IsType(err, domain.ErrorTypeAudioExtraction))

	entries, err := os.ReadDir(work)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestVideoTranscriber_URL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/media/pitch.mp4" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, "remote frames")
	}))
	defer server.Close()

	work := t.TempDir()
	audio := &pathTranscriber{text: "Remote pitch."}
	site := &stubDownloader{err: errors.New("should not be used")}
	downloader := NewRemoteDownloader(NewHTTPDownloader(server.Client(), 0), site)

	v := NewVideoTranscriber(audio, copyExtractor{}, downloader, work, nil)
	text, err := v.TranscribeURL(context.Background(), server.URL+"/media/pitch.mp4")
	require.NoError(t, err)
	assert.Equal(t, "Remote pitch.", text)
	assert.False(t, site.called)

	_, err = v.TranscribeURL(context.Background(), server.URL+"/media/missing.mp4")
	assert.True(t, domain.IsType(err, domain.ErrorTypeIO))

	_, err = v.TranscribeURL(context.Background(), "ftp://example.com/pitch.mp4")
	assert.True(t, domain.IsType(err, domain.ErrorTypeValidation))

	entries, err := os.ReadDir(work)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type stubDownloader struct {
	err    error
	called bool
}

func (s *stubDownloader) Download(ctx context.Context, rawURL, dir string) (string, error) {
	s.called = true
	return "", s.err
}

func TestRemoteDownloader_RoutesSitesToYTDLP(t *testing.T) {
	site := &stubDownloader{err: errors.New("site")}
	direct := &stubDownloader{err: errors.New("direct")}
	d := NewRemoteDownloader(direct, site)

	_, err := d.Download(context.Background(), "https://www.youtube.com/watch?v=abc", t.TempDir())
	assert.EqualError(t, err, "site")
	assert.True(t, site.called)
	assert.False(t, direct.called)
}

func TestHTTPDownloader_SizeLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, strings.Repeat("x", 64))
	}))
	defer server.Close()

	_, err := NewHTTPDownloader(server.Client(), 16).Download(context.Background(), server.URL+"/big.mp4", t.TempDir())
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeValidation))
}

const fakeYTDLP = `#!/bin/sh
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then
    shift
    out=$(echo "$1" | sed 's/%(id)s/vid123/; s/%(ext)s/webm/')
  fi
  shift
done
echo "fake video" > "$out"
echo "$out"
`

func TestYTDLPDownloader(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "yt-dlp")
	require.NoError(t, os.WriteFile(bin, []byte(fakeYTDLP), 0o755))

	dir := t.TempDir()
	got, err := NewYTDLPDownloader(bin).Download(context.Background(), "https://youtu.be/vid123", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "vid123.webm"), got)
	assert.FileExists(t, got)

	failing := filepath.Join(t.TempDir(), "yt-dlp-fail")
	require.NoError(t, os.WriteFile(failing, []byte("#!/bin/sh\necho 'ERROR: Unsupported URL' >&2\nexit 1\n"), 0o755))
	_, err = NewYTDLPDownloader(failing).Download(context.Background(), "https://example.com/page", t.TempDir())
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeIO))
	assert.Contains(t, err.Error(), "Unsupported URL")
}
