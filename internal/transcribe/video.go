package transcribe

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/spherical/pitch-analyzer/internal/domain"
	"github.com/spherical/pitch-analyzer/internal/observability"
	"github.com/spherical/pitch-analyzer/internal/staging"
)

// VideoTranscriber extracts the audio track of a video and transcribes it.
type VideoTranscriber struct {
	audio      domain.Transcriber
	extractor  AudioExtractor
	downloader Downloader
	tempDir    string
	logger     *observability.Logger
}

// NewVideoTranscriber creates a new video transcriber. Working files are
// created under tempDir and removed before returning.
func NewVideoTranscriber(audio domain.Transcriber, extractor AudioExtractor, downloader Downloader, tempDir string, logger *observability.Logger) *VideoTranscriber {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &VideoTranscriber{
		audio:      audio,
		extractor:  extractor,
		downloader: downloader,
		tempDir:    tempDir,
		logger:     logger.WithOperation("transcribe_video"),
	}
}

// TranscribeFile transcribes a local video file.
func (v *VideoTranscriber) TranscribeFile(ctx context.Context, videoPath string) (string, error) {
	if err := ValidateVideoName(videoPath); err != nil {
		return "", err
	}

	dir, cleanup, err := staging.TempDir(v.tempDir, "video-*")
	if err != nil {
		return "", err
	}
	defer cleanup()

	return v.transcribe(ctx, videoPath, dir)
}

// TranscribeURL downloads a remote video and transcribes it.
func (v *VideoTranscriber) TranscribeURL(ctx context.Context, rawURL string) (string, error) {
	if _, err := ValidateURL(rawURL); err != nil {
		return "", err
	}

	dir, cleanup, err := staging.TempDir(v.tempDir, "video-url-*")
	if err != nil {
		return "", err
	}
	defer cleanup()

	start := time.Now()
	videoPath, err := v.downloader.Download(ctx, rawURL, dir)
	if err != nil {
		return "", err
	}
	v.logger.WithContext(ctx).Info().
		Str("url", rawURL).
		Dur("latency", time.Since(start)).
		Msg("Video downloaded")

	return v.transcribe(ctx, videoPath, dir)
}

func (v *VideoTranscriber) transcribe(ctx context.Context, videoPath, dir string) (string, error) {
	audioPath := filepath.Join(dir, "audio.wav")

	start := time.Now()
	if err := v.extractor.Extract(ctx, videoPath, audioPath); err != nil {
		v.logger.WithContext(ctx).Error().Err(err).Str("video", videoPath).Msg("Audio extraction failed")
		return "", err
	}
	v.logger.WithContext(ctx).Debug().Dur("latency", time.Since(start)).Msg("Audio extracted")

	transcript, err := v.audio.Transcribe(ctx, audioPath)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(transcript) == "" {
		return "", domain.EmptyTranscriptError("Transcription returned empty text.", nil)
	}
	return transcript, nil
}
