// Package transcribe turns audio and video into transcript text through the
// model gateway.
package transcribe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spherical/pitch-analyzer/internal/domain"
	"github.com/spherical/pitch-analyzer/internal/observability"
)

const transcriptionPrompt = "You are an expert transcriptionist. Transcribe the following audio file to text. Only return the transcript, no extra commentary."

var (
	// AudioExtensions are the accepted audio upload extensions.
	AudioExtensions = []string{".wav", ".mp3", ".m4a", ".ogg"}
	// VideoExtensions are the accepted video upload extensions.
	VideoExtensions = []string{".mp4", ".mov", ".mkv", ".avi"}
)

// ValidateAudioName rejects file names without a supported audio extension.
func ValidateAudioName(name string) error {
	return validateExt(name, AudioExtensions, "audio")
}

// ValidateVideoName rejects file names without a supported video extension.
func ValidateVideoName(name string) error {
	return validateExt(name, VideoExtensions, "video")
}

func validateExt(name string, allowed []string, kind string) error {
	ext := strings.ToLower(filepath.Ext(name))
	for _, a := range allowed {
		if ext == a {
			return nil
		}
	}
	return domain.UnsupportedFormatError(
		fmt.Sprintf("Only %s files (%s) are supported.", kind, strings.Join(allowed, ", ")), nil)
}

// AudioMIMEType returns the mime type sent for an audio file.
func AudioMIMEType(path string) string {
	if strings.ToLower(filepath.Ext(path)) == ".mp3" {
		return "audio/mp3"
	}
	return "audio/wav"
}

// AudioTranscriber implements domain.Transcriber with one gateway call.
type AudioTranscriber struct {
	gateway domain.ModelGateway
	logger  *observability.Logger
}

var _ domain.Transcriber = (*AudioTranscriber)(nil)

// NewAudioTranscriber creates a new audio transcriber.
func NewAudioTranscriber(gateway domain.ModelGateway, logger *observability.Logger) *AudioTranscriber {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &AudioTranscriber{gateway: gateway, logger: logger.WithOperation("transcribe_audio")}
}

// Transcribe sends the audio at path to the gateway and returns the trimmed
// transcript.
func (t *AudioTranscriber) Transcribe(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", domain.IOError("read audio file", err)
	}
	if len(data) == 0 {
		return "", domain.ValidationError("audio file is empty", nil)
	}

	start := time.Now()
	reply, err := t.gateway.Generate(ctx, transcriptionPrompt, domain.Blob{MIMEType: AudioMIMEType(path), Data: data})
	if err != nil {
		return "", err
	}

	transcript := strings.TrimSpace(reply)
	if transcript == "" {
		return "", domain.EmptyTranscriptError("Transcription returned empty text.", nil)
	}

	t.logger.WithContext(ctx).Info().
		Int("audio_bytes", len(data)).
		Int("transcript_chars", len(transcript)).
		Dur("latency", time.Since(start)).
		Msg("Audio transcribed")

	return transcript, nil
}
