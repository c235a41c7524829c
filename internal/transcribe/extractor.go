package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spherical/pitch-analyzer/internal/domain"
)

// AudioExtractor writes the audio track of a video to a WAV file.
type AudioExtractor interface {
	Name() string
	Extract(ctx context.Context, videoPath, audioPath string) error
}

// CommandExtractor runs an external command. Arguments may contain the
// {input} and {output} placeholders.
type CommandExtractor struct {
	name    string
	command []string
}

// NewCommandExtractor creates an extractor from a command template.
func NewCommandExtractor(name string, command []string) *CommandExtractor {
	return &CommandExtractor{name: name, command: command}
}

// Name returns the extractor name.
func (e *CommandExtractor) Name() string {
	return e.name
}

// Extract runs the command and checks that it produced a non-empty file.
func (e *CommandExtractor) Extract(ctx context.Context, videoPath, audioPath string) error {
	if len(e.command) == 0 {
		return fmt.Errorf("%s: empty command", e.name)
	}

	args := make([]string, len(e.command))
	for i, a := range e.command {
		a = strings.ReplaceAll(a, "{input}", videoPath)
		args[i] = strings.ReplaceAll(a, "{output}", audioPath)
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", e.name, err, lastLines(string(out), 3))
	}

	info, err := os.Stat(audioPath)
	if err != nil || info.Size() == 0 {
		return fmt.Errorf("%s: produced no audio output", e.name)
	}
	return nil
}

// ExtractorChain tries each extractor in order until one succeeds.
type ExtractorChain []AudioExtractor

// Name returns the names of the chained extractors.
func (c ExtractorChain) Name() string {
	names := make([]string, len(c))
	for i, e := range c {
		names[i] = e.Name()
	}
	return strings.Join(names, ",")
}

// Extract runs the chain. When every strategy fails, the returned error
// carries each strategy's error.
func (c ExtractorChain) Extract(ctx context.Context, videoPath, audioPath string) error {
	if len(c) == 0 {
		return domain.AudioExtractionError("no audio extractors configured", nil)
	}

	var errs []error
	for _, e := range c {
		if err := ctx.Err(); err != nil {
			return err
		}
		os.Remove(audioPath)
		err := e.Extract(ctx, videoPath, audioPath)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	os.Remove(audioPath)

	return domain.AudioExtractionError("Failed to extract audio", errors.Join(errs...))
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
