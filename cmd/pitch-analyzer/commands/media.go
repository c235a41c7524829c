package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/spherical/pitch-analyzer/cmd/pitch-analyzer/ui"
	"github.com/spherical/pitch-analyzer/internal/domain"
	"github.com/spherical/pitch-analyzer/internal/insights"
	"github.com/spherical/pitch-analyzer/internal/transcribe"
)

var (
	audioFile string
	videoFile string
	videoURL  string
)

var audioCmd = &cobra.Command{
	Use:   "audio",
	Short: "Transcribe and analyze a pitch recording",
	Long:  "Transcribe an audio file (.wav, .mp3, .m4a, .ogg) and extract insights from the transcript.",
	RunE:  runAudio,
}

var videoCmd = &cobra.Command{
	Use:   "video",
	Short: "Transcribe and analyze a pitch video",
	Long: `Extract the audio track of a local video (.mp4, .mov, .mkv, .avi) or a
remote video URL, transcribe it and extract insights from the transcript.
Remote pages that are not direct video links are fetched with yt-dlp.`,
	RunE: runVideo,
}

func init() {
	audioCmd.Flags().StringVarP(&audioFile, "file", "f", "", "Path to audio file (required)")
	audioCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(audioCmd)

	videoCmd.Flags().StringVarP(&videoFile, "file", "f", "", "Path to video file")
	videoCmd.Flags().StringVarP(&videoURL, "url", "u", "", "Video URL")
	videoCmd.MarkFlagsMutuallyExclusive("file", "url")
	videoCmd.MarkFlagsOneRequired("file", "url")
	rootCmd.AddCommand(videoCmd)
}

func runAudio(cmd *cobra.Command, args []string) error {
	if err := transcribe.ValidateAudioName(audioFile); err != nil {
		return err
	}
	return runMedia("Transcribing audio...", func(ctx context.Context, svc *insights.Service) (*domain.MediaAnalysis, error) {
		return svc.AnalyzeAudio(ctx, filepath.Base(audioFile), audioFile)
	})
}

func runVideo(cmd *cobra.Command, args []string) error {
	if videoFile != "" {
		if err := transcribe.ValidateVideoName(videoFile); err != nil {
			return err
		}
		return runMedia("Extracting audio and transcribing...", func(ctx context.Context, svc *insights.Service) (*domain.MediaAnalysis, error) {
			return svc.AnalyzeVideoFile(ctx, filepath.Base(videoFile), videoFile)
		})
	}

	if _, err := transcribe.ValidateURL(videoURL); err != nil {
		return err
	}
	return runMedia("Downloading and transcribing video...", func(ctx context.Context, svc *insights.Service) (*domain.MediaAnalysis, error) {
		return svc.AnalyzeVideoURL(ctx, videoURL)
	})
}

func runMedia(message string, analyze func(ctx context.Context, svc *insights.Service) (*domain.MediaAnalysis, error)) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	application, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	spinner := ui.NewSpinner(message)
	spinner.Start()
	result, err := analyze(ctx, application.Insights)
	spinner.Stop()
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	ui.Section("Transcript")
	ui.Message("%s", result.Transcript)
	ui.Newline()
	printInsights(result.ID, result.Analysis)
	return printJSON(result.Analysis)
}
