package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spherical/pitch-analyzer/cmd/pitch-analyzer/ui"
	"github.com/spherical/pitch-analyzer/internal/domain"
)

var (
	textFile       string
	textTranscript string
)

var textCmd = &cobra.Command{
	Use:   "text",
	Short: "Analyze a pitch transcript",
	Long:  "Extract structured insights from a transcript given inline or as a .txt file.",
	RunE:  runText,
}

func init() {
	textCmd.Flags().StringVarP(&textFile, "file", "f", "", "Path to a .txt transcript")
	textCmd.Flags().StringVarP(&textTranscript, "transcript", "t", "", "Transcript text")
	textCmd.MarkFlagsMutuallyExclusive("file", "transcript")
	textCmd.MarkFlagsOneRequired("file", "transcript")
	rootCmd.AddCommand(textCmd)
}

func runText(cmd *cobra.Command, args []string) error {
	kind, source, text, err := readTranscript(textFile, textTranscript)
	if err != nil {
		return err
	}

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

	spinner := ui.NewSpinner("Analyzing transcript...")
	spinner.Start()
	result, err := application.Insights.AnalyzeTranscript(ctx, kind, source, text)
	spinner.Stop()
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	printInsights(result.ID, result.Insights)
	return printJSON(result.Insights)
}

// readTranscript returns the transcript from a .txt file or the inline text.
func readTranscript(path, inline string) (domain.AnalysisKind, string, string, error) {
	if path == "" {
		if strings.TrimSpace(inline) == "" {
			return "", "", "", domain.ValidationError("Transcript cannot be empty.", nil)
		}
		return domain.KindTranscript, "", inline, nil
	}

	if strings.ToLower(filepath.Ext(path)) != ".txt" {
		return "", "", "", domain.UnsupportedFormatError("Only .txt files are supported.", nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", "", domain.IOError("read transcript file", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", "", "", domain.ValidationError("Transcript cannot be empty.", nil)
	}
	return domain.KindTextFile, filepath.Base(path), string(data), nil
}

func printInsights(id string, insights []domain.Insight) {
	ui.Success("Found %d insight record(s)", len(insights))
	ui.KeyValue("Analysis ID", id)
	for _, in := range insights {
		if name := in.StartupName(); name != "" {
			ui.KeyValue("Startup", name)
		}
	}
	ui.Newline()
}
