package commands

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/spherical/pitch-analyzer/cmd/pitch-analyzer/ui"
	"github.com/spherical/pitch-analyzer/internal/domain"
)

var (
	deckPDFPath   string
	deckOutputDir string
)

var deckCmd = &cobra.Command{
	Use:   "deck",
	Short: "Analyze a PDF pitch deck",
	Long: `Render every page of a PDF pitch deck, extract its table of contents and
summarize each topic. The analysis JSON and Markdown report are written to a
per-analysis directory under the results directory.`,
	RunE: runDeck,
}

func init() {
	deckCmd.Flags().StringVarP(&deckPDFPath, "pdf", "p", "", "Path to PDF file (required)")
	deckCmd.Flags().StringVarP(&deckOutputDir, "output", "o", "", "Results directory (defaults to pitch_deck.results_dir)")
	deckCmd.MarkFlagRequired("pdf")
	rootCmd.AddCommand(deckCmd)
}

func runDeck(cmd *cobra.Command, args []string) error {
	if strings.ToLower(filepath.Ext(deckPDFPath)) != ".pdf" {
		return domain.UnsupportedFormatError("Only .pdf files are supported.", nil)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if deckOutputDir != "" {
		cfg.PitchDeck.ResultsDir = deckOutputDir
	}

	ctx, cancel := commandContext()
	defer cancel()

	application, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	ui.Section("Pitch Deck Analysis")
	ui.KeyValue("PDF file", deckPDFPath)
	ui.KeyValue("Model", cfg.Gateway.Model)
	ui.KeyValue("Results", application.Results.Root())
	ui.Newline()

	events := make(chan domain.StreamEvent, 64)
	progress := ui.NewDeckProgress()
	done := make(chan struct{})
	go func() {
		progress.Run(events)
		close(done)
	}()

	start := time.Now()
	result, err := application.Insights.AnalyzePitchDeck(ctx, filepath.Base(deckPDFPath), deckPDFPath, events)
	close(events)
	<-done
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if result.Cached {
		ui.Info("Identical deck analyzed before; showing the stored result")
	}
	ui.Success("Analysis completed in %s", ui.FormatDuration(time.Since(start)))

	ui.Section("Topics")
	rows := make([][]string, 0, len(result.Analysis)+len(result.SkippedTopics)+len(result.FailedTopics))
	for _, entry := range result.TOC.Entries {
		rows = append(rows, []string{entry.Topic, topicStatus(result, entry.Topic), formatPages(entry.Pages)})
	}
	ui.Table([]string{"Topic", "Status", "Pages"}, rows)

	ui.Section("Summary")
	ui.KeyValue("Analysis ID", result.ID)
	ui.KeyValue("Pages", fmt.Sprintf("%d", result.PageCount))
	ui.KeyValue("Embedding dimension", fmt.Sprintf("%d", result.EmbeddingDimension))
	if result.Artifacts != nil {
		ui.KeyValue("JSON", result.Artifacts.JSONPath)
		ui.KeyValue("Markdown", result.Artifacts.MarkdownPath)
	}
	for _, f := range result.FailedTopics {
		ui.Warning("Topic %s failed: %s", f.Topic, f.Error)
	}

	if verbose {
		ui.Section("Report")
		ui.Message("%s", result.Markdown)
	}
	return nil
}

func topicStatus(result *domain.AnalysisResult, topic string) string {
	if _, ok := result.Analysis.Get(topic); ok {
		return "summarized"
	}
	for _, s := range result.SkippedTopics {
		if s == topic {
			return "skipped"
		}
	}
	for _, f := range result.FailedTopics {
		if f.Topic == topic {
			return "failed"
		}
	}
	return "-"
}

func formatPages(pages []int) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = fmt.Sprintf("%d", p)
	}
	return strings.Join(parts, ", ")
}
