package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spherical/pitch-analyzer/cmd/pitch-analyzer/ui"
	"github.com/spherical/pitch-analyzer/internal/domain"
)

var cacheKind string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the result cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove cached analysis results",
	Long: `Remove cached analysis results so identical input is analyzed again.
Stored history is kept. Only the configured shared cache (redis) outlives a
single run; the in-memory cache starts empty every time.`,
	RunE: runCacheClear,
}

func init() {
	cacheClearCmd.Flags().StringVarP(&cacheKind, "kind", "k", "", "Only clear one kind (transcript, text_file, audio, video, pitch_deck)")
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	kind := domain.AnalysisKind(cacheKind)
	if kind != "" && !kind.Valid() {
		return domain.ValidationError(fmt.Sprintf("unknown analysis kind %q", cacheKind), nil)
	}
	if noHistory {
		return domain.ValidationError("the cache is disabled with --no-history", nil)
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

	if err := application.Insights.PurgeCache(ctx, kind); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}

	if kind == "" {
		ui.Success("Cleared all cached results (%s cache)", cfg.Cache.Driver)
	} else {
		ui.Success("Cleared cached %s results (%s cache)", kind, cfg.Cache.Driver)
	}
	return nil
}
