// Package commands implements the pitch-analyzer CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/spherical/pitch-analyzer/cmd/pitch-analyzer/ui"
)

var (
	cfgFile   string
	verbose   bool
	noColor   bool
	noHistory bool
)

var rootCmd = &cobra.Command{
	Use:   "pitch-analyzer",
	Short: "Startup Pitch Analyzer - extract insights from pitch material",
	Long: `pitch-analyzer extracts structured business insights from startup pitch
material: transcripts, text files, audio, video and PDF pitch decks.
Analyses are stored in the same history database the API server uses.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.InitUI(noColor, verbose)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&noHistory, "no-history", false, "do not store results or use the result cache")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
