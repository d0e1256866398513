package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sessionflow/sessionflow/pkg/config"
	"github.com/sessionflow/sessionflow/pkg/logger"
)

var (
	cfgFile    string
	plainFlag  bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "sessionflow",
	Short: "Render agent reasoning traces as chat transcripts",
	Long: `sessionflow flattens an AI agent's multi-stage session record into a
chronological chat transcript and reconciles it with recorded live
stream events.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(cfgFile); err != nil {
			return err
		}
		return logger.Init()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default .sessionflow/settings.yaml)")
	rootCmd.PersistentFlags().BoolVar(&plainFlag, "plain", false, "disable colors and syntax highlighting")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON instead of styled text")
}
