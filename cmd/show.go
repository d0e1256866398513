package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sessionflow/sessionflow/pkg/chatflow"
	"github.com/sessionflow/sessionflow/pkg/config"
	"github.com/sessionflow/sessionflow/pkg/render"
	"github.com/sessionflow/sessionflow/pkg/session"
)

var showCmd = &cobra.Command{
	Use:   "show <session.json>",
	Short: "Flatten a session snapshot and print its chat transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := session.Load(args[0])
		if err != nil {
			return err
		}

		items, err := chatflow.NewFlattener().Flatten(s)
		if err != nil {
			return err
		}

		if jsonOutput {
			out, err := json.MarshalIndent(items, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		}

		cfg := config.Get().Render
		r := render.NewRenderer(plainFlag || cfg.Plain, cfg.SyntaxTheme)
		fmt.Fprint(cmd.OutOrStdout(), r.Transcript(items, nil))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
