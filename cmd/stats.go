package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sessionflow/sessionflow/pkg/chatflow"
	"github.com/sessionflow/sessionflow/pkg/session"
)

var statsCmd = &cobra.Command{
	Use:   "stats <session.json>",
	Short: "Print display counters for a session snapshot",
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
		summary := chatflow.Summarize(items)

		if jsonOutput {
			out, err := json.MarshalIndent(summary, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		}

		fmt.Fprintf(cmd.OutOrStdout(), "items:                  %d\n", summary.TotalItems)
		fmt.Fprintf(cmd.OutOrStdout(), "thoughts:               %d\n", summary.ThoughtsCount)
		fmt.Fprintf(cmd.OutOrStdout(), "tool calls:             %d (%d successful)\n", summary.ToolCallsCount, summary.SuccessfulToolCalls)
		fmt.Fprintf(cmd.OutOrStdout(), "final answers:          %d\n", summary.FinalAnswersCount)
		fmt.Fprintf(cmd.OutOrStdout(), "forced conclusions:     %d\n", summary.ForcedConclusionsCount)
		fmt.Fprintf(cmd.OutOrStdout(), "native thinking:        %d\n", summary.NativeThinkingCount)
		fmt.Fprintf(cmd.OutOrStdout(), "intermediate responses: %d\n", summary.IntermediateResponsesCount)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
