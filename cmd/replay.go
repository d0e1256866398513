package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sessionflow/sessionflow/pkg/config"
	"github.com/sessionflow/sessionflow/pkg/controllers"
	"github.com/sessionflow/sessionflow/pkg/events"
	"github.com/sessionflow/sessionflow/pkg/logger"
	"github.com/sessionflow/sessionflow/pkg/render"
	"github.com/sessionflow/sessionflow/pkg/session"
)

var replayCmd = &cobra.Command{
	Use:   "replay <session.json> <events.jsonl>",
	Short: "Replay a recorded event feed against a session snapshot",
	Long: `Feeds a JSONL event log through the live reconciler, then applies the
session snapshot as the durable view. Confirmed stream items are retired;
anything still unconfirmed is rendered as a live overlay entry.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := session.Load(args[0])
		if err != nil {
			return err
		}

		bus := events.NewBus()
		defer bus.Close()
		controller := controllers.NewSessionController(bus)
		defer controller.Close()
		controller.Observe(s.SessionID)

		if err := replayEvents(bus, s.SessionID, args[1]); err != nil {
			return err
		}
		if err := controller.ApplySnapshot(s); err != nil {
			return err
		}

		items := controller.Items()
		live := controller.Live()

		if jsonOutput {
			out, err := json.MarshalIndent(map[string]any{
				"items": items,
				"live":  live,
				"stats": controller.Stats(),
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		}

		cfg := config.Get().Render
		r := render.NewRenderer(plainFlag || cfg.Plain, cfg.SyntaxTheme)
		fmt.Fprint(cmd.OutOrStdout(), r.Transcript(items, live))
		return nil
	},
}

// replayEvents publishes each JSONL line synchronously on the session's
// channel. Lines with unknown types are skipped, matching the live-channel
// forward-compatibility policy.
func replayEvents(bus *events.Bus, sessionID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	channel := events.SessionChannel(sessionID)
	log := logger.WithComponent("replay")

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var envelope struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(line, &envelope); err != nil {
			return fmt.Errorf("event log line %d: %w", lineNo, err)
		}

		switch envelope.Type {
		case events.EventToolCallStarted:
			var payload events.ToolCallStarted
			if err := json.Unmarshal(line, &payload); err != nil {
				return fmt.Errorf("event log line %d: %w", lineNo, err)
			}
			bus.PublishSync(channel, envelope.Type, payload)
		case events.EventStreamChunk:
			var payload events.StreamChunk
			if err := json.Unmarshal(line, &payload); err != nil {
				return fmt.Errorf("event log line %d: %w", lineNo, err)
			}
			bus.PublishSync(channel, envelope.Type, payload)
		case events.EventStageStarted, events.EventStageCompleted, events.EventStageFailed:
			var payload events.StageStatus
			if err := json.Unmarshal(line, &payload); err != nil {
				return fmt.Errorf("event log line %d: %w", lineNo, err)
			}
			bus.PublishSync(channel, envelope.Type, payload)
		default:
			log.Debug("Skipping unknown event type", "line", lineNo, "type", envelope.Type)
		}
	}
	return scanner.Err()
}

func init() {
	rootCmd.AddCommand(replayCmd)
}
