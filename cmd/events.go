package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/fixture-ctl/internal/app"
)

var eventsCmd = &cobra.Command{
	Use:   "events <fixture-id>",
	Short: "Display the event log for a fixture",
	Args:  cobra.ExactArgs(1),
	RunE:  runEvents,
}

var eventsJSON bool

func init() {
	eventsCmd.Flags().BoolVar(&eventsJSON, "jsonl", false, "Output events as JSON lines")
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, args []string) error {
	id := args[0]
	out := cmd.OutOrStdout()

	events, err := app.Default.Audit.Events(id)
	if err != nil {
		return fmt.Errorf("failed to read event log: %w", err)
	}

	if len(events) == 0 {
		logInfo("No events found for fixture %s", id)
		return nil
	}

	for _, e := range events {
		if eventsJSON {
			data, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("failed to marshal event: %w", err)
			}
			fmt.Fprintln(out, string(data))
			continue
		}

		ts := e.Timestamp.Local().Format("2006-01-02 15:04:05")
		target := e.Fixture
		if e.Namespace != "" {
			target += " -> " + e.Namespace
		}
		if e.Details != "" {
			fmt.Fprintf(out, "[%s] %-8s %s (%s)\n", ts, e.Type, target, e.Details)
		} else {
			fmt.Fprintf(out, "[%s] %-8s %s\n", ts, e.Type, target)
		}
	}

	return nil
}
