package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"nion/internal/report"
	"nion/internal/state"
)

func newProcessCmd(configPath *string) *cobra.Command {
	var (
		message   string
		sender    string
		projectID string
		messageID string
		format    string
		linear    bool
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Process one message and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			eng, err := buildEngine(cfg)
			if err != nil {
				return err
			}

			input := state.InputMessage{
				Message:   message,
				Sender:    sender,
				ProjectID: projectID,
				MessageID: messageID,
				Timestamp: time.Now().UTC(),
			}

			start := time.Now()
			var run *state.State
			if linear {
				run, err = eng.RunFixedOrder(cmd.Context(), input)
			} else {
				run, err = eng.Run(cmd.Context(), input)
			}
			if err != nil {
				return fmt.Errorf("orchestration failed: %w", err)
			}
			elapsed := time.Since(start)

			switch format {
			case "json":
				doc := report.JSON(run)
				doc["execution_time_ms"] = float64(elapsed.Milliseconds())
				data, err := json.MarshalIndent(doc, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
			case "map":
				fmt.Println(report.Map(run))
			default:
				fmt.Printf("%s %s\n", bold("State:"), cyan(run.RunID))
				fmt.Printf("%s %d\n", bold("Results:"), len(run.Results))
				fmt.Printf("%s %s\n", bold("Duration:"), yellow(elapsed.Round(time.Millisecond).String()))
				for _, line := range run.Logs {
					fmt.Printf("  %s\n", line)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "message content to process")
	cmd.Flags().StringVarP(&sender, "sender", "s", "cli", "message sender")
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "project identifier")
	cmd.Flags().StringVar(&messageID, "message-id", "", "optional message identifier")
	cmd.Flags().StringVarP(&format, "format", "f", "summary", "output format: summary, map, or json")
	cmd.Flags().BoolVar(&linear, "linear", false, "run every stage in fixed order instead of routing")
	_ = cmd.MarkFlagRequired("message")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}
