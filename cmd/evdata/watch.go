package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/evdata/evdata/internal/job"
	"github.com/evdata/evdata/internal/ws"
)

var serverURL string

var watchCmd = &cobra.Command{
	Use:   "watch <task-id>",
	Short: "Stream status updates for a task from a running server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer cancel()

		final, err := ws.Watch(ctx, ws.TaskURL(serverURL, args[0]), func(j *job.Job) {
			line := fmt.Sprintf("%s  %s", j.UpdatedAt.Format("15:04:05"), j.Status)
			if j.Status == job.StatusRetrying {
				line += fmt.Sprintf(" (retry %d of %d)", j.Retries, j.MaxRetries)
			}
			fmt.Println(line)
		})
		if err != nil {
			return err
		}
		if final.Status == job.StatusSuccess {
			return printJSON(final.Result)
		}
		if final.Error != "" {
			return fmt.Errorf("task %s: %s", final.Status, final.Error)
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().StringVarP(&serverURL, "server", "s", "http://localhost:8000", "base URL of the evdata server")
}
