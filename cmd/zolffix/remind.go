package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zolffix/internal/reminder"
)

var nowFunc = time.Now

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Run the habit reminder scheduler",
	Long: `Checks habit reminders every REMINDER_INTERVAL. With --once a single check
runs for the current minute and the command exits.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		once, _ := cmd.Flags().GetBool("once")

		ctx := cmd.Context()
		app, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		scheduler := reminder.NewScheduler(app, newNotifier(), cfg.ReminderInterval)
		if once {
			sent, err := scheduler.CheckOnce(ctx, nowFunc())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reminders sent: %d\n", sent)
			return nil
		}

		scheduler.Run(ctx)
		return nil
	},
}
