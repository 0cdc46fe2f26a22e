package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zolffix/internal/streak"
)

var streakCmd = &cobra.Command{
	Use:   "streak [YYYY-MM-DD...]",
	Short: "Compute the streak for a list of completion dates",
	Long: `Prints the current and longest streak for the given completion dates.
Duplicates are ignored. Useful for checking a stored habit by hand.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dates := make([]streak.Day, 0, len(args))
		for _, raw := range args {
			day, err := streak.ParseDay(raw)
			if err != nil {
				return fmt.Errorf("invalid date %q: %w", raw, err)
			}
			dates = append(dates, day)
		}
		set := streak.NewDaySet(dates...)

		today := streak.Today(nowFunc(), cfg.Timezone)
		if raw, _ := cmd.Flags().GetString("today"); raw != "" {
			parsed, err := streak.ParseDay(raw)
			if err != nil {
				return fmt.Errorf("invalid --today %q: %w", raw, err)
			}
			today = parsed
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "today:   %s\n", today)
		fmt.Fprintf(out, "current: %d\n", streak.Compute(set, today.In(cfg.Timezone)))
		fmt.Fprintf(out, "longest: %d\n", streak.Longest(set))
		return nil
	},
}
