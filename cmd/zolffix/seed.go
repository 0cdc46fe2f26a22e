package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zolffix/internal/model"
	"github.com/zolffix/internal/service"
)

const (
	demoEmail    = "demo@zolffix.local"
	demoPassword = "demo12345"
)

// 演示习惯及其最近的打卡偏移（0 为今天）
var demoHabits = []struct {
	input   service.HabitInput
	offsets []int
}{
	{service.HabitInput{Name: "Read 20 pages", Icon: "📚", ReminderTime: "21:00"}, []int{1, 2, 3, 5, 6}},
	{service.HabitInput{Name: "Meditate", Icon: "🧘", ReminderTime: "07:00"}, []int{0, 1, 2, 3, 4, 5, 6, 7}},
	{service.HabitInput{Name: "Run", Icon: "🏃", ReminderDays: []time.Weekday{time.Monday, time.Wednesday, time.Friday}}, []int{2, 4, 9}},
}

var demoJournal = []service.JournalInput{
	{Content: "Finished the book I started last month. Feeling **proud**.", Mood: "Happy"},
	{Content: "Long day, skipped the run.", Mood: "Sad"},
	{Content: "Big presentation tomorrow.", Mood: "Anxious"},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a demo account with sample habits and journal entries",
	Long:  fmt.Sprintf("Creates %s (password %s) with a few habits, completion history and journal entries. Skips when the account exists.", demoEmail, demoPassword),
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		account, err := app.Accounts.Signup(ctx, service.SignupInput{Name: "Demo", Email: demoEmail, Password: demoPassword})
		if errors.Is(err, service.ErrAccountExists) {
			fmt.Fprintln(cmd.OutOrStdout(), "Demo account already exists, skipping.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to create demo account: %w", err)
		}

		if err := seedAccount(ctx, app, account); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Demo data created.\nEmail: %s\nPassword: %s\n", demoEmail, demoPassword)
		return nil
	},
}

func seedAccount(ctx context.Context, app *service.App, account model.Account) error {
	inputs := make([]service.HabitInput, 0, len(demoHabits))
	for _, demo := range demoHabits {
		inputs = append(inputs, demo.input)
	}

	_, habits, err := app.Profiles.CompleteOnboarding(ctx, account.ID, service.OnboardingInput{
		Categories: []string{"Motivation", "Growth", "Mindset"},
		Habits:     inputs,
	})
	if err != nil {
		return fmt.Errorf("failed to onboard demo account: %w", err)
	}

	today := app.Habits.Today(ctx)
	for i, habit := range habits {
		for _, offset := range demoHabits[i].offsets {
			if _, err := app.Habits.ToggleCompletion(ctx, account.ID, habit.ID, today.AddDays(-offset)); err != nil {
				return fmt.Errorf("failed to seed completions for %s: %w", habit.Name, err)
			}
		}
	}

	for _, entry := range demoJournal {
		if _, err := app.Journal.Add(ctx, account.ID, entry); err != nil {
			return fmt.Errorf("failed to seed journal: %w", err)
		}
	}
	return nil
}
