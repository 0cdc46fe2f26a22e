package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zolffix/internal/service"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account",
	Long:  `Creates an account and its default profile, the same way the signup endpoint does.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		if name == "" {
			name = email
		}

		ctx := cmd.Context()
		app, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		account, err := app.Accounts.Signup(ctx, service.SignupInput{Name: name, Email: email, Password: password})
		if errors.Is(err, service.ErrAccountExists) {
			return fmt.Errorf("account already exists: %s", email)
		}
		if err != nil {
			return fmt.Errorf("failed to create account: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Account created: %s (%s)\n", account.Email, account.ID)
		return nil
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		accounts, err := app.Accounts.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list accounts: %w", err)
		}
		if len(accounts) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No accounts found.")
			return nil
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "ID | Email | Name | Created At")
		fmt.Fprintln(out, "----------------------------------------")
		for _, account := range accounts {
			fmt.Fprintf(out, "%s | %s | %s | %s\n", account.ID, account.Email, account.Name, account.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}
