package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var envFiles []string

var rootCmd = &cobra.Command{
	Use:   "zolffix",
	Short: "Habit tracker, mood journal and quote feed server.",
	Long: `Zolffix tracks daily habits and streaks, keeps a mood journal and serves
motivational quotes. Configuration comes from environment variables, optionally
seeded from a .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return bootstrap()
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func initCmd() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "Path to .env files loaded before reading configuration")

	serveCmd.Flags().Bool("no-reminders", false, "Do not start the reminder scheduler")
	rootCmd.AddCommand(serveCmd)

	userCreateCmd.Flags().String("name", "", "Display name")
	userCreateCmd.Flags().String("email", "", "Login email")
	userCreateCmd.Flags().String("password", "", "Login password (at least 8 characters)")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("password")
	userCmd.AddCommand(userCreateCmd, userListCmd)
	rootCmd.AddCommand(userCmd)

	streakCmd.Flags().String("today", "", "Reference day as YYYY-MM-DD (defaults to today in APP_TIMEZONE)")
	rootCmd.AddCommand(streakCmd)

	remindCmd.Flags().Bool("once", false, "Run a single reminder check and exit")
	rootCmd.AddCommand(remindCmd)

	rootCmd.AddCommand(seedCmd)
}

func main() {
	initCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
