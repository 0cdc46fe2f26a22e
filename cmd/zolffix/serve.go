package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/zolffix/internal/logger"
	"github.com/zolffix/internal/reminder"
	"github.com/zolffix/internal/router"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long:  `Starts the JSON API, the /metrics endpoint and the reminder scheduler.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		noReminders, _ := cmd.Flags().GetBool("no-reminders")
		if err := cfg.CheckSecrets(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		if !noReminders {
			go reminder.NewScheduler(app, newNotifier(), cfg.ReminderInterval).Run(ctx)
		}

		gin.SetMode(cfg.GinMode)
		srv := &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           router.SetupRouter(cfg.SessionSecret, app),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("server listening", "addr", cfg.ListenAddr, "timezone", cfg.Timezone.String())
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func newNotifier() reminder.Notifier {
	if cfg.ReminderWebhookURL != "" {
		return reminder.NewWebhookNotifier(cfg.ReminderWebhookURL)
	}
	return reminder.LogNotifier{}
}
