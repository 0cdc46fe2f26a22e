package reminder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zolffix/internal/logger"
)

// Notification 是一次习惯提醒
type Notification struct {
	UserID    string    `json:"userId"`
	HabitID   string    `json:"habitId"`
	HabitName string    `json:"habitName"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Language  string    `json:"language"`
	At        time.Time `json:"at"`
}

// Notifier 发送提醒
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier 只把提醒写入日志
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n Notification) error {
	logger.Info(n.Title, "body", n.Body, "user", n.UserID, "habit", n.HabitID)
	return nil
}

// WebhookNotifier 把提醒以 JSON POST 到指定地址
type WebhookNotifier struct {
	URL    string
	Client *http.Client
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{URL: url, Client: &http.Client{Timeout: 10 * time.Second}}
}

func (w *WebhookNotifier) Notify(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := w.Client
	if client == nil {
		client = http.DefaultClient
	}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return fmt.Errorf("notification failed with status %d: %s", res.StatusCode, string(respBody))
}
