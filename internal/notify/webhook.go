package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/teampoint/botcore/internal/utils"
)

// Webhook posts notifications to the outbound delivery service that
// owns the actual chat transport.
type Webhook struct {
	url    string
	client *http.Client
}

func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

type webhookPayload struct {
	UserID int64  `json:"user_id"`
	Text   string `json:"text"`
}

func (w *Webhook) Notify(ctx context.Context, userID int64, text string) error {
	body, err := json.Marshal(webhookPayload{UserID: userID, Text: text})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notifier returned status %d", resp.StatusCode)
	}
	return nil
}

// LogOnly is the fallback when no delivery service is configured:
// every notification becomes a log line. Useful in development.
func LogOnly() Notifier {
	return Func(func(ctx context.Context, userID int64, text string) error {
		utils.Logger.WithFields(logrus.Fields{
			"type":    "system",
			"event":   "notify_stub",
			"user_id": userID,
			"text":    text,
		}).Info("Notification (no delivery service configured)")
		return nil
	})
}
