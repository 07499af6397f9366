package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"flowguard/internal/logging"
)

// Webhook POSTs the event as JSON to a configured URL. Grounded on the
// generic fire-and-forget HTTP dispatch shape of
// marcopennelli-orbo/internal/telegram/bot.go's sendTelegramRequest
// (marshal JSON, POST, check status), generalized to an arbitrary
// endpoint instead of the fixed Telegram API host.
type Webhook struct {
	url    string
	client *http.Client
	log    *logging.Logger
}

// NewWebhook constructs a Webhook adapter targeting url.
func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
		log:    logging.New("notify.webhook"),
	}
}

// Emit POSTs event as JSON, injecting Timestamp if absent.
func (w *Webhook) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	body, err := json.Marshal(event)
	if err != nil {
		w.log.WithError(err).Warn("notify: webhook: marshal failed")
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		w.log.WithError(err).Warn("notify: webhook: build request failed")
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		w.log.WithError(err).Warn("notify: webhook: delivery failed")
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		err := fmt.Errorf("notify: webhook: unexpected status %d", resp.StatusCode)
		w.log.WithError(err).Warn("notify: webhook: non-2xx response")
		return err
	}
	return nil
}
