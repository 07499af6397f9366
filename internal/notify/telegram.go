package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"flowguard/internal/logging"
)

// Telegram adapts the Telegram Bot API as a Port, grounded directly on
// marcopennelli-orbo/internal/telegram/bot.go's TelegramBot: multipart
// photo upload via sendPhoto, a per-event-type cooldown tracker, and the
// OK/error_code/description response envelope.
type Telegram struct {
	botToken string
	chatID   string
	client   *http.Client
	log      *logging.Logger

	mu              sync.Mutex
	cooldownTracker map[string]time.Time
	cooldownPeriod  time.Duration
}

// TelegramConfig configures a Telegram adapter.
type TelegramConfig struct {
	BotToken        string
	ChatID          string
	CooldownSeconds int
}

// NewTelegram constructs a Telegram adapter.
func NewTelegram(cfg TelegramConfig) *Telegram {
	cooldown := time.Duration(cfg.CooldownSeconds) * time.Second
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Telegram{
		botToken:        cfg.BotToken,
		chatID:          cfg.ChatID,
		client:          &http.Client{Timeout: 30 * time.Second},
		log:             logging.New("notify.telegram"),
		cooldownTracker: make(map[string]time.Time),
		cooldownPeriod:  cooldown,
	}
}

type telegramResponse struct {
	OK          bool        `json:"ok"`
	ErrorCode   int         `json:"error_code,omitempty"`
	Description string      `json:"description,omitempty"`
	Result      interface{} `json:"result,omitempty"`
}

// Emit sends event as a Telegram message, attaching the snapshot photo
// when event.Payload carries one under "snapshot_data" ([]byte). Best
// effort: cooldown-suppressed duplicates and transport errors are logged,
// never retried (spec §6.3, §7).
func (t *Telegram) Emit(ctx context.Context, event Event) error {
	if !t.allow(event.Type) {
		return nil // within cooldown window, silently suppressed
	}

	caption := fmt.Sprintf("%s on camera %s", event.Type, event.CameraID)
	if photo, ok := event.Payload["snapshot_data"].([]byte); ok && len(photo) > 0 {
		return t.sendPhoto(ctx, photo, caption)
	}
	return t.sendMessage(ctx, caption)
}

func (t *Telegram) allow(eventType string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	last, ok := t.cooldownTracker[eventType]
	if ok && time.Since(last) < t.cooldownPeriod {
		return false
	}
	t.cooldownTracker[eventType] = time.Now()
	return true
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	return t.sendRequest(ctx, "sendMessage", map[string]interface{}{
		"chat_id": t.chatID,
		"text":    text,
	})
}

func (t *Telegram) sendPhoto(ctx context.Context, photo []byte, caption string) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	if err := w.WriteField("chat_id", t.chatID); err != nil {
		return err
	}
	if caption != "" {
		if err := w.WriteField("caption", caption); err != nil {
			return err
		}
	}
	part, err := w.CreateFormFile("photo", "snapshot.jpg")
	if err != nil {
		return err
	}
	if _, err := part.Write(photo); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendPhoto", t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := t.client.Do(req)
	if err != nil {
		t.log.WithError(err).Warn("notify: telegram: send photo failed")
		return err
	}
	defer resp.Body.Close()
	return t.handleResponse(resp)
}

func (t *Telegram) sendRequest(ctx context.Context, method string, payload map[string]interface{}) error {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/%s", t.botToken, method)

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		t.log.WithError(err).Warn("notify: telegram: request failed")
		return err
	}
	defer resp.Body.Close()
	return t.handleResponse(resp)
}

func (t *Telegram) handleResponse(resp *http.Response) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var parsed telegramResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return err
	}
	if !parsed.OK {
		err := fmt.Errorf("notify: telegram: api error %d: %s", parsed.ErrorCode, parsed.Description)
		t.log.WithError(err).Warn("notify: telegram: non-ok response")
		return err
	}
	return nil
}
