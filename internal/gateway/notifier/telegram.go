package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const telegramAPI = "https://api.telegram.org"

// Telegram pushes Markdown messages to a chat through the Bot API.
type Telegram struct {
	botToken string
	chatID   string
	retries  int
	backoff  time.Duration
	http     *resty.Client
}

type TelegramConfig struct {
	BotToken string
	ChatID   string
	BaseURL  string
	Timeout  time.Duration
	Retries  int
	Backoff  time.Duration
}

func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if strings.TrimSpace(cfg.BotToken) == "" || strings.TrimSpace(cfg.ChatID) == "" {
		return nil, errors.New("telegram: bot token and chat id are required")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = telegramAPI
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	return &Telegram{
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		retries:  cfg.Retries,
		backoff:  cfg.Backoff,
		http: resty.New().
			SetBaseURL(base).
			SetTimeout(cfg.Timeout).
			SetHeader("Content-Type", "application/json"),
	}, nil
}

// SendText posts text with up to the configured number of attempts and a
// linearly growing pause between them.
func (t *Telegram) SendText(ctx context.Context, text string) error {
	payload := map[string]any{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}
	var lastErr error
	for i := 0; i < t.retries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i) * t.backoff):
			}
		}
		resp, err := t.http.R().
			SetContext(ctx).
			SetBody(payload).
			Post(fmt.Sprintf("/bot%s/sendMessage", t.botToken))
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("telegram: %w", err)
			continue
		}
		if resp.IsSuccess() {
			return nil
		}
		lastErr = fmt.Errorf("telegram status=%d: %s", resp.StatusCode(), describe(resp.Body()))
		if resp.StatusCode() < 500 && resp.StatusCode() != 429 {
			return lastErr
		}
	}
	return lastErr
}

func describe(body []byte) string {
	if d := gjson.GetBytes(body, "description"); d.Exists() {
		return d.String()
	}
	return strings.TrimSpace(string(body))
}
