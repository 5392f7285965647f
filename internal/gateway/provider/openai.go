package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"sentinel/internal/logger"
)

const defaultBaseURL = "https://api.openai.com/v1"

// OpenAIChatClient talks to any OpenAI-compatible /chat/completions
// endpoint (OpenAI, DeepSeek, Qwen, local gateways). Retries are left to
// the resilient caller wrapping it.
type OpenAIChatClient struct {
	id          string
	model       string
	temperature float64
	maxTokens   int
	http        *resty.Client
}

type OpenAIConfig struct {
	ID           string
	BaseURL      string
	APIKey       string
	Model        string
	Temperature  float64
	MaxTokens    int
	Timeout      time.Duration
	ExtraHeaders map[string]string
}

func normalizeBaseURL(raw string) string {
	url := strings.TrimRight(strings.TrimSpace(raw), "/")
	if url == "" {
		url = defaultBaseURL
	}
	return strings.TrimSuffix(url, "/chat/completions")
}

func NewOpenAIChatClient(cfg OpenAIConfig) *OpenAIChatClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	id := cfg.ID
	if id == "" {
		id = "openai:" + cfg.Model
	}
	client := resty.New().
		SetBaseURL(normalizeBaseURL(cfg.BaseURL)).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	if len(cfg.ExtraHeaders) > 0 {
		client.SetHeaders(cfg.ExtraHeaders)
	}
	logger.Debugf("provider %s: base=%s headers=%v", id, client.BaseURL, maskHeaders(cfg.APIKey, cfg.ExtraHeaders))
	return &OpenAIChatClient{
		id:          id,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		http:        client,
	}
}

func (c *OpenAIChatClient) ID() string { return c.id }

func (c *OpenAIChatClient) Generate(ctx context.Context, p Prompt) (string, error) {
	messages := make([]map[string]string, 0, 2)
	if p.System != "" {
		messages = append(messages, map[string]string{"role": "system", "content": p.System})
	}
	messages = append(messages, map[string]string{"role": "user", "content": p.User})
	body := map[string]any{
		"model":       c.model,
		"messages":    messages,
		"temperature": c.temperature,
	}
	maxTokens := p.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	if maxTokens > 0 {
		body["max_tokens"] = maxTokens
	}

	resp, err := c.http.R().SetContext(ctx).SetBody(body).Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("%s request: %w", c.id, err)
	}
	raw := resp.Body()
	if resp.IsError() {
		msg := strings.TrimSpace(gjson.GetBytes(raw, "error.message").String())
		if msg == "" {
			msg = resp.Status()
		}
		return "", &StatusError{Code: resp.StatusCode(), Message: msg}
	}
	if !gjson.ValidBytes(raw) {
		return "", fmt.Errorf("%s: malformed response body", c.id)
	}
	content := strings.TrimSpace(gjson.GetBytes(raw, "choices.0.message.content").String())
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

func maskHeaders(apiKey string, extra map[string]string) map[string]string {
	out := map[string]string{}
	if apiKey != "" {
		out["Authorization"] = "Bearer " + mask(apiKey)
	}
	for k, v := range extra {
		lk := strings.ToLower(k)
		if strings.Contains(lk, "key") || strings.Contains(lk, "token") || strings.Contains(lk, "auth") {
			v = mask(v)
		}
		out[k] = v
	}
	return out
}

func mask(v string) string {
	if len(v) <= 4 {
		return "****"
	}
	return "****" + v[len(v)-4:]
}
