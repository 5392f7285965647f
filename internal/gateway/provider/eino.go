package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// chatGenerator is the slice of an eino chat model used here.
type chatGenerator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// EinoChatModel adapts an eino chat model to TextGenerator.
type EinoChatModel struct {
	id    string
	model chatGenerator
}

func NewEinoChatModel(id string, m chatGenerator) *EinoChatModel {
	return &EinoChatModel{id: id, model: m}
}

// NewEinoOpenAI builds the eino-ext OpenAI chat model from the same
// settings as the plain HTTP client.
func NewEinoOpenAI(ctx context.Context, cfg OpenAIConfig) (*EinoChatModel, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	mc := &openai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: normalizeBaseURL(cfg.BaseURL),
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	}
	if cfg.MaxTokens > 0 {
		maxTokens := cfg.MaxTokens
		mc.MaxTokens = &maxTokens
	}
	cm, err := openai.NewChatModel(ctx, mc)
	if err != nil {
		return nil, fmt.Errorf("eino chat model: %w", err)
	}
	id := cfg.ID
	if id == "" {
		id = "eino:" + cfg.Model
	}
	return NewEinoChatModel(id, cm), nil
}

func (e *EinoChatModel) ID() string { return e.id }

func (e *EinoChatModel) Generate(ctx context.Context, p Prompt) (string, error) {
	msgs := make([]*schema.Message, 0, 2)
	if p.System != "" {
		msgs = append(msgs, schema.SystemMessage(p.System))
	}
	msgs = append(msgs, schema.UserMessage(p.User))
	var opts []model.Option
	if p.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(p.MaxTokens))
	}
	out, err := e.model.Generate(ctx, msgs, opts...)
	if err != nil {
		return "", fmt.Errorf("%s generate: %w", e.id, err)
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(out.Content), nil
}
