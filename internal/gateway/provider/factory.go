package provider

import (
	"context"
	"fmt"
	"strings"
)

const (
	KindOpenAI = "openai"
	KindEino   = "eino"
)

// Build creates the configured generator. kind selects the plain HTTP
// client or the eino chat model.
func Build(ctx context.Context, kind string, cfg OpenAIConfig) (TextGenerator, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindOpenAI:
		return NewOpenAIChatClient(cfg), nil
	case KindEino:
		return NewEinoOpenAI(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", kind)
	}
}
