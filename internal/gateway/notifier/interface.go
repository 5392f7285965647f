package notifier

import (
	"context"

	"sentinel/internal/logger"
)

// TextNotifier is the minimal push channel components depend on instead
// of a concrete transport.
type TextNotifier interface {
	SendText(ctx context.Context, text string) error
}

// Nop drops every message. Used when no channel is configured.
type Nop struct{}

func (Nop) SendText(context.Context, string) error { return nil }

// LogNotifier writes messages to the application log.
type LogNotifier struct{}

func (LogNotifier) SendText(_ context.Context, text string) error {
	logger.Infof("notify: %s", text)
	return nil
}
