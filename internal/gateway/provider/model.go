package provider

import (
	"context"
	"errors"
	"fmt"
)

// Prompt is one system+user exchange. Purpose tags the pipeline stage in
// logs and metrics.
type Prompt struct {
	Purpose   string
	System    string
	User      string
	MaxTokens int
}

// TextGenerator is the black-box text generation service. Callers in the
// decision path must reach it through Resilient.
type TextGenerator interface {
	ID() string
	Generate(ctx context.Context, p Prompt) (string, error)
}

var ErrEmptyResponse = errors.New("provider returned empty content")

// StatusError is a non-2xx reply from an HTTP provider.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status=%d: %s", e.Code, e.Message)
}

// Retryable reports rate limiting and server-side failures.
func (e *StatusError) Retryable() bool {
	return e.Code == 429 || e.Code >= 500
}
