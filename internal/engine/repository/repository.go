package repository

import (
	"context"

	"apexpulse/internal/engine/dto"
)

// AIRepository sends a prompt to one language model provider and returns the raw reply text.
// The API key is passed per call because each tenant brings its own credentials.
type AIRepository interface {
	Name() string
	Complete(ctx context.Context, apiKey string, prompt dto.ChatPrompt) (string, error)
}
