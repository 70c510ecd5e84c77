package dto

import (
	"encoding/json"
	"time"
)

// ProviderKeys maps an AI provider name to the API key to use for it.
type ProviderKeys map[string]string

// ChatPrompt is a system plus user prompt pair.
type ChatPrompt struct {
	System string
	User   string
}

// SignalIdea is one parsed AI trade idea. Optional numbers stay nil when the model omits them.
type SignalIdea struct {
	Symbol     string          `json:"symbol"`
	Thesis     string          `json:"thesis"`
	Confidence float64         `json:"confidence"`
	EntryPrice *float64        `json:"entry_price,omitempty"`
	StopLoss   *float64        `json:"stop_loss,omitempty"`
	TakeProfit *float64        `json:"take_profit,omitempty"`
	Source     string          `json:"source"`
	Raw        json.RawMessage `json:"-"`
}

// Headline is a market news item included in the prompt.
type Headline struct {
	Title       string     `json:"title"`
	Summary     string     `json:"summary"`
	Link        string     `json:"link"`
	Source      string     `json:"source"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// ChatMessage is an OpenAI-compatible chat message.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest is an OpenAI-compatible chat completion request.
type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}
