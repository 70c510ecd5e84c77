package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"apexpulse/internal/engine/config"
	"apexpulse/internal/engine/dto"
	"apexpulse/pkg/logger"

	"github.com/PaesslerAG/jsonpath"
	"golang.org/x/time/rate"
)

const defaultResponsePath = "$.choices[0].message.content"

// chatCompletionRepository talks to any OpenAI-compatible chat completion endpoint
// (xAI Grok, OpenAI, DeepSeek).
type chatCompletionRepository struct {
	name           string
	client         *http.Client
	cfg            config.ChatProvider
	logger         *logger.Logger
	requestLimiter *rate.Limiter
}

func NewChatCompletionRepository(name string, cfg config.ChatProvider, timeout time.Duration, log *logger.Logger) AIRepository {
	rpm := cfg.MaxRequestPerMinute
	if rpm <= 0 {
		rpm = 30
	}
	if cfg.ResponsePath == "" {
		cfg.ResponsePath = defaultResponsePath
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	secondsPerRequest := time.Minute / time.Duration(rpm)

	return &chatCompletionRepository{
		name: name,
		client: &http.Client{
			Timeout: timeout,
		},
		cfg:            cfg,
		logger:         log,
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
	}
}

func (r *chatCompletionRepository) Name() string {
	return r.name
}

func (r *chatCompletionRepository) Complete(ctx context.Context, apiKey string, prompt dto.ChatPrompt) (string, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("failed to wait for request limit: %w", err)
	}

	payload := dto.ChatCompletionRequest{
		Model: r.cfg.Model,
		Messages: []dto.ChatMessage{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.User},
		},
		Temperature: r.cfg.Temperature,
	}

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.BaseURL, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return "", fmt.Errorf("failed to create new http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", apiKey))

	r.logger.DebugContext(ctx, "Sending chat completion request", logger.StringField("provider", r.name), logger.StringField("model", r.cfg.Model))

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request to %s: %w", r.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		r.logger.ErrorContext(ctx, "Received non-OK response from chat completion API",
			logger.StringField("provider", r.name),
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("model", r.cfg.Model),
		)
		return "", fmt.Errorf("received non-OK response from %s: %d - %s", r.name, resp.StatusCode, string(body))
	}

	var decoded interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}

	content, err := jsonpath.Get(r.cfg.ResponsePath, decoded)
	if err != nil {
		return "", fmt.Errorf("no content at %s in %s response: %w", r.cfg.ResponsePath, r.name, err)
	}

	text, ok := content.(string)
	if !ok || text == "" {
		return "", fmt.Errorf("empty content in %s response", r.name)
	}

	return text, nil
}
