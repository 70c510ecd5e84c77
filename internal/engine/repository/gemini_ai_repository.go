package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"apexpulse/internal/engine/config"
	"apexpulse/internal/engine/dto"
	"apexpulse/pkg/logger"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// geminiAIRepository is an AIRepository backed by the Google Gemini API.
type geminiAIRepository struct {
	cfg            config.Gemini
	logger         *logger.Logger
	requestLimiter *rate.Limiter
	timeout        time.Duration

	mu      sync.Mutex
	clients map[string]*genai.Client
}

// NewGeminiAIRepository creates a new instance of geminiAIRepository.
func NewGeminiAIRepository(cfg config.Gemini, timeout time.Duration, log *logger.Logger) AIRepository {
	rpm := cfg.MaxRequestPerMinute
	if rpm <= 0 {
		rpm = 15
	}
	secondsPerRequest := time.Minute / time.Duration(rpm)

	return &geminiAIRepository{
		cfg:            cfg,
		logger:         log,
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
		timeout:        timeout,
		clients:        make(map[string]*genai.Client),
	}
}

func (r *geminiAIRepository) Name() string {
	return "gemini"
}

func (r *geminiAIRepository) Complete(ctx context.Context, apiKey string, prompt dto.ChatPrompt) (string, error) {
	client, err := r.client(ctx, apiKey)
	if err != nil {
		return "", err
	}

	if err := r.requestLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("failed to wait for request limit: %w", err)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	r.logger.DebugContext(ctx, "Sending request to Gemini API", logger.StringField("model", r.cfg.Model))

	resp, err := client.Models.GenerateContent(ctx, r.cfg.Model, genai.Text(prompt.User), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompt.System, genai.RoleUser),
		Temperature:       genai.Ptr(r.cfg.Temperature),
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate content with Gemini: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("no content found in Gemini response")
	}
	return text, nil
}

func (r *geminiAIRepository) client(ctx context.Context, apiKey string) (*genai.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[apiKey]; ok {
		return c, nil
	}

	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	r.clients[apiKey] = c
	return c, nil
}
