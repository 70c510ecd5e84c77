package signal

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"apexpulse/internal/engine/dto"
	"apexpulse/internal/engine/repository"
	"apexpulse/pkg/circuitbreaker"
	"apexpulse/pkg/logger"
	"apexpulse/pkg/metrics"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomeSkipped = "skipped"
	outcomeOpen    = "breaker_open"
)

// Options tunes the provider chain.
type Options struct {
	MaxIdeas         int
	SnapshotLimit    int
	BreakerThreshold int
	BreakerReset     time.Duration
}

// Generator produces a batch of ideas for one prompt.
type Generator interface {
	Name() string
	GenerateIdeas(ctx context.Context, prompt dto.ChatPrompt) ([]dto.SignalIdea, error)
}

// providerGenerator adapts an AIRepository bound to one API key.
type providerGenerator struct {
	repo     repository.AIRepository
	apiKey   string
	maxIdeas int
}

// NewGenerator binds an AI provider to a tenant API key.
func NewGenerator(repo repository.AIRepository, apiKey string, maxIdeas int) Generator {
	return &providerGenerator{repo: repo, apiKey: apiKey, maxIdeas: maxIdeas}
}

func (g *providerGenerator) Name() string {
	return g.repo.Name()
}

func (g *providerGenerator) GenerateIdeas(ctx context.Context, prompt dto.ChatPrompt) ([]dto.SignalIdea, error) {
	raw, err := g.repo.Complete(ctx, g.apiKey, prompt)
	if err != nil {
		return nil, err
	}
	return ParseIdeas(raw, g.repo.Name(), g.maxIdeas)
}

// Chain tries the providers in order and returns the ideas of the first one that succeeds.
type Chain struct {
	providers []repository.AIRepository
	opts      Options
	log       *logger.Logger
	metrics   *metrics.Recorder

	mu       sync.Mutex
	breakers map[string]*circuitbreaker.CircuitBreaker
}

func NewChain(providers []repository.AIRepository, opts Options, log *logger.Logger, recorder *metrics.Recorder) *Chain {
	if opts.MaxIdeas <= 0 {
		opts.MaxIdeas = 5
	}
	if opts.SnapshotLimit <= 0 {
		opts.SnapshotLimit = 12
	}
	if opts.BreakerThreshold <= 0 {
		opts.BreakerThreshold = 3
	}
	if opts.BreakerReset <= 0 {
		opts.BreakerReset = 10 * time.Minute
	}
	return &Chain{
		providers: providers,
		opts:      opts,
		log:       log,
		metrics:   recorder,
		breakers:  make(map[string]*circuitbreaker.CircuitBreaker),
	}
}

// Generate never fails. Providers without a key are skipped, errors and unusable replies move on
// to the next provider, and an empty slice means every provider was exhausted. Every idea carries
// the name of the provider that produced it.
func (c *Chain) Generate(ctx context.Context, snapshot []dto.PriceQuote, headlines []dto.Headline, keys dto.ProviderKeys) []dto.SignalIdea {
	prompt := repository.BuildSwingSignalPrompt(snapshot, headlines, c.opts.MaxIdeas, c.opts.SnapshotLimit)

	for _, provider := range c.providers {
		if ctx.Err() != nil {
			break
		}
		name := provider.Name()
		apiKey := strings.TrimSpace(keys[name])
		if apiKey == "" {
			c.metrics.RecordProviderRequest(name, outcomeSkipped)
			continue
		}

		generator := NewGenerator(provider, apiKey, c.opts.MaxIdeas)
		var ideas []dto.SignalIdea
		err := c.breaker(name, apiKey).Execute(func() error {
			var err error
			ideas, err = generator.GenerateIdeas(ctx, prompt)
			return err
		})

		switch {
		case errors.Is(err, circuitbreaker.ErrOpen):
			c.metrics.RecordProviderRequest(name, outcomeOpen)
			c.log.WarnContext(ctx, "AI provider breaker open, trying next", logger.StringField("provider", name))
			continue
		case err != nil:
			c.metrics.RecordProviderRequest(name, outcomeFailure)
			c.log.WarnContext(ctx, "AI provider failed, trying next", logger.StringField("provider", name), logger.ErrorField(err))
			continue
		}

		c.metrics.RecordProviderRequest(name, outcomeSuccess)
		c.log.InfoContext(ctx, "AI provider returned ideas", logger.StringField("provider", name), logger.IntField("ideas", len(ideas)))
		return ideas
	}

	c.log.WarnContext(ctx, "All AI providers exhausted, no ideas generated")
	return []dto.SignalIdea{}
}

// breaker is keyed by provider and key so one tenant's bad key does not block the others.
func (c *Chain) breaker(provider, apiKey string) *circuitbreaker.CircuitBreaker {
	key := provider + "|" + apiKey
	c.mu.Lock()
	defer c.mu.Unlock()
	cb, ok := c.breakers[key]
	if !ok {
		cb = circuitbreaker.NewCircuitBreaker(c.opts.BreakerThreshold, c.opts.BreakerReset)
		c.breakers[key] = cb
	}
	return cb
}
