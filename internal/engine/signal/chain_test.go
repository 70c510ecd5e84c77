package signal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"apexpulse/internal/engine/dto"
	"apexpulse/internal/engine/repository"
	"apexpulse/pkg/logger"
	"apexpulse/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name  string
	reply string
	err   error

	mu    sync.Mutex
	calls int
	keys  []string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Complete(_ context.Context, apiKey string, prompt dto.ChatPrompt) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.keys = append(f.keys, apiKey)
	if prompt.System == "" || prompt.User == "" {
		return "", errors.New("empty prompt")
	}
	return f.reply, f.err
}

func newTestChain(providers ...*fakeProvider) *Chain {
	repos := make([]repository.AIRepository, 0, len(providers))
	for _, p := range providers {
		repos = append(repos, p)
	}
	return NewChain(repos, Options{MaxIdeas: 5, BreakerThreshold: 2, BreakerReset: time.Hour}, logger.NewNop(), metrics.New(prometheus.NewRegistry()))
}

var snapshot = []dto.PriceQuote{{Symbol: "BTC", Price: 97000, Change24h: 1.2}, {Symbol: "SOL", Price: 140}}

func TestChain_MalformedPrimaryFallsBack(t *testing.T) {
	grok := &fakeProvider{name: "grok", reply: "I think SOL looks great today!"}
	openai := &fakeProvider{name: "openai", reply: `[{"symbol":"SOL","thesis":"Higher low","confidence":75,"entryPrice":140,"stopLoss":131,"takeProfit":165}]`}
	chain := newTestChain(grok, openai)

	ideas := chain.Generate(context.Background(), snapshot, nil, dto.ProviderKeys{"grok": "g-key", "openai": "o-key"})

	require.Len(t, ideas, 1)
	assert.Equal(t, "openai", ideas[0].Source)
	assert.Equal(t, "SOL", ideas[0].Symbol)
	assert.Equal(t, 1, grok.calls)
	assert.Equal(t, []string{"o-key"}, openai.keys)
}

func TestChain_FirstSuccessStops(t *testing.T) {
	grok := &fakeProvider{name: "grok", reply: `[{"symbol":"BTC"}]`}
	openai := &fakeProvider{name: "openai", reply: `[{"symbol":"ETH"}]`}
	chain := newTestChain(grok, openai)

	ideas := chain.Generate(context.Background(), snapshot, nil, dto.ProviderKeys{"grok": "g", "openai": "o"})

	require.Len(t, ideas, 1)
	assert.Equal(t, "grok", ideas[0].Source)
	assert.Equal(t, 0, openai.calls)
}

func TestChain_AllFailReturnsEmpty(t *testing.T) {
	grok := &fakeProvider{name: "grok", err: errors.New("429 too many requests")}
	openai := &fakeProvider{name: "openai", reply: `{"not":"an array"}`}
	chain := newTestChain(grok, openai)

	ideas := chain.Generate(context.Background(), snapshot, nil, dto.ProviderKeys{"grok": "g", "openai": "o"})

	assert.NotNil(t, ideas)
	assert.Empty(t, ideas)
}

func TestChain_NoCredentialsNoCalls(t *testing.T) {
	grok := &fakeProvider{name: "grok", reply: `[{"symbol":"BTC"}]`}
	gemini := &fakeProvider{name: "gemini", reply: `[{"symbol":"BTC"}]`}
	chain := newTestChain(grok, gemini)

	ideas := chain.Generate(context.Background(), snapshot, nil, dto.ProviderKeys{"grok": "  "})

	assert.Empty(t, ideas)
	assert.Equal(t, 0, grok.calls)
	assert.Equal(t, 0, gemini.calls)
}

func TestChain_BreakerOpensPerKey(t *testing.T) {
	grok := &fakeProvider{name: "grok", err: errors.New("unauthorized")}
	chain := newTestChain(grok)
	keys := dto.ProviderKeys{"grok": "bad"}

	for i := 0; i < 4; i++ {
		chain.Generate(context.Background(), snapshot, nil, keys)
	}
	assert.Equal(t, 2, grok.calls)

	chain.Generate(context.Background(), snapshot, nil, dto.ProviderKeys{"grok": "other"})
	assert.Equal(t, 3, grok.calls)
}
