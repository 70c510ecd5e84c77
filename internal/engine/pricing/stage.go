package pricing

import (
	"context"
	"math"
	"sync"

	"apexpulse/internal/engine/dto"
	"apexpulse/pkg/utils"
)

// Stage is one tier of the price resolution order. It receives only symbols that earlier
// stages left unresolved and returns whatever it could price. Failures yield no entry.
type Stage interface {
	Tier() dto.PriceTier
	Resolve(ctx context.Context, symbols []string) map[string]dto.PriceQuote
}

// TickerSource is the exchange market data used by the exchange-backed stages.
type TickerSource interface {
	Get24hrTickers(ctx context.Context, pairs []string) ([]dto.Ticker24hr, error)
	GetTickerPrice(ctx context.Context, pair string) (float64, error)
	GetAvgPrice(ctx context.Context, pair string) (float64, error)
}

// OracleSource is a bulk price-by-id lookup.
type OracleSource interface {
	GetUSDPrices(ctx context.Context, ids []string) (map[string]dto.OraclePrice, error)
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0) && !math.IsNaN(p)
}

// fanOut calls fn for every index in [0, n) with at most limit calls in flight and waits for
// all of them. There is no fail-fast.
func fanOut(n, limit int, fn func(i int)) {
	if n == 0 {
		return
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	var (
		wg  sync.WaitGroup
		sem = make(chan struct{}, limit)
	)
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		sem <- struct{}{}
		utils.GoSafe(func() {
			defer wg.Done()
			defer func() { <-sem }()
			fn(i)
		})
	}
	wg.Wait()
}

// quoteCollector gathers stage results from concurrent calls.
type quoteCollector struct {
	mu     sync.Mutex
	quotes map[string]dto.PriceQuote
}

func newQuoteCollector() *quoteCollector {
	return &quoteCollector{quotes: make(map[string]dto.PriceQuote)}
}

func (c *quoteCollector) add(q dto.PriceQuote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.quotes[q.Symbol]; !ok {
		c.quotes[q.Symbol] = q
	}
}
