package pricing

import (
	"context"

	"apexpulse/internal/engine/config"
	"apexpulse/internal/engine/dto"
	"apexpulse/pkg/common"
	"apexpulse/pkg/logger"
	"apexpulse/pkg/metrics"
)

// Resolver runs the stages in order, handing each one only the symbols still unresolved,
// and finally forces stablecoins to exactly 1 USD.
type Resolver struct {
	stages  []Stage
	log     *logger.Logger
	metrics *metrics.Recorder
}

func NewResolver(log *logger.Logger, recorder *metrics.Recorder, stages ...Stage) *Resolver {
	return &Resolver{stages: stages, log: log, metrics: recorder}
}

// NewExchangeResolver wires the standard order: batch ticker, multi-quote probe, oracle,
// average price.
func NewExchangeResolver(cfg *config.Config, exchange TickerSource, oracle OracleSource, log *logger.Logger, recorder *metrics.Recorder) *Resolver {
	quote := cfg.Exchange.QuoteAsset
	if quote == "" {
		quote = common.DefaultQuoteAsset
	}
	probeQuotes := append([]string{quote}, common.NormalizeSymbols(cfg.Exchange.QuoteAlternates)...)
	probeQuotes = common.NormalizeSymbols(probeQuotes)

	return NewResolver(log, recorder,
		NewBatchTickerStage(exchange, quote, cfg.Exchange.BatchSize, log),
		NewQuoteProbeStage(exchange, probeQuotes, cfg.Exchange.MaxConcurrentRequests, log),
		NewOracleStage(oracle, cfg.PriceOracle.OracleIDs(), log),
		NewAvgPriceStage(exchange, quote, cfg.Exchange.MaxConcurrentRequests, log),
	)
}

// Resolve returns a quote for every symbol that could be priced. Unresolvable symbols are absent.
func (r *Resolver) Resolve(ctx context.Context, symbols []string) map[string]dto.PriceQuote {
	normalized := common.NormalizeSymbols(symbols)
	result := make(map[string]dto.PriceQuote, len(normalized))
	if len(normalized) == 0 {
		return result
	}

	remaining := make([]string, 0, len(normalized))
	for _, sym := range normalized {
		if !common.IsStableCoin(sym) {
			remaining = append(remaining, sym)
		}
	}

	for _, stage := range r.stages {
		if len(remaining) == 0 || ctx.Err() != nil {
			break
		}

		pending := make(map[string]struct{}, len(remaining))
		for _, sym := range remaining {
			pending[sym] = struct{}{}
		}

		resolved := 0
		for key, q := range stage.Resolve(ctx, remaining) {
			sym := common.NormalizeSymbol(key)
			if _, ok := pending[sym]; !ok || !validPrice(q.Price) {
				continue
			}
			q.Symbol = sym
			q.Tier = stage.Tier()
			result[sym] = q
			delete(pending, sym)
			resolved++
		}
		r.metrics.RecordPriceResolved(string(stage.Tier()), resolved)

		next := remaining[:0:0]
		for _, sym := range remaining {
			if _, ok := pending[sym]; ok {
				next = append(next, sym)
			}
		}
		remaining = next
	}

	for _, sym := range normalized {
		if common.IsStableCoin(sym) {
			result[sym] = dto.PriceQuote{Symbol: sym, Price: 1, Change24h: 0, Tier: dto.TierStable}
		}
	}

	if len(remaining) > 0 {
		r.metrics.RecordPriceUnresolved(len(remaining))
		r.log.DebugContext(ctx, "Symbols left unresolved", logger.Field("symbols", remaining))
	}

	return result
}

// Sorted returns the quotes in the order of symbols, skipping missing ones, plus the missing symbols.
func Sorted(symbols []string, quotes map[string]dto.PriceQuote) ([]dto.PriceQuote, []string) {
	ordered := make([]dto.PriceQuote, 0, len(quotes))
	missing := make([]string, 0)
	for _, sym := range common.NormalizeSymbols(symbols) {
		if q, ok := quotes[sym]; ok {
			ordered = append(ordered, q)
		} else {
			missing = append(missing, sym)
		}
	}
	return ordered, missing
}
