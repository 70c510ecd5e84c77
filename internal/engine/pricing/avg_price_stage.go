package pricing

import (
	"context"

	"apexpulse/internal/engine/dto"
	"apexpulse/pkg/logger"
)

// AvgPriceStage falls back to the exchange volume-weighted average price endpoint.
type AvgPriceStage struct {
	source        TickerSource
	quoteAsset    string
	maxConcurrent int
	log           *logger.Logger
}

func NewAvgPriceStage(source TickerSource, quoteAsset string, maxConcurrent int, log *logger.Logger) *AvgPriceStage {
	return &AvgPriceStage{source: source, quoteAsset: quoteAsset, maxConcurrent: maxConcurrent, log: log}
}

func (s *AvgPriceStage) Tier() dto.PriceTier {
	return dto.TierAvgPrice
}

func (s *AvgPriceStage) Resolve(ctx context.Context, symbols []string) map[string]dto.PriceQuote {
	collector := newQuoteCollector()

	fanOut(len(symbols), s.maxConcurrent, func(i int) {
		sym := symbols[i]
		price, err := s.source.GetAvgPrice(ctx, sym+s.quoteAsset)
		if err != nil {
			s.log.DebugContext(ctx, "Average price request failed", logger.StringField("symbol", sym), logger.ErrorField(err))
			return
		}
		if !validPrice(price) {
			return
		}
		collector.add(dto.PriceQuote{Symbol: sym, Price: price})
	})

	return collector.quotes
}
