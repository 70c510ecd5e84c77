package pricing

import (
	"context"

	"apexpulse/internal/engine/dto"
	"apexpulse/pkg/logger"
)

// QuoteProbeStage asks for the latest price of each symbol against an ordered list of quote
// currencies. The first quote that returns a valid price wins.
type QuoteProbeStage struct {
	source        TickerSource
	quotes        []string
	maxConcurrent int
	log           *logger.Logger
}

func NewQuoteProbeStage(source TickerSource, quotes []string, maxConcurrent int, log *logger.Logger) *QuoteProbeStage {
	return &QuoteProbeStage{source: source, quotes: quotes, maxConcurrent: maxConcurrent, log: log}
}

func (s *QuoteProbeStage) Tier() dto.PriceTier {
	return dto.TierQuoteProbe
}

func (s *QuoteProbeStage) Resolve(ctx context.Context, symbols []string) map[string]dto.PriceQuote {
	collector := newQuoteCollector()

	fanOut(len(symbols), s.maxConcurrent, func(i int) {
		sym := symbols[i]
		for _, quote := range s.quotes {
			if quote == sym {
				continue
			}
			price, err := s.source.GetTickerPrice(ctx, sym+quote)
			if err != nil {
				s.log.DebugContext(ctx, "Ticker price probe failed", logger.StringField("pair", sym+quote), logger.ErrorField(err))
				continue
			}
			if !validPrice(price) {
				continue
			}
			collector.add(dto.PriceQuote{Symbol: sym, Price: price})
			return
		}
	})

	return collector.quotes
}
