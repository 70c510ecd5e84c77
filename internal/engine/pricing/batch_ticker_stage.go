package pricing

import (
	"context"
	"strconv"

	"apexpulse/internal/engine/dto"
	"apexpulse/pkg/logger"
	"apexpulse/pkg/utils"
)

// BatchTickerStage prices symbols from the 24h ticker in batches. A failed batch prices nothing;
// one unknown pair fails its whole batch on the exchange side.
type BatchTickerStage struct {
	source     TickerSource
	quoteAsset string
	batchSize  int
	log        *logger.Logger
}

func NewBatchTickerStage(source TickerSource, quoteAsset string, batchSize int, log *logger.Logger) *BatchTickerStage {
	if batchSize <= 0 || batchSize > 50 {
		batchSize = 50
	}
	return &BatchTickerStage{source: source, quoteAsset: quoteAsset, batchSize: batchSize, log: log}
}

func (s *BatchTickerStage) Tier() dto.PriceTier {
	return dto.TierBatchTicker
}

func (s *BatchTickerStage) Resolve(ctx context.Context, symbols []string) map[string]dto.PriceQuote {
	pairToSymbol := make(map[string]string, len(symbols))
	pairs := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		pair := sym + s.quoteAsset
		pairToSymbol[pair] = sym
		pairs = append(pairs, pair)
	}

	batches := utils.ChunkStrings(pairs, s.batchSize)
	collector := newQuoteCollector()

	fanOut(len(batches), len(batches), func(i int) {
		batch := batches[i]
		tickers, err := s.source.Get24hrTickers(ctx, batch)
		if err != nil {
			s.log.DebugContext(ctx, "Batch ticker request failed", logger.IntField("batch_size", len(batch)), logger.ErrorField(err))
			return
		}
		for _, t := range tickers {
			sym, ok := pairToSymbol[t.Symbol]
			if !ok {
				continue
			}
			price, err := strconv.ParseFloat(t.LastPrice, 64)
			if err != nil || !validPrice(price) {
				continue
			}
			collector.add(dto.PriceQuote{
				Symbol:    sym,
				Price:     price,
				Change24h: parseFloatOrZero(t.PriceChangePercent),
				Volume:    parseFloatOrZero(t.Volume),
				High:      parseFloatOrZero(t.HighPrice),
				Low:       parseFloatOrZero(t.LowPrice),
			})
		}
	})

	return collector.quotes
}

func parseFloatOrZero(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
