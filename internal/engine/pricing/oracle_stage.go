package pricing

import (
	"context"
	"sort"

	"apexpulse/internal/engine/dto"
	"apexpulse/pkg/logger"
)

// OracleStage prices symbols present in a static symbol to oracle id table with one bulk query.
type OracleStage struct {
	source OracleSource
	ids    map[string]string
	log    *logger.Logger
}

func NewOracleStage(source OracleSource, ids map[string]string, log *logger.Logger) *OracleStage {
	return &OracleStage{source: source, ids: ids, log: log}
}

func (s *OracleStage) Tier() dto.PriceTier {
	return dto.TierOracle
}

func (s *OracleStage) Resolve(ctx context.Context, symbols []string) map[string]dto.PriceQuote {
	idToSymbols := make(map[string][]string)
	for _, sym := range symbols {
		if id, ok := s.ids[sym]; ok && id != "" {
			idToSymbols[id] = append(idToSymbols[id], sym)
		}
	}
	if len(idToSymbols) == 0 {
		return map[string]dto.PriceQuote{}
	}

	ids := make([]string, 0, len(idToSymbols))
	for id := range idToSymbols {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	prices, err := s.source.GetUSDPrices(ctx, ids)
	if err != nil {
		s.log.DebugContext(ctx, "Price oracle request failed", logger.IntField("ids", len(ids)), logger.ErrorField(err))
		return map[string]dto.PriceQuote{}
	}

	quotes := make(map[string]dto.PriceQuote, len(prices))
	for id, p := range prices {
		if !validPrice(p.USD) {
			continue
		}
		for _, sym := range idToSymbols[id] {
			quotes[sym] = dto.PriceQuote{
				Symbol:    sym,
				Price:     p.USD,
				Change24h: p.Change24h,
				Volume:    p.Volume24h,
			}
		}
	}
	return quotes
}
