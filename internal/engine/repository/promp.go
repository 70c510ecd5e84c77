package repository

import (
	"encoding/json"
	"fmt"
	"strings"

	"apexpulse/internal/engine/dto"
)

const swingTraderSystemPrompt = "You are ApexPulse, an institutional swing trader. Respond in JSON."

type promptMarket struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Change24h float64 `json:"change24h"`
	Volume    float64 `json:"volume"`
}

// BuildSwingSignalPrompt asks for maxIdeas swing ideas over the first snapshotLimit markets.
func BuildSwingSignalPrompt(snapshot []dto.PriceQuote, headlines []dto.Headline, maxIdeas, snapshotLimit int) dto.ChatPrompt {
	if snapshotLimit > 0 && len(snapshot) > snapshotLimit {
		snapshot = snapshot[:snapshotLimit]
	}

	markets := make([]promptMarket, 0, len(snapshot))
	for _, q := range snapshot {
		markets = append(markets, promptMarket{Symbol: q.Symbol, Price: q.Price, Change24h: q.Change24h, Volume: q.Volume})
	}
	marketsJSON, _ := json.Marshal(markets)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Generate %d concise swing trade ideas for the next 24-72h.\n", maxIdeas))
	sb.WriteString("Return ONLY a JSON array, no prose and no markdown. Each item must have the keys:\n")
	sb.WriteString(`symbol (string), thesis (string), confidence (0-100), entryPrice (USD), stopLoss (USD price level), takeProfit (USD price level).`)
	sb.WriteString("\n\nMarket snapshot:\n")
	sb.Write(marketsJSON)

	if len(headlines) > 0 {
		sb.WriteString("\n\nRecent headlines:\n")
		for i, h := range headlines {
			sb.WriteString(fmt.Sprintf("%d. %s", i+1, h.Title))
			if h.Summary != "" {
				sb.WriteString(" - " + h.Summary)
			}
			sb.WriteString("\n")
		}
	}

	return dto.ChatPrompt{
		System: swingTraderSystemPrompt,
		User:   sb.String(),
	}
}
