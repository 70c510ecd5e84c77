package signal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"apexpulse/internal/engine/dto"
	"apexpulse/pkg/common"
)

const defaultConfidence = 70

// ErrNotArray is returned when the model reply is valid JSON but not an array.
var ErrNotArray = errors.New("signal reply is not a JSON array")

// flexFloat accepts a JSON number or a numeric string.
type flexFloat struct {
	value *float64
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	var n float64
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		s = strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$")), "%")
		v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
		if err != nil {
			return nil
		}
		n = v
	} else if err := json.Unmarshal(b, &n); err != nil {
		return nil
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return nil
	}
	f.value = &n
	return nil
}

type rawIdea struct {
	Symbol     string    `json:"symbol"`
	Ticker     string    `json:"ticker"`
	Thesis     string    `json:"thesis"`
	Reason     string    `json:"reason"`
	Confidence flexFloat `json:"confidence"`
	EntryPrice flexFloat `json:"entryPrice"`
	StopLoss   flexFloat `json:"stopLoss"`
	TakeProfit flexFloat `json:"takeProfit"`
}

// StripCodeFence removes a surrounding markdown code fence such as ```json ... ```.
func StripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(strings.TrimPrefix(s, "json"), "JSON")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseIdeas decodes a model reply into at most maxIdeas ideas. Items without a symbol are
// dropped. Optional numeric fields the model left out stay nil.
func ParseIdeas(raw, source string, maxIdeas int) ([]dto.SignalIdea, error) {
	body := StripCodeFence(raw)
	if body == "" {
		return nil, errors.New("empty signal reply")
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(body), &items); err != nil {
		var probe interface{}
		if json.Unmarshal([]byte(body), &probe) == nil {
			return nil, ErrNotArray
		}
		return nil, fmt.Errorf("failed to parse signal reply: %w", err)
	}

	ideas := make([]dto.SignalIdea, 0, len(items))
	for _, item := range items {
		var r rawIdea
		if err := json.Unmarshal(item, &r); err != nil {
			continue
		}

		symbol := r.Symbol
		if symbol == "" {
			symbol = r.Ticker
		}
		symbol = normalizeIdeaSymbol(symbol)
		if symbol == "" {
			continue
		}

		thesis := r.Thesis
		if thesis == "" {
			thesis = r.Reason
		}

		confidence := float64(defaultConfidence)
		if r.Confidence.value != nil {
			confidence = math.Max(0, math.Min(100, *r.Confidence.value))
		}

		ideas = append(ideas, dto.SignalIdea{
			Symbol:     symbol,
			Thesis:     strings.TrimSpace(thesis),
			Confidence: confidence,
			EntryPrice: r.EntryPrice.value,
			StopLoss:   r.StopLoss.value,
			TakeProfit: r.TakeProfit.value,
			Source:     source,
			Raw:        item,
		})
		if maxIdeas > 0 && len(ideas) == maxIdeas {
			break
		}
	}

	return ideas, nil
}

// normalizeIdeaSymbol accepts "SOL", "sol" or "SOL/USDT" and returns "SOL".
func normalizeIdeaSymbol(s string) string {
	s = common.NormalizeSymbol(s)
	if i := strings.IndexAny(s, "/-"); i > 0 {
		s = s[:i]
	}
	return s
}
