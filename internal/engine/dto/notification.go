package dto

import "github.com/shopspring/decimal"

const (
	EmailOutcomeSent    = "sent"
	EmailOutcomeFailed  = "failed"
	EmailOutcomeSkipped = "skipped"
)

// PortfolioLine is one holding valued at the run's prices. PriceUSD is zero when unpriced.
type PortfolioLine struct {
	Asset    string          `json:"asset"`
	Amount   decimal.Decimal `json:"amount"`
	PriceUSD float64         `json:"price_usd"`
	ValueUSD float64         `json:"value_usd"`
}
