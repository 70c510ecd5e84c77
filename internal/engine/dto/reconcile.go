package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	SkipReasonPriceUnavailable = "price unavailable"
	SkipReasonPersistFailed    = "persist failed"
)

// AcceptedBalance is a balance that became or updated a holding.
type AcceptedBalance struct {
	Asset     string          `json:"asset"`
	Amount    decimal.Decimal `json:"amount"`
	PriceUSD  float64         `json:"price_usd"`
	ValueUSD  float64         `json:"value_usd"`
	HoldingID uuid.UUID       `json:"holding_id"`
	Created   bool            `json:"created"`
}

// SkippedBalance is a balance left out of the holdings, with the reason.
type SkippedBalance struct {
	Asset    string          `json:"asset"`
	Amount   decimal.Decimal `json:"amount"`
	ValueUSD *float64        `json:"value_usd,omitempty"`
	Reason   string          `json:"reason"`
}

// HoldingsSyncResult is the outcome of reconciling balances into holdings.
type HoldingsSyncResult struct {
	Accepted     []AcceptedBalance     `json:"accepted"`
	Skipped      []SkippedBalance      `json:"skipped"`
	SyncedCount  int                   `json:"synced"`
	SkippedCount int                   `json:"skipped_count"`
	Prices       map[string]PriceQuote `json:"-"`
}

// TradesSyncResult is the outcome of importing exchange fills. Total is the owner's
// transaction count after the import; Fetched is the number of fills the exchange returned.
type TradesSyncResult struct {
	Created int `json:"created"`
	Total   int `json:"total"`
	Fetched int `json:"fetched"`
	Ignored int `json:"ignored"`
	Failed  int `json:"failed"`
}
