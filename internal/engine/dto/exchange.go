package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeCredentials are the per-tenant exchange API keys.
type ExchangeCredentials struct {
	APIKey    string
	APISecret string
}

// Configured reports whether both key and secret are present.
func (c ExchangeCredentials) Configured() bool {
	return c.APIKey != "" && c.APISecret != ""
}

// Balance is a nonzero exchange balance.
type Balance struct {
	Asset  string          `json:"asset"`
	Free   decimal.Decimal `json:"free"`
	Locked decimal.Decimal `json:"locked"`
}

// Amount is free plus locked.
func (b Balance) Amount() decimal.Decimal {
	return b.Free.Add(b.Locked)
}

// AccountResponse is the signed account endpoint payload.
type AccountResponse struct {
	Balances []struct {
		Asset  string `json:"asset"`
		Free   string `json:"free"`
		Locked string `json:"locked"`
	} `json:"balances"`
}

// MyTrade is one fill of the signed trade history endpoint.
type MyTrade struct {
	ID              int64  `json:"id"`
	Symbol          string `json:"symbol"`
	OrderID         int64  `json:"orderId"`
	Price           string `json:"price"`
	Qty             string `json:"qty"`
	Commission      string `json:"commission"`
	CommissionAsset string `json:"commissionAsset"`
	Time            int64  `json:"time"`
	IsBuyer         bool   `json:"isBuyer"`
}

// FetchTradesParam selects the fills to fetch. LastExternalIDs holds, per symbol, the
// external id of the newest fill already imported; fetching resumes after it.
type FetchTradesParam struct {
	Symbols         []string
	LastExternalIDs map[string]string
}

// Trade is a normalized exchange fill.
type Trade struct {
	ExternalID      string          `json:"external_id"`
	Symbol          string          `json:"symbol"`
	Pair            string          `json:"pair"`
	Quantity        decimal.Decimal `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	Commission      decimal.Decimal `json:"commission"`
	CommissionAsset string          `json:"commission_asset"`
	IsBuyer         bool            `json:"is_buyer"`
	ExecutedAt      time.Time       `json:"executed_at"`
}
