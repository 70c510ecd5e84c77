package dto

import "time"

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SyncHoldingsRequest optionally overrides the minimum USD value.
type SyncHoldingsRequest struct {
	MinValueUSD *float64 `json:"min_value_usd" validate:"omitempty,gte=0"`
}

// SyncHoldingsResponse is returned by the holdings sync endpoint.
type SyncHoldingsResponse struct {
	Holdings       []AcceptedBalance `json:"holdings"`
	Synced         int               `json:"synced"`
	Skipped        int               `json:"skipped"`
	SkippedDetails []SkippedBalance  `json:"skipped_details"`
}

// SyncTradesResponse is returned by the trades sync endpoint. Total is the tenant's
// transaction count after the import.
type SyncTradesResponse struct {
	Created int `json:"created"`
	Total   int `json:"total"`
	Fetched int `json:"fetched"`
	Ignored int `json:"ignored"`
	Failed  int `json:"failed"`
}

// PricesRequest lists symbols to price; when empty the tenant's symbols are used.
type PricesRequest struct {
	Symbols []string `query:"symbols" validate:"omitempty,max=50,dive,required,alphanum,max=20"`
}

// PricesResponse is returned by the prices endpoint.
type PricesResponse struct {
	Markets []PriceQuote `json:"markets"`
	Missing []string     `json:"missing"`
}

// LivePricesResponse is returned by the live prices endpoint.
type LivePricesResponse struct {
	Markets   []PriceQuote `json:"markets"`
	UpdatedAt *time.Time   `json:"updated_at,omitempty"`
}

// OwnerQuery selects the tenant of a bearer-token request.
type OwnerQuery struct {
	OwnerID string `query:"owner_id" validate:"omitempty,uuid"`
}

// SyncJobResponse is one job record.
type SyncJobResponse struct {
	JobType     string    `json:"job_type"`
	Status      string    `json:"status"`
	LastRun     time.Time `json:"last_run"`
	LastMessage string    `json:"last_message"`
}

// SwingSignalResponse is one stored trade idea.
type SwingSignalResponse struct {
	Symbol     string    `json:"symbol"`
	Thesis     string    `json:"thesis"`
	Confidence float64   `json:"confidence"`
	EntryPrice *float64  `json:"entry_price,omitempty"`
	StopLoss   *float64  `json:"stop_loss,omitempty"`
	TakeProfit *float64  `json:"take_profit,omitempty"`
	Source     string    `json:"source"`
	CreatedAt  time.Time `json:"created_at"`
}
