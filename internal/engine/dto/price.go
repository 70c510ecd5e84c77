package dto

// PriceTier names the resolution stage that produced a quote.
type PriceTier string

const (
	TierBatchTicker PriceTier = "batch_ticker"
	TierQuoteProbe  PriceTier = "quote_probe"
	TierOracle      PriceTier = "oracle"
	TierAvgPrice    PriceTier = "avg_price"
	TierStable      PriceTier = "stable"
	TierLive        PriceTier = "live"
)

// PriceQuote is a USD price for one asset.
type PriceQuote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Change24h float64   `json:"change_24h"`
	Volume    float64   `json:"volume"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Tier      PriceTier `json:"tier"`
}

// Ticker24hr is an entry of the exchange 24h rolling ticker.
type Ticker24hr struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
	Volume             string `json:"volume"`
	HighPrice          string `json:"highPrice"`
	LowPrice           string `json:"lowPrice"`
}

// TickerPrice is the exchange latest price for one pair.
type TickerPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// AvgPrice is the exchange volume-weighted average price.
type AvgPrice struct {
	Mins  int    `json:"mins"`
	Price string `json:"price"`
}

// MiniTicker is one element of the all-market mini ticker stream.
type MiniTicker struct {
	EventType   string `json:"e"`
	EventTime   int64  `json:"E"`
	Symbol      string `json:"s"`
	Close       string `json:"c"`
	Open        string `json:"o"`
	High        string `json:"h"`
	Low         string `json:"l"`
	Volume      string `json:"v"`
	QuoteVolume string `json:"q"`
}

// OraclePrice is one entry of the oracle simple price response.
type OraclePrice struct {
	USD       float64 `json:"usd"`
	Change24h float64 `json:"usd_24h_change"`
	Volume24h float64 `json:"usd_24h_vol"`
}
