package config

import (
	"fmt"
	"strings"
	"time"

	"apexpulse/pkg/config"
)

// Engine holds the batch pipeline settings.
type Engine struct {
	MinValueUSD          float64       `mapstructure:"min_value_usd" default:"5"`
	Universe             []string      `mapstructure:"universe" default:"[\"BTC\",\"ETH\",\"SOL\",\"AVAX\",\"LINK\",\"OP\",\"TIA\"]"`
	MaxConcurrentTenants int           `mapstructure:"max_concurrent_tenants" default:"2"`
	RunTimeout           time.Duration `mapstructure:"run_timeout" default:"30m"`
	TenantTimeout        time.Duration `mapstructure:"tenant_timeout" default:"5m"`
	LockTTL              time.Duration `mapstructure:"lock_ttl" default:"45m"`
	SnapshotTTL          time.Duration `mapstructure:"snapshot_ttl" default:"26h"`
}

// Scheduler holds the daily timer settings.
type Scheduler struct {
	Enabled      bool `mapstructure:"enabled" default:"true"`
	DailyHourUTC int  `mapstructure:"daily_hour_utc" default:"13"`
	RunOnStart   bool `mapstructure:"run_on_start" default:"true"`
}

// CronExpression returns the schedule as a UTC cron expression.
func (s Scheduler) CronExpression() string {
	return fmt.Sprintf("CRON_TZ=UTC 0 %d * * *", s.DailyHourUTC)
}

// Exchange holds the exchange REST and stream settings.
type Exchange struct {
	Name                  string        `mapstructure:"name" default:"binance"`
	BaseURL               string        `mapstructure:"base_url" default:"https://api.binance.com"`
	StreamURL             string        `mapstructure:"stream_url" default:"wss://stream.binance.com:9443/ws/!miniTicker@arr"`
	StreamEnabled         bool          `mapstructure:"stream_enabled"`
	QuoteAsset            string        `mapstructure:"quote_asset" default:"USDT"`
	QuoteAlternates       []string      `mapstructure:"quote_alternates" default:"[\"FDUSD\",\"USDC\"]"`
	BatchSize             int           `mapstructure:"batch_size" default:"50"`
	TradePageSize         int           `mapstructure:"trade_page_size" default:"100"`
	RecvWindow            int           `mapstructure:"recv_window" default:"5000"`
	MaxRequestPerMinute   int           `mapstructure:"max_request_per_minute" default:"600"`
	MaxConcurrentRequests int           `mapstructure:"max_concurrent_requests" default:"8"`
	RequestTimeout        time.Duration `mapstructure:"request_timeout" default:"10s"`
}

// PriceOracle holds the secondary price source settings.
type PriceOracle struct {
	BaseURL        string            `mapstructure:"base_url" default:"https://api.coingecko.com"`
	APIKey         string            `mapstructure:"api_key"`
	CacheTTL       time.Duration     `mapstructure:"cache_ttl" default:"60s"`
	RequestTimeout time.Duration     `mapstructure:"request_timeout" default:"10s"`
	SymbolIDs      map[string]string `mapstructure:"symbol_ids"`
}

// DefaultOracleSymbolIDs is used when the config file carries no symbol table.
var DefaultOracleSymbolIDs = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"SOL":  "solana",
	"AVAX": "avalanche-2",
	"LINK": "chainlink",
	"OP":   "optimism",
	"TIA":  "celestia",
	"HBAR": "hedera-hashgraph",
	"ADA":  "cardano",
	"DOT":  "polkadot",
	"XRP":  "ripple",
}

// OracleIDs returns the symbol table with upper-cased keys. Viper lower-cases map keys.
func (p PriceOracle) OracleIDs() map[string]string {
	src := p.SymbolIDs
	if len(src) == 0 {
		src = DefaultOracleSymbolIDs
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[strings.ToUpper(k)] = v
	}
	return out
}

// ChatProvider holds the settings of an OpenAI-compatible chat completion provider.
type ChatProvider struct {
	APIKey              string  `mapstructure:"api_key"`
	BaseURL             string  `mapstructure:"base_url"`
	Model               string  `mapstructure:"model"`
	ResponsePath        string  `mapstructure:"response_path" default:"$.choices[0].message.content"`
	MaxRequestPerMinute int     `mapstructure:"max_request_per_minute" default:"30"`
	Temperature         float64 `mapstructure:"temperature" default:"0.4"`
}

// Gemini holds the configuration for the Gemini API.
type Gemini struct {
	APIKey              string  `mapstructure:"api_key"`
	Model               string  `mapstructure:"model" default:"gemini-2.0-flash"`
	MaxRequestPerMinute int     `mapstructure:"max_request_per_minute" default:"15"`
	Temperature         float32 `mapstructure:"temperature" default:"0.4"`
}

// AI holds the provider chain settings.
type AI struct {
	Providers        []string      `mapstructure:"providers" default:"[\"grok\",\"openai\",\"deepseek\",\"gemini\"]"`
	MaxIdeas         int           `mapstructure:"max_ideas" default:"5"`
	SnapshotLimit    int           `mapstructure:"snapshot_limit" default:"12"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout" default:"90s"`
	BreakerThreshold int           `mapstructure:"breaker_threshold" default:"3"`
	BreakerReset     time.Duration `mapstructure:"breaker_reset" default:"10m"`
}

// Email holds the fallback email sender settings.
type Email struct {
	ResendAPIKey string `mapstructure:"resend_api_key"`
	From         string `mapstructure:"from"`
	Subject      string `mapstructure:"subject" default:"ApexPulse | AI Swing Signals"`
}

// Telegram holds configuration for the ops alert notifier.
type Telegram struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// News holds the optional headline feeds used in the AI prompt.
type News struct {
	Feeds        []string      `mapstructure:"feeds"`
	MaxHeadlines int           `mapstructure:"max_headlines" default:"8"`
	Timeout      time.Duration `mapstructure:"timeout" default:"15s"`
}

// Config holds the full configuration for the engine service.
type Config struct {
	App         config.App      `mapstructure:"app"`
	Logger      config.Logger   `mapstructure:"logger"`
	Database    config.Database `mapstructure:"database"`
	Redis       config.Redis    `mapstructure:"redis"`
	API         config.API      `mapstructure:"api"`
	Metrics     config.Metrics  `mapstructure:"metrics"`
	Engine      Engine          `mapstructure:"engine"`
	Scheduler   Scheduler       `mapstructure:"scheduler"`
	Exchange    Exchange        `mapstructure:"exchange"`
	PriceOracle PriceOracle     `mapstructure:"price_oracle"`
	AI          AI              `mapstructure:"ai"`
	Grok        ChatProvider    `mapstructure:"grok"`
	OpenAI      ChatProvider    `mapstructure:"openai"`
	Deepseek    ChatProvider    `mapstructure:"deepseek"`
	Gemini      Gemini          `mapstructure:"gemini"`
	Email       Email           `mapstructure:"email"`
	Telegram    Telegram        `mapstructure:"telegram"`
	News        News            `mapstructure:"news"`
}

// Load loads the engine configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Scheduler.DailyHourUTC < 0 || cfg.Scheduler.DailyHourUTC > 23 {
		return nil, fmt.Errorf("scheduler.daily_hour_utc must be between 0 and 23, got %d", cfg.Scheduler.DailyHourUTC)
	}
	return &cfg, nil
}
