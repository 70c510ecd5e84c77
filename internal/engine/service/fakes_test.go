package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"apexpulse/internal/engine/dto"
	"apexpulse/internal/engine/pricing"
	"apexpulse/internal/entity"
	"apexpulse/pkg/email"
	"apexpulse/pkg/logger"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&entity.User{},
		&entity.ApiSetting{},
		&entity.Holding{},
		&entity.Transaction{},
		&entity.SwingSignal{},
		&entity.SyncJob{},
		&entity.EmailLog{},
	))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Tenant pipelines run concurrently; a single connection serializes access to the shared cache.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func createTenant(t *testing.T, db *gorm.DB, email, exchangeKey string) *entity.User {
	t.Helper()
	user := &entity.User{Email: email, Name: "Trader"}
	require.NoError(t, db.Create(user).Error)
	if exchangeKey != "" {
		require.NoError(t, db.Create(&entity.ApiSetting{
			UserID:           user.ID,
			ExchangeAPIKey:   exchangeKey,
			ExchangeSecret:   "secret-" + exchangeKey,
			GrokAPIKey:       "grok-" + exchangeKey,
			DailyEmailActive: true,
		}).Error)
	}
	return user
}

// fakeExchange serves balances and fills per API key, and market data for the pricing stages.
type fakeExchange struct {
	mu sync.Mutex

	balances    map[string][]dto.Balance
	balanceErr  map[string]error
	trades      map[string][]dto.Trade
	tickerPrice map[string]float64

	tradeParams []dto.FetchTradesParam
}

func newFakeExchange() *fakeExchange {
	return &fakeExchange{
		balances:    map[string][]dto.Balance{},
		balanceErr:  map[string]error{},
		trades:      map[string][]dto.Trade{},
		tickerPrice: map[string]float64{},
	}
}

func (f *fakeExchange) Name() string { return "binance" }

func (f *fakeExchange) GetBalances(_ context.Context, creds dto.ExchangeCredentials) ([]dto.Balance, error) {
	if !creds.Configured() {
		return []dto.Balance{}, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.balanceErr[creds.APIKey]; err != nil {
		return nil, err
	}
	return f.balances[creds.APIKey], nil
}

func (f *fakeExchange) GetTrades(_ context.Context, creds dto.ExchangeCredentials, param dto.FetchTradesParam) ([]dto.Trade, error) {
	if !creds.Configured() {
		return []dto.Trade{}, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tradeParams = append(f.tradeParams, param)
	return f.trades[creds.APIKey], nil
}

func (f *fakeExchange) Get24hrTickers(context.Context, []string) ([]dto.Ticker24hr, error) {
	return nil, errors.New("503 service unavailable")
}

func (f *fakeExchange) GetTickerPrice(_ context.Context, pair string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.tickerPrice[pair]; ok {
		return p, nil
	}
	return 0, errors.New("invalid symbol")
}

func (f *fakeExchange) GetAvgPrice(context.Context, string) (float64, error) {
	return 0, errors.New("invalid symbol")
}

// newExchangeResolver builds a resolver whose batch tier always fails, so prices come from the
// per-symbol probe.
func newExchangeResolver(ex *fakeExchange) *pricing.Resolver {
	log := logger.NewNop()
	return pricing.NewResolver(log, nil,
		pricing.NewBatchTickerStage(ex, "USDT", 50, log),
		pricing.NewQuoteProbeStage(ex, []string{"USDT"}, 4, log),
	)
}

type fakeChain struct {
	ideas []dto.SignalIdea
	mu    sync.Mutex
	keys  []dto.ProviderKeys
}

func (f *fakeChain) Generate(_ context.Context, _ []dto.PriceQuote, _ []dto.Headline, keys dto.ProviderKeys) []dto.SignalIdea {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, keys)
	return f.ideas
}

type fakeNotification struct {
	mu    sync.Mutex
	sent  []uuid.UUID
	lines map[uuid.UUID][]dto.PortfolioLine
}

func (f *fakeNotification) SendDaily(_ context.Context, user *entity.User, portfolio []dto.PortfolioLine, _ []dto.SignalIdea) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, user.ID)
	if f.lines == nil {
		f.lines = map[uuid.UUID][]dto.PortfolioLine{}
	}
	f.lines[user.ID] = portfolio
	return dto.EmailOutcomeSent, nil
}

type fakeAlerts struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeAlerts) SendMessage(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
	return nil
}

type fakeSender struct {
	apiKey string
	msgs   *[]email.Message
	err    error
}

func (f *fakeSender) Send(_ context.Context, msg email.Message) (string, error) {
	*f.msgs = append(*f.msgs, msg)
	if f.err != nil {
		return "", f.err
	}
	return "email-" + f.apiKey, nil
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}
