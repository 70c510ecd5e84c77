package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"apexpulse/internal/engine/dto"
	"apexpulse/internal/engine/repository"
	"apexpulse/internal/entity"
	"apexpulse/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type reconcilerFixture struct {
	db         *gorm.DB
	exchange   *fakeExchange
	reconciler ReconcilerService
}

type reconcilerOption func(*reconcilerRepos)

type reconcilerRepos struct {
	holdings     repository.HoldingRepository
	transactions repository.TransactionRepository
}

func newReconcilerFixture(t *testing.T, opts ...reconcilerOption) *reconcilerFixture {
	db := newTestDB(t)
	ex := newFakeExchange()
	repos := &reconcilerRepos{
		holdings:     repository.NewHoldingRepository(db),
		transactions: repository.NewTransactionRepository(db),
	}
	for _, opt := range opts {
		opt(repos)
	}
	return &reconcilerFixture{
		db:       db,
		exchange: ex,
		reconciler: NewReconcilerService(
			ex,
			newExchangeResolver(ex),
			repository.NewUserRepository(db),
			repos.holdings,
			repos.transactions,
			5,
			logger.NewNop(),
			nil,
		),
	}
}

// failingHoldings fails UpsertAmount for one asset.
type failingHoldings struct {
	repository.HoldingRepository
	asset string
}

func (f failingHoldings) UpsertAmount(ctx context.Context, ownerID uuid.UUID, asset string, amount decimal.Decimal) (*entity.Holding, bool, error) {
	if asset == f.asset {
		return nil, false, errors.New("duplicate key value violates unique constraint")
	}
	return f.HoldingRepository.UpsertAmount(ctx, ownerID, asset, amount)
}

// failingTransactions fails CreateIgnoreConflict for one external id.
type failingTransactions struct {
	repository.TransactionRepository
	externalID string
}

func (f failingTransactions) CreateIgnoreConflict(ctx context.Context, txn *entity.Transaction) (bool, error) {
	if txn.ExternalID != nil && *txn.ExternalID == f.externalID {
		return false, errors.New("connection reset by peer")
	}
	return f.TransactionRepository.CreateIgnoreConflict(ctx, txn)
}

func withFailingHolding(asset string) reconcilerOption {
	return func(r *reconcilerRepos) {
		r.holdings = failingHoldings{HoldingRepository: r.holdings, asset: asset}
	}
}

func withFailingFill(externalID string) reconcilerOption {
	return func(r *reconcilerRepos) {
		r.transactions = failingTransactions{TransactionRepository: r.transactions, externalID: externalID}
	}
}

var testCreds = dto.ExchangeCredentials{APIKey: "key", APISecret: "secret"}

func balance(asset, amount string) dto.Balance {
	return dto.Balance{Asset: asset, Free: decimal.RequireFromString(amount), Locked: decimal.Zero}
}

func TestSyncHoldings_HBARAndUSDT(t *testing.T) {
	f := newReconcilerFixture(t)
	owner := createTenant(t, f.db, "hbar@apexpulse.io", "")
	f.exchange.balances["key"] = []dto.Balance{balance("HBAR", "254.75"), balance("USDT", "50")}
	f.exchange.tickerPrice["HBARUSDT"] = 0.15

	result, err := f.reconciler.SyncHoldings(context.Background(), owner.ID, testCreds, 5)
	require.NoError(t, err)

	assert.Equal(t, 2, result.SyncedCount)
	assert.Equal(t, 0, result.SkippedCount)
	assert.Empty(t, result.Skipped)
	require.Len(t, result.Accepted, 2)

	assert.Equal(t, "HBAR", result.Accepted[0].Asset)
	assert.Equal(t, 38.21, result.Accepted[0].ValueUSD)
	assert.True(t, result.Accepted[0].Created)
	assert.Equal(t, "USDT", result.Accepted[1].Asset)
	assert.Equal(t, 50.0, result.Accepted[1].ValueUSD)
	assert.Equal(t, dto.TierQuoteProbe, result.Prices["HBAR"].Tier)

	var hbar entity.Holding
	require.NoError(t, f.db.Where("owner_id = ? AND asset = ?", owner.ID, "HBAR").First(&hbar).Error)
	assert.True(t, hbar.Amount.Equal(decimal.RequireFromString("254.75")))
	assert.True(t, hbar.AvgBuyPrice.IsZero())
}

func TestSyncHoldings_PreservesCostBasis(t *testing.T) {
	f := newReconcilerFixture(t)
	owner := createTenant(t, f.db, "basis@apexpulse.io", "")
	existing := &entity.Holding{
		OwnerID:     owner.ID,
		Asset:       "HBAR",
		Amount:      decimal.NewFromInt(100),
		AvgBuyPrice: decimal.RequireFromString("0.2"),
	}
	require.NoError(t, f.db.Create(existing).Error)

	f.exchange.balances["key"] = []dto.Balance{balance("HBAR", "254.75")}
	f.exchange.tickerPrice["HBARUSDT"] = 0.15

	result, err := f.reconciler.SyncHoldings(context.Background(), owner.ID, testCreds, 5)
	require.NoError(t, err)
	require.Len(t, result.Accepted, 1)
	assert.False(t, result.Accepted[0].Created)
	assert.Equal(t, existing.ID, result.Accepted[0].HoldingID)

	var hbar entity.Holding
	require.NoError(t, f.db.First(&hbar, "id = ?", existing.ID).Error)
	assert.True(t, hbar.Amount.Equal(decimal.RequireFromString("254.75")))
	assert.True(t, hbar.AvgBuyPrice.Equal(decimal.RequireFromString("0.2")))
}

func TestSyncHoldings_SkipsWithReasons(t *testing.T) {
	f := newReconcilerFixture(t)
	owner := createTenant(t, f.db, "skip@apexpulse.io", "")
	f.exchange.balances["key"] = []dto.Balance{
		balance("DOGE", "10"),
		balance("USDC", "2"),
		balance("XYZ", "1000"),
		balance("SOL", "1"),
	}
	f.exchange.tickerPrice["DOGEUSDT"] = 0.08
	f.exchange.tickerPrice["SOLUSDT"] = 140

	result, err := f.reconciler.SyncHoldings(context.Background(), owner.ID, testCreds, 5)
	require.NoError(t, err)

	assert.Equal(t, 1, result.SyncedCount)
	assert.Equal(t, "SOL", result.Accepted[0].Asset)
	require.Equal(t, 3, result.SkippedCount)

	reasons := map[string]string{}
	for _, s := range result.Skipped {
		reasons[s.Asset] = s.Reason
	}
	assert.Equal(t, "below 5 USD", reasons["DOGE"])
	assert.Equal(t, "below 5 USDC", reasons["USDC"])
	assert.Equal(t, dto.SkipReasonPriceUnavailable, reasons["XYZ"])

	var count int64
	require.NoError(t, f.db.Model(&entity.Holding{}).Where("owner_id = ?", owner.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSyncHoldings_FailedUpsertIsSkipped(t *testing.T) {
	f := newReconcilerFixture(t, withFailingHolding("HBAR"))
	owner := createTenant(t, f.db, "conflict@apexpulse.io", "")
	f.exchange.balances["key"] = []dto.Balance{balance("HBAR", "254.75"), balance("USDT", "50")}
	f.exchange.tickerPrice["HBARUSDT"] = 0.15

	result, err := f.reconciler.SyncHoldings(context.Background(), owner.ID, testCreds, 5)
	require.NoError(t, err)

	require.Len(t, result.Accepted, 1)
	assert.Equal(t, "USDT", result.Accepted[0].Asset)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "HBAR", result.Skipped[0].Asset)
	assert.Equal(t, dto.SkipReasonPersistFailed, result.Skipped[0].Reason)
	require.NotNil(t, result.Skipped[0].ValueUSD)
	assert.Equal(t, 38.21, *result.Skipped[0].ValueUSD)
	assert.Equal(t, 1, result.SyncedCount)
	assert.Equal(t, 1, result.SkippedCount)
	assert.Contains(t, result.Prices, "HBAR")

	var stored []entity.Holding
	require.NoError(t, f.db.Where("owner_id = ?", owner.ID).Find(&stored).Error)
	require.Len(t, stored, 1)
	assert.Equal(t, "USDT", stored[0].Asset)
}

func TestSyncHoldings_MissingCredentialsIsEmpty(t *testing.T) {
	f := newReconcilerFixture(t)
	owner := createTenant(t, f.db, "empty@apexpulse.io", "")

	result, err := f.reconciler.SyncHoldings(context.Background(), owner.ID, dto.ExchangeCredentials{}, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, result.SyncedCount)
	assert.Equal(t, 0, result.SkippedCount)
}

func TestSyncTrades_DeduplicatesByExternalID(t *testing.T) {
	f := newReconcilerFixture(t)
	owner := createTenant(t, f.db, "trades@apexpulse.io", "")
	holding := &entity.Holding{OwnerID: owner.ID, Asset: "HBAR", Amount: decimal.NewFromInt(254)}
	require.NoError(t, f.db.Create(holding).Error)

	executedAt := mustTime(t, "2026-02-01T00:00:00Z")
	f.exchange.trades["key"] = []dto.Trade{
		{ExternalID: "HBARUSDT-1", Symbol: "HBAR", Pair: "HBARUSDT", Quantity: decimal.NewFromInt(254), Price: decimal.RequireFromString("0.15"), IsBuyer: true, ExecutedAt: executedAt},
		{ExternalID: "HBARUSDT-2", Symbol: "HBAR", Pair: "HBARUSDT", Quantity: decimal.NewFromInt(10), Price: decimal.RequireFromString("0.16"), IsBuyer: false, ExecutedAt: executedAt.Add(time.Hour)},
	}

	first, err := f.reconciler.SyncTrades(context.Background(), owner.ID, testCreds, []string{"hbar"})
	require.NoError(t, err)
	assert.Equal(t, dto.TradesSyncResult{Created: 1, Total: 1, Fetched: 2, Ignored: 1}, *first)

	second, err := f.reconciler.SyncTrades(context.Background(), owner.ID, testCreds, []string{"HBAR"})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 1, second.Total)

	var txns []entity.Transaction
	require.NoError(t, f.db.Where("owner_id = ?", owner.ID).Find(&txns).Error)
	require.Len(t, txns, 1)
	assert.Equal(t, entity.TransactionTypeBuy, txns[0].Type)
	assert.Equal(t, "binance", txns[0].Source)
	require.NotNil(t, txns[0].HoldingID)
	assert.Equal(t, holding.ID, *txns[0].HoldingID)

	require.Len(t, f.exchange.tradeParams, 2)
	assert.Empty(t, f.exchange.tradeParams[0].LastExternalIDs)
	assert.Equal(t, map[string]string{"HBAR": "HBARUSDT-1"}, f.exchange.tradeParams[1].LastExternalIDs)
}

func TestSyncTrades_TotalCountsPersistedTransactions(t *testing.T) {
	f := newReconcilerFixture(t)
	owner := createTenant(t, f.db, "total@apexpulse.io", "")
	for _, symbol := range []string{"ETH", "BTC"} {
		require.NoError(t, f.db.Create(&entity.Transaction{
			OwnerID:    owner.ID,
			Type:       entity.TransactionTypeBuy,
			Symbol:     symbol,
			Quantity:   decimal.NewFromInt(1),
			Price:      decimal.NewFromInt(100),
			ExecutedAt: mustTime(t, "2026-01-15T00:00:00Z"),
			Source:     entity.TransactionSourceManual,
		}).Error)
	}
	f.exchange.trades["key"] = []dto.Trade{
		{ExternalID: "HBARUSDT-7", Symbol: "HBAR", Quantity: decimal.NewFromInt(100), Price: decimal.RequireFromString("0.15"), IsBuyer: true, ExecutedAt: time.Now()},
	}

	result, err := f.reconciler.SyncTrades(context.Background(), owner.ID, testCreds, []string{"HBAR"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Fetched)
	assert.Equal(t, 3, result.Total)

	empty, err := f.reconciler.SyncTrades(context.Background(), owner.ID, testCreds, nil)
	require.NoError(t, err)
	assert.Equal(t, dto.TradesSyncResult{Total: 3}, *empty)
}

func TestSyncTrades_FailedFillDoesNotStopImport(t *testing.T) {
	f := newReconcilerFixture(t, withFailingFill("SOLUSDT-1"))
	owner := createTenant(t, f.db, "fillfail@apexpulse.io", "")
	executedAt := mustTime(t, "2026-02-01T00:00:00Z")
	f.exchange.trades["key"] = []dto.Trade{
		{ExternalID: "SOLUSDT-1", Symbol: "SOL", Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(140), IsBuyer: true, ExecutedAt: executedAt},
		{ExternalID: "SOLUSDT-2", Symbol: "SOL", Quantity: decimal.NewFromInt(2), Price: decimal.NewFromInt(142), IsBuyer: true, ExecutedAt: executedAt.Add(time.Minute)},
	}

	result, err := f.reconciler.SyncTrades(context.Background(), owner.ID, testCreds, []string{"SOL"})
	require.NoError(t, err)
	assert.Equal(t, dto.TradesSyncResult{Created: 1, Total: 1, Fetched: 2, Failed: 1}, *result)

	var txn entity.Transaction
	require.NoError(t, f.db.Where("owner_id = ?", owner.ID).First(&txn).Error)
	require.NotNil(t, txn.ExternalID)
	assert.Equal(t, "SOLUSDT-2", *txn.ExternalID)
}

func TestSyncTrades_UnknownHoldingLeavesHoldingIDEmpty(t *testing.T) {
	f := newReconcilerFixture(t)
	owner := createTenant(t, f.db, "orphan@apexpulse.io", "")
	f.exchange.trades["key"] = []dto.Trade{
		{ExternalID: "SOLUSDT-9", Symbol: "SOL", Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(140), IsBuyer: true, ExecutedAt: time.Now()},
	}

	result, err := f.reconciler.SyncTrades(context.Background(), owner.ID, testCreds, []string{"SOL"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)

	var txn entity.Transaction
	require.NoError(t, f.db.Where("owner_id = ?", owner.ID).First(&txn).Error)
	assert.Nil(t, txn.HoldingID)
}

func TestSyncForOwner_Errors(t *testing.T) {
	f := newReconcilerFixture(t)
	owner := createTenant(t, f.db, "nokeys@apexpulse.io", "")

	_, err := f.reconciler.SyncHoldingsForOwner(context.Background(), owner.ID, nil)
	assert.ErrorIs(t, err, ErrCredentialsMissing)

	_, err = f.reconciler.SyncTradesForOwner(context.Background(), owner.ID)
	assert.ErrorIs(t, err, ErrCredentialsMissing)

	_, err = f.reconciler.SyncHoldingsForOwner(context.Background(), uuid.New(), nil)
	assert.ErrorIs(t, err, ErrOwnerNotFound)
}

func TestSyncHoldingsForOwner_UsesStoredCredentials(t *testing.T) {
	f := newReconcilerFixture(t)
	owner := createTenant(t, f.db, "keys@apexpulse.io", "tenant-key")
	f.exchange.balances["tenant-key"] = []dto.Balance{balance("USDT", "20")}

	minValue := 25.0
	result, err := f.reconciler.SyncHoldingsForOwner(context.Background(), owner.ID, &minValue)
	require.NoError(t, err)
	assert.Equal(t, 0, result.SyncedCount)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "below 25 USDT", result.Skipped[0].Reason)
}
