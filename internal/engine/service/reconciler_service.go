package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"apexpulse/internal/engine/dto"
	"apexpulse/internal/engine/repository"
	"apexpulse/internal/entity"
	"apexpulse/pkg/common"
	"apexpulse/pkg/logger"
	"apexpulse/pkg/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceResolver resolves symbols to USD quotes. Unresolvable symbols are absent from the result.
type PriceResolver interface {
	Resolve(ctx context.Context, symbols []string) map[string]dto.PriceQuote
}

// ReconcilerService merges exchange balances into holdings and exchange fills into transactions.
type ReconcilerService interface {
	SyncHoldings(ctx context.Context, ownerID uuid.UUID, creds dto.ExchangeCredentials, minValueUSD float64) (*dto.HoldingsSyncResult, error)
	SyncTrades(ctx context.Context, ownerID uuid.UUID, creds dto.ExchangeCredentials, symbols []string) (*dto.TradesSyncResult, error)
	SyncHoldingsForOwner(ctx context.Context, ownerID uuid.UUID, minValueUSD *float64) (*dto.HoldingsSyncResult, error)
	SyncTradesForOwner(ctx context.Context, ownerID uuid.UUID) (*dto.TradesSyncResult, error)
}

// NewReconcilerService creates a new reconciler service.
func NewReconcilerService(
	exchange repository.ExchangeRepository,
	resolver PriceResolver,
	userRepo repository.UserRepository,
	holdingRepo repository.HoldingRepository,
	transactionRepo repository.TransactionRepository,
	defaultMinValueUSD float64,
	log *logger.Logger,
	recorder *metrics.Recorder,
) ReconcilerService {
	if defaultMinValueUSD < 0 {
		defaultMinValueUSD = common.DefaultMinValueUSD
	}
	return &reconcilerService{
		exchange:           exchange,
		resolver:           resolver,
		userRepo:           userRepo,
		holdingRepo:        holdingRepo,
		transactionRepo:    transactionRepo,
		defaultMinValueUSD: defaultMinValueUSD,
		logger:             log,
		metrics:            recorder,
	}
}

type reconcilerService struct {
	exchange           repository.ExchangeRepository
	resolver           PriceResolver
	userRepo           repository.UserRepository
	holdingRepo        repository.HoldingRepository
	transactionRepo    repository.TransactionRepository
	defaultMinValueUSD float64
	logger             *logger.Logger
	metrics            *metrics.Recorder
}

// SyncHoldings values every nonzero balance, skips those below minValueUSD and upserts the rest.
// A balance whose upsert fails is skipped; the others are still stored.
// Holdings are never deleted and an existing cost basis is never changed.
func (s *reconcilerService) SyncHoldings(ctx context.Context, ownerID uuid.UUID, creds dto.ExchangeCredentials, minValueUSD float64) (*dto.HoldingsSyncResult, error) {
	balances, err := s.exchange.GetBalances(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch balances: %w", err)
	}

	symbols := make([]string, 0, len(balances))
	for _, b := range balances {
		if !common.IsStableCoin(b.Asset) {
			symbols = append(symbols, b.Asset)
		}
	}
	prices := map[string]dto.PriceQuote{}
	if len(symbols) > 0 {
		prices = s.resolver.Resolve(ctx, symbols)
	}

	result := &dto.HoldingsSyncResult{
		Accepted: make([]dto.AcceptedBalance, 0, len(balances)),
		Skipped:  make([]dto.SkippedBalance, 0),
		Prices:   make(map[string]dto.PriceQuote, len(balances)),
	}
	minValue := decimal.NewFromFloat(minValueUSD)

	for _, b := range balances {
		amount := b.Amount()
		var price float64

		if common.IsStableCoin(b.Asset) {
			price = 1
			if amount.LessThan(minValue) {
				value := amount.Round(2).InexactFloat64()
				result.Skipped = append(result.Skipped, dto.SkippedBalance{
					Asset:    b.Asset,
					Amount:   amount,
					ValueUSD: &value,
					Reason:   fmt.Sprintf("below %s %s", formatThreshold(minValueUSD), b.Asset),
				})
				continue
			}
			result.Prices[b.Asset] = dto.PriceQuote{Symbol: b.Asset, Price: 1, Tier: dto.TierStable}
		} else {
			quote, ok := prices[b.Asset]
			if !ok {
				result.Skipped = append(result.Skipped, dto.SkippedBalance{
					Asset:  b.Asset,
					Amount: amount,
					Reason: dto.SkipReasonPriceUnavailable,
				})
				continue
			}
			price = quote.Price
			if amount.Mul(decimal.NewFromFloat(price)).LessThan(minValue) {
				value := amount.Mul(decimal.NewFromFloat(price)).Round(2).InexactFloat64()
				result.Skipped = append(result.Skipped, dto.SkippedBalance{
					Asset:    b.Asset,
					Amount:   amount,
					ValueUSD: &value,
					Reason:   fmt.Sprintf("below %s USD", formatThreshold(minValueUSD)),
				})
				continue
			}
			result.Prices[b.Asset] = quote
		}

		holding, created, err := s.holdingRepo.UpsertAmount(ctx, ownerID, b.Asset, amount)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to store holding", logger.StringField("asset", b.Asset), logger.ErrorField(err))
			value := amount.Mul(decimal.NewFromFloat(price)).Round(2).InexactFloat64()
			result.Skipped = append(result.Skipped, dto.SkippedBalance{
				Asset:    b.Asset,
				Amount:   amount,
				ValueUSD: &value,
				Reason:   dto.SkipReasonPersistFailed,
			})
			continue
		}

		result.Accepted = append(result.Accepted, dto.AcceptedBalance{
			Asset:     b.Asset,
			Amount:    amount,
			PriceUSD:  price,
			ValueUSD:  amount.Mul(decimal.NewFromFloat(price)).Round(2).InexactFloat64(),
			HoldingID: holding.ID,
			Created:   created,
		})
	}

	result.SyncedCount = len(result.Accepted)
	result.SkippedCount = len(result.Skipped)

	s.logger.InfoContext(ctx, "Holdings reconciled",
		logger.IntField("balances", len(balances)),
		logger.IntField("synced", result.SyncedCount),
		logger.IntField("skipped", result.SkippedCount),
	)
	return result, nil
}

// SyncTrades imports fills for symbols, resuming after the newest fill already imported per symbol.
// A failing fill is logged and counted; the remaining fills are still imported.
// Total is the owner's transaction count once the import is done.
func (s *reconcilerService) SyncTrades(ctx context.Context, ownerID uuid.UUID, creds dto.ExchangeCredentials, symbols []string) (*dto.TradesSyncResult, error) {
	result := &dto.TradesSyncResult{}
	symbols = common.NormalizeSymbols(symbols)
	if len(symbols) > 0 {
		if err := s.importTrades(ctx, ownerID, creds, symbols, result); err != nil {
			return nil, err
		}
	}

	total, err := s.transactionRepo.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}
	result.Total = int(total)

	s.logger.InfoContext(ctx, "Trades reconciled",
		logger.IntField("fetched", result.Fetched),
		logger.IntField("created", result.Created),
		logger.IntField("ignored", result.Ignored),
		logger.IntField("failed", result.Failed),
		logger.IntField("total", result.Total),
	)
	return result, nil
}

func (s *reconcilerService) importTrades(ctx context.Context, ownerID uuid.UUID, creds dto.ExchangeCredentials, symbols []string, result *dto.TradesSyncResult) error {
	source := s.exchange.Name()
	lastIDs, err := s.transactionRepo.LatestExternalIDs(ctx, ownerID, source)
	if err != nil {
		return fmt.Errorf("failed to load last imported fills: %w", err)
	}

	trades, err := s.exchange.GetTrades(ctx, creds, dto.FetchTradesParam{Symbols: symbols, LastExternalIDs: lastIDs})
	if err != nil {
		return fmt.Errorf("failed to fetch trades: %w", err)
	}
	result.Fetched = len(trades)
	if len(trades) == 0 {
		return nil
	}

	holdings, err := s.holdingRepo.FindByOwner(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to load holdings: %w", err)
	}
	holdingIDs := make(map[string]uuid.UUID, len(holdings))
	for _, h := range holdings {
		holdingIDs[h.Asset] = h.ID
	}

	for _, trade := range trades {
		if ImportBuyFillsOnly && !trade.IsBuyer {
			result.Ignored++
			continue
		}
		if !trade.Quantity.IsPositive() || !trade.Price.IsPositive() {
			s.logger.WarnContext(ctx, "Skipping fill with non-positive quantity or price", logger.StringField("external_id", trade.ExternalID))
			result.Failed++
			continue
		}

		externalID := trade.ExternalID
		txType := entity.TransactionTypeBuy
		if !trade.IsBuyer {
			txType = entity.TransactionTypeSell
		}
		txn := &entity.Transaction{
			OwnerID:    ownerID,
			Type:       txType,
			Symbol:     trade.Symbol,
			Quantity:   trade.Quantity,
			Price:      trade.Price,
			Fee:        trade.Commission,
			ExecutedAt: trade.ExecutedAt,
			Source:     source,
			ExternalID: &externalID,
		}
		if id, ok := holdingIDs[trade.Symbol]; ok {
			id := id
			txn.HoldingID = &id
		}

		created, err := s.transactionRepo.CreateIgnoreConflict(ctx, txn)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to store fill", logger.StringField("external_id", externalID), logger.ErrorField(err))
			result.Failed++
			continue
		}
		if created {
			result.Created++
		}
	}

	s.metrics.RecordTradesImported(source, result.Created)
	return nil
}

// SyncHoldingsForOwner loads the tenant's credentials and reconciles its holdings.
// A nil minValueUSD uses the configured default.
func (s *reconcilerService) SyncHoldingsForOwner(ctx context.Context, ownerID uuid.UUID, minValueUSD *float64) (*dto.HoldingsSyncResult, error) {
	creds, err := s.credentials(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	minValue := s.defaultMinValueUSD
	if minValueUSD != nil {
		minValue = *minValueUSD
	}
	return s.SyncHoldings(ctx, ownerID, creds, minValue)
}

// SyncTradesForOwner imports fills for every asset the tenant holds.
func (s *reconcilerService) SyncTradesForOwner(ctx context.Context, ownerID uuid.UUID) (*dto.TradesSyncResult, error) {
	creds, err := s.credentials(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	holdings, err := s.holdingRepo.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}
	return s.SyncTrades(ctx, ownerID, creds, HoldingSymbols(holdings))
}

func (s *reconcilerService) credentials(ctx context.Context, ownerID uuid.UUID) (dto.ExchangeCredentials, error) {
	user, err := s.userRepo.FindByID(ctx, ownerID)
	if errors.Is(err, repository.ErrRecordNotFound) {
		return dto.ExchangeCredentials{}, ErrOwnerNotFound
	}
	if err != nil {
		return dto.ExchangeCredentials{}, err
	}
	if !user.ApiSetting.HasExchangeCredentials() {
		return dto.ExchangeCredentials{}, ErrCredentialsMissing
	}
	return ExchangeCredentials(user.ApiSetting), nil
}

// ExchangeCredentials extracts the exchange keys of a settings record, which may be nil.
func ExchangeCredentials(settings *entity.ApiSetting) dto.ExchangeCredentials {
	if settings == nil {
		return dto.ExchangeCredentials{}
	}
	return dto.ExchangeCredentials{APIKey: settings.ExchangeAPIKey, APISecret: settings.ExchangeSecret}
}

// HoldingSymbols returns the distinct assets of holdings.
func HoldingSymbols(holdings []entity.Holding) []string {
	symbols := make([]string, 0, len(holdings))
	for _, h := range holdings {
		symbols = append(symbols, h.Asset)
	}
	return common.NormalizeSymbols(symbols)
}

func formatThreshold(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
