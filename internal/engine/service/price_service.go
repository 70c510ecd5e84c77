package service

import (
	"context"
	"fmt"

	"apexpulse/internal/engine/dto"
	"apexpulse/internal/engine/pricing"
	"apexpulse/internal/engine/repository"
	"apexpulse/internal/entity"
	"apexpulse/pkg/common"

	"github.com/google/uuid"
)

const maxPriceSymbols = 50

// DefaultPriceSymbols are priced when a tenant has no holdings or purchases yet.
var DefaultPriceSymbols = []string{"BTC", "ETH", "SOL"}

// PriceService prices symbols on demand and exposes the live board.
type PriceService interface {
	Prices(ctx context.Context, ownerID uuid.UUID, symbols []string) (*dto.PricesResponse, error)
	Live(ctx context.Context) dto.LivePricesResponse
}

// NewPriceService creates a new price service. board is nil when streaming is disabled and
// priceCache is nil without Redis.
func NewPriceService(resolver PriceResolver, holdingRepo repository.HoldingRepository, transactionRepo repository.TransactionRepository, board repository.TickerBoard, priceCache repository.PriceCacheRepository) PriceService {
	return &priceService{
		resolver:        resolver,
		holdingRepo:     holdingRepo,
		transactionRepo: transactionRepo,
		board:           board,
		priceCache:      priceCache,
	}
}

type priceService struct {
	resolver        PriceResolver
	holdingRepo     repository.HoldingRepository
	transactionRepo repository.TransactionRepository
	board           repository.TickerBoard
	priceCache      repository.PriceCacheRepository
}

// Prices resolves symbols, or the tenant's held and bought assets when symbols is empty.
func (s *priceService) Prices(ctx context.Context, ownerID uuid.UUID, symbols []string) (*dto.PricesResponse, error) {
	symbols = common.NormalizeSymbols(symbols)
	if len(symbols) == 0 {
		var err error
		symbols, err = s.tenantSymbols(ctx, ownerID)
		if err != nil {
			return nil, err
		}
	}
	if len(symbols) > maxPriceSymbols {
		symbols = symbols[:maxPriceSymbols]
	}

	markets, missing := pricing.Sorted(symbols, s.resolver.Resolve(ctx, symbols))
	return &dto.PricesResponse{Markets: markets, Missing: missing}, nil
}

func (s *priceService) tenantSymbols(ctx context.Context, ownerID uuid.UUID) ([]string, error) {
	holdings, err := s.holdingRepo.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}
	bought, err := s.transactionRepo.FindSymbolsByOwner(ctx, ownerID, entity.TransactionTypeBuy, maxPriceSymbols)
	if err != nil {
		return nil, fmt.Errorf("failed to load purchased symbols: %w", err)
	}

	symbols := common.NormalizeSymbols(append(HoldingSymbols(holdings), bought...))
	if len(symbols) == 0 {
		return DefaultPriceSymbols, nil
	}
	return symbols, nil
}

// Live serves the streamed board, or the universe snapshot of the last batch run when streaming
// is disabled.
func (s *priceService) Live(ctx context.Context) dto.LivePricesResponse {
	if s.board != nil {
		markets, updatedAt := s.board.Snapshot()
		return dto.LivePricesResponse{Markets: markets, UpdatedAt: updatedAt}
	}
	if s.priceCache != nil {
		if snapshot, err := s.priceCache.GetSnapshot(ctx); err == nil {
			resolvedAt := snapshot.ResolvedAt
			return dto.LivePricesResponse{Markets: snapshot.Quotes, UpdatedAt: &resolvedAt}
		}
	}
	return dto.LivePricesResponse{Markets: []dto.PriceQuote{}}
}
