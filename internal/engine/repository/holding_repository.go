package repository

import (
	"context"
	"errors"

	"apexpulse/internal/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HoldingRepository defines the interface for interacting with holdings.
type HoldingRepository interface {
	FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]entity.Holding, error)
	// UpsertAmount sets the amount of the (owner, asset) holding, creating it with a zero
	// cost basis when missing. The cost basis of an existing holding is left untouched.
	UpsertAmount(ctx context.Context, ownerID uuid.UUID, asset string, amount decimal.Decimal) (*entity.Holding, bool, error)
}

// NewHoldingRepository creates a new instance of HoldingRepository.
func NewHoldingRepository(db *gorm.DB) HoldingRepository {
	return &holdingRepository{db: db}
}

type holdingRepository struct {
	db *gorm.DB
}

func (r *holdingRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]entity.Holding, error) {
	var holdings []entity.Holding
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("asset ASC").Find(&holdings).Error
	return holdings, err
}

// UpsertAmount inserts on the live (owner_id, asset) key and only overwrites amount on conflict,
// so concurrent syncs of one tenant converge on a single row.
func (r *holdingRepository) UpsertAmount(ctx context.Context, ownerID uuid.UUID, asset string, amount decimal.Decimal) (*entity.Holding, bool, error) {
	holding := entity.Holding{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Asset:       asset,
		Amount:      amount,
		AvgBuyPrice: decimal.Zero,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:     []clause.Column{{Name: "owner_id"}, {Name: "asset"}},
		TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "deleted_at IS NULL"}}},
		DoUpdates:   clause.AssignmentColumns([]string{"amount", "updated_at"}),
	}).Create(&holding).Error
	if err != nil {
		return nil, false, err
	}

	stored, err := r.findByOwnerAndAsset(ctx, ownerID, asset)
	if err != nil {
		return nil, false, err
	}
	return stored, stored.ID == holding.ID, nil
}

func (r *holdingRepository) findByOwnerAndAsset(ctx context.Context, ownerID uuid.UUID, asset string) (*entity.Holding, error) {
	var holding entity.Holding
	err := r.db.WithContext(ctx).Where("owner_id = ? AND asset = ?", ownerID, asset).First(&holding).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &holding, nil
}
