package repository

import (
	"context"
	"errors"

	"apexpulse/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TransactionRepository defines the interface for interacting with transactions.
type TransactionRepository interface {
	// CreateIgnoreConflict inserts the transaction unless its external id already exists.
	// It reports whether a row was inserted.
	CreateIgnoreConflict(ctx context.Context, tx *entity.Transaction) (bool, error)
	FindSymbolsByOwner(ctx context.Context, ownerID uuid.UUID, txType entity.TransactionType, limit int) ([]string, error)
	// LatestExternalIDs returns, per symbol, the external id of the newest fill imported from source.
	LatestExternalIDs(ctx context.Context, ownerID uuid.UUID, source string) (map[string]string, error)
	CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)
}

// NewTransactionRepository creates a new instance of TransactionRepository.
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

type transactionRepository struct {
	db *gorm.DB
}

func (r *transactionRepository) CreateIgnoreConflict(ctx context.Context, txn *entity.Transaction) (bool, error) {
	if txn.ExternalID == nil {
		if err := r.db.WithContext(ctx).Create(txn).Error; err != nil {
			return false, err
		}
		return true, nil
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoNothing: true,
	}).Create(txn)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func (r *transactionRepository) FindSymbolsByOwner(ctx context.Context, ownerID uuid.UUID, txType entity.TransactionType, limit int) ([]string, error) {
	var symbols []string
	err := r.db.WithContext(ctx).
		Model(&entity.Transaction{}).
		Where("owner_id = ? AND type = ?", ownerID, txType).
		Distinct("symbol").
		Order("symbol ASC").
		Limit(limit).
		Pluck("symbol", &symbols).Error
	return symbols, err
}

func (r *transactionRepository) LatestExternalIDs(ctx context.Context, ownerID uuid.UUID, source string) (map[string]string, error) {
	var txns []entity.Transaction
	err := r.db.WithContext(ctx).
		Select("symbol", "external_id").
		Where("owner_id = ? AND source = ? AND external_id IS NOT NULL", ownerID, source).
		Order("executed_at DESC").
		Find(&txns).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	latest := make(map[string]string, len(txns))
	for _, t := range txns {
		if _, ok := latest[t.Symbol]; !ok && t.ExternalID != nil {
			latest[t.Symbol] = *t.ExternalID
		}
	}
	return latest, nil
}

func (r *transactionRepository) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Transaction{}).Where("owner_id = ?", ownerID).Count(&count).Error
	return count, err
}
