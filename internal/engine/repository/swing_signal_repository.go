package repository

import (
	"context"

	"apexpulse/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SwingSignalRepository interface {
	// ReplaceForOwner deletes the owner's signals and inserts the new batch atomically.
	ReplaceForOwner(ctx context.Context, ownerID uuid.UUID, signals []entity.SwingSignal) error
	FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]entity.SwingSignal, error)
}

type swingSignalRepository struct {
	db *gorm.DB
}

func NewSwingSignalRepository(db *gorm.DB) SwingSignalRepository {
	return &swingSignalRepository{db: db}
}

func (r *swingSignalRepository) ReplaceForOwner(ctx context.Context, ownerID uuid.UUID, signals []entity.SwingSignal) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_id = ?", ownerID).Delete(&entity.SwingSignal{}).Error; err != nil {
			return err
		}
		if len(signals) == 0 {
			return nil
		}
		for i := range signals {
			signals[i].OwnerID = ownerID
		}
		return tx.Create(&signals).Error
	})
}

func (r *swingSignalRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]entity.SwingSignal, error) {
	var signals []entity.SwingSignal
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("confidence DESC").Find(&signals).Error
	return signals, err
}
