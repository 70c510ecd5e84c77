package repository

import (
	"context"

	"apexpulse/internal/entity"

	"gorm.io/gorm"
)

type EmailLogRepository interface {
	Create(ctx context.Context, log *entity.EmailLog) error
}

type emailLogRepository struct {
	db *gorm.DB
}

func NewEmailLogRepository(db *gorm.DB) EmailLogRepository {
	return &emailLogRepository{db: db}
}

func (r *emailLogRepository) Create(ctx context.Context, log *entity.EmailLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}
