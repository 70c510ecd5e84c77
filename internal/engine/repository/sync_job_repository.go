package repository

import (
	"context"

	"apexpulse/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SyncJobRepository keeps the last outcome per (owner, job type).
type SyncJobRepository interface {
	Upsert(ctx context.Context, job *entity.SyncJob) error
	FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]entity.SyncJob, error)
}

// NewSyncJobRepository creates a new instance of SyncJobRepository.
func NewSyncJobRepository(db *gorm.DB) SyncJobRepository {
	return &syncJobRepository{db: db}
}

type syncJobRepository struct {
	db *gorm.DB
}

func (r *syncJobRepository) Upsert(ctx context.Context, job *entity.SyncJob) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}, {Name: "job_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "last_run", "last_message", "updated_at"}),
	}).Create(job).Error
}

func (r *syncJobRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]entity.SyncJob, error) {
	var jobs []entity.SyncJob
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("job_type ASC").Find(&jobs).Error
	return jobs, err
}
