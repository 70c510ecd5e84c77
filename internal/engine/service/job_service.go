package service

import (
	"context"

	"apexpulse/internal/engine/dto"
	"apexpulse/internal/engine/repository"
	"apexpulse/pkg/logger"

	"github.com/google/uuid"
)

// JobService defines the interface for reading job outcomes.
type JobService interface {
	GetJobsByOwner(ctx context.Context, ownerID uuid.UUID) ([]dto.SyncJobResponse, error)
}

// NewJobService creates a new job service.
func NewJobService(syncJobRepo repository.SyncJobRepository, log *logger.Logger) JobService {
	return &jobService{
		syncJobRepo: syncJobRepo,
		logger:      log,
	}
}

type jobService struct {
	syncJobRepo repository.SyncJobRepository
	logger      *logger.Logger
}

// GetJobsByOwner retrieves the last outcome of every job type of a tenant.
func (s *jobService) GetJobsByOwner(ctx context.Context, ownerID uuid.UUID) ([]dto.SyncJobResponse, error) {
	jobs, err := s.syncJobRepo.FindByOwner(ctx, ownerID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load jobs", logger.ErrorField(err))
		return nil, err
	}

	responses := make([]dto.SyncJobResponse, 0, len(jobs))
	for _, job := range jobs {
		responses = append(responses, dto.SyncJobResponse{
			JobType:     string(job.JobType),
			Status:      string(job.Status),
			LastRun:     job.LastRun,
			LastMessage: job.LastMessage,
		})
	}
	return responses, nil
}
