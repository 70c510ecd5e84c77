package service

import (
	"context"

	"apexpulse/internal/engine/dto"
	"apexpulse/internal/engine/repository"
	"apexpulse/pkg/logger"

	"github.com/google/uuid"
)

// SignalService defines the interface for reading stored swing signals.
type SignalService interface {
	GetSignalsByOwner(ctx context.Context, ownerID uuid.UUID) ([]dto.SwingSignalResponse, error)
}

// NewSignalService creates a new signal service.
func NewSignalService(swingSignalRepo repository.SwingSignalRepository, log *logger.Logger) SignalService {
	return &signalService{
		swingSignalRepo: swingSignalRepo,
		logger:          log,
	}
}

type signalService struct {
	swingSignalRepo repository.SwingSignalRepository
	logger          *logger.Logger
}

// GetSignalsByOwner returns the tenant's latest signal batch, most confident first.
func (s *signalService) GetSignalsByOwner(ctx context.Context, ownerID uuid.UUID) ([]dto.SwingSignalResponse, error) {
	signals, err := s.swingSignalRepo.FindByOwner(ctx, ownerID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load signals", logger.ErrorField(err))
		return nil, err
	}

	responses := make([]dto.SwingSignalResponse, 0, len(signals))
	for _, sig := range signals {
		responses = append(responses, dto.SwingSignalResponse{
			Symbol:     sig.Symbol,
			Thesis:     sig.Thesis,
			Confidence: sig.Confidence,
			EntryPrice: sig.EntryPrice,
			StopLoss:   sig.StopLoss,
			TakeProfit: sig.TakeProfit,
			Source:     sig.Source,
			CreatedAt:  sig.CreatedAt,
		})
	}
	return responses, nil
}
