package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"apexpulse/internal/engine/config"
	"apexpulse/internal/engine/dto"
	"apexpulse/pkg/logger"
	"apexpulse/pkg/utils"

	"github.com/robfig/cron/v3"
)

type SchedulerState string

const (
	SchedulerStateWaiting SchedulerState = "WAITING"
	SchedulerStateRunning SchedulerState = "RUNNING"
)

// Clock abstracts time for the scheduler.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now().UTC() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock is the wall clock.
func SystemClock() Clock {
	return systemClock{}
}

// SchedulerService runs the daily pipeline once per day at a fixed UTC hour.
type SchedulerService interface {
	Start(ctx context.Context)
	State() SchedulerState
	NextRun() time.Time
}

// NewSchedulerService creates a new scheduler service.
func NewSchedulerService(cfg config.Scheduler, pipeline PipelineService, log *logger.Logger, clock Clock) (SchedulerService, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(cfg.CronExpression())
	if err != nil {
		return nil, fmt.Errorf("failed to parse schedule %q: %w", cfg.CronExpression(), err)
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &schedulerService{
		cfg:      cfg,
		pipeline: pipeline,
		logger:   log,
		clock:    clock,
		schedule: schedule,
		state:    SchedulerStateWaiting,
	}, nil
}

type schedulerService struct {
	cfg      config.Scheduler
	pipeline PipelineService
	logger   *logger.Logger
	clock    Clock
	schedule cron.Schedule

	mu      sync.RWMutex
	state   SchedulerState
	nextRun time.Time
}

// Start runs the bootstrap run if enabled, then waits for each next occurrence. The timer is
// re-armed only after a run completes, so runs never overlap. Start returns when ctx is done.
func (s *schedulerService) Start(ctx context.Context) {
	s.logger.Info("Scheduler service started", logger.StringField("schedule", s.cfg.CronExpression()))

	if s.cfg.RunOnStart {
		s.runOnce(ctx)
	}

	for {
		now := s.clock.Now()
		next := s.schedule.Next(now)
		s.setNextRun(next)
		s.logger.Info("Next daily run scheduled", logger.Field("next_run", next), logger.DurationField("wait", next.Sub(now)))

		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler service stopping")
			return
		case <-s.clock.After(next.Sub(now)):
			s.runOnce(ctx)
		}
	}
}

func (s *schedulerService) runOnce(ctx context.Context) {
	s.setState(SchedulerStateRunning)
	defer s.setState(SchedulerStateWaiting)

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Daily run panicked", logger.ErrorField(utils.RecoverError(r)))
		}
	}()

	report, err := s.pipeline.RunDaily(ctx, dto.RunScope{Trigger: dto.TriggerScheduler})
	switch {
	case errors.Is(err, ErrRunInProgress):
		s.logger.Info("Daily run skipped, another run holds the lock")
	case err != nil:
		s.logger.Error("Daily run failed", logger.ErrorField(err))
	default:
		s.logger.Info("Daily run completed", logger.StringField("run_id", report.RunID), logger.IntField("failed_tenants", report.Failed()))
	}
}

func (s *schedulerService) State() SchedulerState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// NextRun is zero until Start has armed the timer.
func (s *schedulerService) NextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextRun
}

func (s *schedulerService) setState(state SchedulerState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *schedulerService) setNextRun(t time.Time) {
	s.mu.Lock()
	s.nextRun = t
	s.mu.Unlock()
}
