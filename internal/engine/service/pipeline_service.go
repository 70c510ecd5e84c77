package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"apexpulse/internal/engine/config"
	"apexpulse/internal/engine/dto"
	"apexpulse/internal/engine/pricing"
	"apexpulse/internal/engine/repository"
	"apexpulse/internal/entity"
	"apexpulse/pkg/common"
	"apexpulse/pkg/logger"
	"apexpulse/pkg/metrics"
	"apexpulse/pkg/telegram"
	"apexpulse/pkg/utils"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	stepHoldings = "holdings"
	stepSymbols  = "symbols"
	stepTrades   = "trades"
	stepSignals  = "signals"
	stepJob      = "job"
)

// SignalChain produces trade ideas from the market snapshot with a tenant's AI keys.
type SignalChain interface {
	Generate(ctx context.Context, snapshot []dto.PriceQuote, headlines []dto.Headline, keys dto.ProviderKeys) []dto.SignalIdea
}

// PipelineService runs the daily batch: one market snapshot, then every tenant's pipeline.
type PipelineService interface {
	RunDaily(ctx context.Context, scope dto.RunScope) (*dto.RunReport, error)
}

// PipelineDependencies groups the collaborators of the pipeline service.
type PipelineDependencies struct {
	UserRepo        repository.UserRepository
	HoldingRepo     repository.HoldingRepository
	SwingSignalRepo repository.SwingSignalRepository
	SyncJobRepo     repository.SyncJobRepository
	PriceCache      repository.PriceCacheRepository
	NewsFeed        repository.NewsFeedRepository
	Resolver        PriceResolver
	Reconciler      ReconcilerService
	Signals         SignalChain
	Notification    NotificationService
	Alerts          telegram.Notifier
	Metrics         *metrics.Recorder
}

// NewPipelineService creates a new pipeline service. PriceCache, NewsFeed and Alerts are optional.
func NewPipelineService(cfg *config.Config, deps PipelineDependencies, log *logger.Logger) PipelineService {
	if deps.Alerts == nil {
		deps.Alerts = telegram.NewNoopNotifier()
	}
	return &pipelineService{
		cfg:    cfg,
		deps:   deps,
		logger: log,
		now:    utils.TimeNowUTC,
	}
}

type pipelineService struct {
	cfg    *config.Config
	deps   PipelineDependencies
	logger *logger.Logger
	now    func() time.Time
}

// RunDaily resolves the universe once and runs every tenant of the run-start snapshot under the
// concurrency cap. A tenant failure is recorded on its job and never stops the other tenants.
func (s *pipelineService) RunDaily(ctx context.Context, scope dto.RunScope) (*dto.RunReport, error) {
	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)
	if s.cfg.Engine.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Engine.RunTimeout)
		defer cancel()
	}

	report := &dto.RunReport{
		RunID:     runID,
		Trigger:   scope.Trigger,
		StartedAt: s.now(),
		Tenants:   []dto.TenantReport{},
	}

	unlock, err := s.lock(ctx, runID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	s.logger.InfoContext(ctx, "Daily run started", logger.StringField("trigger", scope.Trigger))

	users, err := s.tenants(ctx, scope)
	if err != nil {
		s.alert(report, err, nil)
		return nil, err
	}

	universe := common.NormalizeSymbols(s.cfg.Engine.Universe)
	quotes := s.deps.Resolver.Resolve(ctx, universe)
	snapshot, missing := pricing.Sorted(universe, quotes)
	report.Universe = len(universe)
	report.Resolved = len(snapshot)
	if len(missing) > 0 {
		s.logger.WarnContext(ctx, "Universe symbols without a price", logger.Field("symbols", missing))
	}
	s.saveSnapshot(ctx, runID, snapshot)

	headlines := s.headlines(ctx)

	report.Tenants = make([]dto.TenantReport, len(users))
	limit := s.cfg.Engine.MaxConcurrentTenants
	if limit <= 0 {
		limit = 1
	}
	var (
		wg  sync.WaitGroup
		sem = make(chan struct{}, limit)
	)
	for i := range users {
		i := i
		wg.Add(1)
		sem <- struct{}{}
		utils.GoSafe(func() {
			defer wg.Done()
			defer func() { <-sem }()
			report.Tenants[i] = s.runTenantSafe(ctx, &users[i], snapshot, quotes, headlines)
		})
	}
	wg.Wait()

	report.FinishedAt = s.now()
	s.deps.Metrics.RecordRunDuration(report.FinishedAt.Sub(report.StartedAt).Seconds())

	var failures []telegram.TenantFailure
	for _, t := range report.Tenants {
		s.deps.Metrics.RecordTenantPipeline(string(t.Status))
		if t.Status != entity.JobStatusSuccess {
			failures = append(failures, telegram.TenantFailure{OwnerID: t.OwnerID.String(), Step: t.FailedStep, Message: t.Message})
		}
	}
	s.alert(report, nil, failures)

	s.logger.InfoContext(ctx, "Daily run finished",
		logger.IntField("tenants", len(report.Tenants)),
		logger.IntField("failed", report.Failed()),
		logger.IntField("resolved", report.Resolved),
		logger.DurationField("duration", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, nil
}

func (s *pipelineService) lock(ctx context.Context, runID string) (func(), error) {
	if s.deps.PriceCache == nil {
		return func() {}, nil
	}
	ok, err := s.deps.PriceCache.TryLock(ctx, common.RedisKeyDailyRunLock, runID, s.cfg.Engine.LockTTL)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to acquire daily run lock, continuing without it", logger.ErrorField(err))
		return func() {}, nil
	}
	if !ok {
		return nil, ErrRunInProgress
	}
	return func() {
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.deps.PriceCache.Unlock(unlockCtx, common.RedisKeyDailyRunLock, runID); err != nil {
			s.logger.WarnContext(ctx, "Failed to release daily run lock", logger.ErrorField(err))
		}
	}, nil
}

func (s *pipelineService) tenants(ctx context.Context, scope dto.RunScope) ([]entity.User, error) {
	if scope.OwnerID == nil {
		users, err := s.deps.UserRepo.FindAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load tenants: %w", err)
		}
		return users, nil
	}

	user, err := s.deps.UserRepo.FindByID(ctx, *scope.OwnerID)
	if errors.Is(err, repository.ErrRecordNotFound) {
		return nil, ErrOwnerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant: %w", err)
	}
	return []entity.User{*user}, nil
}

func (s *pipelineService) saveSnapshot(ctx context.Context, runID string, snapshot []dto.PriceQuote) {
	if s.deps.PriceCache == nil {
		return
	}
	err := s.deps.PriceCache.SaveSnapshot(ctx, repository.MarketSnapshot{
		RunID:      runID,
		ResolvedAt: s.now(),
		Quotes:     snapshot,
	}, s.cfg.Engine.SnapshotTTL)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to cache market snapshot", logger.ErrorField(err))
	}
}

func (s *pipelineService) headlines(ctx context.Context) []dto.Headline {
	if s.deps.NewsFeed == nil || len(s.cfg.News.Feeds) == 0 {
		return nil
	}
	headlines, err := s.deps.NewsFeed.LatestHeadlines(ctx, s.cfg.News.Feeds, s.cfg.News.MaxHeadlines)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to fetch headlines", logger.ErrorField(err))
		return nil
	}
	return headlines
}

func (s *pipelineService) runTenantSafe(ctx context.Context, user *entity.User, snapshot []dto.PriceQuote, quotes map[string]dto.PriceQuote, headlines []dto.Headline) (report dto.TenantReport) {
	defer func() {
		if r := recover(); r != nil {
			err := utils.RecoverError(r)
			s.logger.ErrorContext(ctx, "Tenant pipeline panicked", logger.StringField("owner_id", user.ID.String()), logger.ErrorField(err))
			report = s.fail(ctx, user.ID, report, "panic", err)
		}
	}()
	return s.runTenant(ctx, user, snapshot, quotes, headlines)
}

// runTenant runs the tenant steps strictly in order and stops at the first failing step.
func (s *pipelineService) runTenant(ctx context.Context, user *entity.User, snapshot []dto.PriceQuote, quotes map[string]dto.PriceQuote, headlines []dto.Headline) dto.TenantReport {
	ctx = logger.WithOwnerID(ctx, user.ID.String())
	if s.cfg.Engine.TenantTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Engine.TenantTimeout)
		defer cancel()
	}

	report := dto.TenantReport{OwnerID: user.ID}
	creds := ExchangeCredentials(user.ApiSetting)

	holdingsResult, err := s.deps.Reconciler.SyncHoldings(ctx, user.ID, creds, s.cfg.Engine.MinValueUSD)
	if err != nil {
		return s.fail(ctx, user.ID, report, stepHoldings, err)
	}
	report.Synced = holdingsResult.SyncedCount
	report.Skipped = holdingsResult.SkippedCount

	holdings, err := s.deps.HoldingRepo.FindByOwner(ctx, user.ID)
	if err != nil {
		return s.fail(ctx, user.ID, report, stepSymbols, err)
	}

	tradesResult, err := s.deps.Reconciler.SyncTrades(ctx, user.ID, creds, HoldingSymbols(holdings))
	if err != nil {
		return s.fail(ctx, user.ID, report, stepTrades, err)
	}
	report.TradesCreated = tradesResult.Created

	ideas := s.deps.Signals.Generate(ctx, snapshot, headlines, providerKeys(user.ApiSetting))
	report.Signals = len(ideas)
	if len(ideas) > 0 {
		report.SignalSource = ideas[0].Source
	}
	if err := s.deps.SwingSignalRepo.ReplaceForOwner(ctx, user.ID, toSwingSignals(user.ID, ideas)); err != nil {
		return s.fail(ctx, user.ID, report, stepSignals, err)
	}

	portfolio := buildPortfolio(holdings, holdingsResult.Prices, quotes)
	// Email failures are logged by the notification service and do not fail the tenant.
	report.EmailStatus, _ = s.deps.Notification.SendDaily(ctx, user, portfolio, ideas)

	report.Status = entity.JobStatusSuccess
	report.Message = common.DailySignalsJobMessage
	if err := s.recordJob(ctx, user.ID, report.Status, report.Message); err != nil {
		report.Status = entity.JobStatusFailure
		report.FailedStep = stepJob
		report.Message = err.Error()
	}
	return report
}

func (s *pipelineService) fail(ctx context.Context, ownerID uuid.UUID, report dto.TenantReport, step string, err error) dto.TenantReport {
	report.OwnerID = ownerID
	report.Status = entity.JobStatusFailure
	report.FailedStep = step
	report.Message = fmt.Sprintf("%s failed: %v", step, err)

	s.logger.ErrorContext(ctx, "Tenant pipeline failed", logger.StringField("step", step), logger.ErrorField(err))
	if jobErr := s.recordJob(ctx, ownerID, report.Status, report.Message); jobErr != nil {
		s.logger.ErrorContext(ctx, "Failed to record job failure", logger.ErrorField(jobErr))
	}
	return report
}

func (s *pipelineService) recordJob(ctx context.Context, ownerID uuid.UUID, status entity.JobStatus, message string) error {
	// The tenant context may already be past its deadline when recording a failure.
	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return s.deps.SyncJobRepo.Upsert(jobCtx, &entity.SyncJob{
		OwnerID:     ownerID,
		JobType:     entity.JobTypeDailySignals,
		Status:      status,
		LastRun:     s.now(),
		LastMessage: message,
	})
}

func (s *pipelineService) alert(report *dto.RunReport, runErr error, failures []telegram.TenantFailure) {
	text := telegram.FormatRunFailureAlert(report.RunID, report.StartedAt, runErr, failures)
	if text == "" {
		return
	}
	if err := s.deps.Alerts.SendMessage(text); err != nil {
		s.logger.Warn("Failed to send ops alert", logger.ErrorField(err))
	}
}

func providerKeys(settings *entity.ApiSetting) dto.ProviderKeys {
	if settings == nil {
		return dto.ProviderKeys{}
	}
	return dto.ProviderKeys{
		"grok":     settings.GrokAPIKey,
		"openai":   settings.OpenAIAPIKey,
		"deepseek": settings.DeepseekAPIKey,
		"gemini":   settings.GeminiAPIKey,
	}
}

func toSwingSignals(ownerID uuid.UUID, ideas []dto.SignalIdea) []entity.SwingSignal {
	signals := make([]entity.SwingSignal, 0, len(ideas))
	for _, idea := range ideas {
		signals = append(signals, entity.SwingSignal{
			OwnerID:    ownerID,
			Symbol:     idea.Symbol,
			Thesis:     idea.Thesis,
			Confidence: idea.Confidence,
			EntryPrice: idea.EntryPrice,
			StopLoss:   idea.StopLoss,
			TakeProfit: idea.TakeProfit,
			Source:     idea.Source,
			Raw:        datatypes.JSON(idea.Raw),
		})
	}
	return signals
}

// buildPortfolio values holdings with the tenant's reconcile prices, falling back to the universe quotes.
func buildPortfolio(holdings []entity.Holding, tenantPrices, universe map[string]dto.PriceQuote) []dto.PortfolioLine {
	lines := make([]dto.PortfolioLine, 0, len(holdings))
	for _, h := range holdings {
		line := dto.PortfolioLine{Asset: h.Asset, Amount: h.Amount}
		if q, ok := tenantPrices[h.Asset]; ok {
			line.PriceUSD = q.Price
		} else if q, ok := universe[h.Asset]; ok {
			line.PriceUSD = q.Price
		} else if common.IsStableCoin(h.Asset) {
			line.PriceUSD = 1
		}
		line.ValueUSD = h.Amount.InexactFloat64() * line.PriceUSD
		lines = append(lines, line)
	}
	return lines
}
