package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"apexpulse/internal/engine/config"
	"apexpulse/internal/engine/dto"
	"apexpulse/internal/engine/repository"
	"apexpulse/internal/entity"
	"apexpulse/pkg/common"
	"apexpulse/pkg/logger"
	"apexpulse/pkg/metrics"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type lockedCache struct {
	repository.PriceCacheRepository
}

func (lockedCache) TryLock(context.Context, string, string, time.Duration) (bool, error) {
	return false, nil
}

type pipelineFixture struct {
	db           *gorm.DB
	exchange     *fakeExchange
	chain        *fakeChain
	notification *fakeNotification
	alerts       *fakeAlerts
	deps         PipelineDependencies
	cfg          *config.Config
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	db := newTestDB(t)
	ex := newFakeExchange()
	ex.tickerPrice["BTCUSDT"] = 97000
	ex.tickerPrice["HBARUSDT"] = 0.15

	log := logger.NewNop()
	resolver := newExchangeResolver(ex)
	userRepo := repository.NewUserRepository(db)
	holdingRepo := repository.NewHoldingRepository(db)
	reconciler := NewReconcilerService(ex, resolver, userRepo, holdingRepo, repository.NewTransactionRepository(db), 5, log, nil)

	one := 1.0
	f := &pipelineFixture{
		db:           db,
		exchange:     ex,
		chain:        &fakeChain{ideas: []dto.SignalIdea{{Symbol: "BTC", Thesis: "Trend continuation", Confidence: 80, StopLoss: &one, Source: "grok"}}},
		notification: &fakeNotification{},
		alerts:       &fakeAlerts{},
		cfg: &config.Config{
			Engine: config.Engine{
				MinValueUSD:          5,
				Universe:             []string{"btc", "USDT", "NOPE"},
				MaxConcurrentTenants: 2,
				TenantTimeout:        time.Minute,
			},
		},
	}
	f.deps = PipelineDependencies{
		UserRepo:        userRepo,
		HoldingRepo:     holdingRepo,
		SwingSignalRepo: repository.NewSwingSignalRepository(db),
		SyncJobRepo:     repository.NewSyncJobRepository(db),
		Resolver:        resolver,
		Reconciler:      reconciler,
		Signals:         f.chain,
		Notification:    f.notification,
		Alerts:          f.alerts,
		Metrics:         metrics.New(prometheus.NewRegistry()),
	}
	return f
}

func (f *pipelineFixture) service() PipelineService {
	return NewPipelineService(f.cfg, f.deps, logger.NewNop())
}

func TestRunDaily_TenantFailureIsIsolated(t *testing.T) {
	f := newPipelineFixture(t)
	broken := createTenant(t, f.db, "broken@apexpulse.io", "broken-key")
	healthy := createTenant(t, f.db, "healthy@apexpulse.io", "healthy-key")
	f.exchange.balanceErr["broken-key"] = errors.New("401 invalid api key")
	f.exchange.balances["healthy-key"] = []dto.Balance{balance("HBAR", "254.75"), balance("USDT", "50")}

	report, err := f.service().RunDaily(context.Background(), dto.RunScope{Trigger: dto.TriggerCLI})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Universe)
	assert.Equal(t, 2, report.Resolved)
	require.Len(t, report.Tenants, 2)
	assert.Equal(t, 1, report.Failed())

	jobs := repository.NewSyncJobRepository(f.db)

	brokenJobs, err := jobs.FindByOwner(context.Background(), broken.ID)
	require.NoError(t, err)
	require.Len(t, brokenJobs, 1)
	assert.Equal(t, entity.JobStatusFailure, brokenJobs[0].Status)
	assert.Contains(t, brokenJobs[0].LastMessage, "401 invalid api key")

	healthyJobs, err := jobs.FindByOwner(context.Background(), healthy.ID)
	require.NoError(t, err)
	require.Len(t, healthyJobs, 1)
	assert.Equal(t, entity.JobStatusSuccess, healthyJobs[0].Status)
	assert.Equal(t, common.DailySignalsJobMessage, healthyJobs[0].LastMessage)

	signals, err := repository.NewSwingSignalRepository(f.db).FindByOwner(context.Background(), healthy.ID)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, "BTC", signals[0].Symbol)
	assert.Equal(t, "grok", signals[0].Source)

	assert.Equal(t, []uuid.UUID{healthy.ID}, f.notification.sent)
	lines := f.notification.lines[healthy.ID]
	require.Len(t, lines, 2)
	assert.InDelta(t, 38.2125, lines[0].ValueUSD, 1e-9)

	require.Len(t, f.alerts.messages, 1)
	assert.Contains(t, f.alerts.messages[0], broken.ID.String())
	assert.Contains(t, f.alerts.messages[0], stepHoldings)
}

func TestRunDaily_ScopedToOwner(t *testing.T) {
	f := newPipelineFixture(t)
	createTenant(t, f.db, "first@apexpulse.io", "first-key")
	second := createTenant(t, f.db, "second@apexpulse.io", "second-key")

	report, err := f.service().RunDaily(context.Background(), dto.RunScope{OwnerID: &second.ID, Trigger: dto.TriggerHTTP})
	require.NoError(t, err)
	require.Len(t, report.Tenants, 1)
	assert.Equal(t, second.ID, report.Tenants[0].OwnerID)
	assert.Equal(t, entity.JobStatusSuccess, report.Tenants[0].Status)
	assert.Equal(t, "grok-second-key", f.chain.keys[0]["grok"])
	assert.Empty(t, f.alerts.messages)
}

func TestRunDaily_EmptySignalsStillReplace(t *testing.T) {
	f := newPipelineFixture(t)
	owner := createTenant(t, f.db, "stale@apexpulse.io", "stale-key")
	require.NoError(t, f.db.Create(&entity.SwingSignal{OwnerID: owner.ID, Symbol: "ETH", Confidence: 60, Source: "openai"}).Error)
	f.chain.ideas = []dto.SignalIdea{}

	report, err := f.service().RunDaily(context.Background(), dto.RunScope{Trigger: dto.TriggerScheduler})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Tenants[0].Signals)

	signals, err := repository.NewSwingSignalRepository(f.db).FindByOwner(context.Background(), owner.ID)
	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestRunDaily_LockHeld(t *testing.T) {
	f := newPipelineFixture(t)
	f.deps.PriceCache = lockedCache{}

	_, err := f.service().RunDaily(context.Background(), dto.RunScope{Trigger: dto.TriggerHTTP})
	assert.ErrorIs(t, err, ErrRunInProgress)
}
