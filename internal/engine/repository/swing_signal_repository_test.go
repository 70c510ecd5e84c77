package repository

import (
	"context"
	"testing"
	"time"

	"apexpulse/internal/entity"
	"apexpulse/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwingSignalRepository_ReplaceForOwner(t *testing.T) {
	db := newTestDB(t)
	repo := NewSwingSignalRepository(db)
	owner := createTestUser(t, db, "signals@apexpulse.test")
	other := createTestUser(t, db, "other@apexpulse.test")
	ctx := context.Background()

	require.NoError(t, repo.ReplaceForOwner(ctx, owner.ID, []entity.SwingSignal{
		{Symbol: "BTC", Thesis: "old", Confidence: 60, Source: "grok"},
		{Symbol: "ETH", Thesis: "old", Confidence: 55, Source: "grok"},
	}))
	require.NoError(t, repo.ReplaceForOwner(ctx, other.ID, []entity.SwingSignal{
		{Symbol: "SOL", Thesis: "keep", Confidence: 70, Source: "openai"},
	}))

	require.NoError(t, repo.ReplaceForOwner(ctx, owner.ID, []entity.SwingSignal{
		{Symbol: "AVAX", Thesis: "new", Confidence: 80, StopLoss: utils.ToPointer(30.5), Source: "openai"},
	}))

	signals, err := repo.FindByOwner(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, "AVAX", signals[0].Symbol)
	assert.Nil(t, signals[0].TakeProfit)
	require.NotNil(t, signals[0].StopLoss)
	assert.Equal(t, 30.5, *signals[0].StopLoss)

	otherSignals, err := repo.FindByOwner(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, otherSignals, 1)

	require.NoError(t, repo.ReplaceForOwner(ctx, owner.ID, nil))
	signals, err = repo.FindByOwner(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestSyncJobRepository_UpsertKeepsOneRowPerOwnerAndType(t *testing.T) {
	db := newTestDB(t)
	repo := NewSyncJobRepository(db)
	owner := createTestUser(t, db, "jobs@apexpulse.test")
	ctx := context.Background()

	first := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Upsert(ctx, &entity.SyncJob{
		OwnerID: owner.ID, JobType: entity.JobTypeDailySignals, Status: entity.JobStatusFailure,
		LastRun: first, LastMessage: "exchange unavailable",
	}))
	require.NoError(t, repo.Upsert(ctx, &entity.SyncJob{
		OwnerID: owner.ID, JobType: entity.JobTypeDailySignals, Status: entity.JobStatusSuccess,
		LastRun: first.Add(24 * time.Hour), LastMessage: "Daily signals + email processed",
	}))

	jobs, err := repo.FindByOwner(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, entity.JobStatusSuccess, jobs[0].Status)
	assert.Equal(t, "Daily signals + email processed", jobs[0].LastMessage)
	assert.True(t, jobs[0].LastRun.Equal(first.Add(24*time.Hour)))
}
