package repository

import (
	"context"
	"testing"

	"apexpulse/internal/entity"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoldingRepository_UpsertAmountCreatesWithZeroCostBasis(t *testing.T) {
	db := newTestDB(t)
	repo := NewHoldingRepository(db)
	user := createTestUser(t, db, "a@apexpulse.test")
	ctx := context.Background()

	holding, created, err := repo.UpsertAmount(ctx, user.ID, "HBAR", decimal.RequireFromString("254.75"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, holding.AvgBuyPrice.IsZero())

	all, err := repo.FindByOwner(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, holding.ID, all[0].ID)
	assert.True(t, all[0].Amount.Equal(decimal.RequireFromString("254.75")))
}

func TestHoldingRepository_UpsertAmountKeepsCostBasis(t *testing.T) {
	db := newTestDB(t)
	repo := NewHoldingRepository(db)
	user := createTestUser(t, db, "b@apexpulse.test")
	ctx := context.Background()

	holding, _, err := repo.UpsertAmount(ctx, user.ID, "SOL", decimal.NewFromInt(2))
	require.NoError(t, err)
	require.NoError(t, db.Model(holding).Update("avg_buy_price", decimal.NewFromInt(120)).Error)

	updated, created, err := repo.UpsertAmount(ctx, user.ID, "SOL", decimal.NewFromInt(5))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, holding.ID, updated.ID)
	assert.True(t, updated.Amount.Equal(decimal.NewFromInt(5)))
	assert.True(t, updated.AvgBuyPrice.Equal(decimal.NewFromInt(120)))

	all, err := repo.FindByOwner(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestHoldingRepository_UpsertAmountIgnoresDeletedHolding(t *testing.T) {
	db := newTestDB(t)
	repo := NewHoldingRepository(db)
	user := createTestUser(t, db, "c@apexpulse.test")
	ctx := context.Background()

	old, _, err := repo.UpsertAmount(ctx, user.ID, "ETH", decimal.NewFromInt(1))
	require.NoError(t, err)
	require.NoError(t, db.Delete(&entity.Holding{}, "id = ?", old.ID).Error)

	fresh, created, err := repo.UpsertAmount(ctx, user.ID, "ETH", decimal.NewFromInt(3))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, old.ID, fresh.ID)

	var rows int64
	require.NoError(t, db.Unscoped().Model(&entity.Holding{}).Where("owner_id = ?", user.ID).Count(&rows).Error)
	assert.EqualValues(t, 2, rows)
}
