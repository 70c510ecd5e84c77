package repository

import (
	"fmt"
	"testing"

	"apexpulse/internal/entity"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&entity.User{},
		&entity.ApiSetting{},
		&entity.Holding{},
		&entity.Transaction{},
		&entity.SwingSignal{},
		&entity.SyncJob{},
		&entity.EmailLog{},
	))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *entity.User {
	t.Helper()
	user := &entity.User{Email: email, Name: email}
	require.NoError(t, db.Create(user).Error)
	return user
}
