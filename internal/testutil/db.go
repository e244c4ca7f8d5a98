// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fslarfn/toto-backend-sub000/config"
	"github.com/fslarfn/toto-backend-sub000/internal/database"
	"github.com/fslarfn/toto-backend-sub000/internal/models"
)

var dbSeq int64

// NewDB returns a migrated in-memory sqlite database private to t
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := fmt.Sprintf("file:toto_test_%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	db, err := gorm.Open(sqlite.Open(name), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a single connection keeps the shared memory database alive and serialises writers
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, models.SetupModels(db))

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// NewRetrier returns a retrier that tries once
func NewRetrier() *database.Retrier {
	return database.NewRetrier(config.RetryConfig{MaxTries: 1, InitialInterval: time.Millisecond})
}
