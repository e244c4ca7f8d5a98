package database

import (
	"time"

	"gorm.io/gorm"

	"github.com/fslarfn/toto-backend-sub000/internal/metrics"
)

const startTimeKey = "toto:start_time"

// RegisterMetricsHooks times every create, query, update and delete
func RegisterMetricsHooks(db *gorm.DB) {
	cb := db.Callback()

	_ = cb.Create().Before("gorm:create").Register("metrics:create_start", markStart)
	_ = cb.Query().Before("gorm:query").Register("metrics:query_start", markStart)
	_ = cb.Update().Before("gorm:update").Register("metrics:update_start", markStart)
	_ = cb.Delete().Before("gorm:delete").Register("metrics:delete_start", markStart)

	_ = cb.Create().After("gorm:create").Register("metrics:create", observe("insert"))
	_ = cb.Query().After("gorm:query").Register("metrics:query", observe("select"))
	_ = cb.Update().After("gorm:update").Register("metrics:update", observe("update"))
	_ = cb.Delete().After("gorm:delete").Register("metrics:delete", observe("delete"))
}

func markStart(db *gorm.DB) {
	db.InstanceSet(startTimeKey, time.Now())
}

func observe(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		start, ok := db.InstanceGet(startTimeKey)
		if !ok {
			return
		}
		metrics.ObserveQuery(op, db.Error == nil, time.Since(start.(time.Time)))
	}
}
