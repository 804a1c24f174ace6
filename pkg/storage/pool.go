package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/flowforge/dagmanager/pkg/security"
)

// PoolConfig holds the *sql.DB pool knobs applied on top of a gorm.DB.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultPoolConfig is a conservative starting point for callers that
// don't know their shard count yet. Prefer PoolConfigForShards once a
// Config is available: shard count is the one thing this domain can
// derive its pool sizing from directly.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,
	}
}

// PoolConfigForShards sizes the pool to the number of DagWorker shards
// contending for it. Each shard holds at most one outstanding
// checkpoint write per pass, plus occasional reads from the dashboard
// and retention sweep, so open connections scale linearly with shard
// count rather than following a fixed tier.
func PoolConfigForShards(numThreads int) PoolConfig {
	numThreads = security.ClampShards(numThreads)

	open := numThreads*4 + 5
	const openCeiling = 200
	if open > openCeiling {
		open = openCeiling
	}

	return PoolConfig{
		MaxOpenConns:    open,
		MaxIdleConns:    open / 2,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,
	}
}

// PoolOption overrides one PoolConfig field on top of whatever base
// config OpenWithPool/OpenWithShardPool starts from.
type PoolOption interface {
	applyPool(*PoolConfig)
}

type poolOptionFunc func(*PoolConfig)

func (f poolOptionFunc) applyPool(c *PoolConfig) { f(c) }

// MaxOpenConns overrides the pool's open-connection ceiling. 0 means
// unlimited.
func MaxOpenConns(n int) PoolOption {
	return poolOptionFunc(func(c *PoolConfig) { c.MaxOpenConns = n })
}

// MaxIdleConns overrides how many idle connections the pool keeps warm.
func MaxIdleConns(n int) PoolOption {
	return poolOptionFunc(func(c *PoolConfig) { c.MaxIdleConns = n })
}

// ConnMaxLifetime overrides how long a connection may be reused before
// it is closed and replaced.
func ConnMaxLifetime(d time.Duration) PoolOption {
	return poolOptionFunc(func(c *PoolConfig) { c.ConnMaxLifetime = d })
}

// ConnMaxIdleTime overrides how long an idle connection may sit before
// it is closed.
func ConnMaxIdleTime(d time.Duration) PoolOption {
	return poolOptionFunc(func(c *PoolConfig) { c.ConnMaxIdleTime = d })
}

// ConfigurePool applies base, adjusted by opts, to db's underlying
// *sql.DB.
func ConfigurePool(db *gorm.DB, base PoolConfig, opts ...PoolOption) error {
	for _, opt := range opts {
		opt.applyPool(&base)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("dagmanager: underlying *sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(base.MaxOpenConns)
	sqlDB.SetMaxIdleConns(base.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(base.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(base.ConnMaxIdleTime)
	return nil
}

// Stores bundles the three tables a DagManager needs against one
// connection: the live DAG store, the failed-dag overlay, and the
// pending-action log.
type Stores struct {
	Live    *GormDagStateStore
	Failed  *GormDagStateStore
	Actions *GormDagActionStore
}

// OpenWithPool opens a sqlite database at dsn (e.g. "dagmanager.db" or
// "file::memory:?cache=shared"), pools it with DefaultPoolConfig
// adjusted by opts, migrates all three tables, and returns them
// bundled together.
func OpenWithPool(dsn string, opts ...PoolOption) (*Stores, error) {
	return open(dsn, DefaultPoolConfig(), opts...)
}

// OpenWithShardPool is OpenWithPool, but the base pool config is scaled
// to numThreads via PoolConfigForShards instead of the fixed default.
func OpenWithShardPool(dsn string, numThreads int, opts ...PoolOption) (*Stores, error) {
	return open(dsn, PoolConfigForShards(numThreads), opts...)
}

func open(dsn string, base PoolConfig, opts ...PoolOption) (*Stores, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("dagmanager: open %s: %w", dsn, err)
	}
	if err := ConfigurePool(db, base, opts...); err != nil {
		return nil, err
	}

	live := NewGormDagStateStore(db)
	failed := NewFailedGormDagStateStore(db)
	actions := NewGormDagActionStore(db)

	ctx := context.Background()
	if err := live.Migrate(ctx); err != nil {
		return nil, err
	}
	if err := failed.Migrate(ctx); err != nil {
		return nil, err
	}
	if err := actions.Migrate(ctx); err != nil {
		return nil, err
	}

	return &Stores{Live: live, Failed: failed, Actions: actions}, nil
}
