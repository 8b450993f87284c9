package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/stockopt/internal/config"
	"github.com/andresuchdata/stockopt/internal/domain"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"golang.org/x/sync/semaphore"
)

type DB struct {
	*sqlx.DB
	sem            *semaphore.Weighted
	acquireTimeout time.Duration
}

// NewDB creates a new database connection pool
func NewDB(cfg *config.DatabaseConfig) (*DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "postgres"
	}
	if driver != "postgres" && driver != "pgx" {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Connect(driver, DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return Wrap(db, cfg.MaxConcurrentOps, cfg.AcquireTimeout), nil
}

// Wrap gates an open handle with a semaphore of the given weight.
func Wrap(db *sqlx.DB, maxConcurrent int64, acquireTimeout time.Duration) *DB {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &DB{
		DB:             db,
		sem:            semaphore.NewWeighted(maxConcurrent),
		acquireTimeout: acquireTimeout,
	}
}

// DSN renders the key/value connection string understood by both drivers.
func DSN(cfg *config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

// acquire takes a semaphore slot, waiting at most acquireTimeout. A caller
// that cannot get a slot in time gets domain.ErrPoolExhausted.
func (db *DB) acquire(ctx context.Context) (func(), error) {
	waitCtx := ctx
	if db.acquireTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, db.acquireTimeout)
		defer cancel()
	}

	if err := db.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("waited %s for a query slot: %w", db.acquireTimeout, domain.ErrPoolExhausted)
		}
		return nil, fmt.Errorf("could not acquire semaphore: %w", err)
	}
	return func() { db.sem.Release(1) }, nil
}

// selectContext runs a gated SelectContext
func (db *DB) selectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	release, err := db.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	return db.SelectContext(ctx, dest, query, args...)
}

// getContext runs a gated GetContext
func (db *DB) getContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	release, err := db.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	return db.GetContext(ctx, dest, query, args...)
}
