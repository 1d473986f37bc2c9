package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/techtonic-plates-blog/posts-service/configs"
)

type Store struct{ Base *gorm.DB }

// retrySleep is the first backoff step; doubled per attempt, capped at 8x.
var retrySleep = time.Second

// Open dials Postgres with a bounded retry loop so the service survives
// the database coming up after it in compose environments. A connection
// that opens but never answers a ping still fails startup.
func Open(cfg *configs.Config) (*Store, error) {
	var base *gorm.DB
	err := withRetry(8, func() error {
		var openErr error
		base, openErr = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Warn),
			TranslateError: true,
		})
		if openErr != nil {
			return openErr
		}
		sqlDB, dbErr := base.DB()
		if dbErr != nil {
			return dbErr
		}
		if pingErr := pingWithTimeout(sqlDB, 2*time.Second); pingErr != nil {
			return fmt.Errorf("ping: %w", pingErr)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	sqlDB, _ := base.DB()
	sqlDB.SetMaxOpenConns(40)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return &Store{Base: base}, nil
}

// WithTx runs fn inside a single transaction scoped to ctx. A caller abort
// or any error from fn rolls the whole transaction back.
func (s *Store) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.Base.WithContext(ctx).Transaction(fn)
}

// withRetry runs fn up to attempts times with doubling backoff. The error
// from the last attempt is what the caller sees.
func withRetry(attempts int, fn func() error) error {
	var err error
	sleep := retrySleep
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(sleep)
			if sleep < 8*retrySleep {
				sleep *= 2
			}
		}
	}
	return err
}

func pingWithTimeout(sqlDB *sql.DB, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- sqlDB.Ping() }()
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("db ping timeout after %s", timeout)
	}
}
