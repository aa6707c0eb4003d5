/**
 * @description
 * Database connection bootstrap. The initial connect is retried with
 * exponential backoff according to a configurable policy; per-query retries
 * are deliberately not provided, callers surface storage errors instead.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5/pgxpool: Connection pooling.
 */

package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RetryPolicy controls the initial connection retry loop.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

// Connect parses the database URL, builds a pool, and verifies connectivity
// with a ping, retrying per the policy before giving up.
func Connect(ctx context.Context, databaseURL string, policy RetryPolicy, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	// Simple protocol keeps text-encoded numeric parameters predictable.
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = 500 * time.Millisecond
	}
	if policy.Multiplier < 1 {
		policy.Multiplier = 2
	}

	delay := policy.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}
		lastErr = err
		if attempt == policy.MaxAttempts {
			break
		}
		logger.Warn("database connect failed, retrying",
			"attempt", attempt, "max_attempts", policy.MaxAttempts, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * policy.Multiplier)
	}
	return nil, fmt.Errorf("database connect failed after %d attempts: %w", policy.MaxAttempts, lastErr)
}
