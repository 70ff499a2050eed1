package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/jpillora/backoff"
)

// Options tunes pool construction.
type Options struct {
	DSN             string
	MaxConns        int32
	ConnectAttempts int
	// QueryLogLevel is a pgx tracelog level name (trace, debug, info, warn, error, none).
	QueryLogLevel string
}

// New creates a new PostgreSQL connection pool, retrying the initial ping with backoff.
func New(ctx context.Context, opts Options, logger *slog.Logger) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("platform/db: parse config: %w", err)
	}
	if opts.MaxConns > 0 {
		config.MaxConns = opts.MaxConns
	}
	if logger != nil && opts.QueryLogLevel != "" {
		level, err := tracelog.LogLevelFromString(opts.QueryLogLevel)
		if err != nil {
			return nil, fmt.Errorf("platform/db: query log level: %w", err)
		}
		config.ConnConfig.Tracer = &tracelog.TraceLog{Logger: NewQueryLogger(logger), LogLevel: level}
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("platform/db: new pool: %w", err)
	}

	attempts := opts.ConnectAttempts
	if attempts <= 0 {
		attempts = 1
	}
	boff := backoff.Backoff{Min: 500 * time.Millisecond, Max: 10 * time.Second, Factor: 2, Jitter: true}
	for attempt := 1; ; attempt++ {
		err = pool.Ping(ctx)
		if err == nil {
			return pool, nil
		}
		if attempt >= attempts {
			break
		}
		wait := boff.Duration()
		if logger != nil {
			logger.Warn("postgres not ready", slog.Int("attempt", attempt), slog.Duration("retry_in", wait), slog.Any("error", err))
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			pool.Close()
			return nil, fmt.Errorf("platform/db: ping: %w", ctx.Err())
		case <-timer.C:
		}
	}
	pool.Close()
	return nil, fmt.Errorf("platform/db: ping: %w", err)
}
