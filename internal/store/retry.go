package store

import (
	"context"
	"errors"
	"net"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// Connection retry defaults.
const (
	defaultConnectAttempts = 5
	defaultConnectBackoff  = 500 * time.Millisecond
	maxConnectBackoff      = 10 * time.Second
)

// ConnectPostgres opens a PostgresStore, retrying while the server is
// unreachable or still starting up. Configuration errors fail immediately.
func ConnectPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	attempts := defaultConnectAttempts
	backoff := defaultConnectBackoff
	if poolCfg != nil {
		if poolCfg.ConnectAttempts > 0 {
			attempts = poolCfg.ConnectAttempts
		}
		if poolCfg.ConnectBackoffMS > 0 {
			backoff = time.Duration(poolCfg.ConnectBackoffMS) * time.Millisecond
		}
	}

	return withRetry(ctx, attempts, backoff, func(ctx context.Context) (*PostgresStore, error) {
		return NewPostgres(ctx, connString, poolCfg)
	})
}

// withRetry calls fn until it succeeds, fails with a non-transient error, or
// runs out of attempts. The delay doubles after each failure, capped at
// maxConnectBackoff. Cancelling ctx stops retries and returns the last error.
func withRetry[T any](ctx context.Context, attempts int, backoff time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if ctx.Err() != nil || !isTransient(err) || attempt == attempts {
			break
		}

		zap.L().Warn("store: retrying connection",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
		backoff = min(backoff*2, maxConnectBackoff)
	}
	return zero, lastErr
}

// isTransient reports whether a connection error may clear on its own:
// network timeouts, refused or reset connections, and servers that are
// starting up or shutting down.
func isTransient(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "57P01", "57P02", "57P03", "53300":
			return true
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED)
}
