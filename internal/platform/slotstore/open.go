package slotstore

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/prakriti/intake/internal/platform/db"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Config selects and configures a backend.
type Config struct {
	Driver      string
	SQLitePath  string
	Redis       RedisOptions
	DatabaseURL string
	DBSchema    string
	DBMaxConns  int32
	DBMinConns  int32

	// MaxAttempts bounds connection retries for network backends.
	MaxAttempts uint64
}

// Sweeper is implemented by backends whose expired rows are not reclaimed
// automatically.
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// Open builds the configured backend. Network backends are retried with
// exponential backoff so the kiosk can start before its redis or postgres
// is reachable.
func Open(ctx context.Context, cfg Config, logger zerolog.Logger) (Store, error) {
	switch cfg.Driver {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath)
	case DriverRedis:
		return retry(ctx, cfg, logger, func() (Store, error) {
			return OpenRedis(ctx, cfg.Redis)
		})
	case DriverPostgres:
		return retry(ctx, cfg, logger, func() (Store, error) {
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return nil, err
			}
			p := NewPostgres(pool, cfg.DBSchema)
			p.owned = true
			return p, nil
		})
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Driver)
}

func retry(ctx context.Context, cfg Config, logger zerolog.Logger, op func() (Store, error)) (Store, error) {
	attempts := cfg.MaxAttempts
	if attempts == 0 {
		attempts = 5
	}
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 250 * time.Millisecond
	exp.MaxInterval = 5 * time.Second
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, attempts-1), ctx)

	return backoff.RetryNotifyWithData(op, policy, func(err error, wait time.Duration) {
		logger.Warn().Err(err).Str("driver", cfg.Driver).Dur("retry_in", wait).Msg("slot store unavailable")
	})
}
