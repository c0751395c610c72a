package slotstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SlotTable is the table created by the handoff migration.
const SlotTable = "intake_handoff_slots"

// Postgres stores slots in SlotTable within schema. The table is created by
// the migrations in internal/platform/db.
type Postgres struct {
	pool  *pgxpool.Pool
	table string
	owned bool
}

// NewPostgres wraps an existing pool. The pool stays owned by the caller.
func NewPostgres(pool *pgxpool.Pool, schema string) *Postgres {
	if schema == "" {
		schema = "public"
	}
	return &Postgres{
		pool:  pool,
		table: pgx.Identifier{schema, SlotTable}.Sanitize(),
	}
}

func (p *Postgres) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	// Expiry is computed from the server clock, the same clock Get and Sweep
	// compare against.
	query := fmt.Sprintf(`INSERT INTO %s (slot_key, payload, expires_at, updated_at)
VALUES ($1, $2, CASE WHEN $3::bigint > 0 THEN NOW() + $3::bigint * INTERVAL '1 microsecond' END, NOW())
ON CONFLICT (slot_key) DO UPDATE SET
    payload = EXCLUDED.payload,
    expires_at = EXCLUDED.expires_at,
    updated_at = NOW()`, p.table)
	if _, err := p.pool.Exec(ctx, query, key, value, ttlMicros(ttl)); err != nil {
		return fmt.Errorf("put slot: %w", err)
	}
	return nil
}

// ttlMicros converts ttl to whole microseconds for an interval, rounding any
// positive ttl up to at least one. Zero means no expiry.
func ttlMicros(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	if us := ttl.Microseconds(); us > 0 {
		return us
	}
	return 1
}

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	query := fmt.Sprintf(`SELECT payload FROM %s
WHERE slot_key = $1 AND (expires_at IS NULL OR expires_at > NOW())`, p.table)

	var payload []byte
	err := p.pool.QueryRow(ctx, query, key).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	return payload, nil
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE slot_key = $1`, p.table)
	if _, err := p.pool.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	return nil
}

// Sweep removes expired rows and returns how many were deleted.
func (p *Postgres) Sweep(ctx context.Context) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE expires_at IS NOT NULL AND expires_at <= NOW()`, p.table)
	tag, err := p.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("sweep slots: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close releases the pool only when Open created it.
func (p *Postgres) Close() error {
	if p.owned {
		p.pool.Close()
	}
	return nil
}
