package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prakriti/intake/internal/platform/slotstore"
)

// DefaultHandoffKey is the well-known name the analysis stage reads from.
const DefaultHandoffKey = "patientData"

// Slot is the storage a Channel needs. slotstore.Store satisfies it.
type Slot interface {
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// Receipt acknowledges a committed handoff.
type Receipt struct {
	ID          uuid.UUID `json:"id"`
	Key         string    `json:"key"`
	CommittedAt time.Time `json:"committed_at"`
	Size        int       `json:"size"`
}

// Channel passes one validated record to the next stage through a single
// storage key. Commit overwrites; Read never fails, it reports absence.
type Channel struct {
	slot   Slot
	key    string
	ttl    time.Duration
	logger zerolog.Logger
}

// NewChannel binds a channel to key within slot. Values expire after ttl
// when ttl > 0.
func NewChannel(slot Slot, key string, ttl time.Duration, logger zerolog.Logger) *Channel {
	return &Channel{slot: slot, key: key, ttl: ttl, logger: logger}
}

// SessionKey scopes the handoff key to one session.
func SessionKey(sessionID, handoffKey string) string {
	return "intake:" + sessionID + ":" + handoffKey
}

// Key returns the storage key this channel writes.
func (c *Channel) Key() string { return c.key }

// Commit serializes v and replaces whatever the slot held.
func (c *Channel) Commit(ctx context.Context, v ValidRecord) (*Receipt, error) {
	raw, err := json.Marshal(v.rec)
	if err != nil {
		return nil, fmt.Errorf("encode intake record: %w", err)
	}
	if err := c.slot.Put(ctx, c.key, raw, c.ttl); err != nil {
		return nil, fmt.Errorf("commit handoff: %w", err)
	}

	receipt := &Receipt{
		ID:          uuid.New(),
		Key:         c.key,
		CommittedAt: time.Now().UTC(),
		Size:        len(raw),
	}
	c.logger.Info().
		Str("receipt_id", receipt.ID.String()).
		Str("key", c.key).
		Int("size", receipt.Size).
		Msg("handoff committed")
	return receipt, nil
}

// Read returns the committed record. Nothing committed, an expired slot, a
// storage error and an undecodable payload all read as absent.
func (c *Channel) Read(ctx context.Context) (Record, bool) {
	raw, err := c.slot.Get(ctx, c.key)
	if errors.Is(err, slotstore.ErrSlotEmpty) {
		return Record{}, false
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("key", c.key).Msg("handoff slot unreadable")
		return Record{}, false
	}

	rec, err := decodeRecord(raw)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", c.key).Msg("handoff payload corrupt")
		return Record{}, false
	}
	return rec, true
}

func decodeRecord(raw []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}
