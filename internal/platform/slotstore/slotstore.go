// Package slotstore provides the keyed, overwrite-only storage behind the
// intake handoff slot. It defines the Store interface, an in-memory
// implementation for development and tests, and sqlite, redis and postgres
// backends.
package slotstore

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ---------------------------------------------------------------------------
// Sentinel errors
// ---------------------------------------------------------------------------

var (
	ErrSlotEmpty   = errors.New("slot is empty")
	ErrEmptyKey    = errors.New("slot key is required")
	ErrUnknownKind = errors.New("unknown slot driver")
)

// ---------------------------------------------------------------------------
// Store interface
// ---------------------------------------------------------------------------

// Store holds at most one value per key. Put overwrites; a ttl <= 0 keeps
// the value until it is replaced or deleted. Get returns ErrSlotEmpty when
// the key was never written, was deleted, or has expired.
type Store interface {
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// ---------------------------------------------------------------------------
// In-memory implementation
// ---------------------------------------------------------------------------

type memSlot struct {
	value     []byte
	expiresAt time.Time
}

// Memory is a thread-safe, process-local Store. Its contents end with the
// process.
type Memory struct {
	mu    sync.RWMutex
	slots map[string]memSlot
	now   func() time.Time
}

// NewMemory returns a ready-to-use Memory store.
func NewMemory() *Memory {
	return &Memory{
		slots: make(map[string]memSlot),
		now:   time.Now,
	}
}

func (m *Memory) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	slot := memSlot{value: append([]byte(nil), value...)}
	if ttl > 0 {
		slot.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.slots[key] = slot
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	slot, ok := m.slots[key]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrSlotEmpty
	}
	if slot.expired(m.now()) {
		m.evictExpired(key)
		return nil, ErrSlotEmpty
	}
	return append([]byte(nil), slot.value...), nil
}

// evictExpired drops key only if it is still expired once the write lock is
// held; a Put that landed after the read keeps its slot.
func (m *Memory) evictExpired(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slot, ok := m.slots[key]; ok && slot.expired(m.now()) {
		delete(m.slots, key)
	}
}

func (s memSlot) expired(now time.Time) bool {
	return !s.expiresAt.IsZero() && !now.Before(s.expiresAt)
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.slots, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
