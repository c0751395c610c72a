package intake

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound  = errors.New("intake session not found")
	ErrSessionCommitted = errors.New("intake already submitted; restart to begin a new assessment")
	ErrInvalidInput     = errors.New("invalid input")
)

// State is the position of a session in the intake flow. Validation runs
// synchronously inside Submit, so only its two resting states are stored.
type State string

const (
	StateDrafting  State = "drafting"
	StateCommitted State = "committed"
)

// Session owns one draft record for the lifetime of a browser session.
type Session struct {
	ID            uuid.UUID `json:"id"`
	State         State     `json:"state"`
	Draft         Record    `json:"draft"`
	LastRejection string    `json:"last_rejection,omitempty"`
	Receipt       *Receipt  `json:"receipt,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

func (s *Session) clone() *Session {
	out := *s
	out.Draft = s.Draft.clone()
	if s.Receipt != nil {
		r := *s.Receipt
		out.Receipt = &r
	}
	return &out
}

type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id uuid.UUID) (*Session, error)
	Update(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// memorySessionRepo keeps drafts in process memory only; a draft never
// outlives the kiosk process.
type memorySessionRepo struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

func NewMemorySessionRepo() SessionRepository {
	return &memorySessionRepo{sessions: make(map[uuid.UUID]*Session)}
}

func (r *memorySessionRepo) Create(_ context.Context, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s.clone()
	return nil
}

func (r *memorySessionRepo) Get(_ context.Context, id uuid.UUID) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.clone(), nil
}

func (r *memorySessionRepo) Update(_ context.Context, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID]; !ok {
		return ErrSessionNotFound
	}
	r.sessions[s.ID] = s.clone()
	return nil
}

func (r *memorySessionRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *memorySessionRepo) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.sessions {
		if !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}
