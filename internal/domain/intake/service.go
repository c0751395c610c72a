package intake

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prakriti/intake/internal/platform/metrics"
)

// ServiceConfig tunes a Service. Zero values fall back to defaults.
type ServiceConfig struct {
	HandoffKey string
	SessionTTL time.Duration
	Metrics    metrics.Recorder
}

// Service drives sessions through drafting, validation and handoff.
type Service struct {
	sessions   SessionRepository
	slots      Slot
	handoffKey string
	ttl        time.Duration
	metrics    metrics.Recorder
	logger     zerolog.Logger
	now        func() time.Time

	// Serializes read-modify-write of drafts across concurrent requests.
	mu sync.Mutex
}

func NewService(sessions SessionRepository, slots Slot, cfg ServiceConfig, logger zerolog.Logger) *Service {
	if cfg.HandoffKey == "" {
		cfg.HandoffKey = DefaultHandoffKey
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 12 * time.Hour
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Nop{}
	}
	return &Service{
		sessions:   sessions,
		slots:      slots,
		handoffKey: cfg.HandoffKey,
		ttl:        cfg.SessionTTL,
		metrics:    cfg.Metrics,
		logger:     logger.With().Str("component", "intake").Logger(),
		now:        time.Now,
	}
}

// SessionTTL is how long sessions and their handoff slots live.
func (s *Service) SessionTTL() time.Duration { return s.ttl }

// Channel returns the handoff channel scoped to a session.
func (s *Service) Channel(sessionID uuid.UUID) *Channel {
	return NewChannel(s.slots, SessionKey(sessionID.String(), s.handoffKey), s.ttl, s.logger)
}

// StartSession opens a session with an empty draft.
func (s *Service) StartSession(ctx context.Context) (*Session, error) {
	now := s.now().UTC()
	sess := &Session{
		ID:        uuid.New(),
		State:     StateDrafting,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.metrics.SessionStarted()
	s.logger.Info().Str("session_id", sess.ID.String()).Msg("intake session started")
	return sess, nil
}

// GetSession returns a live session.
func (s *Service) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.now().Before(sess.ExpiresAt) {
		_ = s.sessions.Delete(ctx, id)
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// SetField applies the input constraint for field and replaces it in the
// draft.
func (s *Service) SetField(ctx context.Context, id uuid.UUID, field, value string) (*Session, error) {
	f, ok := ParseField(field)
	if !ok {
		return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidInput, field)
	}
	if err := Accepts(f, value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.edit(ctx, id, func(r Record) Record { return r.Set(f, value) })
}

// ToggleSymptom selects or clears one checklist entry in the draft.
func (s *Service) ToggleSymptom(ctx context.Context, id uuid.UUID, symptom string, present bool) (*Session, error) {
	sym := Symptom(symptom)
	if !IsKnownSymptom(sym) {
		return nil, fmt.Errorf("%w: unknown symptom %q", ErrInvalidInput, symptom)
	}
	return s.edit(ctx, id, func(r Record) Record { return r.ToggleSymptom(sym, present) })
}

// ReplaceDraft swaps the whole draft after checking every field's input
// domain.
func (s *Service) ReplaceDraft(ctx context.Context, id uuid.UUID, draft Record) (*Session, error) {
	if err := AcceptsRecord(draft); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.edit(ctx, id, func(Record) Record { return draft.clone() })
}

func (s *Service) edit(ctx context.Context, id uuid.UUID, fn func(Record) Record) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.State == StateCommitted {
		return nil, ErrSessionCommitted
	}
	sess.Draft = fn(sess.Draft)
	sess.UpdatedAt = s.now().UTC()
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	return sess, nil
}

// Submit validates the draft and, when it passes, commits it to the
// session's handoff channel. A ValidationFailure leaves the draft untouched
// and returns the session to drafting with the reason recorded.
func (s *Service) Submit(ctx context.Context, id uuid.UUID) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.State == StateCommitted {
		return nil, ErrSessionCommitted
	}
	log := s.logger.With().Str("session_id", id.String()).Logger()

	valid, err := Validate(sess.Draft)
	if err != nil {
		var failure ValidationFailure
		if errors.As(err, &failure) {
			sess.LastRejection = failure.Error()
			sess.UpdatedAt = s.now().UTC()
			if uerr := s.sessions.Update(ctx, sess); uerr != nil {
				return nil, fmt.Errorf("update session: %w", uerr)
			}
			s.metrics.Submission(failure.Code())
			log.Info().Str("group", failure.Group()).Msg("intake submission rejected")
		}
		return sess, err
	}

	receipt, err := s.Channel(id).Commit(ctx, valid)
	if err != nil {
		s.metrics.Submission("commit_error")
		log.Error().Err(err).Msg("intake handoff failed")
		return nil, err
	}

	sess.State = StateCommitted
	sess.LastRejection = ""
	sess.Receipt = receipt
	sess.UpdatedAt = s.now().UTC()
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	s.metrics.Submission("accepted")
	log.Info().Str("receipt_id", receipt.ID.String()).Msg("intake submission accepted")
	return sess, nil
}

// Restart opens a fresh draft in an existing session. A committed handoff
// stays readable until it is overwritten or expires.
func (s *Service) Restart(ctx context.Context, id uuid.UUID) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.State = StateDrafting
	sess.Draft = Record{}
	sess.LastRejection = ""
	sess.Receipt = nil
	sess.UpdatedAt = s.now().UTC()
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	return sess, nil
}

// Result reads the session's committed record for the analysis stage.
func (s *Service) Result(ctx context.Context, id uuid.UUID) (Record, bool) {
	rec, ok := s.Channel(id).Read(ctx)
	s.metrics.HandoffRead(ok)
	return rec, ok
}

// SweepExpired drops sessions past their TTL.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	return s.sessions.DeleteExpired(ctx, s.now())
}
