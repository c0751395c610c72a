package intake

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prakriti/intake/internal/platform/slotstore"
)

type recordingMetrics struct {
	mu          sync.Mutex
	submissions []string
	reads       []bool
	started     int
}

func (m *recordingMetrics) Submission(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submissions = append(m.submissions, outcome)
}

func (m *recordingMetrics) HandoffRead(found bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads = append(m.reads, found)
}

func (m *recordingMetrics) SessionStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started++
}

func newTestService(t *testing.T) (*Service, *recordingMetrics) {
	t.Helper()
	rec := &recordingMetrics{}
	svc := NewService(NewMemorySessionRepo(), slotstore.NewMemory(), ServiceConfig{Metrics: rec}, zerolog.Nop())
	return svc, rec
}

func startSession(t *testing.T, svc *Service) uuid.UUID {
	t.Helper()
	sess, err := svc.StartSession(context.Background())
	if err != nil {
		t.Fatalf("StartSession() error: %v", err)
	}
	return sess.ID
}

func fillDraft(t *testing.T, svc *Service, id uuid.UUID, r Record) {
	t.Helper()
	if _, err := svc.ReplaceDraft(context.Background(), id, r); err != nil {
		t.Fatalf("ReplaceDraft() error: %v", err)
	}
}

func TestService_StartSession(t *testing.T) {
	svc, m := newTestService(t)
	sess, err := svc.StartSession(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.State != StateDrafting {
		t.Errorf("expected drafting, got %s", sess.State)
	}
	if !sess.Draft.Equal(Record{}) {
		t.Error("expected empty draft")
	}
	if sess.ExpiresAt.Sub(sess.CreatedAt) != 12*time.Hour {
		t.Errorf("expected default ttl, got %s", sess.ExpiresAt.Sub(sess.CreatedAt))
	}
	if m.started != 1 {
		t.Errorf("expected 1 session started, got %d", m.started)
	}
}

func TestService_SetField(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	id := startSession(t, svc)

	sess, err := svc.SetField(ctx, id, "constitution", "kapha")
	if err != nil {
		t.Fatalf("SetField() error: %v", err)
	}
	if sess.Draft.Constitution != "kapha" {
		t.Errorf("expected kapha, got %q", sess.Draft.Constitution)
	}

	stored, err := svc.GetSession(ctx, id)
	if err != nil {
		t.Fatalf("GetSession() error: %v", err)
	}
	if stored.Draft.Constitution != "kapha" {
		t.Error("expected draft change to be persisted")
	}
}

func TestService_SetFieldRejectsInvalidInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	id := startSession(t, svc)

	cases := []struct{ field, value string }{
		{"age", "200"},
		{"gender", "unknown"},
		{"bloodType", "O+"},
	}
	for _, c := range cases {
		if _, err := svc.SetField(ctx, id, c.field, c.value); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("SetField(%s, %s): expected ErrInvalidInput, got %v", c.field, c.value, err)
		}
	}

	sess, _ := svc.GetSession(ctx, id)
	if !sess.Draft.Equal(Record{}) {
		t.Error("expected rejected input to leave draft unchanged")
	}
}

func TestService_ToggleSymptom(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	id := startSession(t, svc)

	if _, err := svc.ToggleSymptom(ctx, id, string(SymptomHairLoss), true); err != nil {
		t.Fatalf("ToggleSymptom() error: %v", err)
	}
	sess, err := svc.ToggleSymptom(ctx, id, string(SymptomHairLoss), true)
	if err != nil {
		t.Fatalf("ToggleSymptom() error: %v", err)
	}
	if sess.Draft.Symptoms.Len() != 1 {
		t.Errorf("expected 1 symptom, got %d", sess.Draft.Symptoms.Len())
	}

	if _, err := svc.ToggleSymptom(ctx, id, "Hiccups", true); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for unknown symptom, got %v", err)
	}
}

func TestService_SubmitRejected(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()
	id := startSession(t, svc)
	fillDraft(t, svc, id, ashaRecord().Set(FieldPulse, ""))

	sess, err := svc.Submit(ctx, id)
	if !errors.Is(err, MissingClinicalAssessment) {
		t.Fatalf("expected MissingClinicalAssessment, got %v", err)
	}
	if sess == nil || sess.State != StateDrafting {
		t.Fatalf("expected session to stay drafting, got %+v", sess)
	}
	if sess.LastRejection != "Please provide essential Ayurvedic assessments" {
		t.Errorf("unexpected rejection %q", sess.LastRejection)
	}
	if !sess.Draft.Equal(ashaRecord().Set(FieldPulse, "")) {
		t.Error("expected draft preserved after rejection")
	}
	if _, ok := svc.Result(ctx, id); ok {
		t.Error("expected nothing handed off")
	}
	if len(m.submissions) != 1 || m.submissions[0] != "missing_clinical_assessment" {
		t.Errorf("unexpected submissions %v", m.submissions)
	}

	// Fixing the draft and resubmitting succeeds.
	if _, err := svc.SetField(ctx, id, "pulse", "normal"); err != nil {
		t.Fatalf("SetField() error: %v", err)
	}
	sess, err = svc.Submit(ctx, id)
	if err != nil {
		t.Fatalf("resubmit error: %v", err)
	}
	if sess.LastRejection != "" {
		t.Error("expected rejection cleared on success")
	}
}

func TestService_SubmitAccepted(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()
	id := startSession(t, svc)
	draft := ashaRecord().ToggleSymptom(SymptomColdExtremities, true)
	fillDraft(t, svc, id, draft)

	sess, err := svc.Submit(ctx, id)
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if sess.State != StateCommitted {
		t.Errorf("expected committed, got %s", sess.State)
	}
	if sess.Receipt == nil || sess.Receipt.Key != SessionKey(id.String(), DefaultHandoffKey) {
		t.Errorf("unexpected receipt %+v", sess.Receipt)
	}

	got, ok := svc.Result(ctx, id)
	if !ok {
		t.Fatal("expected committed result")
	}
	if !got.Equal(draft) {
		t.Errorf("result differs from draft: %+v", got)
	}
	if len(m.submissions) != 1 || m.submissions[0] != "accepted" {
		t.Errorf("unexpected submissions %v", m.submissions)
	}
	if len(m.reads) != 1 || !m.reads[0] {
		t.Errorf("unexpected reads %v", m.reads)
	}
}

func TestService_CommittedSessionIsFrozen(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	id := startSession(t, svc)
	fillDraft(t, svc, id, ashaRecord())
	if _, err := svc.Submit(ctx, id); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}

	if _, err := svc.SetField(ctx, id, "name", "Ravi"); !errors.Is(err, ErrSessionCommitted) {
		t.Errorf("expected ErrSessionCommitted from SetField, got %v", err)
	}
	if _, err := svc.Submit(ctx, id); !errors.Is(err, ErrSessionCommitted) {
		t.Errorf("expected ErrSessionCommitted from Submit, got %v", err)
	}
}

func TestService_RestartKeepsHandoff(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	id := startSession(t, svc)
	fillDraft(t, svc, id, ashaRecord())
	if _, err := svc.Submit(ctx, id); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}

	sess, err := svc.Restart(ctx, id)
	if err != nil {
		t.Fatalf("Restart() error: %v", err)
	}
	if sess.State != StateDrafting || !sess.Draft.Equal(Record{}) || sess.Receipt != nil {
		t.Errorf("expected fresh draft, got %+v", sess)
	}
	if _, ok := svc.Result(ctx, id); !ok {
		t.Error("expected previous handoff to stay readable")
	}

	// A second assessment replaces the first.
	second := ashaRecord().Set(FieldName, "Meera")
	fillDraft(t, svc, id, second)
	if _, err := svc.Submit(ctx, id); err != nil {
		t.Fatalf("second Submit() error: %v", err)
	}
	got, _ := svc.Result(ctx, id)
	if got.Name != "Meera" {
		t.Errorf("expected second assessment, got %q", got.Name)
	}
}

func TestService_SessionsAreIsolated(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a := startSession(t, svc)
	b := startSession(t, svc)

	fillDraft(t, svc, a, ashaRecord())
	if _, err := svc.Submit(ctx, a); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if _, ok := svc.Result(ctx, b); ok {
		t.Error("expected other session to see no handoff")
	}
}

func TestService_ReplaceDraftValidatesInput(t *testing.T) {
	svc, _ := newTestService(t)
	id := startSession(t, svc)

	_, err := svc.ReplaceDraft(context.Background(), id, ashaRecord().Set(FieldAge, "abc"))
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestService_UnknownSession(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Submit(context.Background(), uuid.New()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestService_SessionExpiry(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	id := startSession(t, svc)

	now = now.Add(13 * time.Hour)
	if _, err := svc.GetSession(ctx, id); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected expired session to be gone, got %v", err)
	}
}

func TestService_SweepExpired(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	startSession(t, svc)
	startSession(t, svc)

	now = now.Add(time.Hour)
	live := startSession(t, svc)

	now = now.Add(11*time.Hour + time.Minute)
	n, err := svc.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("SweepExpired() error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 expired sessions, got %d", n)
	}
	if _, err := svc.GetSession(ctx, live); err != nil {
		t.Errorf("expected newer session to survive, got %v", err)
	}
}

func TestService_ConcurrentEdits(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	id := startSession(t, svc)

	var wg sync.WaitGroup
	for _, s := range Symptoms {
		wg.Add(1)
		go func(s Symptom) {
			defer wg.Done()
			if _, err := svc.ToggleSymptom(ctx, id, string(s), true); err != nil {
				t.Errorf("ToggleSymptom(%s) error: %v", s, err)
			}
		}(s)
	}
	wg.Wait()

	sess, err := svc.GetSession(ctx, id)
	if err != nil {
		t.Fatalf("GetSession() error: %v", err)
	}
	if sess.Draft.Symptoms.Len() != len(Symptoms) {
		t.Errorf("expected every symptom selected, got %d", sess.Draft.Symptoms.Len())
	}
}
