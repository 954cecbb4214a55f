package usecase

import (
	"context"
	"testing"
	"time"

	"notification-service/internal/domain"
)

type stubThrottleStore struct {
	latest   *domain.Notification
	err      error
	gotEmail string
	gotSince time.Time
}

func (s *stubThrottleStore) LatestForRecipient(_ context.Context, email string, since time.Time) (*domain.Notification, error) {
	s.gotEmail = email
	s.gotSince = since
	if s.err != nil {
		return nil, s.err
	}
	if s.latest != nil && s.latest.CreatedAt.Before(since) {
		return nil, nil
	}
	return s.latest, nil
}

func TestThrottleAllowsFirstSend(t *testing.T) {
	st := &stubThrottleStore{}
	p := NewThrottlePolicy(st, 7*24*time.Hour)

	res, err := p.Check(context.Background(), "new@example.com")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !res.Allowed {
		t.Error("first send to a recipient should be allowed")
	}
	if res.LastSentAt != nil {
		t.Errorf("LastSentAt = %v, want nil", res.LastSentAt)
	}
	if st.gotEmail != "new@example.com" {
		t.Errorf("queried email = %q", st.gotEmail)
	}
}

func TestThrottleBlocksInsideWindow(t *testing.T) {
	now := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	last := now.Add(-3 * 24 * time.Hour)

	st := &stubThrottleStore{latest: &domain.Notification{
		RecipientEmail: "ops@example.com",
		CreatedAt:      last,
	}}
	p := NewThrottlePolicy(st, 7*24*time.Hour)
	p.now = func() time.Time { return now }

	res, err := p.Check(context.Background(), "ops@example.com")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Allowed {
		t.Fatal("send 3 days after the last one should be blocked")
	}
	if !res.CanBypass {
		t.Error("blocked result should always be bypassable")
	}
	if res.LastSentAt == nil || !res.LastSentAt.Equal(last) {
		t.Errorf("LastSentAt = %v, want %v", res.LastSentAt, last)
	}
}

func TestThrottleAllowsAfterWindowElapses(t *testing.T) {
	now := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	last := now.Add(-8 * 24 * time.Hour)

	st := &stubThrottleStore{latest: &domain.Notification{
		RecipientEmail: "ops@example.com",
		CreatedAt:      last,
	}}
	p := NewThrottlePolicy(st, 7*24*time.Hour)
	p.now = func() time.Time { return now }

	res, err := p.Check(context.Background(), "ops@example.com")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !res.Allowed {
		t.Error("send 8 days after the last one should be allowed")
	}

	wantSince := now.Add(-7 * 24 * time.Hour)
	if !st.gotSince.Equal(wantSince) {
		t.Errorf("since = %v, want %v", st.gotSince, wantSince)
	}
}

func TestThrottleWindowBoundaryIsExclusive(t *testing.T) {
	// A record created exactly at the window edge still counts.
	now := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	last := now.Add(-7 * 24 * time.Hour)

	st := &stubThrottleStore{latest: &domain.Notification{
		RecipientEmail: "edge@example.com",
		CreatedAt:      last,
	}}
	p := NewThrottlePolicy(st, 7*24*time.Hour)
	p.now = func() time.Time { return now }

	res, err := p.Check(context.Background(), "edge@example.com")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Allowed {
		t.Error("record created exactly one window ago should still block")
	}
}

func TestThrottleAnchorsOnMostRecentRecord(t *testing.T) {
	// The store already resolves "latest"; the policy must report whatever
	// creation time it hands back, not recompute anything.
	now := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	last := now.Add(-time.Hour)

	st := &stubThrottleStore{latest: &domain.Notification{
		RecipientEmail: "ops@example.com",
		CreatedAt:      last,
		Status:         domain.StatusFailed,
	}}
	p := NewThrottlePolicy(st, 7*24*time.Hour)
	p.now = func() time.Time { return now }

	res, err := p.Check(context.Background(), "ops@example.com")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Allowed {
		t.Error("a failed attempt inside the window still anchors the throttle")
	}
	if res.LastSentAt == nil || !res.LastSentAt.Equal(last) {
		t.Errorf("LastSentAt = %v, want %v", res.LastSentAt, last)
	}
}
