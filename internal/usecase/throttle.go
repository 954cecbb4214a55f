package usecase

import (
	"context"
	"time"

	"notification-service/internal/domain"
)

// ThrottleStore is the slice of the notification store the policy needs.
type ThrottleStore interface {
	LatestForRecipient(ctx context.Context, email string, since time.Time) (*domain.Notification, error)
}

// ThrottleResult is the policy's verdict. CanBypass is true whenever the send
// is blocked; the policy never hard-blocks.
type ThrottleResult struct {
	Allowed    bool
	LastSentAt *time.Time
	CanBypass  bool
}

// ThrottlePolicy blocks repeat manual sends to the same recipient inside a
// trailing window, independent of event type. An explicit caller bypass skips
// the check entirely; the bypassed send's creation time then anchors the next
// window.
type ThrottlePolicy struct {
	store  ThrottleStore
	window time.Duration
	now    func() time.Time
}

func NewThrottlePolicy(store ThrottleStore, window time.Duration) *ThrottlePolicy {
	return &ThrottlePolicy{
		store:  store,
		window: window,
		now:    time.Now,
	}
}

func (p *ThrottlePolicy) Check(ctx context.Context, recipientEmail string) (ThrottleResult, error) {
	since := p.now().Add(-p.window)

	latest, err := p.store.LatestForRecipient(ctx, recipientEmail, since)
	if err != nil {
		return ThrottleResult{}, err
	}
	if latest == nil {
		return ThrottleResult{Allowed: true}, nil
	}

	anchor := latest.CreatedAt
	return ThrottleResult{
		Allowed:    false,
		LastSentAt: &anchor,
		CanBypass:  true,
	}, nil
}
