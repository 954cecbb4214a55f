package store

import (
	"context"
	"time"

	"notification-service/internal/domain"
)

// Filter narrows a list query. Category and PlatformModule exist only in the
// legacy schema; supplying either signals interest in legacy rows.
type Filter struct {
	Status         string
	EventType      string
	Category       string
	PlatformModule string
	Priority       string
	Limit          int
}

// WantsLegacy reports whether the filter touches legacy-only fields.
func (f Filter) WantsLegacy() bool {
	return f.Category != "" || f.PlatformModule != ""
}

// StatusFields carries the columns written alongside a status transition.
type StatusFields struct {
	SentAt       *time.Time
	FailedAt     *time.Time
	ErrorMessage *string
}

// PreferredAdapter is the modern notification schema. All writes target it.
type PreferredAdapter interface {
	Insert(ctx context.Context, n *domain.Notification) (*domain.Notification, error)
	GetByID(ctx context.Context, id string) (*domain.Notification, error)
	List(ctx context.Context, f Filter) ([]*domain.Notification, error)
	UpdateStatus(ctx context.Context, id, status string, fields StatusFields) error
	Delete(ctx context.Context, id string) (bool, error)
	LatestForRecipient(ctx context.Context, email string, since time.Time) (*domain.Notification, error)
}

// LegacyAdapter is the older schema, used as read fallback and secondary
// delete target. It is never written to.
type LegacyAdapter interface {
	GetByID(ctx context.Context, id string) (*domain.Notification, error)
	List(ctx context.Context, f Filter) ([]*domain.Notification, error)
	Delete(ctx context.Context, id string) (bool, error)
	LatestForRecipient(ctx context.Context, email string, since time.Time) (*domain.Notification, error)
}
