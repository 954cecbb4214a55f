package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"notification-service/internal/domain"
	"notification-service/internal/xerrors"
)

// MaxBulkDelete caps a single bulk delete batch.
const MaxBulkDelete = 100

// Store unifies the preferred and legacy notification schemas behind one
// read/write/delete contract. Reads degrade to the legacy schema; writes never
// fall back silently.
type Store struct {
	preferred PreferredAdapter
	legacy    LegacyAdapter
	logger    *zap.Logger
}

func New(preferred PreferredAdapter, legacy LegacyAdapter, logger *zap.Logger) *Store {
	return &Store{
		preferred: preferred,
		legacy:    legacy,
		logger:    logger,
	}
}

// Create persists a new record in the preferred schema. Write failures
// propagate; there is no legacy fallback for writes.
func (s *Store) Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	created, err := s.preferred.Insert(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	return created, nil
}

// Get reads a single record, preferred first, legacy on miss.
func (s *Store) Get(ctx context.Context, id string) (*domain.Notification, error) {
	n, err := s.preferred.GetByID(ctx, id)
	if err == nil {
		return n, nil
	}
	if !errors.Is(err, xerrors.ErrNotFound) {
		s.logger.Warn("preferred store read degraded", zap.String("id", id), zap.Error(err))
	}
	return s.legacy.GetByID(ctx, id)
}

// List queries the preferred schema first and falls back to the legacy schema
// when the preferred result is empty or the adapter errors. When the filter
// touches legacy-only fields both result sets are combined, legacy rows first.
// The final stable sort by CreatedAt descending is the single ordering
// authority regardless of which adapter produced which row.
func (s *Store) List(ctx context.Context, f Filter) ([]*domain.Notification, error) {
	preferredRows, perr := s.preferred.List(ctx, f)
	if perr != nil {
		s.logger.Warn("preferred store list degraded, falling back to legacy", zap.Error(perr))
		preferredRows = nil
	}

	var combined []*domain.Notification
	if perr != nil || len(preferredRows) == 0 || f.WantsLegacy() {
		legacyRows, lerr := s.legacy.List(ctx, f)
		if lerr != nil {
			// Without preferred rows to fall back on, a legacy failure is
			// indistinguishable from an empty result; surface it.
			if len(preferredRows) == 0 {
				return nil, fmt.Errorf("list notifications: %w", lerr)
			}
			s.logger.Warn("legacy store list failed", zap.Error(lerr))
		}
		combined = append(combined, legacyRows...)
	}
	combined = append(combined, preferredRows...)

	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].CreatedAt.After(combined[j].CreatedAt)
	})

	if f.Limit > 0 && len(combined) > f.Limit {
		combined = combined[:f.Limit]
	}
	return combined, nil
}

// UpdateStatus writes a status transition to the preferred schema. Terminal
// statuses are enforced by the adapter: re-writing the same terminal status is
// a no-op, a conflicting write returns xerrors.ErrTerminalStatus.
func (s *Store) UpdateStatus(ctx context.Context, id, status string, fields StatusFields) error {
	if !domain.ValidStatus(status) {
		return &xerrors.ValidationError{Field: "status", Msg: "unknown status " + status}
	}
	return s.preferred.UpdateStatus(ctx, id, status, fields)
}

// Delete removes a single record: preferred first, legacy only when the
// preferred schema had no match. The order is deterministic and shared with
// BulkDelete.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := s.preferred.Delete(ctx, id)
	if err != nil {
		s.logger.Warn("preferred store delete failed, trying legacy", zap.String("id", id), zap.Error(err))
	} else if deleted {
		return true, nil
	}
	return s.legacy.Delete(ctx, id)
}

// BulkResult aggregates a partial-failure-tolerant bulk delete.
type BulkResult struct {
	DeletedCount   int      `json:"deletedCount"`
	TotalRequested int      `json:"totalRequested"`
	Errors         []string `json:"errors,omitempty"`
}

// BulkDelete deletes up to MaxBulkDelete ids, attempting each independently.
// A nonexistent or already-deleted id is not an error; it simply does not
// increment the count. Per-id errors are collected, never aborting the batch.
func (s *Store) BulkDelete(ctx context.Context, ids []string) (*BulkResult, error) {
	if len(ids) == 0 {
		return nil, &xerrors.ValidationError{Field: "ids", Msg: "empty id list"}
	}
	if len(ids) > MaxBulkDelete {
		return nil, &xerrors.ValidationError{
			Field: "ids",
			Msg:   fmt.Sprintf("batch of %d exceeds maximum of %d", len(ids), MaxBulkDelete),
		}
	}

	res := &BulkResult{TotalRequested: len(ids)}
	for _, id := range ids {
		deleted, err := s.Delete(ctx, id)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", id, err))
			continue
		}
		if deleted {
			res.DeletedCount++
		}
	}
	return res, nil
}

// LatestForRecipient returns the most recent record created for the recipient
// at or after the given instant, regardless of event type. A nil record with a
// nil error means no history inside the window.
func (s *Store) LatestForRecipient(ctx context.Context, email string, since time.Time) (*domain.Notification, error) {
	n, err := s.preferred.LatestForRecipient(ctx, email, since)
	if err != nil && !errors.Is(err, xerrors.ErrNotFound) {
		s.logger.Warn("preferred store throttle lookup degraded", zap.Error(err))
	}
	if n != nil {
		return n, nil
	}

	n, err = s.legacy.LatestForRecipient(ctx, email, since)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return n, nil
}
