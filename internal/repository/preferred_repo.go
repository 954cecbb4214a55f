package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"notification-service/internal/domain"
	"notification-service/internal/store"
	"notification-service/internal/xerrors"
)

// PreferredRepo is the pgx adapter over the modern email_notifications schema.
// The schema stores no body text; Content stays empty and Channels default to
// email on the way out.
type PreferredRepo struct {
	db *pgxpool.Pool
}

func NewPreferredRepo(db *pgxpool.Pool) *PreferredRepo {
	return &PreferredRepo{db: db}
}

const preferredColumns = `
	id, template_type, recipient_email, subject, status, priority,
	sent_at, scheduled_for, error_message, failed_at, template_data,
	created_at, updated_at
`

func (r *PreferredRepo) Insert(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}

	query := `
		INSERT INTO email_notifications (
			id, template_type, recipient_email, subject, status, priority,
			scheduled_for, template_data, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()
		)
		RETURNING ` + preferredColumns

	row := r.db.QueryRow(ctx, query,
		n.ID,
		n.EventType,
		n.RecipientEmail,
		n.Subject,
		n.Status,
		n.Priority,
		n.ScheduledFor,
		n.Metadata,
	)

	created, err := scanPreferred(row)
	if err != nil {
		return nil, err
	}

	// Recipient name and body text are not stored in this schema; carry them
	// through from the input so the caller keeps a complete record.
	created.RecipientName = n.RecipientName
	created.Content = n.Content
	return created, nil
}

func (r *PreferredRepo) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	query := `SELECT ` + preferredColumns + ` FROM email_notifications WHERE id = $1`

	n, err := scanPreferred(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, err
	}
	return n, nil
}

func (r *PreferredRepo) List(ctx context.Context, f store.Filter) ([]*domain.Notification, error) {
	query := `SELECT ` + preferredColumns + ` FROM email_notifications WHERE 1=1`
	args := []interface{}{}

	if f.Status != "" {
		args = append(args, f.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.EventType != "" {
		args = append(args, f.EventType)
		query += fmt.Sprintf(" AND template_type = $%d", len(args))
	}
	if f.Priority != "" {
		args = append(args, f.Priority)
		query += fmt.Sprintf(" AND priority = $%d", len(args))
	}

	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*domain.Notification
	for rows.Next() {
		n, err := scanPreferred(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// UpdateStatus enforces terminal monotonicity in the schema itself: the write
// only lands while the record is non-terminal. A zero-row update is then
// disambiguated into not-found, idempotent terminal re-write, or conflict.
func (r *PreferredRepo) UpdateStatus(ctx context.Context, id, status string, fields store.StatusFields) error {
	query := `
		UPDATE email_notifications
		SET status = $2,
		    sent_at = COALESCE($3, sent_at),
		    failed_at = COALESCE($4, failed_at),
		    error_message = COALESCE($5, error_message),
		    updated_at = NOW()
		WHERE id = $1
		  AND status NOT IN ('sent', 'failed')
	`

	ct, err := r.db.Exec(ctx, query, id, status, fields.SentAt, fields.FailedAt, fields.ErrorMessage)
	if err != nil {
		return err
	}
	if ct.RowsAffected() > 0 {
		return nil
	}

	var current string
	err = r.db.QueryRow(ctx, `SELECT status FROM email_notifications WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return xerrors.ErrNotFound
		}
		return err
	}
	if current == status {
		// Retried terminal write after a lost acknowledgment; accept as no-op.
		return nil
	}
	return xerrors.ErrTerminalStatus
}

func (r *PreferredRepo) Delete(ctx context.Context, id string) (bool, error) {
	ct, err := r.db.Exec(ctx, `DELETE FROM email_notifications WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *PreferredRepo) LatestForRecipient(ctx context.Context, email string, since time.Time) (*domain.Notification, error) {
	query := `SELECT ` + preferredColumns + `
		FROM email_notifications
		WHERE recipient_email = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT 1`

	n, err := scanPreferred(r.db.QueryRow(ctx, query, email, since))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, err
	}
	return n, nil
}

func scanPreferred(row pgx.Row) (*domain.Notification, error) {
	var n domain.Notification
	err := row.Scan(
		&n.ID,
		&n.EventType,
		&n.RecipientEmail,
		&n.Subject,
		&n.Status,
		&n.Priority,
		&n.SentAt,
		&n.ScheduledFor,
		&n.ErrorMessage,
		&n.FailedAt,
		&n.Metadata,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	n.Channels = []string{domain.ChannelEmail}
	return &n, nil
}
