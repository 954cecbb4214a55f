package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"notification-service/internal/domain"
	"notification-service/internal/store"
	"notification-service/internal/xerrors"
)

// LegacyRepo is the pgx adapter over the older notification_logs schema. It is
// read and delete only; new records never land here.
type LegacyRepo struct {
	db *pgxpool.Pool
}

func NewLegacyRepo(db *pgxpool.Pool) *LegacyRepo {
	return &LegacyRepo{db: db}
}

const legacyColumns = `
	id, event, recipient_email, recipient_name, subject, content, channels,
	status, priority, error_message, sent_at, scheduled_at, metadata,
	category, platform_module, action_url, created_at, updated_at
`

func (r *LegacyRepo) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	query := `SELECT ` + legacyColumns + ` FROM notification_logs WHERE id = $1`

	n, err := scanLegacy(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, err
	}
	return n, nil
}

func (r *LegacyRepo) List(ctx context.Context, f store.Filter) ([]*domain.Notification, error) {
	query := `SELECT ` + legacyColumns + ` FROM notification_logs WHERE 1=1`
	args := []interface{}{}

	if f.Status != "" {
		args = append(args, f.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.EventType != "" {
		args = append(args, f.EventType)
		query += fmt.Sprintf(" AND event = $%d", len(args))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if f.PlatformModule != "" {
		args = append(args, f.PlatformModule)
		query += fmt.Sprintf(" AND platform_module = $%d", len(args))
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
		n, err := scanLegacy(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *LegacyRepo) Delete(ctx context.Context, id string) (bool, error) {
	ct, err := r.db.Exec(ctx, `DELETE FROM notification_logs WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *LegacyRepo) LatestForRecipient(ctx context.Context, email string, since time.Time) (*domain.Notification, error) {
	query := `SELECT ` + legacyColumns + `
		FROM notification_logs
		WHERE recipient_email = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT 1`

	n, err := scanLegacy(r.db.QueryRow(ctx, query, email, since))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, err
	}
	return n, nil
}

func scanLegacy(row pgx.Row) (*domain.Notification, error) {
	var (
		n              domain.Notification
		recipientName  *string
		category       *string
		platformModule *string
		actionURL      *string
	)
	err := row.Scan(
		&n.ID,
		&n.EventType,
		&n.RecipientEmail,
		&recipientName,
		&n.Subject,
		&n.Content,
		&n.Channels,
		&n.Status,
		&n.Priority,
		&n.ErrorMessage,
		&n.SentAt,
		&n.ScheduledFor,
		&n.Metadata,
		&category,
		&platformModule,
		&actionURL,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if recipientName != nil {
		n.RecipientName = *recipientName
	}
	if len(n.Channels) == 0 {
		n.Channels = []string{domain.ChannelEmail}
	}

	// The legacy schema keeps category, platform module and action URL as
	// dedicated columns; fold them into the open metadata map so callers see
	// one shape for both schemas.
	if category != nil || platformModule != nil || actionURL != nil {
		if n.Metadata == nil {
			n.Metadata = map[string]interface{}{}
		}
		if category != nil {
			n.Metadata["category"] = *category
		}
		if platformModule != nil {
			n.Metadata["platform_module"] = *platformModule
		}
		if actionURL != nil {
			n.Metadata["action_url"] = *actionURL
		}
	}
	return &n, nil
}
