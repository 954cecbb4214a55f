package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"notification-service/internal/domain"
	"notification-service/internal/xerrors"
)

// RecipientRepo owns admin_recipients. Email is the unique upsert key.
type RecipientRepo struct {
	db *pgxpool.Pool
}

func NewRecipientRepo(db *pgxpool.Pool) *RecipientRepo {
	return &RecipientRepo{db: db}
}

func (r *RecipientRepo) Upsert(ctx context.Context, rec *domain.AdminRecipient) (*domain.AdminRecipient, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	query := `
		INSERT INTO admin_recipients (id, email, name, is_active, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (email) DO UPDATE
		SET name = EXCLUDED.name,
		    is_active = EXCLUDED.is_active
		RETURNING id, email, name, is_active, created_at
	`

	var out domain.AdminRecipient
	err := r.db.QueryRow(ctx, query, rec.ID, rec.Email, rec.Name, rec.IsActive).Scan(
		&out.ID,
		&out.Email,
		&out.Name,
		&out.IsActive,
		&out.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *RecipientRepo) List(ctx context.Context, activeOnly bool) ([]*domain.AdminRecipient, error) {
	query := `SELECT id, email, name, is_active, created_at FROM admin_recipients`
	if activeOnly {
		query += ` WHERE is_active = true`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipients []*domain.AdminRecipient
	for rows.Next() {
		var rec domain.AdminRecipient
		if err := rows.Scan(&rec.ID, &rec.Email, &rec.Name, &rec.IsActive, &rec.CreatedAt); err != nil {
			return nil, err
		}
		recipients = append(recipients, &rec)
	}
	return recipients, rows.Err()
}

func (r *RecipientRepo) ListActive(ctx context.Context) ([]*domain.AdminRecipient, error) {
	return r.List(ctx, true)
}

// Deactivate flips is_active off, the preferred removal path.
func (r *RecipientRepo) Deactivate(ctx context.Context, email string) error {
	ct, err := r.db.Exec(ctx,
		`UPDATE admin_recipients SET is_active = false WHERE email = $1`, email)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// Delete hard-removes the recipient row.
func (r *RecipientRepo) Delete(ctx context.Context, email string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM admin_recipients WHERE email = $1`, email)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}
