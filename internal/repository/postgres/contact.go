package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/funnel-monitor/internal/domain"
)

// ContactRepo reads the identity-only tables: deleted subscriptions and
// signed form agreements.
type ContactRepo struct{ db *sql.DB }

// NewContactRepo creates a Postgres-backed contact repository.
func NewContactRepo(db *sql.DB) *ContactRepo { return &ContactRepo{db: db} }

// DeletedContacts returns the tombstones of removed subscriptions.
func (r *ContactRepo) DeletedContacts(ctx context.Context) ([]domain.Contact, error) {
	return r.contacts(ctx, "telegram_sub_deleted")
}

// FormAgreements returns everyone who signed the intake form.
func (r *ContactRepo) FormAgreements(ctx context.Context) ([]domain.Contact, error) {
	return r.contacts(ctx, "telegram_form_agreements")
}

func (r *ContactRepo) contacts(ctx context.Context, table string) ([]domain.Contact, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT email, phone_number::text FROM "+table)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	out := []domain.Contact{}
	for rows.Next() {
		var email, phone sql.NullString
		if err := rows.Scan(&email, &phone); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		out = append(out, domain.Contact{Email: nullString(email), Phone: nullString(phone)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	return out, nil
}
