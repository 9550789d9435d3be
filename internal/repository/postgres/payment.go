package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ignite/funnel-monitor/internal/domain"
	"github.com/ignite/funnel-monitor/internal/service/payments"
)

const paymentColumns = `
		amount, COALESCE(currency, ''), COALESCE(status, ''),
		COALESCE(razorpay_order_id, ''), phone::text, email,
		COALESCE(product, ''), note, created_at`

// PaymentRepo implements payments.Repository against payments_kb_all.
type PaymentRepo struct{ db *sql.DB }

// NewPaymentRepo creates a Postgres-backed payments repository.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// likePattern escapes LIKE metacharacters and wraps s for a substring match.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// paymentWhere renders the filter predicates, numbering placeholders from 1.
func paymentWhere(f payments.ListFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	add := func(cond string, val interface{}) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.Product != "" {
		add("product = $%d", f.Product)
	}
	if !f.Range.From.IsZero() {
		add("created_at >= $%d", f.Range.From)
	}
	if !f.Range.To.IsZero() {
		add("created_at <= $%d", f.Range.To)
	}
	if f.Search != "" {
		args = append(args, likePattern(f.Search))
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(email ILIKE $%d OR phone::text ILIKE $%d OR razorpay_order_id ILIKE $%d)", n, n, n))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *PaymentRepo) List(ctx context.Context, f payments.ListFilter) ([]domain.Payment, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}
	where, args := paymentWhere(f)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM payments_kb_all"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}

	q := "SELECT" + paymentColumns + "\n\t\tFROM payments_kb_all" + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, f.Offset)

	out, err := r.query(ctx, "list payments", q, args...)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *PaymentRepo) Matching(ctx context.Context, f payments.ListFilter) ([]domain.Payment, error) {
	where, args := paymentWhere(f)
	q := "SELECT" + paymentColumns + "\n\t\tFROM payments_kb_all" + where + " ORDER BY created_at DESC"
	return r.query(ctx, "matching payments", q, args...)
}

// SuccessfulPayments returns every SUCCESS payment, the input of the funnel classifier.
func (r *PaymentRepo) SuccessfulPayments(ctx context.Context) ([]domain.Payment, error) {
	return r.Matching(ctx, payments.ListFilter{Status: domain.PaymentSuccess})
}

func (r *PaymentRepo) Products(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT product FROM payments_kb_all
		WHERE product IS NOT NULL AND product <> ''
		ORDER BY product`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PaymentRepo) query(ctx context.Context, op, q string, args ...interface{}) ([]domain.Payment, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := []domain.Payment{}
	for rows.Next() {
		var p domain.Payment
		var status string
		var phone, email, note sql.NullString
		if err := rows.Scan(
			&p.Amount, &p.Currency, &status, &p.OrderID, &phone, &email,
			&p.Product, &note, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		if parsed, ok := domain.ParsePaymentStatus(status); ok {
			p.Status = parsed
		} else {
			p.Status = domain.PaymentStatus(status)
		}
		p.Phone = nullString(phone)
		p.Email = nullString(email)
		p.Note = nullString(note)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
