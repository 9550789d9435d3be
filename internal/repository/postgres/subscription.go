package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ignite/funnel-monitor/internal/domain"
)

// AgreementColumns are the nullable consent flags of telegram_subscriptions.
// They are camel-cased in the table and must be quoted.
var AgreementColumns = []string{
	"hookupAgreement",
	"privacyAgreement",
	"participationAgreement",
	"respectAgreement",
	"contentAgreement",
	"nonJudgmentalAgreement",
	"participateAgreement",
	"sensitiveTopicsAgreement",
	"anonymityAgreement",
	"liabilityAgreement",
	"explicitLanguageAgreement",
	"additionalGuidelinesAgreement",
	"privacySettingsAgreement",
	"impliedSignatureAgreement",
}

var subscriptionQuery = func() string {
	quoted := make([]string, len(AgreementColumns))
	for i, c := range AgreementColumns {
		quoted[i] = `"` + c + `"`
	}
	return `
		SELECT id::text, COALESCE(customer_name, ''), COALESCE(telegram_username, ''),
		       telegram_user_id, phone_number::text, email,
		       COALESCE(plan_duration::text, ''), COALESCE(plan_name, ''),
		       start_date, expiry_date, reminder_date, signed,
		       gender, location, problems, "joinReason", referral,
		       ` + strings.Join(quoted, ", ") + `
		FROM telegram_subscriptions
		ORDER BY start_date DESC`
}()

// SubscriptionRepo implements subscriptions.Repository against telegram_subscriptions.
type SubscriptionRepo struct{ db *sql.DB }

// NewSubscriptionRepo creates a Postgres-backed subscriptions repository.
func NewSubscriptionRepo(db *sql.DB) *SubscriptionRepo { return &SubscriptionRepo{db: db} }

func (r *SubscriptionRepo) AllSubscriptions(ctx context.Context) ([]domain.Subscription, error) {
	rows, err := r.db.QueryContext(ctx, subscriptionQuery)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	out := []domain.Subscription{}
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return out, nil
}

func scanSubscription(rows *sql.Rows) (domain.Subscription, error) {
	var s domain.Subscription
	var userID sql.NullInt64
	var phone, email sql.NullString
	var reminder sql.NullTime
	var signed sql.NullBool
	var gender, location, problems, joinReason, referral sql.NullString
	agreements := make([]sql.NullBool, len(AgreementColumns))

	dest := []interface{}{
		&s.ID, &s.CustomerName, &s.TelegramUsername,
		&userID, &phone, &email,
		&s.PlanDuration, &s.PlanName,
		&s.StartDate, &s.ExpiryDate, &reminder, &signed,
		&gender, &location, &problems, &joinReason, &referral,
	}
	for i := range agreements {
		dest = append(dest, &agreements[i])
	}
	if err := rows.Scan(dest...); err != nil {
		return s, fmt.Errorf("scan subscription: %w", err)
	}

	s.TelegramUserID = userID.Int64
	s.Phone = nullString(phone)
	s.Email = nullString(email)
	if reminder.Valid {
		t := reminder.Time
		s.ReminderDate = &t
	}
	if signed.Valid {
		b := signed.Bool
		s.Signed = &b
	}
	s.Intake = domain.IntakeFields{
		Gender:     nullString(gender),
		Location:   nullString(location),
		Problems:   nullString(problems),
		JoinReason: nullString(joinReason),
		Referral:   nullString(referral),
	}
	for i, a := range agreements {
		if !a.Valid {
			continue
		}
		if s.Intake.Agreements == nil {
			s.Intake.Agreements = make(map[string]bool)
		}
		s.Intake.Agreements[AgreementColumns[i]] = a.Bool
	}
	return s, nil
}
