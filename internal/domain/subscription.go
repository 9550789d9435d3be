package domain

import (
	"math"
	"time"
)

// SubscriptionStatus is derived from the days left before expiry.
type SubscriptionStatus string

const (
	StatusActive       SubscriptionStatus = "active"
	StatusExpiringSoon SubscriptionStatus = "expiring-soon"
	StatusExpired      SubscriptionStatus = "expired"
)

// DefaultExpiringSoonDays is the inclusive upper bound of the expiring-soon band.
const DefaultExpiringSoonDays = 10

// ParseSubscriptionStatus accepts the three status names.
func ParseSubscriptionStatus(s string) (SubscriptionStatus, bool) {
	switch SubscriptionStatus(s) {
	case StatusActive, StatusExpiringSoon, StatusExpired:
		return SubscriptionStatus(s), true
	}
	return "", false
}

// StatusForDays classifies a days-remaining value. soonDays is the
// inclusive upper bound of the expiring-soon band.
func StatusForDays(days, soonDays int) SubscriptionStatus {
	switch {
	case days <= 0:
		return StatusExpired
	case days <= soonDays:
		return StatusExpiringSoon
	default:
		return StatusActive
	}
}

// DaysUntil returns ceil((expiry - now) / 24h). Time of day is not
// normalized, so a subscription expiring later today reports 1.
func DaysUntil(expiry, now time.Time) int {
	return int(math.Ceil(expiry.Sub(now).Hours() / 24))
}

// IntakeFields holds the free-form answers collected when a person joins.
type IntakeFields struct {
	Gender     *string `json:"gender,omitempty"`
	Location   *string `json:"location,omitempty"`
	Problems   *string `json:"problems,omitempty"`
	JoinReason *string `json:"join_reason,omitempty"`
	Referral   *string `json:"referral,omitempty"`
	// Agreements maps agreement name to the recorded answer; unanswered
	// agreements are absent.
	Agreements map[string]bool `json:"agreements,omitempty"`
}

// Subscription is one row of the subscriptions record set, active or expired.
type Subscription struct {
	ID               string       `json:"id"`
	CustomerName     string       `json:"customer_name"`
	TelegramUsername string       `json:"telegram_username"`
	TelegramUserID   int64        `json:"telegram_user_id"`
	Phone            *string      `json:"phone"`
	Email            *string      `json:"email"`
	PlanDuration     string       `json:"plan_duration"`
	PlanName         string       `json:"plan_name"`
	StartDate        time.Time    `json:"start_date"`
	ExpiryDate       time.Time    `json:"expiry_date"`
	ReminderDate     *time.Time   `json:"reminder_date,omitempty"`
	Signed           *bool        `json:"signed"`
	Intake           IntakeFields `json:"intake"`
}

// IsSigned is true only when the signed flag is explicitly true.
func (s Subscription) IsSigned() bool {
	return s.Signed != nil && *s.Signed
}

// DaysRemaining returns the days left before expiry as seen at now.
func (s Subscription) DaysRemaining(now time.Time) int {
	return DaysUntil(s.ExpiryDate, now)
}

// Status returns the subscription status at now using soonDays as the
// expiring-soon threshold.
func (s Subscription) Status(now time.Time, soonDays int) SubscriptionStatus {
	return StatusForDays(s.DaysRemaining(now), soonDays)
}

// SubscriptionView is a subscription with its days remaining and status
// evaluated at one instant.
type SubscriptionView struct {
	Subscription
	DaysRemaining int                `json:"days_remaining"`
	Status        SubscriptionStatus `json:"status"`
	PhoneDisplay  string             `json:"phone_display,omitempty"`
}

// ViewAt evaluates s at now.
func (s Subscription) ViewAt(now time.Time, soonDays int) SubscriptionView {
	days := s.DaysRemaining(now)
	return SubscriptionView{
		Subscription:  s,
		DaysRemaining: days,
		Status:        StatusForDays(days, soonDays),
	}
}
