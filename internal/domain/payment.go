package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the gateway outcome stored with each payment row.
type PaymentStatus string

const (
	PaymentSuccess PaymentStatus = "SUCCESS"
	PaymentFailed  PaymentStatus = "FAILED"
	PaymentPending PaymentStatus = "PENDING"
)

// ParsePaymentStatus maps a case-insensitive status name to a PaymentStatus.
func ParsePaymentStatus(s string) (PaymentStatus, bool) {
	switch PaymentStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case PaymentSuccess:
		return PaymentSuccess, true
	case PaymentFailed:
		return PaymentFailed, true
	case PaymentPending:
		return PaymentPending, true
	}
	return "", false
}

// Payment is one row of the payments record set. Phone is stored as a
// number upstream and is carried here in its textual form. PhoneDisplay is
// filled in by the services that list payments.
type Payment struct {
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Status       PaymentStatus   `json:"status"`
	OrderID      string          `json:"order_id"`
	Phone        *string         `json:"phone"`
	PhoneDisplay string          `json:"phone_display,omitempty"`
	Email        *string         `json:"email"`
	Product      string          `json:"product"`
	Note         *string         `json:"note,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Succeeded reports whether the payment completed.
func (p Payment) Succeeded() bool {
	return p.Status == PaymentSuccess
}
