package postgres

import (
	"database/sql"

	"github.com/ignite/funnel-monitor/internal/service/dashboard"
	"github.com/ignite/funnel-monitor/internal/service/payments"
	"github.com/ignite/funnel-monitor/internal/service/subscriptions"
)

var (
	_ dashboard.RecordSource   = (*Records)(nil)
	_ payments.Repository      = (*PaymentRepo)(nil)
	_ subscriptions.Repository = (*SubscriptionRepo)(nil)
)

// Records bundles the repositories that feed a funnel refresh.
type Records struct {
	*PaymentRepo
	*SubscriptionRepo
	*ContactRepo
}

// NewRecords creates the record source over one database handle.
func NewRecords(db *sql.DB) *Records {
	return &Records{
		PaymentRepo:      NewPaymentRepo(db),
		SubscriptionRepo: NewSubscriptionRepo(db),
		ContactRepo:      NewContactRepo(db),
	}
}
