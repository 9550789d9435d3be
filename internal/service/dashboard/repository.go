package dashboard

import (
	"context"

	"github.com/ignite/funnel-monitor/internal/domain"
)

// RecordSource reads the four record sets the classifier joins.
type RecordSource interface {
	SuccessfulPayments(ctx context.Context) ([]domain.Payment, error)
	AllSubscriptions(ctx context.Context) ([]domain.Subscription, error)
	DeletedContacts(ctx context.Context) ([]domain.Contact, error)
	FormAgreements(ctx context.Context) ([]domain.Contact, error)
}

// ViewCache shares the latest view between replicas.
type ViewCache interface {
	// GetView returns the cached view; ok is false on a miss.
	GetView(ctx context.Context) (view *View, ok bool, err error)
	SetView(ctx context.Context, view *View) error
}

// Archiver keeps every published view for the KPI history.
type Archiver interface {
	SaveView(ctx context.Context, view *View) error
}
