package subscriptions

import (
	"context"

	"github.com/ignite/funnel-monitor/internal/domain"
)

// Repository defines the data access contract for the subscriptions record set.
type Repository interface {
	// AllSubscriptions returns every subscription row, active or expired.
	AllSubscriptions(ctx context.Context) ([]domain.Subscription, error)
}
