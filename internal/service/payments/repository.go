package payments

import (
	"context"

	"github.com/ignite/funnel-monitor/internal/domain"
	"github.com/ignite/funnel-monitor/internal/listing"
)

// Repository defines the data access contract for the payments record set.
type Repository interface {
	// List returns one page of payments matching the filter, newest first,
	// and the number of payments matching it in total.
	List(ctx context.Context, filter ListFilter) ([]domain.Payment, int, error)

	// Matching returns every payment matching the filter, ignoring Limit and Offset.
	Matching(ctx context.Context, filter ListFilter) ([]domain.Payment, error)

	// Products returns the distinct product names, sorted.
	Products(ctx context.Context) ([]string, error)
}

// ListFilter is the set of predicates a Repository applies. Zero values
// disable a predicate.
type ListFilter struct {
	Status  domain.PaymentStatus
	Product string
	Range   listing.DateRange
	// Search matches email, phone and order id case-insensitively.
	Search string
	Limit  int
	Offset int
}
