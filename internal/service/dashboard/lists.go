package dashboard

import (
	"context"
	"time"

	"github.com/ignite/funnel-monitor/internal/domain"
	"github.com/ignite/funnel-monitor/internal/funnel"
	"github.com/ignite/funnel-monitor/internal/identity"
	"github.com/ignite/funnel-monitor/internal/listing"
)

// Funnel list names.
const (
	ListPayments        = "payments"
	ListActive          = "active"
	ListSigned          = "signed"
	ListPaidNotSigned   = "paid-not-signed"
	ListStale           = "stale"
	ListExpiredUnsigned = "expired-unsigned"
	ListDeleted         = "deleted"
)

// ListNames lists every name accepted by List.
var ListNames = []string{
	ListPayments, ListActive, ListSigned, ListPaidNotSigned,
	ListStale, ListExpiredUnsigned, ListDeleted,
}

var paymentSpec = listing.Spec[funnel.ClassifiedPayment]{
	Fields: []listing.Field[funnel.ClassifiedPayment]{
		{Name: "email", Value: func(p funnel.ClassifiedPayment) string { return str(p.Email) }},
		{Name: "phone", Value: func(p funnel.ClassifiedPayment) string { return identity.PhoneString(p.Phone) }},
		{Name: "order", Value: func(p funnel.ClassifiedPayment) string { return p.OrderID }},
		{Name: "product", Value: func(p funnel.ClassifiedPayment) string { return p.Product }},
	},
	DateOf: func(p funnel.ClassifiedPayment) time.Time { return p.CreatedAt },
}

var subscriptionSpec = listing.Spec[domain.SubscriptionView]{
	Fields: []listing.Field[domain.SubscriptionView]{
		{Name: "customer", Value: func(v domain.SubscriptionView) string { return v.CustomerName }},
		{Name: "username", Value: func(v domain.SubscriptionView) string { return v.TelegramUsername }},
		{Name: "phone", Value: func(v domain.SubscriptionView) string { return identity.PhoneString(v.Phone) }},
		{Name: "email", Value: func(v domain.SubscriptionView) string { return str(v.Email) }},
	},
	DateOf: func(v domain.SubscriptionView) time.Time { return v.StartDate },
}

var contactSpec = listing.Spec[domain.Contact]{
	Fields: []listing.Field[domain.Contact]{
		{Name: "email", Value: func(c domain.Contact) string { return str(c.Email) }},
		{Name: "phone", Value: func(c domain.Contact) string { return identity.PhoneString(c.Phone) }},
	},
}

// List windows one of the lists behind the funnel KPIs. The result is a
// listing.Result of ClassifiedPayment, SubscriptionView or Contact
// depending on name.
func (s *Service) List(ctx context.Context, name string, p listing.Params) (interface{}, error) {
	view, err := s.View(ctx)
	if err != nil {
		return nil, err
	}
	r := view.Report

	switch name {
	case ListPayments:
		return listing.Apply(r.Payments, paymentSpec, p)
	case ListPaidNotSigned:
		return listing.Apply(r.RecentPaidNotSigned, paymentSpec, p)
	case ListStale:
		return listing.Apply(r.StalePaidNotSigned, paymentSpec, p)
	case ListActive:
		return listing.Apply(r.Active, subscriptionSpec, p)
	case ListSigned:
		return listing.Apply(r.SignedList, subscriptionSpec, p)
	case ListExpiredUnsigned:
		return listing.Apply(r.ExpiredUnsigned, subscriptionSpec, p)
	case ListDeleted:
		return listing.Apply(r.ChurnedDeleted, contactSpec, p)
	}
	return nil, ErrUnknownList
}

// PaidNotSigned windows the recent paid-not-signed list narrowed to rng
// (all, 7days or 30days).
func (s *Service) PaidNotSigned(ctx context.Context, rng string, p listing.Params) (listing.Result[funnel.ClassifiedPayment], error) {
	var empty listing.Result[funnel.ClassifiedPayment]
	view, err := s.View(ctx)
	if err != nil {
		return empty, err
	}
	items, err := view.Report.PaidNotSignedWithin(rng)
	if err != nil {
		return empty, err
	}
	return listing.Apply(items, paymentSpec, p)
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
