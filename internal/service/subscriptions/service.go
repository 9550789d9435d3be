package subscriptions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/funnel-monitor/internal/domain"
	"github.com/ignite/funnel-monitor/internal/identity"
	"github.com/ignite/funnel-monitor/internal/listing"
)

// Signed filter values.
const (
	SignedAll = "all"
	SignedYes = "signed"
	SignedNo  = "not-signed"
)

const statusAll = "all"

// Settings tunes the service. Zero values take defaults.
type Settings struct {
	Location         *time.Location
	ExpiringSoonDays int
	DefaultPageSize  int
	MaxPageSize      int
	Now              func() time.Time
}

// Service implements the subscriptions queries.
type Service struct {
	repo     Repository
	settings Settings
}

// NewService creates a subscriptions service backed by the given repository.
func NewService(repo Repository, settings Settings) *Service {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if settings.ExpiringSoonDays < 1 {
		settings.ExpiringSoonDays = domain.DefaultExpiringSoonDays
	}
	if settings.DefaultPageSize < 1 {
		settings.DefaultPageSize = listing.DefaultPageSize
	}
	if settings.MaxPageSize < 1 {
		settings.MaxPageSize = listing.MaxPageSize
	}
	if settings.Now == nil {
		settings.Now = time.Now
	}
	return &Service{repo: repo, settings: settings}
}

// Query is a subscriptions table request. Empty selectors mean "all".
type Query struct {
	Search string
	// Field is one of all, customer, username, phone.
	Field    string
	Plan     string
	Status   string
	Signed   string
	From     string
	To       string
	Preset   string
	Page     int
	PageSize int
}

var rowSpec = listing.Spec[domain.SubscriptionView]{
	Fields: []listing.Field[domain.SubscriptionView]{
		{Name: "customer", Value: func(v domain.SubscriptionView) string { return v.CustomerName }},
		{Name: "username", Value: func(v domain.SubscriptionView) string { return v.TelegramUsername }},
		{Name: "phone", Value: func(v domain.SubscriptionView) string { return identity.PhoneString(v.Phone) }},
	},
	DateOf: func(v domain.SubscriptionView) time.Time { return v.StartDate },
}

// List returns one page of subscriptions, latest start date first.
func (s *Service) List(ctx context.Context, q Query) (listing.Result[domain.SubscriptionView], error) {
	var empty listing.Result[domain.SubscriptionView]

	preds, rng, err := s.predicates(q)
	if err != nil {
		return empty, err
	}

	subs, err := s.repo.AllSubscriptions(ctx)
	if err != nil {
		return empty, err
	}

	now := s.settings.Now()
	rows := make([]domain.SubscriptionView, len(subs))
	for i, sub := range subs {
		rows[i] = sub.ViewAt(now, s.settings.ExpiringSoonDays)
		rows[i].PhoneDisplay = identity.DisplayPhone(sub.Phone)
	}

	params := listing.Params{
		Search:      q.Search,
		SearchField: q.Field,
		Range:       rng,
		Page:        q.Page,
		PageSize:    listing.ClampPageSize(q.PageSize, s.settings.DefaultPageSize, s.settings.MaxPageSize),
	}
	res, err := listing.Apply(rows, rowSpec, params, preds...)
	if err != nil {
		return empty, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	return res, nil
}

func (s *Service) predicates(q Query) ([]listing.Predicate[domain.SubscriptionView], listing.DateRange, error) {
	var preds []listing.Predicate[domain.SubscriptionView]

	if q.Plan != "" && q.Plan != statusAll {
		plan := q.Plan
		preds = append(preds, func(v domain.SubscriptionView) bool { return v.PlanName == plan })
	}

	if q.Status != "" && q.Status != statusAll {
		status, ok := domain.ParseSubscriptionStatus(q.Status)
		if !ok {
			return nil, listing.DateRange{}, fmt.Errorf("%w: %q", ErrInvalidStatus, q.Status)
		}
		preds = append(preds, func(v domain.SubscriptionView) bool { return v.Status == status })
	}

	switch strings.ToLower(q.Signed) {
	case "", SignedAll:
	case SignedYes:
		preds = append(preds, func(v domain.SubscriptionView) bool { return v.IsSigned() })
	case SignedNo:
		preds = append(preds, func(v domain.SubscriptionView) bool { return !v.IsSigned() })
	default:
		return nil, listing.DateRange{}, fmt.Errorf("%w: %q", ErrInvalidSigned, q.Signed)
	}

	var rng listing.DateRange
	var err error
	if q.From != "" || q.To != "" {
		rng, err = listing.DayRange(q.From, q.To, s.settings.Location)
	} else {
		rng, err = listing.Preset(q.Preset, s.settings.Now().In(s.settings.Location))
	}
	if err != nil {
		return nil, listing.DateRange{}, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	return preds, rng, nil
}

// Plans returns the distinct plan names in first-seen order.
func (s *Service) Plans(ctx context.Context) ([]string, error) {
	subs, err := s.repo.AllSubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	plans := []string{}
	for _, sub := range subs {
		if sub.PlanName == "" {
			continue
		}
		if _, ok := seen[sub.PlanName]; ok {
			continue
		}
		seen[sub.PlanName] = struct{}{}
		plans = append(plans, sub.PlanName)
	}
	return plans, nil
}
