package payments

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ignite/funnel-monitor/internal/domain"
	"github.com/ignite/funnel-monitor/internal/identity"
	"github.com/ignite/funnel-monitor/internal/listing"
)

const filterAll = "all"

// Settings tunes the service. Zero values take defaults.
type Settings struct {
	Location        *time.Location
	DefaultPageSize int
	MaxPageSize     int
	// Now is the clock used for date presets.
	Now func() time.Time
}

// Service implements the payments queries. It is safe for concurrent use.
type Service struct {
	repo     Repository
	settings Settings
}

// NewService creates a payments service backed by the given repository.
func NewService(repo Repository, settings Settings) *Service {
	if settings.Location == nil {
		settings.Location = time.UTC
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

// Query is a payments table request as received from a client.
type Query struct {
	Status  string
	Product string
	From    string
	To      string
	// Preset is a named date range; explicit From/To win over it.
	Preset   string
	Search   string
	Page     int
	PageSize int
}

// filter resolves q into repository predicates.
func (s *Service) filter(q Query) (ListFilter, error) {
	var f ListFilter

	if st := strings.TrimSpace(q.Status); st != "" && !strings.EqualFold(st, filterAll) {
		status, ok := domain.ParsePaymentStatus(st)
		if !ok {
			return f, fmt.Errorf("%w: %q", ErrInvalidStatus, q.Status)
		}
		f.Status = status
	}
	if q.Product != "" && q.Product != filterAll {
		f.Product = q.Product
	}

	var err error
	if q.From != "" || q.To != "" {
		f.Range, err = listing.DayRange(q.From, q.To, s.settings.Location)
	} else {
		f.Range, err = listing.Preset(q.Preset, s.settings.Now().In(s.settings.Location))
	}
	if err != nil {
		return f, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}

	f.Search = strings.TrimSpace(q.Search)
	return f, nil
}

// List returns one page of payments, newest first.
func (s *Service) List(ctx context.Context, q Query) (listing.Result[domain.Payment], error) {
	f, err := s.filter(q)
	if err != nil {
		return listing.Result[domain.Payment]{}, err
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	size := listing.ClampPageSize(q.PageSize, s.settings.DefaultPageSize, s.settings.MaxPageSize)
	f.Limit = size
	f.Offset = (page - 1) * size

	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return listing.Result[domain.Payment]{}, err
	}
	for i := range items {
		items[i].PhoneDisplay = identity.DisplayPhone(items[i].Phone)
	}
	return listing.Page(items, total, page, size), nil
}

// Products returns the product names for the filter dropdown.
func (s *Service) Products(ctx context.Context) ([]string, error) {
	return s.repo.Products(ctx)
}

// ProductRevenue is one row of the revenue-by-product breakdown.
type ProductRevenue struct {
	Product string          `json:"product"`
	Revenue decimal.Decimal `json:"revenue"`
	Orders  int             `json:"orders"`
	// Percentage is the share of total revenue, rounded to one decimal place.
	Percentage decimal.Decimal `json:"percentage"`
}

// Overview is the KPI header of the payments page.
type Overview struct {
	TotalRevenue       decimal.Decimal  `json:"total_revenue"`
	TotalOrders        int              `json:"total_orders"`
	SuccessfulPayments int              `json:"successful_payments"`
	UniqueCustomers    int              `json:"unique_customers"`
	Products           int              `json:"products"`
	RevenueByProduct   []ProductRevenue `json:"revenue_by_product"`
}

// Overview aggregates every payment matching q. Revenue counts successful
// payments only.
func (s *Service) Overview(ctx context.Context, q Query) (*Overview, error) {
	f, err := s.filter(q)
	if err != nil {
		return nil, err
	}
	all, err := s.repo.Matching(ctx, f)
	if err != nil {
		return nil, err
	}
	return Summarize(all), nil
}

// Summarize computes the overview of a payment set.
func Summarize(all []domain.Payment) *Overview {
	out := &Overview{
		TotalRevenue:     decimal.Zero,
		TotalOrders:      len(all),
		RevenueByProduct: []ProductRevenue{},
	}

	customers := make(map[string]struct{})
	products := make(map[string]struct{})
	byProduct := make(map[string]*ProductRevenue)

	for _, p := range all {
		if p.Email != nil {
			if e := identity.NormalizeEmail(*p.Email); e != "" {
				customers[e] = struct{}{}
			}
		}
		products[p.Product] = struct{}{}

		if !p.Succeeded() {
			continue
		}
		out.SuccessfulPayments++
		out.TotalRevenue = out.TotalRevenue.Add(p.Amount)

		row, ok := byProduct[p.Product]
		if !ok {
			row = &ProductRevenue{Product: p.Product, Revenue: decimal.Zero}
			byProduct[p.Product] = row
		}
		row.Revenue = row.Revenue.Add(p.Amount)
		row.Orders++
	}
	out.UniqueCustomers = len(customers)
	out.Products = len(products)

	hundred := decimal.NewFromInt(100)
	for _, row := range byProduct {
		row.Percentage = decimal.Zero
		if out.TotalRevenue.IsPositive() {
			row.Percentage = row.Revenue.Mul(hundred).Div(out.TotalRevenue).Round(1)
		}
		out.RevenueByProduct = append(out.RevenueByProduct, *row)
	}
	sort.Slice(out.RevenueByProduct, func(i, j int) bool {
		a, b := out.RevenueByProduct[i], out.RevenueByProduct[j]
		if !a.Revenue.Equal(b.Revenue) {
			return a.Revenue.GreaterThan(b.Revenue)
		}
		return a.Product < b.Product
	})
	return out
}
