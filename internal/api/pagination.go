package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ignite/funnel-monitor/internal/listing"
)

// PaginationParams holds parsed pagination values from query params.
type PaginationParams struct {
	Page  int
	Limit int
}

// ParsePagination extracts page and limit. Page defaults to 1; limit is
// clamped to [1, maxLimit] and defaults to defaultLimit.
func ParsePagination(r *http.Request, defaultLimit, maxLimit int) PaginationParams {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	return PaginationParams{
		Page:  page,
		Limit: listing.ClampPageSize(limit, defaultLimit, maxLimit),
	}
}

// dateRange resolves from/to (YYYY-MM-DD) or the range preset. Explicit
// dates win over the preset.
func (h *Handlers) dateRange(r *http.Request) (listing.DateRange, error) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if from != "" || to != "" {
		return listing.DayRange(from, to, h.opts.Location)
	}
	return listing.Preset(q.Get("range"), h.opts.Now().In(h.opts.Location))
}

// listParams parses search, field, date range and pagination for the
// in-memory funnel lists.
func (h *Handlers) listParams(r *http.Request) (listing.Params, error) {
	pg := ParsePagination(r, h.opts.DefaultPageSize, h.opts.MaxPageSize)
	rng, err := h.dateRange(r)
	if err != nil {
		return listing.Params{}, err
	}
	return listing.Params{
		Search:      strings.TrimSpace(r.URL.Query().Get("search")),
		SearchField: r.URL.Query().Get("field"),
		Range:       rng,
		Page:        pg.Page,
		PageSize:    pg.Limit,
	}, nil
}

func optional(r *http.Request, key string) *string {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return nil
	}
	return &v
}
