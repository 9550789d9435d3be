package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/funnel-monitor/internal/funnel"
	"github.com/ignite/funnel-monitor/internal/listing"
	"github.com/ignite/funnel-monitor/internal/pkg/httputil"
	"github.com/ignite/funnel-monitor/internal/service/dashboard"
	"github.com/ignite/funnel-monitor/internal/storage"
)

// FunnelSummary is the KPI payload of the funnel dashboard.
type FunnelSummary struct {
	ID          string              `json:"id"`
	Generation  uint64              `json:"generation"`
	RefreshedAt time.Time           `json:"refreshed_at"`
	EvaluatedAt time.Time           `json:"evaluated_at"`
	Counts      funnel.Counts       `json:"counts"`
	Buckets     []funnel.BucketSize `json:"buckets"`
	Warnings    []dashboard.Warning `json:"warnings"`
	Lists       []string            `json:"lists"`
}

func summarize(v *dashboard.View) FunnelSummary {
	s := FunnelSummary{
		ID:          v.ID,
		Generation:  v.Generation,
		RefreshedAt: v.RefreshedAt,
		Warnings:    v.Warnings,
		Lists:       dashboard.ListNames,
	}
	if s.Warnings == nil {
		s.Warnings = []dashboard.Warning{}
	}
	if v.Report != nil {
		s.EvaluatedAt = v.Report.EvaluatedAt
		s.Counts = v.Report.Counts
	}
	s.Buckets = s.Counts.Breakdown()
	return s
}

// GetFunnel returns the current funnel KPIs.
//
//	GET /api/funnel
func (h *Handlers) GetFunnel(w http.ResponseWriter, r *http.Request) {
	v, err := h.dashboard.View(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, summarize(v))
}

// RefreshFunnel rebuilds the funnel view now.
//
//	POST /api/funnel/refresh
func (h *Handlers) RefreshFunnel(w http.ResponseWriter, r *http.Request) {
	v, err := h.dashboard.Refresh(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, summarize(v))
}

// FunnelList returns one page of a named funnel list.
//
//	GET /api/funnel/lists/{list}?search=&field=&from=&to=&range=&page=&limit=
func (h *Handlers) FunnelList(w http.ResponseWriter, r *http.Request) {
	p, err := h.listParams(r)
	if err != nil {
		httputil.Fail(w, err, clientErrors...)
		return
	}
	res, err := h.dashboard.List(r.Context(), chi.URLParam(r, "list"), p)
	if errors.Is(err, dashboard.ErrUnknownList) {
		httputil.NotFound(w, err.Error())
		return
	}
	if err != nil {
		httputil.Fail(w, err, clientErrors...)
		return
	}
	httputil.OK(w, res)
}

// PaidNotSigned returns recent payers without a subscription, narrowed
// by range.
//
//	GET /api/funnel/paid-not-signed?range=all|7days|30days
func (h *Handlers) PaidNotSigned(w http.ResponseWriter, r *http.Request) {
	pg := ParsePagination(r, h.opts.DefaultPageSize, h.opts.MaxPageSize)
	p := listing.Params{
		Search:      r.URL.Query().Get("search"),
		SearchField: r.URL.Query().Get("field"),
		Page:        pg.Page,
		PageSize:    pg.Limit,
	}
	res, err := h.dashboard.PaidNotSigned(r.Context(), r.URL.Query().Get("range"), p)
	if err != nil {
		httputil.Fail(w, err, clientErrors...)
		return
	}
	httputil.OK(w, res)
}

// Lookup cross-references one customer across the record sets.
//
//	GET /api/funnel/lookup?email=&phone=
func (h *Handlers) Lookup(w http.ResponseWriter, r *http.Request) {
	email, phone := optional(r, "email"), optional(r, "phone")
	if email == nil && phone == nil {
		httputil.BadRequest(w, "email or phone is required")
		return
	}
	ref, err := h.dashboard.Lookup(r.Context(), email, phone)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, ref)
}

// History returns the KPI records of past refreshes.
//
//	GET /api/funnel/history?from=&to=&range=
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		httputil.Unavailable(w, "history is not configured")
		return
	}
	rng, err := h.dateRange(r)
	if err != nil {
		httputil.Fail(w, err, clientErrors...)
		return
	}
	records, err := h.history.History(r.Context(), rng.From, rng.To)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"records": records})
}

// Report returns one archived view.
//
//	GET /api/funnel/reports/{id}
func (h *Handlers) Report(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		httputil.Unavailable(w, "history is not configured")
		return
	}
	v, err := h.history.Report(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, storage.ErrNotFound) {
		httputil.NotFound(w, err.Error())
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, v)
}
