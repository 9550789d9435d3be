package api

import (
	"net/http"

	"github.com/ignite/funnel-monitor/internal/pkg/httputil"
	"github.com/ignite/funnel-monitor/internal/service/subscriptions"
)

// ListSubscriptions returns one page of the subscriptions table.
//
//	GET /api/subscriptions?search=&field=&plan=&status=&signed=&from=&to=&range=&page=&limit=
func (h *Handlers) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pg := ParsePagination(r, h.opts.DefaultPageSize, h.opts.MaxPageSize)

	res, err := h.subscriptions.List(r.Context(), subscriptions.Query{
		Search:   q.Get("search"),
		Field:    q.Get("field"),
		Plan:     q.Get("plan"),
		Status:   q.Get("status"),
		Signed:   q.Get("signed"),
		From:     q.Get("from"),
		To:       q.Get("to"),
		Preset:   q.Get("range"),
		Page:     pg.Page,
		PageSize: pg.Limit,
	})
	if err != nil {
		httputil.Fail(w, err, clientErrors...)
		return
	}
	httputil.OK(w, res)
}

// SubscriptionPlans lists the distinct plan names.
//
//	GET /api/subscriptions/plans
func (h *Handlers) SubscriptionPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.subscriptions.Plans(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"plans": plans})
}
