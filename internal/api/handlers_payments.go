package api

import (
	"net/http"

	"github.com/ignite/funnel-monitor/internal/pkg/httputil"
	"github.com/ignite/funnel-monitor/internal/service/payments"
)

func (h *Handlers) paymentQuery(r *http.Request) payments.Query {
	q := r.URL.Query()
	pg := ParsePagination(r, h.opts.DefaultPageSize, h.opts.MaxPageSize)
	return payments.Query{
		Status:   q.Get("status"),
		Product:  q.Get("product"),
		From:     q.Get("from"),
		To:       q.Get("to"),
		Preset:   q.Get("range"),
		Search:   q.Get("search"),
		Page:     pg.Page,
		PageSize: pg.Limit,
	}
}

// ListPayments returns one page of the payments table.
//
//	GET /api/payments?status=&product=&from=&to=&range=&search=&page=&limit=
func (h *Handlers) ListPayments(w http.ResponseWriter, r *http.Request) {
	res, err := h.payments.List(r.Context(), h.paymentQuery(r))
	if err != nil {
		httputil.Fail(w, err, clientErrors...)
		return
	}
	httputil.OK(w, res)
}

// PaymentsOverview returns the KPI header and revenue by product.
//
//	GET /api/payments/overview
func (h *Handlers) PaymentsOverview(w http.ResponseWriter, r *http.Request) {
	ov, err := h.payments.Overview(r.Context(), h.paymentQuery(r))
	if err != nil {
		httputil.Fail(w, err, clientErrors...)
		return
	}
	httputil.OK(w, ov)
}

// PaymentProducts lists the product names for the filter.
//
//	GET /api/payments/products
func (h *Handlers) PaymentProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.payments.Products(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"products": products})
}
