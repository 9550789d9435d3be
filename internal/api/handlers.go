package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/ignite/funnel-monitor/internal/funnel"
	"github.com/ignite/funnel-monitor/internal/listing"
	"github.com/ignite/funnel-monitor/internal/pkg/logger"
	"github.com/ignite/funnel-monitor/internal/service/dashboard"
	"github.com/ignite/funnel-monitor/internal/service/payments"
	"github.com/ignite/funnel-monitor/internal/service/subscriptions"
	"github.com/ignite/funnel-monitor/internal/storage"
)

// HistoryStore serves archived views and their KPI history.
type HistoryStore interface {
	History(ctx context.Context, from, to time.Time) ([]storage.KPIRecord, error)
	Report(ctx context.Context, id string) (*dashboard.View, error)
}

// Options tunes query parsing. Zero values take defaults.
type Options struct {
	Location        *time.Location
	DefaultPageSize int
	MaxPageSize     int
	Now             func() time.Time
}

// Handlers holds the dependencies of the API handlers
type Handlers struct {
	payments      *payments.Service
	subscriptions *subscriptions.Service
	dashboard     *dashboard.Service
	history       HistoryStore
	opts          Options
}

// NewHandlers creates the handlers. history may be nil.
func NewHandlers(p *payments.Service, s *subscriptions.Service, d *dashboard.Service, history HistoryStore, opts Options) *Handlers {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.DefaultPageSize < 1 {
		opts.DefaultPageSize = listing.DefaultPageSize
	}
	if opts.MaxPageSize < 1 {
		opts.MaxPageSize = listing.MaxPageSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Handlers{payments: p, subscriptions: s, dashboard: d, history: history, opts: opts}
}

// clientErrors are mapped to 400 by every handler.
var clientErrors = []error{
	payments.ErrInvalidStatus,
	payments.ErrInvalidFilter,
	subscriptions.ErrInvalidStatus,
	subscriptions.ErrInvalidSigned,
	subscriptions.ErrInvalidFilter,
	dashboard.ErrUnknownList,
	funnel.ErrUnknownRange,
	listing.ErrUnknownField,
	listing.ErrUnknownPreset,
	listing.ErrInvalidDate,
}

var requestLog = logger.New("http")

// requestLogger logs one line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		requestLog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Millisecond).String(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
