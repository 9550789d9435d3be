package dashboard

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ignite/funnel-monitor/internal/funnel"
	"github.com/ignite/funnel-monitor/internal/pkg/logger"
)

// Record set names used in warnings.
const (
	SourcePayments       = "payments"
	SourceSubscriptions  = "subscriptions"
	SourceDeleted        = "deleted"
	SourceFormAgreements = "form_agreements"
)

// Warning reports a record set that could not be loaded and was treated as empty.
type Warning struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

// load fetches all four record sets concurrently. Each fetch writes only
// its own slot, and a failure leaves that slot empty instead of aborting
// the others.
func load(ctx context.Context, src RecordSource) (*funnel.Snapshot, []Warning) {
	snap := &funnel.Snapshot{}
	errs := make([]error, 4)

	var g errgroup.Group
	g.Go(func() error {
		snap.Payments, errs[0] = src.SuccessfulPayments(ctx)
		return nil
	})
	g.Go(func() error {
		snap.Subscriptions, errs[1] = src.AllSubscriptions(ctx)
		return nil
	})
	g.Go(func() error {
		snap.Deleted, errs[2] = src.DeletedContacts(ctx)
		return nil
	})
	g.Go(func() error {
		snap.FormAgreements, errs[3] = src.FormAgreements(ctx)
		return nil
	})
	_ = g.Wait()

	var warnings []Warning
	for i, name := range []string{SourcePayments, SourceSubscriptions, SourceDeleted, SourceFormAgreements} {
		if errs[i] == nil {
			continue
		}
		logger.Warn("record set load failed, using empty set", "source", name, "error", errs[i])
		warnings = append(warnings, Warning{Source: name, Message: errs[i].Error()})
	}
	if errs[0] != nil {
		snap.Payments = nil
	}
	if errs[1] != nil {
		snap.Subscriptions = nil
	}
	if errs[2] != nil {
		snap.Deleted = nil
	}
	if errs[3] != nil {
		snap.FormAgreements = nil
	}
	return snap, warnings
}
