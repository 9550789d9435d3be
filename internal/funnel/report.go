package funnel

import (
	"time"

	"github.com/ignite/funnel-monitor/internal/domain"
	"github.com/ignite/funnel-monitor/internal/identity"
)

// ClassifiedPayment is a funnel payment tagged with its bucket.
type ClassifiedPayment struct {
	domain.Payment
	Key    identity.Key        `json:"key"`
	Bucket domain.FunnelBucket `json:"bucket"`
	// Recent is set only for paid_not_signed payments inside the recent window.
	Recent bool `json:"recent"`
}

// Counts are the dashboard KPIs plus the size of every bucket.
type Counts struct {
	ActiveSubscriptions    int `json:"active_subscriptions"`
	Signed                 int `json:"signed"`
	PaidTotal              int `json:"paid_total"`
	PaidNotSignedRecent    int `json:"paid_not_signed_recent"`
	ExpiredUnsigned        int `json:"expired_unsigned"`
	DeletedNotResubscribed int `json:"deleted_not_resubscribed"`

	HasSubscription    int `json:"has_subscription"`
	DeletedPayments    int `json:"deleted_payments"`
	FormSigned         int `json:"form_signed"`
	PaidNotSigned      int `json:"paid_not_signed"`
	PaidNotSignedStale int `json:"paid_not_signed_stale"`
}

// BucketSize is the number of funnel payments in one bucket.
type BucketSize struct {
	Bucket domain.FunnelBucket `json:"bucket"`
	Count  int                 `json:"count"`
}

// Of returns the number of funnel payments in bucket b.
func (c Counts) Of(b domain.FunnelBucket) int {
	switch b {
	case domain.BucketHasSubscription:
		return c.HasSubscription
	case domain.BucketDeleted:
		return c.DeletedPayments
	case domain.BucketFormSigned:
		return c.FormSigned
	case domain.BucketPaidNotSigned:
		return c.PaidNotSigned
	}
	return 0
}

// Breakdown returns the size of every bucket in precedence order.
func (c Counts) Breakdown() []BucketSize {
	out := make([]BucketSize, len(domain.Buckets))
	for i, b := range domain.Buckets {
		out[i] = BucketSize{Bucket: b, Count: c.Of(b)}
	}
	return out
}

// Report is the result of one classification run.
type Report struct {
	EvaluatedAt time.Time `json:"evaluated_at"`
	Counts      Counts    `json:"counts"`

	// Payments holds every funnel payment, latest first.
	Payments            []ClassifiedPayment `json:"payments"`
	RecentPaidNotSigned []ClassifiedPayment `json:"recent_paid_not_signed"`
	StalePaidNotSigned  []ClassifiedPayment `json:"stale_paid_not_signed"`

	Active          []domain.SubscriptionView `json:"active"`
	SignedList      []domain.SubscriptionView `json:"signed"`
	ExpiredUnsigned []domain.SubscriptionView `json:"expired_unsigned"`
	ChurnedDeleted  []domain.Contact          `json:"churned_deleted"`
}

// InBucket returns the funnel payments classified as b, latest first.
func (r *Report) InBucket(b domain.FunnelBucket) []ClassifiedPayment {
	var out []ClassifiedPayment
	for _, p := range r.Payments {
		if p.Bucket == b {
			out = append(out, p)
		}
	}
	return out
}

// Paid-not-signed ranges accepted by PaidNotSignedWithin.
const (
	RangeAll    = "all"
	Range7Days  = "7days"
	Range30Days = "30days"
)

// PaidNotSignedWithin narrows the recent paid-not-signed list. RangeAll
// and Range30Days return the whole recent list; Range7Days keeps payments
// from the last seven days. Stale payments are never included.
func (r *Report) PaidNotSignedWithin(rng string) ([]ClassifiedPayment, error) {
	switch rng {
	case "", RangeAll, Range30Days:
		return r.RecentPaidNotSigned, nil
	case Range7Days:
		cutoff := r.EvaluatedAt.Add(-7 * 24 * time.Hour)
		var out []ClassifiedPayment
		for _, p := range r.RecentPaidNotSigned {
			if !p.CreatedAt.Before(cutoff) {
				out = append(out, p)
			}
		}
		return out, nil
	}
	return nil, ErrUnknownRange
}
