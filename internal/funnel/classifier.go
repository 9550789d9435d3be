package funnel

import (
	"sort"
	"time"

	"github.com/ignite/funnel-monitor/internal/domain"
	"github.com/ignite/funnel-monitor/internal/identity"
)

// Classifier runs the funnel classification for one Config.
type Classifier struct {
	cfg Config
}

// NewClassifier returns a Classifier; zero fields of cfg take their defaults.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg.withDefaults()}
}

// Config returns the effective configuration.
func (c *Classifier) Config() Config { return c.cfg }

// FunnelPayments filters payments down to successful funnel purchases.
func (c *Classifier) FunnelPayments(payments []domain.Payment) []domain.Payment {
	var out []domain.Payment
	for _, p := range payments {
		if c.cfg.InFunnel(p) {
			out = append(out, p)
		}
	}
	return out
}

// Classify partitions the funnel payments of s and computes the counts as
// of now. It never fails; empty inputs yield an empty report.
func (c *Classifier) Classify(s *Snapshot, now time.Time) *Report {
	return c.ClassifyIndexed(s, NewIndex(s), now)
}

// ClassifyIndexed is Classify with a prebuilt index of s.
func (c *Classifier) ClassifyIndexed(s *Snapshot, idx *Index, now time.Time) *Report {
	r := &Report{
		EvaluatedAt:         now,
		Payments:            []ClassifiedPayment{},
		RecentPaidNotSigned: []ClassifiedPayment{},
		StalePaidNotSigned:  []ClassifiedPayment{},
		Active:              []domain.SubscriptionView{},
		SignedList:          []domain.SubscriptionView{},
		ExpiredUnsigned:     []domain.SubscriptionView{},
		ChurnedDeleted:      []domain.Contact{},
	}
	cutoff := now.Add(-c.cfg.RecentWindow)

	for _, p := range c.FunnelPayments(s.Payments) {
		k := identity.KeyOf(p.Email, p.Phone)
		cp := ClassifiedPayment{Payment: p, Key: k, Bucket: idx.Bucket(k)}
		cp.PhoneDisplay = identity.DisplayPhone(p.Phone)
		if cp.Bucket == domain.BucketPaidNotSigned {
			cp.Recent = !p.CreatedAt.Before(cutoff)
		}
		r.Payments = append(r.Payments, cp)
	}
	sort.SliceStable(r.Payments, func(i, j int) bool {
		return r.Payments[i].CreatedAt.After(r.Payments[j].CreatedAt)
	})

	for _, cp := range r.Payments {
		switch cp.Bucket {
		case domain.BucketHasSubscription:
			r.Counts.HasSubscription++
		case domain.BucketDeleted:
			r.Counts.DeletedPayments++
		case domain.BucketFormSigned:
			r.Counts.FormSigned++
		case domain.BucketPaidNotSigned:
			r.Counts.PaidNotSigned++
			if cp.Recent {
				r.RecentPaidNotSigned = append(r.RecentPaidNotSigned, cp)
			} else {
				r.StalePaidNotSigned = append(r.StalePaidNotSigned, cp)
			}
		}
	}
	r.Counts.PaidTotal = len(r.Payments)
	r.Counts.PaidNotSignedRecent = len(r.RecentPaidNotSigned)
	r.Counts.PaidNotSignedStale = len(r.StalePaidNotSigned)

	for _, sub := range s.Subscriptions {
		v := sub.ViewAt(now, c.cfg.ExpiringSoonDays)
		v.PhoneDisplay = identity.DisplayPhone(sub.Phone)
		if v.DaysRemaining > 0 {
			r.Active = append(r.Active, v)
		}
		if sub.IsSigned() {
			r.SignedList = append(r.SignedList, v)
		}
		if v.Status == domain.StatusExpired && !sub.IsSigned() {
			r.ExpiredUnsigned = append(r.ExpiredUnsigned, v)
		}
	}
	r.Counts.ActiveSubscriptions = len(r.Active)
	r.Counts.Signed = len(r.SignedList)
	r.Counts.ExpiredUnsigned = len(r.ExpiredUnsigned)

	for _, d := range s.Deleted {
		if !idx.HasSubscription(contactKey(d)) {
			r.ChurnedDeleted = append(r.ChurnedDeleted, d)
		}
	}
	r.Counts.DeletedNotResubscribed = len(r.ChurnedDeleted)

	return r
}
