package funnel

import (
	"github.com/ignite/funnel-monitor/internal/domain"
	"github.com/ignite/funnel-monitor/internal/identity"
)

// Snapshot is one complete read of the four record sets.
type Snapshot struct {
	Payments       []domain.Payment      `json:"payments"`
	Subscriptions  []domain.Subscription `json:"subscriptions"`
	Deleted        []domain.Contact      `json:"deleted"`
	FormAgreements []domain.Contact      `json:"form_agreements"`
}

// Index holds the key sets built from a Snapshot.
type Index struct {
	subscriptions identity.KeySet
	deleted       identity.KeySet
	forms         identity.KeySet
	firstSub      map[identity.Key]int
	snap          *Snapshot
}

func contactKey(c domain.Contact) identity.Key { return identity.KeyOf(c.Email, c.Phone) }

// NewIndex builds the three key sets in one pass per record set.
func NewIndex(s *Snapshot) *Index {
	idx := &Index{
		subscriptions: make(identity.KeySet, len(s.Subscriptions)),
		firstSub:      make(map[identity.Key]int, len(s.Subscriptions)),
		deleted:       identity.NewKeySet(s.Deleted, contactKey),
		forms:         identity.NewKeySet(s.FormAgreements, contactKey),
		snap:          s,
	}
	for i, sub := range s.Subscriptions {
		k := identity.KeyOf(sub.Email, sub.Phone)
		idx.subscriptions.Add(k)
		if _, seen := idx.firstSub[k]; !seen {
			idx.firstSub[k] = i
		}
	}
	return idx
}

// HasSubscription reports whether any subscription row, active or expired, has key k.
func (x *Index) HasSubscription(k identity.Key) bool { return x.subscriptions.Has(k) }

// IsDeleted reports whether a deleted tombstone has key k.
func (x *Index) IsDeleted(k identity.Key) bool { return x.deleted.Has(k) }

// HasFormAgreement reports whether a form agreement has key k.
func (x *Index) HasFormAgreement(k identity.Key) bool { return x.forms.Has(k) }

// Bucket applies the precedence order to key k.
func (x *Index) Bucket(k identity.Key) domain.FunnelBucket {
	switch {
	case x.HasSubscription(k):
		return domain.BucketHasSubscription
	case x.IsDeleted(k):
		return domain.BucketDeleted
	case x.HasFormAgreement(k):
		return domain.BucketFormSigned
	default:
		return domain.BucketPaidNotSigned
	}
}

// CrossReference is what the other record sets say about one identity.
type CrossReference struct {
	Key              identity.Key         `json:"key"`
	Bucket           domain.FunnelBucket  `json:"bucket"`
	Subscription     *domain.Subscription `json:"subscription,omitempty"`
	InDeleted        bool                 `json:"in_deleted"`
	HasFormAgreement bool                 `json:"has_form_agreement"`
}

// Lookup cross-references an email and phone against the indexed sets.
func (x *Index) Lookup(email, phone *string) CrossReference {
	k := identity.KeyOf(email, phone)
	ref := CrossReference{
		Key:              k,
		Bucket:           x.Bucket(k),
		InDeleted:        x.IsDeleted(k),
		HasFormAgreement: x.HasFormAgreement(k),
	}
	if i, ok := x.firstSub[k]; ok {
		sub := x.snap.Subscriptions[i]
		ref.Subscription = &sub
	}
	return ref
}
