// Package funnel reconciles payments against the subscription, deleted and
// form-agreement record sets and sorts every funnel payment into exactly
// one bucket:
//
//	has_subscription          key present in subscriptions (wins over all others)
//	deleted_not_resubscribed  key present only in deleted tombstones
//	form_signed               key present only in form agreements
//	paid_not_signed           key absent everywhere, split into recent and stale
//
// Classification is a pure function of a Snapshot and an evaluation time.
// Missing fields and malformed phones are never errors; they degrade to
// best-effort keys (see package identity).
package funnel
