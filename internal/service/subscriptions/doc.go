// Package subscriptions serves the subscriptions table: search, plan,
// status, signed and start-date filters over the full record set, with
// each row carrying its days remaining and status.
package subscriptions
