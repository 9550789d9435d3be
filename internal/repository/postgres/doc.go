// Package postgres reads the payments, subscriptions, deleted-subscription
// and form-agreement tables. All access is read only.
package postgres
