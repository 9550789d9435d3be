// Package domain defines the core record types for the funnel dashboard.
//
// Types in this package mirror the four record sets read from the hosted
// PostgreSQL store (payments, subscriptions, deleted subscriptions and form
// agreements). They are value objects: no database handles, no HTTP
// concerns, and no imports from other internal/ packages.
//
// Rules for this package:
//   - No *sql.DB, no http.Request, no context.Context in struct fields
//   - JSON tags are allowed (they're metadata, not behavior)
//   - Pure helper methods on the types are allowed
//   - Constants and enums belong here
package domain
