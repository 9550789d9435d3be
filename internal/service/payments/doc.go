// Package payments serves the payments table and its revenue overview.
//
// Filtering of the list is pushed down to the Repository; the overview is
// computed here from every payment matching the same filters. The package
// never imports net/http or database/sql directly.
package payments
