package dashboard

import "errors"

// Sentinel errors for the dashboard service layer.
var (
	ErrUnknownList = errors.New("unknown funnel list")
	ErrNoView      = errors.New("no funnel view available")
)
