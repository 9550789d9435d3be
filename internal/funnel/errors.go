package funnel

import "errors"

// ErrUnknownRange is returned for a paid-not-signed range other than all, 7days or 30days.
var ErrUnknownRange = errors.New("unknown paid-not-signed range")
