package payments

import "errors"

// Sentinel errors for the payments service layer.
var (
	ErrInvalidStatus = errors.New("invalid payment status")
	ErrInvalidFilter = errors.New("invalid payment filter")
)
