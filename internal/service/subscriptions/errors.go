package subscriptions

import "errors"

// Sentinel errors for the subscriptions service layer.
var (
	ErrInvalidStatus = errors.New("invalid subscription status")
	ErrInvalidSigned = errors.New("invalid signed filter")
	ErrInvalidFilter = errors.New("invalid subscription filter")
)
