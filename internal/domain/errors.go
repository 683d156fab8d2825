package domain

import "errors"

// Sentinel errors for the hub. Callers compare with errors.Is; nothing in the
// hub propagates these past its own boundary except the HTTP layer, which
// translates them into status codes.
var (
	ErrNotFound       = errors.New("requested resource not found")
	ErrMalformedFrame = errors.New("malformed inbound frame")
	ErrInvalidFrame   = errors.New("inbound frame failed validation")
	ErrInvalidUser    = errors.New("invalid user record")
)
