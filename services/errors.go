package services

import "errors"

// Terminal error classes. Anything else coming out of the store is treated
// as transient and safe for the caller to retry from the entry point.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
	ErrForbidden      = errors.New("forbidden")
)
