package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// The upstream client and services wrap these so callers can map to HTTP
// status codes without leaking transport details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	ErrUpstream     = errors.New("upstream failure")
)
