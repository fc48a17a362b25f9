package models

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInvalidState       = errors.New("invalid state")
	ErrMalformedSession   = errors.New("malformed session")
	ErrUpstream           = errors.New("upstream failure")
	ErrDegradedDependency = errors.New("degraded dependency")
	ErrValidation         = errors.New("validation failed")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
)
