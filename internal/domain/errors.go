package domain

import "errors"

// Domain errors (no external dependencies).
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidCode  = errors.New("invalid/empty scan")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotInCatalog = errors.New("not_in_catalog")
	ErrValidation   = errors.New("validation failed")
	ErrTransport    = errors.New("transport error")
	ErrNoCompany    = errors.New("no company selected")
	ErrNoPending    = errors.New("no pending confirmation")
)
