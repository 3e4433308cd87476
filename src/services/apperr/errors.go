// Package apperr holds the error taxonomy shared by services and the HTTP layer.
package apperr

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidOption     = errors.New("invalid option")
	ErrFormInactive      = errors.New("form is inactive and not accepting responses")
	ErrDuplicateResponse = errors.New("you have already responded")
	ErrAccessDenied      = errors.New("access denied")
	ErrInvalidAnswer     = errors.New("invalid answer")
	ErrValidation        = errors.New("validation failed")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrConflict          = errors.New("conflict")
)
