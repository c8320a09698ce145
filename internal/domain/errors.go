package domain

import "errors"

// Callers wrap these with fmt.Errorf("%w: ...") and match with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrPersistence  = errors.New("persistence failure")
)
