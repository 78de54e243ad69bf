package entity

import "errors"

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	// ErrConflict covers lost optimistic-lock races and uniqueness violations
	ErrConflict = errors.New("conflict")
)
