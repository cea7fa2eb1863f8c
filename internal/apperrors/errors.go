package apperrors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidValue      = errors.New("invalid value")
	ErrIncompleteProfile = errors.New("profile is missing onboarding answers")
)
