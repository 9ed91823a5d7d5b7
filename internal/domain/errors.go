package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidPrompt    = errors.New("invalid prompt")
	ErrQuotaExceeded    = errors.New("quota exceeded")
	ErrInvalidState     = errors.New("invalid job state")
	ErrAlreadyPublished = errors.New("job already published")
	ErrProviderFailure  = errors.New("provider failure")
)
