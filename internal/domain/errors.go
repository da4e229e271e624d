package domain

import "errors"

// Error kinds returned by the service layer. Callers match them with errors.Is;
// concrete errors wrap one of these with context.
var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrValidation       = errors.New("validation failed")
	ErrInvalidOperation = errors.New("invalid operation")
)
