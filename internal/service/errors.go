package service

import (
	"errors"
	"fmt"

	"marketplace-service/internal/domain"
)

// ErrInvalidCredentials is returned by Authenticate for an unknown email or a
// wrong password; the two cases are not distinguished.
var ErrInvalidCredentials = errors.New("service: invalid email or password")

func validationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{domain.ErrValidation}, args...)...)
}

func invalidOperationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{domain.ErrInvalidOperation}, args...)...)
}

func permissionDeniedf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{domain.ErrPermissionDenied}, args...)...)
}

func requireSeller(actor domain.Actor) error {
	if !actor.IsSeller() {
		return permissionDeniedf("only sellers can do this")
	}
	return nil
}
