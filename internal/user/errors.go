package user

import (
	"fmt"

	"user_admin_backend/internal/common"
	"user_admin_backend/internal/identity"
)

// CleanupError reports a failed best-effort identity deletion. It is logged, never returned.
type CleanupError struct {
	UID string
	Err error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("cleanup of identity account %s failed: %v", e.UID, e.Err)
}

func (e *CleanupError) Unwrap() error {
	return e.Err
}

// toAPIError maps identity-provider failures onto API errors. Other errors pass through.
func toAPIError(err error) error {
	switch identity.KindOf(err) {
	case identity.KindDuplicateEmail:
		return common.ErrConflict.WithDetails("This email is already registered.")
	case identity.KindInvalidEmail:
		return common.NewValidationAPIError(map[string]string{"email": "The email field must be a valid email address."})
	case identity.KindWeakPassword:
		return common.NewValidationAPIError(map[string]string{
			"password": fmt.Sprintf("The password field must be at least %d characters long.", identity.MinPasswordLength),
		})
	case identity.KindUnknown:
		return common.ErrBadGateway.WithDetails("The identity provider rejected the request.")
	}
	return err
}
