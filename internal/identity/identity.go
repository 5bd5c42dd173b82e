// Package identity defines the identity-provider contracts the user service depends on.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// MinPasswordLength matches the identity provider's password policy.
const MinPasswordLength = 6

// Kind classifies identity-provider failures.
type Kind string

const (
	KindDuplicateEmail Kind = "email-already-in-use"
	KindInvalidEmail   Kind = "invalid-email"
	KindWeakPassword   Kind = "weak-password"
	KindUnknown        Kind = "unknown"
)

// Error is a failure reported by the identity provider.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("identity provider: %s", e.Kind)
	}
	return fmt.Sprintf("identity provider: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with kind.
func NewError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the kind of an identity error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var idErr *Error
	if errors.As(err, &idErr) {
		return idErr.Kind
	}
	return ""
}

// ErrAccountNotFound is returned when an operation targets a UID the provider does not know.
var ErrAccountNotFound = errors.New("identity account not found")

// Token is a verified ID token of a signed-in operator.
type Token struct {
	UID   string
	Email string
}

// Provider is the identity provider as seen by this service.
type Provider interface {
	// OpenRegistrar acquires a single-use registration handle. Callers must Close it.
	OpenRegistrar(ctx context.Context) (Registrar, error)
	VerifyIDToken(ctx context.Context, idToken string) (*Token, error)
	// RevokeSessions signs the account out everywhere.
	RevokeSessions(ctx context.Context, uid string) error
	DeleteAccount(ctx context.Context, uid string) error
	// MissingAccounts returns the subset of uids that have no account.
	MissingAccounts(ctx context.Context, uids []string) ([]string, error)
}

// Registrar registers one account in a session isolated from the operator's own.
type Registrar interface {
	Register(ctx context.Context, email, password string) (uid string, err error)
	// DeleteRegistered removes the account created by Register.
	DeleteRegistered(ctx context.Context) error
	SignOut(ctx context.Context) error
	// Close signs out if still signed in and releases the handle. It is idempotent.
	Close(ctx context.Context) error
}

var credentialValidator = validator.New()

// CheckCredentials applies the provider's client-side credential rules.
func CheckCredentials(email, password string) error {
	if err := credentialValidator.Var(email, "required,email"); err != nil {
		return NewError(KindInvalidEmail, fmt.Errorf("malformed email %q", email))
	}
	if len(password) < MinPasswordLength {
		return NewError(KindWeakPassword, fmt.Errorf("password must be at least %d characters", MinPasswordLength))
	}
	return nil
}
