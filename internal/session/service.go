// internal/session/service.go
package session

import (
	"context"
)

// Service defines the interface for the session service.
type Service interface {
	Register(ctx context.Context, email, name, password string) (*User, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	SignIn(ctx context.Context, provider Provider) (*Session, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (*User, error)
	State() State
}

// Provider is an external identity provider such as Google sign-in. It
// should report ErrSignInCancelled, ErrSignInInProgress or
// ErrProviderUnavailable (possibly wrapped) for those conditions.
type Provider interface {
	Name() string
	SignIn(ctx context.Context) (User, error)
}
