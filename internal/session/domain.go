// internal/session/domain.go
package session

import (
	"errors"
	"time"
)

var (
	ErrMissingFields      = errors.New("please fill in all fields")
	ErrInvalidEmail       = errors.New("please enter a valid Gmail address")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountExists      = errors.New("account already exists")
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrSessionNotFound    = errors.New("session not found")

	// Provider sign-in failures.
	ErrSignInCancelled     = errors.New("sign-in was cancelled, please try again")
	ErrSignInInProgress    = errors.New("sign-in is already in progress")
	ErrProviderUnavailable = errors.New("sign-in services are not available or outdated")
	ErrSignInFailed        = errors.New("sign-in failed, please try again")
)

// Method records how a user signed in.
type Method string

const (
	MethodPassword Method = "password"
	MethodProvider Method = "provider"
)

// User is an authenticated identity.
type User struct {
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Subject string `json:"subject,omitempty"`
	Method  Method `json:"method"`
}

// Session is issued on successful sign-in. Token is a bearer credential.
type Session struct {
	Token     string    `json:"token"`
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}

// State mirrors what a login screen renders: the signed-in user, whether a
// sign-in is running, and the last error message.
type State struct {
	User            *User  `json:"user"`
	IsAuthenticated bool   `json:"is_authenticated"`
	Loading         bool   `json:"loading"`
	Error           string `json:"error,omitempty"`
}
