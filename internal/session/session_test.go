package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestService(t *testing.T) *service {
	t.Helper()
	cfg := DefaultConfig()
	cfg.LoginRate = rate.Inf
	return NewService(cfg, nil, nil).(*service)
}

type fakeProvider struct {
	user User
	err  error
}

func (p fakeProvider) Name() string { return "google" }

func (p fakeProvider) SignIn(context.Context) (User, error) { return p.user, p.err }

func TestPasswordHashRoundTrip(t *testing.T) {
	cred, err := hashPassword("SecurePass123!")
	require.NoError(t, err)

	ok, err := cred.verify("SecurePass123!")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cred.verify("wrong")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoginValidation(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, err := s.Login(ctx, "", "secret")
	assert.ErrorIs(t, err, ErrMissingFields)

	_, err = s.Login(ctx, "user@example.com", "secret")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = s.Login(ctx, "nobody@gmail.com", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	assert.Equal(t, ErrInvalidCredentials.Error(), s.State().Error)
	assert.False(t, s.State().IsAuthenticated)
}

func TestRegisterLoginLogout(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, err := s.Register(ctx, "Shopper@gmail.com", "Shopper", "SecurePass123!")
	require.NoError(t, err)
	_, err = s.Register(ctx, "shopper@gmail.com", "Again", "x")
	assert.ErrorIs(t, err, ErrAccountExists)

	_, err = s.Login(ctx, "shopper@gmail.com", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	sess, err := s.Login(ctx, "shopper@gmail.com", "SecurePass123!")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "Shopper", sess.User.Name)

	state := s.State()
	assert.True(t, state.IsAuthenticated)
	require.NotNil(t, state.User)
	assert.Equal(t, "shopper@gmail.com", state.User.Email)

	user, err := s.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, MethodPassword, user.Method)

	require.NoError(t, s.Logout(ctx, sess.Token))
	_, err = s.Authenticate(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.False(t, s.State().IsAuthenticated)
	assert.ErrorIs(t, s.Logout(ctx, sess.Token), ErrSessionNotFound)
}

func TestSessionExpiry(t *testing.T) {
	s := newTestService(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	sess, err := s.SignIn(context.Background(), fakeProvider{user: User{Email: "a@gmail.com"}})
	require.NoError(t, err)

	now = now.Add(s.cfg.TTL)
	_, err = s.Authenticate(context.Background(), sess.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestLoginRateLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LoginRate = rate.Every(time.Hour)
	cfg.LoginBurst = 2
	s := NewService(cfg, nil, nil)

	for i := 0; i < 2; i++ {
		_, err := s.Login(context.Background(), "x@gmail.com", "p")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err := s.Login(context.Background(), "x@gmail.com", "p")
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestProviderSignInErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"cancelled", fmt.Errorf("google: %w", ErrSignInCancelled), ErrSignInCancelled},
		{"in progress", ErrSignInInProgress, ErrSignInInProgress},
		{"services unavailable", ErrProviderUnavailable, ErrProviderUnavailable},
		{"context cancelled", context.Canceled, ErrSignInCancelled},
		{"other", errors.New("network"), ErrSignInFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestService(t)
			_, err := s.SignIn(context.Background(), fakeProvider{err: tt.err})
			assert.ErrorIs(t, err, tt.want)

			state := s.State()
			assert.False(t, state.Loading)
			assert.NotEmpty(t, state.Error)
		})
	}
}

type blockingProvider struct {
	started chan struct{}
	release chan struct{}
}

func (p blockingProvider) Name() string { return "google" }

func (p blockingProvider) SignIn(context.Context) (User, error) {
	close(p.started)
	<-p.release
	return User{Email: "slow@gmail.com", Name: "Slow"}, nil
}

func TestProviderSignInOneAtATime(t *testing.T) {
	s := newTestService(t)
	p := blockingProvider{started: make(chan struct{}), release: make(chan struct{})}

	done := make(chan error, 1)
	go func() {
		_, err := s.SignIn(context.Background(), p)
		done <- err
	}()
	<-p.started

	assert.True(t, s.State().Loading)
	_, err := s.SignIn(context.Background(), fakeProvider{user: User{Email: "b@gmail.com"}})
	assert.ErrorIs(t, err, ErrSignInInProgress)

	close(p.release)
	require.NoError(t, <-done)
	state := s.State()
	assert.True(t, state.IsAuthenticated)
	assert.False(t, state.Loading)
	assert.Equal(t, MethodProvider, state.User.Method)
}

func TestHandlerLoginAndRequireSession(t *testing.T) {
	s := newTestService(t)
	_, err := s.Register(context.Background(), "shopper@gmail.com", "Shopper", "pw")
	require.NoError(t, err)

	h := NewHandler(s, fakeProvider{user: User{Email: "g@gmail.com"}})
	r := chi.NewRouter()
	h.Routes(r)
	r.With(h.RequireSession).Get("/me", func(w http.ResponseWriter, r *http.Request) {
		user, _ := UserFromContext(r.Context())
		w.Write([]byte(user.Email))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	body, _ := json.Marshal(map[string]string{"email": "shopper@gmail.com", "password": "pw"})
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	var sess Session
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&sess))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "shopper@gmail.com", rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login/google", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login/facebook", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	body, _ = json.Marshal(map[string]string{"email": "shopper@yahoo.com", "password": "pw"})
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
