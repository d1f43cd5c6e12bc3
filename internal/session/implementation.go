// internal/session/implementation.go
package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"storefront/internal/metrics"
)

var gmailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@gmail\.com$`)

// Config tunes the session service.
type Config struct {
	TTL time.Duration
	// LoginRate and LoginBurst bound password login and registration attempts.
	LoginRate  rate.Limit
	LoginBurst int
}

func DefaultConfig() Config {
	return Config{
		TTL:        24 * time.Hour,
		LoginRate:  rate.Every(12 * time.Second),
		LoginBurst: 5,
	}
}

// service implements the Service interface.
type service struct {
	cfg         Config
	logger      *zap.Logger
	metrics     *metrics.Registry
	rateLimiter *rate.Limiter
	now         func() time.Time

	mu          sync.Mutex
	credentials map[string]credential
	names       map[string]string
	sessions    map[string]Session
	state       State
}

// NewService creates a new in-memory session service.
func NewService(cfg Config, logger *zap.Logger, reg *metrics.Registry) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	if cfg.LoginBurst <= 0 {
		cfg.LoginRate, cfg.LoginBurst = DefaultConfig().LoginRate, DefaultConfig().LoginBurst
	}
	return &service{
		cfg:         cfg,
		logger:      logger,
		metrics:     reg,
		rateLimiter: rate.NewLimiter(cfg.LoginRate, cfg.LoginBurst),
		now:         time.Now,
		credentials: make(map[string]credential),
		names:       make(map[string]string),
		sessions:    make(map[string]Session),
	}
}

func validate(email, password string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", ErrMissingFields
	}
	if !gmailPattern.MatchString(email) {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(email), nil
}

// Register stores a password credential for email.
func (s *service) Register(ctx context.Context, email, name, password string) (*User, error) {
	email, err := validate(email, password)
	if err != nil {
		return nil, err
	}
	if !s.rateLimiter.Allow() {
		return nil, ErrRateLimited
	}

	cred, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.credentials[email]; exists {
		return nil, ErrAccountExists
	}
	s.credentials[email] = cred
	s.names[email] = name

	s.logger.Info("account registered", zap.String("email", email))
	return &User{Email: email, Name: name, Method: MethodPassword}, nil
}

// Login verifies an email and password and opens a session.
func (s *service) Login(ctx context.Context, email, password string) (*Session, error) {
	sess, err := s.login(email, password)
	if err != nil {
		s.metrics.Login(string(MethodPassword), "failure")
		s.fail(err)
		return nil, err
	}
	s.metrics.Login(string(MethodPassword), "success")
	return sess, nil
}

func (s *service) login(email, password string) (*Session, error) {
	email, err := validate(email, password)
	if err != nil {
		return nil, err
	}
	if !s.rateLimiter.Allow() {
		return nil, ErrRateLimited
	}

	s.mu.Lock()
	cred, ok := s.credentials[email]
	name := s.names[email]
	s.mu.Unlock()
	if !ok {
		return nil, ErrInvalidCredentials
	}

	match, err := cred.verify(password)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	if !match {
		return nil, ErrInvalidCredentials
	}

	return s.open(User{Email: email, Name: name, Method: MethodPassword}), nil
}

// SignIn delegates authentication to provider. Only one provider sign-in
// may run at a time.
func (s *service) SignIn(ctx context.Context, provider Provider) (*Session, error) {
	s.mu.Lock()
	if s.state.Loading {
		s.mu.Unlock()
		return nil, ErrSignInInProgress
	}
	s.state.Loading = true
	s.state.Error = ""
	s.mu.Unlock()

	user, err := provider.SignIn(ctx)
	if err != nil {
		err = classify(err)
		s.logger.Warn("provider sign-in failed", zap.String("provider", provider.Name()), zap.Error(err))
		s.metrics.Login(string(MethodProvider), "failure")
		s.fail(err)
		return nil, err
	}
	if user.Email == "" {
		s.metrics.Login(string(MethodProvider), "failure")
		s.fail(ErrSignInFailed)
		return nil, ErrSignInFailed
	}

	user.Method = MethodProvider
	s.metrics.Login(string(MethodProvider), "success")
	return s.open(user), nil
}

// classify maps provider errors onto the session error set.
func classify(err error) error {
	for _, known := range []error{ErrSignInCancelled, ErrSignInInProgress, ErrProviderUnavailable} {
		if errors.Is(err, known) {
			return known
		}
	}
	if errors.Is(err, context.Canceled) {
		return ErrSignInCancelled
	}
	return fmt.Errorf("%w: %v", ErrSignInFailed, err)
}

func (s *service) open(user User) *Session {
	sess := Session{
		Token:     uuid.NewString(),
		User:      user,
		ExpiresAt: s.now().Add(s.cfg.TTL),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Token] = sess
	u := user
	s.state = State{User: &u, IsAuthenticated: true}

	s.logger.Info("signed in", zap.String("email", user.Email), zap.String("method", string(user.Method)))
	return &sess
}

func (s *service) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Loading = false
	s.state.Error = err.Error()
}

// Logout ends the session. The cart is left as it is.
func (s *service) Logout(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[token]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, token)
	if len(s.sessions) == 0 {
		s.state = State{}
	}
	return nil
}

// Authenticate resolves a bearer token. Expired sessions are dropped.
func (s *service) Authenticate(ctx context.Context, token string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !s.now().Before(sess.ExpiresAt) {
		delete(s.sessions, token)
		return nil, ErrSessionNotFound
	}
	u := sess.User
	return &u, nil
}

func (s *service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}
