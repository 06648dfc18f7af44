// Package session holds the client's authentication state: the bearer
// token and the identity decoded from it.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/realtivo/internal/client/storage"
	"github.com/atinyakov/realtivo/internal/models"
)

// ErrInvalidToken is returned by Login when the token cannot be decoded.
var ErrInvalidToken = errors.New("invalid token")

// Storage is the durable key/value store the session persists to.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(keys ...string) error
}

// Session is the explicit replacement for a global auth context. Create it
// once at startup, call Restore, and pass it to whatever needs the token.
type Session struct {
	store    Storage
	log      *zap.Logger
	now      func() time.Time
	onLogout func()

	mu    sync.RWMutex
	token string
	user  *models.User
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger used for decode failures.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithOnLogout registers the callback fired after every logout; the shell
// uses it to send the user back to the login prompt.
func WithOnLogout(fn func()) Option {
	return func(s *Session) { s.onLogout = fn }
}

// New creates an empty session over store.
func New(store Storage, opts ...Option) *Session {
	s := &Session{
		store: store,
		log:   zap.NewNop(),
		now:   time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Decode parses the token's claims without verifying its signature and
// rejects expired tokens and tokens without a user id. The id comes from
// the "id" claim, falling back to "sub". Verification is the backend's job.
func Decode(token string, now time.Time) (*models.User, error) {
	var claims models.Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time) {
		return nil, fmt.Errorf("%w: expired at %s", ErrInvalidToken, claims.ExpiresAt.Time.Format(time.RFC3339))
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}
	return claims.User(), nil
}

// merge fills the fields the token left empty from the profile returned
// alongside it. The token's id and role take precedence.
func merge(user, profile *models.User) *models.User {
	if profile == nil || (profile.ID != "" && profile.ID != user.ID) {
		return user
	}
	if user.Name == "" {
		user.Name = profile.Name
	}
	if user.Email == "" {
		user.Email = profile.Email
	}
	if user.Role == "" && profile.Role.Valid() {
		user.Role = profile.Role
	}
	return user
}

// Restore hydrates the session from durable storage. A stored token that
// fails to decode is cleared and the session stays logged out.
func (s *Session) Restore() {
	raw, ok := s.store.Get(storage.TokenKey)
	if !ok || raw == "" {
		return
	}
	user, err := Decode(raw, s.now())
	if err != nil {
		s.log.Warn("discarding stored token", zap.Error(err))
		s.clear()
		return
	}
	s.mu.Lock()
	s.token = raw
	s.user = user
	s.mu.Unlock()
}

// Login adopts token. profile, when the backend returned one, fills
// identity fields the token lacks. On decode failure the session is logged
// out and ErrInvalidToken is returned. A storage failure leaves the session
// logged out and returns the storage error.
func (s *Session) Login(token string, profile *models.User) error {
	user, err := Decode(token, s.now())
	if err != nil {
		s.log.Warn("invalid token on login", zap.Error(err))
		s.Logout()
		return err
	}
	user = merge(user, profile)

	if err := s.persist(token, user); err != nil {
		s.log.Error("failed to persist session", zap.Error(err))
		s.clear()
		return err
	}

	s.mu.Lock()
	s.token = token
	s.user = user
	s.mu.Unlock()

	s.log.Info("logged in", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return nil
}

func (s *Session) persist(token string, user *models.User) error {
	b, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.store.Set(storage.TokenKey, token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	if err := s.store.Set(storage.UserKey, string(b)); err != nil {
		return fmt.Errorf("persist user: %w", err)
	}
	return nil
}

// Logout clears memory and storage, then fires the logout callback.
func (s *Session) Logout() {
	s.clear()
	if s.onLogout != nil {
		s.onLogout()
	}
}

func (s *Session) clear() {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()
	if err := s.store.Delete(storage.TokenKey, storage.UserKey); err != nil {
		s.log.Error("failed to clear session storage", zap.Error(err))
	}
}

// IsAuthenticated reports whether a token is held.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// Token returns the bearer token, or "" when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the decoded user, or nil when logged out.
func (s *Session) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}
