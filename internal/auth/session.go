package auth

import (
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is a Context backed by an access token and the user returned by the backend.
// The token signature is not checked here; the backend does that on every request.
type Session struct {
	mu    sync.RWMutex
	token string
	user  *User
	now   func() time.Time
}

func NewSession(token string, user *User) *Session {
	return &Session{token: strings.TrimSpace(token), user: user.Clone(), now: time.Now}
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Update replaces the token and user, e.g. after a refresh or a permission change.
func (s *Session) Update(token string, user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = strings.TrimSpace(token)
	s.user = user.Clone()
}

func (s *Session) Clear() {
	s.Update("", nil)
}

func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	if token == "" {
		return false
	}

	expiresAt, ok := TokenExpiry(token)
	if !ok {
		return true
	}

	return s.now().Before(expiresAt)
}

func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Clone()
}

// TokenExpiry reads the exp claim of a JWT without verifying it.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}

	return exp.Time, true
}
