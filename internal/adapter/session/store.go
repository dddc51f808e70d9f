package session

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/seu-repo/voxbank/internal/domain"
)

// Store keeps the active session's tokens in memory. Tokens are never
// persisted; closing the client ends the session.
type Store struct {
	log *zap.Logger

	mu        sync.RWMutex
	userID    string
	tokens    domain.TokenPair
	expiresAt time.Time
}

// NewStore creates an empty session store
func NewStore(log *zap.Logger) *Store {
	return &Store{log: log}
}

// Save replaces the active session. The access token's exp claim, when
// parseable, drives Expired; tokens without one never expire locally and
// the server remains the authority.
func (s *Store) Save(userID string, tokens domain.TokenPair) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.userID = userID
	s.tokens = tokens
	s.expiresAt = expiryOf(tokens.AccessToken)

	s.log.Info("Session established",
		zap.String("user_id", userID),
		zap.Time("expires_at", s.expiresAt),
	)
}

// AccessToken returns the active access token, or empty when no session is
// active or the token has expired.
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.expiredLocked() {
		return ""
	}
	return s.tokens.AccessToken
}

// RefreshToken returns the active refresh token, or empty
func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.RefreshToken
}

// UserID returns the authenticated user's id, or empty
func (s *Store) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.expiredLocked() {
		return ""
	}
	return s.userID
}

// Active reports whether a non-expired session is present
func (s *Store) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.AccessToken != "" && !s.expiredLocked()
}

// Clear drops the session
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = ""
	s.tokens = domain.TokenPair{}
	s.expiresAt = time.Time{}
	s.log.Info("Session cleared")
}

func (s *Store) expiredLocked() bool {
	return !s.expiresAt.IsZero() && s.expiresAt.Before(time.Now())
}

// expiryOf extracts the exp claim without verifying the signature. The
// client never trusts the token's contents beyond its own housekeeping.
func expiryOf(accessToken string) time.Time {
	if accessToken == "" {
		return time.Time{}
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
