package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/seu-repo/voxbank/internal/domain"
)

func newTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-42",
		"exp": expiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func TestStore_SaveAndRead(t *testing.T) {
	// Arrange
	store := NewStore(newTestLogger())
	access := signedToken(t, time.Now().Add(time.Hour))

	// Act
	store.Save("user-42", domain.TokenPair{AccessToken: access, RefreshToken: "refresh-1"})

	// Assert
	if !store.Active() {
		t.Error("expected active session")
	}
	if store.AccessToken() != access {
		t.Error("expected access token to round-trip")
	}
	if store.RefreshToken() != "refresh-1" {
		t.Error("expected refresh token to round-trip")
	}
	if store.UserID() != "user-42" {
		t.Errorf("unexpected user id %q", store.UserID())
	}
}

func TestStore_ExpiredTokenHidden(t *testing.T) {
	// Arrange
	store := NewStore(newTestLogger())
	access := signedToken(t, time.Now().Add(-time.Minute))

	// Act
	store.Save("user-42", domain.TokenPair{AccessToken: access})

	// Assert
	if store.Active() {
		t.Error("expected expired session to be inactive")
	}
	if store.AccessToken() != "" {
		t.Error("expected empty access token for expired session")
	}
	if store.UserID() != "" {
		t.Error("expected empty user id for expired session")
	}
}

func TestStore_OpaqueTokenNeverExpiresLocally(t *testing.T) {
	// Arrange
	store := NewStore(newTestLogger())

	// Act
	store.Save("user-42", domain.TokenPair{AccessToken: "not-a-jwt"})

	// Assert
	if !store.Active() {
		t.Error("expected opaque token to stay active")
	}
	if store.AccessToken() != "not-a-jwt" {
		t.Error("expected opaque token to be returned as-is")
	}
}

func TestStore_Clear(t *testing.T) {
	// Arrange
	store := NewStore(newTestLogger())
	store.Save("user-42", domain.TokenPair{AccessToken: "token", RefreshToken: "refresh"})

	// Act
	store.Clear()

	// Assert
	if store.Active() {
		t.Error("expected inactive session after clear")
	}
	if store.AccessToken() != "" || store.RefreshToken() != "" || store.UserID() != "" {
		t.Error("expected all session fields cleared")
	}
}

func TestStore_EmptyStore(t *testing.T) {
	// Arrange
	store := NewStore(newTestLogger())

	// Assert
	if store.Active() {
		t.Error("expected empty store to be inactive")
	}
	if store.AccessToken() != "" {
		t.Error("expected empty access token")
	}
}
