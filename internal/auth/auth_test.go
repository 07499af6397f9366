package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewAuthenticatorDisabledByDefault(t *testing.T) {
	a := NewAuthenticator(Config{})
	require.False(t, a.IsEnabled())

	_, _, err := a.Authenticate("admin", "whatever")
	require.ErrorIs(t, err, ErrAuthDisabled)
}

func TestNewAuthenticatorDefaultsUsernameToAdmin(t *testing.T) {
	a := NewAuthenticator(Config{Enabled: true, Password: "hunter2"})
	require.Equal(t, "admin", a.username)
}

func TestAuthenticateValidCredentialsIssuesToken(t *testing.T) {
	a := NewAuthenticator(Config{
		Enabled:   true,
		Username:  "operator",
		Password:  "correct-horse",
		Secret:    "test-secret",
		JWTExpiry: time.Hour,
	})

	token, expiresAt, err := a.Authenticate("operator", "correct-horse")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Greater(t, expiresAt, time.Now().Unix())

	claims, err := a.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "operator", claims.Username)
}

func TestAuthenticateWrongPasswordRejected(t *testing.T) {
	a := NewAuthenticator(Config{Enabled: true, Username: "operator", Password: "correct-horse", Secret: "s"})

	_, _, err := a.Authenticate("operator", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateWrongUsernameRejected(t *testing.T) {
	a := NewAuthenticator(Config{Enabled: true, Username: "operator", Password: "correct-horse", Secret: "s"})

	_, _, err := a.Authenticate("someone-else", "correct-horse")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestNewAuthenticatorAcceptsPrehashedPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse")
	require.NoError(t, err)

	a := NewAuthenticator(Config{Enabled: true, Username: "operator", Password: hash, Secret: "s"})
	_, _, err = a.Authenticate("operator", "correct-horse")
	require.NoError(t, err)
}
