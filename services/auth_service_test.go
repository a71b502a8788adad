package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthForTest(t *testing.T, adminKey string) *AuthService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(adminKey), bcrypt.MinCost)
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAuthService(string(hash), "test-jwt-secret", logger)
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	auth := newAuthForTest(t, "hunter2")
	ctx := context.Background()

	token, err := auth.Login(ctx, "hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := auth.VerifyAdminToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims["role"])
}

func TestLoginRejectsWrongKey(t *testing.T) {
	auth := newAuthForTest(t, "hunter2")

	_, err := auth.Login(context.Background(), "letmein")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyAdminTokenRejectsGarbage(t *testing.T) {
	auth := newAuthForTest(t, "hunter2")

	_, err := auth.VerifyAdminToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// A token signed with a different secret fails verification.
	other := newAuthForTest(t, "hunter2")
	other.jwtSecret = []byte("some-other-secret")
	token, err := other.Login(context.Background(), "hunter2")
	require.NoError(t, err)
	_, err = auth.VerifyAdminToken(token)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
