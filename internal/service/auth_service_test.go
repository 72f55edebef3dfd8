package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visualroutine/internal/repository"
	"visualroutine/internal/security"
)

func newAuthService(t *testing.T, env *testEnv) *AuthService {
	t.Helper()
	tokens, err := security.NewTokenIssuer("test-secret", time.Hour, env.clock)
	require.NoError(t, err)
	return NewAuthService(repository.NewUserRepository(env.db), tokens)
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	auth := newAuthService(t, env)
	ctx := context.Background()

	session, user, err := auth.Register(ctx, "new@example.com", "password123", "Sam")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)

	_, _, err = auth.Register(ctx, "new@example.com", "password123", "Sam")
	assert.ErrorIs(t, err, ErrEmailTaken)

	session, loggedIn, err := auth.Login(ctx, "new@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)

	validated, err := auth.ValidateToken(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, validated.ID)

	_, _, err = auth.Login(ctx, "new@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = auth.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterValidatesInput(t *testing.T) {
	env := newTestEnv(t)
	auth := newAuthService(t, env)

	tests := []struct {
		name     string
		email    string
		password string
		userName string
	}{
		{"bad email", "not-an-email", "password123", "Sam"},
		{"short password", "a@example.com", "short", "Sam"},
		{"short name", "a@example.com", "password123", "S"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := auth.Register(context.Background(), tt.email, tt.password, tt.userName)
			assert.Error(t, err)
		})
	}
}

func TestValidateTokenForDeletedUser(t *testing.T) {
	env := newTestEnv(t)
	auth := newAuthService(t, env)
	ctx := context.Background()

	session, user, err := auth.Register(ctx, "gone@example.com", "password123", "Gone")
	require.NoError(t, err)
	require.NoError(t, repository.NewUserRepository(env.db).DeleteUser(ctx, user.ID))

	_, err = auth.ValidateToken(ctx, session.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestOAuthLoginLinksOrCreates(t *testing.T) {
	env := newTestEnv(t)
	auth := newAuthService(t, env)
	ctx := context.Background()

	_, linked, err := auth.OAuthLogin(ctx, "google", "sub-1", env.user.Email, "")
	require.NoError(t, err)
	assert.Equal(t, env.user.ID, linked.ID)

	_, again, err := auth.OAuthLogin(ctx, "google", "sub-1", env.user.Email, "")
	require.NoError(t, err)
	assert.Equal(t, env.user.ID, again.ID)

	_, created, err := auth.OAuthLogin(ctx, "google", "sub-2", "fresh@example.com", "")
	require.NoError(t, err)
	assert.NotEqual(t, env.user.ID, created.ID)
	assert.Equal(t, "fresh", created.Name)

	_, _, err = auth.OAuthLogin(ctx, "", "", "x@example.com", "")
	assert.Error(t, err)
}

func TestChildPIN(t *testing.T) {
	env := newTestEnv(t)
	auth := newAuthService(t, env)
	ctx := context.Background()

	assert.NoError(t, auth.VerifyChildPIN(ctx, env.user.ID, "0000"), "no PIN configured")

	require.NoError(t, auth.SetChildPIN(ctx, env.user.ID, "4321"))
	assert.NoError(t, auth.VerifyChildPIN(ctx, env.user.ID, "4321"))
	assert.ErrorIs(t, auth.VerifyChildPIN(ctx, env.user.ID, "1234"), ErrInvalidPIN)

	assert.Error(t, auth.SetChildPIN(ctx, env.user.ID, "12"))

	require.NoError(t, auth.SetChildPIN(ctx, env.user.ID, ""))
	assert.NoError(t, auth.VerifyChildPIN(ctx, env.user.ID, "1234"))
}
