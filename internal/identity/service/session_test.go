package service

import (
	"context"
	"testing"
	"time"

	"github.com/crewdeck/crewdeck/internal/identity/domain"
	"github.com/crewdeck/crewdeck/pkg/cryptox"
	"github.com/crewdeck/crewdeck/pkg/idx"

	"github.com/stretchr/testify/require"
)

func TestSessionLoginLogout(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	user := e.register(t, "ada@example.com", "Ada", "correct-horse")

	token, sess, err := e.sessions.Login(ctx, "ada@example.com", "correct-horse")
	require.NoError(t, err)
	require.Equal(t, user.ID, sess.UserID)

	got, err := e.sessions.Validate(ctx, token)
	require.NoError(t, err)
	require.Equal(t, user.ID, got.UserID)
	require.Equal(t, sess.ID, got.ID)

	require.NoError(t, e.sessions.Logout(ctx, token))

	_, err = e.sessions.Validate(ctx, token)
	require.ErrorIs(t, err, ErrSessionRevoked)

	// Logout is idempotent and silent for unknown tokens.
	require.NoError(t, e.sessions.Logout(ctx, token))
	require.NoError(t, e.sessions.Logout(ctx, "never-issued"))
}

func TestSessionLoginFailuresAreUniform(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	e.register(t, "ada@example.com", "Ada", "correct-horse")

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := e.sessions.Login(ctx, "ada@example.com", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := e.sessions.Login(ctx, "ghost@example.com", "correct-horse")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("email lookup is case-insensitive", func(t *testing.T) {
		_, _, err := e.sessions.Login(ctx, "ADA@example.com", "correct-horse")
		require.NoError(t, err)
	})
}

func TestSessionValidateUnknownToken(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	_, err := e.sessions.Validate(context.Background(), "never-issued")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSessionValidateExpired(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	user := e.register(t, "ada@example.com", "Ada", "correct-horse")

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, e.store.Sessions().CreateSession(ctx, domain.Session{
		ID:        idx.New().String(),
		UserID:    user.ID,
		TokenHash: cryptox.FingerprintToken(token),
		IssuedAt:  now.Add(-48 * time.Hour),
		ExpiresAt: now.Add(-24 * time.Hour),
	}))

	_, err = e.sessions.Validate(ctx, token)
	require.ErrorIs(t, err, ErrExpired)
}

func TestChangePasswordKeepsCurrentSession(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	user := e.register(t, "ada@example.com", "Ada", "correct-horse")

	currentToken, currentSess, err := e.sessions.Login(ctx, "ada@example.com", "correct-horse")
	require.NoError(t, err)
	otherToken, _, err := e.sessions.Login(ctx, "ada@example.com", "correct-horse")
	require.NoError(t, err)

	t.Run("requires the current password", func(t *testing.T) {
		err := e.accounts.ChangePassword(ctx, user.ID, currentSess.ID, "wrong", "battery-staple")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	require.NoError(t, e.accounts.ChangePassword(ctx, user.ID, currentSess.ID, "correct-horse", "battery-staple"))

	t.Run("changing session survives", func(t *testing.T) {
		_, err := e.sessions.Validate(ctx, currentToken)
		require.NoError(t, err)
	})

	t.Run("other sessions are revoked", func(t *testing.T) {
		_, err := e.sessions.Validate(ctx, otherToken)
		require.ErrorIs(t, err, ErrSessionRevoked)
	})

	t.Run("new password is live", func(t *testing.T) {
		_, _, err := e.sessions.Login(ctx, "ada@example.com", "battery-staple")
		require.NoError(t, err)
	})
}
