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

func TestOtpRequestSupersedesPriorCode(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	e.register(t, "ada@example.com", "Ada", "correct-horse")
	code1 := e.sender.lastCode(t)

	require.NoError(t, e.otp.Request(ctx, "ada@example.com", domain.OtpPurposeEmailVerify))
	code2 := e.sender.lastCode(t)

	// The superseded code is dead even though it never expired.
	if code1 != code2 {
		err := e.otp.Verify(ctx, "ada@example.com", domain.OtpPurposeEmailVerify, code1)
		require.ErrorIs(t, err, ErrInvalidCode)
	}

	require.NoError(t, e.otp.Verify(ctx, "ada@example.com", domain.OtpPurposeEmailVerify, code2))

	// Success consumes; replaying the same code reports the spent state.
	err := e.otp.Verify(ctx, "ada@example.com", domain.OtpPurposeEmailVerify, code2)
	require.ErrorIs(t, err, ErrAlreadyConsumed)
}

func TestOtpUnknownEmailIsSilent(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.otp.Request(ctx, "ghost@example.com", domain.OtpPurposeEmailVerify))
	require.Zero(t, e.sender.count())

	err := e.otp.Verify(ctx, "ghost@example.com", domain.OtpPurposeEmailVerify, "123456")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOtpAttemptsExhaustion(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	e.register(t, "ada@example.com", "Ada", "correct-horse")
	code := e.sender.lastCode(t)
	bad := wrongCode(code)

	for i := 0; i < OtpMaxAttempts; i++ {
		err := e.otp.Verify(ctx, "ada@example.com", domain.OtpPurposeEmailVerify, bad)
		require.ErrorIs(t, err, ErrInvalidCode)
	}

	// Even the correct code is dead once attempts run out.
	err := e.otp.Verify(ctx, "ada@example.com", domain.OtpPurposeEmailVerify, code)
	require.ErrorIs(t, err, ErrExhausted)
}

func TestOtpExpiry(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	e.register(t, "ada@example.com", "Ada", "correct-horse")

	// Plant an already-expired challenge directly.
	now := time.Now().UTC()
	require.NoError(t, e.store.OtpChallenges().ConsumeActiveFor(ctx, "ada@example.com", domain.OtpPurposeEmailVerify))
	require.NoError(t, e.store.OtpChallenges().CreateChallenge(ctx, domain.OtpChallenge{
		ID:                idx.New().String(),
		Email:             "ada@example.com",
		Purpose:           domain.OtpPurposeEmailVerify,
		CodeHash:          cryptox.FingerprintToken("123456"),
		AttemptsRemaining: OtpMaxAttempts,
		CreatedAt:         now.Add(-time.Hour),
		ExpiresAt:         now.Add(-50 * time.Minute),
	}))

	err := e.otp.Verify(ctx, "ada@example.com", domain.OtpPurposeEmailVerify, "123456")
	require.ErrorIs(t, err, ErrExpired)

	// Expiry consumed the challenge; the follow-up reports the spent state.
	err = e.otp.Verify(ctx, "ada@example.com", domain.OtpPurposeEmailVerify, "123456")
	require.ErrorIs(t, err, ErrAlreadyConsumed)
}

func TestOtpVerifyEmailFlow(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	user := e.register(t, "ada@example.com", "Ada", "correct-horse")
	require.False(t, user.EmailVerified)

	code := e.sender.lastCode(t)
	require.NoError(t, e.otp.VerifyEmail(ctx, "Ada@Example.com", code))

	got, err := e.accounts.Me(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, got.EmailVerified)
}

func TestOtpChangePasswordFlow(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	e.register(t, "ada@example.com", "Ada", "correct-horse")
	token, _, err := e.sessions.Login(ctx, "ada@example.com", "correct-horse")
	require.NoError(t, err)

	require.NoError(t, e.otp.Request(ctx, "ada@example.com", domain.OtpPurposePasswordChange))
	code := e.sender.lastCode(t)

	t.Run("weak replacement rejected before consuming", func(t *testing.T) {
		err := e.otp.ChangePasswordWithOtp(ctx, "ada@example.com", code, "short")
		require.ErrorIs(t, err, ErrWeakPassword)
	})

	require.NoError(t, e.otp.ChangePasswordWithOtp(ctx, "ada@example.com", code, "battery-staple"))

	t.Run("old password no longer works", func(t *testing.T) {
		_, _, err := e.sessions.Login(ctx, "ada@example.com", "correct-horse")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("new password works", func(t *testing.T) {
		_, _, err := e.sessions.Login(ctx, "ada@example.com", "battery-staple")
		require.NoError(t, err)
	})

	t.Run("all prior sessions revoked", func(t *testing.T) {
		_, err := e.sessions.Validate(ctx, token)
		require.ErrorIs(t, err, ErrSessionRevoked)
	})

	t.Run("code cannot be replayed", func(t *testing.T) {
		err := e.otp.ChangePasswordWithOtp(ctx, "ada@example.com", code, "yet-another-pass")
		require.ErrorIs(t, err, ErrAlreadyConsumed)
	})
}

func TestOtpPurposesAreIndependent(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	e.register(t, "ada@example.com", "Ada", "correct-horse")
	verifyCode := e.sender.lastCode(t)

	require.NoError(t, e.otp.Request(ctx, "ada@example.com", domain.OtpPurposePasswordChange))
	changeCode := e.sender.lastCode(t)

	// A code never crosses purposes, even when the digits happen to match.
	if verifyCode != changeCode {
		err := e.otp.Verify(ctx, "ada@example.com", domain.OtpPurposePasswordChange, verifyCode)
		require.ErrorIs(t, err, ErrInvalidCode)
	}

	require.NoError(t, e.otp.Verify(ctx, "ada@example.com", domain.OtpPurposeEmailVerify, verifyCode))
	require.NoError(t, e.otp.Verify(ctx, "ada@example.com", domain.OtpPurposePasswordChange, changeCode))
}
