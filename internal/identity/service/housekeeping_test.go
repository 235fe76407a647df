package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/crewdeck/crewdeck/internal/identity/domain"
	"github.com/crewdeck/crewdeck/internal/identity/store"
	"github.com/crewdeck/crewdeck/pkg/idx"

	"github.com/stretchr/testify/require"
)

func TestHousekeepingSweep(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	alice := e.register(t, "alice@example.com", "Alice", "correct-horse")
	org := orgWithMembers(t, e, alice)

	past := time.Now().UTC().Add(-2 * time.Hour)

	require.NoError(t, e.store.OtpChallenges().CreateChallenge(ctx, domain.OtpChallenge{
		ID: idx.New().String(), Email: "alice@example.com", Purpose: domain.OtpPurposePasswordChange,
		CodeHash: "h", AttemptsRemaining: 5, CreatedAt: past, ExpiresAt: past.Add(10 * time.Minute),
	}))
	require.NoError(t, e.store.RecoveryTokens().CreateToken(ctx, domain.RecoveryToken{
		ID: idx.New().String(), Email: "alice@example.com", TokenHash: "rh",
		CreatedAt: past, ExpiresAt: past.Add(time.Hour),
	}))
	require.NoError(t, e.store.Sessions().CreateSession(ctx, domain.Session{
		ID: idx.New().String(), UserID: alice.ID, TokenHash: "sh",
		IssuedAt: past, ExpiresAt: past.Add(time.Hour),
	}))
	overdueInvite := domain.Invite{
		ID: idx.New().String(), ScopeType: domain.ScopeOrganization, ScopeID: org.ID,
		Email: "bob@example.com", Role: domain.RoleMember, TokenHash: "ih",
		Status: domain.InviteStatusPending, InvitedBy: alice.ID,
		ExpiresAt: past, CreatedAt: past, UpdatedAt: past,
	}
	require.NoError(t, e.store.Invites().CreateInvite(ctx, overdueInvite))

	hk := NewHousekeepingService(e.store, slog.Default(), time.Hour)
	hk.Sweep(ctx)

	_, err := e.store.OtpChallenges().GetLatest(ctx, "alice@example.com", domain.OtpPurposePasswordChange)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = e.store.RecoveryTokens().GetByTokenHash(ctx, "rh")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = e.store.Sessions().GetByTokenHash(ctx, "sh")
	require.ErrorIs(t, err, store.ErrNotFound)

	inv, err := e.store.Invites().GetInviteByID(ctx, overdueInvite.ID)
	require.NoError(t, err)
	require.Equal(t, domain.InviteStatusExpired, inv.Status)
}

func TestHousekeepingStartStop(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	hk := NewHousekeepingService(e.store, slog.Default(), time.Hour)
	hk.Start()
	hk.Stop()
}
