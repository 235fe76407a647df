package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/crewdeck/crewdeck/internal/identity/domain"
	"github.com/crewdeck/crewdeck/internal/identity/store"
	"github.com/crewdeck/crewdeck/pkg/cryptox"
	"github.com/crewdeck/crewdeck/pkg/slogx"
)

// MinPasswordLength is enforced on registration and every password change.
const MinPasswordLength = 8

// CredentialService owns password verification and rotation. Lookups and
// checks go through here so the unknown-user and wrong-password paths stay
// indistinguishable to callers and, via the dummy hash, to clocks.
type CredentialService struct {
	Store store.Store

	// dummyHash is verified against when the user does not exist, so both
	// failure paths cost one argon2id evaluation.
	dummyHash string
}

func NewCredentialService(st store.Store) (*CredentialService, error) {
	filler, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return nil, err
	}
	dummy, err := cryptox.HashPassword(filler)
	if err != nil {
		return nil, err
	}
	return &CredentialService{Store: st, dummyHash: dummy}, nil
}

// Authenticate resolves an email/password pair to a user. Any failure is
// ErrInvalidCredentials.
func (s *CredentialService) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	log := slogx.FromContext(ctx)
	email = domain.NormalizeEmail(email)

	// 1. Look up the user.
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn an argon2id evaluation anyway.
			_ = cryptox.VerifyPassword(password, s.dummyHash)
			return domain.User{}, ErrInvalidCredentials
		}
		log.Error("failed to fetch user", slog.Any("error", err))
		return domain.User{}, err
	}

	// 2. Verify the password.
	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return domain.User{}, ErrInvalidCredentials
		}
		log.Error("failed to verify password", slog.Any("error", err))
		return domain.User{}, err
	}

	return user, nil
}

// SetPassword hashes and stores a new password for the user. Session
// revocation is the caller's business since each flow keeps a different set.
func (s *CredentialService) SetPassword(ctx context.Context, userID, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}
	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.Store.Users().UpdatePasswordHash(ctx, userID, hash)
}
