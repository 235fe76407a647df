package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/crewdeck/crewdeck/internal/identity/domain"
	"github.com/crewdeck/crewdeck/internal/identity/store"
	"github.com/crewdeck/crewdeck/pkg/cryptox"
	"github.com/crewdeck/crewdeck/pkg/idx"
	"github.com/crewdeck/crewdeck/pkg/slogx"
)

// AccountService covers self-service account operations: registration,
// profile reads, and the logged-in password change.
type AccountService struct {
	Store store.Store
	Otp   *OtpService
}

// Register creates an unverified account and kicks off email verification.
func (s *AccountService) Register(ctx context.Context, email, name, password string) (domain.User, error) {
	log := slogx.FromContext(ctx)

	email = domain.NormalizeEmail(email)
	if len(password) < MinPasswordLength {
		return domain.User{}, ErrWeakPassword
	}

	// 1. Hash before touching the store.
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		GlobalRole:   domain.GlobalRoleNone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// 2. Insert. The unique index decides who wins a racing signup.
	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrEmailTaken
		}
		log.Error("failed to create user", slog.Any("error", err))
		return domain.User{}, err
	}

	// 3. Send the verification code. The account exists either way; the
	// user can request a fresh code if delivery hiccups.
	if err := s.Otp.Request(ctx, email, domain.OtpPurposeEmailVerify); err != nil {
		log.Warn("failed to dispatch verification code", slog.Any("error", err))
	}

	log.Info("user registered", slog.String("user_id", user.ID))
	return user, nil
}

// Me returns the user's own record.
func (s *AccountService) Me(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// UpdateName changes the display name.
func (s *AccountService) UpdateName(ctx context.Context, userID, name string) error {
	return s.Store.Users().UpdateName(ctx, userID, name)
}

// ChangePassword rotates the password for a logged-in user after re-proving
// the current one. Every other session is revoked; the session that made
// the change stays alive.
func (s *AccountService) ChangePassword(
	ctx context.Context,
	userID string,
	sessionID string,
	currentPassword string,
	newPassword string,
) error {
	log := slogx.FromContext(ctx)

	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}

	// 1. Re-prove the current password.
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if err := cryptox.VerifyPassword(currentPassword, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return ErrInvalidCredentials
		}
		return err
	}

	// 2. Rotate and drop the other sessions atomically.
	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, userID, hash); err != nil {
			return err
		}
		return tx.Sessions().RevokeAllForUserExcept(ctx, userID, sessionID)
	})
	if err != nil {
		log.Error("failed to change password", slog.Any("error", err))
		return err
	}

	log.Info("password changed", slog.String("user_id", userID))
	return nil
}
