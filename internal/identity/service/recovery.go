package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/crewdeck/crewdeck/internal/identity/domain"
	"github.com/crewdeck/crewdeck/internal/identity/metrics"
	"github.com/crewdeck/crewdeck/internal/identity/notify"
	"github.com/crewdeck/crewdeck/internal/identity/store"
	"github.com/crewdeck/crewdeck/pkg/cryptox"
	"github.com/crewdeck/crewdeck/pkg/idx"
	"github.com/crewdeck/crewdeck/pkg/slogx"
)

// RecoveryService handles the forgot-password flow. The token rides inside
// an emailed link, carries 256 bits of entropy, and is never typed by hand,
// so there is no attempt counter.
type RecoveryService struct {
	Store    store.Store
	Sender   notify.Sender
	LinkBase string
	TTL      time.Duration
}

// Request issues a recovery link for the address, superseding any earlier
// live token. Unknown addresses succeed silently.
func (s *RecoveryService) Request(ctx context.Context, email string) error {
	log := slogx.FromContext(ctx)
	email = domain.NormalizeEmail(email)

	// 1. Only registered addresses get links. Pretend success otherwise.
	if _, err := s.Store.Users().GetUserByEmail(ctx, email); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Info("recovery requested for unknown email")
			return nil
		}
		return err
	}

	// 2. Generate the token.
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		log.Error("failed to generate recovery token", slog.Any("error", err))
		return err
	}

	now := time.Now().UTC()
	rec := domain.RecoveryToken{
		ID:        idx.New().String(),
		Email:     email,
		TokenHash: cryptox.FingerprintToken(token),
		CreatedAt: now,
		ExpiresAt: now.Add(s.TTL),
	}

	// 3. Supersede and insert atomically.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RecoveryTokens().ConsumeActiveFor(ctx, email); err != nil {
			return err
		}
		return tx.RecoveryTokens().CreateToken(ctx, rec)
	})
	if err != nil {
		log.Error("failed to store recovery token", slog.Any("error", err))
		return err
	}

	// 4. Dispatch the link.
	link := fmt.Sprintf("%s/reset-password?token=%s", s.LinkBase, token)
	subject, body := notify.PasswordResetEmail(link)
	if err := s.Sender.Send(ctx, email, subject, body); err != nil {
		log.Error("failed to send recovery email", slog.Any("error", err))
		return err
	}

	metrics.RecoveryRequestsTotal.Inc()
	log.Debug("recovery token issued", slog.String("token_id", rec.ID))
	return nil
}

// Reset consumes a recovery token, sets the new password, and revokes every
// session of the user, all in one transaction.
func (s *RecoveryService) Reset(ctx context.Context, token, newPassword string) error {
	log := slogx.FromContext(ctx)

	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}
	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		// 1. Look up by fingerprint.
		rec, err := tx.RecoveryTokens().GetByTokenHash(ctx, cryptox.FingerprintToken(token))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}

		// 2. A spent token stays spent, superseded ones included.
		if rec.Consumed {
			return ErrAlreadyConsumed
		}
		if time.Now().After(rec.ExpiresAt) {
			return ErrExpired
		}

		// 3. Consume. Exactly one of two racing resets wins.
		ok, err := tx.RecoveryTokens().Consume(ctx, rec.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyConsumed
		}

		// 4. Rotate the password and drop every session.
		user, err := tx.Users().GetUserByEmail(ctx, rec.Email)
		if err != nil {
			return err
		}
		if err := tx.Users().UpdatePasswordHash(ctx, user.ID, hash); err != nil {
			return err
		}
		return tx.Sessions().RevokeAllForUser(ctx, user.ID)
	})
	if err != nil {
		return err
	}

	metrics.PasswordResetsTotal.Inc()
	log.Info("password reset via recovery link")
	return nil
}
