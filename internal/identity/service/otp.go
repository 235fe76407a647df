package service

import (
	"context"
	"crypto/subtle"
	"errors"
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

const (
	// OtpCodeDigits is the length of the numeric code typed by the user.
	OtpCodeDigits = 6

	// OtpMaxAttempts caps wrong guesses per challenge. A 6-digit code with
	// 5 guesses keeps the brute-force odds at 1 in 200 000.
	OtpMaxAttempts = 5
)

// OtpService issues and verifies short numeric codes sent to an email
// address. Codes are stored only as fingerprints and are single use.
type OtpService struct {
	Store  store.Store
	Sender notify.Sender
	TTL    time.Duration
}

// Request issues a fresh code for (email, purpose), superseding any prior
// unconsumed one. Unknown addresses succeed silently so the endpoint cannot
// be used to probe which emails are registered.
func (s *OtpService) Request(ctx context.Context, email string, purpose domain.OtpPurpose) error {
	log := slogx.FromContext(ctx)

	if !purpose.Valid() {
		return ErrNotFound
	}
	email = domain.NormalizeEmail(email)

	// 1. Only registered addresses get codes. Pretend success otherwise.
	if _, err := s.Store.Users().GetUserByEmail(ctx, email); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Info("otp requested for unknown email", slog.String("purpose", string(purpose)))
			return nil
		}
		return err
	}

	// 2. Generate the code.
	code, err := cryptox.GenerateNumericCode(OtpCodeDigits)
	if err != nil {
		log.Error("failed to generate otp code", slog.Any("error", err))
		return err
	}

	now := time.Now().UTC()
	challenge := domain.OtpChallenge{
		ID:                idx.New().String(),
		Email:             email,
		Purpose:           purpose,
		CodeHash:          cryptox.FingerprintToken(code),
		AttemptsRemaining: OtpMaxAttempts,
		CreatedAt:         now,
		ExpiresAt:         now.Add(s.TTL),
	}

	// 3. Supersede any prior code and insert the new one atomically, so
	// exactly one live challenge exists per (email, purpose).
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.OtpChallenges().ConsumeActiveFor(ctx, email, purpose); err != nil {
			return err
		}
		return tx.OtpChallenges().CreateChallenge(ctx, challenge)
	})
	if err != nil {
		log.Error("failed to store otp challenge", slog.Any("error", err))
		return err
	}

	// 4. Dispatch. A failed send surfaces; the superseded code is already
	// dead, so the user just requests again.
	subject, body := notify.OtpCodeEmail(code, purpose)
	if err := s.Sender.Send(ctx, email, subject, body); err != nil {
		log.Error("failed to send otp email", slog.Any("error", err))
		return err
	}

	metrics.OtpIssuedTotal.WithLabelValues(string(purpose)).Inc()
	log.Debug("otp issued",
		slog.String("challenge_id", challenge.ID),
		slog.String("purpose", string(purpose)),
	)
	return nil
}

// Verify checks a code and consumes it on success.
func (s *OtpService) Verify(ctx context.Context, email string, purpose domain.OtpPurpose, code string) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		return s.verifyAndConsume(ctx, tx, email, purpose, code)
	})
}

// VerifyEmail runs the email-verify challenge and flips the user's verified
// flag in the same transaction.
func (s *OtpService) VerifyEmail(ctx context.Context, email, code string) error {
	email = domain.NormalizeEmail(email)

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := s.verifyAndConsume(ctx, tx, email, domain.OtpPurposeEmailVerify, code); err != nil {
			return err
		}
		user, err := tx.Users().GetUserByEmail(ctx, email)
		if err != nil {
			return err
		}
		return tx.Users().MarkEmailVerified(ctx, user.ID)
	})
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("email verified")
	return nil
}

// ChangePasswordWithOtp consumes a password-change challenge, sets the new
// password, and revokes every session of the user, all in one transaction.
func (s *OtpService) ChangePasswordWithOtp(ctx context.Context, email, code, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}
	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}
	email = domain.NormalizeEmail(email)

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := s.verifyAndConsume(ctx, tx, email, domain.OtpPurposePasswordChange, code); err != nil {
			return err
		}
		user, err := tx.Users().GetUserByEmail(ctx, email)
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

	slogx.FromContext(ctx).Info("password changed via otp")
	return nil
}

// verifyAndConsume is the single verification path. It runs against a
// tx-scoped store so gated side effects commit atomically with consumption.
func (s *OtpService) verifyAndConsume(
	ctx context.Context,
	tx store.Tx,
	email string,
	purpose domain.OtpPurpose,
	code string,
) error {
	email = domain.NormalizeEmail(email)

	// 1. Find the current challenge, spent or not.
	c, err := tx.OtpChallenges().GetLatest(ctx, email, purpose)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.OtpVerificationsTotal.WithLabelValues("not_found").Inc()
			return ErrNotFound
		}
		return err
	}

	// 2. A spent challenge stays spent.
	if c.Consumed {
		metrics.OtpVerificationsTotal.WithLabelValues("already_consumed").Inc()
		return ErrAlreadyConsumed
	}

	// 3. Expired challenges are consumed on sight so later calls report
	// AlreadyConsumed rather than re-litigating expiry.
	if time.Now().After(c.ExpiresAt) {
		if _, err := tx.OtpChallenges().Consume(ctx, c.ID); err != nil {
			return err
		}
		metrics.OtpVerificationsTotal.WithLabelValues("expired").Inc()
		return ErrExpired
	}

	// 4. Exhausted challenges fail before the code is even looked at.
	if c.AttemptsRemaining <= 0 {
		metrics.OtpVerificationsTotal.WithLabelValues("exhausted").Inc()
		return ErrExhausted
	}

	// 5. Burn an attempt before comparing.
	ok, err := tx.OtpChallenges().DecrementAttempts(ctx, c.ID)
	if err != nil {
		return err
	}
	if !ok {
		metrics.OtpVerificationsTotal.WithLabelValues("exhausted").Inc()
		return ErrExhausted
	}

	// 6. Compare fingerprints.
	if subtle.ConstantTimeCompare([]byte(cryptox.FingerprintToken(code)), []byte(c.CodeHash)) != 1 {
		metrics.OtpVerificationsTotal.WithLabelValues("invalid").Inc()
		return ErrInvalidCode
	}

	// 7. Consume. A concurrent verify that lost the race sees the spent row.
	ok, err = tx.OtpChallenges().Consume(ctx, c.ID)
	if err != nil {
		return err
	}
	if !ok {
		metrics.OtpVerificationsTotal.WithLabelValues("already_consumed").Inc()
		return ErrAlreadyConsumed
	}

	metrics.OtpVerificationsTotal.WithLabelValues("success").Inc()
	return nil
}
