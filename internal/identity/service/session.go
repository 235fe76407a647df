package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/crewdeck/crewdeck/internal/identity/domain"
	"github.com/crewdeck/crewdeck/internal/identity/metrics"
	"github.com/crewdeck/crewdeck/internal/identity/store"
	"github.com/crewdeck/crewdeck/pkg/cryptox"
	"github.com/crewdeck/crewdeck/pkg/idx"
	"github.com/crewdeck/crewdeck/pkg/slogx"
)

// SessionService issues and validates opaque access tokens. The token is
// returned to the client exactly once; only its fingerprint is stored, and
// every validation consults the store so revocation is immediate.
type SessionService struct {
	Store       store.Store
	Credentials *CredentialService
	TTL         time.Duration
}

// Login verifies credentials and mints a session. The returned token is the
// only copy that ever exists in plaintext.
func (s *SessionService) Login(ctx context.Context, email, password string) (string, domain.Session, error) {
	log := slogx.FromContext(ctx)

	// 1. Verify credentials.
	user, err := s.Credentials.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			metrics.LoginsTotal.WithLabelValues("invalid").Inc()
		}
		return "", domain.Session{}, err
	}

	// 2. Generate the opaque token.
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		log.Error("failed to generate session token", slog.Any("error", err))
		return "", domain.Session{}, err
	}

	// 3. Store the session under the token's fingerprint.
	now := time.Now().UTC()
	sess := domain.Session{
		ID:        idx.New().String(),
		UserID:    user.ID,
		TokenHash: cryptox.FingerprintToken(token),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.TTL),
	}
	if err := s.Store.Sessions().CreateSession(ctx, sess); err != nil {
		log.Error("failed to create session", slog.Any("error", err))
		return "", domain.Session{}, err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	log.Debug("session created",
		slog.String("session_id", sess.ID),
		slog.String("user_id", user.ID),
	)
	return token, sess, nil
}

// Validate resolves a bearer token to its session. Expired and revoked
// sessions fail with distinct sentinels so the edge can hint at re-login.
func (s *SessionService) Validate(ctx context.Context, token string) (domain.Session, error) {
	sess, err := s.Store.Sessions().GetByTokenHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Session{}, ErrNotFound
		}
		return domain.Session{}, err
	}

	if sess.Revoked {
		return domain.Session{}, ErrSessionRevoked
	}
	if time.Now().After(sess.ExpiresAt) {
		return domain.Session{}, ErrExpired
	}
	return sess, nil
}

// Logout revokes the session behind a token. Unknown tokens are a no-op;
// there is nothing useful to tell the caller.
func (s *SessionService) Logout(ctx context.Context, token string) error {
	sess, err := s.Store.Sessions().GetByTokenHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	return s.Store.Sessions().Revoke(ctx, sess.ID)
}

// RevokeAllForUser kills every live session of a user.
func (s *SessionService) RevokeAllForUser(ctx context.Context, userID string) error {
	return s.Store.Sessions().RevokeAllForUser(ctx, userID)
}
