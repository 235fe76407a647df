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

// InviteService runs the invite lifecycle: pending is the only live state,
// and the pending-to-terminal transition is a conditional update so every
// race over the same invite has exactly one winner.
type InviteService struct {
	Store    store.Store
	Access   *AccessService
	Sender   notify.Sender
	LinkBase string
	TTL      time.Duration
}

// Create mints a pending invite for an email at a scope and mails the
// accept link. The returned token is the only plaintext copy.
func (s *InviteService) Create(
	ctx context.Context,
	actorID string,
	scopeType domain.ScopeType,
	scopeID string,
	email string,
	role domain.ScopeRole,
) (domain.Invite, error) {
	log := slogx.FromContext(ctx)

	if !scopeType.Valid() || !role.Valid() {
		return domain.Invite{}, ErrInvalidRole
	}

	// 1. Actor needs invite rights at the scope.
	if err := s.Access.Require(ctx, actorID, scopeType, scopeID, domain.PermInviteMembers); err != nil {
		return domain.Invite{}, err
	}

	// 2. The scope must exist; its name goes into the email.
	scopeName, err := s.scopeName(ctx, scopeType, scopeID)
	if err != nil {
		return domain.Invite{}, err
	}

	// 3. Generate the token.
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		log.Error("failed to generate invite token", slog.Any("error", err))
		return domain.Invite{}, err
	}

	now := time.Now().UTC()
	inv := domain.Invite{
		ID:        idx.New().String(),
		ScopeType: scopeType,
		ScopeID:   scopeID,
		Email:     domain.NormalizeEmail(email),
		Role:      role,
		TokenHash: cryptox.FingerprintToken(token),
		Status:    domain.InviteStatusPending,
		InvitedBy: actorID,
		ExpiresAt: now.Add(s.TTL),
		CreatedAt: now,
		UpdatedAt: now,
	}

	// 4. Insert. A lapsed pending invite must not hold the slot, so overdue
	// ones are expired first in the same transaction.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Invites().ExpireOverdue(ctx, now); err != nil {
			return err
		}
		return tx.Invites().CreateInvite(ctx, inv)
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Invite{}, ErrDuplicatePending
		}
		log.Error("failed to create invite", slog.Any("error", err))
		return domain.Invite{}, err
	}

	// 5. Dispatch the link.
	link := fmt.Sprintf("%s/invites/accept?token=%s", s.LinkBase, token)
	subject, body := notify.InviteEmail(scopeName, role, link)
	if err := s.Sender.Send(ctx, inv.Email, subject, body); err != nil {
		log.Error("failed to send invite email", slog.Any("error", err))
		return domain.Invite{}, err
	}

	metrics.InvitesCreatedTotal.Inc()
	log.Info("invite created",
		slog.String("invite_id", inv.ID),
		slog.String("scope_type", string(scopeType)),
		slog.String("scope_id", scopeID),
		slog.String("role", string(role)),
	)
	return inv, nil
}

// Accept resolves an invite token for the authenticated user and creates
// the membership. An invite for someone who joined the scope in the meantime
// is still closed out as accepted, then reported as ErrAlreadyMember.
func (s *InviteService) Accept(ctx context.Context, token, userID string) error {
	log := slogx.FromContext(ctx)
	alreadyMember := false

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		// 1. Look up by fingerprint.
		inv, err := tx.Invites().GetInviteByTokenHash(ctx, cryptox.FingerprintToken(token))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}

		// 2. Terminal states are final.
		switch inv.Status {
		case domain.InviteStatusPending:
		case domain.InviteStatusExpired:
			return ErrExpired
		default:
			return ErrAlreadyResolved
		}

		// 3. Lazy expiry: an overdue pending invite dies here.
		now := time.Now()
		if inv.Overdue(now) {
			if _, err := tx.Invites().Resolve(ctx, inv.ID, domain.InviteStatusExpired); err != nil {
				return err
			}
			return ErrExpired
		}

		// 4. Claim it. The loser of a concurrent accept stops here.
		ok, err := tx.Invites().Resolve(ctx, inv.ID, domain.InviteStatusAccepted)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyResolved
		}

		// 5. Grant the membership. An existing one still commits the claim,
		// so the invite cannot be replayed later for a different role.
		err = tx.Memberships().CreateMembership(ctx, domain.Membership{
			UserID:    userID,
			ScopeType: inv.ScopeType,
			ScopeID:   inv.ScopeID,
			Role:      inv.Role,
			JoinedAt:  now.UTC(),
		})
		if errors.Is(err, store.ErrAlreadyExists) {
			alreadyMember = true
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}

	metrics.InvitesResolvedTotal.WithLabelValues(string(domain.InviteStatusAccepted)).Inc()
	if alreadyMember {
		return ErrAlreadyMember
	}

	log.Info("invite accepted", slog.String("user_id", userID))
	return nil
}

// Revoke cancels a pending invite.
func (s *InviteService) Revoke(ctx context.Context, actorID, inviteID string) error {
	inv, err := s.Store.Invites().GetInviteByID(ctx, inviteID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if err := s.Access.Require(ctx, actorID, inv.ScopeType, inv.ScopeID, domain.PermInviteMembers); err != nil {
		return err
	}

	ok, err := s.Store.Invites().Resolve(ctx, inviteID, domain.InviteStatusRevoked)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyResolved
	}

	metrics.InvitesResolvedTotal.WithLabelValues(string(domain.InviteStatusRevoked)).Inc()
	slogx.FromContext(ctx).Info("invite revoked", slog.String("invite_id", inviteID))
	return nil
}

// ListForScope returns the invites at a scope, applying lazy expiry so
// callers never see an overdue invite still reported as pending.
func (s *InviteService) ListForScope(
	ctx context.Context,
	actorID string,
	scopeType domain.ScopeType,
	scopeID string,
) ([]domain.Invite, error) {
	if err := s.Access.Require(ctx, actorID, scopeType, scopeID, domain.PermInviteMembers); err != nil {
		return nil, err
	}

	invites, err := s.Store.Invites().ListByScope(ctx, scopeType, scopeID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	for i, inv := range invites {
		if inv.Overdue(now) {
			if _, err := s.Store.Invites().Resolve(ctx, inv.ID, domain.InviteStatusExpired); err != nil {
				return nil, err
			}
			invites[i].Status = domain.InviteStatusExpired
		}
	}
	return invites, nil
}

func (s *InviteService) scopeName(ctx context.Context, scopeType domain.ScopeType, scopeID string) (string, error) {
	switch scopeType {
	case domain.ScopeOrganization:
		org, err := s.Store.Orgs().GetOrgByID(ctx, scopeID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return "", ErrNotFound
			}
			return "", err
		}
		return org.Name, nil
	default:
		ws, err := s.Store.Orgs().GetWorkspaceByID(ctx, scopeID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return "", ErrNotFound
			}
			return "", err
		}
		return ws.Name, nil
	}
}
