package http

import (
	"net/http"

	"github.com/crewdeck/crewdeck/internal/identity/domain"
	"github.com/crewdeck/crewdeck/internal/identity/service"
	"github.com/crewdeck/crewdeck/pkg/httpx"
)

type InviteHandler struct {
	Invites *service.InviteService
}

type createInviteRequest struct {
	ScopeType string `json:"scope_type"`
	ScopeID   string `json:"scope_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

type inviteResponse struct {
	ID        string `json:"id"`
	ScopeType string `json:"scope_type"`
	ScopeID   string `json:"scope_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	ExpiresAt string `json:"expires_at"`
}

func toInviteResponse(inv domain.Invite) inviteResponse {
	return inviteResponse{
		ID:        inv.ID,
		ScopeType: string(inv.ScopeType),
		ScopeID:   inv.ScopeID,
		Email:     inv.Email,
		Role:      string(inv.Role),
		Status:    string(inv.Status),
		ExpiresAt: inv.ExpiresAt.Format(timeFormat),
	}
}

func (h *InviteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createInviteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email is required")
		return
	}

	inv, err := h.Invites.Create(
		r.Context(),
		httpx.UserIDFromContext(r.Context()),
		domain.ScopeType(req.ScopeType),
		req.ScopeID,
		req.Email,
		domain.ScopeRole(req.Role),
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toInviteResponse(inv))
}

type acceptInviteRequest struct {
	Token string `json:"token"`
}

func (h *InviteHandler) Accept(w http.ResponseWriter, r *http.Request) {
	var req acceptInviteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.Invites.Accept(r.Context(), req.Token, httpx.UserIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *InviteHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	err := h.Invites.Revoke(r.Context(), httpx.UserIDFromContext(r.Context()), r.PathValue("inviteID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *InviteHandler) List(w http.ResponseWriter, r *http.Request) {
	scopeType, scopeID, ok := scopeFromPath(w, r)
	if !ok {
		return
	}

	invites, err := h.Invites.ListForScope(r.Context(), httpx.UserIDFromContext(r.Context()), scopeType, scopeID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]inviteResponse, 0, len(invites))
	for _, inv := range invites {
		out = append(out, toInviteResponse(inv))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
