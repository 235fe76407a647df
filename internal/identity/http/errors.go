package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/crewdeck/crewdeck/internal/identity/service"
	"github.com/crewdeck/crewdeck/pkg/httpx"
	"github.com/crewdeck/crewdeck/pkg/slogx"
)

// writeServiceError maps the service sentinels onto HTTP status codes.
// Anything unmapped is an infrastructure failure and reports as a 500
// without leaking detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "email or password is incorrect")
	case errors.Is(err, service.ErrSessionRevoked):
		httpx.WriteError(w, http.StatusUnauthorized, "session_revoked", "session has been revoked")
	case errors.Is(err, service.ErrEmailTaken):
		httpx.WriteError(w, http.StatusConflict, "email_taken", "email is already registered")
	case errors.Is(err, service.ErrWeakPassword):
		httpx.WriteError(w, http.StatusBadRequest, "weak_password", "password is too short")
	case errors.Is(err, service.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "")
	case errors.Is(err, service.ErrExpired):
		httpx.WriteError(w, http.StatusGone, "expired", "")
	case errors.Is(err, service.ErrExhausted):
		httpx.WriteError(w, http.StatusTooManyRequests, "attempts_exhausted", "request a new code")
	case errors.Is(err, service.ErrInvalidCode):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_code", "")
	case errors.Is(err, service.ErrAlreadyConsumed):
		httpx.WriteError(w, http.StatusConflict, "already_consumed", "")
	case errors.Is(err, service.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "")
	case errors.Is(err, service.ErrInvalidRole):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_role", "")
	case errors.Is(err, service.ErrSelfDemotionBlocked):
		httpx.WriteError(w, http.StatusConflict, "last_owner", "scope would be left without an owner")
	case errors.Is(err, service.ErrAlreadyMember):
		httpx.WriteError(w, http.StatusConflict, "already_member", "")
	case errors.Is(err, service.ErrDuplicatePending):
		httpx.WriteError(w, http.StatusConflict, "duplicate_pending", "a pending invite already exists")
	case errors.Is(err, service.ErrAlreadyResolved):
		httpx.WriteError(w, http.StatusConflict, "already_resolved", "")
	default:
		slogx.FromContext(r.Context()).Error("request failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
	}
}

// decodeJSON reads a JSON body into dst, rejecting garbage early.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return false
	}
	return true
}
