package http

import (
	"net/http"

	"github.com/crewdeck/crewdeck/internal/identity/service"
	"github.com/crewdeck/crewdeck/pkg/httpx"
)

// AccountHandler serves the authenticated self-service reads and profile
// updates under /v1/me.
type AccountHandler struct {
	Accounts *service.AccountService
	Orgs     *service.OrgService
}

func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.Accounts.Me(r.Context(), httpx.UserIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

type updateMeRequest struct {
	Name string `json:"name"`
}

func (h *AccountHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req updateMeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}

	ctx := r.Context()
	if err := h.Accounts.UpdateName(ctx, httpx.UserIDFromContext(ctx), req.Name); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type orgResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

func (h *AccountHandler) MyOrgs(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.Orgs.ListUserOrganizations(r.Context(), httpx.UserIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]orgResponse, 0, len(orgs))
	for _, o := range orgs {
		out = append(out, orgResponse{ID: o.ID, Name: o.Name, CreatedAt: o.CreatedAt.Format(timeFormat)})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

type workspaceResponse struct {
	ID        string `json:"id"`
	OrgID     string `json:"org_id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

func (h *AccountHandler) MyWorkspaces(w http.ResponseWriter, r *http.Request) {
	workspaces, err := h.Orgs.ListUserWorkspaces(r.Context(), httpx.UserIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]workspaceResponse, 0, len(workspaces))
	for _, ws := range workspaces {
		out = append(out, workspaceResponse{
			ID:        ws.ID,
			OrgID:     ws.OrgID,
			Name:      ws.Name,
			CreatedAt: ws.CreatedAt.Format(timeFormat),
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
