package http

import (
	"net/http"

	"github.com/crewdeck/crewdeck/internal/identity/domain"
	"github.com/crewdeck/crewdeck/internal/identity/service"
	"github.com/crewdeck/crewdeck/pkg/httpx"
)

// OrgHandler serves organization and workspace creation plus the scoped
// member management endpoints.
type OrgHandler struct {
	Orgs   *service.OrgService
	Access *service.AccessService
}

// scopeFromPath reads and validates the {scopeType} path segment.
func scopeFromPath(w http.ResponseWriter, r *http.Request) (domain.ScopeType, string, bool) {
	scopeType := domain.ScopeType(r.PathValue("scopeType"))
	scopeID := r.PathValue("scopeID")
	if !scopeType.Valid() || scopeID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "unknown scope")
		return "", "", false
	}
	return scopeType, scopeID, true
}

type createOrgRequest struct {
	Name string `json:"name"`
}

func (h *OrgHandler) CreateOrg(w http.ResponseWriter, r *http.Request) {
	var req createOrgRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}

	org, err := h.Orgs.CreateOrganization(r.Context(), httpx.UserIDFromContext(r.Context()), req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, orgResponse{
		ID:        org.ID,
		Name:      org.Name,
		CreatedAt: org.CreatedAt.Format(timeFormat),
	})
}

type createWorkspaceRequest struct {
	Name string `json:"name"`
}

func (h *OrgHandler) CreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req createWorkspaceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}

	ws, err := h.Orgs.CreateWorkspace(r.Context(), httpx.UserIDFromContext(r.Context()), r.PathValue("orgID"), req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, workspaceResponse{
		ID:        ws.ID,
		OrgID:     ws.OrgID,
		Name:      ws.Name,
		CreatedAt: ws.CreatedAt.Format(timeFormat),
	})
}

type memberResponse struct {
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	JoinedAt string `json:"joined_at"`
}

func (h *OrgHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	scopeType, scopeID, ok := scopeFromPath(w, r)
	if !ok {
		return
	}

	members, err := h.Orgs.ListScopeMembers(r.Context(), httpx.UserIDFromContext(r.Context()), scopeType, scopeID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, memberResponse{
			UserID:   m.UserID,
			Role:     string(m.Role),
			JoinedAt: m.JoinedAt.Format(timeFormat),
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

func (h *OrgHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	scopeType, scopeID, ok := scopeFromPath(w, r)
	if !ok {
		return
	}
	var req changeRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.Access.ChangeRole(
		r.Context(),
		httpx.UserIDFromContext(r.Context()),
		r.PathValue("userID"),
		scopeType,
		scopeID,
		domain.ScopeRole(req.Role),
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrgHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	scopeType, scopeID, ok := scopeFromPath(w, r)
	if !ok {
		return
	}

	err := h.Access.RemoveMember(
		r.Context(),
		httpx.UserIDFromContext(r.Context()),
		r.PathValue("userID"),
		scopeType,
		scopeID,
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
