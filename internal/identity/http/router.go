package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/crewdeck/crewdeck/internal/identity/metrics"
	"github.com/crewdeck/crewdeck/internal/identity/service"
	"github.com/crewdeck/crewdeck/internal/identity/store"
	"github.com/crewdeck/crewdeck/pkg/httpx"
	"github.com/crewdeck/crewdeck/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store           store.Store
	SessionService  *service.SessionService
	OtpService      *service.OtpService
	RecoveryService *service.RecoveryService
	AccessService   *service.AccessService
	InviteService   *service.InviteService
	AccountService  *service.AccountService
	OrgService      *service.OrgService
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		metrics.Middleware,
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerAccount()
	r.registerOrgs()
	r.registerInvites()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		Accounts: r.AccountService,
		Sessions: r.SessionService,
		Otp:      r.OtpService,
		Recovery: r.RecoveryService,
	}
	authn := SessionMiddleware(r.SessionService)

	// Credential endpoints are brute-force targets; all get the strict
	// per-IP profile.
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(http.HandlerFunc(h.Register), httpx.RateLimitByIP(httpx.StrictLimit)))
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.Login), httpx.RateLimitByIP(httpx.StrictLimit)))
	r.Mux.Handle("POST /v1/auth/password/forgot",
		httpx.Chain(http.HandlerFunc(h.ForgotPassword), httpx.RateLimitByIP(httpx.StrictLimit)))
	r.Mux.Handle("POST /v1/auth/password/reset",
		httpx.Chain(http.HandlerFunc(h.ResetPassword), httpx.RateLimitByIP(httpx.StrictLimit)))
	r.Mux.Handle("POST /v1/auth/otp/request",
		httpx.Chain(http.HandlerFunc(h.RequestOtp), httpx.RateLimitByIP(httpx.StrictLimit)))
	r.Mux.Handle("POST /v1/auth/otp/verify",
		httpx.Chain(http.HandlerFunc(h.VerifyOtp), httpx.RateLimitByIP(httpx.StrictLimit)))

	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.Logout), httpx.RateLimitByIP(httpx.ModerateLimit)))

	r.Mux.Handle("POST /v1/auth/password/change",
		httpx.Chain(http.HandlerFunc(h.ChangePassword),
			authn,
			httpx.RateLimitByUser(httpx.StrictLimit),
		))
}

func (r *Router) registerAccount() {
	h := &AccountHandler{
		Accounts: r.AccountService,
		Orgs:     r.OrgService,
	}
	authn := SessionMiddleware(r.SessionService)

	r.Mux.Handle("GET /v1/me",
		httpx.Chain(http.HandlerFunc(h.Me), authn, httpx.RateLimitByUser(httpx.LenientLimit)))
	r.Mux.Handle("PATCH /v1/me",
		httpx.Chain(http.HandlerFunc(h.UpdateMe), authn, httpx.RateLimitByUser(httpx.ModerateLimit)))
	r.Mux.Handle("GET /v1/me/orgs",
		httpx.Chain(http.HandlerFunc(h.MyOrgs), authn, httpx.RateLimitByUser(httpx.LenientLimit)))
	r.Mux.Handle("GET /v1/me/workspaces",
		httpx.Chain(http.HandlerFunc(h.MyWorkspaces), authn, httpx.RateLimitByUser(httpx.LenientLimit)))
}

func (r *Router) registerOrgs() {
	h := &OrgHandler{
		Orgs:   r.OrgService,
		Access: r.AccessService,
	}
	authn := SessionMiddleware(r.SessionService)

	r.Mux.Handle("POST /v1/orgs",
		httpx.Chain(http.HandlerFunc(h.CreateOrg), authn, httpx.RateLimitByUser(httpx.ModerateLimit)))
	r.Mux.Handle("POST /v1/orgs/{orgID}/workspaces",
		httpx.Chain(http.HandlerFunc(h.CreateWorkspace), authn, httpx.RateLimitByUser(httpx.ModerateLimit)))
	r.Mux.Handle("GET /v1/scopes/{scopeType}/{scopeID}/members",
		httpx.Chain(http.HandlerFunc(h.ListMembers), authn, httpx.RateLimitByUser(httpx.LenientLimit)))
	r.Mux.Handle("PUT /v1/scopes/{scopeType}/{scopeID}/members/{userID}/role",
		httpx.Chain(http.HandlerFunc(h.ChangeRole), authn, httpx.RateLimitByUser(httpx.ModerateLimit)))
	r.Mux.Handle("DELETE /v1/scopes/{scopeType}/{scopeID}/members/{userID}",
		httpx.Chain(http.HandlerFunc(h.RemoveMember), authn, httpx.RateLimitByUser(httpx.ModerateLimit)))
}

func (r *Router) registerInvites() {
	h := &InviteHandler{Invites: r.InviteService}
	authn := SessionMiddleware(r.SessionService)

	r.Mux.Handle("POST /v1/invites",
		httpx.Chain(http.HandlerFunc(h.Create), authn, httpx.RateLimitByUser(httpx.ModerateLimit)))
	r.Mux.Handle("POST /v1/invites/accept",
		httpx.Chain(http.HandlerFunc(h.Accept), authn, httpx.RateLimitByUser(httpx.ModerateLimit)))
	r.Mux.Handle("POST /v1/invites/{inviteID}/revoke",
		httpx.Chain(http.HandlerFunc(h.Revoke), authn, httpx.RateLimitByUser(httpx.ModerateLimit)))
	r.Mux.Handle("GET /v1/scopes/{scopeType}/{scopeID}/invites",
		httpx.Chain(http.HandlerFunc(h.List), authn, httpx.RateLimitByUser(httpx.LenientLimit)))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
	r.Mux.Handle("GET /metrics", metrics.Handler())
}
