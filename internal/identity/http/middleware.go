package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/crewdeck/crewdeck/internal/identity/service"
	"github.com/crewdeck/crewdeck/pkg/httpx"
)

// SessionMiddleware authenticates requests via the Authorization bearer
// token. Every request takes a store round trip so revocation is visible
// immediately.
func SessionMiddleware(sessions *service.SessionService) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				httpx.WriteError(w, http.StatusUnauthorized, "missing_token", "Authorization: Bearer token required")
				return
			}

			sess, err := sessions.Validate(r.Context(), token)
			if err != nil {
				writeServiceError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), httpx.CtxKeyUserID, sess.UserID)
			ctx = context.WithValue(ctx, httpx.CtxKeySessionID, sess.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(auth, prefix))
	return token, token != ""
}
