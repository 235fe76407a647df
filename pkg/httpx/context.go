package httpx

import "context"

type ctxKey string

const (
	// CtxKeyUserID is the authenticated user's id, set by the session middleware.
	CtxKeyUserID ctxKey = "user_id"
	// CtxKeySessionID is the id of the session record backing the request.
	CtxKeySessionID ctxKey = "session_id"
)

// UserIDFromContext returns the authenticated user id, or "" when the
// request is unauthenticated.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return v
	}
	return ""
}

// SessionIDFromContext returns the backing session id, or "".
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeySessionID).(string); ok {
		return v
	}
	return ""
}
