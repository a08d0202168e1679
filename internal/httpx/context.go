package httpx

import (
	"context"
	"net/http"
)

type contextKey string

const (
	userIDKey    contextKey = "userID"
	requestIDKey contextKey = "requestID"
	accessKey    contextKey = "access"
)

// accessInfo collects what inner handlers learn about a request so the
// access log, which wraps them, can report it.
type accessInfo struct {
	userID string
	route  string
}

func accessInfoFrom(ctx context.Context) *accessInfo {
	info, _ := ctx.Value(accessKey).(*accessInfo)
	return info
}

// UserIDFrom retrieves the authenticated user ID from the request context.
func UserIDFrom(r *http.Request) string {
	return UserIDFromContext(r.Context())
}

func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// ContextWithUser returns a new context carrying the user ID.
func ContextWithUser(ctx context.Context, userID string) context.Context {
	if info := accessInfoFrom(ctx); info != nil {
		info.userID = userID
	}
	return context.WithValue(ctx, userIDKey, userID)
}

func RequestIDFrom(r *http.Request) string {
	if v, ok := r.Context().Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}
