package middleware

import (
	"context"
	"net/http"

	"github.com/zhao0294/cst8919-assignment1/internal/session"
)

// unexported, collision-proof context key
type sessionContextKeyType struct{}

var sessionKey = sessionContextKeyType{}

// SessionFromContext extracts the session record attached by RequireAuth.
func SessionFromContext(ctx context.Context) (session.Record, bool) {
	rec, ok := ctx.Value(sessionKey).(session.Record)
	return rec, ok
}

// WithSession attaches rec to ctx.
func WithSession(ctx context.Context, rec session.Record) context.Context {
	return context.WithValue(ctx, sessionKey, rec)
}

type AuthMiddleware struct {
	Sessions session.Reader
}

func NewAuthMiddleware(sessions session.Reader) *AuthMiddleware {
	return &AuthMiddleware{Sessions: sessions}
}

// RequireAuth runs next with the session record in the request context, or
// denied when the request carries no valid session. A nil denied answers 401.
func (a *AuthMiddleware) RequireAuth(next, denied http.Handler) http.Handler {
	if denied == nil {
		denied = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		})
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec, ok := a.Sessions.Current(r)
		if !ok {
			denied.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), rec)))
	})
}
