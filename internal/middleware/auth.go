package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/nadab-hotels/orders-api/internal/auth"
)

type contextKey string

const claimsKey contextKey = "claims"

// Identify attaches the session identity when a token is supplied. Requests
// without a token pass through anonymously; a token that fails validation
// is rejected with 401.
func Identify(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := auth.TokenFromRequest(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ValidateToken(secret, token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), claims)))
		})
	}
}

// RequireIdentity rejects anonymous requests. It must run after Identify.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFromContext(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func IdentityFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// IdentityID returns the caller's id, or "" for anonymous requests.
func IdentityID(ctx context.Context) string {
	if c := IdentityFromContext(ctx); c != nil {
		return c.ID
	}
	return ""
}

// WithIdentity returns a context carrying claims. Identify uses it for
// HTTP requests; the WebSocket endpoint authenticates on its own.
func WithIdentity(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "message": msg})
}
