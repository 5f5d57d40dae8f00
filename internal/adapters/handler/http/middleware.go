package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/vncsmyrnk/ballot/internal/core/ports"
)

type contextKey string

const IdentityKey contextKey = "identity"

const accessTokenCookie = "access_token"

// IdentityFrom returns the authenticated identity stored by RequireIdentity.
func IdentityFrom(ctx context.Context) (string, bool) {
	identity, ok := ctx.Value(IdentityKey).(string)
	return identity, ok && identity != ""
}

// RequireIdentity resolves the caller from the access_token cookie or a
// bearer token. Requests without a valid token get a 401.
func RequireIdentity(authService ports.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := accessToken(r)
			if token == "" {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthenticated", Message: "missing access token"})
				return
			}

			identity, err := authService.ParseAccessToken(token)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthenticated", Message: err.Error()})
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func accessToken(r *http.Request) string {
	if cookie, err := r.Cookie(accessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return ""
}
