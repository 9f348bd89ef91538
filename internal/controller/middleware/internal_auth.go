package middleware

import (
	"net/http"
	"strings"

	"adhocdist/internal/auth"
)

// RequireInternalAuth guards machine callbacks with a shared bearer secret.
// An empty secret disables the check.
func RequireInternalAuth(systemSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if systemSecret == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "Missing authorization header", CodeUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				writeError(w, http.StatusUnauthorized, "Invalid authorization header", CodeUnauthorized)
				return
			}

			if !auth.MatchSecret(parts[1], systemSecret) {
				writeError(w, http.StatusUnauthorized, "Invalid authorization token", CodeUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
