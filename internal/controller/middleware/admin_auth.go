package middleware

import (
	"log/slog"
	"net/http"

	"adhocdist/internal/auth"
	"adhocdist/internal/logger"
)

// AdminRealm is announced in the WWW-Authenticate challenge.
const AdminRealm = "Admin"

// RequireAdmin guards operator routes with HTTP Basic credentials.
func RequireAdmin(checker auth.CredentialChecker, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok {
				challenge(w, "Authentication required")
				return
			}

			if err := checker.Check(r.Context(), user, pass); err != nil {
				logger.FromContext(r.Context(), log).Warn("admin authentication failed", "user", user, "remote", r.RemoteAddr)
				challenge(w, "Invalid credentials")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func challenge(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", `Basic realm="`+AdminRealm+`"`)
	writeError(w, http.StatusUnauthorized, message, CodeUnauthorized)
}
