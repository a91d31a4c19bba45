package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"spaceshop-server/internal/auth"
	"spaceshop-server/internal/shared/errors"
	"spaceshop-server/internal/shared/response"
)

// AdminOnly lets through only the account whose email matches the
// configured administrator email. It must run inside RequireAuth.
func AdminOnly(adminEmail string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := slog.With(
				"middleware", "admin",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)

			user := GetUserFromContext(r)
			if user == nil {
				response.Error(w, r, logger, errors.Unauthorized("authentication required"))
				return
			}

			if adminEmail == "" {
				response.Error(w, r, logger, errors.Unavailable("administrator access is not configured"))
				return
			}

			if !strings.EqualFold(user.Email, adminEmail) {
				logger.Warn("Non-admin user attempted to access admin endpoint", "user_id", user.ID)
				response.Error(w, r, logger, errors.Forbidden("admin access required"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin chains bearer authentication and the admin email gate.
func RequireAdmin(authService *auth.Service, adminEmail string) func(http.Handler) http.Handler {
	authenticate := RequireAuth(authService)
	admin := AdminOnly(adminEmail)
	return func(next http.Handler) http.Handler {
		return authenticate(admin(next))
	}
}
