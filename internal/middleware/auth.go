package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"spaceshop-server/internal/auth"
	"spaceshop-server/internal/shared/errors"
	"spaceshop-server/internal/shared/response"
)

type contextKey string

const UserContextKey contextKey = "user"

// BearerToken extracts the token from an Authorization header, or ""
// when the header is absent or malformed.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	return ""
}

// RequireAuth validates the bearer token against the auth service and
// stores the resolved user in the request context.
func RequireAuth(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := slog.With(
				"middleware", "auth",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)

			token := BearerToken(r)
			if token == "" {
				response.Error(w, r, logger, errors.Unauthorized("authentication required"))
				return
			}

			user, err := authService.GetUserFromToken(r.Context(), token)
			if err != nil {
				response.Error(w, r, logger, err)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			logger.Debug("Bearer authentication successful", "user_id", user.ID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserFromContext returns the authenticated user, or nil outside a
// RequireAuth-wrapped handler.
func GetUserFromContext(r *http.Request) *auth.User {
	if user, ok := r.Context().Value(UserContextKey).(*auth.User); ok {
		return user
	}
	return nil
}
