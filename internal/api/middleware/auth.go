package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/crateport/crateport/internal/api/response"
	"github.com/crateport/crateport/internal/auth"
	"github.com/crateport/crateport/internal/user"
)

const userKey contextKey = "user"

// Auth is middleware that resolves the Authorization header to a user
// via the auth service. Registry clients send the raw API token as the
// header value. Missing or invalid tokens return 403.
func Auth(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken := r.Header.Get("Authorization")
			if rawToken == "" {
				response.Errs(w, http.StatusForbidden, "must be logged in to perform that action")
				return
			}

			u, err := authService.Authenticate(r.Context(), rawToken)
			if err != nil {
				if errors.Is(err, auth.ErrInvalidToken) {
					response.Errs(w, http.StatusForbidden, "must be logged in to perform that action")
					return
				}
				response.Internal(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

// WithUser returns a context carrying u as the authenticated user.
func WithUser(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// GetUser retrieves the authenticated user from the request context.
func GetUser(ctx context.Context) *user.User {
	if u, ok := ctx.Value(userKey).(*user.User); ok {
		return u
	}
	return nil
}
