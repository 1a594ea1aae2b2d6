// Package middleware provides HTTP middleware for bearer-token
// authentication.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

// usernameKey is the context key for the authenticated username.
const usernameKey ContextKey = "username"

// TokenValidator validates a bearer token string.
type TokenValidator interface {
	ValidateToken(tokenString string) (UsernameGetter, error)
}

// UsernameGetter extracts the authenticated username from token claims.
type UsernameGetter interface {
	GetUsername() string
}

// Auth returns middleware that validates the Authorization header and
// stores the verified caller identity in the request context. Any failure
// is a uniform 401; the response never distinguishes missing, malformed
// and expired credentials.
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			parts := strings.Fields(authHeader)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := validator.ValidateToken(strings.TrimSpace(parts[1]))
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), usernameKey, claims.GetUsername())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUsername extracts the authenticated username from the request context.
func GetUsername(r *http.Request) (string, error) {
	username, ok := r.Context().Value(usernameKey).(string)
	if !ok || username == "" {
		return "", fmt.Errorf("username not found in request context")
	}
	return username, nil
}

// WithUsername returns a context carrying an authenticated username, for
// handler tests that bypass the middleware.
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameKey, username)
}
