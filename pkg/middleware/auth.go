package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKeyType string

const (
	userIDKey contextKeyType = "user_id"
	emailKey  contextKeyType = "email"
	roleKey   contextKeyType = "role"
)

// AuthContext carries the authenticated subject exposed to the domain
// services. The token lifecycle itself lives outside this codebase; the
// middleware only adapts validated claims into the request context.
type AuthContext struct {
	SubjectID string `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

// TokenValidator validates a bearer token and returns the subject it
// represents. The auth service injects its own implementation.
type TokenValidator func(token string) (*AuthContext, error)

// Auth validates bearer tokens and injects the AuthContext into the request context.
func Auth(validate TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeAuthError(w, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeAuthError(w, "invalid authorization header format")
				return
			}

			subject, err := validate(parts[1])
			if err != nil {
				writeAuthError(w, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, subject.SubjectID)
			ctx = context.WithValue(ctx, emailKey, subject.Email)
			ctx = context.WithValue(ctx, roleKey, subject.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole checks that the authenticated subject has one of the required roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	roleSet := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		roleSet[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := AuthFromContext(r.Context())
			if _, ok := roleSet[auth.Role]; !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"code":    "FORBIDDEN",
					"message": "insufficient permissions",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuthFromContext extracts the authenticated subject from the request context.
// Returns a zero AuthContext when no auth middleware ran.
func AuthFromContext(ctx context.Context) AuthContext {
	var auth AuthContext
	if id, ok := ctx.Value(userIDKey).(string); ok {
		auth.SubjectID = id
	}
	if email, ok := ctx.Value(emailKey).(string); ok {
		auth.Email = email
	}
	if role, ok := ctx.Value(roleKey).(string); ok {
		auth.Role = role
	}
	return auth
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":    "UNAUTHORIZED",
		"message": message,
	})
}
