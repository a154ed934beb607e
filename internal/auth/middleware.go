package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey int

const identityContextKey contextKey = iota

// IdentityFromContext returns the validated caller stored by RequireAuth.
func IdentityFromContext(ctx context.Context) *ValidationResult {
	identity, _ := ctx.Value(identityContextKey).(*ValidationResult)
	return identity
}

func contextWithIdentity(ctx context.Context, identity *ValidationResult) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireAuth validates the bearer token on every request and stores the
// result on the context. Missing or invalid credentials yield one uniform
// 401 response. Both outcomes are recorded so the validate failure rate
// stays visible. metrics may be nil.
func RequireAuth(validation *TokenValidation, metrics AttemptRecorder) func(http.Handler) http.Handler {
	record := func(outcome string) {
		if metrics != nil {
			metrics.AuthAttempt("validate", outcome)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				record("failure")
				writeJSON(w, http.StatusUnauthorized, apiResponse{
					Success: false,
					Message: "invalid or expired token",
					Error:   "UNAUTHORIZED",
				})
				return
			}
			identity, err := validation.Execute(r.Context(), token)
			if err != nil {
				record("failure")
				writeJSON(w, http.StatusUnauthorized, apiResponse{
					Success: false,
					Message: "invalid or expired token",
					Error:   "UNAUTHORIZED",
				})
				return
			}
			record("success")
			next.ServeHTTP(w, r.WithContext(contextWithIdentity(r.Context(), identity)))
		})
	}
}

// RequireRole gates a route on the caller's role. It must run after
// RequireAuth.
func RequireRole(role Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFromContext(r.Context())
			if identity == nil || identity.User.Role != string(role) {
				writeJSON(w, http.StatusForbidden, apiResponse{
					Success: false,
					Message: "insufficient permissions",
					Error:   "FORBIDDEN",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
