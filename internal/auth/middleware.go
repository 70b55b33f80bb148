package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/futsalhub/platform/internal/domain"
)

type contextKey string

const (
	claimsKey  contextKey = "auth_claims"
	subjectKey contextKey = "auth_subject"
	callerKey  contextKey = "auth_caller"
)

// ClaimsFromContext extracts JWT claims from request context.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsKey).(*Claims)
	return claims
}

// SubjectFromContext extracts the subject ID string from request context.
func SubjectFromContext(ctx context.Context) string {
	sub, _ := ctx.Value(subjectKey).(string)
	return sub
}

// CallerFromContext returns the authenticated caller, if any.
func CallerFromContext(ctx context.Context) (domain.Caller, bool) {
	c, ok := ctx.Value(callerKey).(domain.Caller)
	return c, ok
}

// WithCaller stores a caller in ctx.
func WithCaller(ctx context.Context, c domain.Caller) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

// AuthenticateUser returns middleware that accepts any valid token, user or staff.
func AuthenticateUser(jwtMgr *JWTManager) func(http.Handler) http.Handler {
	return authenticate(jwtMgr, "")
}

// AuthenticateStaff returns middleware that validates staff JWT tokens.
func AuthenticateStaff(jwtMgr *JWTManager) func(http.Handler) http.Handler {
	return authenticate(jwtMgr, RealmStaff)
}

// OptionalAuth attaches the caller when a valid bearer token is present and
// lets anonymous requests through. An invalid token is still rejected.
func OptionalAuth(jwtMgr *JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}
			authenticate(jwtMgr, "")(next).ServeHTTP(w, r)
		})
	}
}

// RequireRole returns middleware that checks the caller's role.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	roleSet := make(map[domain.Role]bool, len(roles))
	for _, r := range roles {
		roleSet[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := CallerFromContext(r.Context())
			if !ok {
				http.Error(w, `{"code":"UNAUTHORIZED","message":"no auth context"}`, http.StatusUnauthorized)
				return
			}
			if !roleSet[caller.Role] {
				http.Error(w, `{"code":"FORBIDDEN","message":"insufficient role"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authenticate(jwtMgr *JWTManager, realm Realm) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := extractAndValidate(r, jwtMgr, realm)
			if err != nil {
				http.Error(w, `{"code":"UNAUTHORIZED","message":"`+err.Error()+`"}`, http.StatusUnauthorized)
				return
			}
			caller, err := claims.Caller()
			if err != nil {
				http.Error(w, `{"code":"UNAUTHORIZED","message":"`+err.Error()+`"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			ctx = context.WithValue(ctx, subjectKey, claims.Subject)
			ctx = WithCaller(ctx, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractAndValidate(r *http.Request, jwtMgr *JWTManager, realm Realm) (*Claims, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, fmt.Errorf("missing Authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return nil, fmt.Errorf("invalid Authorization format")
	}

	if realm == "" {
		return jwtMgr.ValidateToken(parts[1])
	}
	return jwtMgr.ValidateTokenForRealm(parts[1], realm)
}
