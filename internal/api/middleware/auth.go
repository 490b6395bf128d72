package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/krafta/backend/internal/domain/entities"
	"github.com/krafta/backend/internal/infrastructure/observability"
)

// SessionCookieName is the cookie that carries the session token
const SessionCookieName = "krafta_session"

// SessionParser resolves a session token into a caller identity
type SessionParser interface {
	Parse(token string) (*entities.Principal, error)
}

type principalKey struct{}

// WithPrincipal returns a context carrying the caller identity
func WithPrincipal(ctx context.Context, p *entities.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the caller identity, or nil for anonymous requests
func PrincipalFromContext(ctx context.Context) *entities.Principal {
	p, _ := ctx.Value(principalKey{}).(*entities.Principal)
	return p
}

// TokenFromRequest reads the session token from the Authorization header,
// falling back to the session cookie
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// Authenticate attaches the caller identity when a valid session is present.
// Invalid or expired tokens are treated as anonymous.
func Authenticate(sessions SessionParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := sessions.Parse(token)
			if err != nil {
				observability.LoggerFromContext(r.Context()).Debug().Err(err).Msg("Ignoring invalid session")
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireSession rejects anonymous requests
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if PrincipalFromContext(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects anonymous requests and callers with a different role
func RequireRole(role entities.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromContext(r.Context())
			if principal == nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			if principal.Role != role {
				writeError(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
