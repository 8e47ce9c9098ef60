package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/order"
)

const (
	RoleCustomer   = "customer"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"

	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// Principal is the caller as established by the Authenticator.
type Principal struct {
	UserID uuid.UUID
	Role   string
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin || p.Role == RoleSuperAdmin
}

func (p Principal) Requester() order.Requester {
	return order.Requester{UserID: p.UserID, Admin: p.IsAdmin()}
}

// Authenticator resolves the caller of a request. Session and token
// handling live behind it.
type Authenticator interface {
	Authenticate(r *http.Request) (Principal, error)
}

// HeaderAuthenticator trusts identity headers set by an upstream gateway
// that has already verified the session.
type HeaderAuthenticator struct{}

func (HeaderAuthenticator) Authenticate(r *http.Request) (Principal, error) {
	userID, err := uuid.FromString(strings.TrimSpace(r.Header.Get(HeaderUserID)))
	if err != nil || userID == uuid.Nil {
		return Principal{}, ErrUnauthenticated
	}
	role := strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderUserRole)))
	if role == "" {
		role = RoleCustomer
	}
	return Principal{UserID: userID, Role: role}, nil
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Authenticate rejects requests the Authenticator cannot resolve with 401.
func Authenticate(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := a.Authenticate(r)
			if err != nil {
				log.Warn().Err(err).Str("path", r.URL.Path).Msg("Rejected unauthenticated request")
				respondWithError(w, http.StatusUnauthorized, "Could not validate user")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireRole lets through only principals holding one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				respondWithError(w, http.StatusUnauthorized, "Could not validate user")
				return
			}
			if !allowed[p.Role] {
				log.Warn().Stringer("user_id", p.UserID).Str("role", p.Role).Str("path", r.URL.Path).Msg("Rejected request lacking role")
				respondWithError(w, http.StatusForbidden, "Admin privileges required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
