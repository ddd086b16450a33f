package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mcoot/typerace/internal/api/apierr"
	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/services/account"
	"github.com/mcoot/typerace/internal/services/identity"
)

type contextKey string

const (
	identityContextKey contextKey = "identity"
	claimsContextKey   contextKey = "claims"
)

// Session requires a valid session token and puts the identity in the context
func Session(identities *identity.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			ident, err := identities.FindByToken(model.Token(token))
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireConnection rejects sessions without a live realtime connection.
// It must run after Session.
func RequireConnection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident := MustGetIdentity(r.Context())
		if ident.Connection == "" {
			apierr.WriteError(w, model.ErrNoConnection)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Account requires a valid account access token and puts its claims in the context
func Account(accounts *account.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			claims, err := accounts.ValidateToken(token)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentity retrieves the session identity from context
func GetIdentity(ctx context.Context) (*model.Identity, bool) {
	ident, ok := ctx.Value(identityContextKey).(*model.Identity)
	return ident, ok
}

// MustGetIdentity retrieves the session identity from context, panicking if not present
func MustGetIdentity(ctx context.Context) *model.Identity {
	ident, ok := GetIdentity(ctx)
	if !ok {
		panic("identity not in context - Session middleware not applied")
	}
	return ident
}

// MustGetClaims retrieves account claims from context, panicking if not present
func MustGetClaims(ctx context.Context) *account.Claims {
	claims, ok := ctx.Value(claimsContextKey).(*account.Claims)
	if !ok {
		panic("claims not in context - Account middleware not applied")
	}
	return claims
}

// extractToken extracts the bearer token from the request
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
