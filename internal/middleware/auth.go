// Package middleware provides HTTP middlewares for bearer authentication,
// capability checks, request logging and metrics.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/atinyakov/realtivo/internal/access"
	"github.com/atinyakov/realtivo/internal/models"
)

type ctxKey string

const userKey ctxKey = "user"

// TokenVerifier turns an access token into the user it was issued to.
type TokenVerifier interface {
	ParseToken(token string) (*models.User, error)
}

// BearerAuth is a middleware that requires a valid access token in the
// Authorization header.
//
// On success the decoded user is stored in the request context and can be
// read downstream with UserFromContext. Missing or invalid tokens get 401.
func BearerAuth(v TokenVerifier, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="realtivo"`)
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			user, err := v.ParseToken(strings.TrimSpace(token))
			if err != nil {
				log.Debug("rejected token", zap.String("path", r.URL.Path), zap.Error(err))
				w.Header().Set("WWW-Authenticate", `Bearer realm="realtivo", error="invalid_token"`)
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireCapability rejects requests whose user lacks c with 403. It must
// run after BearerAuth.
func RequireCapability(c access.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if !access.CanUser(user, c) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithUser returns a copy of ctx carrying u.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext extracts the authenticated user from the request context.
// Returns nil if not found.
func UserFromContext(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}
