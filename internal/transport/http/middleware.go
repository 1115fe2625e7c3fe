package httpapi

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"vhm-notifier/internal/common/auth"
	apperrors "vhm-notifier/internal/common/errors"
	"vhm-notifier/internal/models"
)

type contextKey string

const claimsKey contextKey = "claims"

// ClaimsFromContext returns the verified claims attached by the auth
// middleware, or nil outside the authenticated route group.
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// authenticate verifies the Bearer token and attaches the claims.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, apperrors.NewUnauthorizedError("missing bearer token"))
			return
		}

		claims, err := s.auth.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeError(w, apperrors.NewUnauthorizedError("invalid token"))
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

// requireRole gates a route group on a role claim. Admins pass every
// gate; the check runs before any side effect, so a rejected caller
// triggers zero sends and zero records.
func requireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				writeError(w, apperrors.NewUnauthorizedError("missing claims"))
				return
			}
			if claims.Role != role && claims.Role != models.RoleAdmin {
				writeError(w, apperrors.NewForbiddenError("required role: "+role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimit throttles a route group with a shared token bucket. Used on
// broadcast, where a runaway caller could flood every channel at once.
func rateLimit(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeJSON(w, http.StatusTooManyRequests, errorBody{
					Code:    apperrors.ErrCodeRateLimited,
					Message: "Rate limit exceeded, retry later",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
