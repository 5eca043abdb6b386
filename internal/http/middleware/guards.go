package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/bistro-api/internal/domain"
	"github.com/diagnosis/bistro-api/internal/http/response"
	"github.com/diagnosis/bistro-api/internal/utils"
	"github.com/diagnosis/bistro-api/pkg/auth"
	"github.com/diagnosis/bistro-api/pkg/logger"
	"github.com/diagnosis/bistro-api/pkg/metrics"
)

type ctxKey string

const CtxClaims ctxKey = "claims"

type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// UserFinder is the slice of the credential store the admin check needs.
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Guards gates routes on identity and role. Built once at startup.
type Guards struct {
	tokens  TokenVerifier
	users   UserFinder
	metrics metrics.Recorder
}

func NewGuards(tokens TokenVerifier, users UserFinder, rec metrics.Recorder) *Guards {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Guards{tokens: tokens, users: users, metrics: rec}
}

// Authenticated requires a valid identity token in the Authorization header.
// The header carries the raw token; a "Bearer " prefix is accepted as well.
func (g *Guards) Authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get("Authorization"))
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
		if raw == "" {
			g.metrics.RecordGuardRejection("authenticated", "missing")
			response.Unauthorized(w, response.CodeUnauthorized)
			return
		}

		claims, err := g.tokens.Verify(raw)
		if err != nil {
			code, reason := response.CodeInvalidToken, "invalid"
			if errors.Is(err, auth.ErrExpired) {
				code, reason = response.CodeExpiredToken, "expired"
			}
			g.metrics.RecordGuardRejection("authenticated", reason)
			logger.DebugContext(r.Context(), "token rejected", "error", err)
			response.Unauthorized(w, code)
			return
		}

		ctx := context.WithValue(r.Context(), CtxClaims, claims)
		ctx = context.WithValue(ctx, logger.UserIDKey, claims.Email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminOnly authenticates, then requires the caller's stored role to be admin.
func (g *Guards) AdminOnly(next http.Handler) http.Handler {
	return g.Authenticated(g.requireAdmin(next))
}

func (g *Guards) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := Claims(r)
		if claims == nil {
			g.metrics.RecordGuardRejection("admin", "unauthenticated")
			response.Unauthorized(w, response.CodeUnauthorized)
			return
		}

		u, err := g.users.FindByEmail(r.Context(), utils.NormalizeEmail(claims.Email))
		if err != nil {
			logger.ErrorContext(r.Context(), "admin lookup failed", "error", err)
			response.InternalError(w, "failed to verify role")
			return
		}
		if !u.IsAdmin() {
			g.metrics.RecordGuardRejection("admin", "not_admin")
			response.Forbidden(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SelfOnly authenticates, then requires the URL parameter param to name the
// caller's own email. Admins get no exemption.
func (g *Guards) SelfOnly(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return g.Authenticated(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := Claims(r)
			if claims == nil || !utils.SameEmail(claims.Email, chi.URLParam(r, param)) {
				g.metrics.RecordGuardRejection("self", "mismatch")
				response.Forbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

func Claims(r *http.Request) *auth.Claims {
	return ClaimsFrom(r.Context())
}

func ClaimsFrom(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(CtxClaims).(*auth.Claims)
	return c
}
