package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/bookingsaas/libs/httpx"
)

type ctxKey int

const ctxKeyClaims ctxKey = iota

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ctxKeyClaims).(*Claims)
	return c, ok
}

// RequireBearer verifies an HS256 bearer token. With an empty secret the
// middleware is a pass-through so local setups keep working without tokens.
func RequireBearer(secret string) httpx.Middleware {
	if strings.TrimSpace(secret) == "" {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				httpx.WriteError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			claims, err := ParseAndVerifyHS256(raw, secret)
			if err != nil {
				httpx.WriteError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyClaims, claims)))
		})
	}
}

// AllowsBusiness reports whether the claims in ctx may act on businessID.
// No claims means the guard is disabled.
func AllowsBusiness(ctx context.Context, businessID string) bool {
	c, ok := ClaimsFromContext(ctx)
	if !ok {
		return true
	}
	if c.Role == "admin" && c.BusinessID == "" {
		return true
	}
	return c.BusinessID == businessID
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}
