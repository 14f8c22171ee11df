// Package auth guards the admin endpoints with a shared API key.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"net/http"
	"strings"

	"github.com/diewo77/ownervalue/httpx"
)

type ctxKey string

const adminCtxKey = ctxKey("admin")

// HeaderAdminKey carries the key; a Bearer token is accepted as well.
const HeaderAdminKey = "X-Admin-Key"

// KeyFromRequest returns the presented key, if any.
func KeyFromRequest(r *http.Request) string {
	if k := strings.TrimSpace(r.Header.Get(HeaderAdminKey)); k != "" {
		return k
	}
	if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// Valid compares presented against key in constant time.
func Valid(presented, key string) bool {
	if key == "" || presented == "" {
		return false
	}
	a := sha256.Sum256([]byte(presented))
	b := sha256.Sum256([]byte(key))
	return hmac.Equal(a[:], b[:])
}

// WithAdmin marks the request context as authenticated.
func WithAdmin(ctx context.Context) context.Context {
	return context.WithValue(ctx, adminCtxKey, true)
}

// IsAdmin reports whether the context was authenticated by RequireAdminKey.
func IsAdmin(ctx context.Context) bool {
	v, _ := ctx.Value(adminCtxKey).(bool)
	return v
}

// RequireAdminKey answers 503 when no key is configured and 401 when the
// request does not carry it.
func RequireAdminKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				httpx.JSONError(w, http.StatusServiceUnavailable, "admin_disabled", nil)
				return
			}
			if !Valid(KeyFromRequest(r), key) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="admin"`)
				httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAdmin(r.Context())))
		})
	}
}
