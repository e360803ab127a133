package middleware

import (
	"net/http"

	"github.com/baharkarakas/loyalty-admin/internal/api/httpx"
)

// RequireRole lets the request through only when the caller holds one of
// roles. It must run after Auth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := map[string]struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := Role(r.Context())
			if !ok {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "not authenticated", nil)
				return
			}
			if _, ok := allowed[role]; !ok {
				httpx.WriteError(w, http.StatusForbidden, "forbidden", "role "+role+" may not do this", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
