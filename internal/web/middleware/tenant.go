package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/bulkedit/internal/tenant"
)

// TenantContext extracts the acting tenant and credentials from the
// request headers and stores them as a tenant.Context value.
//
// Headers:
//   - X-Tenant: the tenant the operator is acting in (required)
//   - X-User-Id: the operator's user id
//   - Authorization: Bearer token forwarded to remote services
//
// Requests without a tenant are rejected; every downstream call is
// tenant-scoped and there is no sensible fallback.
func TenantContext(baseURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID := strings.TrimSpace(r.Header.Get("X-Tenant"))
			if tenantID == "" {
				slog.Warn("request without tenant header",
					"path", r.URL.Path,
					"method", r.Method,
				)
				http.Error(w, `{"error":"missing X-Tenant header","code":"TENANT_MISSING"}`, http.StatusBadRequest)
				return
			}

			token := r.Header.Get("Authorization")
			token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))

			tctx := tenant.Context{
				TenantID: tenantID,
				UserID:   strings.TrimSpace(r.Header.Get("X-User-Id")),
				Token:    token,
				BaseURL:  baseURL,
			}
			next.ServeHTTP(w, r.WithContext(tenant.NewContext(r.Context(), tctx)))
		})
	}
}
