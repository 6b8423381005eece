package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/tork-crm/tork-api/internal/config"
)

// swaggerUIPolicy lets the bundled Swagger UI run its inline bootstrap script
const swaggerUIPolicy = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:"

// SecurityHeaders returns a middleware that adds security headers to responses
func SecurityHeaders(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	static := map[string]string{
		"X-Frame-Options":    cfg.FrameOptions,
		"X-XSS-Protection":   cfg.XSSProtection,
		"Referrer-Policy":    cfg.ReferrerPolicy,
		"Permissions-Policy": cfg.PermissionsPolicy,
	}
	if cfg.ContentTypeNosniff {
		static["X-Content-Type-Options"] = "nosniff"
	}
	if cfg.EnableHSTS {
		hsts := fmt.Sprintf("max-age=%d", cfg.HSTSMaxAge)
		if cfg.HSTSIncludeSubdomains {
			hsts += "; includeSubDomains"
		}
		if cfg.HSTSPreload {
			hsts += "; preload"
		}
		static["Strict-Transport-Security"] = hsts
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for name, value := range static {
				if value != "" {
					h.Set(name, value)
				}
			}

			if cfg.ContentSecurityPolicy != "" {
				if strings.HasPrefix(r.URL.Path, "/swagger/") {
					h.Set("Content-Security-Policy", swaggerUIPolicy)
				} else {
					h.Set("Content-Security-Policy", cfg.ContentSecurityPolicy)
				}
			}

			h.Del("X-Powered-By")
			h.Del("Server")

			next.ServeHTTP(w, r)
		})
	}
}
