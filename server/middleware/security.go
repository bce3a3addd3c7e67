package middleware

import (
	"net/http"
)

// V1SecurityHeaders adds security headers suited to a JSON and media API
func V1SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()

			// Nothing served here is meant to run in a browser context
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			if r.TLS != nil {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer")
			// Responses carry presigned URLs and listings that go stale quickly
			h.Set("Cache-Control", "no-store")

			next.ServeHTTP(w, r)
		})
	}
}
