package middleware

import (
	"math"
	"net/http"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ebogdum/datarepo/metrics"
)

// NewSyncLimiter returns the limiter shared by the sync endpoints.
// A non-positive rate disables limiting.
func NewSyncLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(math.Ceil(perSecond))
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// V1RateLimitMiddleware rejects requests beyond the limiter's rate with 429.
// Sync runs hold a remote connection for their whole duration, so the limit is global rather than per client.
func V1RateLimitMiddleware(limiter *rate.Limiter, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				logger.Warn("Request rate limited",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.String("request_id", GetRequestID(r.Context())))
				metrics.ErrorsTotal.WithLabelValues("http", "rate_limited").Inc()

				retryAfter := 1
				if limit := limiter.Limit(); limit > 0 && limit < 1 {
					retryAfter = int(math.Ceil(1 / float64(limit)))
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				if _, err := w.Write([]byte(`{"code":"RATE_LIMIT_EXCEEDED","message":"Rate limit exceeded"}`)); err != nil {
					logger.Error("Failed to write rate limit error response", zap.Error(err))
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
