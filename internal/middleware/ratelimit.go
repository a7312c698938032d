// internal/middleware/ratelimit.go
//
// Per-client token-bucket limit for form posts.
//
// Context
// -------
// Only unsafe methods (POST, PUT, PATCH, DELETE) consume tokens, so page
// views and blur validation stay free while repeated submits from one
// address get a 429.  The bucket key is the client IP resolved by
// requestinfo.Enrich, which must run earlier in the chain.
//
// Notes
// -----
// • Rate is tokens per second, Burst the bucket size.  Rate 0 disables the
//   wrapper entirely.
// • The limiter fails open: a broken limiter never blocks a visitor.

package middleware

import (
	"net/http"
	"strconv"

	"github.com/felixgeelhaar/fortify/ratelimit"
	"go.uber.org/zap"

	"github.com/yanizio/contact/internal/metrics"
	"github.com/yanizio/contact/internal/requestinfo"
)

// RateLimitConfig configures RateLimit.
type RateLimitConfig struct {
	Rate  int
	Burst int

	// Limiter overrides Rate/Burst, e.g. in tests.
	Limiter ratelimit.RateLimiter

	// OnLimited renders the 429 body.  Defaults to a plain-text response.
	OnLimited http.HandlerFunc
}

// RateLimit returns a wrapper enforcing cfg per client address.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	limiter := cfg.Limiter
	if limiter == nil {
		if cfg.Rate <= 0 {
			return func(h http.Handler) http.Handler { return h }
		}
		burst := cfg.Burst
		if burst <= 0 {
			burst = cfg.Rate
		}
		limiter = ratelimit.New(&ratelimit.Config{
			Rate:     cfg.Rate,
			Burst:    burst,
			FailOpen: true,
		})
	}
	onLimited := cfg.OnLimited
	if onLimited == nil {
		onLimited = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "Too many requests, please wait a moment.", http.StatusTooManyRequests)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if safeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			key := clientKey(r)
			if !limiter.Allow(r.Context(), key) {
				zap.S().Warnw("rate limit exceeded", "client", key, "path", r.URL.Path)
				metrics.RateLimitedTotal.Inc()
				w.Header().Set("Retry-After", strconv.Itoa(1))
				onLimited(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func safeMethod(m string) bool {
	return m == http.MethodGet || m == http.MethodHead || m == http.MethodOptions
}

// clientKey prefers the enriched client IP and falls back to RemoteAddr.
func clientKey(r *http.Request) string {
	if info := requestinfo.FromContext(r.Context()); info != nil {
		if ip := info.ClientIP(); ip != "" {
			return ip
		}
	}
	return stripPort(r.RemoteAddr)
}
