package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/deepgram/chatgate/internal/config"
	"github.com/deepgram/chatgate/pkg/httpext"
	"github.com/deepgram/chatgate/pkg/logger"
	"github.com/deepgram/chatgate/pkg/ratelimit"
)

func RateLimit(limitKey string) func(http.Handler) http.Handler {
	return RateLimitWithConfig(limitKey, config.GetRateLimitConfig(limitKey))
}

func RateLimitWithConfig(limitKey string, cfg config.RateLimitConfig) func(http.Handler) http.Handler {
	limiter := ratelimit.NewLimiter(cfg.Window, cfg.MaxHits)
	log := logger.For(logger.MIDDLEWARE)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r, cfg.TrustProxy)
			if !limiter.Allow(ip) {
				log.Warn().Str("ip", ip).Str("limit", limitKey).Msg("Rate limit exceeded")
				httpext.JsonError(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP is the remote address without its port. Behind a trusted proxy it
// is the last X-Forwarded-For hop, the one the proxy itself appended; earlier
// hops are client supplied.
func clientIP(r *http.Request, trustProxy bool) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); trustProxy && forwarded != "" {
		hops := strings.Split(forwarded, ",")
		if last := strings.TrimSpace(hops[len(hops)-1]); last != "" {
			return last
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
