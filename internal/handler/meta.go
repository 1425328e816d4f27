package handler

import (
	"net"
	"net/http"
	"strings"

	"github.com/multiplayers/arena/internal/domain"
	"github.com/multiplayers/arena/internal/guard"
)

// ClientIP extracts the caller's IP. X-Forwarded-For wins over RemoteAddr
// when a proxy sits in front.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx >= 0 {
			fwd = fwd[:idx]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// requestMeta collects the IP and device string stamped on login.
func requestMeta(r *http.Request) domain.RequestMeta {
	return domain.RequestMeta{IP: ClientIP(r), Device: r.UserAgent()}
}

// Throttle rejects requests over the per-IP rate limit with 429.
func Throttle(limiter *guard.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := limiter.Check(r.Context(), ClientIP(r))
			if !result.Allowed {
				RespondError(w, domain.ErrRateLimited(result.Reason))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
