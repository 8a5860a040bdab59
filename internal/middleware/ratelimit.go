package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/hongminglow/story-be/internal/http/respond"
	"github.com/hongminglow/story-be/internal/ratelimit"
)

// RateLimit throttles a handler per client IP.
type RateLimit struct {
	limiter ratelimit.Limiter
	limit   int
	window  time.Duration
	proxies *TrustedProxies
	metrics *Metrics
}

// NewRateLimit allows limit requests per window for each client IP. A limit of
// zero or a nil limiter disables throttling. proxies and metrics may be nil.
func NewRateLimit(limiter ratelimit.Limiter, limit int, window time.Duration, proxies *TrustedProxies, metrics *Metrics) *RateLimit {
	return &RateLimit{limiter: limiter, limit: limit, window: window, proxies: proxies, metrics: metrics}
}

// Wrap applies the limit to next. route names the counter bucket.
func (rl *RateLimit) Wrap(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rl == nil || rl.limiter == nil || rl.limit <= 0 {
			next(w, r)
			return
		}
		ip := rl.proxies.ClientIP(r)
		if ip == "" {
			ip = "unknown"
		}
		decision := rl.limiter.Allow(route+":ip:"+ip, rl.limit, rl.window)
		rl.applyHeaders(w, decision)
		if !decision.Allowed {
			rl.metrics.recordRateLimitHit(route)
			if !decision.WindowEnd.IsZero() {
				retry := max(int(time.Until(decision.WindowEnd).Seconds()), 1)
				w.Header().Set("Retry-After", strconv.Itoa(retry))
			}
			respond.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	}
}

func (rl *RateLimit) applyHeaders(w http.ResponseWriter, decision ratelimit.Decision) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining(rl.limit)))
	if !decision.WindowEnd.IsZero() {
		h.Set("X-RateLimit-Reset", strconv.FormatInt(decision.WindowEnd.Unix(), 10))
	}
}
