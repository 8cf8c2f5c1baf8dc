package api

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jbabin91/tanstack-start-starter-sub002/internal/auth"
)

// visitorLimiter holds one token bucket per client. Entries that have not
// been seen for a while are dropped by a background sweep so the map does
// not grow without bound.
type visitorLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newVisitorLimiter(limit rate.Limit, burst int) *visitorLimiter {
	vl := &visitorLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		burst:    burst,
	}
	go vl.sweep()
	return vl
}

func (vl *visitorLimiter) allow(key string) bool {
	vl.mu.Lock()
	defer vl.mu.Unlock()

	v, exists := vl.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(vl.limit, vl.burst)}
		vl.visitors[key] = v
	}
	v.lastSeen = time.Now()
	return v.limiter.Allow()
}

func (vl *visitorLimiter) sweep() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		vl.mu.Lock()
		for key, v := range vl.visitors {
			if time.Since(v.lastSeen) > 10*time.Minute {
				delete(vl.visitors, key)
			}
		}
		vl.mu.Unlock()
	}
}

// RateLimit throttles requests per client. Authenticated requests are keyed
// by user ID so a shared NAT does not starve everyone behind it; anonymous
// requests fall back to the client IP.
func (api *Api) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)
		if user, ok := auth.GetUserFromContext(r.Context()); ok {
			key = user.ID
		}
		if !api.limiter.allow(key) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
