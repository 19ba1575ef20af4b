package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(r *http.Request) string

// SessionOrIP keys by session id when SessionAuth ran first, otherwise by client address.
func SessionOrIP(r *http.Request) string {
	if session, ok := SessionFromContext(r.Context()); ok {
		return "session:" + session.ID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet hands out one token bucket per key and drops buckets idle for longer
// than idle. Idle buckets are swept at most once per idle period.
type limiterSet struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	idle      time.Duration
	nextSweep time.Time
	now       func() time.Time
}

func newLimiterSet(perSecond float64, burst int, idle time.Duration) *limiterSet {
	return &limiterSet{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(perSecond),
		burst:    burst,
		idle:     idle,
		now:      time.Now,
	}
}

func (s *limiterSet) allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !now.Before(s.nextSweep) {
		s.sweep(now)
	}

	v, ok := s.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func (s *limiterSet) sweep(now time.Time) {
	for k, v := range s.visitors {
		if now.Sub(v.lastSeen) > s.idle {
			delete(s.visitors, k)
		}
	}
	s.nextSweep = now.Add(s.idle)
}

// RateLimit rejects requests above perSecond (with burst) per key with 429.
func RateLimit(perSecond float64, burst int, key KeyFunc, logger zerolog.Logger) func(http.Handler) http.Handler {
	limiters := newLimiterSet(perSecond, burst, 10*time.Minute)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if !limiters.allow(k) {
				logger.Warn().Str("key", k).Str("path", r.URL.Path).Msg("rate limit exceeded")
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
