package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestRateLimit_PerKey(t *testing.T) {
	handler := RateLimit(0.001, 2, SessionOrIP, zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	request := func(sessionID string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/checkout", nil)
		req = req.WithContext(WithSession(req.Context(), model.Session{ID: sessionID, Email: "a@b.c"}))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, request("s1"))
	assert.Equal(t, http.StatusOK, request("s1"))
	assert.Equal(t, http.StatusTooManyRequests, request("s1"))
	assert.Equal(t, http.StatusOK, request("s2"), "buckets are per session")
}

func TestSessionOrIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:51234"
	assert.Equal(t, "ip:10.0.0.7", SessionOrIP(req))

	req = req.WithContext(WithSession(req.Context(), model.Session{ID: "sess-1"}))
	assert.Equal(t, "session:sess-1", SessionOrIP(req))
}

func TestLimiterSet_DropsIdleVisitors(t *testing.T) {
	s := newLimiterSet(1, 1, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	assert.True(t, s.allow("a"))
	assert.False(t, s.allow("a"))

	now = now.Add(2 * time.Minute)
	assert.True(t, s.allow("b"))
	_, kept := s.visitors["a"]
	assert.False(t, kept)
}

func TestLimiterSet_SweepsOncePerIdlePeriod(t *testing.T) {
	s := newLimiterSet(100, 100, time.Minute)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	s.now = func() time.Time { return now }

	assert.True(t, s.allow("a"))
	assert.Equal(t, start.Add(time.Minute), s.nextSweep)

	for i := 0; i < 10; i++ {
		now = now.Add(time.Second)
		assert.True(t, s.allow("b"))
	}
	assert.Equal(t, start.Add(time.Minute), s.nextSweep, "no sweep before the deadline")

	now = start.Add(90 * time.Second)
	assert.True(t, s.allow("c"))
	assert.Equal(t, now.Add(time.Minute), s.nextSweep)
	assert.NotContains(t, s.visitors, "a")
	assert.NotContains(t, s.visitors, "b")
	assert.Contains(t, s.visitors, "c")
}
