package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/hitoshi/microearn/internal/model"
)

func newRequestFrom(addr string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.RemoteAddr = addr
	return req
}

func TestRateLimiter_AllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 3, CleanupInterval: time.Minute})
	defer rl.Stop()

	calls := 0
	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, newRequestFrom("10.0.0.1:1234"))
		if w.Code != http.StatusOK {
			t.Errorf("request %d: status = %d", i, w.Code)
		}
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRateLimiter_Returns429WithRetryAfter(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 0.5, Burst: 1, CleanupInterval: time.Minute})
	defer rl.Stop()

	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	handler.ServeHTTP(httptest.NewRecorder(), newRequestFrom("10.0.0.2:1111"))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, newRequestFrom("10.0.0.2:2222"))

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if got := w.Header().Get("Retry-After"); got != strconv.Itoa(2) {
		t.Errorf("Retry-After = %q, want 2", got)
	}
	if code := decodeErrorCode(t, w); code != model.ErrCodeRateLimitExceeded {
		t.Errorf("code = %q", code)
	}
}

// 異なるクライアントIPは独立に制限される
func TestRateLimiter_IndependentPerClientIP(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 0.1, Burst: 1, CleanupInterval: time.Minute})
	defer rl.Stop()

	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for _, addr := range []string{"10.0.0.3:1", "10.0.0.4:1"} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, newRequestFrom(addr))
		if w.Code != http.StatusOK {
			t.Errorf("%s: status = %d", addr, w.Code)
		}
	}
	if rl.LimiterCount() != 2 {
		t.Errorf("LimiterCount = %d, want 2", rl.LimiterCount())
	}
}

func TestRateLimiter_CleanupRemovesIdleEntries(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 1, CleanupInterval: time.Minute})
	defer rl.Stop()

	rl.limiterFor("10.0.0.5")
	rl.cleanup(time.Now().Add(3 * time.Minute))

	if rl.LimiterCount() != 0 {
		t.Errorf("LimiterCount = %d, want 0", rl.LimiterCount())
	}
}

func TestRateLimiterConfigPerMinute(t *testing.T) {
	cfg := RateLimiterConfigPerMinute(120)
	if cfg.Rate != 2 || cfg.Burst != 120 {
		t.Errorf("cfg = %+v", cfg)
	}
	if def := RateLimiterConfigPerMinute(0); def.Burst != 120 {
		t.Errorf("zero should fall back to 120, got %+v", def)
	}
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig())
	rl.Stop()
	rl.Stop()
}
