package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimiterBurst(t *testing.T) {
	rl := NewRateLimiter(1, 2)

	if !rl.Allow("10.0.0.1") || !rl.Allow("10.0.0.1") {
		t.Fatalf("expected burst of 2 to be allowed")
	}
	if rl.Allow("10.0.0.1") {
		t.Fatalf("expected third request to be denied")
	}
	if !rl.Allow("10.0.0.2") {
		t.Fatalf("expected independent bucket per IP")
	}
}

func TestRateLimitMiddlewareRejectsWith429(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mw := RateLimit(1, 1)

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodPost, "/conversation", nil)
		req.Header.Set("X-Real-Ip", "10.0.0.9")
		rec := httptest.NewRecorder()
		mw(handler).ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("request %d: expected status %d, got %d", i, want, rec.Code)
		}
	}
}
