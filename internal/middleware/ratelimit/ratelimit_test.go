package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestLimiter_Allow(t *testing.T) {
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{RequestsPerMinute: 3, Now: c.now})

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.1.1.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("1.1.1.1") {
		t.Fatal("fourth request in the window should be refused")
	}
	if !rl.Allow("2.2.2.2") {
		t.Fatal("other clients have their own window")
	}

	// Refused requests do not extend the window.
	c.advance(30 * time.Second)
	rl.Allow("1.1.1.1")
	c.advance(31 * time.Second)
	if !rl.Allow("1.1.1.1") {
		t.Fatal("new window should allow again")
	}
}

func TestLimiter_Cleanup(t *testing.T) {
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{RequestsPerMinute: 10, Now: c.now})

	rl.Allow("a")
	c.advance(5 * time.Minute)
	rl.Allow("b")
	c.advance(6 * time.Minute)

	if n := rl.cleanupStaleEntries(); n != 1 {
		t.Errorf("cleanupStaleEntries() = %d, want 1", n)
	}
	if rl.ActiveClients() != 1 {
		t.Errorf("ActiveClients() = %d, want 1", rl.ActiveClients())
	}
}

func TestLimiter_Middleware(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	h := rl.Middleware(nil, func(*http.Request) string { return "ip" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tests := []struct {
		method string
		want   int
	}{
		{http.MethodPost, http.StatusOK},
		{http.MethodPost, http.StatusTooManyRequests},
		{http.MethodGet, http.StatusOK},
		{http.MethodPut, http.StatusTooManyRequests},
	}
	for i, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tt.method, "/bills/new", nil))
		if rec.Code != tt.want {
			t.Errorf("request %d (%s): status %d, want %d", i, tt.method, rec.Code, tt.want)
		}
		if rec.Code == http.StatusTooManyRequests && rec.Header().Get("Retry-After") != "60" {
			t.Errorf("request %d: missing Retry-After", i)
		}
	}
	if got := rl.GetMetrics().TotalHits; got != 2 {
		t.Errorf("TotalHits = %d, want 2", got)
	}
}
