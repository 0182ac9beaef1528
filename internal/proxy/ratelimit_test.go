package proxy

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestMemoryRateLimiterFixedWindow(t *testing.T) {
	rl := NewMemoryRateLimiter()
	defer rl.Close()

	for i := 0; i < 3; i++ {
		d := rl.Allow("ip:10.0.0.1", 3, time.Minute)
		if !d.allowed {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	d := rl.Allow("ip:10.0.0.1", 3, time.Minute)
	if d.allowed {
		t.Fatalf("attempt over the limit should be denied")
	}
	if !d.windowEnd.After(time.Now()) {
		t.Fatalf("denied decision must carry the window end")
	}

	// A different client has its own budget.
	if d := rl.Allow("ip:10.0.0.2", 3, time.Minute); !d.allowed {
		t.Fatalf("unrelated key must not share the budget")
	}
}

func TestMemoryRateLimiterWindowExpiry(t *testing.T) {
	rl := NewMemoryRateLimiter()
	defer rl.Close()

	window := 10 * time.Millisecond
	if d := rl.Allow("ip:10.0.0.3", 1, window); !d.allowed {
		t.Fatalf("first attempt should be allowed")
	}
	if d := rl.Allow("ip:10.0.0.3", 1, window); d.allowed {
		t.Fatalf("second attempt inside the window should be denied")
	}
	time.Sleep(2 * window)
	if d := rl.Allow("ip:10.0.0.3", 1, window); !d.allowed {
		t.Fatalf("attempt after window expiry should be allowed")
	}
}

func TestMemoryRateLimiterZeroLimitDisables(t *testing.T) {
	rl := NewMemoryRateLimiter()
	defer rl.Close()
	for i := 0; i < 100; i++ {
		if d := rl.Allow("ip:10.0.0.4", 0, time.Minute); !d.allowed {
			t.Fatalf("zero limit must disable throttling")
		}
	}
}

func TestMemoryRateLimiterCleanup(t *testing.T) {
	rl := NewMemoryRateLimiter().(*memoryRateLimiter)
	defer rl.Close()

	rl.Allow("ip:stale", 5, time.Millisecond)
	rl.Allow("ip:fresh", 5, time.Hour)
	rl.cleanup(time.Now().Add(time.Second))

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.entries["ip:stale"]; ok {
		t.Fatalf("expired entry not swept")
	}
	if _, ok := rl.entries["ip:fresh"]; !ok {
		t.Fatalf("live entry must survive the sweep")
	}
}

func TestRateLimitKeyIP(t *testing.T) {
	req := httptest.NewRequest("POST", "/wp-login.php", nil)
	req.RemoteAddr = "203.0.113.9:54321"
	if got := rateLimitKeyIP(req); got != "ip:203.0.113.9" {
		t.Fatalf("key = %q", got)
	}

	req.RemoteAddr = "203.0.113.9"
	if got := rateLimitKeyIP(req); got != "ip:203.0.113.9" {
		t.Fatalf("key without port = %q", got)
	}
}
