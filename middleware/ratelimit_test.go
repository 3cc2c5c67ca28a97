package middleware

import (
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestNewIPRateLimiter(t *testing.T) {
	rl := NewIPRateLimiter(rate.Limit(2), 5, rate.Limit(10), 20)

	if rl.GetNormalLimit() != 5 {
		t.Errorf("Expected normal limit to be 5, got %d", rl.GetNormalLimit())
	}
	if rl.GetCachedLimit() != 20 {
		t.Errorf("Expected cached limit to be 20, got %d", rl.GetCachedLimit())
	}
	if rl.Len() != 0 {
		t.Errorf("Expected no tracked IPs, got %d", rl.Len())
	}
}

// TestTwoTierRateLimiting walks one client from fresh extraction through
// cache-only service to rejection and back.
func TestTwoTierRateLimiting(t *testing.T) {
	rl := NewIPRateLimiter(rate.Limit(20), 1, rate.Limit(0.001), 2)
	pair := rl.GetLimiter("192.168.1.2")

	if !pair.Normal.Allow() {
		t.Errorf("Expected first request to be allowed on normal tier")
	}
	if pair.Normal.Allow() {
		t.Errorf("Expected second request to be denied on normal tier")
	}

	for i := 0; i < 2; i++ {
		if !pair.Cached.Allow() {
			t.Errorf("Expected cached request %d to be allowed", i+1)
		}
	}
	if pair.Cached.Allow() {
		t.Errorf("Expected cached tier to be exhausted")
	}

	// normal tier refills at 20/s
	time.Sleep(100 * time.Millisecond)
	if !pair.Normal.Allow() {
		t.Errorf("Expected normal tier to refill")
	}
}

func TestLimiterPairTokens(t *testing.T) {
	rl := NewIPRateLimiter(rate.Limit(0.001), 10, rate.Limit(0.001), 20)
	pair := rl.GetLimiter("192.168.1.3")

	if got := pair.GetNormalTokens(); got != 10 {
		t.Errorf("Expected 10 normal tokens initially, got %d", got)
	}
	if got := pair.GetCachedTokens(); got != 20 {
		t.Errorf("Expected 20 cached tokens initially, got %d", got)
	}

	pair.Normal.Allow()
	pair.Cached.Allow()
	pair.Cached.Allow()

	if got := pair.GetNormalTokens(); got != 9 {
		t.Errorf("Expected 9 normal tokens after one request, got %d", got)
	}
	if got := pair.GetCachedTokens(); got != 18 {
		t.Errorf("Expected 18 cached tokens after two requests, got %d", got)
	}
}

// TestGetLimiterReturnsSamePair tests that repeated lookups share one pair.
func TestGetLimiterReturnsSamePair(t *testing.T) {
	rl := NewIPRateLimiter(rate.Limit(1), 1, rate.Limit(2), 2)

	first := rl.GetLimiter("10.0.0.1")
	second := rl.GetLimiter("10.0.0.1")

	if first != second {
		t.Errorf("Expected the same limiter pair for repeated lookups")
	}
	if rl.Len() != 1 {
		t.Errorf("Expected 1 tracked IP, got %d", rl.Len())
	}
}

// TestGetLimiterConcurrent tests that concurrent first lookups create one pair.
func TestGetLimiterConcurrent(t *testing.T) {
	rl := NewIPRateLimiter(rate.Limit(1), 1, rate.Limit(2), 2)

	var wg sync.WaitGroup
	pairs := make([]*LimiterPair, 50)
	for i := range pairs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pairs[i] = rl.GetLimiter("10.0.0.2")
		}(i)
	}
	wg.Wait()

	for i, p := range pairs {
		if p != pairs[0] {
			t.Fatalf("Expected goroutine %d to share the first pair", i)
		}
	}
}

// TestCleanup tests that idle IPs are forgotten and active ones kept.
func TestCleanup(t *testing.T) {
	rl := NewIPRateLimiter(rate.Limit(1), 1, rate.Limit(2), 2)

	rl.GetLimiter("10.0.0.3")
	time.Sleep(30 * time.Millisecond)
	rl.GetLimiter("10.0.0.4")

	removed := rl.Cleanup(20 * time.Millisecond)
	if removed != 1 {
		t.Errorf("Expected 1 idle IP removed, got %d", removed)
	}
	if _, exists := rl.ips["10.0.0.3"]; exists {
		t.Errorf("Expected idle IP to be removed")
	}
	if _, exists := rl.ips["10.0.0.4"]; !exists {
		t.Errorf("Expected recently seen IP to be kept")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		expected   string
	}{
		{"with port", "203.0.113.7:54321", "203.0.113.7"},
		{"without port", "203.0.113.7", "203.0.113.7"},
		{"ipv6", "[2001:db8::1]:443", "2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			req.Header.Set("X-Forwarded-For", "198.51.100.2")

			if got := ClientIP(req); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestTrustedProxies_ClientIP(t *testing.T) {
	proxies := NewTrustedProxies([]string{"10.0.0.0/8", "192.0.2.1", "not-an-ip"})

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		expected   string
	}{
		{
			name:       "untrusted peer ignores forwarded for",
			remoteAddr: "203.0.113.9:1234",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.2"},
			expected:   "203.0.113.9",
		},
		{
			name:       "untrusted peer ignores real ip",
			remoteAddr: "203.0.113.9:1234",
			headers:    map[string]string{"X-Real-IP": "198.51.100.2"},
			expected:   "203.0.113.9",
		},
		{
			name:       "trusted peer uses forwarded for",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.2"},
			expected:   "198.51.100.2",
		},
		{
			name:       "client-supplied hops before the proxy are skipped",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "1.2.3.4, 198.51.100.2, 10.0.0.5"},
			expected:   "198.51.100.2",
		},
		{
			name:       "single trusted ip",
			remoteAddr: "192.0.2.1:80",
			headers:    map[string]string{"X-Real-IP": "198.51.100.9"},
			expected:   "198.51.100.9",
		},
		{
			name:       "garbage hop falls back to peer",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "not-an-ip"},
			expected:   "10.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			if got := proxies.ClientIP(req); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestTrustedProxies_Nil(t *testing.T) {
	var proxies *TrustedProxies
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.9:1234"
	req.Header.Set("X-Forwarded-For", "198.51.100.2")

	if got := proxies.ClientIP(req); got != "203.0.113.9" {
		t.Errorf("Expected remote address, got %q", got)
	}
}
