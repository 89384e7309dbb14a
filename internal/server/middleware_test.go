package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"starling/internal/config"
)

func popularRequest(remote string, header map[string]string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/new_user_recommend_api", strings.NewReader(`{"name":"alice"}`))
	req.RemoteAddr = remote
	for k, v := range header {
		req.Header.Set(k, v)
	}
	return req
}

func TestForwardedHeadersIgnoredFromUntrustedPeers(t *testing.T) {
	h := newTestServer(t, config.RateLimitConfig{RPS: 0.001, Burst: 1})
	allowed := 0
	for i := 0; i < 20; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, popularRequest("192.0.2.1:1234", map[string]string{
			"X-Forwarded-For": fmt.Sprintf("198.51.100.%d", i),
			"X-Real-IP":       fmt.Sprintf("203.0.113.%d", i),
		}))
		if rec.Code == http.StatusOK {
			allowed++
		}
	}
	if allowed != 1 {
		t.Fatalf("%d of 20 requests allowed, want 1", allowed)
	}
}

func TestForwardedHeadersHonouredFromTrustedProxy(t *testing.T) {
	h := newTestServerWith(t, config.ServerConfig{
		RateLimit:      config.RateLimitConfig{RPS: 0.001, Burst: 1},
		TrustedProxies: []string{"10.0.0.0/8"},
	})
	send := func(client string) int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, popularRequest("10.1.2.3:5000", map[string]string{"X-Forwarded-For": client}))
		return rec.Code
	}
	if send("203.0.113.7") != http.StatusOK || send("203.0.113.8") != http.StatusOK {
		t.Fatal("distinct clients behind the proxy should each get a bucket")
	}
	if code := send("203.0.113.7"); code != http.StatusTooManyRequests {
		t.Fatalf("repeat client: %d", code)
	}
}

func TestIPLimiterForgetsIdleClients(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newIPLimiter(0.001, 1, time.Minute)
	l.now = func() time.Time { return now }

	for i := 0; i < 1000; i++ {
		l.allow(fmt.Sprintf("198.51.100.%d/%d", i%256, i))
	}
	if !l.allow("192.0.2.1") || l.allow("192.0.2.1") {
		t.Fatal("expected one request then a refusal")
	}
	if n := l.size(); n != 1001 {
		t.Fatalf("size = %d", n)
	}

	now = now.Add(2 * time.Minute)
	if !l.allow("192.0.2.1") {
		t.Fatal("an evicted client starts with a fresh bucket")
	}
	if n := l.size(); n != 1 {
		t.Fatalf("idle clients retained: %d", n)
	}
}

func TestIPLimiterDisabled(t *testing.T) {
	h := newTestServer(t, config.RateLimitConfig{})
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, popularRequest("192.0.2.1:1234", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: %d", i, rec.Code)
		}
	}
}
