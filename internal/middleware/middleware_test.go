package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/felixgeelhaar/fortify/ratelimit"

	"github.com/yanizio/contact/internal/requestinfo"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	Security(false)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/contact", nil))

	for _, h := range []string{"Content-Security-Policy", "X-Frame-Options", "X-Content-Type-Options", "Referrer-Policy"} {
		if rec.Header().Get(h) == "" {
			t.Errorf("%s missing", h)
		}
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS sent with hsts=false")
	}

	rec = httptest.NewRecorder()
	Security(true)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("Strict-Transport-Security") != hstsValue {
		t.Error("HSTS missing with hsts=true")
	}
}

func TestForceHTTPS(t *testing.T) {
	cases := []struct {
		name       string
		host       string
		proto      string
		trustProxy bool
		want       int
	}{
		{"plain http redirects", "example.com", "", false, http.StatusPermanentRedirect},
		{"localhost passes", "localhost:8080", "", false, http.StatusNoContent},
		{"loopback ip passes", "127.0.0.1:8080", "", false, http.StatusNoContent},
		{"trusted proxy https passes", "example.com", "https", true, http.StatusNoContent},
		{"untrusted proxy header redirects", "example.com", "https", false, http.StatusPermanentRedirect},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "http://"+tc.host+"/contact?x=1", nil)
			req.Host = tc.host
			if tc.proto != "" {
				req.Header.Set("X-Forwarded-Proto", tc.proto)
			}
			rec := httptest.NewRecorder()
			ForceHTTPS(tc.trustProxy)(ok).ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
			if tc.want == http.StatusPermanentRedirect {
				if loc := rec.Header().Get("Location"); loc != "https://example.com/contact?x=1" {
					t.Errorf("Location = %q", loc)
				}
			}
		})
	}
}

func TestRateLimitPostsOnly(t *testing.T) {
	h := requestinfo.Enrich(false)(RateLimit(RateLimitConfig{
		Limiter: ratelimit.New(&ratelimit.Config{Rate: 1, Burst: 1}),
	})(ok))

	do := func(method, remote string) int {
		req := httptest.NewRequest(method, "/contact", nil).WithContext(context.Background())
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if got := do(http.MethodPost, "10.0.0.1:1234"); got != http.StatusNoContent {
		t.Fatalf("first POST = %d", got)
	}
	if got := do(http.MethodPost, "10.0.0.1:5678"); got != http.StatusTooManyRequests {
		t.Fatalf("second POST = %d, want 429", got)
	}
	if got := do(http.MethodPost, "10.0.0.2:1234"); got != http.StatusNoContent {
		t.Fatalf("other client POST = %d", got)
	}
	if got := do(http.MethodGet, "10.0.0.1:1234"); got != http.StatusNoContent {
		t.Fatalf("GET while limited = %d", got)
	}
}

func TestRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	h := requestinfo.Enrich(true)(RateLimit(RateLimitConfig{
		Limiter: ratelimit.New(&ratelimit.Config{Rate: 1, Burst: 1}),
	})(ok))

	// The proxy appends the real client; the left entry rotates per request.
	do := func(spoofed string) int {
		req := httptest.NewRequest(http.MethodPost, "/contact", nil)
		req.RemoteAddr = "10.0.0.1:443"
		req.Header.Set("X-Forwarded-For", spoofed+", 203.0.113.7")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if got := do("198.51.100.1"); got != http.StatusNoContent {
		t.Fatalf("first POST = %d", got)
	}
	if got := do("198.51.100.2"); got != http.StatusTooManyRequests {
		t.Fatalf("rotated header POST = %d, want 429", got)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	h := RateLimit(RateLimitConfig{})(ok)
	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/contact", nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("request %d = %d", i, rec.Code)
		}
	}
}
