package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
}

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
		t.Errorf("request id = %q, header = %q", seen, rec.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "abc-123" {
		t.Errorf("client id not reused: %q", seen)
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := RequestID(RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	})))

	req := httptest.NewRequest(http.MethodPost, "/v1/logs", strings.NewReader("secret body"))
	h.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line not json: %q", buf.String())
	}
	if line["status"] != float64(http.StatusTeapot) || line["path"] != "/v1/logs" || line["bytes"] != float64(15) {
		t.Errorf("log line = %v", line)
	}
	if line["request_id"] == "" {
		t.Error("request_id missing")
	}
	if strings.Contains(buf.String(), "secret body") {
		t.Error("request body leaked into log")
	}
}

func TestTokenBucket(t *testing.T) {
	now := time.Unix(0, 0)
	tb := newTokenBucket(2, 1, func() time.Time { return now })

	if !tb.Allow() || !tb.Allow() {
		t.Fatal("initial capacity not available")
	}
	if tb.Allow() {
		t.Fatal("allowed past capacity")
	}
	if d := tb.RetryAfter(); d <= 0 || d > time.Second {
		t.Errorf("RetryAfter = %v", d)
	}
	now = now.Add(500 * time.Millisecond)
	if tb.Allow() {
		t.Error("half a token should not be enough")
	}
	now = now.Add(600 * time.Millisecond)
	if !tb.Allow() {
		t.Error("token not refilled")
	}
	now = now.Add(time.Hour)
	tb.Allow()
	if tb.tokens > tb.capacity {
		t.Errorf("tokens %v exceed capacity", tb.tokens)
	}
}

func TestRateLimiterHandler(t *testing.T) {
	rl := NewRateLimiter(1, 0.01)
	defer rl.Close()
	h := rl.Handler(okHandler())

	call := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/logs", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := call("10.0.0.1:1000"); rec.Code != http.StatusOK {
		t.Fatalf("first request = %d", rec.Code)
	}
	rec := call("10.0.0.1:2000")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After missing")
	}
	if rec := call("10.0.0.2:1000"); rec.Code != http.StatusOK {
		t.Errorf("other client limited: %d", rec.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	ok := HealthCheckerFunc(func(ctx context.Context) error { return nil })
	bad := HealthCheckerFunc(func(ctx context.Context) error { return errors.New("db down") })

	tests := []struct {
		name       string
		checkers   map[string]HealthChecker
		want       int
		wantStatus string
	}{
		{"all healthy", map[string]HealthChecker{"storage": ok, "archive": Optional(ok)}, http.StatusOK, StatusHealthy},
		{"required failing", map[string]HealthChecker{"storage": bad, "archive": ok}, http.StatusServiceUnavailable, StatusUnhealthy},
		{"optional failing", map[string]HealthChecker{"storage": ok, "archive": Optional(bad)}, http.StatusOK, StatusDegraded},
		{"both failing", map[string]HealthChecker{"storage": bad, "archive": Optional(bad)}, http.StatusServiceUnavailable, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HealthHandler(tt.checkers)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			var hs HealthStatus
			if err := json.NewDecoder(rec.Body).Decode(&hs); err != nil {
				t.Fatal(err)
			}
			if hs.Status != tt.wantStatus {
				t.Errorf("overall = %q, want %q", hs.Status, tt.wantStatus)
			}
			if len(hs.Checks) != len(tt.checkers) {
				t.Errorf("checks = %v", hs.Checks)
			}
			if hs.Checks["storage"].Optional {
				t.Error("storage reported as optional")
			}
			if _, opt := tt.checkers["archive"].(optionalChecker); opt != hs.Checks["archive"].Optional {
				t.Errorf("archive optional = %v, want %v", hs.Checks["archive"].Optional, opt)
			}
		})
	}
}

func TestMetricsMiddleware(t *testing.T) {
	before := atomic.LoadUint64(&globalMetrics.RequestsFailed)
	h := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if got := atomic.LoadUint64(&globalMetrics.RequestsFailed); got != before+1 {
		t.Errorf("requests_failed = %d, want %d", got, before+1)
	}

	IncrementCacheHits()
	m := GetMetrics()
	if m["cache_hits"].(uint64) == 0 {
		t.Error("cache_hits not reported")
	}
}

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"app.log", false},
		{"trace.TXT", false},
		{"events.json", false},
		{"", true},
		{"image.png", true},
		{"../etc/passwd.log", true},
		{`C:\logs\app.log`, true},
		{"noext", true},
	}
	for _, tt := range tests {
		if err := ValidateFilename(tt.name); (err != nil) != tt.wantErr {
			t.Errorf("ValidateFilename(%q) err = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestValidateFingerprint(t *testing.T) {
	if err := ValidateFingerprint(strings.Repeat("a", 64)); err != nil {
		t.Errorf("valid fingerprint rejected: %v", err)
	}
	for _, bad := range []string{"", strings.Repeat("A", 64), strings.Repeat("a", 63), "../../x"} {
		if ValidateFingerprint(bad) == nil {
			t.Errorf("ValidateFingerprint(%q) accepted", bad)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString(" a\x00b\x07c\n "); got != "abc" {
		t.Errorf("SanitizeString = %q", got)
	}
}

func TestValidateLimit(t *testing.T) {
	for in, want := range map[string]int{"1": 1, "50": 50, "1000": 1000, " 7 ": 7} {
		got, err := ValidateLimit(in)
		if err != nil || got != want {
			t.Errorf("ValidateLimit(%q) = %d, %v; want %d", in, got, err, want)
		}
	}
	for _, in := range []string{"0", "-3", "ten", ""} {
		if _, err := ValidateLimit(in); err == nil {
			t.Errorf("ValidateLimit(%q) accepted", in)
		}
	}
}
