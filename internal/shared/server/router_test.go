package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"resume-matcher/internal/analyses"
	"resume-matcher/internal/sessions"
	"resume-matcher/internal/shared/config"
	"resume-matcher/internal/shared/server/middleware"
	"resume-matcher/internal/web"
)

type okAnalyzer struct{}

func (okAnalyzer) Analyze(ctx context.Context, resumeText, jobDescription string) (analyses.Result, error) {
	return analyses.Result{Score: 60, Summary: "ok"}, nil
}

func newTestRouter(t *testing.T, cfg config.Config) http.Handler {
	t.Helper()
	ctrl := sessions.NewController(sessions.NewMemoryRepo(time.Hour), okAnalyzer{}, nil, zap.NewNop())
	t.Cleanup(func() { _ = ctrl.Close(context.Background()) })
	pages, err := web.NewHandler(ctrl)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return NewRouter(RouterDeps{
		Config:  cfg,
		Pages:   pages,
		API:     web.NewAPIHandler(okAnalyzer{}, nil),
		Limiter: middleware.NewRateLimiter(nil),
	})
}

func testConfig() config.Config {
	return config.Config{
		Env:             "dev",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		SessionTTL:      time.Hour,
		AnalyzeRate:     0.01,
		AnalyzeBurst:    2,
	}
}

func TestRouterHealth(t *testing.T) {
	r := newTestRouter(t, testConfig())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestRouterIndexSetsSessionCookie(t *testing.T) {
	r := newTestRouter(t, testConfig())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName && c.HttpOnly && !c.Secure {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected http-only session cookie")
	}
}

func TestRouterMetrics(t *testing.T) {
	r := newTestRouter(t, testConfig())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "analyses_total") {
		t.Fatalf("unexpected metrics response %d %s", rec.Code, rec.Body.String())
	}
}

func TestRouterRateLimitsAnalyses(t *testing.T) {
	r := newTestRouter(t, testConfig())
	body := `{"resumeText":"r","jobDescription":"j"}`

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := first.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("expected session cookie")
	}

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.AddCookie(cookies[0])
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}
}

func TestRouterRateLimitsCookielessAnalysesByClientIP(t *testing.T) {
	r := newTestRouter(t, testConfig())
	body := `{"resumeText":"r","jobDescription":"j"}`

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("unexpected status sequence %v, want %v", codes, want)
		}
	}
}

func TestRouterTrustedProxyForwardsClientIP(t *testing.T) {
	cfg := testConfig()
	cfg.TrustedProxies = []string{"192.0.2.1"}
	r := newTestRouter(t, cfg)

	post := func(clientIP string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses", strings.NewReader(`{"resumeText":"r","jobDescription":"j"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", clientIP)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if code := post("203.0.113.5"); code != http.StatusOK {
			t.Fatalf("request %d expected 200, got %d", i+1, code)
		}
	}
	if code := post("203.0.113.5"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for exhausted client, got %d", code)
	}
	if code := post("203.0.113.6"); code != http.StatusOK {
		t.Fatalf("expected 200 for another client behind the proxy, got %d", code)
	}
}

func TestRouterDefaultGroupRejectionWording(t *testing.T) {
	r := newTestRouter(t, testConfig())

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := first.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("expected session cookie")
	}

	var limited *httptest.ResponseRecorder
	for i := 0; i < 80 && limited == nil; i++ {
		req := httptest.NewRequest(http.MethodPost, "/draft", strings.NewReader("jobDescription=j"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(cookies[0])
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited = rec
		}
	}
	if limited == nil {
		t.Fatalf("expected draft updates to be rate limited")
	}
	if got := limited.Body.String(); !strings.HasPrefix(got, "Too many requests.") {
		t.Fatalf("unexpected rejection %q", got)
	}
}

func TestRouterRateLimitedFormPostIsPlainText(t *testing.T) {
	cfg := testConfig()
	cfg.AnalyzeBurst = 1
	r := newTestRouter(t, cfg)

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := first.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("expected session cookie")
	}

	var last *httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader("resumeText=&jobDescription="))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(cookies[0])
		last = httptest.NewRecorder()
		r.ServeHTTP(last, req)
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", last.Code)
	}
	if !strings.Contains(last.Body.String(), "Too many requests") || last.Header().Get("Retry-After") == "" {
		t.Fatalf("unexpected rejection %q", last.Body.String())
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	r := newTestRouter(t, testConfig())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), `"not_found"`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestAddr(t *testing.T) {
	cases := map[string]string{"": ":8080", "9000": ":9000", ":7000": ":7000"}
	for in, want := range cases {
		if got := Addr(in); got != want {
			t.Fatalf("Addr(%q) = %q, want %q", in, got, want)
		}
	}
}
