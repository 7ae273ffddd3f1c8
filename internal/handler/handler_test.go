package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/maxviazov/ats-service/internal/handler"
	"github.com/maxviazov/ats-service/pkg/response"
	"github.com/rs/zerolog"
)

// stubPinger implements handler.Pinger for health endpoints.
type stubPinger struct{ err error }

func (s stubPinger) Ping(ctx context.Context) error { return s.err }

// echoModule mounts GET /api/echo.
type echoModule struct{}

func (echoModule) Register(r *gin.RouterGroup) {
	r.GET("/echo", func(c *gin.Context) { response.Success(c, http.StatusOK, "echo") })
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
}

func newEngine(p handler.Pinger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handler.RequestID(), handler.RequestLogger(zerolog.Nop()), handler.Recovery(zerolog.Nop()))
	handler.Register(r, p, echoModule{})
	return r
}

func serve(r http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestHealthProbes(t *testing.T) {
	cases := []struct {
		name       string
		pinger     handler.Pinger
		path       string
		wantStatus int
	}{
		{"live root", stubPinger{}, "/live", http.StatusOK},
		{"live api", stubPinger{err: errors.New("db down")}, "/api/health/live", http.StatusOK},
		{"ready root", stubPinger{}, "/ready", http.StatusOK},
		{"ready api", stubPinger{}, "/api/health/ready", http.StatusOK},
		{"ready root down", stubPinger{err: errors.New("db down")}, "/ready", http.StatusServiceUnavailable},
		{"ready api down", stubPinger{err: errors.New("db down")}, "/api/health/ready", http.StatusServiceUnavailable},
		{"ready without pinger", nil, "/ready", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(newEngine(tc.pinger), http.MethodGet, tc.path)
			if w.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d, body=%s", tc.wantStatus, w.Code, w.Body.String())
			}
			var env map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if env["success"] != (tc.wantStatus == http.StatusOK) || env["statusCode"] != float64(tc.wantStatus) {
				t.Fatalf("unexpected envelope %v", env)
			}
		})
	}
}

func TestModulesMountedUnderAPIPrefix(t *testing.T) {
	r := newEngine(stubPinger{})
	if w := serve(r, http.MethodGet, handler.APIPrefix+"/echo"); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w := serve(r, http.MethodGet, "/echo"); w.Code != http.StatusNotFound {
		t.Fatalf("module must not be mounted at root, got %d", w.Code)
	}
}

func TestNoRoute(t *testing.T) {
	w := serve(newEngine(stubPinger{}), http.MethodGet, "/no-such")
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), `"error":"Route not found"`) {
		t.Fatalf("unexpected response %d: %s", w.Code, w.Body.String())
	}
}

func TestRequestID(t *testing.T) {
	r := newEngine(stubPinger{})

	w := serve(r, http.MethodGet, "/live")
	if len(w.Header().Get(handler.RequestIDHeader)) != 36 {
		t.Fatalf("expected generated uuid, got %q", w.Header().Get(handler.RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	req.Header.Set(handler.RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(handler.RequestIDHeader); got != "abc-123" {
		t.Fatalf("expected client id to be echoed, got %q", got)
	}
}

func TestRecovery(t *testing.T) {
	w := serve(newEngine(stubPinger{}), http.MethodGet, "/api/panic")
	if w.Code != http.StatusInternalServerError || !strings.Contains(w.Body.String(), `"success":false`) {
		t.Fatalf("unexpected response %d: %s", w.Code, w.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handler.RateLimit(handler.RateLimitConfig{Rate: 0.001, Burst: 2}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 2; i++ {
		if w := serve(r, http.MethodGet, "/x"); w.Code != http.StatusNoContent {
			t.Fatalf("request %d should pass, got %d", i, w.Code)
		}
	}
	w := serve(r, http.MethodGet, "/x")
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected 429 with Retry-After, got %d", w.Code)
	}

	// another client has its own bucket
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = "10.1.1.1:1234"
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected other client to pass, got %d", w.Code)
	}
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handler.CORS([]string{"https://app.example.com"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("unexpected allow-origin %q (status %d)", got, w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected foreign origin to be rejected, got %d", w.Code)
	}
}
