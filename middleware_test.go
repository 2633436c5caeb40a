package main

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// TestRateLimitMiddleware checks rate limiting blocks excessive requests
func TestRateLimitMiddleware(t *testing.T) {
	app, _ := newTestApp(t, &fakeAPI{}, false)
	app.Config.rateLimitRPS = 1
	app.Config.rateLimitBurst = 10

	router := gin.New()
	router.Use(app.rateLimitMiddleware())
	router.GET("/limited", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	req, _ := http.NewRequest("GET", "/limited", nil)
	req.RemoteAddr = "127.0.0.1:12345"

	// First 10 requests should succeed
	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("Request %d: expected 200, got %d", i+1, w.Code)
		}
	}

	// 11th request should be rate limited
	req.Header.Set("HX-Request", "true")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("11th request: expected 429 Too Many Requests, got %d", w.Code)
	}
	if got := w.Header().Get("HX-Trigger"); got != "rate-limit-exceeded" {
		t.Errorf("HX-Trigger = %q, want rate-limit-exceeded", got)
	}
}

func TestRateLimitIsPerClient(t *testing.T) {
	app, _ := newTestApp(t, &fakeAPI{}, false)
	app.Config.rateLimitRPS = 1
	app.Config.rateLimitBurst = 1

	if !app.getLimiter("10.0.0.1").Allow() {
		t.Fatal("first request from 10.0.0.1 should pass")
	}
	if app.getLimiter("10.0.0.1").Allow() {
		t.Error("second request from 10.0.0.1 should be limited")
	}
	if !app.getLimiter("10.0.0.2").Allow() {
		t.Error("10.0.0.2 should have its own limiter")
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(requestIDMiddleware())
	var hasLogger bool
	router.GET("/id", func(c *gin.Context) {
		hasLogger = zerolog.Ctx(c.Request.Context()).GetLevel() != zerolog.Disabled
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-Id"); got != "abc-123" {
		t.Errorf("X-Request-Id = %q, want the incoming id", got)
	}
	if !hasLogger {
		t.Error("request context carries no logger")
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/id", nil))
	if w.Header().Get("X-Request-Id") == "" {
		t.Error("missing generated X-Request-Id")
	}
}

func decompressGzip(data []byte) (string, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	return string(out), err
}

func TestGzipCompressesStaticAssets(t *testing.T) {
	app, _ := newTestApp(t, &fakeAPI{}, false)
	router := app.setupRouter(".")

	req := httptest.NewRequest(http.MethodGet, "/static/style.css", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /static/style.css returned %d", w.Code)
	}
	if w.Header().Get("Content-Encoding") != "gzip" {
		t.Fatal("Expected gzip Content-Encoding for .css file")
	}
	body, err := decompressGzip(w.Body.Bytes())
	if err != nil || len(body) == 0 {
		t.Errorf("Failed to decompress gzipped CSS: %v", err)
	}
}

func TestGzipSkipsRoomQR(t *testing.T) {
	app, _ := newTestApp(t, &fakeAPI{}, true)
	tc := newTestClient(t, app)
	tc.post(RouteGameStart, url.Values{"mode": {"multiplayer"}})
	tc.post(RouteRoomCreate, nil)

	req := httptest.NewRequest(http.MethodGet, RouteRoomQR, nil)
	req.Header.Set("Accept-Encoding", "gzip")
	req.AddCookie(tc.cookie)
	w := httptest.NewRecorder()
	tc.router.ServeHTTP(w, req)
	if w.Header().Get("Content-Encoding") == "gzip" {
		t.Error("Did not expect gzip Content-Encoding for the QR image")
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("QR response is not a PNG")
	}
}

func TestCacheHeaders(t *testing.T) {
	app, _ := newTestApp(t, &fakeAPI{}, false)
	app.Config.production = true
	app.Config.staticCacheAge = 5 * time.Minute
	router := app.setupRouter(".")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
	if cc := w.Header().Get("Cache-Control"); !bytes.Contains([]byte(cc), []byte("max-age=300")) {
		t.Errorf("static Cache-Control = %q, want max-age=300", cc)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, RouteHealthz, nil))
	if cc := w.Header().Get("Cache-Control"); !bytes.Contains([]byte(cc), []byte("no-store")) {
		t.Errorf("page Cache-Control = %q, want no-store", cc)
	}
}
