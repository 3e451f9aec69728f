package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/exact3design/soundcard/internal/apperr"
	"github.com/exact3design/soundcard/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	rd "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

func runRequest(t *testing.T, middleware gin.HandlerFunc, route, target string) *httptest.ResponseRecorder {
	t.Helper()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware)
	router.GET(route, func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestRequestLoggerMasksSignatures(t *testing.T) {
	var buf bytes.Buffer
	prevOut, prevLevel := log.StandardLogger().Out, log.GetLevel()
	log.SetOutput(&buf)
	log.SetLevel(log.InfoLevel)
	t.Cleanup(func() {
		log.SetOutput(prevOut)
		log.SetLevel(prevLevel)
	})

	recorder := runRequest(t, RequestLogger(), "/v0/packs/download", "/v0/packs/download?sig=eyJhbGciOiJIUzI1NiJ9.payload.signature")
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("status = %d", recorder.Code)
	}
	out := buf.String()
	if strings.Contains(out, "eyJhbGciOiJIUzI1NiJ9.payload.signature") {
		t.Fatalf("signature leaked into log: %s", out)
	}
	if !strings.Contains(out, "/v0/packs/download") {
		t.Fatalf("path missing from log: %s", out)
	}
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	counter := metrics.HTTPRequests.WithLabelValues(http.MethodGet, "/cards/:token", "204")
	before := testutil.ToFloat64(counter)

	runRequest(t, Metrics(), "/cards/:token", "/cards/ABCD23456")
	runRequest(t, Metrics(), "/cards/:token", "/cards/ZZZZ99999")

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Fatalf("counter delta = %v, want 2", got)
	}
}

func TestRateLimitDisabledWithoutRedis(t *testing.T) {
	recorder := runRequest(t, RateLimit(nil, "claim", 1, time.Minute), "/x", "/x")
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", recorder.Code)
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	rdb := rd.NewClient(&rd.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	recorder := runRequest(t, RateLimit(rdb, "claim", 1, time.Minute), "/x", "/x")
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204 when redis is down", recorder.Code)
	}
}

func TestWriteErrorEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	until := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	router := gin.New()
	router.GET("/unauthorized", func(c *gin.Context) {
		WriteError(c, apperr.Unauthorized("Incorrect setup code. Please try again.", 0, &until))
	})
	router.GET("/plain", func(c *gin.Context) {
		WriteError(c, bytes.ErrTooLarge)
	})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/unauthorized", nil))
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", recorder.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "unauthorized" || body["attempts_remaining"] != float64(0) || body["locked_until"] != "2026-01-02T03:04:05Z" {
		t.Fatalf("unexpected body: %v", body)
	}

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/plain", nil))
	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", recorder.Code)
	}
	if strings.Contains(recorder.Body.String(), "too large") {
		t.Fatalf("internal error detail leaked: %s", recorder.Body.String())
	}
}
