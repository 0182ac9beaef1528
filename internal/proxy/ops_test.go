package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func opsLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestHealthzOK(t *testing.T) {
	upstream := func(ctx context.Context) error { return nil }
	mux := newOpsMux(opsLogger(), nil, prometheus.NewRegistry(), upstream)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("status field = %q", body["status"])
	}
}

func TestHealthzDegradedWhenUpstreamDown(t *testing.T) {
	upstream := func(ctx context.Context) error { return errors.New("connection refused") }
	mux := newOpsMux(opsLogger(), nil, prometheus.NewRegistry(), upstream)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "degraded" {
		t.Fatalf("status field = %q", body["status"])
	}
}

func TestMetricsEndpointServesRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := &metrics{}
	m.init(registry)
	m.recordRequest(http.MethodGet, rulePHP, http.StatusOK, 0)

	mux := newOpsMux(opsLogger(), nil, registry, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "wpstack_proxy_http_requests_total") {
		t.Fatalf("metrics output missing request counter:\n%s", body)
	}
}

func TestLogStreamRequiresService(t *testing.T) {
	mux := newOpsMux(opsLogger(), nil, prometheus.NewRegistry(), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logs/ws", nil))
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501 without a hub", rec.Code)
	}
}
