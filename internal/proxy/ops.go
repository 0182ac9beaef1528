package proxy

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hhftechnology/wordpress-docker/internal/ws"
)

const healthCheckTimeout = 2 * time.Second

// writeJSON writes JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// newOpsMux builds the local operations endpoint: health, metrics and live
// service log streams.
func newOpsMux(logger *slog.Logger, hub *ws.Hub, registry *prometheus.Registry, upstream func(ctx context.Context) error) *http.ServeMux {
	mux := http.NewServeMux()
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if upstream != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()
			if err := upstream(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "degraded",
					"error":  err.Error(),
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/logs/ws", func(w http.ResponseWriter, r *http.Request) {
		if hub == nil {
			writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "log streaming disabled"})
			return
		}
		service := r.URL.Query().Get("service")
		if service == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "service query parameter required"})
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", "error", err)
			return
		}
		client := ws.NewClient(conn, logger)
		hub.Register(service, client)
		defer hub.Unregister(service, client)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	return mux
}
