package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewHandler builds an HTTP handler exposing the collector:
// GET /metrics serves the Prometheus text format, GET /stats serves JSON.
func NewHandler(exporter *PrometheusExporter) http.Handler {
	r := chi.NewRouter()

	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		if err := exporter.WriteMetrics(w); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
		stats := map[string]interface{}{
			"counters": exporter.collector.GetSnapshot(),
		}
		if exporter.pool != nil {
			stats["buffer_pool"] = exporter.pool.Stats()
		}
		if exporter.disk != nil {
			stats["disk"] = map[string]int64{
				"reads":  exporter.disk.ReadCount(),
				"writes": exporter.disk.WriteCount(),
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(stats); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	return r
}
