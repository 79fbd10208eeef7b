package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/gradebook/pkg/metrics"
)

// HealthHandler handles health and metrics requests.
type HealthHandler struct {
	snapshots SnapshotProvider
	metrics   http.Handler
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(snapshots SnapshotProvider) *HealthHandler {
	return &HealthHandler{
		snapshots: snapshots,
		metrics:   promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

type healthResponse struct {
	Status   string `json:"status"`
	Snapshot string `json:"snapshot,omitempty"`
	Records  int    `json:"records"`
}

// HandleHealth handles GET /healthz requests. The service is healthy once
// a snapshot has been published.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshots.Snapshot(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "starting"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Snapshot: snap.ID(), Records: snap.Len()})
}

// HandleMetrics serves the Prometheus registry.
func (h *HealthHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}
