package api

import (
	"net/http"
	"strings"

	"github.com/okian/gradebook/internal/domain/query"
	"github.com/okian/gradebook/internal/domain/types"
)

// SummaryHandler serves aggregates over every student or one group.
type SummaryHandler struct {
	snapshots  SnapshotProvider
	reports    ReportDependencies
	maxResults int
}

// NewSummaryHandler creates a new summary handler.
func NewSummaryHandler(snapshots SnapshotProvider, reports ReportDependencies, maxResults int) *SummaryHandler {
	return &SummaryHandler{snapshots: snapshots, reports: reports, maxResults: maxResults}
}

// HandleSummary handles GET /summary[?group=].
func (h *SummaryHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshots.Snapshot(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	sum, err := snap.Summary(groupFilter(r))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// HandleDistribution handles GET /distribution[?group=].
func (h *SummaryHandler) HandleDistribution(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshots.Snapshot(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	d, err := snap.Distribution(groupFilter(r))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// HandleScholars handles GET /scholars[?group=].
func (h *SummaryHandler) HandleScholars(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshots.Snapshot(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(types.Entries(snap.Scholars(groupFilter(r))), h.maxResults))
}

// HandleRoster handles GET /roster.pdf[?group=&scholars=true&title=].
func (h *SummaryHandler) HandleRoster(w http.ResponseWriter, r *http.Request) {
	scholars, err := boolQuery(r, "scholars")
	if err != nil {
		writeFailure(w, err)
		return
	}
	f := query.Filter{ScholarsOnly: scholars}
	if g := groupFilter(r); g != nil {
		f.Group = *g
	}
	data, err := h.reports.RosterReport(r.Context(), strings.TrimSpace(r.URL.Query().Get("title")), f)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writePDF(w, "roster.pdf", data)
}
