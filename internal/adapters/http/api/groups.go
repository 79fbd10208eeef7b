package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/okian/gradebook/internal/domain/query"
	"github.com/okian/gradebook/internal/domain/types"
)

// ReportDependencies renders PDF reports.
type ReportDependencies interface {
	GroupReport(ctx context.Context, group string) ([]byte, error)
	RosterReport(ctx context.Context, title string, f query.Filter) ([]byte, error)
}

// GroupsHandler serves per-group views.
type GroupsHandler struct {
	snapshots SnapshotProvider
	reports   ReportDependencies
}

// NewGroupsHandler creates a new groups handler.
func NewGroupsHandler(snapshots SnapshotProvider, reports ReportDependencies) *GroupsHandler {
	return &GroupsHandler{snapshots: snapshots, reports: reports}
}

type groupsResponse struct {
	Groups []string `json:"groups"`
}

// HandleList handles GET /groups.
func (h *GroupsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshots.Snapshot(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	groups := snap.Groups()
	if groups == nil {
		groups = []string{}
	}
	writeJSON(w, http.StatusOK, groupsResponse{Groups: groups})
}

// HandleGet handles GET /groups/{group}: the group's students.
func (h *GroupsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	group, ok := pathParam(w, r, "group")
	if !ok {
		return
	}
	snap, err := h.snapshots.Snapshot(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	recs := snap.FindByGroup(group)
	if len(recs) == 0 {
		writeError(w, http.StatusNotFound, codeEmptyResultSet, query.ErrEmptyResultSet)
		return
	}
	writeJSON(w, http.StatusOK, newList(types.Entries(recs), 0))
}

// HandleDistribution handles GET /groups/{group}/distribution.
func (h *GroupsHandler) HandleDistribution(w http.ResponseWriter, r *http.Request) {
	group, ok := pathParam(w, r, "group")
	if !ok {
		return
	}
	snap, err := h.snapshots.Snapshot(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	d, err := snap.Distribution(&group)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// HandleReport handles GET /groups/{group}/report.pdf.
func (h *GroupsHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	group, ok := pathParam(w, r, "group")
	if !ok {
		return
	}
	data, err := h.reports.GroupReport(r.Context(), group)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writePDF(w, "Report_"+url.PathEscape(group)+".pdf", data)
}
