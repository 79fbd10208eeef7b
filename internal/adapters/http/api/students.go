package api

import (
	"fmt"
	"net/http"
	"strings"
)

// Matching modes of GET /students.
const (
	matchExact    = "exact"
	matchContains = "contains"
)

// StudentsHandler answers name lookups.
type StudentsHandler struct {
	snapshots  SnapshotProvider
	maxResults int
}

// NewStudentsHandler creates a new students handler.
func NewStudentsHandler(snapshots SnapshotProvider, maxResults int) *StudentsHandler {
	return &StudentsHandler{snapshots: snapshots, maxResults: maxResults}
}

// HandleFind handles GET /students?name=...&match=exact|contains.
// An exact miss is a 404; a substring search with no hits is an empty list.
func (h *StudentsHandler) HandleFind(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := strings.TrimSpace(q.Get("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, fmt.Errorf("%w: missing name", ErrBadRequest))
		return
	}
	snap, err := h.snapshots.Snapshot(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}

	switch mode := strings.ToLower(q.Get("match")); mode {
	case "", matchExact:
		rec, ok := snap.FindExact(name)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, fmt.Errorf("%w: student %q", ErrNotFound, name))
			return
		}
		writeJSON(w, http.StatusOK, rec)
	case matchContains:
		writeJSON(w, http.StatusOK, newList(snap.FindContains(name), h.maxResults))
	default:
		writeError(w, http.StatusBadRequest, codeBadRequest, fmt.Errorf("%w: unknown match mode %q", ErrBadRequest, mode))
	}
}

// HandleChart handles GET /students/{name}/chart.
func (h *StudentsHandler) HandleChart(w http.ResponseWriter, r *http.Request) {
	name, ok := pathParam(w, r, "name")
	if !ok {
		return
	}
	snap, err := h.snapshots.Snapshot(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	chart, found := snap.GradeChart(name)
	if !found {
		writeError(w, http.StatusNotFound, codeNotFound, fmt.Errorf("%w: student %q", ErrNotFound, name))
		return
	}
	writeJSON(w, http.StatusOK, chart)
}
