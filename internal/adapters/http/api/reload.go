package api

import (
	"context"
	"net/http"

	"github.com/okian/gradebook/internal/domain/types"
	"github.com/okian/gradebook/pkg/logger"
)

// Reloader re-runs the pipeline.
type Reloader interface {
	Reload(ctx context.Context) (types.RunResult, error)
}

// ReloadHandler handles reload requests.
type ReloadHandler struct {
	deps   Reloader
	logger logger.Logger
}

// NewReloadHandler creates a new reload handler.
func NewReloadHandler(deps Reloader, l logger.Logger) *ReloadHandler {
	return &ReloadHandler{deps: deps, logger: l}
}

// HandleReload handles POST /reload. A failed reload keeps serving the
// previous snapshot and reports why.
func (h *ReloadHandler) HandleReload(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.Reload(r.Context())
	if err != nil {
		h.logger.Warn(r.Context(), "reload rejected", logger.Error(err))
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
