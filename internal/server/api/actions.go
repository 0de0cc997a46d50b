package api

import (
	"net/http"
	"strconv"

	"github.com/ayusman/mudra/internal/store"
)

const (
	defaultActionLimit = 50
	maxActionLimit     = 500
)

// ActionLogHandler serves the recent dispatched actions at /api/actions.
type ActionLogHandler struct {
	store *store.Store
}

// NewActionLogHandler creates a new ActionLogHandler with the given store.
func NewActionLogHandler(s *store.Store) *ActionLogHandler {
	return &ActionLogHandler{store: s}
}

type listActionsResponse struct {
	Actions []store.ActionRecord `json:"actions"`
}

// ServeHTTP handles GET /api/actions?limit=N, newest first.
func (h *ActionLogHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	limit := defaultActionLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxActionLimit)
	}

	records, err := h.store.ActionLog().Recent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list actions")
		return
	}
	if records == nil {
		records = []store.ActionRecord{}
	}

	writeJSON(w, http.StatusOK, listActionsResponse{Actions: records})
}
