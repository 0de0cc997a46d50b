package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayusman/mudra/internal/store"
)

// MaxSamplesPerRequest bounds one recording upload.
const MaxSamplesPerRequest = 500

// SamplesHandler handles the recorded samples of a pose. It is mounted by
// PoseHandler under /api/poses/{id}/samples.
type SamplesHandler struct {
	store *store.Store
}

// NewSamplesHandler creates a new SamplesHandler with the given store.
func NewSamplesHandler(s *store.Store) *SamplesHandler {
	return &SamplesHandler{store: s}
}

func (h *SamplesHandler) serve(w http.ResponseWriter, r *http.Request, poseID string) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r, poseID)
	case http.MethodPost:
		h.create(w, r, poseID)
	case http.MethodDelete:
		h.clear(w, r, poseID)
	default:
		methodNotAllowed(w)
	}
}

type createSamplesRequest struct {
	Samples []json.RawMessage `json:"samples"`
}

type sampleResponse struct {
	ID          int64           `json:"id"`
	PoseID      string          `json:"pose_id"`
	SampleIndex int             `json:"sample_index"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   string          `json:"created_at"`
}

type listSamplesResponse struct {
	Samples []sampleResponse `json:"samples"`
}

// list handles GET /api/poses/{id}/samples
func (h *SamplesHandler) list(w http.ResponseWriter, r *http.Request, poseID string) {
	if !h.exists(w, poseID) {
		return
	}

	samples, err := h.store.Samples().ForPose(poseID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list samples")
		return
	}

	response := listSamplesResponse{Samples: make([]sampleResponse, 0, len(samples))}
	for _, s := range samples {
		response.Samples = append(response.Samples, sampleResponse{
			ID:          s.ID,
			PoseID:      s.PoseID,
			SampleIndex: s.SampleIndex,
			Data:        s.Data,
			CreatedAt:   s.CreatedAt.Format(timeFormat),
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// create handles POST /api/poses/{id}/samples
func (h *SamplesHandler) create(w http.ResponseWriter, r *http.Request, poseID string) {
	if !h.exists(w, poseID) {
		return
	}

	var req createSamplesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if len(req.Samples) == 0 {
		writeError(w, http.StatusBadRequest, "At least one sample is required")
		return
	}
	if len(req.Samples) > MaxSamplesPerRequest {
		writeError(w, http.StatusRequestEntityTooLarge, "Too many samples")
		return
	}
	for _, s := range req.Samples {
		if !json.Valid(s) {
			writeError(w, http.StatusBadRequest, "Invalid sample")
			return
		}
	}

	if err := h.store.Samples().Append(poseID, req.Samples); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save samples")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int{"added": len(req.Samples)})
}

// clear handles DELETE /api/poses/{id}/samples. A trained template is kept.
func (h *SamplesHandler) clear(w http.ResponseWriter, r *http.Request, poseID string) {
	if !h.exists(w, poseID) {
		return
	}
	if err := h.store.Samples().DeleteForPose(poseID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete samples")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SamplesHandler) exists(w http.ResponseWriter, poseID string) bool {
	_, err := h.store.Poses().GetByID(poseID)
	if err == nil {
		return true
	}
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Pose not found")
		return false
	}
	writeError(w, http.StatusInternalServerError, "Failed to verify pose")
	return false
}
