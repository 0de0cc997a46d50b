package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// DefaultTolerance is used for poses created without one.
const DefaultTolerance = 0.15

// PoseHandler handles HTTP requests for user-recorded hand poses.
type PoseHandler struct {
	store   *store.Store
	samples *SamplesHandler
	trainer *gesture.Trainer

	// OnChange, if set, is called after a pose is created, edited, trained
	// or deleted, so that the live template set can be reloaded.
	OnChange func()
}

// NewPoseHandler creates a new PoseHandler with the given store.
func NewPoseHandler(s *store.Store) *PoseHandler {
	return &PoseHandler{
		store:   s,
		samples: NewSamplesHandler(s),
		trainer: gesture.NewTrainer(),
	}
}

// ServeHTTP routes requests for the paths:
//
//	/api/poses
//	/api/poses/{id}
//	/api/poses/{id}/samples
//	/api/poses/{id}/train
func (h *PoseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/poses")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			methodNotAllowed(w)
		}
		return
	}

	parts := strings.Split(path, "/")
	id := parts[0]
	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodPut:
			h.update(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			methodNotAllowed(w)
		}
	case len(parts) == 2 && parts[1] == "samples":
		h.samples.serve(w, r, id)
	case len(parts) == 2 && parts[1] == "train":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.train(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type poseRequest struct {
	Name      string  `json:"name"`
	Gesture   string  `json:"gesture"`
	Tolerance float64 `json:"tolerance"`
}

type poseResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Gesture   string  `json:"gesture"`
	Tolerance float64 `json:"tolerance"`
	Samples   int     `json:"samples"`
	Trained   bool    `json:"trained"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type listPosesResponse struct {
	Poses []poseResponse `json:"poses"`
}

type trainResponse struct {
	ID        string `json:"id"`
	Samples   int    `json:"samples"`
	Landmarks int    `json:"landmarks"`
}

func (h *PoseHandler) toResponse(p *store.Pose) (poseResponse, error) {
	landmarks, err := h.store.Poses().GetLandmarks(p.ID)
	if err != nil {
		return poseResponse{}, err
	}
	return poseResponse{
		ID:        p.ID,
		Name:      p.Name,
		Gesture:   p.Gesture,
		Tolerance: p.Tolerance,
		Samples:   p.Samples,
		Trained:   len(landmarks) > 0,
		CreatedAt: p.CreatedAt.Format(timeFormat),
		UpdatedAt: p.UpdatedAt.Format(timeFormat),
	}, nil
}

func (h *PoseHandler) changed() {
	if h.OnChange != nil {
		h.OnChange()
	}
}

// parseGesture accepts any gesture of the closed set except none.
func parseGesture(name string) (gesture.Gesture, bool) {
	g, err := gesture.Parse(name)
	if err != nil || g == gesture.None {
		return gesture.None, false
	}
	return g, true
}

func (h *PoseHandler) list(w http.ResponseWriter, r *http.Request) {
	poses, err := h.store.Poses().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list poses")
		return
	}

	response := listPosesResponse{Poses: make([]poseResponse, 0, len(poses))}
	for _, p := range poses {
		resp, err := h.toResponse(p)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to list poses")
			return
		}
		response.Poses = append(response.Poses, resp)
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *PoseHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := h.lookup(w, id)
	if !ok {
		return
	}
	h.respond(w, http.StatusOK, p)
}

func (h *PoseHandler) create(w http.ResponseWriter, r *http.Request) {
	var req poseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	g, ok := parseGesture(req.Gesture)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid gesture")
		return
	}
	if req.Tolerance < 0 {
		writeError(w, http.StatusBadRequest, "Tolerance must not be negative")
		return
	}

	tolerance := req.Tolerance
	if tolerance == 0 {
		tolerance = DefaultTolerance
	}

	if _, err := h.store.Poses().GetByName(req.Name); err == nil {
		writeError(w, http.StatusConflict, "A pose with this name already exists")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "Failed to create pose")
		return
	}

	p := &store.Pose{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Gesture:   g.String(),
		Tolerance: tolerance,
	}
	if err := h.store.Poses().Create(p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create pose")
		return
	}

	h.changed()
	h.respond(w, http.StatusCreated, p)
}

func (h *PoseHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := h.lookup(w, id)
	if !ok {
		return
	}

	var req poseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name != "" && req.Name != p.Name {
		if _, err := h.store.Poses().GetByName(req.Name); err == nil {
			writeError(w, http.StatusConflict, "A pose with this name already exists")
			return
		}
		p.Name = req.Name
	}
	if req.Gesture != "" {
		g, ok := parseGesture(req.Gesture)
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid gesture")
			return
		}
		p.Gesture = g.String()
	}
	if req.Tolerance < 0 {
		writeError(w, http.StatusBadRequest, "Tolerance must not be negative")
		return
	}
	if req.Tolerance != 0 {
		p.Tolerance = req.Tolerance
	}

	if err := h.store.Poses().Update(p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update pose")
		return
	}

	h.changed()
	h.respond(w, http.StatusOK, p)
}

func (h *PoseHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Poses().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Pose not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete pose")
		return
	}

	h.changed()
	w.WriteHeader(http.StatusNoContent)
}

// train averages the recorded samples of a pose into its template.
func (h *PoseHandler) train(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := h.lookup(w, id); !ok {
		return
	}

	samples, err := h.store.Samples().ForPose(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load samples")
		return
	}
	raw := make([]json.RawMessage, len(samples))
	for i, s := range samples {
		raw[i] = s.Data
	}

	points, err := h.trainer.TrainStatic(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	landmarks := make([]store.Landmark, len(points))
	for i, p := range points {
		landmarks[i] = store.Landmark{X: p.X, Y: p.Y, Z: p.Z}
	}
	if err := h.store.Poses().SetLandmarks(id, landmarks); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save template")
		return
	}

	h.changed()
	writeJSON(w, http.StatusOK, trainResponse{ID: id, Samples: len(samples), Landmarks: len(landmarks)})
}

// lookup fetches a pose, writing the error response when it cannot.
func (h *PoseHandler) lookup(w http.ResponseWriter, id string) (*store.Pose, bool) {
	p, err := h.store.Poses().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Pose not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to get pose")
		return nil, false
	}
	return p, true
}

func (h *PoseHandler) respond(w http.ResponseWriter, status int, p *store.Pose) {
	resp, err := h.toResponse(p)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get pose")
		return
	}
	writeJSON(w, status, resp)
}
