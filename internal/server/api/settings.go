package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/store"
)

// SettingsHandler serves the runtime settings at /api/settings. Stored
// settings overlay the base configuration the process started with.
type SettingsHandler struct {
	store *store.Store
	base  config.Config

	// OnChange, if set, receives the effective configuration after an update.
	OnChange func(config.Config)
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(s *store.Store, base config.Config) *SettingsHandler {
	return &SettingsHandler{store: s, base: base}
}

type settingsResponse struct {
	Settings map[string]string `json:"settings"`
}

type updateSettingsRequest struct {
	Settings map[string]string `json:"settings"`
}

// ServeHTTP handles GET and PUT /api/settings.
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut:
		h.update(w, r)
	default:
		methodNotAllowed(w)
	}
}

// effective returns the base configuration with stored settings applied.
func (h *SettingsHandler) effective() (config.Config, map[string]string, error) {
	stored, err := h.store.Settings().All()
	if err != nil {
		return config.Config{}, nil, err
	}
	cfg := h.base
	if err := cfg.ApplySettings(stored); err != nil {
		log.Printf("api: ignoring stored settings: %v", err)
		cfg = h.base
	}
	return cfg, stored, nil
}

func (h *SettingsHandler) get(w http.ResponseWriter, r *http.Request) {
	cfg, _, err := h.effective()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load settings")
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{Settings: cfg.Settings()})
}

func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req.Settings) == 0 {
		writeError(w, http.StatusBadRequest, "At least one setting is required")
		return
	}

	_, stored, err := h.effective()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load settings")
		return
	}
	merged := make(map[string]string, len(stored)+len(req.Settings))
	for k, v := range stored {
		merged[k] = v
	}
	for k, v := range req.Settings {
		merged[k] = v
	}

	cfg := h.base
	if err := cfg.ApplySettings(merged); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Settings().SetMany(req.Settings); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save settings")
		return
	}

	if h.OnChange != nil {
		h.OnChange(cfg)
	}
	writeJSON(w, http.StatusOK, settingsResponse{Settings: cfg.Settings()})
}
