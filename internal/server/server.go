// Package server provides the HTTP control panel for mudra: live status,
// the snapshot feed, the camera preview and the pose, settings and action
// log APIs.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/control"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/server/api"
	"github.com/ayusman/mudra/internal/store"
)

// Controller is the running control loop as seen by the server.
type Controller interface {
	Status() control.Snapshot
	Recalibrate()
	SetEnabled(enabled bool)
	Enabled() bool
}

// Config holds the server configuration. Every collaborator is optional; the
// routes that need a missing one are not registered.
type Config struct {
	StaticDir  string
	Store      *store.Store
	Controller Controller
	Hub        *Hub
	Preview    FrameSource
	Plugins    *plugin.Manager

	// Base is the configuration stored settings are overlaid on.
	Base config.Config

	OnPosesChanged    func()
	OnSettingsChanged func(config.Config)
}

// Server represents the HTTP server for the mudra application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Controller != nil {
		s.mux.HandleFunc("/api/status", s.handleStatus)
		s.mux.HandleFunc("/api/calibrate", s.handleCalibrate)
		s.mux.HandleFunc("/api/enabled", s.handleEnabled)
	}

	if s.config.Hub != nil {
		s.mux.Handle("/api/events", s.config.Hub)
	}

	if s.config.Preview != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Preview))
	}

	if s.config.Store != nil {
		poses := api.NewPoseHandler(s.config.Store)
		poses.OnChange = s.config.OnPosesChanged
		s.mux.Handle("/api/poses", poses)
		s.mux.Handle("/api/poses/", poses)

		settings := api.NewSettingsHandler(s.config.Store, s.config.Base)
		settings.OnChange = s.config.OnSettingsChanged
		s.mux.Handle("/api/settings", settings)

		s.mux.Handle("/api/actions", api.NewActionLogHandler(s.config.Store))
	}

	if s.config.Plugins != nil {
		s.mux.HandleFunc("/api/plugins", s.handlePlugins)
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

// handleStatus returns the latest control snapshot.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Enabled  bool             `json:"enabled"`
		Snapshot control.Snapshot `json:"snapshot"`
	}{s.config.Controller.Enabled(), s.config.Controller.Status()})
}

// handleCalibrate restarts calibration on POST.
func (s *Server) handleCalibrate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.config.Controller.Recalibrate()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "calibrating"})
}

type enabledBody struct {
	Enabled *bool `json:"enabled"`
}

// handleEnabled reports or toggles gesture control.
func (s *Server) handleEnabled(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		var body enabledBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Enabled == nil {
			writeError(w, http.StatusBadRequest, `expected {"enabled": true|false}`)
			return
		}
		s.config.Controller.SetEnabled(*body.Enabled)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"enabled": s.config.Controller.Enabled()})
}

type pluginResponse struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Actions     []string `json:"actions"`
}

// handlePlugins lists the discovered key-action plugins.
func (s *Server) handlePlugins(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	plugins := s.config.Plugins.List()
	out := make([]pluginResponse, 0, len(plugins))
	for _, p := range plugins {
		out = append(out, pluginResponse{
			Name:        p.Manifest.Name,
			Version:     p.Manifest.Version,
			Description: p.Manifest.Description,
			Actions:     p.Manifest.Actions,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"plugins": out})
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
