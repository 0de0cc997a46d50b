// Package plugin discovers and runs key-action plugins. A plugin is an
// executable next to a plugin.json manifest; it reads one JSON Request on stdin
// and writes one JSON Response on stdout.
package plugin

import "encoding/json"

// Manifest describes a plugin's metadata and the key actions it handles.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Handles reports whether the manifest lists action.
func (m Manifest) Handles(action string) bool {
	for _, a := range m.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Request is sent to a plugin for execution. Action is the symbolic key name
// and Gesture the gesture that produced it.
type Request struct {
	Action  string          `json:"action"`
	Gesture string          `json:"gesture"`
	Config  json.RawMessage `json:"config,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is the reply from a plugin.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
