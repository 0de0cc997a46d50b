// Command system-control is a key-action plugin for macOS. It performs
// volume, brightness and media keys through AppleScript.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Request is the plugin input, read from stdin.
type Request struct {
	Action  string          `json:"action"`
	Gesture string          `json:"gesture"`
	Config  json.RawMessage `json:"config,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is the plugin output, written to stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// keyCode presses a System Events key code.
func keyCode(code int) string {
	return fmt.Sprintf("tell application \"System Events\"\n\tkey code %d\nend tell", code)
}

// scripts maps key names to the AppleScript that performs them.
var scripts = map[string]string{
	"volumeup":       `set volume output volume ((output volume of (get volume settings)) + 10)`,
	"volumedown":     `set volume output volume ((output volume of (get volume settings)) - 10)`,
	"volumemute":     `set volume output muted (not (output muted of (get volume settings)))`,
	"brightnessup":   keyCode(144),
	"brightnessdown": keyCode(145),
	"playpause":      keyCode(100),
	"nexttrack":      keyCode(101),
	"prevtrack":      keyCode(98),
}

// runner executes a script; replaced in tests.
var runner = runAppleScript

func main() {
	resp := handle(os.Stdin)
	json.NewEncoder(os.Stdout).Encode(resp)
}

func handle(in io.Reader) Response {
	var req Request
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return Response{Error: fmt.Sprintf("decode request: %v", err)}
	}

	script, ok := scripts[req.Action]
	if !ok {
		return Response{Error: fmt.Sprintf("unknown action: %s", req.Action)}
	}

	if err := runner(script); err != nil {
		return Response{Error: fmt.Sprintf("action %s failed: %v", req.Action, err)}
	}
	return Response{Success: true}
}

// runAppleScript executes an AppleScript command and returns any error.
func runAppleScript(script string) error {
	cmd := exec.Command("osascript", "-e", script)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
