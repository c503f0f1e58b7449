// Package hook runs user executables when the effects publish events. Each
// hook lives in its own directory under the hooks directory, described by a
// hook.json manifest.
package hook

import (
	"encoding/json"
	"slices"

	"github.com/ayusman/volverse/internal/events"
)

// ManifestFile is the manifest name inside a hook directory.
const ManifestFile = "hook.json"

// Manifest describes a hook.
type Manifest struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Executable  string `json:"executable"`
	// Events lists the event types the hook wants. Empty means all.
	Events []events.Type `json:"events"`
	// Config is passed through to the hook untouched.
	Config json.RawMessage `json:"config,omitempty"`
}

// Request is written to the hook's stdin as JSON.
type Request struct {
	Event   events.Event    `json:"event"`
	Session string          `json:"session,omitempty"`
	Config  json.RawMessage `json:"config,omitempty"`
}

// Response is read from the hook's stdout.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Hook is a discovered hook.
type Hook struct {
	Manifest   Manifest
	Dir        string
	Executable string
}

// Handles reports whether the hook subscribed to t.
func (h *Hook) Handles(t events.Type) bool {
	return len(h.Manifest.Events) == 0 || slices.Contains(h.Manifest.Events, t)
}
