// Command keypress is a volverse hook that sends a key press to the focused
// window, e.g. to turn a slide every time the cloak toggles.
//
// Config: {"key": "Right", "modifiers": ["ctrl"]}
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/ayusman/volverse/internal/hook"
)

// Config is the hook's manifest config.
type Config struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"` // command, option, control, shift
}

// appleModifiers maps modifier names to AppleScript.
var appleModifiers = map[string]string{
	"command": "command down",
	"cmd":     "command down",
	"option":  "option down",
	"alt":     "option down",
	"control": "control down",
	"ctrl":    "control down",
	"shift":   "shift down",
}

// xdoModifiers maps modifier names to xdotool.
var xdoModifiers = map[string]string{
	"command": "super",
	"cmd":     "super",
	"option":  "alt",
	"alt":     "alt",
	"control": "ctrl",
	"ctrl":    "ctrl",
	"shift":   "shift",
}

func main() {
	var req hook.Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		respond(fmt.Errorf("decode request: %w", err))
		return
	}

	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			respond(fmt.Errorf("parse config: %w", err))
			return
		}
	}
	if cfg.Key == "" {
		respond(errors.New("config.key is required"))
		return
	}

	respond(press(runtime.GOOS, cfg))
}

func press(goos string, cfg Config) error {
	var cmd *exec.Cmd
	switch goos {
	case "darwin":
		cmd = exec.Command("osascript", "-e", appleScript(cfg.Key, cfg.Modifiers))
	case "linux":
		cmd = exec.Command("xdotool", "key", xdoKey(cfg.Key, cfg.Modifiers))
	default:
		return fmt.Errorf("key presses are not supported on %s", goos)
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// appleScript builds the System Events keystroke for key and modifiers.
func appleScript(key string, modifiers []string) string {
	var mods []string
	for _, m := range modifiers {
		if am, ok := appleModifiers[strings.ToLower(m)]; ok {
			mods = append(mods, am)
		}
	}
	if len(mods) == 0 {
		return fmt.Sprintf(`tell application "System Events" to keystroke %q`, key)
	}
	return fmt.Sprintf(`tell application "System Events" to keystroke %q using {%s}`, key, strings.Join(mods, ", "))
}

// xdoKey builds an xdotool key chord such as "ctrl+shift+Right".
func xdoKey(key string, modifiers []string) string {
	parts := make([]string, 0, len(modifiers)+1)
	for _, m := range modifiers {
		if xm, ok := xdoModifiers[strings.ToLower(m)]; ok {
			parts = append(parts, xm)
		}
	}
	return strings.Join(append(parts, key), "+")
}

func respond(err error) {
	resp := hook.Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
