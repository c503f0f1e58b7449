// Command notify is a volverse hook that shows a desktop notification for
// each event it receives.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/ayusman/volverse/internal/events"
	"github.com/ayusman/volverse/internal/hook"
)

var titles = map[events.Type]string{
	events.TypeCloakToggle:  "Invisibility cloak",
	events.TypeColorSelect:  "Brush color",
	events.TypeEraserSelect: "Eraser",
	events.TypeCanvasClear:  "Canvas cleared",
	events.TypeArtworkSaved: "Artwork saved",
}

func main() {
	var req hook.Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		respond(fmt.Errorf("decode request: %w", err))
		return
	}
	title, body := message(req.Event)
	respond(notify(runtime.GOOS, title, body))
}

// message returns the notification title and body for e.
func message(e events.Event) (string, string) {
	title, ok := titles[e.Type]
	if !ok {
		title = string(e.Type)
	}
	body := strings.ReplaceAll(e.Detail, "_", " ")
	if body == "" {
		body = e.Gesture
	}
	return title, body
}

func notify(goos, title, body string) error {
	var cmd *exec.Cmd
	switch goos {
	case "darwin":
		cmd = exec.Command("osascript", "-e", fmt.Sprintf("display notification %q with title %q", body, title))
	case "linux":
		cmd = exec.Command("notify-send", "--app-name=volverse", title, body)
	default:
		return fmt.Errorf("notifications are not supported on %s", goos)
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func respond(err error) {
	resp := hook.Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
