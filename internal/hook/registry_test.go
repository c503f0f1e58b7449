package hook

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ayusman/volverse/internal/events"
)

func TestRegistry_Discover(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, Manifest{
		Name:        "notify",
		Version:     "1.0.0",
		Description: "Desktop notification",
		Executable:  "notify.sh",
		Events:      []events.Type{events.TypeCloakToggle},
	}, "")
	writeHook(t, dir, Manifest{Name: "beep", Executable: "beep.sh"}, "")

	r := NewRegistry(dir, nil)
	if err := r.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	hooks := r.List()
	if len(hooks) != 2 {
		t.Fatalf("got %d hooks, want 2", len(hooks))
	}
	if hooks[0].Manifest.Name != "beep" || hooks[1].Manifest.Name != "notify" {
		t.Errorf("List() not sorted: %s, %s", hooks[0].Manifest.Name, hooks[1].Manifest.Name)
	}

	h, err := r.Get("notify")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if h.Dir != filepath.Join(dir, "notify") || h.Executable != filepath.Join(dir, "notify", "notify.sh") {
		t.Errorf("hook = %+v", h)
	}
	if h.Manifest.Description != "Desktop notification" || len(h.Manifest.Events) != 1 {
		t.Errorf("manifest = %+v", h.Manifest)
	}
}

func TestRegistry_Discover_Skips(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, Manifest{Name: "good", Executable: "good.sh"}, "")

	// Directory without a manifest.
	if err := os.MkdirAll(filepath.Join(dir, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}
	// Broken manifest.
	broken := filepath.Join(dir, "broken")
	if err := os.MkdirAll(broken, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(broken, ManifestFile), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Manifest without an executable.
	writeHook(t, dir, Manifest{Name: "noexec"}, "")
	// Stray file at the top level.
	if err := os.WriteFile(filepath.Join(dir, "README"), []byte("hooks"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry(dir, nil)
	if err := r.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if hooks := r.List(); len(hooks) != 1 || hooks[0].Manifest.Name != "good" {
		t.Errorf("List() = %v, want only good", hooks)
	}
}

func TestRegistry_MissingDir(t *testing.T) {
	r := NewRegistry(filepath.Join(t.TempDir(), "nope"), nil)
	if err := r.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(r.List()) != 0 {
		t.Error("expected no hooks")
	}
	if _, err := r.Get("anything"); !errors.Is(err, ErrHookNotFound) {
		t.Errorf("Get() error = %v, want ErrHookNotFound", err)
	}
}
