package detector

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"os/exec"
	"testing"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// TestSidecarHelperProcess is not a real test: it plays the Python service
// when re-executed by helperSidecar.
func TestSidecarHelperProcess(t *testing.T) {
	if os.Getenv("VOLVERSE_WANT_HELPER_PROCESS") != "1" {
		return
	}

	in := bufio.NewReader(os.Stdin)
	header := make([]byte, 4)
	for {
		if _, err := io.ReadFull(in, header); err != nil {
			os.Exit(0)
		}
		n := binary.BigEndian.Uint32(header)
		if _, err := io.CopyN(io.Discard, in, int64(n)); err != nil {
			os.Exit(1)
		}
		fmt.Printf(`{"hands":[{"points":%s,"handedness":"Right","score":%d}]}`+"\n",
			jsonPoints(NumLandmarks, `{"x":0.5,"y":0.5,"z":0}`), n)
	}
}

func helperSidecar(t *testing.T) *sidecar {
	t.Helper()
	return &sidecar{
		name: "helper",
		newCmd: func() *exec.Cmd {
			cmd := exec.Command(os.Args[0], "-test.run=TestSidecarHelperProcess")
			cmd.Env = append(os.Environ(), "VOLVERSE_WANT_HELPER_PROCESS=1")
			return cmd
		},
		log: zap.NewNop(),
	}
}

func TestSidecar_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping subprocess test")
	}

	side := helperSidecar(t)
	d := &MediaPipeDetector{side: side}
	defer d.Close()

	frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()

	for i := 0; i < 3; i++ {
		hands, err := d.Detect(&frame)
		if err != nil {
			t.Fatalf("Detect() call %d error = %v", i, err)
		}
		if len(hands) != 1 {
			t.Fatalf("got %d hands, want 1", len(hands))
		}
		if hands[0].Score <= 0 {
			t.Errorf("score = %f, want encoded JPEG length", hands[0].Score)
		}
	}

	if err := d.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if side.started {
		t.Error("sidecar should be stopped after Close")
	}

	// A closed sidecar restarts on demand.
	if _, err := d.Detect(&frame); err != nil {
		t.Errorf("Detect() after Close error = %v", err)
	}
}

func TestSidecar_IdleShutdown(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping subprocess test")
	}

	frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()

	running := func(s *sidecar) bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.started
	}

	tests := []struct {
		name string
		idle time.Duration
		want bool
	}{
		{name: "stops after idle timeout", idle: 50 * time.Millisecond, want: false},
		{name: "zero timeout keeps running", idle: 0, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			side := helperSidecar(t)
			side.idle = tt.idle
			defer side.close()

			if _, err := side.roundTrip(&frame); err != nil {
				t.Fatalf("roundTrip() error = %v", err)
			}
			time.Sleep(300 * time.Millisecond)

			if got := running(side); got != tt.want {
				t.Errorf("running after idle = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSidecar_StartFailure(t *testing.T) {
	side := &sidecar{
		name: "missing",
		newCmd: func() *exec.Cmd {
			return exec.Command("/nonexistent/volverse-python")
		},
		log: zap.NewNop(),
	}

	frame := gocv.NewMatWithSize(8, 8, gocv.MatTypeCV8UC3)
	defer frame.Close()

	if _, err := side.roundTrip(&frame); err == nil {
		t.Error("expected error when the interpreter cannot start")
	}
}

func TestResolveScript(t *testing.T) {
	t.Run("configured path must exist", func(t *testing.T) {
		if _, err := resolveScript("/nonexistent/hands.py", HandsScript); err == nil {
			t.Error("expected error for missing configured script")
		}
	})

	t.Run("configured path is used as is", func(t *testing.T) {
		path := t.TempDir() + "/hands.py"
		if err := os.WriteFile(path, []byte("print()"), 0644); err != nil {
			t.Fatal(err)
		}
		got, err := resolveScript(path, HandsScript)
		if err != nil {
			t.Fatalf("resolveScript() error = %v", err)
		}
		if got != path {
			t.Errorf("resolveScript() = %q, want %q", got, path)
		}
	})

	t.Run("new detector fails without script", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Script = "/nonexistent/hands.py"
		if _, err := NewMediaPipeDetector(cfg, nil); err == nil {
			t.Error("expected error")
		}
	})
}
