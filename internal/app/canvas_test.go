package app

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/volverse/internal/canvas"
	"github.com/ayusman/volverse/internal/capture"
	"github.com/ayusman/volverse/internal/detector"
	"github.com/ayusman/volverse/internal/events"
)

// canvasCamera yields n black 640x480 frames.
func canvasCamera(t *testing.T, n int) *capture.MockCamera {
	t.Helper()
	black := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer black.Close()
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		f := black.Clone()
		frames[i] = &f
	}
	t.Cleanup(func() {
		for _, f := range frames {
			f.Close()
		}
	})
	return capture.NewMockCamera(frames, false)
}

func index(x, y float64) []detector.HandLandmarks {
	return []detector.HandLandmarks{detector.IndexUpLandmarks(x, y)}
}

func TestCanvas_DrawAndSave(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	hands := detector.NewMockDetector()
	hands.SetSequence([][]detector.HandLandmarks{index(0.5, 0.5), index(0.6, 0.5)})

	display := NewHeadlessDisplay()
	display.QueueKeys(KeyNone, KeySave)
	pixels := recordPixels(display, 350, 240)

	dir := t.TempDir()
	pub := &eventLog{}
	artworks := &artworkLog{}

	c := NewCanvas(CanvasConfig{
		Camera:     canvasCamera(t, 2),
		Hands:      hands,
		Display:    display,
		Events:     pub,
		Now:        clock(time.Second),
		ArtworkDir: dir,
		Artworks:   artworks,
		SessionID:  "session-1",
	})
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := *pixels
	if len(got) != 2 {
		t.Fatalf("shown %d frames, want 2", len(got))
	}
	if red := [3]uint8{0, 0, 255}; got[1] != red {
		t.Errorf("stroke pixel = %v, want red %v", got[1], red)
	}

	if len(artworks.artworks) != 1 {
		t.Fatalf("recorded %d artworks, want 1", len(artworks.artworks))
	}
	a := artworks.artworks[0]
	if a.SessionID != "session-1" || a.Width != 640 || a.Height != 480 {
		t.Errorf("artwork = %+v", a)
	}
	if filepath.Dir(a.Path) != dir {
		t.Errorf("artwork path %q not in %q", a.Path, dir)
	}
	if _, err := os.Stat(a.Path); err != nil {
		t.Errorf("artwork file: %v", err)
	}

	evs := pub.all()
	if len(evs) != 1 || evs[0].Type != events.TypeArtworkSaved || evs[0].Detail != a.Path {
		t.Errorf("events = %+v, want one artwork_saved", evs)
	}
}

func TestCanvas_ToolbarSelect(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	buttons := canvas.DefaultToolbar().Buttons
	center := func(r image.Rectangle) []detector.HandLandmarks {
		return index(float64(r.Min.X+r.Dx()/2)/640, float64(r.Min.Y+r.Dy()/2)/480)
	}

	// Green, then the eraser a second later.
	hands := detector.NewMockDetector()
	hands.SetSequence([][]detector.HandLandmarks{
		center(buttons[1].Rect),
		center(buttons[5].Rect),
	})
	pub := &eventLog{}

	c := NewCanvas(CanvasConfig{
		Camera: canvasCamera(t, 2),
		Hands:  hands,
		Events: pub,
		Now:    clock(time.Second),
	})
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	evs := pub.all()
	if len(evs) != 2 {
		t.Fatalf("got %d events, want 2", len(evs))
	}
	if evs[0].Type != events.TypeColorSelect || evs[0].Detail != "Green" {
		t.Errorf("first event = %+v, want Green selected", evs[0])
	}
	if evs[1].Type != events.TypeEraserSelect {
		t.Errorf("second event = %+v, want eraser selected", evs[1])
	}

	st := c.Status()
	if st.Effect != EffectCanvas || st.Phase != "erase" || st.Detail != "Eraser" || st.Frames != 2 {
		t.Errorf("Status() = %+v", st)
	}
	if !st.LastGesture.Equal(t0.Add(time.Second)) {
		t.Errorf("LastGesture = %v, want %v", st.LastGesture, t0.Add(time.Second))
	}
}

func TestCanvas_NoFrames(t *testing.T) {
	display := NewHeadlessDisplay()
	c := NewCanvas(CanvasConfig{
		Camera:  capture.NewMockCamera(nil, false),
		Hands:   detector.NewMockDetector(),
		Display: display,
	})
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if display.Shown() != 0 || !display.Closed() {
		t.Errorf("Shown() = %d, Closed() = %v", display.Shown(), display.Closed())
	}
}
