package app

import (
	"context"
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/volverse/internal/canvas"
	"github.com/ayusman/volverse/internal/capture"
	"github.com/ayusman/volverse/internal/detector"
	"github.com/ayusman/volverse/internal/events"
	"github.com/ayusman/volverse/internal/metrics"
	"github.com/ayusman/volverse/internal/server"
	"github.com/ayusman/volverse/internal/store"
)

// EffectCanvas is the Status.Effect of the air canvas loop.
const EffectCanvas = "canvas"

// ArtworkRecorder records saved drawings.
type ArtworkRecorder interface {
	Create(a *store.Artwork) error
}

// CanvasConfig wires the air canvas. Camera and Hands are required.
type CanvasConfig struct {
	Camera  capture.Camera
	Hands   detector.Detector
	Display Display
	Events  events.Publisher
	Metrics *metrics.Metrics
	Frames  FrameSink
	Log     *zap.Logger
	Now     func() time.Time

	Options canvas.Options
	// ArtworkDir receives drawings saved with the s key.
	ArtworkDir string
	// Artworks, when set, records each saved drawing under SessionID.
	Artworks      ArtworkRecorder
	SessionID     string
	ShowLandmarks bool
}

// Canvas is the air canvas loop. Run it once.
type Canvas struct {
	loop
	hands         detector.Detector
	metrics       *metrics.Metrics
	opts          canvas.Options
	dir           string
	artworks      ArtworkRecorder
	sessionID     string
	showLandmarks bool

	board       *canvas.Canvas
	count       int
	lastGesture time.Time
}

// NewCanvas builds the loop from cfg.
func NewCanvas(cfg CanvasConfig) *Canvas {
	dir := cfg.ArtworkDir
	if dir == "" {
		dir = "."
	}
	return &Canvas{
		loop:          newLoop(cfg.Camera, cfg.Display, cfg.Frames, cfg.Events, cfg.Log, cfg.Now),
		hands:         cfg.Hands,
		metrics:       cfg.Metrics,
		opts:          cfg.Options,
		dir:           dir,
		artworks:      cfg.Artworks,
		sessionID:     cfg.SessionID,
		showLandmarks: cfg.ShowLandmarks,
	}
}

// Status returns the latest frame's snapshot. Safe for concurrent use.
func (c *Canvas) Status() server.Status {
	return c.status.get()
}

// Run opens the camera, sizes the drawing to its first frame and processes
// frames until ctx is done, the camera runs dry or the user quits. The s
// key saves the drawing. Only startup failures are returned.
func (c *Canvas) Run(ctx context.Context) error {
	defer c.closeDisplay()
	defer c.closeHands()

	if err := c.camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	defer c.closeCamera()

	frame, ok := c.read(ctx)
	if !ok {
		return nil
	}
	c.board = canvas.New(image.Pt(frame.Cols(), frame.Rows()), c.opts)
	defer c.board.Close()

	c.log.Info("canvas ready, raise your index finger to draw")

	for {
		c.process(ctx, frame)
		frame.Close()

		switch key := c.display.Key(keyWait); {
		case isQuit(key):
			c.log.Info("quit requested")
			return nil
		case key == KeySave:
			c.save(ctx)
		}

		if frame, ok = c.read(ctx); !ok {
			return nil
		}
	}
}

func (c *Canvas) process(ctx context.Context, frame *gocv.Mat) {
	start := time.Now()
	now := c.now()

	hands, err := c.hands.Detect(frame)
	if err != nil {
		c.log.Warn("hand detection failed", zap.Error(err))
		c.metrics.FrameError("detect")
		hands = nil
	}

	for _, e := range c.board.Update(hands, now) {
		c.metrics.Gesture(e.Gesture)
		c.metrics.Trigger(true)
		c.lastGesture = now
		c.log.Debug("canvas action", zap.String("type", string(e.Type)), zap.String("detail", e.Detail))
		c.publish(ctx, e)
	}

	out, err := c.board.Compose(*frame, now)
	if err != nil {
		out.Close()
		c.log.Warn("compose failed, showing raw frame", zap.Error(err))
		c.metrics.FrameError("composite")
		out = frame.Clone()
	}
	defer out.Close()

	if c.showLandmarks {
		for i := range hands {
			DrawHand(&out, &hands[i])
		}
	}

	c.emit(out)
	c.count++
	c.metrics.Frame(time.Since(start))

	phase := "draw"
	if c.board.Erasing() {
		phase = "erase"
	}
	c.status.set(server.Status{
		Effect:      EffectCanvas,
		Phase:       phase,
		Frames:      c.count,
		LastGesture: c.lastGesture,
		Detail:      c.board.Tool(),
	})
}

// save writes the drawing, records it and announces it. Failures are
// logged; the loop keeps running.
func (c *Canvas) save(ctx context.Context) {
	now := c.now()
	path, err := c.board.Save(c.dir, now)
	if err != nil {
		c.log.Error("save artwork", zap.Error(err))
		c.metrics.FrameError("save")
		return
	}
	c.log.Info("artwork saved", zap.String("path", path))

	if c.artworks != nil {
		overlay := c.board.Overlay()
		a := &store.Artwork{
			SessionID: c.sessionID,
			Path:      path,
			Width:     overlay.Cols(),
			Height:    overlay.Rows(),
		}
		if err := c.artworks.Create(a); err != nil {
			c.log.Warn("record artwork", zap.Error(err))
		}
	}

	c.publish(ctx, events.Event{
		Type:      events.TypeArtworkSaved,
		Timestamp: now,
		Detail:    path,
	})
}

func (c *Canvas) closeHands() {
	if c.hands == nil {
		return
	}
	if err := c.hands.Close(); err != nil {
		c.log.Warn("close hand detector", zap.Error(err))
	}
}
