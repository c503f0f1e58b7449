package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/volverse/internal/capture"
	"github.com/ayusman/volverse/internal/composite"
	"github.com/ayusman/volverse/internal/detector"
	"github.com/ayusman/volverse/internal/effect"
	"github.com/ayusman/volverse/internal/events"
	"github.com/ayusman/volverse/internal/gesture"
	"github.com/ayusman/volverse/internal/metrics"
	"github.com/ayusman/volverse/internal/server"
)

// EffectCloak is the Status.Effect of the invisibility loop.
const EffectCloak = "cloak"

// CloakConfig wires the invisibility effect. Camera and Hands are required;
// every other collaborator may be nil.
type CloakConfig struct {
	Camera capture.Camera
	Hands  detector.Detector
	// Segmenter scores person pixels. Nil segments by difference against
	// the background plate.
	Segmenter detector.Segmenter
	Display   Display
	Sound     Cue
	Events    events.Publisher
	Metrics   *metrics.Metrics
	Frames    FrameSink
	Log       *zap.Logger
	// Now is the gesture clock. Defaults to time.Now.
	Now func() time.Time

	FadeFrames    int
	Cooldown      time.Duration
	BlurSize      int
	Threshold     float64
	Plate         capture.PlateOptions
	ShowLandmarks bool
}

// Cloak is the invisibility loop. Run it once.
type Cloak struct {
	loop
	hands         detector.Detector
	segmenter     detector.Segmenter
	sound         Cue
	metrics       *metrics.Metrics
	machine       effect.Machine
	compositor    *composite.Compositor
	plateOpts     capture.PlateOptions
	showLandmarks bool

	state effect.State
	count int
}

// NewCloak builds the loop from cfg.
func NewCloak(cfg CloakConfig) *Cloak {
	return &Cloak{
		loop:          newLoop(cfg.Camera, cfg.Display, cfg.Frames, cfg.Events, cfg.Log, cfg.Now),
		hands:         cfg.Hands,
		segmenter:     cfg.Segmenter,
		sound:         cfg.Sound,
		metrics:       cfg.Metrics,
		machine:       effect.NewMachine(cfg.FadeFrames, cfg.Cooldown),
		compositor:    composite.New(cfg.BlurSize, cfg.Threshold),
		plateOpts:     cfg.Plate,
		showLandmarks: cfg.ShowLandmarks,
	}
}

// Status returns the latest frame's snapshot. Safe for concurrent use.
func (c *Cloak) Status() server.Status {
	return c.status.get()
}

// Run opens the camera, captures the background plate, segments the plate
// once so the segmenter is loaded, and processes frames until ctx is done, the camera runs dry or the user quits. The camera,
// detectors and display are closed on return, whatever the outcome. Only
// startup failures are returned.
func (c *Cloak) Run(ctx context.Context) error {
	defer c.closeDisplay()
	defer c.closeDetectors()

	if err := c.camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	defer c.closeCamera()

	plate, err := capture.CaptureBackground(ctx, c.camera, c.plateOpts, c.log)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("capture background: %w", err)
	}
	defer plate.Close()

	seg := c.segmenter
	if seg != nil {
		if err := warmUp(seg, &plate); err != nil {
			c.log.Warn("segmenter unavailable, using background difference", zap.Error(err))
			c.metrics.FrameError("segment")
			seg = nil
		}
	}
	if seg == nil {
		diff := detector.NewDifferenceSegmenter(plate, 0)
		defer diff.Close()
		seg = diff
	}

	c.log.Info("cloak ready, show a thumbs up to toggle")
	c.status.set(c.snapshot(effect.View{Phase: c.state.Phase()}))

	for {
		frame, ok := c.read(ctx)
		if !ok {
			return nil
		}
		c.process(ctx, frame, plate, seg)
		frame.Close()

		if isQuit(c.display.Key(keyWait)) {
			c.log.Info("quit requested")
			return nil
		}
	}
}

// process runs one frame through detection, the fade machine and the
// compositor and emits the result.
func (c *Cloak) process(ctx context.Context, frame *gocv.Mat, plate gocv.Mat, seg detector.Segmenter) {
	start := time.Now()
	now := c.now()

	hands, err := c.hands.Detect(frame)
	if err != nil {
		c.log.Warn("hand detection failed", zap.Error(err))
		c.metrics.FrameError("detect")
		hands = nil
	}

	det, detected := gesture.FindThumbsUp(hands)
	if detected {
		c.metrics.Gesture(string(det.Type))
	}

	var view effect.View
	var triggered bool
	c.state, view, triggered = c.machine.Step(c.state, detected, now)
	if detected {
		c.metrics.Trigger(triggered)
	}
	if triggered {
		c.log.Info("cloak toggled", zap.Stringer("phase", view.Phase), zap.Float64("score", det.Score))
		if c.sound != nil {
			c.sound.Play()
		}
		c.publish(ctx, events.Event{
			Type:       events.TypeCloakToggle,
			Gesture:    string(det.Type),
			Timestamp:  now,
			Confidence: det.Score,
			Detail:     view.Phase.String(),
		})
	}

	mask := gocv.NewMat()
	if view.NeedsSubstitute() {
		m, err := seg.Segment(frame)
		if err != nil {
			m.Close()
			c.log.Warn("segmentation failed, showing raw frame", zap.Error(err))
			c.metrics.FrameError("segment")
			view = effect.View{Phase: view.Phase}
		} else {
			mask.Close()
			mask = m
		}
	}
	defer mask.Close()

	out, err := c.compositor.Render(*frame, plate, mask, view)
	if err != nil {
		out.Close()
		c.log.Warn("composite failed, showing raw frame", zap.Error(err))
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
	c.metrics.Effect(int(view.Phase), view.Opacity)
	c.status.set(c.snapshot(view))
}

func (c *Cloak) snapshot(view effect.View) server.Status {
	return server.Status{
		Effect:      EffectCloak,
		Phase:       view.Phase.String(),
		Mode:        c.state.Mode.String(),
		Opacity:     view.Opacity,
		Frames:      c.count,
		LastGesture: c.state.LastGesture,
	}
}

// warmUp runs one mask so a model service is loaded before the first fade
// needs it.
func warmUp(seg detector.Segmenter, plate *gocv.Mat) error {
	mask, err := seg.Segment(plate)
	mask.Close()
	return err
}

func (c *Cloak) closeDetectors() {
	if c.hands != nil {
		if err := c.hands.Close(); err != nil {
			c.log.Warn("close hand detector", zap.Error(err))
		}
	}
	if c.segmenter != nil {
		if err := c.segmenter.Close(); err != nil {
			c.log.Warn("close segmenter", zap.Error(err))
		}
	}
}
