// Package app runs the effect frame loops: it reads the camera, asks the
// detectors about each frame, drives the effect and hands the output to the
// display, the preview stream and the event publishers.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/volverse/internal/capture"
	"github.com/ayusman/volverse/internal/events"
	"github.com/ayusman/volverse/internal/logger"
	"github.com/ayusman/volverse/internal/server"
)

// keyWait is how long each frame waits for a key press.
const keyWait = time.Millisecond

// FrameSink receives every output frame, e.g. the preview stream buffer.
type FrameSink interface {
	Publish(frame gocv.Mat) error
}

// Cue plays the trigger sound without blocking.
type Cue interface {
	Play() bool
}

// status is a Status guarded for readers outside the frame loop.
type status struct {
	mu sync.Mutex
	s  server.Status
}

func (st *status) set(s server.Status) {
	st.mu.Lock()
	st.s = s
	st.mu.Unlock()
}

func (st *status) get() server.Status {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.s
}

// loop holds what both effect loops share.
type loop struct {
	camera  capture.Camera
	display Display
	sink    FrameSink
	events  events.Publisher
	log     *zap.Logger
	now     func() time.Time
	status  status
}

func newLoop(cam capture.Camera, display Display, sink FrameSink, pub events.Publisher, log *zap.Logger, now func() time.Time) loop {
	if display == nil {
		display = NewHeadlessDisplay()
	}
	if pub == nil {
		pub = events.Nop
	}
	if now == nil {
		now = time.Now
	}
	return loop{camera: cam, display: display, sink: sink, events: pub, log: logger.OrNop(log), now: now}
}

// read returns the next frame. ok is false when the loop should end: the
// context is done or the camera has no more frames.
func (l *loop) read(ctx context.Context) (*gocv.Mat, bool) {
	if ctx.Err() != nil {
		return nil, false
	}
	frame, err := l.camera.ReadFrame()
	if err != nil {
		if errors.Is(err, capture.ErrNoFrame) {
			l.log.Info("camera delivered no frame, stopping")
		} else {
			l.log.Warn("camera read failed, stopping", zap.Error(err))
		}
		return nil, false
	}
	return frame, true
}

// emit shows out and feeds the preview stream.
func (l *loop) emit(out gocv.Mat) {
	if err := l.display.Show(out); err != nil {
		l.log.Warn("display failed", zap.Error(err))
	}
	if l.sink != nil {
		if err := l.sink.Publish(out); err != nil {
			l.log.Debug("preview encode failed", zap.Error(err))
		}
	}
}

func (l *loop) publish(ctx context.Context, e events.Event) {
	if err := l.events.Publish(ctx, e); err != nil {
		l.log.Warn("publish event", zap.String("type", string(e.Type)), zap.Error(err))
	}
}

func (l *loop) closeDisplay() {
	if err := l.display.Close(); err != nil {
		l.log.Warn("close display", zap.Error(err))
	}
}

func (l *loop) closeCamera() {
	if err := l.camera.Close(); err != nil {
		l.log.Warn("close camera", zap.Error(err))
	}
}
