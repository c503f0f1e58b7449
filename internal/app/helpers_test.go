package app

import (
	"context"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/volverse/internal/events"
	"github.com/ayusman/volverse/internal/store"
	"github.com/ayusman/volverse/testdata"
)

var t0 = time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

// clock returns a Now func that advances step on every call.
func clock(step time.Duration) func() time.Time {
	var mu sync.Mutex
	now := t0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := now
		now = now.Add(step)
		return t
	}
}

type countingCue struct {
	mu    sync.Mutex
	plays int
}

func (c *countingCue) Play() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plays++
	return true
}

func (c *countingCue) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.plays
}

type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func (l *eventLog) Publish(_ context.Context, e events.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

func (l *eventLog) all() []events.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]events.Event(nil), l.events...)
}

type artworkLog struct {
	artworks []*store.Artwork
}

func (r *artworkLog) Create(a *store.Artwork) error {
	r.artworks = append(r.artworks, a)
	return nil
}

type frameCount struct {
	mu sync.Mutex
	n  int
}

func (f *frameCount) Publish(gocv.Mat) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	return nil
}

// recordPixels captures the pixel at (x, y) of every shown frame.
func recordPixels(d *HeadlessDisplay, x, y int) *[][3]uint8 {
	var got [][3]uint8
	d.OnShow = func(frame gocv.Mat) {
		got = append(got, testdata.Pixel(frame, x, y))
	}
	return &got
}
