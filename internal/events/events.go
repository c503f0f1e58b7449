// Package events carries accepted gesture triggers out of the frame loop.
package events

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Type names an accepted action.
type Type string

const (
	TypeCloakToggle  Type = "cloak_toggle"
	TypeColorSelect  Type = "color_select"
	TypeEraserSelect Type = "eraser_select"
	TypeCanvasClear  Type = "canvas_clear"
	TypeArtworkSaved Type = "artwork_saved"
)

// Event is one accepted trigger.
type Event struct {
	Type       Type      `json:"type"`
	Gesture    string    `json:"gesture,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence float64   `json:"confidence"`
	// Detail is free-form context, such as the phase a toggle entered or
	// the selected color.
	Detail string `json:"detail,omitempty"`
}

// Publisher receives events. Implementations must not block the frame loop
// for long.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, e Event) error

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, e Event) error {
	return f(ctx, e)
}

// LogPublisher writes each event to a logger.
type LogPublisher struct {
	log *zap.Logger
}

// NewLogPublisher returns a publisher that logs at info level.
func NewLogPublisher(log *zap.Logger) *LogPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogPublisher{log: log}
}

// Publish logs e.
func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	p.log.Info("event",
		zap.String("type", string(e.Type)),
		zap.String("gesture", e.Gesture),
		zap.Time("at", e.Timestamp),
		zap.Float64("confidence", e.Confidence),
		zap.String("detail", e.Detail),
	)
	return nil
}

// Multi fans an event out to several publishers.
type Multi []Publisher

// Publish sends e to every publisher, even after one fails, and joins the
// errors.
func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards events.
var Nop Publisher = PublisherFunc(func(context.Context, Event) error { return nil })
