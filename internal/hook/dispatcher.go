package hook

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ayusman/volverse/internal/events"
)

// Dispatcher is an events.Publisher that runs every subscribed hook in the
// background. Publish never waits for a hook.
type Dispatcher struct {
	registry *Registry
	runner   *Runner
	session  string
	log      *zap.Logger
	wg       sync.WaitGroup
}

// NewDispatcher runs hooks from registry with runner, tagging requests with
// session.
func NewDispatcher(registry *Registry, runner *Runner, session string, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{registry: registry, runner: runner, session: session, log: log}
}

// Publish starts the hooks subscribed to e.Type.
func (d *Dispatcher) Publish(_ context.Context, e events.Event) error {
	for _, h := range d.registry.List() {
		if !h.Handles(e.Type) {
			continue
		}
		req := &Request{Event: e, Session: d.session, Config: h.Manifest.Config}

		d.wg.Add(1)
		go func(h *Hook) {
			defer d.wg.Done()
			// The frame loop's context may end before the hook does.
			if _, err := d.runner.Run(context.Background(), h, req); err != nil {
				d.log.Warn("hook failed", zap.String("hook", h.Manifest.Name), zap.Error(err))
				return
			}
			d.log.Debug("hook ran", zap.String("hook", h.Manifest.Name), zap.String("event", string(e.Type)))
		}(h)
	}
	return nil
}

// Wait blocks until every started hook has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

var _ events.Publisher = (*Dispatcher)(nil)
