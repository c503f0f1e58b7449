package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ayusman/volverse/internal/app"
	"github.com/ayusman/volverse/internal/capture"
	"github.com/ayusman/volverse/internal/config"
	"github.com/ayusman/volverse/internal/detector"
	"github.com/ayusman/volverse/internal/events"
	"github.com/ayusman/volverse/internal/hook"
	"github.com/ayusman/volverse/internal/logger"
	"github.com/ayusman/volverse/internal/metrics"
	"github.com/ayusman/volverse/internal/server"
	"github.com/ayusman/volverse/internal/store"
)

// loadConfig reads the config file and environment, then applies the flags
// the user actually set.
func loadConfig(cmd *cobra.Command, opts *options) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("listen") {
		cfg.Listen = opts.listen
	}
	if flags.Changed("db") {
		cfg.DBPath = opts.db
	}
	if flags.Changed("hooks") {
		cfg.HooksDir = opts.hooks
	}
	if opts.debug {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// session holds the services around one effect run.
type session struct {
	cfg     config.Config
	log     *zap.Logger
	metrics *metrics.Metrics
	hub     *server.EventHub
	frames  *server.FrameBuffer
	store   *store.Store
	id      string
	hooks   *hook.Dispatcher
	events  events.Publisher
	display app.Display
}

// startSession builds the logger, opens the store and records the session
// start. The caller closes the session.
func startSession(cmd *cobra.Command, opts *options, effect store.Effect, title string) (*session, error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Debug, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	log = log.With(zap.String("effect", string(effect)))

	s := &session{
		cfg:     cfg,
		log:     log,
		metrics: metrics.New(),
		hub:     server.NewEventHub(log.Named("ws")),
		frames:  server.NewFrameBuffer(),
	}
	pubs := events.Multi{events.NewLogPublisher(log), s.hub}

	if cfg.DBPath != "" {
		st, err := store.New(cfg.DBPath)
		if err != nil {
			log.Sync()
			return nil, fmt.Errorf("open store: %w", err)
		}
		rec, err := st.Sessions().Start(effect)
		if err != nil {
			st.Close()
			log.Sync()
			return nil, fmt.Errorf("start session: %w", err)
		}
		s.store = st
		s.id = rec.ID
		pubs = append(pubs, st.Events().Publisher(rec.ID))
		log.Info("recording session", zap.String("db", cfg.DBPath), zap.String("session", rec.ID))
	}
	if cfg.HooksDir != "" {
		registry := hook.NewRegistry(cfg.HooksDir, log.Named("hooks"))
		if err := registry.Discover(); err != nil {
			s.close(0)
			return nil, fmt.Errorf("load hooks: %w", err)
		}
		log.Info("hooks loaded", zap.String("dir", cfg.HooksDir), zap.Int("count", len(registry.List())))
		s.hooks = hook.NewDispatcher(registry, hook.NewRunner(hook.DefaultTimeout), s.id, log.Named("hooks"))
		pubs = append(pubs, s.hooks)
	}
	s.events = pubs

	if opts.headless {
		s.display = app.NewHeadlessDisplay()
	} else {
		s.display = app.NewWindowDisplay(title)
	}
	return s, nil
}

// serve runs the HTTP server until ctx is done when an address is set.
func (s *session) serve(ctx context.Context, status server.StatusFunc) {
	if s.cfg.Listen == "" {
		return
	}
	srv := server.New(server.Config{
		Status:  status,
		Frames:  s.frames,
		Events:  s.hub,
		Metrics: s.metrics,
		Store:   s.store,
		Log:     s.log.Named("http"),
	})
	go func() {
		if err := srv.Run(ctx, s.cfg.Listen); err != nil {
			s.log.Error("http server stopped", zap.Error(err))
		}
	}()
}

// close waits for running hooks, records the session end and releases the
// store and logger.
func (s *session) close(frames int) {
	if s.hooks != nil {
		s.hooks.Wait()
	}
	if s.store != nil {
		if err := s.store.Sessions().End(s.id, frames); err != nil {
			s.log.Warn("end session", zap.Error(err))
		}
		if err := s.store.Close(); err != nil {
			s.log.Warn("close store", zap.Error(err))
		}
	}
	s.log.Info("session ended", zap.Int("frames", frames))
	s.log.Sync()
}

func (s *session) camera() capture.Camera {
	c := s.cfg.Camera
	return capture.NewCamera(capture.Options{
		DeviceID: c.DeviceID,
		Width:    c.Width,
		Height:   c.Height,
		FPS:      c.FPS,
		Mirror:   c.Mirror,
	})
}

// handDetector starts the MediaPipe sidecar, or falls back to a detector
// that never sees a hand when the service is missing.
func (s *session) handDetector(minConfidence float64) detector.Detector {
	dc := s.sidecarConfig(s.cfg.Sidecar.HandsScript)
	dc.MinConfidence = minConfidence

	d, err := detector.NewMediaPipeDetector(dc, s.log.Named("hands"))
	if err != nil {
		s.log.Warn("MediaPipe hand detection unavailable, gestures are disabled", zap.Error(err))
		return detector.NewMockDetector()
	}
	return d
}

func (s *session) sidecarConfig(script string) detector.Config {
	dc := detector.DefaultConfig()
	dc.Python = s.cfg.Sidecar.Python
	dc.Script = script
	if s.cfg.Sidecar.IdleTimeout > 0 {
		dc.IdleTimeout = s.cfg.Sidecar.IdleTimeout
	}
	return dc
}

// signalContext is cancelled on Ctrl-C or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
