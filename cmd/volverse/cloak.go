package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ayusman/volverse/internal/app"
	"github.com/ayusman/volverse/internal/capture"
	"github.com/ayusman/volverse/internal/config"
	"github.com/ayusman/volverse/internal/detector"
	"github.com/ayusman/volverse/internal/sound"
	"github.com/ayusman/volverse/internal/store"
)

func newCloakCmd(opts *options) *cobra.Command {
	var (
		segmenter string
		soundPath string
		landmarks bool
	)

	cmd := &cobra.Command{
		Use:   "cloak",
		Short: "Invisibility cloak: show a thumbs up to fade in and out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("segmenter") && !validSegmenter(segmenter) {
				return fmt.Errorf("--segmenter must be %q or %q, got %q",
					config.SegmenterSelfie, config.SegmenterDifference, segmenter)
			}

			s, err := startSession(cmd, opts, store.EffectCloak, "Invisibility Cloak")
			if err != nil {
				return err
			}

			cc := s.cfg.Cloak
			if cmd.Flags().Changed("segmenter") {
				cc.Segmenter = segmenter
			}
			if cmd.Flags().Changed("sound") {
				cc.SoundPath = soundPath
			}

			player := sound.NewPlayer(cc.SoundPath, s.log.Named("sound"))
			cloak := app.NewCloak(app.CloakConfig{
				Camera:     s.camera(),
				Hands:      s.handDetector(detector.DefaultConfig().MinConfidence),
				Segmenter:  s.segmenter(cc.Segmenter),
				Display:    s.display,
				Sound:      player,
				Events:     s.events,
				Metrics:    s.metrics,
				Frames:     s.frames,
				Log:        s.log,
				FadeFrames: cc.FadeFrames,
				Cooldown:   cc.Cooldown,
				BlurSize:   cc.BlurSize,
				Threshold:  cc.MaskThreshold,
				Plate: capture.PlateOptions{
					Delay:        cc.BackgroundDelay,
					SettleFrames: cc.SettleFrames,
					StillPercent: capture.DefaultStillPercent,
				},
				ShowLandmarks: landmarks,
			})

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			s.serve(ctx, cloak.Status)

			err = cloak.Run(ctx)
			stop()
			player.Wait()
			s.close(cloak.Status().Frames)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&segmenter, "segmenter", config.SegmenterSelfie, "person mask source: selfie or difference")
	f.StringVar(&soundPath, "sound", "", "WAV file played on every toggle")
	f.BoolVar(&landmarks, "landmarks", true, "draw the detected hand skeleton")
	return cmd
}

// segmenter returns the MediaPipe selfie segmenter, or nil to let the loop
// diff against the background plate.
func (s *session) segmenter(name string) detector.Segmenter {
	if name != config.SegmenterSelfie {
		s.log.Info("using background difference segmentation")
		return nil
	}
	seg, err := detector.NewSelfieSegmenter(s.segmenterConfig(), s.log.Named("segmenter"))
	if err != nil {
		s.log.Warn("selfie segmentation unavailable, falling back to background difference", zap.Error(err))
		return nil
	}
	return seg
}

// segmenterConfig keeps the segmentation service running for the whole
// session. Segment only runs while fading, so idle periods are normal.
func (s *session) segmenterConfig() detector.Config {
	dc := s.sidecarConfig(s.cfg.Sidecar.SegmentScript)
	dc.IdleTimeout = 0
	return dc
}

func validSegmenter(name string) bool {
	return name == config.SegmenterSelfie || name == config.SegmenterDifference
}
