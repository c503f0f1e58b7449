package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ayusman/volverse/internal/app"
	"github.com/ayusman/volverse/internal/canvas"
	"github.com/ayusman/volverse/internal/store"
)

// canvasMinConfidence is the hand detection threshold the canvas was tuned with.
const canvasMinConfidence = 0.5

func newCanvasCmd(opts *options) *cobra.Command {
	var (
		outDir    string
		landmarks bool
	)

	cmd := &cobra.Command{
		Use:   "canvas",
		Short: "Air canvas: draw with your index finger, press s to save",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := startSession(cmd, opts, store.EffectCanvas, "Air Canvas")
			if err != nil {
				return err
			}

			cc := s.cfg.Canvas
			if cmd.Flags().Changed("out") {
				cc.ArtworkDir = outDir
			}
			if err := os.MkdirAll(cc.ArtworkDir, 0o755); err != nil {
				s.close(0)
				return fmt.Errorf("create artwork dir: %w", err)
			}

			var artworks app.ArtworkRecorder
			if s.store != nil {
				artworks = s.store.Artworks()
			}

			board := app.NewCanvas(app.CanvasConfig{
				Camera:  s.camera(),
				Hands:   s.handDetector(canvasMinConfidence),
				Display: s.display,
				Events:  s.events,
				Metrics: s.metrics,
				Frames:  s.frames,
				Log:     s.log,
				Options: canvas.Options{
					BrushThickness:  cc.BrushThickness,
					EraserThickness: cc.EraserThickness,
					ToolbarCooldown: cc.ToolbarCooldown,
					ClearPause:      cc.ClearPause,
				},
				ArtworkDir:    cc.ArtworkDir,
				Artworks:      artworks,
				SessionID:     s.id,
				ShowLandmarks: landmarks,
			})

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			s.serve(ctx, board.Status)

			err = board.Run(ctx)
			stop()
			s.close(board.Status().Frames)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&outDir, "out", "", "directory for saved artworks")
	f.BoolVar(&landmarks, "landmarks", false, "draw the detected hand skeleton")
	return cmd
}
