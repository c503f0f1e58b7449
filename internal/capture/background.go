package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// DefaultPlateDelay gives the user time to step out of the frame.
const DefaultPlateDelay = 2 * time.Second

// maxSettleReads bounds how long the plate capture waits for stillness.
const maxSettleReads = 300

// PlateOptions controls background plate capture.
type PlateOptions struct {
	// Delay is how long frames are read and discarded before the plate is
	// taken, which also lets auto exposure settle.
	Delay time.Duration
	// SettleFrames is the number of consecutive still frames required
	// after the delay. Zero takes the first frame after the delay.
	SettleFrames int
	// StillPercent is passed to the MotionMeter.
	StillPercent float64
}

// CaptureBackground reads frames from an open camera for opts.Delay, then
// waits for opts.SettleFrames still frames and returns the last one as the
// background plate. The caller closes the plate.
func CaptureBackground(ctx context.Context, cam Camera, opts PlateOptions, log *zap.Logger) (gocv.Mat, error) {
	if log == nil {
		log = zap.NewNop()
	}

	log.Info("capturing background, step out of the frame", zap.Duration("delay", opts.Delay))

	deadline := time.Now().Add(opts.Delay)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return gocv.NewMat(), err
		}
		frame, err := cam.ReadFrame()
		if err != nil {
			return gocv.NewMat(), fmt.Errorf("warm up: %w", err)
		}
		frame.Close()
	}

	meter := NewMotionMeter(opts.StillPercent)
	defer meter.Close()

	var plate *gocv.Mat
	still := 0
	for reads := 0; ; reads++ {
		if err := ctx.Err(); err != nil {
			closeMat(plate)
			return gocv.NewMat(), err
		}
		if reads >= maxSettleReads {
			closeMat(plate)
			return gocv.NewMat(), errors.New("scene never settled")
		}

		frame, err := cam.ReadFrame()
		if err != nil {
			closeMat(plate)
			return gocv.NewMat(), fmt.Errorf("read plate: %w", err)
		}

		if opts.SettleFrames > 0 && !meter.Still(frame) {
			still = 0
		} else {
			still++
		}
		closeMat(plate)
		plate = frame

		if still >= opts.SettleFrames && still > 0 {
			break
		}
	}

	log.Info("background captured", zap.Int("width", plate.Cols()), zap.Int("height", plate.Rows()))
	return *plate, nil
}

func closeMat(m *gocv.Mat) {
	if m != nil {
		m.Close()
	}
}
