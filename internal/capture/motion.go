package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Motion measurement constants
const (
	// MotionBlurSize is the Gaussian kernel that suppresses sensor noise.
	MotionBlurSize = 21
	// DiffThreshold is the per-pixel gray difference that counts as change.
	DiffThreshold = 25
	// DefaultStillPercent is the changed-pixel share below which a frame
	// counts as still.
	DefaultStillPercent = 0.5
)

// MotionMeter compares consecutive frames by blurred grayscale
// differencing. The plate capture uses it to wait for an empty, steady
// scene.
type MotionMeter struct {
	stillPercent float64
	prevGray     gocv.Mat
	initialized  bool
	mu           sync.Mutex
}

// NewMotionMeter returns a meter that reports frames whose changed-pixel
// share is at most stillPercent as still. Non-positive values use
// DefaultStillPercent.
func NewMotionMeter(stillPercent float64) *MotionMeter {
	if stillPercent <= 0 {
		stillPercent = DefaultStillPercent
	}
	return &MotionMeter{
		stillPercent: stillPercent,
		prevGray:     gocv.NewMat(),
	}
}

// Measure returns the percentage of pixels that changed since the previous
// frame. The first frame only sets the baseline and reports ok=false.
func (m *MotionMeter) Measure(frame *gocv.Mat) (percent float64, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return 0, false
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: MotionBlurSize, Y: MotionBlurSize}, 0, 0, gocv.BorderDefault)

	if !m.initialized || blurred.Rows() != m.prevGray.Rows() || blurred.Cols() != m.prevGray.Cols() {
		blurred.CopyTo(&m.prevGray)
		m.initialized = true
		return 0, false
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prevGray, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, DiffThreshold, 255, gocv.ThresholdBinary)

	changed := gocv.CountNonZero(thresh)
	total := thresh.Rows() * thresh.Cols()

	blurred.CopyTo(&m.prevGray)

	return float64(changed) / float64(total) * 100.0, true
}

// Still reports whether frame differs from the previous one by at most the
// configured share. The first frame is never still.
func (m *MotionMeter) Still(frame *gocv.Mat) bool {
	percent, ok := m.Measure(frame)
	return ok && percent <= m.stillPercent
}

// Reset drops the baseline so the next frame starts a new comparison.
func (m *MotionMeter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.prevGray.Empty() {
		m.prevGray.Close()
		m.prevGray = gocv.NewMat()
	}
	m.initialized = false
}

// Close releases the baseline frame.
func (m *MotionMeter) Close() {
	m.Reset()
}
