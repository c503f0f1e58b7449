// Package composite turns a raw frame, the background plate and a person
// mask into the cloak effect's output frame.
package composite

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/ayusman/volverse/internal/effect"
)

// Defaults for the foreground mask.
const (
	DefaultBlurSize  = 15
	DefaultThreshold = 0.6
)

// ErrSizeMismatch is returned when the plate and frame differ in size or type.
var ErrSizeMismatch = errors.New("plate and frame differ in size or type")

// Compositor builds foreground masks and composes output frames.
type Compositor struct {
	// BlurSize is the odd Gaussian kernel applied to the mask before
	// thresholding, which keeps silhouette edges from looking jagged.
	BlurSize int
	// Threshold is the blurred score above which a pixel is foreground.
	Threshold float64
}

// New returns a Compositor, substituting defaults for invalid parameters.
func New(blurSize int, threshold float64) *Compositor {
	if blurSize < 1 || blurSize%2 == 0 {
		blurSize = DefaultBlurSize
	}
	if threshold <= 0 || threshold >= 1 {
		threshold = DefaultThreshold
	}
	return &Compositor{BlurSize: blurSize, Threshold: threshold}
}

// ForegroundMask blurs the segmentation scores, scales them to size when the
// model answered at a different resolution, and thresholds them into an
// 8-bit mask (255 = person). The caller closes the result.
func (c *Compositor) ForegroundMask(seg gocv.Mat, size image.Point) gocv.Mat {
	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(seg, &blurred, image.Point{X: c.BlurSize, Y: c.BlurSize}, 0, 0, gocv.BorderDefault)

	scores := blurred
	if blurred.Cols() != size.X || blurred.Rows() != size.Y {
		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(blurred, &resized, size, 0, 0, gocv.InterpolationLinear)
		scores = resized
	}

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(scores, &binary, float32(c.Threshold), 255, gocv.ThresholdBinary)

	mask := gocv.NewMat()
	binary.ConvertTo(&mask, gocv.MatTypeCV8U)
	return mask
}

// Substitute returns a copy of frame whose foreground pixels are replaced by
// the plate's. Background pixels are untouched.
func (c *Compositor) Substitute(frame, plate, fg gocv.Mat) (gocv.Mat, error) {
	if err := sameShape(frame, plate); err != nil {
		return gocv.NewMat(), err
	}
	if fg.Rows() != frame.Rows() || fg.Cols() != frame.Cols() {
		return gocv.NewMat(), fmt.Errorf("mask %dx%d for frame %dx%d: %w",
			fg.Cols(), fg.Rows(), frame.Cols(), frame.Rows(), ErrSizeMismatch)
	}

	out := frame.Clone()
	plate.CopyToWithMask(&out, fg)
	return out, nil
}

// Blend returns opacity*sub + (1-opacity)*raw.
func Blend(sub, raw gocv.Mat, opacity float64) gocv.Mat {
	out := gocv.NewMat()
	gocv.AddWeighted(sub, opacity, raw, 1-opacity, 0, &out)
	return out
}

// Render produces the output frame for view. seg is only read when the view
// needs the substituted frame. The caller closes the result.
func (c *Compositor) Render(frame, plate, seg gocv.Mat, view effect.View) (gocv.Mat, error) {
	if !view.NeedsSubstitute() {
		return frame.Clone(), nil
	}
	if seg.Empty() {
		return gocv.NewMat(), errors.New("no segmentation mask")
	}

	fg := c.ForegroundMask(seg, image.Point{X: frame.Cols(), Y: frame.Rows()})
	defer fg.Close()

	sub, err := c.Substitute(frame, plate, fg)
	if err != nil {
		return gocv.NewMat(), err
	}
	if !view.Blend || view.Opacity >= 1 {
		return sub, nil
	}
	defer sub.Close()

	return Blend(sub, frame, view.Opacity), nil
}

func sameShape(frame, plate gocv.Mat) error {
	if frame.Rows() != plate.Rows() || frame.Cols() != plate.Cols() || frame.Type() != plate.Type() {
		return fmt.Errorf("frame %dx%d, plate %dx%d: %w",
			frame.Cols(), frame.Rows(), plate.Cols(), plate.Rows(), ErrSizeMismatch)
	}
	return nil
}
