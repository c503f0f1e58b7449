package detector

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/volverse/internal/logger"
)

// SegmentScript is the default file name of the selfie segmentation sidecar.
const SegmentScript = "segmentation_service.py"

// SelfieSegmenter implements Segmenter with MediaPipe selfie segmentation
// (landscape model) running in a Python subprocess. The service answers each
// frame with {"width":W,"height":H,"mask":"<base64 8-bit mask>"}.
type SelfieSegmenter struct {
	side *sidecar
}

// NewSelfieSegmenter creates a segmenter whose process starts on first use.
func NewSelfieSegmenter(config Config, log *zap.Logger) (*SelfieSegmenter, error) {
	script, err := resolveScript(config.Script, SegmentScript)
	if err != nil {
		return nil, fmt.Errorf("segmenter: %w", err)
	}
	return &SelfieSegmenter{
		side: newSidecar("segmentation", script, []string{"--model-selection", "1"}, config, logger.OrNop(log)),
	}, nil
}

// Segment returns the person probability mask for frame.
func (s *SelfieSegmenter) Segment(frame *gocv.Mat) (gocv.Mat, error) {
	line, err := s.side.roundTrip(frame)
	if err != nil {
		return gocv.NewMat(), err
	}
	return parseMask(line)
}

// Close shuts down the Python process.
func (s *SelfieSegmenter) Close() error {
	return s.side.close()
}

func parseMask(line []byte) (gocv.Mat, error) {
	var response struct {
		Width  int    `json:"width"`
		Height int    `json:"height"`
		Mask   string `json:"mask"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		return gocv.NewMat(), fmt.Errorf("parse response: %w", err)
	}
	if response.Error != "" {
		return gocv.NewMat(), fmt.Errorf("segmentation service: %s", response.Error)
	}

	data, err := base64.StdEncoding.DecodeString(response.Mask)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("decode mask: %w", err)
	}
	if response.Width <= 0 || response.Height <= 0 || len(data) != response.Width*response.Height {
		return gocv.NewMat(), fmt.Errorf("mask is %d bytes, want %dx%d", len(data), response.Width, response.Height)
	}

	raw, err := gocv.NewMatFromBytes(response.Height, response.Width, gocv.MatTypeCV8UC1, data)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("build mask: %w", err)
	}
	defer raw.Close()

	mask := gocv.NewMat()
	raw.ConvertToWithParams(&mask, gocv.MatTypeCV32F, 1.0/255.0, 0)
	return mask, nil
}

// DiffRange is the grayscale difference at which DifferenceSegmenter
// reports full confidence.
const DiffRange = 50

// ErrNoPlate is returned when a DifferenceSegmenter has no reference frame.
var ErrNoPlate = errors.New("difference segmenter has no background plate")

// DifferenceSegmenter scores pixels by how far they differ from the
// background plate. It needs no model and serves as the fallback when the
// MediaPipe service is unavailable.
type DifferenceSegmenter struct {
	plateGray gocv.Mat
	blurSize  int
}

// NewDifferenceSegmenter keeps a blurred grayscale copy of plate.
func NewDifferenceSegmenter(plate gocv.Mat, blurSize int) *DifferenceSegmenter {
	if blurSize < 1 || blurSize%2 == 0 {
		blurSize = GaussianBlurSize
	}
	s := &DifferenceSegmenter{blurSize: blurSize, plateGray: gocv.NewMat()}
	if !plate.Empty() {
		s.grayBlur(plate, &s.plateGray)
	}
	return s
}

// GaussianBlurSize is the default kernel for difference segmentation.
const GaussianBlurSize = 21

// Segment returns min(|frame-plate| / DiffRange, 1) per pixel.
func (s *DifferenceSegmenter) Segment(frame *gocv.Mat) (gocv.Mat, error) {
	if s.plateGray.Empty() {
		return gocv.NewMat(), ErrNoPlate
	}
	if frame == nil || frame.Empty() {
		return gocv.NewMat(), errors.New("empty frame")
	}

	gray := gocv.NewMat()
	defer gray.Close()
	s.grayBlur(*frame, &gray)

	if gray.Rows() != s.plateGray.Rows() || gray.Cols() != s.plateGray.Cols() {
		return gocv.NewMat(), fmt.Errorf("frame %dx%d does not match plate %dx%d",
			gray.Cols(), gray.Rows(), s.plateGray.Cols(), s.plateGray.Rows())
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(gray, s.plateGray, &diff)

	scaled := gocv.NewMat()
	defer scaled.Close()
	diff.ConvertToWithParams(&scaled, gocv.MatTypeCV32F, 1.0/DiffRange, 0)

	mask := gocv.NewMat()
	gocv.Threshold(scaled, &mask, 1.0, 1.0, gocv.ThresholdTrunc)
	return mask, nil
}

// Close releases the stored plate.
func (s *DifferenceSegmenter) Close() error {
	return s.plateGray.Close()
}

func (s *DifferenceSegmenter) grayBlur(src gocv.Mat, dst *gocv.Mat) {
	gray := gocv.NewMat()
	defer gray.Close()

	if src.Channels() > 1 {
		gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	} else {
		src.CopyTo(&gray)
	}
	gocv.GaussianBlur(gray, dst, image.Point{X: s.blurSize, Y: s.blurSize}, 0, 0, gocv.BorderDefault)
}
