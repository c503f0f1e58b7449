package detector

import (
	"time"

	"gocv.io/x/gocv"
)

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Segmenter produces a person mask for a frame.
type Segmenter interface {
	// Segment returns a CV_32FC1 Mat with the per-pixel probability (0..1)
	// that the pixel belongs to a person. The caller closes the result.
	Segment(frame *gocv.Mat) (gocv.Mat, error)

	// Close releases any resources held by the segmenter.
	Close() error
}

// Config holds configuration options for the MediaPipe sidecars.
type Config struct {
	// MaxHands is the maximum number of hands to detect.
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// Python is the interpreter to run; empty searches for a venv, then python3.
	Python string

	// Script overrides the sidecar script path.
	Script string

	// IdleTimeout stops the sidecar after this long without requests. Zero
	// keeps it running until Close.
	IdleTimeout time.Duration
}

// DefaultConfig returns the settings the cloak effect was tuned with:
// one hand at 0.7 confidence.
func DefaultConfig() Config {
	return Config{
		MaxHands:        1,
		MinConfidence:   0.7,
		MinTrackingConf: 0.5,
		IdleTimeout:     30 * time.Second,
	}
}
