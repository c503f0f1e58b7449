package detector

import (
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/volverse/internal/logger"
)

// HandsScript is the default file name of the hand landmark sidecar.
const HandsScript = "hands_service.py"

// MediaPipeDetector implements Detector using a Python MediaPipe subprocess.
type MediaPipeDetector struct {
	config Config
	side   *sidecar
}

// NewMediaPipeDetector creates a new MediaPipe detector.
// The Python process is started lazily on first detection.
func NewMediaPipeDetector(config Config, log *zap.Logger) (*MediaPipeDetector, error) {
	script, err := resolveScript(config.Script, HandsScript)
	if err != nil {
		return nil, fmt.Errorf("hand detector: %w", err)
	}

	args := []string{
		"--max-hands", strconv.Itoa(config.MaxHands),
		"--min-detection-confidence", strconv.FormatFloat(config.MinConfidence, 'f', -1, 64),
		"--min-tracking-confidence", strconv.FormatFloat(config.MinTrackingConf, 'f', -1, 64),
	}

	return &MediaPipeDetector{
		config: config,
		side:   newSidecar("hands", script, args, config, logger.OrNop(log)),
	}, nil
}

// Detect analyzes a frame and returns detected hand landmarks.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	line, err := d.side.roundTrip(frame)
	if err != nil {
		return nil, err
	}
	return parseHands(line)
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	return d.side.close()
}

func parseHands(line []byte) ([]HandLandmarks, error) {
	var response struct {
		Hands []jsonHand `json:"hands"`
		Error string     `json:"error"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if response.Error != "" {
		return nil, fmt.Errorf("hands service: %s", response.Error)
	}

	result := make([]HandLandmarks, len(response.Hands))
	for i, h := range response.Hands {
		if len(h.Points) != NumLandmarks {
			return nil, fmt.Errorf("hand %d has %d landmarks, want %d", i, len(h.Points), NumLandmarks)
		}
		result[i] = h.toHandLandmarks()
	}
	return result, nil
}

// jsonHand represents the JSON structure from the Python service.
type jsonHand struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness"`
	Score      float64   `json:"score"`
}

func (h jsonHand) toHandLandmarks() HandLandmarks {
	lm := HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}
	copy(lm.Points[:], h.Points)
	return lm
}
