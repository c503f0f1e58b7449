// Package gesture classifies hand poses and rate-limits the triggers they fire.
package gesture

import (
	"math"

	"github.com/ayusman/volverse/internal/detector"
)

// Type names a recognized pose.
type Type string

const (
	TypeThumbsUp Type = "thumbs_up"
	TypeIndexUp  Type = "index_up"
	TypeOpenPalm Type = "open_palm"
)

// curled reports whether a finger tip sits below its base joint.
// Image Y grows downwards.
func curled(h *detector.HandLandmarks, tip, base int) bool {
	return h.Points[tip].Y > h.Points[base].Y
}

// extended reports whether a finger tip sits above its base joint.
func extended(h *detector.HandLandmarks, tip, base int) bool {
	return h.Points[tip].Y < h.Points[base].Y
}

// IsThumbsUp reports a raised thumb over curled middle, ring and pinky
// fingers. The thumb only has to be above the index tip; the index itself
// is not required to curl.
func IsThumbsUp(h *detector.HandLandmarks) bool {
	if h == nil {
		return false
	}
	return h.Points[detector.ThumbTip].Y < h.Points[detector.IndexTip].Y &&
		curled(h, detector.MiddleTip, detector.MiddleMCP) &&
		curled(h, detector.RingTip, detector.RingMCP) &&
		curled(h, detector.PinkyTip, detector.PinkyMCP)
}

// IsIndexUp reports a pointing hand: index extended, middle, ring and
// pinky curled.
func IsIndexUp(h *detector.HandLandmarks) bool {
	if h == nil {
		return false
	}
	return extended(h, detector.IndexTip, detector.IndexMCP) &&
		curled(h, detector.MiddleTip, detector.MiddleMCP) &&
		curled(h, detector.RingTip, detector.RingMCP) &&
		curled(h, detector.PinkyTip, detector.PinkyMCP)
}

// OpenPalmThumbSpread is the minimum horizontal thumb spread, in normalized
// units, for an open palm.
const OpenPalmThumbSpread = 0.1

// IsOpenPalm reports all four fingers extended with the thumb spread out.
func IsOpenPalm(h *detector.HandLandmarks) bool {
	if h == nil {
		return false
	}
	return extended(h, detector.IndexTip, detector.IndexMCP) &&
		extended(h, detector.MiddleTip, detector.MiddleMCP) &&
		extended(h, detector.RingTip, detector.RingMCP) &&
		extended(h, detector.PinkyTip, detector.PinkyMCP) &&
		math.Abs(h.Points[detector.ThumbTip].X-h.Points[detector.ThumbMCP].X) > OpenPalmThumbSpread
}

// Detection is the first hand in a frame matching a pose.
type Detection struct {
	Type  Type
	Hand  *detector.HandLandmarks
	Score float64
}

// Find returns the first hand matching match. With no hands, or no match,
// ok is false.
func Find(hands []detector.HandLandmarks, t Type, match func(*detector.HandLandmarks) bool) (Detection, bool) {
	for i := range hands {
		if match(&hands[i]) {
			return Detection{Type: t, Hand: &hands[i], Score: hands[i].Score}, true
		}
	}
	return Detection{}, false
}

// FindThumbsUp is Find for the cloak trigger.
func FindThumbsUp(hands []detector.HandLandmarks) (Detection, bool) {
	return Find(hands, TypeThumbsUp, IsThumbsUp)
}
