package app

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/volverse/internal/detector"
)

// handConnections are the landmark pairs drawn as bones.
var handConnections = [][2]int{
	{detector.Wrist, detector.ThumbCMC}, {detector.ThumbCMC, detector.ThumbMCP},
	{detector.ThumbMCP, detector.ThumbIP}, {detector.ThumbIP, detector.ThumbTip},
	{detector.Wrist, detector.IndexMCP}, {detector.IndexMCP, detector.IndexPIP},
	{detector.IndexPIP, detector.IndexDIP}, {detector.IndexDIP, detector.IndexTip},
	{detector.IndexMCP, detector.MiddleMCP}, {detector.MiddleMCP, detector.MiddlePIP},
	{detector.MiddlePIP, detector.MiddleDIP}, {detector.MiddleDIP, detector.MiddleTip},
	{detector.MiddleMCP, detector.RingMCP}, {detector.RingMCP, detector.RingPIP},
	{detector.RingPIP, detector.RingDIP}, {detector.RingDIP, detector.RingTip},
	{detector.RingMCP, detector.PinkyMCP}, {detector.Wrist, detector.PinkyMCP},
	{detector.PinkyMCP, detector.PinkyPIP}, {detector.PinkyPIP, detector.PinkyDIP},
	{detector.PinkyDIP, detector.PinkyTip},
}

var (
	boneColor  = color.RGBA{R: 224, G: 224, B: 224}
	jointColor = color.RGBA{R: 255}
)

// DrawHand draws a hand skeleton onto img.
func DrawHand(img *gocv.Mat, hand *detector.HandLandmarks) {
	size := image.Pt(img.Cols(), img.Rows())
	for _, c := range handConnections {
		gocv.Line(img, hand.Pixel(c[0], size), hand.Pixel(c[1], size), boneColor, 2)
	}
	for i := 0; i < detector.NumLandmarks; i++ {
		gocv.Circle(img, hand.Pixel(i, size), 4, jointColor, -1)
	}
}
