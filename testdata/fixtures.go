// Package testdata builds synthetic frames for tests that need pixels but
// not a camera.
package testdata

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Frame dimensions used by the fixtures.
const (
	Width  = 160
	Height = 120
)

// Colors used by the fixtures.
var (
	Wall   = color.RGBA{R: 40, G: 90, B: 160, A: 0}
	Person = color.RGBA{R: 220, G: 180, B: 140, A: 0}
)

// PersonRect is where PersonFrame draws the person.
var PersonRect = image.Rect(60, 30, 100, 120)

// SolidFrame returns a BGR frame filled with c.
func SolidFrame(c color.RGBA) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(scalar(c), Height, Width, gocv.MatTypeCV8UC3)
}

// PlateFrame returns the empty scene.
func PlateFrame() gocv.Mat {
	return SolidFrame(Wall)
}

// PersonFrame returns the scene with a person-colored block in PersonRect.
func PersonFrame() gocv.Mat {
	m := SolidFrame(Wall)
	gocv.Rectangle(&m, PersonRect, Person, -1)
	return m
}

// Sequence returns n clones of frame. The caller closes them.
func Sequence(frame gocv.Mat, n int) []*gocv.Mat {
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		f := frame.Clone()
		frames[i] = &f
	}
	return frames
}

// CloseAll closes every frame.
func CloseAll(frames []*gocv.Mat) {
	for _, f := range frames {
		f.Close()
	}
}

// Pixel returns the BGR triple at (x, y).
func Pixel(m gocv.Mat, x, y int) [3]uint8 {
	v := m.GetVecbAt(y, x)
	return [3]uint8{v[0], v[1], v[2]}
}

// BGR returns the triple c is stored as.
func BGR(c color.RGBA) [3]uint8 {
	return [3]uint8{c.B, c.G, c.R}
}

func scalar(c color.RGBA) gocv.Scalar {
	return gocv.NewScalar(float64(c.B), float64(c.G), float64(c.R), 0)
}
