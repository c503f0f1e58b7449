package canvas

import (
	"image"
	"image/color"
)

// Toolbar button size in pixels.
const (
	ButtonWidth  = 80
	ButtonHeight = 50
)

// Tool is what a toolbar button does.
type Tool int

const (
	ToolColor Tool = iota
	ToolEraser
	ToolClear
)

// Button is one toolbar cell.
type Button struct {
	Label string
	Tool  Tool
	// Color is the brush color for ToolColor and the fill otherwise.
	Color color.RGBA
	Rect  image.Rectangle
}

// Palette colors. gocv draws color.RGBA as BGR, so these render as named.
var (
	Blue   = color.RGBA{R: 0, G: 0, B: 255}
	Green  = color.RGBA{R: 0, G: 255, B: 0}
	Red    = color.RGBA{R: 255, G: 0, B: 0}
	Yellow = color.RGBA{R: 255, G: 255, B: 0}
	White  = color.RGBA{R: 255, G: 255, B: 255}

	buttonGray = color.RGBA{R: 100, G: 100, B: 100}
)

// Toolbar is the row of buttons along the top edge of the frame.
type Toolbar struct {
	Buttons []Button
}

// DefaultToolbar returns the five colors followed by Eraser and Clear.
func DefaultToolbar() Toolbar {
	palette := []struct {
		label string
		c     color.RGBA
	}{
		{"Blue", Blue},
		{"Green", Green},
		{"Red", Red},
		{"Yellow", Yellow},
		{"White", White},
	}

	var tb Toolbar
	add := func(label string, tool Tool, c color.RGBA) {
		i := len(tb.Buttons)
		tb.Buttons = append(tb.Buttons, Button{
			Label: label,
			Tool:  tool,
			Color: c,
			Rect:  image.Rect(i*ButtonWidth, 0, (i+1)*ButtonWidth, ButtonHeight),
		})
	}
	for _, p := range palette {
		add(p.label, ToolColor, p.c)
	}
	add("Eraser", ToolEraser, buttonGray)
	add("Clear", ToolClear, buttonGray)
	return tb
}

// Height is the bottom edge of the toolbar.
func (t Toolbar) Height() int {
	h := 0
	for _, b := range t.Buttons {
		if b.Rect.Max.Y > h {
			h = b.Rect.Max.Y
		}
	}
	return h
}

// Over reports whether p is in the toolbar band. The band includes its
// bottom edge.
func (t Toolbar) Over(p image.Point) bool {
	return p.Y <= t.Height()
}

// Hit returns the button under p. Button edges belong to no button.
func (t Toolbar) Hit(p image.Point) (Button, bool) {
	if !t.Over(p) {
		return Button{}, false
	}
	for _, b := range t.Buttons {
		if p.X > b.Rect.Min.X && p.X < b.Rect.Max.X {
			return b, true
		}
	}
	return Button{}, false
}
