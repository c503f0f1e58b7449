// Package canvas implements the air canvas: the index finger paints on an
// overlay, a toolbar along the top edge picks colors, the eraser or clear,
// and an open palm wipes the drawing.
package canvas

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/volverse/internal/detector"
	"github.com/ayusman/volverse/internal/events"
	"github.com/ayusman/volverse/internal/gesture"
)

// Defaults for Options.
const (
	DefaultBrushThickness  = 10
	DefaultEraserThickness = 50
	DefaultToolbarCooldown = 500 * time.Millisecond
	DefaultClearPause      = time.Second
)

var (
	pointerColor = color.RGBA{R: 0, G: 255, B: 255}
	textWhite    = color.RGBA{R: 255, G: 255, B: 255}
	textBlack    = color.RGBA{}
	erase        = color.RGBA{}
)

// Options configures a Canvas.
type Options struct {
	BrushThickness  int
	EraserThickness int
	// ToolbarCooldown rate-limits toolbar presses.
	ToolbarCooldown time.Duration
	// ClearPause is how long hand input is ignored, and the banner shown,
	// after an open palm clears the canvas.
	ClearPause time.Duration
}

func (o Options) withDefaults() Options {
	if o.BrushThickness <= 0 {
		o.BrushThickness = DefaultBrushThickness
	}
	if o.EraserThickness <= 0 {
		o.EraserThickness = DefaultEraserThickness
	}
	if o.ToolbarCooldown < 0 {
		o.ToolbarCooldown = DefaultToolbarCooldown
	}
	if o.ClearPause < 0 {
		o.ClearPause = DefaultClearPause
	}
	return o
}

// Canvas holds the drawing overlay and the pen state. It is owned by one
// frame loop and is not safe for concurrent use.
type Canvas struct {
	opts        Options
	size        image.Point
	toolbar     Toolbar
	toolbarGate *gesture.Limiter

	overlay    gocv.Mat
	brush      color.RGBA
	brushLabel string
	erasing    bool

	prev    image.Point
	hasPrev bool

	pointers    []image.Point
	pausedUntil time.Time
	bannerUntil time.Time
}

// New returns an empty canvas for frames of the given size, drawing in red.
func New(size image.Point, opts Options) *Canvas {
	opts = opts.withDefaults()
	return &Canvas{
		opts:        opts,
		size:        size,
		toolbar:     DefaultToolbar(),
		toolbarGate: gesture.NewLimiter(opts.ToolbarCooldown),
		overlay:     gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), size.Y, size.X, gocv.MatTypeCV8UC3),
		brush:       Red,
		brushLabel:  "Red",
	}
}

// Close releases the overlay.
func (c *Canvas) Close() error {
	return c.overlay.Close()
}

// Brush returns the current brush color.
func (c *Canvas) Brush() color.RGBA { return c.brush }

// Tool returns the label of the active tool: a color name or "Eraser".
func (c *Canvas) Tool() string {
	if c.erasing {
		return "Eraser"
	}
	return c.brushLabel
}

// Erasing reports whether the eraser is selected.
func (c *Canvas) Erasing() bool { return c.erasing }

// Overlay returns the drawing. It stays owned by the canvas.
func (c *Canvas) Overlay() gocv.Mat { return c.overlay }

// Toolbar returns the button layout.
func (c *Canvas) Toolbar() Toolbar { return c.toolbar }

// Clear wipes the drawing and lifts the pen.
func (c *Canvas) Clear() {
	c.overlay.SetTo(gocv.NewScalar(0, 0, 0, 0))
	c.hasPrev = false
}

// Update applies one frame of hand landmarks and returns the actions it
// triggered.
func (c *Canvas) Update(hands []detector.HandLandmarks, now time.Time) []events.Event {
	c.pointers = c.pointers[:0]
	var fired []events.Event

	for i := range hands {
		hand := &hands[i]
		tip := hand.Pixel(detector.IndexTip, c.size)
		c.pointers = append(c.pointers, tip)

		if now.Before(c.pausedUntil) {
			continue
		}

		if gesture.IsOpenPalm(hand) && !c.toolbar.Over(tip) {
			c.Clear()
			c.pausedUntil = now.Add(c.opts.ClearPause)
			c.bannerUntil = c.pausedUntil
			fired = append(fired, c.event(events.TypeCanvasClear, gesture.TypeOpenPalm, hand, now, "open_palm"))
			continue
		}

		if !gesture.IsIndexUp(hand) {
			c.hasPrev = false
			continue
		}

		if c.toolbar.Over(tip) {
			c.hasPrev = false
			b, ok := c.toolbar.Hit(tip)
			if !ok || !c.toolbarGate.Accept(now) {
				continue
			}
			fired = append(fired, c.press(b, hand, now))
			continue
		}

		c.stroke(tip)
	}
	return fired
}

func (c *Canvas) press(b Button, hand *detector.HandLandmarks, now time.Time) events.Event {
	switch b.Tool {
	case ToolEraser:
		c.erasing = true
		return c.event(events.TypeEraserSelect, gesture.TypeIndexUp, hand, now, b.Label)
	case ToolClear:
		c.Clear()
		c.bannerUntil = now.Add(c.opts.ClearPause)
		return c.event(events.TypeCanvasClear, gesture.TypeIndexUp, hand, now, b.Label)
	default:
		c.brush = b.Color
		c.brushLabel = b.Label
		c.erasing = false
		return c.event(events.TypeColorSelect, gesture.TypeIndexUp, hand, now, b.Label)
	}
}

func (c *Canvas) stroke(tip image.Point) {
	if c.hasPrev {
		if c.erasing {
			gocv.Line(&c.overlay, c.prev, tip, erase, c.opts.EraserThickness)
		} else {
			gocv.Line(&c.overlay, c.prev, tip, c.brush, c.opts.BrushThickness)
		}
	}
	c.prev = tip
	c.hasPrev = true
}

func (c *Canvas) event(t events.Type, g gesture.Type, hand *detector.HandLandmarks, now time.Time, detail string) events.Event {
	return events.Event{
		Type:       t,
		Gesture:    string(g),
		Timestamp:  now,
		Confidence: hand.Score,
		Detail:     detail,
	}
}

// Compose draws the toolbar, the mode indicator and the fingertip markers
// onto a copy of frame and lays the drawing over it. Drawn pixels replace
// the camera image; black overlay pixels are transparent. The caller
// closes the result.
func (c *Canvas) Compose(frame gocv.Mat, now time.Time) (gocv.Mat, error) {
	if frame.Rows() != c.size.Y || frame.Cols() != c.size.X {
		return gocv.NewMat(), fmt.Errorf("frame %dx%d does not match canvas %dx%d",
			frame.Cols(), frame.Rows(), c.size.X, c.size.Y)
	}

	ui := frame.Clone()
	defer ui.Close()
	c.drawUI(&ui)
	for _, p := range c.pointers {
		gocv.Circle(&ui, p, 10, pointerColor, -1)
	}

	out := Merge(ui, c.overlay)
	if now.Before(c.bannerUntil) {
		gocv.PutText(&out, "Canvas Cleared!", image.Pt(c.size.X/2-100, c.size.Y/2),
			gocv.FontHersheySimplex, 1, textWhite, 2)
	}
	return out, nil
}

func (c *Canvas) drawUI(img *gocv.Mat) {
	for _, b := range c.toolbar.Buttons {
		gocv.Rectangle(img, b.Rect, b.Color, -1)
		label := textBlack
		if b.Tool != ToolColor {
			label = textWhite
		}
		gocv.PutText(img, b.Label, image.Pt(b.Rect.Min.X+5, b.Rect.Min.Y+30),
			gocv.FontHersheySimplex, 0.5, label, 1)
	}

	text, indicator := "Mode: Draw", c.brush
	if c.erasing {
		text, indicator = "Mode: Eraser", buttonGray
	}
	gocv.PutText(img, text, image.Pt(10, c.size.Y-20), gocv.FontHersheySimplex, 0.7, textWhite, 2)
	gocv.Circle(img, image.Pt(100, c.size.Y-20), 10, indicator, -1)
}

// Merge lays overlay over frame: every overlay pixel brighter than black
// replaces the frame pixel. The caller closes the result.
func Merge(frame, overlay gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(overlay, &gray, gocv.ColorBGRToGray)

	inv := gocv.NewMat()
	defer inv.Close()
	gocv.Threshold(gray, &inv, 1, 255, gocv.ThresholdBinaryInv)

	inv3 := gocv.NewMat()
	defer inv3.Close()
	gocv.CvtColor(inv, &inv3, gocv.ColorGrayToBGR)

	masked := gocv.NewMat()
	defer masked.Close()
	gocv.BitwiseAnd(frame, inv3, &masked)

	out := gocv.NewMat()
	gocv.BitwiseOr(masked, overlay, &out)
	return out
}

// Save writes the drawing to dir as artwork_<unix seconds>.png and returns
// the path.
func (c *Canvas) Save(dir string, now time.Time) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("artwork_%d.png", now.Unix()))
	if ok := gocv.IMWrite(path, c.overlay); !ok {
		return "", errors.New("failed to write " + path)
	}
	return path, nil
}
