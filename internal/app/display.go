package app

import (
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Key codes the loops react to.
const (
	KeyNone = -1
	KeyEsc  = 27
	KeyQuit = 'q'
	KeySave = 's'
)

// Display shows output frames and reports key presses.
type Display interface {
	// Show presents frame. It must not keep a reference to it.
	Show(frame gocv.Mat) error
	// Key waits up to wait for a key press and returns its code, or KeyNone.
	Key(wait time.Duration) int
	Close() error
}

func isQuit(key int) bool {
	return key == KeyQuit || key == KeyEsc
}

// WindowDisplay is an OpenCV HighGUI window.
type WindowDisplay struct {
	window *gocv.Window
}

// NewWindowDisplay opens a window titled title.
func NewWindowDisplay(title string) *WindowDisplay {
	return &WindowDisplay{window: gocv.NewWindow(title)}
}

// Show draws frame into the window.
func (d *WindowDisplay) Show(frame gocv.Mat) error {
	d.window.IMShow(frame)
	return nil
}

// Key pumps the window's event loop for at least a millisecond.
func (d *WindowDisplay) Key(wait time.Duration) int {
	ms := int(wait.Milliseconds())
	if ms < 1 {
		ms = 1
	}
	key := d.window.WaitKey(ms)
	if key < 0 {
		return KeyNone
	}
	return key & 0xFF
}

// Close destroys the window.
func (d *WindowDisplay) Close() error {
	return d.window.Close()
}

// HeadlessDisplay discards frames. It replays queued key presses, which
// makes it the display for tests and for runs that only stream over HTTP.
type HeadlessDisplay struct {
	// OnShow, when set, sees every frame before it is discarded.
	OnShow func(frame gocv.Mat)

	mu     sync.Mutex
	shown  int
	keys   []int
	closed bool
}

// NewHeadlessDisplay returns a display with no queued keys.
func NewHeadlessDisplay() *HeadlessDisplay {
	return &HeadlessDisplay{}
}

// QueueKeys appends key results for successive Key calls. Use KeyNone for
// calls that should see no key.
func (d *HeadlessDisplay) QueueKeys(keys ...int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keys = append(d.keys, keys...)
}

func (d *HeadlessDisplay) Show(frame gocv.Mat) error {
	d.mu.Lock()
	d.shown++
	onShow := d.OnShow
	d.mu.Unlock()

	if onShow != nil {
		onShow(frame)
	}
	return nil
}

func (d *HeadlessDisplay) Key(time.Duration) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.keys) == 0 {
		return KeyNone
	}
	k := d.keys[0]
	d.keys = d.keys[1:]
	return k
}

func (d *HeadlessDisplay) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Shown returns how many frames were shown.
func (d *HeadlessDisplay) Shown() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shown
}

// Closed reports whether Close was called.
func (d *HeadlessDisplay) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
