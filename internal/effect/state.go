// Package effect implements the gesture-driven visibility toggle: the
// per-frame state, the fade state machine and the views it hands to the
// compositor.
package effect

import (
	"fmt"
	"time"
)

// Mode is the visibility the effect is heading to or resting in.
type Mode int

const (
	Normal Mode = iota
	Invisible
)

func (m Mode) String() string {
	switch m {
	case Normal:
		return "normal"
	case Invisible:
		return "invisible"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Direction is the sense of a running fade.
type Direction int

const (
	ToInvisible Direction = iota
	ToNormal
)

func (d Direction) String() string {
	switch d {
	case ToInvisible:
		return "to_invisible"
	case ToNormal:
		return "to_normal"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Phase is the externally visible state of the machine.
type Phase int

const (
	PhaseNormal Phase = iota
	PhaseFadingToInvisible
	PhaseFadingToNormal
	PhaseInvisible
)

var phaseNames = map[Phase]string{
	PhaseNormal:            "normal",
	PhaseFadingToInvisible: "fading_to_invisible",
	PhaseFadingToNormal:    "fading_to_normal",
	PhaseInvisible:         "invisible",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// MarshalText renders the phase name in JSON.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Fading reports whether the phase blends raw and substituted frames.
func (p Phase) Fading() bool {
	return p == PhaseFadingToInvisible || p == PhaseFadingToNormal
}

// State is the effect's complete mutable state. It is owned by the frame
// loop and threaded through Machine.Step by value.
//
// Progress only advances while Fading and is kept in [0, fadeFrames];
// Fading is cleared on the tick the advanced Progress exceeds fadeFrames.
type State struct {
	Mode        Mode      `json:"mode"`
	Fading      bool      `json:"fading"`
	Direction   Direction `json:"direction"`
	Progress    int       `json:"progress"`
	LastGesture time.Time `json:"lastGesture"`
}

// Phase derives the machine phase from the state fields.
func (s State) Phase() Phase {
	switch {
	case s.Fading && s.Direction == ToInvisible:
		return PhaseFadingToInvisible
	case s.Fading:
		return PhaseFadingToNormal
	case s.Mode == Invisible:
		return PhaseInvisible
	default:
		return PhaseNormal
	}
}

// View tells the compositor what to emit for one frame.
type View struct {
	// Phase is the phase the frame was rendered in.
	Phase Phase
	// Opacity is the weight of the background-substituted frame: 0 emits
	// the raw frame, 1 the fully substituted one.
	Opacity float64
	// Blend is set when the output mixes both frames.
	Blend bool
	// Settled is set on the tick a fade finishes.
	Settled bool
}

// NeedsSubstitute reports whether the substituted frame is part of the output.
func (v View) NeedsSubstitute() bool {
	return v.Opacity > 0
}
