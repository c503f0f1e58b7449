package effect

import (
	"time"

	"github.com/ayusman/volverse/internal/gesture"
)

// DefaultFadeFrames is the length of a fade in ticks.
const DefaultFadeFrames = 20

// Machine holds the fixed parameters of the fade state machine. It is a
// value with no state of its own.
type Machine struct {
	FadeFrames int
	Gate       gesture.Gate
}

// NewMachine returns a Machine with the given fade length and cooldown.
// A non-positive fadeFrames falls back to DefaultFadeFrames.
func NewMachine(fadeFrames int, cooldown time.Duration) Machine {
	if fadeFrames <= 0 {
		fadeFrames = DefaultFadeFrames
	}
	return Machine{FadeFrames: fadeFrames, Gate: gesture.Gate{Cooldown: cooldown}}
}

// Step runs one frame. detected is the classifier output for the frame; it
// becomes a trigger only if the gate accepts it at now. Step returns the next
// state, the view for this frame and whether a trigger was accepted.
func (m Machine) Step(s State, detected bool, now time.Time) (State, View, bool) {
	triggered := false
	if detected && m.Gate.Allow(s.LastGesture, now) {
		s.LastGesture = now
		s = m.Trigger(s)
		triggered = true
	}
	next, view := m.Advance(s)
	return next, view, triggered
}

// Trigger toggles the target mode and (re)starts the fade towards it.
//
// From a steady phase the ramp starts at zero. Mid-fade it restarts in the
// opposite direction from the current blend: Progress is mirrored so the
// next opacity is the one the interrupted ramp would have shown next.
func (m Machine) Trigger(s State) State {
	if s.Mode == Normal {
		s.Mode = Invisible
		s.Direction = ToInvisible
	} else {
		s.Mode = Normal
		s.Direction = ToNormal
	}

	if s.Fading {
		s.Progress = m.FadeFrames - s.Progress
	} else {
		s.Progress = 0
	}
	s.Fading = true
	return s
}

// Advance emits the view for the current state and moves a running fade
// one tick forward.
func (m Machine) Advance(s State) (State, View) {
	if !s.Fading {
		return s, m.steadyView(s)
	}

	phase := s.Phase()
	opacity := float64(s.Progress) / float64(m.FadeFrames)
	if s.Direction == ToNormal {
		opacity = 1 - opacity
	}

	s.Progress++
	if s.Progress > m.FadeFrames {
		s.Fading = false
		s.Progress = 0
		v := m.steadyView(s)
		v.Phase = phase
		v.Settled = true
		return s, v
	}

	return s, View{Phase: phase, Opacity: opacity, Blend: true}
}

func (m Machine) steadyView(s State) View {
	if s.Mode == Invisible {
		return View{Phase: PhaseInvisible, Opacity: 1}
	}
	return View{Phase: PhaseNormal, Opacity: 0}
}
