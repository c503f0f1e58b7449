package gesture

import "time"

// Gate drops triggers that arrive within Cooldown of the last accepted one.
// It is a plain rate limiter: a gesture does not have to be held.
type Gate struct {
	Cooldown time.Duration
}

// Allow reports whether a trigger at now may pass given the time of the last
// accepted trigger. Acceptance requires now-last to strictly exceed the
// cooldown; a zero last always passes. The caller records now as the new
// last time when Allow returns true.
func (g Gate) Allow(last, now time.Time) bool {
	if last.IsZero() {
		return true
	}
	return now.Sub(last) > g.Cooldown
}

// Limiter is a Gate that keeps its own last-accepted time, for loops that
// don't carry it in their state.
type Limiter struct {
	Gate
	last time.Time
}

// NewLimiter creates a Limiter with the given cooldown.
func NewLimiter(cooldown time.Duration) *Limiter {
	return &Limiter{Gate: Gate{Cooldown: cooldown}}
}

// Accept passes the trigger through the gate, recording now on success.
func (l *Limiter) Accept(now time.Time) bool {
	if !l.Allow(l.last, now) {
		return false
	}
	l.last = now
	return true
}

// Last returns the time of the last accepted trigger.
func (l *Limiter) Last() time.Time {
	return l.last
}
