/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package timeline schedules the trial steps a participant works through.
//
// A timeline is an ordered list of steps that can be appended to while it
// runs. Exactly one Leaf is active at a time; Sequences expand depth-first
// and RepeatUntil re-enters its body for as long as its predicate holds.
// Completion callbacks may ask the engine to suspend after the current
// step, which is how the session waits for the next instruction from the
// coordinator.
package timeline

import "time"

// Indefinite is the Duration of a Leaf that never completes on its own.
// Only Engine.ForceEndIfWaiting can end it.
const Indefinite time.Duration = -1

// WaitMarker tags a Leaf as one of the indefinite waiting screens.
type WaitMarker int

const (
	NotWaiting WaitMarker = iota
	WaitingRoom
	WaitingForPartner
)

func (w WaitMarker) String() string {
	switch w {
	case WaitingRoom:
		return "waiting room"
	case WaitingForPartner:
		return "waiting for partner"
	default:
		return "none"
	}
}

// Step is one of *Leaf, *Sequence or *RepeatUntil.
type Step interface {
	step()
}

// Data holds the recorder fields a Leaf contributes to its data row.
type Data struct {
	Record           bool
	TrialType        string
	PartnerID        string
	ObservationLabel string
}

// Leaf is a single stimulus/response cycle.
//
// A Leaf with a non-nil Call is a function step: it is never shown to the
// participant and completes as soon as Call returns.
type Leaf struct {
	ID          string
	Stimulus    string
	Prompt      string
	Choices     []string
	HideChoices bool

	// Duration of zero means the leaf lasts until a response. A positive
	// duration ends it after that long, response or not.
	Duration time.Duration
	Wait     WaitMarker
	Data     Data

	// Prepare runs right before each presentation, so choices and prompts
	// can depend on state produced by earlier steps.
	Prepare  func(*Trial)
	OnFinish func(*Result, *Control)
	Call     func(*Control)
}

// Sequence runs its steps in order.
type Sequence struct {
	Steps []Step
}

// RepeatUntil runs Body once, then again for as long as While returns true.
// While is evaluated immediately after every completion of Body.
type RepeatUntil struct {
	Body  Step
	While func() bool
}

func (*Leaf) step()        {}
func (*Sequence) step()    {}
func (*RepeatUntil) step() {}

// Indefinite reports whether the leaf can only be ended by the wait guard.
func (l *Leaf) Indefinite() bool {
	return l.Duration == Indefinite
}

// Trial is one presentation of a Leaf. A Leaf inside a RepeatUntil yields
// a new Trial on every pass.
type Trial struct {
	ID          uint64
	Index       int
	Leaf        *Leaf
	Stimulus    string
	Prompt      string
	Choices     []string
	HideChoices bool
	Duration    time.Duration
	Wait        WaitMarker
	Data        Data
}

// Clickable reports whether the participant can end the trial by choosing.
func (t *Trial) Clickable() bool {
	return len(t.Choices) > 0 && !t.HideChoices
}

// Response is what the presenter reports when a trial ends by itself.
// Choice is -1 when the trial timed out without a response.
type Response struct {
	TrialID uint64
	Choice  int
	RT      time.Duration
}

// Result is handed to a Leaf's OnFinish.
type Result struct {
	Trial    *Trial
	Choice   int
	Selected string
	RT       time.Duration
	Elapsed  time.Duration
	Forced   bool
}

// Responded reports whether the participant actually chose something.
func (r *Result) Responded() bool {
	return r.Choice >= 0
}

// Control lets a completion callback steer the engine.
type Control struct {
	pause bool
	halt  bool
}

// Pause suspends the engine once the current step has completed.
func (c *Control) Pause() {
	c.pause = true
}

// Halt stops the engine permanently. Nothing scheduled afterwards runs.
func (c *Control) Halt() {
	c.halt = true
}
