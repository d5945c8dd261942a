/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package timeline

import (
	"errors"
	"time"
)

// ErrHalted is returned by Engine.Err once the engine has been halted.
var ErrHalted = errors.New("timeline halted")

type frame struct {
	step Step
	n    int
}

// Engine owns a mutable schedule of steps.
//
// Engine is not safe for concurrent use. The session goroutine owns it and
// serializes instruction handling and presenter completions through it.
type Engine struct {
	presenter     Presenter
	recorder      Recorder
	participantID string
	hooks         Hooks
	logf          func(format string, args ...any)
	now           func() time.Time

	queue  []Step
	stack  []*frame
	active *Trial

	started   time.Time
	nextID    uint64
	index     int
	completed int

	suspended     bool
	resumePending int
	halted        bool
	done          chan struct{}
}

// Option configures an Engine.
type Option func(*Engine)

func WithRecorder(r Recorder, participantID string) Option {
	return func(e *Engine) {
		e.recorder = r
		e.participantID = participantID
	}
}

func WithHooks(h Hooks) Option {
	return func(e *Engine) {
		e.hooks = h
	}
}

func WithLogf(logf func(format string, args ...any)) Option {
	return func(e *Engine) {
		e.logf = logf
	}
}

// WithClock overrides time.Now, for elapsed-time bookkeeping in tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine returns an idle, unsuspended engine with nothing scheduled.
func NewEngine(p Presenter, opts ...Option) *Engine {
	e := &Engine{
		presenter: p,
		logf:      func(string, ...any) {},
		now:       time.Now,
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.started = e.now()

	return e
}

// Append adds steps to the end of the schedule. If the engine is idle and
// not suspended, the first of them starts immediately.
func (e *Engine) Append(steps ...Step) {
	if e.halted {
		e.logf("TIMELINE: Ignoring %d step(s) appended after halt", len(steps))

		return
	}

	e.queue = append(e.queue, steps...)

	e.advance()
}

// Resume un-suspends the engine so the next unstarted step begins.
//
// If a leaf is active and further steps are queued behind it, the resume is
// remembered and cancels one later suspension request, so the queued work
// runs as soon as the steps ahead of it finish. Each such resume is counted
// separately. Resuming with nothing scheduled is a no-op.
func (e *Engine) Resume() {
	if e.halted {
		return
	}

	if e.active != nil && len(e.queue) > 0 {
		e.resumePending++
	}

	e.suspended = false

	e.advance()
}

// Complete feeds a presenter response to the active trial. Responses for
// trials that are no longer active are dropped.
func (e *Engine) Complete(resp Response) {
	if e.active == nil || e.active.ID != resp.TrialID {
		return
	}

	e.finish(e.active, resp.Choice, resp.RT, false)
}

// ForceEndIfWaiting ends the active leaf if it is a waiting-room or
// waiting-for-partner screen, as if it had completed with no response.
// It reports whether anything was ended; calling it again is a no-op.
func (e *Engine) ForceEndIfWaiting() bool {
	t := e.active
	if t == nil || t.Wait == NotWaiting {
		return false
	}

	e.presenter.Cancel(t)

	e.logf("TIMELINE: Ending %s wait after %s", t.Wait, e.now().Sub(e.started).Round(time.Millisecond))

	if e.hooks.OnForceEnd != nil {
		e.hooks.OnForceEnd(t)
	}

	e.finish(t, -1, 0, true)

	return true
}

// Halt stops the engine permanently and drops everything still scheduled.
func (e *Engine) Halt() {
	if e.halted {
		return
	}

	if e.active != nil {
		e.presenter.Cancel(e.active)
		e.active = nil
	}

	e.halted = true
	e.resumePending = 0
	e.queue = nil
	e.stack = nil

	close(e.done)
}

// Done is closed once the engine halts.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

func (e *Engine) Err() error {
	if e.halted {
		return ErrHalted
	}

	return nil
}

func (e *Engine) Active() *Trial {
	return e.active
}

func (e *Engine) Suspended() bool {
	return e.suspended
}

func (e *Engine) Halted() bool {
	return e.halted
}

// Idle reports whether nothing is active and nothing remains scheduled.
func (e *Engine) Idle() bool {
	return e.active == nil && len(e.queue) == 0 && len(e.stack) == 0
}

// Completed counts the leaves that have finished, function steps included.
func (e *Engine) Completed() int {
	return e.completed
}

func (e *Engine) finish(t *Trial, choice int, rt time.Duration, forced bool) {
	e.active = nil

	res := &Result{
		Trial:   t,
		Choice:  choice,
		RT:      rt,
		Elapsed: e.now().Sub(e.started),
		Forced:  forced,
	}
	if choice >= 0 && choice < len(t.Choices) {
		res.Selected = t.Choices[choice]
	}

	ctl := &Control{}
	if t.Leaf.OnFinish != nil {
		t.Leaf.OnFinish(res, ctl)
	}

	e.completed++

	if t.Data.Record {
		e.record(res)
	}

	if e.hooks.OnLeafFinish != nil {
		e.hooks.OnLeafFinish(res)
	}

	e.apply(ctl)

	e.advance()
}

func (e *Engine) record(res *Result) {
	if e.recorder == nil {
		return
	}

	t := res.Trial

	row := DataRow{
		ParticipantID:    e.participantID,
		TrialIndex:       t.Index,
		TrialType:        t.Data.TrialType,
		TimeElapsed:      res.Elapsed,
		PartnerID:        t.Data.PartnerID,
		Stimulus:         t.Stimulus,
		ObservationLabel: t.Data.ObservationLabel,
		ButtonSelected:   res.Selected,
		RT:               res.RT,
		Responded:        res.Responded(),
	}
	if !t.HideChoices {
		row.Buttons = t.Choices
	}

	e.recorder.AppendRow(row.Fields())
}

func (e *Engine) apply(ctl *Control) {
	switch {
	case ctl.halt:
		e.Halt()
	case ctl.pause && e.resumePending > 0 && !e.Idle():
		e.resumePending--
	case ctl.pause:
		// Nothing left for a remembered resume to run.
		e.resumePending = 0
		e.suspended = true
	}
}

func (e *Engine) advance() {
	for e.active == nil && !e.suspended && !e.halted {
		leaf := e.nextLeaf()
		if leaf == nil {
			return
		}

		t := e.newTrial(leaf)

		if leaf.Call != nil {
			ctl := &Control{}
			leaf.Call(ctl)
			e.completed++
			e.apply(ctl)

			continue
		}

		e.active = t

		if e.hooks.OnLeafStart != nil {
			e.hooks.OnLeafStart(t)
		}

		e.presenter.Present(t)
	}
}

func (e *Engine) newTrial(l *Leaf) *Trial {
	e.nextID++

	t := &Trial{
		ID:          e.nextID,
		Index:       e.index,
		Leaf:        l,
		Stimulus:    l.Stimulus,
		Prompt:      l.Prompt,
		Choices:     append([]string(nil), l.Choices...),
		HideChoices: l.HideChoices,
		Duration:    l.Duration,
		Wait:        l.Wait,
		Data:        l.Data,
	}

	e.index++

	if l.Prepare != nil {
		l.Prepare(t)
	}

	return t
}

// nextLeaf walks the schedule depth-first and returns the next leaf to run,
// or nil when nothing is left.
func (e *Engine) nextLeaf() *Leaf {
	for {
		if len(e.stack) == 0 {
			if len(e.queue) == 0 {
				return nil
			}

			next := e.queue[0]
			e.queue[0] = nil
			e.queue = e.queue[1:]
			e.push(next)

			continue
		}

		top := e.stack[len(e.stack)-1]

		switch s := top.step.(type) {
		case *Leaf:
			e.pop()
			if s != nil {
				return s
			}
		case *Sequence:
			if s != nil && top.n < len(s.Steps) {
				child := s.Steps[top.n]
				top.n++
				e.push(child)
			} else {
				e.pop()
			}
		case *RepeatUntil:
			if s != nil && s.Body != nil && (top.n == 0 || (s.While != nil && s.While())) {
				top.n++
				e.push(s.Body)
			} else {
				e.pop()
			}
		default:
			e.pop()
		}
	}
}

func (e *Engine) push(s Step) {
	e.stack = append(e.stack, &frame{step: s})
}

func (e *Engine) pop() {
	e.stack[len(e.stack)-1] = nil
	e.stack = e.stack[:len(e.stack)-1]
}
