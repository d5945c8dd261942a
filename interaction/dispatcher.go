/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package interaction turns coordinator instructions into trial steps.
//
// Every instruction maps to exactly one handler. Handlers end any waiting
// screen the participant is stuck on, append the steps the instruction
// implies to the timeline and resume it; the steps themselves suspend the
// timeline again once they are done, so the participant always waits for
// the coordinator's next push.
package interaction

import (
	"errors"
	"fmt"
	"time"

	"github.com/Seednode/dyadic/protocol"
	"github.com/Seednode/dyadic/timeline"
)

var ErrNotConnected = errors.New("not connected to coordinator")

const DefaultFeedbackDuration = 1500 * time.Millisecond

// Transport is the outbound half of the coordinator connection.
type Transport interface {
	Send(msg protocol.Outbound) error
	Close() error
}

// Hooks are optional callbacks for observability.
type Hooks struct {
	OnInstruction func(tag protocol.Tag)
	OnSend        func(rt protocol.ResponseType, err error)
}

type Config struct {
	Lexicon          Lexicon
	FeedbackDuration time.Duration
	Shuffle          func([]string) []string
	Hooks            Hooks
	Logf             func(format string, args ...any)
}

// Dispatcher owns the session state and drives the timeline engine on
// behalf of the coordinator. Like the engine, it is used from a single
// goroutine.
type Dispatcher struct {
	engine  *timeline.Engine
	session *Session
	out     Transport

	lexicon          Lexicon
	objects          []string
	feedbackDuration time.Duration
	shuffle          func([]string) []string
	hooks            Hooks
	logf             func(format string, args ...any)

	ending bool
}

func NewDispatcher(engine *timeline.Engine, session *Session, cfg Config) *Dispatcher {
	d := &Dispatcher{
		engine:           engine,
		session:          session,
		lexicon:          cfg.Lexicon,
		feedbackDuration: cfg.FeedbackDuration,
		shuffle:          cfg.Shuffle,
		hooks:            cfg.Hooks,
		logf:             cfg.Logf,
	}

	if d.lexicon == nil {
		d.lexicon = DefaultLexicon
	}
	if d.feedbackDuration <= 0 {
		d.feedbackDuration = DefaultFeedbackDuration
	}
	if d.shuffle == nil {
		// Without a presenter-provided shuffle, choices keep lexicon order.
		d.shuffle = func(s []string) []string { return append([]string(nil), s...) }
	}
	if d.logf == nil {
		d.logf = func(string, ...any) {}
	}

	d.objects = d.lexicon.Objects()

	return d
}

// Attach sets the connection outbound messages are sent on.
func (d *Dispatcher) Attach(t Transport) {
	d.out = t
}

func (d *Dispatcher) Session() *Session {
	return d.session
}

// Ending reports whether the final screen has been scheduled.
func (d *Dispatcher) Ending() bool {
	return d.ending
}

// Dispatch runs the handler for ins. An unrecognized instruction is an
// error the session cannot recover from.
func (d *Dispatcher) Dispatch(ins protocol.Instruction) error {
	if ins == nil {
		return fmt.Errorf("%w: nil", protocol.ErrUnknownInstruction)
	}

	d.logf("DISPATCH: %s", ins.Tag())

	var err error

	switch ins := ins.(type) {
	case protocol.EnterWaitingRoom:
		d.enterWaitingRoom()
	case protocol.WaitForPartner:
		d.waitForPartner()
	case protocol.PairedInstructions:
		d.pairedInstructions()
	case protocol.PartnerDropout:
		d.partnerDropout()
	case protocol.EndExperiment:
		d.endExperiment()
	case protocol.DirectorTurn:
		err = d.directorTurn(ins)
	case protocol.MatcherTurn:
		d.matcherTurn(ins)
	case protocol.Feedback:
		d.feedback(ins)
	default:
		return fmt.Errorf("%w: %T", protocol.ErrUnknownInstruction, ins)
	}

	if d.hooks.OnInstruction != nil {
		d.hooks.OnInstruction(ins.Tag())
	}

	return err
}

// TransportLost is called when the coordinator connection ends without an
// instruction saying why. It is handled as a partner dropout unless the
// session is already ending.
func (d *Dispatcher) TransportLost(err error) {
	if d.ending {
		return
	}

	d.logf("DISPATCH: Coordinator lost (%v), treating as partner dropout", err)

	d.partnerDropout()
}

func (d *Dispatcher) send(msg protocol.Outbound) {
	err := ErrNotConnected
	if d.out != nil {
		err = d.out.Send(msg)
	}

	if err != nil {
		d.logf("DISPATCH: Failed to send %s: %v", msg.Type(), err)
	}

	if d.hooks.OnSend != nil {
		d.hooks.OnSend(msg.Type(), err)
	}
}

func (d *Dispatcher) run(steps ...timeline.Step) {
	d.engine.Append(steps...)
	d.engine.Resume()
}
