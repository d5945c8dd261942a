/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package console presents trials in a terminal: the stimulus and prompt
// are printed, choices are numbered, and the participant answers by typing
// a number.
package console

import (
	"bufio"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Seednode/dyadic/timeline"
)

// Presenter implements timeline.Presenter on a reader/writer pair.
type Presenter struct {
	out       io.Writer
	responses chan timeline.Response
	now       func() time.Time

	mu      sync.Mutex
	active  *timeline.Trial
	started time.Time
	timer   *time.Timer
}

// New starts reading answers from in. The reader goroutine exits when in
// reaches EOF.
func New(in io.Reader, out io.Writer) *Presenter {
	p := &Presenter{
		out:       out,
		responses: make(chan timeline.Response, 4),
		now:       time.Now,
	}

	go p.readLoop(in)

	return p
}

func (p *Presenter) Responses() <-chan timeline.Response {
	return p.responses
}

func (p *Presenter) Present(t *timeline.Trial) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopTimerLocked()
	p.active = t
	p.started = p.now()

	var b strings.Builder

	b.WriteString("\n")
	if t.Stimulus != "" {
		fmt.Fprintf(&b, "%s\n", t.Stimulus)
	}
	if t.Prompt != "" {
		fmt.Fprintf(&b, "%s\n", t.Prompt)
	}
	if t.Clickable() {
		for i, c := range t.Choices {
			fmt.Fprintf(&b, "  [%d] %s\n", i+1, c)
		}
		b.WriteString("> ")
	}

	_, _ = io.WriteString(p.out, b.String())

	switch {
	case t.Duration > 0:
		id := t.ID
		p.timer = time.AfterFunc(t.Duration, func() {
			p.respond(id, -1)
		})
	case t.Duration == 0 && !t.Clickable():
		// Nothing to wait for; report completion off the caller's stack.
		id := t.ID
		go p.respond(id, -1)
	}
}

// Cancel withdraws a trial without reporting a response for it.
func (p *Presenter) Cancel(t *timeline.Trial) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active == nil || p.active.ID != t.ID {
		return
	}

	p.stopTimerLocked()
	p.active = nil
}

// Shuffle returns a shuffled copy of choices.
func (p *Presenter) Shuffle(choices []string) []string {
	return Shuffle(choices)
}

// Shuffle is a Fisher-Yates shuffle over a copy of s, using crypto/rand.
func Shuffle(s []string) []string {
	out := append([]string(nil), s...)

	for i := len(out) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			continue
		}

		j := int(n.Int64())
		out[i], out[j] = out[j], out[i]
	}

	return out
}

func (p *Presenter) readLoop(in io.Reader) {
	scanner := bufio.NewScanner(in)

	for scanner.Scan() {
		p.answer(strings.TrimSpace(scanner.Text()))
	}
}

func (p *Presenter) answer(line string) {
	p.mu.Lock()
	t := p.active
	p.mu.Unlock()

	if t == nil || !t.Clickable() {
		return
	}

	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(t.Choices) {
		p.mu.Lock()
		if p.active == t {
			fmt.Fprintf(p.out, "Please enter a number between 1 and %d.\n> ", len(t.Choices))
		}
		p.mu.Unlock()

		return
	}

	p.respond(t.ID, n-1)
}

func (p *Presenter) respond(id uint64, choice int) {
	p.mu.Lock()
	if p.active == nil || p.active.ID != id {
		p.mu.Unlock()

		return
	}

	p.stopTimerLocked()
	p.active = nil
	rt := p.now().Sub(p.started)
	p.mu.Unlock()

	p.responses <- timeline.Response{TrialID: id, Choice: choice, RT: rt}
}

func (p *Presenter) stopTimerLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}
