/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package interaction

import (
	"fmt"
	"unicode/utf8"

	"github.com/Seednode/dyadic/timeline"
)

// PendingProductionState belongs to a single director trial. A fresh one is
// allocated per DirectorTurn so counts never leak between turns.
type PendingProductionState struct {
	SelectedLabel        string
	RequiredRepetitions  int
	CompletedRepetitions int
}

// Select records the chosen label; one confirmation is required per
// character.
func (p *PendingProductionState) Select(label string) {
	p.SelectedLabel = label
	p.RequiredRepetitions = utf8.RuneCountInString(label)
	p.CompletedRepetitions = 0
}

func (p *PendingProductionState) Confirm() {
	p.CompletedRepetitions++
}

// Remaining reports whether more confirmations are needed.
func (p *PendingProductionState) Remaining() bool {
	return p.CompletedRepetitions < p.RequiredRepetitions
}

// productionLoop makes the director click the selected label once per
// character before the label is sent.
func productionLoop(stimulus string, p *PendingProductionState) *timeline.RepeatUntil {
	confirm := &timeline.Leaf{
		ID:       "director-confirm",
		Stimulus: stimulus,
		Prepare: func(t *timeline.Trial) {
			t.Choices = []string{p.SelectedLabel}
			t.Prompt = fmt.Sprintf("Click %d times to send! (%d to go)",
				p.RequiredRepetitions, p.RequiredRepetitions-p.CompletedRepetitions)
		},
		OnFinish: func(*timeline.Result, *timeline.Control) {
			p.Confirm()
		},
	}

	return &timeline.RepeatUntil{
		Body:  confirm,
		While: p.Remaining,
	}
}
