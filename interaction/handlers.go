/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package interaction

import (
	"fmt"
	"time"

	"github.com/Seednode/dyadic/protocol"
	"github.com/Seednode/dyadic/timeline"
)

const (
	waitingRoomText       = "You are in the waiting room"
	waitingForPartnerText = "Waiting for partner"

	pairedText = "Pre-interaction Instructions\n\n" +
		"You have been paired with a partner. You will take turns describing objects to " +
		"each other and guessing which object your partner described."

	strandedText = "Oh no, something has gone wrong!\n\n" +
		"Unfortunately it looks like something has gone wrong - sorry!\n" +
		"Click continue to progress to the final screen and finish the experiment."

	finalText = "Finished!\n\n" +
		"Thank you for taking part. Your completion code is %s."

	objectDisplay = time.Second
)

var continueChoice = []string{"Continue"}

func pause(_ *timeline.Result, c *timeline.Control) {
	c.Pause()
}

func (d *Dispatcher) waitLeaf(id, text string, marker timeline.WaitMarker) *timeline.Leaf {
	return &timeline.Leaf{
		ID:       id,
		Stimulus: text,
		Duration: timeline.Indefinite,
		Wait:     marker,
		OnFinish: pause,
	}
}

// The waiting room is the entry state, so there is nothing to end first.
func (d *Dispatcher) enterWaitingRoom() {
	d.run(d.waitLeaf("waiting-room", waitingRoomText, timeline.WaitingRoom))
}

func (d *Dispatcher) waitForPartner() {
	d.engine.ForceEndIfWaiting()

	d.run(d.waitLeaf("waiting-for-partner", waitingForPartnerText, timeline.WaitingForPartner))
}

func (d *Dispatcher) pairedInstructions() {
	d.engine.ForceEndIfWaiting()

	d.run(&timeline.Leaf{
		ID:       "paired-instructions",
		Stimulus: pairedText,
		Choices:  continueChoice,
		OnFinish: func(_ *timeline.Result, c *timeline.Control) {
			d.send(protocol.InstructionsCompleteMessage{})
			c.Pause()
		},
	})
}

func (d *Dispatcher) partnerDropout() {
	d.engine.ForceEndIfWaiting()

	if d.ending {
		d.logf("DISPATCH: Already ending, ignoring partner dropout")

		return
	}

	d.engine.Append(&timeline.Leaf{
		ID:       "partner-dropout",
		Stimulus: strandedText,
		Choices:  continueChoice,
	})

	d.endExperiment()
}

func (d *Dispatcher) endExperiment() {
	d.engine.ForceEndIfWaiting()

	if d.ending {
		return
	}
	d.ending = true

	d.run(&timeline.Leaf{
		ID:       "end-experiment",
		Stimulus: fmt.Sprintf(finalText, CompletionCode(d.session.ParticipantID)),
		Choices:  continueChoice,
		OnFinish: func(_ *timeline.Result, c *timeline.Control) {
			if d.out != nil {
				if err := d.out.Close(); err != nil {
					d.logf("DISPATCH: Closing coordinator connection: %v", err)
				}
			}
			c.Halt()
		},
	})
}

func (d *Dispatcher) directorTurn(ins protocol.DirectorTurn) error {
	d.engine.ForceEndIfWaiting()

	labels, ok := d.lexicon[ins.TargetObject]
	if !ok {
		return fmt.Errorf("%w: no labels for object %q", protocol.ErrMalformedInstruction, ins.TargetObject)
	}

	d.session.PartnerID = ins.PartnerID
	d.session.Role = protocol.Director

	participant := d.session.ParticipantID
	stimulus := ObjectStimulus(ins.TargetObject)
	production := &PendingProductionState{}

	show := &timeline.Leaf{
		ID:          "director-object",
		Stimulus:    stimulus,
		Choices:     labels[:],
		HideChoices: true,
		Duration:    objectDisplay,
	}

	choose := &timeline.Leaf{
		ID:       "director-label",
		Stimulus: stimulus,
		Choices:  labels[:],
		Data: timeline.Data{
			Record:    true,
			TrialType: "director",
			PartnerID: ins.PartnerID,
		},
		Prepare: func(t *timeline.Trial) {
			t.Choices = d.shuffle(labels[:])
		},
		OnFinish: func(r *timeline.Result, _ *timeline.Control) {
			production.Select(r.Selected)
		},
	}

	send := &timeline.Leaf{
		ID: "director-send",
		Call: func(c *timeline.Control) {
			d.send(protocol.DirectorResponse{
				Participant:  participant,
				Partner:      ins.PartnerID,
				TargetObject: ins.TargetObject,
				Label:        production.SelectedLabel,
			})
			*production = PendingProductionState{}
			c.Pause()
		},
	}

	d.run(&timeline.Sequence{Steps: []timeline.Step{
		show,
		choose,
		productionLoop(stimulus, production),
		send,
	}})

	return nil
}

func (d *Dispatcher) matcherTurn(ins protocol.MatcherTurn) {
	d.engine.ForceEndIfWaiting()

	d.session.PartnerID = ins.PartnerID
	d.session.Role = protocol.Matcher

	participant := d.session.ParticipantID

	d.run(&timeline.Leaf{
		ID:       "matcher-object",
		Stimulus: ins.Label,
		Choices:  d.objects,
		Data: timeline.Data{
			Record:    true,
			TrialType: "matcher",
			PartnerID: ins.PartnerID,
		},
		Prepare: func(t *timeline.Trial) {
			t.Choices = d.shuffle(d.objects)
		},
		OnFinish: func(r *timeline.Result, c *timeline.Control) {
			d.send(protocol.MatcherResponse{
				Participant:   participant,
				Partner:       ins.PartnerID,
				DirectorLabel: ins.Label,
				Object:        r.Selected,
			})
			c.Pause()
		},
	})
}

func (d *Dispatcher) feedback(ins protocol.Feedback) {
	d.engine.ForceEndIfWaiting()

	text := "Incorrect!"
	if ins.Success() {
		text = "Correct!"
	}

	d.run(&timeline.Leaf{
		ID:       "feedback",
		Stimulus: text,
		Duration: d.feedbackDuration,
		OnFinish: func(_ *timeline.Result, c *timeline.Control) {
			d.send(protocol.FinishedFeedbackMessage{})
			c.Pause()
		},
	})
}
