/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package experiment builds the fixed part of the timeline that runs before
// the participant is paired: consent, the observation phase and the
// hand-off to the coordinator.
package experiment

import (
	"math/rand/v2"
	"time"

	"github.com/Seednode/dyadic/interaction"
	"github.com/Seednode/dyadic/timeline"
)

const (
	consentText = "Welcome to the experiment\n\n" +
		"Experiments begin with an information sheet that explains to the participant " +
		"what they will be doing, how their data will be used, and how they will be " +
		"remunerated."

	observationText = "Observation Instructions\n\n" +
		"You will see some objects and the words used to name them. Watch carefully."

	waitingRoomText = "Instructions before entering the waiting room\n\n" +
		"Once you continue you will connect to the server and we will try to pair you " +
		"with another participant."

	objectOnly  = 1000 * time.Millisecond
	objectLabel = 2000 * time.Millisecond
)

// Pair is one object/label combination shown during observation.
type Pair struct {
	Object string
	Label  string
	Repeat int
}

// DefaultPairs shows object4 three times as often as object5, with each
// object seen equally often under its short and long label.
var DefaultPairs = []Pair{
	{Object: "object4", Label: "zopekil", Repeat: 6},
	{Object: "object4", Label: "zop", Repeat: 6},
	{Object: "object5", Label: "zopudon", Repeat: 2},
	{Object: "object5", Label: "zop", Repeat: 2},
}

type Config struct {
	// Recorder receives the header row.
	Recorder timeline.Recorder

	// Pairs defaults to DefaultPairs.
	Pairs []Pair

	SkipObservation bool

	// Rand orders the observation trials; nil uses the global source.
	Rand *rand.Rand

	// Connect starts the coordinator connection. It must not block.
	Connect func()
}

// Observation shows object alone, then object and label together. Only
// the second part is recorded.
func Observation(object, label string) *timeline.Sequence {
	stimulus := interaction.ObjectStimulus(object)

	return &timeline.Sequence{Steps: []timeline.Step{
		&timeline.Leaf{
			ID:       "observation-object",
			Stimulus: stimulus,
			Duration: objectOnly,
		},
		&timeline.Leaf{
			ID:       "observation-label",
			Stimulus: stimulus,
			Prompt:   label,
			Duration: objectLabel,
			Data: timeline.Data{
				Record:           true,
				TrialType:        "observation",
				ObservationLabel: label,
			},
		},
	}}
}

// ObservationTrials repeats each pair and shuffles the result.
func ObservationTrials(pairs []Pair, rng *rand.Rand) []timeline.Step {
	var steps []timeline.Step

	for _, p := range pairs {
		for range p.Repeat {
			steps = append(steps, Observation(p.Object, p.Label))
		}
	}

	swap := func(i, j int) { steps[i], steps[j] = steps[j], steps[i] }

	if rng != nil {
		rng.Shuffle(len(steps), swap)
	} else {
		rand.Shuffle(len(steps), swap)
	}

	return steps
}

// Preamble returns everything up to the waiting room. Its last step calls
// Connect and suspends the timeline; from then on the coordinator drives.
func Preamble(cfg Config) []timeline.Step {
	pairs := cfg.Pairs
	if pairs == nil {
		pairs = DefaultPairs
	}

	steps := []timeline.Step{
		&timeline.Leaf{
			ID:       "consent",
			Stimulus: consentText,
			Choices:  []string{"Yes, I consent to participate"},
		},
		&timeline.Leaf{
			ID: "write-headers",
			Call: func(*timeline.Control) {
				if cfg.Recorder != nil {
					cfg.Recorder.AppendRow(timeline.Header)
				}
			},
		},
	}

	if !cfg.SkipObservation {
		steps = append(steps, &timeline.Leaf{
			ID:       "observation-instructions",
			Stimulus: observationText,
			Choices:  []string{"Continue"},
		})
		steps = append(steps, ObservationTrials(pairs, cfg.Rand)...)
	}

	return append(steps,
		&timeline.Leaf{
			ID:       "waiting-room-instructions",
			Stimulus: waitingRoomText,
			Choices:  []string{"Continue"},
		},
		&timeline.Leaf{
			ID: "start-interaction",
			Call: func(c *timeline.Control) {
				if cfg.Connect != nil {
					cfg.Connect()
				}
				c.Pause()
			},
		},
	)
}
