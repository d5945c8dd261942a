/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package timeline

import (
	"strconv"
	"time"
)

// Presenter renders trials. Present and Cancel must not block and must not
// call back into the Engine; completions are delivered on Responses and fed
// to Engine.Complete by whoever owns the engine.
type Presenter interface {
	Present(t *Trial)
	Cancel(t *Trial)
	Shuffle(choices []string) []string
	Responses() <-chan Response
}

// Recorder is the append-only data sink. AppendRow is fire-and-forget.
type Recorder interface {
	AppendRow(fields []string)
}

// Header is the first row written to every participant's data file.
var Header = []string{
	"participant_id",
	"trial_index",
	"trial_type",
	"time_elapsed",
	"partner_id",
	"stimulus",
	"observation_label",
	"button1",
	"button2",
	"button_selected",
	"rt",
}

// DataRow is one recorded trial, aligned positionally with Header.
type DataRow struct {
	ParticipantID    string
	TrialIndex       int
	TrialType        string
	TimeElapsed      time.Duration
	PartnerID        string
	Stimulus         string
	ObservationLabel string
	Buttons          []string
	ButtonSelected   string
	RT               time.Duration
	Responded        bool
}

func (r DataRow) Fields() []string {
	buttons := [2]string{}
	copy(buttons[:], r.Buttons)

	rt := ""
	if r.Responded {
		rt = strconv.FormatInt(r.RT.Milliseconds(), 10)
	}

	return []string{
		r.ParticipantID,
		strconv.Itoa(r.TrialIndex),
		r.TrialType,
		strconv.FormatInt(r.TimeElapsed.Milliseconds(), 10),
		r.PartnerID,
		r.Stimulus,
		r.ObservationLabel,
		buttons[0],
		buttons[1],
		r.ButtonSelected,
		rt,
	}
}

// Hooks are optional lifecycle callbacks, invoked on the engine's goroutine.
type Hooks struct {
	OnLeafStart  func(*Trial)
	OnLeafFinish func(*Result)
	OnForceEnd   func(*Trial)
}
