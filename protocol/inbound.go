/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnknownInstruction   = errors.New("unknown instruction")
	ErrMalformedInstruction = errors.New("malformed instruction")
)

type Tag string

const (
	TagEnterWaitingRoom   Tag = "EnterWaitingRoom"
	TagWaitForPartner     Tag = "WaitForPartner"
	TagPairedInstructions Tag = "PairedInstructions"
	TagPartnerDropout     Tag = "PartnerDropout"
	TagEndExperiment      Tag = "EndExperiment"
	TagDirectorTurn       Tag = "DirectorTurn"
	TagMatcherTurn        Tag = "MatcherTurn"
	TagFeedback           Tag = "Feedback"
)

// Tags lists every instruction the coordinator can send.
var Tags = []Tag{
	TagEnterWaitingRoom,
	TagWaitForPartner,
	TagPairedInstructions,
	TagPartnerDropout,
	TagEndExperiment,
	TagDirectorTurn,
	TagMatcherTurn,
	TagFeedback,
}

// Instruction is a command pushed by the coordinator.
type Instruction interface {
	Tag() Tag
}

type EnterWaitingRoom struct{}

type WaitForPartner struct{}

type PairedInstructions struct{}

type PartnerDropout struct{}

type EndExperiment struct{}

type DirectorTurn struct {
	TargetObject string `json:"target_object"`
	PartnerID    string `json:"partner_id"`
}

type MatcherTurn struct {
	Label     string `json:"label"`
	PartnerID string `json:"partner_id"`
}

// Feedback reports the outcome of the last round: 1 for success, 0 otherwise.
type Feedback struct {
	Score int `json:"score"`
}

func (f Feedback) Success() bool {
	return f.Score == 1
}

func (EnterWaitingRoom) Tag() Tag   { return TagEnterWaitingRoom }
func (WaitForPartner) Tag() Tag     { return TagWaitForPartner }
func (PairedInstructions) Tag() Tag { return TagPairedInstructions }
func (PartnerDropout) Tag() Tag     { return TagPartnerDropout }
func (EndExperiment) Tag() Tag      { return TagEndExperiment }
func (DirectorTurn) Tag() Tag       { return TagDirectorTurn }
func (MatcherTurn) Tag() Tag        { return TagMatcherTurn }
func (Feedback) Tag() Tag           { return TagFeedback }

type envelope struct {
	Command Tag `json:"command_type"`
}

// Decode parses one instruction. Unknown tags wrap ErrUnknownInstruction;
// bad JSON or missing payload fields wrap ErrMalformedInstruction.
func Decode(data []byte) (Instruction, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInstruction, err)
	}

	switch env.Command {
	case TagEnterWaitingRoom:
		return EnterWaitingRoom{}, nil
	case TagWaitForPartner:
		return WaitForPartner{}, nil
	case TagPairedInstructions:
		return PairedInstructions{}, nil
	case TagPartnerDropout:
		return PartnerDropout{}, nil
	case TagEndExperiment:
		return EndExperiment{}, nil
	case TagDirectorTurn:
		var ins DirectorTurn
		if err := json.Unmarshal(data, &ins); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedInstruction, env.Command, err)
		}
		if ins.TargetObject == "" || ins.PartnerID == "" {
			return nil, fmt.Errorf("%w: %s requires target_object and partner_id", ErrMalformedInstruction, env.Command)
		}

		return ins, nil
	case TagMatcherTurn:
		var ins MatcherTurn
		if err := json.Unmarshal(data, &ins); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedInstruction, env.Command, err)
		}
		if ins.Label == "" || ins.PartnerID == "" {
			return nil, fmt.Errorf("%w: %s requires label and partner_id", ErrMalformedInstruction, env.Command)
		}

		return ins, nil
	case TagFeedback:
		var raw struct {
			Score *int `json:"score"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedInstruction, env.Command, err)
		}
		if raw.Score == nil || (*raw.Score != 0 && *raw.Score != 1) {
			return nil, fmt.Errorf("%w: %s score must be 0 or 1", ErrMalformedInstruction, env.Command)
		}

		return Feedback{Score: *raw.Score}, nil
	case "":
		return nil, fmt.Errorf("%w: missing command_type", ErrMalformedInstruction)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownInstruction, env.Command)
	}
}

// Encode renders an instruction the way the coordinator sends it.
func Encode(ins Instruction) ([]byte, error) {
	switch v := ins.(type) {
	case DirectorTurn:
		type fields DirectorTurn

		return json.Marshal(struct {
			envelope
			fields
		}{envelope{v.Tag()}, fields(v)})
	case MatcherTurn:
		type fields MatcherTurn

		return json.Marshal(struct {
			envelope
			fields
		}{envelope{v.Tag()}, fields(v)})
	case Feedback:
		type fields Feedback

		return json.Marshal(struct {
			envelope
			fields
		}{envelope{v.Tag()}, fields(v)})
	case nil:
		return nil, fmt.Errorf("%w: nil", ErrUnknownInstruction)
	default:
		return json.Marshal(envelope{v.Tag()})
	}
}
