/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package protocol defines the messages exchanged with the coordinator.
//
// Outbound messages are JSON objects keyed by "response_type". Inbound
// instructions are JSON objects keyed by "command_type".
package protocol

import "encoding/json"

type ResponseType string

const (
	ClientInfo                      ResponseType = "CLIENT_INFO"
	InteractionInstructionsComplete ResponseType = "INTERACTION_INSTRUCTIONS_COMPLETE"
	Response                        ResponseType = "RESPONSE"
	FinishedFeedback                ResponseType = "FINISHED_FEEDBACK"
)

type Role string

const (
	RoleNone Role = ""
	Director Role = "Director"
	Matcher  Role = "Matcher"
)

// Outbound is a message sent to the coordinator.
type Outbound interface {
	Type() ResponseType
}

// ClientInfoMessage announces the participant when the connection opens.
type ClientInfoMessage struct {
	Participant string `json:"client_info"`
}

type InstructionsCompleteMessage struct{}

// DirectorResponse carries the label the director chose for the target.
type DirectorResponse struct {
	Participant  string `json:"participant"`
	Partner      string `json:"partner"`
	TargetObject string `json:"target_object"`
	Label        string `json:"response"`
}

// MatcherResponse carries the object the matcher picked for the label.
type MatcherResponse struct {
	Participant   string `json:"participant"`
	Partner       string `json:"partner"`
	DirectorLabel string `json:"director_label"`
	Object        string `json:"response"`
}

type FinishedFeedbackMessage struct{}

func (ClientInfoMessage) Type() ResponseType           { return ClientInfo }
func (InstructionsCompleteMessage) Type() ResponseType { return InteractionInstructionsComplete }
func (DirectorResponse) Type() ResponseType            { return Response }
func (MatcherResponse) Type() ResponseType             { return Response }
func (FinishedFeedbackMessage) Type() ResponseType     { return FinishedFeedback }

func (m DirectorResponse) Role() Role { return Director }
func (m MatcherResponse) Role() Role  { return Matcher }

type header struct {
	ResponseType ResponseType `json:"response_type"`
}

func (m ClientInfoMessage) MarshalJSON() ([]byte, error) {
	type fields ClientInfoMessage

	return json.Marshal(struct {
		header
		fields
	}{header{ClientInfo}, fields(m)})
}

func (InstructionsCompleteMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(header{InteractionInstructionsComplete})
}

func (m DirectorResponse) MarshalJSON() ([]byte, error) {
	type fields DirectorResponse

	return json.Marshal(struct {
		header
		Role Role `json:"role"`
		fields
	}{header{Response}, m.Role(), fields(m)})
}

func (m MatcherResponse) MarshalJSON() ([]byte, error) {
	type fields MatcherResponse

	return json.Marshal(struct {
		header
		Role Role `json:"role"`
		fields
	}{header{Response}, m.Role(), fields(m)})
}

func (FinishedFeedbackMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(header{FinishedFeedback})
}
