/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package interaction

import (
	"crypto/sha256"
	"encoding/hex"
	"maps"
	"slices"
	"strings"

	"github.com/Seednode/dyadic/protocol"
)

// Session is the participant's view of the pairing.
type Session struct {
	ParticipantID string
	PartnerID     string
	Role          protocol.Role
}

func NewSession(participantID string) *Session {
	return &Session{ParticipantID: participantID}
}

// CompletionCode is the code a participant quotes to claim payment.
func CompletionCode(participantID string) string {
	sum := sha256.Sum256([]byte("dyadic:" + participantID))

	return strings.ToUpper(hex.EncodeToString(sum[:5]))
}

// Lexicon maps each object to its two candidate labels.
type Lexicon map[string][2]string

// DefaultLexicon pairs each object with a short and a long label.
var DefaultLexicon = Lexicon{
	"object4": {"zop", "zopekil"},
	"object5": {"zop", "zopudon"},
}

// Objects returns the lexicon's objects in a stable order.
func (l Lexicon) Objects() []string {
	return slices.Sorted(maps.Keys(l))
}

// ObjectStimulus is the image shown for an object.
func ObjectStimulus(object string) string {
	return "images/" + object + ".jpg"
}
