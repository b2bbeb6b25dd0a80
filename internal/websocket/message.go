package websocket

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Outbound message types.
const (
	TypeInitialData  = "initial-data"
	TypeDataUpdated  = "data-updated"
	TypeError        = "error"
	TypeRegisterFail = "register-fail"

	// TypeRegisterSuccess acknowledges a register-user request.
	TypeRegisterSuccess = "register-success"
)

// Message defines the structure for websocket messages in both directions.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SuccessType is the reply type acknowledging a mutation of the given kind.
func SuccessType(kind string) string {
	return kind + "-success"
}

// NewMessage encodes an envelope. Encoding failures are logged and yield an error envelope.
func NewMessage(msgType string, payload any) []byte {
	body, err := json.Marshal(struct {
		Type    string `json:"type"`
		Payload any    `json:"payload"`
	}{Type: msgType, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("type", msgType).Msg("Failed to encode websocket message")
		return NewErrorMessage("internal server error")
	}
	return body
}

// NewErrorMessage encodes an error envelope whose payload is a user-facing message.
func NewErrorMessage(message string) []byte {
	body, _ := json.Marshal(struct {
		Type    string `json:"type"`
		Payload string `json:"payload"`
	}{Type: TypeError, Payload: message})
	return body
}
