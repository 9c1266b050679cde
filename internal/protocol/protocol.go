package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeEvent   = "EVENT"
	TypeAck     = "ACK"
	TypeState   = "STATE"
)

// Event kinds (client -> server).
const (
	EventHoverEnter   = "HOVER_ENTER"
	EventHoverExit    = "HOVER_EXIT"
	EventClick        = "CLICK"
	EventSelectPlayer = "SELECT_PLAYER"
	EventSetPoints    = "SET_POINTS"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
