package messages

import "encoding/json"

// Commands accepted from bridge clients
const (
	CommandLogin  = "LOGIN"
	CommandStop   = "STOP"
	CommandLogout = "LOGOUT"
	CommandStatus = "STATUS"
)

// InboundMessage is the generic wrapper for messages coming from the client.
// The "type" field tells us the action; "payload" is the data we parse further.
type InboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
