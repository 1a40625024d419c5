// Package messages defines the JSON documents exchanged with bridge clients.
package messages

// OutboundMessage is how we wrap responses before sending
// them to the client
type OutboundMessage struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

// Events sent by the bridge itself, in addition to session notifications
const (
	EventConnected = "CONNECTED"
	EventStatus    = "STATUS"
	EventAccepted  = "ACCEPTED"
	EventError     = "ERROR"
)

// ConnectedPayload greets a new connection
type ConnectedPayload struct {
	ConnectionID string `json:"connection_id"`
}

// StatusPayload describes the session manager
type StatusPayload struct {
	State       string `json:"state"`
	SessionID   int    `json:"session_id"`
	Repeat      int    `json:"repeat"`
	GameID      string `json:"game_id,omitempty"`
	MyColor     string `json:"my_color,omitempty"`
	BlackTimeMs int64  `json:"black_time_ms"`
	WhiteTimeMs int64  `json:"white_time_ms"`
}

// AcceptedPayload acknowledges a command
type AcceptedPayload struct {
	Command string `json:"command"`
}

// ErrorPayload reports a failed command or a session error
type ErrorPayload struct {
	Message string `json:"message"`
}
