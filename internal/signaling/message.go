package signaling

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"
)

// Message defines the structure for all C2S (Client to Server)
// and S2C (Server to Client) websocket messages.
//
// The hub only ever reads the routing fields (Type, RoomID, To). Payload
// is forwarded opaque; the hub never inspects or validates it.
type Message struct {
	Type        string          `json:"type"`
	RoomID      string          `json:"room_id,omitempty"`
	From        string          `json:"from,omitempty"`
	To          string          `json:"to,omitempty"`
	DisplayName string          `json:"display_name,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`

	// client is the client that sent the message.
	// It's used internally by the Hub and not sent over JSON.
	client *Client `json:"-"`
}

// Message type constants.
const (
	MessageTypeJoin   = "join"
	MessageTypeLeave  = "leave"
	MessageTypeSignal = "signal"

	MessageTypeJoined     = "joined"
	MessageTypePeerJoined = "peer_joined"
	MessageTypePeerLeft   = "peer_left"
	MessageTypeError      = "error"
)

// MemberInfo identifies one room member to the other members.
type MemberInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// JoinedPayload is sent back to a client after a successful join. SelfID
// is the connection id the server bound to the client's channel; Members
// lists everyone who was already in the room.
type JoinedPayload struct {
	SelfID  string       `json:"self_id"`
	RoomID  string       `json:"room_id"`
	Members []MemberInfo `json:"members"`
}

// Signal payload kinds.
const (
	SignalOffer     = "offer"
	SignalAnswer    = "answer"
	SignalCandidate = "candidate"
)

// SignalPayload carries one WebRTC negotiation message between two peers.
// The server relays it without looking inside.
type SignalPayload struct {
	Kind      string                   `json:"kind"`
	SDP       string                   `json:"sdp,omitempty"`
	Candidate *webrtc.ICECandidateInit `json:"candidate,omitempty"`
}

// ErrorPayload represents error messages from server.
type ErrorPayload struct {
	Error string `json:"error"`
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		// All payload types marshal cleanly; this only fires on a
		// programming error.
		panic(err)
	}
	return b
}
