package session

import (
	"github.com/pion/webrtc/v4"

	"github.com/cchaithanya83/video-conferncing-platform/internal/chat"
)

// Event is anything the registry reports across the display boundary.
// A rendering collaborator subscribes to these; the registry never
// renders anything itself.
type Event any

// PeerConnected fires when a session reaches the connected state for the
// first time.
type PeerConnected struct {
	ID          string
	DisplayName string
}

// PeerDisconnected fires when a connected peer's session closes, whether
// through an explicit leave, channel loss, or negotiation failure.
type PeerDisconnected struct {
	ID          string
	DisplayName string
}

// TrackReceived delivers a remote media handle for one incoming track.
type TrackReceived struct {
	PeerID string
	Track  *webrtc.TrackRemote
}

// ChatReceived delivers a chat line from a peer's data channel.
type ChatReceived struct {
	PeerID  string
	Message chat.Message
}

// ChannelClosed fires once when the signaling channel to the coordinator
// is gone and the registry has torn everything down.
type ChannelClosed struct{}

// internal events posted back into the registry loop by transport
// callbacks and by async negotiation steps. Each carries the session
// epoch it belongs to; stale epochs are discarded so a closed or reset
// session cannot be resurrected by a late completion.

type descReady struct {
	peer  string
	epoch uint64
	kind  string // signaling.SignalOffer or signaling.SignalAnswer
	sdp   string
	err   error
}

type answerApplied struct {
	peer  string
	epoch uint64
	err   error
}

type localCandidate struct {
	peer      string
	epoch     uint64
	candidate webrtc.ICECandidateInit
}

type remoteTrack struct {
	peer  string
	track *webrtc.TrackRemote
}

type chatInbound struct {
	peer string
	msg  chat.Message
}

type negotiationExpired struct {
	peer  string
	epoch uint64
	round uint64
}
