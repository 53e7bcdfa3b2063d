package session

// State is the negotiation state of one peer session, stored explicitly
// rather than inferred from which transport callbacks have fired.
type State int

const (
	// StateIdle: session exists but no negotiation round has started.
	StateIdle State = iota

	// StateOffering: a local offer is being generated.
	StateOffering

	// StateAwaitingAnswer: the offer was sent; waiting for the answer.
	StateAwaitingAnswer

	// StateAnswering: a remote offer arrived and an answer is being
	// generated.
	StateAnswering

	// StateConnected: descriptions are exchanged; the transport is
	// established (or establishing ICE) and media can flow.
	StateConnected

	// StateRenegotiating: the local media composition changed after
	// connect; a fresh offer round is starting.
	StateRenegotiating

	// StateClosed: terminal. The transport is released; a new session is
	// required to reconnect to the same peer.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOffering:
		return "offering"
	case StateAwaitingAnswer:
		return "awaiting-answer"
	case StateAnswering:
		return "answering"
	case StateConnected:
		return "connected"
	case StateRenegotiating:
		return "renegotiating"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
