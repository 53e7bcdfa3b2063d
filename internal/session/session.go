package session

import (
	"fmt"
	"log/slog"

	"github.com/pion/webrtc/v4"

	"github.com/cchaithanya83/video-conferncing-platform/internal/chat"
	"github.com/cchaithanya83/video-conferncing-platform/internal/signaling"
)

// maxCandidateFailures is how many remote candidates may fail to apply
// before the session is considered unrecoverable.
const maxCandidateFailures = 3

// Session owns the negotiation state machine for one remote peer. All of
// its methods are called from the registry's actor loop only; asynchronous
// transport work posts completion events back into that loop tagged with
// the session epoch, so nothing here needs a lock.
type Session struct {
	peerID      string
	displayName string
	localID     string

	state     State
	transport Transport
	factory   TransportFactory

	// epoch identifies the current transport. Values come from the
	// registry-wide allocator, never reused, so a completion event can
	// only match the one transport it was started on: not an earlier
	// incarnation of this session, and not a closed predecessor session
	// for the same peer. Reallocated on every reset and close.
	epoch  uint64
	epochs func() uint64

	// round counts negotiation rounds within an epoch, so a timeout armed
	// for an earlier round cannot kill a later one.
	round uint64

	// offering marks whether this side initiated the current round.
	offering bool

	// localDescSent: the local offer/answer has gone out, so local
	// candidates can trickle instead of queueing.
	localDescSent bool

	// remoteDescSet: the remote description is applied, so remote
	// candidates can be applied instead of queueing.
	remoteDescSet bool

	// pendingLocal holds gathered local candidates until the local
	// description is sent; pendingRemote holds received ones until the
	// remote description is set. Both flush in arrival order.
	pendingLocal  []webrtc.ICECandidateInit
	pendingRemote []webrtc.ICECandidateInit

	candidateFailures int
	answerInFlight    bool
	connectedOnce     bool

	// send ships one negotiation payload to this peer through the
	// signaling channel. post feeds an internal event back into the
	// registry loop. schedule arms the negotiation timeout for an epoch.
	send     func(signaling.SignalPayload)
	post     func(any)
	schedule func(epoch, round uint64)
}

func newSession(localID, peerID, displayName string, factory TransportFactory,
	send func(signaling.SignalPayload), post func(any), schedule func(uint64, uint64),
	epochs func() uint64) (*Session, error) {

	s := &Session{
		peerID:      peerID,
		displayName: displayName,
		localID:     localID,
		state:       StateIdle,
		factory:     factory,
		epochs:      epochs,
		epoch:       epochs(),
		send:        send,
		post:        post,
		schedule:    schedule,
	}
	if err := s.buildTransport(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) buildTransport() error {
	e := s.epoch
	t, err := s.factory(TransportHandlers{
		OnCandidate: func(c webrtc.ICECandidateInit) {
			s.post(localCandidate{peer: s.peerID, epoch: e, candidate: c})
		},
		OnTrack: func(track *webrtc.TrackRemote) {
			s.post(remoteTrack{peer: s.peerID, track: track})
		},
		OnChat: func(m chat.Message) {
			s.post(chatInbound{peer: s.peerID, msg: m})
		},
	})
	if err != nil {
		return fmt.Errorf("build transport for %s: %w", s.peerID, err)
	}
	s.transport = t
	return nil
}

// State reports the session's current negotiation state.
func (s *Session) State() State { return s.state }

// DisplayName reports the peer's display name.
func (s *Session) DisplayName() string { return s.displayName }

// startOffer begins an offer round. From Idle this is the initial
// negotiation; from Connected it is a renegotiation triggered by a media
// composition change. Any state mid-round ignores the trigger: the round
// in flight will carry the change or the timeout will clear the way.
func (s *Session) startOffer(tracks []webrtc.TrackLocal) {
	switch s.state {
	case StateIdle:
	case StateConnected:
		s.state = StateRenegotiating
	default:
		slog.Debug("offer trigger ignored", "peer", s.peerID, "state", s.state)
		return
	}

	if tracks != nil {
		if _, err := s.transport.SyncTracks(tracks); err != nil {
			slog.Warn("track sync failed", "peer", s.peerID, "error", err)
		}
	}

	s.offering = true
	s.localDescSent = false
	s.state = StateOffering
	s.round++

	e := s.epoch
	t := s.transport
	go func() {
		sdp, err := t.CreateOffer()
		s.post(descReady{peer: s.peerID, epoch: e, kind: signaling.SignalOffer, sdp: sdp, err: err})
	}()
	s.schedule(e, s.round)
}

// handleOffer reacts to a remote offer. The interesting case is glare:
// both sides offered at once. The side with the lexicographically smaller
// connection id yields, discarding its own offer and answering the
// incoming one; the other side ignores the incoming offer and keeps
// waiting for its answer. Deterministic on both ends, no shared lock.
func (s *Session) handleOffer(sdp string) (fatal bool) {
	switch s.state {
	case StateIdle:
		s.beginAnswer(sdp)

	case StateConnected:
		// The remote side is renegotiating.
		s.state = StateRenegotiating
		s.beginAnswer(sdp)

	case StateOffering, StateAwaitingAnswer:
		if s.localID < s.peerID {
			slog.Debug("glare: yielding to remote offer", "peer", s.peerID)
			if err := s.reset(); err != nil {
				slog.Warn("transport reset failed", "peer", s.peerID, "error", err)
				return true
			}
			s.beginAnswer(sdp)
		} else {
			slog.Debug("glare: ignoring remote offer", "peer", s.peerID)
		}

	default:
		slog.Debug("dropping offer", "peer", s.peerID, "state", s.state)
	}
	return false
}

func (s *Session) beginAnswer(sdp string) {
	s.offering = false
	s.localDescSent = false
	s.state = StateAnswering
	s.round++

	e := s.epoch
	t := s.transport
	go func() {
		answer, err := t.CreateAnswer(sdp)
		s.post(descReady{peer: s.peerID, epoch: e, kind: signaling.SignalAnswer, sdp: answer, err: err})
	}()
	s.schedule(e, s.round)
}

// handleAnswer reacts to a remote answer. An answer with no matching
// outstanding offer is logged and dropped; the session is unaffected.
func (s *Session) handleAnswer(sdp string) {
	if s.state != StateAwaitingAnswer || s.answerInFlight {
		slog.Debug("dropping answer with no outstanding offer", "peer", s.peerID, "state", s.state)
		return
	}

	s.answerInFlight = true
	e := s.epoch
	t := s.transport
	go func() {
		err := t.AcceptAnswer(sdp)
		s.post(answerApplied{peer: s.peerID, epoch: e, err: err})
	}()
}

// handleDescReady completes an asynchronous offer/answer generation.
func (s *Session) handleDescReady(ev descReady) (fatal bool) {
	if ev.epoch != s.epoch || s.state == StateClosed {
		return false // stale completion from a reset or closed transport
	}

	if ev.err != nil {
		slog.Warn("description generation failed", "peer", s.peerID, "error", ev.err)
		return true
	}

	switch ev.kind {
	case signaling.SignalOffer:
		if s.state != StateOffering {
			return false
		}
		s.send(signaling.SignalPayload{Kind: signaling.SignalOffer, SDP: ev.sdp})
		s.localDescSent = true
		s.flushLocal()
		s.state = StateAwaitingAnswer

	case signaling.SignalAnswer:
		if s.state != StateAnswering {
			return false
		}
		s.send(signaling.SignalPayload{Kind: signaling.SignalAnswer, SDP: ev.sdp})
		s.localDescSent = true
		s.remoteDescSet = true
		s.flushLocal()
		s.flushRemote()
		s.state = StateConnected
	}
	return false
}

// handleAnswerApplied completes the asynchronous application of a remote
// answer. Failure leaves the session where it was: the remote side will
// resend on its next renegotiation trigger.
func (s *Session) handleAnswerApplied(ev answerApplied) {
	if ev.epoch != s.epoch || s.state == StateClosed {
		return
	}
	s.answerInFlight = false

	if ev.err != nil {
		slog.Warn("remote answer rejected", "peer", s.peerID, "error", ev.err)
		return
	}
	if s.state != StateAwaitingAnswer {
		return
	}

	s.remoteDescSet = true
	s.flushRemote()
	s.state = StateConnected
}

// handleCandidate applies or buffers one remote network candidate.
// Candidates never cause a state transition by themselves.
func (s *Session) handleCandidate(c webrtc.ICECandidateInit) (fatal bool) {
	if s.state == StateClosed {
		return false
	}
	if !s.remoteDescSet {
		s.pendingRemote = append(s.pendingRemote, c)
		return false
	}
	return s.applyCandidate(c)
}

func (s *Session) applyCandidate(c webrtc.ICECandidateInit) (fatal bool) {
	if err := s.transport.AddRemoteCandidate(c); err != nil {
		s.candidateFailures++
		slog.Warn("candidate application failed", "peer", s.peerID,
			"failures", s.candidateFailures, "error", err)
		return s.candidateFailures >= maxCandidateFailures
	}
	return false
}

// handleLocalCandidate ships a gathered local candidate, or buffers it
// until the local description has been sent.
func (s *Session) handleLocalCandidate(ev localCandidate) {
	if ev.epoch != s.epoch || s.state == StateClosed {
		return
	}
	if !s.localDescSent {
		s.pendingLocal = append(s.pendingLocal, ev.candidate)
		return
	}
	c := ev.candidate
	s.send(signaling.SignalPayload{Kind: signaling.SignalCandidate, Candidate: &c})
}

func (s *Session) flushLocal() {
	for i := range s.pendingLocal {
		c := s.pendingLocal[i]
		s.send(signaling.SignalPayload{Kind: signaling.SignalCandidate, Candidate: &c})
	}
	s.pendingLocal = nil
}

func (s *Session) flushRemote() (fatal bool) {
	for _, c := range s.pendingRemote {
		if s.applyCandidate(c) {
			s.pendingRemote = nil
			return true
		}
	}
	s.pendingRemote = nil
	return false
}

// reset discards the current transport and builds a fresh one under a
// new epoch, so in-flight async work from the old transport is ignored.
func (s *Session) reset() error {
	s.epoch = s.epochs()
	s.transport.Close()

	s.pendingLocal = nil
	s.pendingRemote = nil
	s.localDescSent = false
	s.remoteDescSet = false
	s.candidateFailures = 0
	s.answerInFlight = false

	return s.buildTransport()
}

// close releases the transport and moves the session to its terminal
// state. Irreversible; the registry creates a fresh session to reconnect.
func (s *Session) close() {
	if s.state == StateClosed {
		return
	}
	s.epoch = s.epochs()
	s.transport.Close()
	s.state = StateClosed
}
