package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/cchaithanya83/video-conferncing-platform/internal/chat"
	"github.com/cchaithanya83/video-conferncing-platform/internal/media"
	"github.com/cchaithanya83/video-conferncing-platform/internal/signaling"
)

// Signaler is the slice of the signaling channel the registry needs.
// *sigclient.Channel implements it; tests substitute an in-memory pipe.
type Signaler interface {
	Send(*signaling.Message)
	Incoming() <-chan *signaling.Message
	Leave()
}

// Registry owns every peer session for one local participant. It is a
// single actor: all inbound envelopes, transport callbacks and local
// triggers are funneled through one loop, so no two events for the same
// participant are ever handled concurrently and the sessions need no
// locks. Cross-participant races (glare) are resolved by the session
// tie-break, not by mutual exclusion.
type Registry struct {
	localID     string
	displayName string

	signaler Signaler
	factory  TransportFactory
	local    media.Local
	timeout  time.Duration

	sessions map[string]*Session
	internal chan any
	events   chan Event

	// lastEpoch seeds every session's transport epoch. One counter for
	// the whole registry: a closed session for peer P and its successor
	// can never hold the same epoch, so a late completion from the dead
	// transport cannot be mistaken for the live one's.
	lastEpoch uint64
}

// local triggers posted into the actor loop from other goroutines.
type renegotiateTrigger struct{}
type chatOutbound struct{ text string }

// NewRegistry builds a registry for a participant that has already
// joined a room. localID is the connection id from the join ack.
func NewRegistry(localID, displayName string, signaler Signaler,
	factory TransportFactory, local media.Local, timeout time.Duration) *Registry {

	return &Registry{
		localID:     localID,
		displayName: displayName,
		signaler:    signaler,
		factory:     factory,
		local:       local,
		timeout:     timeout,
		sessions:    make(map[string]*Session),
		internal:    make(chan any, 128),
		events:      make(chan Event, 64),
	}
}

// Events is the display boundary: connected/disconnected peers, remote
// tracks, chat lines. Closed when the registry shuts down.
func (r *Registry) Events() <-chan Event {
	return r.events
}

// Renegotiate asks every connected session to start a fresh offer round,
// typically after the local media composition changed.
func (r *Registry) Renegotiate() {
	r.post(renegotiateTrigger{})
}

// SendChat delivers a chat line to every connected peer.
func (r *Registry) SendChat(text string) {
	r.post(chatOutbound{text: text})
}

// post feeds the actor loop. Never called from the loop goroutine
// itself, so blocking here cannot deadlock it.
func (r *Registry) post(ev any) {
	r.internal <- ev
}

// Run drives the registry until the signaling channel closes or the
// context is cancelled. It must be the only goroutine touching sessions.
func (r *Registry) Run(ctx context.Context) {
	defer r.teardown()

	for {
		select {
		case msg, ok := <-r.signaler.Incoming():
			if !ok {
				// Transport loss: implicit leave, tear everything down.
				return
			}
			r.handleMessage(msg)

		case ev := <-r.internal:
			r.handleInternal(ev)

		case <-ctx.Done():
			r.signaler.Leave()
			return
		}
	}
}

func (r *Registry) handleMessage(msg *signaling.Message) {
	switch msg.Type {
	case signaling.MessageTypePeerJoined:
		// One active session per peer: a duplicate notice is ignored.
		if _, ok := r.sessions[msg.From]; ok {
			slog.Debug("ignoring join notice for known peer", "peer", msg.From)
			return
		}
		s := r.ensureSession(msg.From, msg.DisplayName)
		if s == nil {
			return
		}
		// The existing member offers; the newcomer answers.
		s.startOffer(nil)

	case signaling.MessageTypePeerLeft:
		r.closeSession(msg.From)

	case signaling.MessageTypeSignal:
		r.handleSignal(msg)

	case signaling.MessageTypeError:
		var p signaling.ErrorPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			slog.Warn("malformed error payload from coordinator", "error", err)
			return
		}
		slog.Warn("coordinator error", "error", p.Error)

	default:
		slog.Debug("unhandled message", "type", msg.Type)
	}
}

func (r *Registry) handleSignal(msg *signaling.Message) {
	var p signaling.SignalPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		// Malformed payloads are logged and dropped; never fatal.
		slog.Warn("malformed signal payload", "from", msg.From, "error", err)
		return
	}

	switch p.Kind {
	case signaling.SignalOffer:
		// An envelope from an unknown peer creates its session; this is
		// how the newcomer side of a join builds its registry.
		s := r.ensureSession(msg.From, msg.DisplayName)
		if s == nil {
			return
		}
		r.afterHandle(s, s.handleOffer(p.SDP))

	case signaling.SignalAnswer:
		s, ok := r.sessions[msg.From]
		if !ok {
			slog.Debug("dropping answer from unknown peer", "peer", msg.From)
			return
		}
		s.handleAnswer(p.SDP)

	case signaling.SignalCandidate:
		if p.Candidate == nil {
			slog.Warn("candidate payload without candidate", "from", msg.From)
			return
		}
		s := r.ensureSession(msg.From, msg.DisplayName)
		if s == nil {
			return
		}
		r.afterHandle(s, s.handleCandidate(*p.Candidate))

	default:
		slog.Warn("unknown signal kind", "kind", p.Kind, "from", msg.From)
	}
}

func (r *Registry) handleInternal(ev any) {
	switch ev := ev.(type) {
	case descReady:
		if s, ok := r.sessions[ev.peer]; ok {
			r.afterHandle(s, s.handleDescReady(ev))
		}

	case answerApplied:
		if s, ok := r.sessions[ev.peer]; ok {
			s.handleAnswerApplied(ev)
			r.afterHandle(s, false)
		}

	case localCandidate:
		if s, ok := r.sessions[ev.peer]; ok {
			s.handleLocalCandidate(ev)
		}

	case remoteTrack:
		r.emit(TrackReceived{PeerID: ev.peer, Track: ev.track})

	case chatInbound:
		r.emit(ChatReceived{PeerID: ev.peer, Message: ev.msg})

	case negotiationExpired:
		s, ok := r.sessions[ev.peer]
		if !ok || ev.epoch != s.epoch || ev.round != s.round {
			return
		}
		switch s.state {
		case StateConnected, StateClosed, StateIdle:
			// Round finished before the deadline.
		default:
			slog.Warn("negotiation timed out", "peer", ev.peer, "state", s.state)
			r.closeSession(ev.peer)
		}

	case renegotiateTrigger:
		tracks := r.local.Tracks()
		for _, s := range r.sessions {
			if s.state == StateConnected {
				s.startOffer(tracks)
			}
		}

	case chatOutbound:
		m := chat.Message{From: r.displayName, Text: ev.text, SentAt: time.Now().UTC()}
		for peer, s := range r.sessions {
			if s.state != StateConnected {
				continue
			}
			if err := s.transport.SendChat(m); err != nil {
				slog.Debug("chat send failed", "peer", peer, "error", err)
			}
		}
	}
}

// afterHandle applies the outcome of a session handler: a fatal error
// closes the session; reaching the connected state for the first time is
// announced across the display boundary.
func (r *Registry) afterHandle(s *Session, fatal bool) {
	if fatal {
		r.closeSession(s.peerID)
		return
	}
	if s.state == StateConnected && !s.connectedOnce {
		s.connectedOnce = true
		r.emit(PeerConnected{ID: s.peerID, DisplayName: s.displayName})
	}
}

// nextEpoch allocates a transport epoch. Only called from the actor
// goroutine (session creation, reset and close all happen there).
func (r *Registry) nextEpoch() uint64 {
	r.lastEpoch++
	return r.lastEpoch
}

// ensureSession returns the session for a peer, creating it in Idle if
// this is the first we hear of them.
func (r *Registry) ensureSession(peer, displayName string) *Session {
	if s, ok := r.sessions[peer]; ok {
		return s
	}

	send := func(p signaling.SignalPayload) {
		payload, err := json.Marshal(p)
		if err != nil {
			slog.Error("marshal signal payload", "error", err)
			return
		}
		r.signaler.Send(&signaling.Message{
			Type:        signaling.MessageTypeSignal,
			To:          peer,
			DisplayName: r.displayName,
			Payload:     payload,
		})
	}
	schedule := func(epoch, round uint64) {
		time.AfterFunc(r.timeout, func() {
			r.post(negotiationExpired{peer: peer, epoch: epoch, round: round})
		})
	}

	s, err := newSession(r.localID, peer, displayName, r.factory, send, r.post, schedule, r.nextEpoch)
	if err != nil {
		slog.Error("session creation failed", "peer", peer, "error", err)
		return nil
	}
	r.sessions[peer] = s
	return s
}

// closeSession closes and removes one session. Safe to call for unknown
// peers.
func (r *Registry) closeSession(peer string) {
	s, ok := r.sessions[peer]
	if !ok {
		return
	}
	s.close()
	delete(r.sessions, peer)
	if s.connectedOnce {
		r.emit(PeerDisconnected{ID: peer, DisplayName: s.displayName})
	}
}

// teardown closes every session and releases local media on the way out.
func (r *Registry) teardown() {
	for peer := range r.sessions {
		r.closeSession(peer)
	}
	if r.local != nil {
		r.local.Close()
	}
	r.emit(ChannelClosed{})
	close(r.events)
}

// emit delivers a display-boundary event without ever blocking the
// actor: a consumer that cannot keep up loses events, not the mesh.
func (r *Registry) emit(ev Event) {
	select {
	case r.events <- ev:
	default:
		slog.Warn("dropping event for slow consumer")
	}
}
