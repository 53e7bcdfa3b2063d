package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/pion/webrtc/v4"

	"github.com/cchaithanya83/video-conferncing-platform/internal/chat"
	"github.com/cchaithanya83/video-conferncing-platform/internal/signaling"
)

// fakeTransport records every call so tests can assert on the state
// machine without ICE connectivity.
type fakeTransport struct {
	mu sync.Mutex

	handlers TransportHandlers

	offersCreated  int
	remoteOffer    string
	remoteAnswer   string
	applied        []webrtc.ICECandidateInit
	chats          []chat.Message
	syncs          [][]webrtc.TrackLocal
	closed         bool
	failCandidates bool
	failAnswer     bool
}

func (f *fakeTransport) CreateOffer() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offersCreated++
	return fmt.Sprintf("offer-%d", f.offersCreated), nil
}

func (f *fakeTransport) CreateAnswer(offerSDP string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remoteOffer = offerSDP
	return "answer-for-" + offerSDP, nil
}

func (f *fakeTransport) AcceptAnswer(answerSDP string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAnswer {
		return fmt.Errorf("bad answer")
	}
	f.remoteAnswer = answerSDP
	return nil
}

func (f *fakeTransport) AddRemoteCandidate(c webrtc.ICECandidateInit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCandidates {
		return fmt.Errorf("bad candidate")
	}
	f.applied = append(f.applied, c)
	return nil
}

func (f *fakeTransport) SyncTracks(tracks []webrtc.TrackLocal) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncs = append(f.syncs, tracks)
	return true, nil
}

func (f *fakeTransport) SendChat(m chat.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chats = append(f.chats, m)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) syncCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.syncs)
}

func (f *fakeTransport) lastRemoteAnswer() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.remoteAnswer
}

func (f *fakeTransport) appliedCandidates() []webrtc.ICECandidateInit {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]webrtc.ICECandidateInit, len(f.applied))
	copy(out, f.applied)
	return out
}

// fakeFactory hands out fakeTransports and remembers them in order.
type fakeFactory struct {
	mu      sync.Mutex
	created []*fakeTransport
}

func (ff *fakeFactory) factory(h TransportHandlers) (Transport, error) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	t := &fakeTransport{handlers: h}
	ff.created = append(ff.created, t)
	return t, nil
}

func (ff *fakeFactory) count() int {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	return len(ff.created)
}

func (ff *fakeFactory) last() *fakeTransport {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	return ff.created[len(ff.created)-1]
}

// newBareSession wires a session whose async completions and outbound
// payloads are captured into slices, for white-box transition tests.
// Handlers are driven synchronously by the tests themselves.
func newBareSession(t *testing.T, localID, peerID string) (*Session, *fakeFactory, *[]signaling.SignalPayload) {
	t.Helper()

	ff := &fakeFactory{}
	var sent []signaling.SignalPayload

	var lastEpoch uint64
	s, err := newSession(localID, peerID, "Peer", ff.factory,
		func(p signaling.SignalPayload) { sent = append(sent, p) },
		func(any) {},
		func(uint64, uint64) {},
		func() uint64 { lastEpoch++; return lastEpoch },
	)
	if err != nil {
		t.Fatalf("newSession: %v", err)
	}
	return s, ff, &sent
}

func cand(s string) webrtc.ICECandidateInit {
	return webrtc.ICECandidateInit{Candidate: s}
}

func TestAnswerWithoutOutstandingOfferIsDropped(t *testing.T) {
	s, ff, _ := newBareSession(t, "a", "b")

	s.handleAnswer("bogus")
	if s.state != StateIdle {
		t.Errorf("state = %v after stray answer, want idle", s.state)
	}
	if ff.last().remoteAnswer != "" {
		t.Errorf("stray answer reached the transport")
	}
}

func TestRemoteCandidatesBufferUntilRemoteDescription(t *testing.T) {
	s, ff, _ := newBareSession(t, "a", "b")

	for i := 1; i <= 3; i++ {
		if fatal := s.handleCandidate(cand(fmt.Sprintf("c%d", i))); fatal {
			t.Fatalf("buffered candidate reported fatal")
		}
	}
	if got := ff.last().appliedCandidates(); len(got) != 0 {
		t.Fatalf("candidates applied before remote description: %v", got)
	}
	if s.state != StateIdle {
		t.Errorf("candidates moved the state machine: %v", s.state)
	}

	// Complete an answering round; buffered candidates flush in arrival
	// order.
	s.state = StateAnswering
	s.round++
	s.handleDescReady(descReady{peer: "b", epoch: s.epoch, kind: signaling.SignalAnswer, sdp: "answer-sdp"})

	got := ff.last().appliedCandidates()
	if len(got) != 3 {
		t.Fatalf("flushed %d candidates, want 3", len(got))
	}
	for i, c := range got {
		if want := fmt.Sprintf("c%d", i+1); c.Candidate != want {
			t.Errorf("candidate %d = %q, want %q (arrival order)", i, c.Candidate, want)
		}
	}
	if s.state != StateConnected {
		t.Errorf("state after answering round = %v, want connected", s.state)
	}
}

func TestLocalCandidatesBufferUntilDescriptionSent(t *testing.T) {
	s, _, sent := newBareSession(t, "a", "b")
	s.state = StateOffering
	s.round++

	s.handleLocalCandidate(localCandidate{peer: "b", epoch: s.epoch, candidate: cand("local1")})
	if len(*sent) != 0 {
		t.Fatalf("candidate sent before the offer went out")
	}

	s.handleDescReady(descReady{peer: "b", epoch: s.epoch, kind: signaling.SignalOffer, sdp: "offer-sdp"})

	if len(*sent) != 2 {
		t.Fatalf("sent %d payloads, want offer then candidate", len(*sent))
	}
	if (*sent)[0].Kind != signaling.SignalOffer || (*sent)[1].Kind != signaling.SignalCandidate {
		t.Errorf("send order = %v then %v, want offer then candidate", (*sent)[0].Kind, (*sent)[1].Kind)
	}
	if s.state != StateAwaitingAnswer {
		t.Errorf("state = %v, want awaiting-answer", s.state)
	}
}

func TestStaleEpochCompletionIsDiscarded(t *testing.T) {
	s, ff, sent := newBareSession(t, "a", "b")
	s.state = StateOffering
	s.round++
	oldEpoch := s.epoch

	// A glare yield resets the transport mid-generation.
	if err := s.reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	s.beginAnswer("their-offer")

	// The old offer generation completes late; it must not resurrect the
	// pre-reset round.
	s.handleDescReady(descReady{peer: "b", epoch: oldEpoch, kind: signaling.SignalOffer, sdp: "zombie"})

	for _, p := range *sent {
		if p.SDP == "zombie" {
			t.Fatalf("stale offer escaped after reset")
		}
	}
	if ff.count() != 2 {
		t.Errorf("reset did not build a fresh transport")
	}
	if !ff.created[0].closed {
		t.Errorf("reset left the old transport open")
	}
}

func TestConnectedNeverRegressesToIdle(t *testing.T) {
	s, _, _ := newBareSession(t, "a", "b")
	s.state = StateConnected
	s.remoteDescSet = true
	s.localDescSent = true

	// A renegotiation offer moves through Renegotiating, never Idle.
	s.handleOffer("reoffer")
	if s.state != StateAnswering {
		t.Fatalf("state = %v, want answering for a renegotiation offer", s.state)
	}

	// And a stray answer while connected changes nothing.
	s2, _, _ := newBareSession(t, "a", "b")
	s2.state = StateConnected
	s2.handleAnswer("stray")
	if s2.state != StateConnected {
		t.Errorf("stray answer moved state to %v", s2.state)
	}
}

func TestRepeatedCandidateFailureIsFatal(t *testing.T) {
	s, ff, _ := newBareSession(t, "a", "b")
	s.state = StateConnected
	s.remoteDescSet = true
	ff.last().failCandidates = true

	fatal := false
	for i := 0; i < maxCandidateFailures; i++ {
		fatal = s.handleCandidate(cand("bad"))
	}
	if !fatal {
		t.Errorf("%d candidate failures were not fatal", maxCandidateFailures)
	}
}

func TestCloseIsTerminal(t *testing.T) {
	s, ff, sent := newBareSession(t, "a", "b")
	s.close()

	if s.state != StateClosed {
		t.Fatalf("state = %v, want closed", s.state)
	}
	if !ff.last().closed {
		t.Errorf("close did not release the transport")
	}

	before := len(*sent)
	s.handleOffer("late")
	s.handleCandidate(cand("late"))
	if s.state != StateClosed || len(*sent) != before {
		t.Errorf("closed session reacted to input")
	}
}
