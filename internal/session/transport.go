package session

import (
	"fmt"
	"log/slog"

	"github.com/pion/webrtc/v4"

	"github.com/cchaithanya83/video-conferncing-platform/internal/chat"
	"github.com/cchaithanya83/video-conferncing-platform/internal/config"
	"github.com/cchaithanya83/video-conferncing-platform/internal/media"
)

// Transport wraps one peer-to-peer connection for a single session. The
// state machine in this package drives it; implementations must tolerate
// Close at any point.
type Transport interface {
	// CreateOffer produces a local offer description, making it the
	// pending local description. Candidate gathering starts here.
	CreateOffer() (string, error)

	// CreateAnswer applies the remote offer and produces the local
	// answer description.
	CreateAnswer(offerSDP string) (string, error)

	// AcceptAnswer applies the remote answer to an outstanding offer.
	AcceptAnswer(answerSDP string) error

	// AddRemoteCandidate applies one remote network candidate. Only
	// valid once a remote description is set.
	AddRemoteCandidate(c webrtc.ICECandidateInit) error

	// SyncTracks reconciles the attached outbound tracks with the given
	// set. Returns true if the composition changed.
	SyncTracks(tracks []webrtc.TrackLocal) (bool, error)

	// SendChat delivers a chat message over the transport's data
	// channel, if one is open.
	SendChat(m chat.Message) error

	// Close releases the transport. Irreversible.
	Close() error
}

// TransportHandlers are the callbacks a transport fires. They may be
// invoked from transport-internal goroutines; the registry funnels them
// back onto its own loop.
type TransportHandlers struct {
	OnCandidate func(webrtc.ICECandidateInit)
	OnTrack     func(*webrtc.TrackRemote)
	OnChat      func(chat.Message)
}

// TransportFactory builds a fresh transport for one negotiation
// lifetime. Sessions reset by building a new one.
type TransportFactory func(h TransportHandlers) (Transport, error)

// pionTransport implements Transport on a pion PeerConnection.
type pionTransport struct {
	pc       *webrtc.PeerConnection
	handlers TransportHandlers
	chatDC   *webrtc.DataChannel
}

// NewPionFactory returns a factory producing WebRTC transports with ICE
// servers from the config and the local media tracks pre-attached.
func NewPionFactory(cfg *config.Config, local media.Local) TransportFactory {
	return func(h TransportHandlers) (Transport, error) {
		pc, err := newPeerConnection(cfg)
		if err != nil {
			return nil, err
		}

		t := &pionTransport{pc: pc, handlers: h}

		for _, track := range local.Tracks() {
			if _, err := pc.AddTrack(track); err != nil {
				pc.Close()
				return nil, fmt.Errorf("attach local track: %w", err)
			}
		}

		pc.OnICECandidate(func(c *webrtc.ICECandidate) {
			if c == nil {
				return
			}
			t.handlers.OnCandidate(c.ToJSON())
		})

		pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
			t.handlers.OnTrack(track)
		})

		// The offering side creates the chat channel; the answering side
		// receives it here.
		pc.OnDataChannel(func(dc *webrtc.DataChannel) {
			if dc.Label() != chat.ChannelLabel {
				return
			}
			t.chatDC = dc
			t.wireChat(dc)
		})

		return t, nil
	}
}

// newPeerConnection centralizes ICE server configuration
func newPeerConnection(cfg *config.Config) (*webrtc.PeerConnection, error) {
	iceServers := []webrtc.ICEServer{{URLs: cfg.GetSTUNServers()}}

	if turnServers := cfg.GetTURNServers(); turnServers != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, webrtc.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	return webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: iceServers})
}

func (t *pionTransport) wireChat(dc *webrtc.DataChannel) {
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		m, err := chat.Decode(msg.Data)
		if err != nil {
			slog.Debug("dropping malformed chat message", "error", err)
			return
		}
		t.handlers.OnChat(m)
	})
}

func (t *pionTransport) CreateOffer() (string, error) {
	if t.chatDC == nil {
		dc, err := t.pc.CreateDataChannel(chat.ChannelLabel, nil)
		if err != nil {
			return "", fmt.Errorf("create chat channel: %w", err)
		}
		t.chatDC = dc
		t.wireChat(dc)
	}

	offer, err := t.pc.CreateOffer(nil)
	if err != nil {
		return "", fmt.Errorf("create offer: %w", err)
	}
	if err := t.pc.SetLocalDescription(offer); err != nil {
		return "", fmt.Errorf("set local offer: %w", err)
	}
	return offer.SDP, nil
}

func (t *pionTransport) CreateAnswer(offerSDP string) (string, error) {
	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: offerSDP}
	if err := t.pc.SetRemoteDescription(offer); err != nil {
		return "", fmt.Errorf("set remote offer: %w", err)
	}

	answer, err := t.pc.CreateAnswer(nil)
	if err != nil {
		return "", fmt.Errorf("create answer: %w", err)
	}
	if err := t.pc.SetLocalDescription(answer); err != nil {
		return "", fmt.Errorf("set local answer: %w", err)
	}
	return answer.SDP, nil
}

func (t *pionTransport) AcceptAnswer(answerSDP string) error {
	answer := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: answerSDP}
	if err := t.pc.SetRemoteDescription(answer); err != nil {
		return fmt.Errorf("set remote answer: %w", err)
	}
	return nil
}

func (t *pionTransport) AddRemoteCandidate(c webrtc.ICECandidateInit) error {
	return t.pc.AddICECandidate(c)
}

func (t *pionTransport) SyncTracks(tracks []webrtc.TrackLocal) (bool, error) {
	want := make(map[string]webrtc.TrackLocal, len(tracks))
	for _, track := range tracks {
		want[track.ID()] = track
	}

	changed := false
	attached := make(map[string]bool)
	for _, sender := range t.pc.GetSenders() {
		current := sender.Track()
		if current == nil {
			continue
		}
		if _, ok := want[current.ID()]; !ok {
			if err := t.pc.RemoveTrack(sender); err != nil {
				return changed, fmt.Errorf("remove track %s: %w", current.ID(), err)
			}
			changed = true
			continue
		}
		attached[current.ID()] = true
	}

	for id, track := range want {
		if attached[id] {
			continue
		}
		if _, err := t.pc.AddTrack(track); err != nil {
			return changed, fmt.Errorf("add track %s: %w", id, err)
		}
		changed = true
	}

	return changed, nil
}

func (t *pionTransport) SendChat(m chat.Message) error {
	if t.chatDC == nil || t.chatDC.ReadyState() != webrtc.DataChannelStateOpen {
		return fmt.Errorf("chat channel not open")
	}
	data, err := chat.Encode(m)
	if err != nil {
		return err
	}
	return t.chatDC.Send(data)
}

func (t *pionTransport) Close() error {
	return t.pc.Close()
}
