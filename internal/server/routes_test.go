package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cchaithanya83/video-conferncing-platform/internal/meeting"
	"github.com/cchaithanya83/video-conferncing-platform/internal/sigclient"
	"github.com/cchaithanya83/video-conferncing-platform/internal/signaling"
)

func startServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()

	hub := signaling.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	srv := httptest.NewServer(NewMux(hub, meeting.NewMemoryStore(), nil))
	t.Cleanup(srv.Close)

	return srv, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func recvMsg(t *testing.T, ch *sigclient.Channel) *signaling.Message {
	t.Helper()
	select {
	case msg, ok := <-ch.Incoming():
		if !ok {
			t.Fatalf("channel closed while waiting for message")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for message")
		return nil
	}
}

func TestJoinRelayLeaveOverWebSocket(t *testing.T) {
	_, wsURL := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	chA, err := sigclient.Dial(wsURL)
	if err != nil {
		t.Fatalf("dial A: %v", err)
	}
	defer chA.Close()

	ackA, err := chA.Join(ctx, "standup", "Alice")
	if err != nil {
		t.Fatalf("join A: %v", err)
	}
	if ackA.SelfID == "" || len(ackA.Members) != 0 {
		t.Fatalf("first joiner ack = %+v", ackA)
	}

	chB, err := sigclient.Dial(wsURL)
	if err != nil {
		t.Fatalf("dial B: %v", err)
	}
	defer chB.Close()

	ackB, err := chB.Join(ctx, "standup", "Bob")
	if err != nil {
		t.Fatalf("join B: %v", err)
	}
	if len(ackB.Members) != 1 || ackB.Members[0].ID != ackA.SelfID {
		t.Fatalf("joiner roster = %+v, want exactly Alice", ackB.Members)
	}

	notice := recvMsg(t, chA)
	if notice.Type != signaling.MessageTypePeerJoined || notice.From != ackB.SelfID {
		t.Fatalf("A got %+v, want peer_joined from B", notice)
	}

	// Relay with a forged sender id: the coordinator must stamp B's real
	// channel-bound id on the envelope.
	payload, _ := json.Marshal(signaling.SignalPayload{Kind: signaling.SignalOffer, SDP: "v=0"})
	chB.Send(&signaling.Message{
		Type:    signaling.MessageTypeSignal,
		From:    "forged",
		To:      ackA.SelfID,
		Payload: payload,
	})

	relayed := recvMsg(t, chA)
	if relayed.Type != signaling.MessageTypeSignal || relayed.From != ackB.SelfID {
		t.Fatalf("relayed envelope = %+v, want signal from B's real id", relayed)
	}
	if string(relayed.Payload) != string(payload) {
		t.Errorf("relay modified the payload")
	}

	chB.Leave()
	left := recvMsg(t, chA)
	if left.Type != signaling.MessageTypePeerLeft || left.From != ackB.SelfID {
		t.Fatalf("A got %+v, want peer_left from B", left)
	}
}

func TestAbruptDisconnectBehavesAsLeave(t *testing.T) {
	_, wsURL := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	chA, err := sigclient.Dial(wsURL)
	if err != nil {
		t.Fatalf("dial A: %v", err)
	}
	defer chA.Close()
	if _, err := chA.Join(ctx, "r1", "Alice"); err != nil {
		t.Fatalf("join A: %v", err)
	}

	chB, err := sigclient.Dial(wsURL)
	if err != nil {
		t.Fatalf("dial B: %v", err)
	}
	ackB, err := chB.Join(ctx, "r1", "Bob")
	if err != nil {
		t.Fatalf("join B: %v", err)
	}
	recvMsg(t, chA) // peer_joined

	// Close the socket without an explicit leave.
	chB.Close()

	left := recvMsg(t, chA)
	if left.Type != signaling.MessageTypePeerLeft || left.From != ackB.SelfID {
		t.Fatalf("A got %+v, want peer_left after abrupt disconnect", left)
	}
}

func TestMeetingRoutes(t *testing.T) {
	srv, _ := startServer(t)

	body, _ := json.Marshal(meeting.Meeting{Title: "standup", Host: "alice"})
	resp, err := http.Post(srv.URL+"/meetings", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("create meeting: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var created meeting.Meeting
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode created meeting: %v", err)
	}
	if created.ID == "" {
		t.Fatal("created meeting has no id")
	}

	got, err := http.Get(srv.URL + "/meetings/" + created.ID)
	if err != nil {
		t.Fatalf("get meeting: %v", err)
	}
	defer got.Body.Close()
	if got.StatusCode != http.StatusOK {
		t.Errorf("get status = %d", got.StatusCode)
	}

	missing, err := http.Get(srv.URL + "/meetings/nope")
	if err != nil {
		t.Fatalf("get missing meeting: %v", err)
	}
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("missing meeting status = %d, want 404", missing.StatusCode)
	}
}

type stubRecognizer struct{ text string }

func (s stubRecognizer) Recognize(_ context.Context, _ []byte) (string, error) {
	return s.text, nil
}

func TestTranscribeRoute(t *testing.T) {
	hub := signaling.NewHub()
	go hub.Run()
	defer hub.Stop()

	srv := httptest.NewServer(NewMux(hub, nil, stubRecognizer{text: "hello world"}))
	defer srv.Close()

	body, _ := json.Marshal(map[string]string{
		"audio": base64.StdEncoding.EncodeToString([]byte("pcm-bytes")),
	})
	resp, err := http.Post(srv.URL+"/transcribe", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("transcribe status = %d", resp.StatusCode)
	}

	var out struct {
		Transcription string `json:"transcription"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode transcription: %v", err)
	}
	if out.Transcription != "hello world" {
		t.Errorf("transcription = %q", out.Transcription)
	}
}
