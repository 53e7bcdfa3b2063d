package signaling

import (
	"encoding/json"
	"testing"
)

func newTestClient(id string) *Client {
	return &Client{
		ID:   id,
		Send: make(chan *Message, 16),
	}
}

// collect drains every message currently queued for the client.
func collect(c *Client) []*Message {
	var out []*Message
	for {
		select {
		case msg := <-c.Send:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func joinedPayload(t *testing.T, msg *Message) JoinedPayload {
	t.Helper()
	if msg.Type != MessageTypeJoined {
		t.Fatalf("expected %q message, got %q", MessageTypeJoined, msg.Type)
	}
	var p JoinedPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		t.Fatalf("unmarshal joined payload: %v", err)
	}
	return p
}

func TestJoinNotifiesExactlyExistingMembers(t *testing.T) {
	h := NewHub()
	a := newTestClient("a")
	b := newTestClient("b")
	c := newTestClient("c")

	h.handleJoin(a, "r1", "Alice")
	msgs := collect(a)
	if len(msgs) != 1 {
		t.Fatalf("first joiner should only get an ack, got %d messages", len(msgs))
	}
	p := joinedPayload(t, msgs[0])
	if p.SelfID != "a" || len(p.Members) != 0 {
		t.Errorf("unexpected ack for first joiner: %+v", p)
	}

	h.handleJoin(b, "r1", "Bob")
	aMsgs := collect(a)
	if len(aMsgs) != 1 || aMsgs[0].Type != MessageTypePeerJoined || aMsgs[0].From != "b" {
		t.Fatalf("existing member should get one peer_joined from b, got %+v", aMsgs)
	}
	if aMsgs[0].DisplayName != "Bob" {
		t.Errorf("peer_joined display name = %q, want Bob", aMsgs[0].DisplayName)
	}
	p = joinedPayload(t, collect(b)[0])
	if len(p.Members) != 1 || p.Members[0].ID != "a" || p.Members[0].DisplayName != "Alice" {
		t.Errorf("joiner roster = %+v, want exactly [a/Alice]", p.Members)
	}

	// A member of another room is never notified.
	h.handleJoin(c, "r2", "Carol")
	collect(c)
	if got := collect(a); len(got) != 0 {
		t.Errorf("member of r1 notified about a join in r2: %+v", got)
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	h := NewHub()
	a := newTestClient("a")
	b := newTestClient("b")

	h.handleJoin(a, "r1", "Alice")
	h.handleJoin(b, "r1", "Bob")
	collect(a)
	collect(b)

	h.handleJoin(b, "r1", "Bob")
	if got := collect(a); len(got) != 0 {
		t.Errorf("duplicate join produced notices: %+v", got)
	}
	bMsgs := collect(b)
	if len(bMsgs) != 1 || bMsgs[0].Type != MessageTypeJoined {
		t.Errorf("duplicate join should only re-ack, got %+v", bMsgs)
	}
	if len(h.Rooms["r1"].Members) != 2 {
		t.Errorf("room membership changed on duplicate join")
	}
}

func TestJoinEmptyRoomID(t *testing.T) {
	h := NewHub()
	a := newTestClient("a")

	h.handleJoin(a, "", "Alice")
	if got := collect(a); len(got) != 0 {
		t.Errorf("join with empty room id should be silent, got %+v", got)
	}
	if len(h.Rooms) != 0 {
		t.Errorf("room created for empty id")
	}
}

func TestSignalOverridesSenderID(t *testing.T) {
	h := NewHub()
	a := newTestClient("a")
	b := newTestClient("b")
	h.handleJoin(a, "r1", "Alice")
	h.handleJoin(b, "r1", "Bob")
	collect(a)
	collect(b)

	payload := mustMarshal(SignalPayload{Kind: SignalOffer, SDP: "v=0"})
	h.handleSignal(&Message{
		Type:    MessageTypeSignal,
		From:    "forged",
		To:      "b",
		Payload: payload,
		client:  a,
	})

	bMsgs := collect(b)
	if len(bMsgs) != 1 {
		t.Fatalf("expected one relayed envelope, got %d", len(bMsgs))
	}
	if bMsgs[0].From != "a" {
		t.Errorf("relayed From = %q, want the channel-bound id a", bMsgs[0].From)
	}
	if string(bMsgs[0].Payload) != string(payload) {
		t.Errorf("payload was modified in relay")
	}
}

func TestSignalToAbsentRecipientIsDropped(t *testing.T) {
	h := NewHub()
	a := newTestClient("a")
	h.handleJoin(a, "r1", "Alice")
	collect(a)

	h.handleSignal(&Message{
		Type:    MessageTypeSignal,
		To:      "ghost",
		Payload: mustMarshal(SignalPayload{Kind: SignalAnswer}),
		client:  a,
	})

	if got := collect(a); len(got) != 0 {
		t.Errorf("sender observed an effect from a routing miss: %+v", got)
	}
}

func TestLeaveIsIdempotent(t *testing.T) {
	h := NewHub()
	a := newTestClient("a")
	b := newTestClient("b")
	h.handleJoin(a, "r1", "Alice")
	h.handleJoin(b, "r1", "Bob")
	collect(a)
	collect(b)

	h.handleLeave(a)
	h.handleLeave(a)

	bMsgs := collect(b)
	if len(bMsgs) != 1 || bMsgs[0].Type != MessageTypePeerLeft || bMsgs[0].From != "a" {
		t.Fatalf("expected exactly one peer_left from a, got %+v", bMsgs)
	}
}

func TestLastLeaveDeletesRoom(t *testing.T) {
	h := NewHub()
	a := newTestClient("a")
	h.handleJoin(a, "r1", "Alice")
	collect(a)

	h.handleLeave(a)
	if len(h.Rooms) != 0 {
		t.Errorf("empty room was not deleted")
	}
}

func TestJoinNoticePrecedesRelayedSignal(t *testing.T) {
	h := NewHub()
	a := newTestClient("a")
	b := newTestClient("b")
	h.handleJoin(a, "r1", "Alice")
	collect(a)

	// b joins and immediately signals a, in channel order.
	h.handleJoin(b, "r1", "Bob")
	h.handleSignal(&Message{
		Type:    MessageTypeSignal,
		To:      "a",
		Payload: mustMarshal(SignalPayload{Kind: SignalOffer, SDP: "v=0"}),
		client:  b,
	})

	aMsgs := collect(a)
	if len(aMsgs) != 2 {
		t.Fatalf("expected notice plus signal, got %d messages", len(aMsgs))
	}
	if aMsgs[0].Type != MessageTypePeerJoined || aMsgs[1].Type != MessageTypeSignal {
		t.Errorf("got %q before %q, want peer_joined before signal", aMsgs[0].Type, aMsgs[1].Type)
	}
}

func TestRunProcessesInboundAndUnregister(t *testing.T) {
	h := NewHub()
	defer h.Stop()
	go h.Run()

	a := newTestClient("a")
	b := newTestClient("b")

	h.Inbound <- &Message{Type: MessageTypeJoin, RoomID: "r1", DisplayName: "Alice", client: a}
	h.Inbound <- &Message{Type: MessageTypeJoin, RoomID: "r1", DisplayName: "Bob", client: b}

	if msg := <-a.Send; joinedPayload(t, msg).SelfID != "a" {
		t.Errorf("bad join ack for a")
	}
	if msg := <-a.Send; msg.Type != MessageTypePeerJoined || msg.From != "b" {
		t.Errorf("a did not observe b joining: %+v", msg)
	}
	<-b.Send // b's ack

	// Abrupt disconnect behaves as a leave.
	h.Unregister <- b
	if msg := <-a.Send; msg.Type != MessageTypePeerLeft || msg.From != "b" {
		t.Errorf("a did not observe b leaving: %+v", msg)
	}
	if _, ok := <-b.Send; ok {
		t.Errorf("unregistered client's send channel left open")
	}
}
