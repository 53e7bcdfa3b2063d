package signaling

import (
	"log/slog"
)

// Hub is the central brain of the coordination server.
// It tracks which participants belong to which room, fans out join/leave
// notices, and relays point-to-point signaling envelopes. It holds no
// negotiation or media logic.
type Hub struct {
	// rooms maps room IDs to Room instances.
	Rooms map[string]*Room

	// Register is a channel for registering new clients.
	Register chan *Client

	// Unregister is a channel for unregistering clients.
	Unregister chan *Client

	// Inbound receives every message read from a client connection.
	// The hub processes them one at a time, in arrival order.
	Inbound chan *Message

	// quit stops the run loop.
	quit chan struct{}
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		Rooms:      make(map[string]*Room),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Inbound:    make(chan *Message),
		quit:       make(chan struct{}),
	}
}

// Run starts the hub's main processing loop.
// This is the single goroutine that safely manages all state (rooms,
// clients). Processing a join entirely within one loop iteration is what
// guarantees that a join notice reaches existing members before any
// envelope sent by the new member can be relayed to them: both end up on
// each recipient's FIFO send queue in that order.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			slog.Debug("client registered", "client", client.ID)

		case client := <-h.Unregister:
			// Connection loss is an implicit leave.
			h.handleLeave(client)
			close(client.Send)
			slog.Debug("client unregistered", "client", client.ID)

		case message := <-h.Inbound:
			switch message.Type {
			case MessageTypeJoin:
				h.handleJoin(message.client, message.RoomID, message.DisplayName)
			case MessageTypeLeave:
				h.handleLeave(message.client)
			case MessageTypeSignal:
				h.handleSignal(message)
			default:
				slog.Warn("unknown message type", "type", message.Type, "client", message.client.ID)
			}

		case <-h.quit:
			return
		}
	}
}

// Stop terminates the run loop. Intended for shutdown and tests.
func (h *Hub) Stop() {
	close(h.quit)
}

// handleJoin adds a client to a room, creating the room if needed.
// Existing members are notified before the joiner is acknowledged.
// Joining a room the client is already in is a no-op beyond re-sending
// the acknowledgement; no duplicate notice goes out.
func (h *Hub) handleJoin(client *Client, roomID, displayName string) {
	if roomID == "" {
		// Callers must supply a room id. Log and take no action.
		slog.Warn("join with empty room id", "client", client.ID)
		return
	}

	if client.RoomID != "" && client.RoomID != roomID {
		h.enqueue(client, &Message{
			Type:    MessageTypeError,
			Payload: mustMarshal(ErrorPayload{Error: "already in a room"}),
		})
		return
	}

	if displayName != "" {
		client.DisplayName = displayName
	}

	room, ok := h.Rooms[roomID]
	if !ok {
		room = newRoom(roomID)
		h.Rooms[roomID] = room
		slog.Info("room created", "room", roomID)
	}

	_, alreadyMember := room.Members[client.ID]
	if !alreadyMember {
		// Snapshot the roster before the join; this is exactly the set of
		// members that get the notice, and exactly the set the joiner is
		// told about.
		members := make([]MemberInfo, 0, len(room.Members))
		notice := &Message{
			Type:        MessageTypePeerJoined,
			From:        client.ID,
			DisplayName: client.DisplayName,
		}
		for _, member := range room.Members {
			members = append(members, MemberInfo{ID: member.ID, DisplayName: member.DisplayName})
			h.enqueue(member, notice)
		}

		room.Members[client.ID] = client
		client.RoomID = roomID

		h.enqueue(client, &Message{
			Type:   MessageTypeJoined,
			RoomID: roomID,
			Payload: mustMarshal(JoinedPayload{
				SelfID:  client.ID,
				RoomID:  roomID,
				Members: members,
			}),
		})

		slog.Info("client joined room", "client", client.ID, "room", roomID, "name", client.DisplayName)
		return
	}

	// Repeated join: just re-acknowledge.
	members := make([]MemberInfo, 0, len(room.Members)-1)
	for _, member := range room.others(client.ID) {
		members = append(members, MemberInfo{ID: member.ID, DisplayName: member.DisplayName})
	}
	h.enqueue(client, &Message{
		Type:   MessageTypeJoined,
		RoomID: roomID,
		Payload: mustMarshal(JoinedPayload{
			SelfID:  client.ID,
			RoomID:  roomID,
			Members: members,
		}),
	})
}

// handleLeave removes a client from its room, if any, and notifies the
// remaining members. Safe to call multiple times; only the first call
// broadcasts a notice.
func (h *Hub) handleLeave(client *Client) {
	if client.RoomID == "" {
		return
	}

	room, ok := h.Rooms[client.RoomID]
	if !ok {
		client.RoomID = ""
		return
	}

	delete(room.Members, client.ID)
	client.RoomID = ""

	if len(room.Members) == 0 {
		delete(h.Rooms, room.ID)
		slog.Info("room deleted", "room", room.ID)
		return
	}

	notice := &Message{
		Type:        MessageTypePeerLeft,
		From:        client.ID,
		DisplayName: client.DisplayName,
	}
	for _, member := range room.Members {
		h.enqueue(member, notice)
	}
	slog.Info("client left room", "client", client.ID, "room", room.ID)
}

// handleSignal relays a negotiation envelope to its recipient. The sender
// id is always overwritten with the id bound to the sending channel; a
// client-supplied From is never trusted. A missing recipient is not an
// error: negotiation traffic is best-effort and the envelope is dropped.
func (h *Hub) handleSignal(message *Message) {
	sender := message.client

	if sender.RoomID == "" {
		slog.Debug("signal from client not in a room", "client", sender.ID)
		return
	}

	room, ok := h.Rooms[sender.RoomID]
	if !ok {
		slog.Debug("signal for unknown room", "client", sender.ID, "room", sender.RoomID)
		return
	}

	recipient, ok := room.Members[message.To]
	if !ok {
		// Peer already disconnected. Drop silently; the sender's session
		// recovers on its next renegotiation trigger.
		slog.Debug("dropping signal for absent recipient", "from", sender.ID, "to", message.To)
		return
	}

	h.enqueue(recipient, &Message{
		Type:        MessageTypeSignal,
		From:        sender.ID,
		To:          recipient.ID,
		DisplayName: sender.DisplayName,
		Payload:     message.Payload,
	})
}

// enqueue places a message on a client's send queue without blocking the
// hub loop. A full queue means the client is too slow to matter: the
// message is dropped and logged, so relay for one recipient can never
// stall traffic for another. This can drop a join or leave notice for a
// slow consumer too; recovery relies on clients building a session from
// the first envelope they see from an unknown peer.
func (h *Hub) enqueue(client *Client, msg *Message) {
	select {
	case client.Send <- msg:
	default:
		slog.Warn("dropping message for slow client", "client", client.ID, "type", msg.Type)
	}
}
