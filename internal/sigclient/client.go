// Package sigclient implements the participant side of the signaling
// channel: a persistent websocket carrying envelopes between one
// participant and the coordination server.
package sigclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cchaithanya83/video-conferncing-platform/internal/signaling"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Channel manages the WebSocket connection to the signaling server.
// Sends are fire-and-forget; delivery is ordered per channel. Incoming()
// is closed exactly once, on explicit Close or transport loss.
type Channel struct {
	conn      *websocket.Conn
	serverURL string
	incoming  chan *signaling.Message
	outgoing  chan *signaling.Message
	done      chan struct{}
	closed    bool
}

// Dial connects to the signaling server and starts the channel pumps.
func Dial(serverURL string) (*Channel, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	c := &Channel{
		conn:      conn,
		serverURL: serverURL,
		incoming:  make(chan *signaling.Message, 32),
		outgoing:  make(chan *signaling.Message, 32),
		done:      make(chan struct{}),
	}

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()

	return c, nil
}

// readPump reads messages from the WebSocket connection.
func (c *Channel) readPump() {
	defer func() {
		c.conn.Close()
		close(c.incoming)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		var msg signaling.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		c.incoming <- &msg
	}
}

// writePump writes messages to the WebSocket connection and sends
// periodic pings.
func (c *Channel) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// Send queues a message for delivery. Fire-and-forget: pending sends may
// be lost if the channel closes, which is acceptable because negotiation
// restarts from a fresh session on reconnect.
func (c *Channel) Send(msg *signaling.Message) {
	select {
	case c.outgoing <- msg:
	case <-c.done:
	}
}

// Incoming returns the channel for receiving messages. It is closed when
// the connection is lost or Close is called.
func (c *Channel) Incoming() <-chan *signaling.Message {
	return c.incoming
}

// Join enters a room and waits for the server's acknowledgement, which
// carries the connection id the server bound to this channel and the
// roster of members already present.
func (c *Channel) Join(ctx context.Context, roomID, displayName string) (*signaling.JoinedPayload, error) {
	c.Send(&signaling.Message{
		Type:        signaling.MessageTypeJoin,
		RoomID:      roomID,
		DisplayName: displayName,
	})

	for {
		select {
		case msg, ok := <-c.incoming:
			if !ok {
				return nil, fmt.Errorf("channel closed while joining %q", roomID)
			}
			switch msg.Type {
			case signaling.MessageTypeJoined:
				var p signaling.JoinedPayload
				if err := json.Unmarshal(msg.Payload, &p); err != nil {
					return nil, fmt.Errorf("malformed join ack: %w", err)
				}
				return &p, nil
			case signaling.MessageTypeError:
				var p signaling.ErrorPayload
				if err := json.Unmarshal(msg.Payload, &p); err != nil {
					return nil, fmt.Errorf("join rejected with malformed error payload: %w", err)
				}
				return nil, fmt.Errorf("join rejected: %s", p.Error)
			default:
				// Nothing else is expected before the ack; skip.
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Leave tells the coordinator to remove this participant from its room.
// Idempotent on the server side.
func (c *Channel) Leave() {
	c.Send(&signaling.Message{Type: signaling.MessageTypeLeave})
}

// Close closes the WebSocket connection and cleans up resources.
func (c *Channel) Close() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}
