// Package chat defines the text messages exchanged directly between
// peers over a negotiated data channel.
package chat

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// ChannelLabel is the data channel label used for chat.
const ChannelLabel = "chat"

// Message is one chat line.
type Message struct {
	From   string    `msgpack:"from"`
	Text   string    `msgpack:"text"`
	SentAt time.Time `msgpack:"sent_at"`
}

// Encode serializes a message for the data channel.
func Encode(m Message) ([]byte, error) {
	b, err := msgpack.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode chat message: %w", err)
	}
	return b, nil
}

// Decode parses a message received from the data channel.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := msgpack.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decode chat message: %w", err)
	}
	return m, nil
}
