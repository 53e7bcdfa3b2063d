package ui

import (
	"fmt"
	"strings"
	"testing"

	"github.com/cchaithanya83/video-conferncing-platform/internal/chat"
	"github.com/cchaithanya83/video-conferncing-platform/internal/session"
	"github.com/cchaithanya83/video-conferncing-platform/internal/signaling"
)

func TestRosterFollowsPeerLifecycle(t *testing.T) {
	m := NewMeeting("room", "https://x/r/room", "me",
		[]signaling.MemberInfo{{ID: "p1", DisplayName: "Alice"}}, true, true, Hooks{})

	if !strings.Contains(m.View(), "Alice") {
		t.Fatal("initial roster member missing from view")
	}
	if !strings.Contains(m.View(), "negotiating") {
		t.Fatal("unconnected member should render as negotiating")
	}

	m.Update(session.PeerConnected{ID: "p1", DisplayName: "Alice"})
	if strings.Contains(m.View(), "negotiating") {
		t.Fatal("connected member still renders as negotiating")
	}

	// A peer that joined after us shows up only once connected.
	m.Update(session.PeerConnected{ID: "p2", DisplayName: "Bob"})
	if !strings.Contains(m.View(), "Bob") {
		t.Fatal("late joiner missing from view")
	}

	m.Update(session.PeerDisconnected{ID: "p1", DisplayName: "Alice"})
	if strings.Contains(m.View(), "Alice") {
		t.Fatal("disconnected peer still in view")
	}

	stats := m.Stats()
	if stats.PeersSeen != 2 {
		t.Errorf("PeersSeen = %d, want 2", stats.PeersSeen)
	}
}

func TestChatLogKeepsRecentHistory(t *testing.T) {
	m := NewMeeting("room", "", "me", nil, true, true, Hooks{})
	m.Update(session.PeerConnected{ID: "p1", DisplayName: "Alice"})

	for i := 0; i < chatHistory+5; i++ {
		m.Update(session.ChatReceived{
			PeerID:  "p1",
			Message: chat.Message{From: "Alice", Text: fmt.Sprintf("line %d", i)},
		})
	}

	view := m.View()
	if strings.Contains(view, "line 0") {
		t.Error("oldest chat line should have been trimmed")
	}
	if !strings.Contains(view, fmt.Sprintf("line %d", chatHistory+4)) {
		t.Error("newest chat line missing")
	}
}

func TestChannelLossQuitsWithReason(t *testing.T) {
	m := NewMeeting("room", "", "me", nil, true, true, Hooks{})

	_, cmd := m.Update(session.ChannelClosed{})
	if cmd == nil {
		t.Fatal("channel loss should quit the program")
	}
	if m.CloseReason() == "" {
		t.Error("close reason not recorded")
	}
}
