package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/cchaithanya83/video-conferncing-platform/internal/session"
	"github.com/cchaithanya83/video-conferncing-platform/internal/signaling"
)

const chatHistory = 8

// Hooks are the actions the meeting view can trigger. They are called
// from the bubbletea goroutine and must not block.
type Hooks struct {
	SendChat func(text string)
	SetAudio func(on bool)
	SetVideo func(on bool)
}

type peerRow struct {
	id        string
	name      string
	connected bool
	tracks    int
}

type chatLine struct {
	from string
	text string
	at   time.Time
}

// Meeting is the live in-call view: roster, chat log and an input line.
// Session events are delivered by sending them to the program as
// messages; the model never talks to the registry directly.
type Meeting struct {
	roomID   string
	roomLink string
	selfName string
	hooks    Hooks

	spin  spinner.Model
	input textinput.Model

	peers []*peerRow
	chat  []chatLine

	micOn bool
	camOn bool

	started   time.Time
	peersSeen int
	chatSent  int
	closed    string
	quitting  bool
}

// NewMeeting builds the view. members is the roster from the join ack;
// those peers render as negotiating until their sessions connect.
func NewMeeting(roomID, roomLink, selfName string, members []signaling.MemberInfo, micOn, camOn bool, hooks Hooks) *Meeting {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	input := textinput.New()
	input.Placeholder = "type a message and press enter"
	input.CharLimit = 500
	input.Focus()

	peers := make([]*peerRow, 0, len(members))
	for _, m := range members {
		peers = append(peers, &peerRow{id: m.ID, name: m.DisplayName})
	}

	return &Meeting{
		roomID:   roomID,
		roomLink: roomLink,
		selfName: selfName,
		hooks:    hooks,
		spin:     s,
		input:    input,
		peers:    peers,
		micOn:    micOn,
		camOn:    camOn,
		started:  time.Now(),
	}
}

func (m *Meeting) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, textinput.Blink)
}

func (m *Meeting) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit

		case "ctrl+a":
			m.micOn = !m.micOn
			if m.hooks.SetAudio != nil {
				m.hooks.SetAudio(m.micOn)
			}
			return m, nil

		case "ctrl+o":
			m.camOn = !m.camOn
			if m.hooks.SetVideo != nil {
				m.hooks.SetVideo(m.camOn)
			}
			return m, nil

		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text != "" && m.hooks.SendChat != nil {
				m.hooks.SendChat(text)
				m.chat = append(m.chat, chatLine{from: m.selfName, text: text, at: time.Now()})
				m.trimChat()
				m.chatSent++
			}
			m.input.Reset()
			return m, nil
		}

	case session.PeerConnected:
		row := m.peer(msg.ID)
		if row == nil {
			row = &peerRow{id: msg.ID}
			m.peers = append(m.peers, row)
		}
		if msg.DisplayName != "" {
			row.name = msg.DisplayName
		}
		row.connected = true
		m.peersSeen++
		return m, nil

	case session.PeerDisconnected:
		for i, p := range m.peers {
			if p.id == msg.ID {
				m.peers = append(m.peers[:i], m.peers[i+1:]...)
				break
			}
		}
		return m, nil

	case session.TrackReceived:
		if row := m.peer(msg.PeerID); row != nil {
			row.tracks++
		}
		return m, nil

	case session.ChatReceived:
		from := msg.Message.From
		if row := m.peer(msg.PeerID); row != nil && row.name != "" {
			from = row.name
		}
		m.chat = append(m.chat, chatLine{from: from, text: msg.Message.Text, at: msg.Message.SentAt})
		m.trimChat()
		return m, nil

	case session.ChannelClosed:
		m.closed = "connection to the meeting server was lost"
		m.quitting = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Meeting) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	header := fmt.Sprintf("%s %s   %s %s", IconRoom, BoldStyle.Render(m.roomID), IconLink, MutedStyle.Render(m.roomLink))
	b.WriteString(TitleStyle.Render(header))
	b.WriteString("\n")

	if len(m.peers) == 0 {
		b.WriteString(fmt.Sprintf("%s %s\n", m.spin.View(), MutedStyle.Render("waiting for others to join")))
	}
	for _, p := range m.peers {
		name := p.name
		if name == "" {
			name = shortID(p.id)
		}
		if p.connected {
			b.WriteString(fmt.Sprintf("%s %s %s\n",
				IconPeer, name, MutedStyle.Render(fmt.Sprintf("(%d tracks)", p.tracks))))
		} else {
			b.WriteString(fmt.Sprintf("%s %s %s\n", m.spin.View(), name, MutedStyle.Render("negotiating")))
		}
	}

	if len(m.chat) > 0 {
		var lines []string
		for _, l := range m.chat {
			lines = append(lines, fmt.Sprintf("%s %s: %s",
				MutedStyle.Render(l.at.Format("15:04")), BoldStyle.Render(l.from), l.text))
		}
		b.WriteString(ChatBoxStyle.Render(strings.Join(lines, "\n")))
		b.WriteString("\n")
	}

	b.WriteString(m.input.View())
	b.WriteString("\n")

	mic := IconMic
	if !m.micOn {
		mic = IconMuted
	}
	cam := IconCamera
	if !m.camOn {
		cam = MutedStyle.Render("camera off")
	}
	b.WriteString(FooterStyle.Render(fmt.Sprintf(
		"%s ctrl+a  %s ctrl+o  leave esc", mic, cam)))

	return b.String() + "\n"
}

// CloseReason is non-empty when the view quit because the signaling
// channel was lost rather than by user request.
func (m *Meeting) CloseReason() string { return m.closed }

// Stats summarizes the call for the post-meeting table.
func (m *Meeting) Stats() CallStats {
	return CallStats{
		RoomID:    m.roomID,
		Duration:  time.Since(m.started),
		PeersSeen: m.peersSeen,
		ChatSent:  m.chatSent,
	}
}

func (m *Meeting) peer(id string) *peerRow {
	for _, p := range m.peers {
		if p.id == id {
			return p
		}
	}
	return nil
}

func (m *Meeting) trimChat() {
	if len(m.chat) > chatHistory {
		m.chat = m.chat[len(m.chat)-chatHistory:]
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
