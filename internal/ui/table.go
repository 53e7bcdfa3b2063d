package ui

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

// CallStats summarizes one finished call.
type CallStats struct {
	RoomID    string
	Duration  time.Duration
	PeersSeen int
	ChatSent  int
}

// RenderCallSummary prints the post-meeting stats table.
func RenderCallSummary(stats CallStats) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Room", stats.RoomID},
		{"Duration", stats.Duration.Round(time.Second).String()},
		{"Peers seen", stats.PeersSeen},
		{"Messages sent", stats.ChatSent},
	})
	fmt.Println(t.Render())
}

// RenderRoomBanner prints the joined-room box with the shareable link.
func RenderRoomBanner(roomID, roomLink string) {
	content := fmt.Sprintf("%s Joined room!\n\n%s Room ID:    %s\n%s Room Link:  %s",
		IconSuccess,
		IconRoom, BoldStyle.Foreground(Primary).Render(roomID),
		IconLink, MutedStyle.Render(roomLink),
	)
	fmt.Println(BoxStyle.Render(content))
}
