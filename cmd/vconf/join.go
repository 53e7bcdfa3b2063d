package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/cchaithanya83/video-conferncing-platform/internal/config"
	"github.com/cchaithanya83/video-conferncing-platform/internal/media"
	"github.com/cchaithanya83/video-conferncing-platform/internal/session"
	"github.com/cchaithanya83/video-conferncing-platform/internal/sigclient"
	"github.com/cchaithanya83/video-conferncing-platform/internal/ui"
)

var (
	flagName    string
	flagNoAudio bool
	flagNoVideo bool
)

var joinCmd = &cobra.Command{
	Use:     "join <room-id>",
	Aliases: []string{"j"},
	Short:   "Join a meeting room",
	Long: `Join a meeting room and connect to every participant in it.

Examples:
  vconf join standup-3f2a
  vconf join standup-3f2a --name "Alice"
  vconf join standup-3f2a --no-video`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return joinRoom(args[0])
	},
}

func joinRoom(roomID string) error {
	cfg, err := config.Load(config.Options{
		Domain:     flagDomain,
		STUNServer: flagSTUN,
		TURNServer: flagTURN,
		TURNUser:   flagTURNUser,
		TURNPass:   flagTURNPass,
	})
	if err != nil {
		return err
	}

	name := flagName
	if name == "" {
		name = os.Getenv("USER")
	}
	if name == "" {
		name = "guest"
	}

	sp := ui.NewConnectionSpinner("Connecting to server...")
	sp.Start()

	channel, err := sigclient.Dial(cfg.WebSocketURL)
	if err != nil {
		sp.Error("Could not reach the meeting server")
		return err
	}
	defer channel.Close()

	joinCtx, cancelJoin := context.WithTimeout(context.Background(), 15*time.Second)
	ack, err := channel.Join(joinCtx, roomID, name)
	cancelJoin()
	if err != nil {
		sp.Error("Join failed")
		return err
	}
	sp.Success(fmt.Sprintf("Joined as %s", name))

	ui.RenderRoomBanner(roomID, cfg.GetRoomLink(roomID))

	local, err := media.NewSource(!flagNoAudio, !flagNoVideo)
	if err != nil {
		return fmt.Errorf("failed to prepare local media: %w", err)
	}

	registry := session.NewRegistry(ack.SelfID, name, channel,
		session.NewPionFactory(cfg, local), local, cfg.NegotiationTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go registry.Run(ctx)

	model := ui.NewMeeting(roomID, cfg.GetRoomLink(roomID), name, ack.Members,
		!flagNoAudio, !flagNoVideo, ui.Hooks{
			SendChat: registry.SendChat,
			SetAudio: func(on bool) {
				if local.SetEnabled(media.KindAudio, on) {
					registry.Renegotiate()
				}
			},
			SetVideo: func(on bool) {
				if local.SetEnabled(media.KindVideo, on) {
					registry.Renegotiate()
				}
			},
		})

	program := tea.NewProgram(model)

	// Pump session events into the view. The events channel closes when
	// the registry tears down, which ends this goroutine.
	go func() {
		for ev := range registry.Events() {
			program.Send(ev)
		}
	}()

	final, err := program.Run()
	cancel()
	if err != nil {
		return fmt.Errorf("display failed: %w", err)
	}

	if meeting, ok := final.(*ui.Meeting); ok {
		if reason := meeting.CloseReason(); reason != "" {
			ui.PrintWarning(reason)
		}
		ui.RenderCallSummary(meeting.Stats())
	}

	return nil
}

func init() {
	joinCmd.Flags().StringVarP(&flagName, "name", "n", "", "display name shown to other participants")
	joinCmd.Flags().BoolVar(&flagNoAudio, "no-audio", false, "join without a microphone track")
	joinCmd.Flags().BoolVar(&flagNoVideo, "no-video", false, "join without a camera track")
	rootCmd.AddCommand(joinCmd)
}
