package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cchaithanya83/video-conferncing-platform/internal/config"
	"github.com/cchaithanya83/video-conferncing-platform/internal/meeting"
	"github.com/cchaithanya83/video-conferncing-platform/internal/ui"
)

var flagTitle string

var createCmd = &cobra.Command{
	Use:     "create",
	Aliases: []string{"c"},
	Short:   "Create a meeting and print its room link",
	Long: `Create a meeting record on the coordination server and print the
room id to share with participants.

Examples:
  vconf create --title "Daily standup"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return createMeeting()
	},
}

func createMeeting() error {
	cfg, err := config.Load(config.Options{Domain: flagDomain})
	if err != nil {
		return err
	}

	host := os.Getenv("USER")
	if host == "" {
		host = "guest"
	}

	body, err := json.Marshal(meeting.Meeting{Title: flagTitle, Host: host})
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(
		fmt.Sprintf("https://%s/meetings", cfg.Domain),
		"application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create meeting: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("server rejected meeting creation: %s", resp.Status)
	}

	var created meeting.Meeting
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return fmt.Errorf("malformed server response: %w", err)
	}

	ui.RenderRoomBanner(created.ID, cfg.GetRoomLink(created.ID))
	ui.PrintSuccessf("Share the room id, then run: vconf join %s", created.ID)
	return nil
}

func init() {
	createCmd.Flags().StringVarP(&flagTitle, "title", "t", "Meeting", "meeting title")
	rootCmd.AddCommand(createCmd)
}
