package main

import (
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/rohanmehra/discord-presence-client/internal/discord"
	"github.com/rohanmehra/discord-presence-client/internal/session"
)

func newExamplesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "examples",
		Short: "Cycle through a fixed sequence of sample presence updates and exit",
		RunE:  runExamples,
	}
	cmd.Flags().Int("hold", 5, "Seconds to keep each example on screen")
	return cmd
}

// examplePresets is the fixed demo sequence: one activity per common
// presence shape, including a party and a buttons example.
func examplePresets() []struct {
	name     string
	activity *discord.Activity
} {
	return []struct {
		name     string
		activity *discord.Activity
	}{
		{
			name: "gaming",
			activity: &discord.Activity{
				State:   "Playing Elden Ring",
				Details: "Exploring the Lands Between",
				Assets:  &discord.Assets{LargeImage: "discord", LargeText: "Elden Ring"},
			},
		},
		{
			name: "watching",
			activity: &discord.Activity{
				Type:    discord.Watching,
				State:   "Watching",
				Details: "Twitch Streamer123",
				Assets:  &discord.Assets{LargeImage: "discord", LargeText: "On Twitch"},
			},
		},
		{
			name: "listening",
			activity: &discord.Activity{
				Type:    discord.Listening,
				State:   "Listening to",
				Details: "Lofi Hip Hop Beats",
				Assets:  &discord.Assets{LargeImage: "discord", LargeText: "Spotify"},
			},
		},
		{
			name: "working",
			activity: &discord.Activity{
				State:   "Working on a Project",
				Details: "Discord Bot Development",
				Assets:  &discord.Assets{LargeImage: "discord", LargeText: "Coding"},
			},
		},
		{
			name: "multiplayer",
			activity: &discord.Activity{
				State:   "Playing Valorant",
				Details: "In Competitive Match",
				Assets:  &discord.Assets{LargeImage: "discord", LargeText: "Valorant - Competitive"},
				Party:   &discord.Party{Size: []int{4, 5}},
			},
		},
		{
			name: "buttons",
			activity: &discord.Activity{
				State:   "Streaming",
				Details: "Come say hi",
				Buttons: []discord.Button{
					{Label: "Watch", URL: "https://twitch.tv/streamer123"},
					{Label: "Discord", URL: "https://discord.gg/example"},
				},
			},
		},
	}
}

func runExamples(cmd *cobra.Command, args []string) error {
	cfg, _, clientID, err := initialize(cmd)
	if err != nil {
		return err
	}

	hold, _ := cmd.Flags().GetInt("hold")

	sess := session.New(discord.NewClient(clientID), cfg, clockwork.NewRealClock())

	ctx, cancel := session.SetupSignalHandler()
	defer cancel()

	if err := sess.Connect(); err != nil {
		return connectionGuidance(err)
	}
	defer sess.Disconnect()
	slog.Info("connected to Discord, showing examples", "hold_seconds", hold)

	for _, ex := range examplePresets() {
		if ctx.Err() != nil {
			break
		}
		if err := sess.UpdateStatus(ex.activity); err != nil {
			return connectionGuidance(err)
		}
		slog.Info("example presence shown", "name", ex.name)

		select {
		case <-ctx.Done():
		case <-time.After(time.Duration(hold) * time.Second):
		}
	}

	slog.Info("examples finished")
	return nil
}
