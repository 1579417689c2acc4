package main

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rohanmehra/discord-presence-client/internal/config"
	"github.com/rohanmehra/discord-presence-client/internal/discord"
	"github.com/rohanmehra/discord-presence-client/internal/logging"
	"github.com/rohanmehra/discord-presence-client/internal/session"
	"github.com/rohanmehra/discord-presence-client/internal/settings"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presenced",
		Short: "Publishes Discord rich presence from a JSON configuration file",
		Long: `presenced connects to the locally running Discord desktop app and
periodically pushes the status fields from discord_config.json as your
rich presence, until interrupted.`,
		Version:      version,
		SilenceUsage: true,
		RunE:         runLoop,
	}

	cmd.PersistentFlags().String("config", config.DefaultFileName, "Path to the presence configuration file")
	cmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
	cmd.PersistentFlags().String("log-format", "", "Log format: text or json (overrides LOG_FORMAT)")

	cmd.Flags().Int("duration", 0, "Stop after this many seconds (0 runs until interrupted)")
	cmd.Flags().Bool("once", false, "Push a single update and exit")

	return cmd
}

func runLoop(cmd *cobra.Command, args []string) error {
	cfg, configPath, clientID, err := initialize(cmd)
	if err != nil {
		return err
	}

	// Write the default file on first run so users have something to edit.
	if _, statErr := os.Stat(configPath); os.IsNotExist(statErr) {
		if saveErr := cfg.Save(configPath); saveErr != nil {
			slog.Warn("could not write default config file", "error", saveErr)
		} else {
			slog.Info("wrote default configuration", "path", configPath)
		}
	}

	sess := session.New(discord.NewClient(clientID), cfg, clockwork.NewRealClock())

	ctx, cancel := session.SetupSignalHandler()
	defer cancel()

	if err := sess.Connect(); err != nil {
		return connectionGuidance(err)
	}
	slog.Info("connected to Discord")

	once, _ := cmd.Flags().GetBool("once")
	durSecs, _ := cmd.Flags().GetInt("duration")

	if once || (!cfg.AutoStart && durSecs == 0) {
		defer sess.Disconnect()
		if err := sess.UpdateStatus(sess.Activity()); err != nil {
			return connectionGuidance(err)
		}
		slog.Info("status updated", "state", cfg.State)
		return nil
	}

	if err := sess.RunContinuous(ctx, time.Duration(durSecs)*time.Second); err != nil {
		return connectionGuidance(err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Disconnected from Discord, presence cleared.")
	return nil
}

// initialize wires settings, logging, config, and client id resolution for
// the root and examples commands.
func initialize(cmd *cobra.Command) (cfg *config.PresenceConfig, configPath, clientID string, err error) {
	sets, err := settings.Load()
	if err != nil {
		return nil, "", "", err
	}

	level, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")
	if level == "" {
		level = sets.LogLevel
	}
	if format == "" {
		format = sets.LogFormat
	}
	logging.Init(level, format)

	configPath, _ = cmd.Flags().GetString("config")
	cfg, err = config.Load(configPath)
	if err != nil {
		return nil, "", "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", "", fmt.Errorf("invalid configuration: %w", err)
	}

	var prompt func() (string, error)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		prompt = promptClientID
	}

	clientID, err = sets.ResolveClientID(cfg, prompt)
	if errors.Is(err, settings.ErrMissingClientID) {
		printClientIDGuidance(os.Stderr)
		return nil, "", "", err
	}
	if err != nil {
		return nil, "", "", err
	}

	return cfg, configPath, clientID, nil
}

// promptClientID asks once on the terminal. A blank answer falls through to
// ErrMissingClientID and the setup guidance.
func promptClientID() (string, error) {
	fmt.Println("No Discord client ID found in the environment or config file.")
	fmt.Print("Enter your Discord Application ID (blank to abort): ")

	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	id := strings.TrimSpace(line)
	if id == "" {
		return "", nil // treat EOF / blank as "not provided"
	}
	if !settings.ValidClientID(id) {
		return "", fmt.Errorf("%q does not look like a Discord application id", id)
	}
	return id, nil
}

func printClientIDGuidance(w *os.File) {
	fmt.Fprintln(w, "No Discord client ID found.")
	fmt.Fprintln(w, "Set DISCORD_CLIENT_ID in the environment or .env, add \"client_id\" to the")
	fmt.Fprintln(w, "config file, or run `presenced setup`.")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "To get a client ID:")
	fmt.Fprintln(w, "  1. Go to https://discord.com/developers/applications")
	fmt.Fprintln(w, "  2. Create or open an application")
	fmt.Fprintln(w, "  3. Copy the Application ID from General Information")
}

// connectionGuidance prints human-readable recovery steps for transport
// failures before handing the error back to cobra.
func connectionGuidance(err error) error {
	if discord.IsConnectionError(err) {
		fmt.Fprintln(os.Stderr, "Could not reach Discord.")
		fmt.Fprintln(os.Stderr, "  - make sure the Discord desktop app is running on this machine")
		fmt.Fprintln(os.Stderr, "  - check that the client ID matches one of your registered applications")
	}
	return err
}
