package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rohanmehra/discord-presence-client/internal/config"
	"github.com/rohanmehra/discord-presence-client/internal/settings"
)

func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Interactive first-time setup: client ID and presence fields",
		RunE:  runSetup,
	}
}

func runSetup(cmd *cobra.Command, args []string) error {
	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "To find your Client ID:")
	fmt.Fprintln(out, "  1. Go to https://discord.com/developers/applications")
	fmt.Fprintln(out, "  2. Create or open an application")
	fmt.Fprintln(out, "  3. Copy the Application ID from General Information")
	fmt.Fprintln(out)

	var clientID string
	for {
		id, err := readLine(in, out, "Enter your Discord Client ID: ")
		if err != nil {
			return err
		}
		if !settings.ValidClientID(id) {
			fmt.Fprintln(out, "Invalid client ID: expected a number of at least 15 digits.")
			continue
		}
		clientID = id
		break
	}

	if err := settings.SaveClientID(settings.EnvFileName, clientID); err != nil {
		return err
	}
	fmt.Fprintf(out, "Saved client ID to %s (keep this file out of version control).\n", settings.EnvFileName)

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Customize the presence. Leave a field blank to keep the current value.")

	if v, err := readLine(in, out, fmt.Sprintf("State [%s]: ", cfg.State)); err == nil && v != "" {
		cfg.State = v
	}
	if v, err := readLine(in, out, fmt.Sprintf("Details [%s]: ", cfg.Details)); err == nil && v != "" {
		cfg.Details = v
	}
	if v, err := readLine(in, out, fmt.Sprintf("Large image text [%s]: ", cfg.LargeText)); err == nil && v != "" {
		cfg.LargeText = v
	}
	if v, err := readLine(in, out, fmt.Sprintf("Update interval in seconds [%d]: ", cfg.UpdateInterval)); err == nil && v != "" {
		if n, convErr := strconv.Atoi(v); convErr == nil && n > 0 {
			cfg.UpdateInterval = n
		} else {
			fmt.Fprintln(out, "Not a positive number, keeping the current interval.")
		}
	}

	if err := cfg.Save(configPath); err != nil {
		return err
	}
	fmt.Fprintf(out, "Configuration saved to %s.\n", configPath)
	return nil
}

// readLine prompts and returns a trimmed line. End of input aborts setup
// rather than looping forever.
func readLine(in *bufio.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		if errors.Is(err, io.EOF) {
			return "", errors.New("setup aborted: end of input")
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}
