// Package settings loads process-level settings from the environment,
// including a local .env file, and resolves the Discord client id with an
// explicit precedence order: environment, config file, interactive prompt.
package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"go-simpler.org/env"

	"github.com/rohanmehra/discord-presence-client/internal/config"
)

// EnvFileName is the local secrets file written by the setup command and
// read on startup. It is git-ignored and never committed.
const EnvFileName = ".env"

// minClientIDLength is the shortest plausible Discord application id;
// real ids are snowflakes of 17+ digits.
const minClientIDLength = 15

// ErrMissingClientID is returned when no client id could be resolved from
// any source. The top-level entry point turns it into setup guidance.
var ErrMissingClientID = errors.New("no Discord client id configured")

// Settings holds environment-derived process settings.
type Settings struct {
	ClientID  string `env:"DISCORD_CLIENT_ID"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
}

// Load reads the .env file if present, then maps the process environment
// onto a Settings struct.
func Load() (*Settings, error) {
	if err := godotenv.Load(EnvFileName); err != nil {
		slog.Debug("no .env file found, using process environment")
	}

	var s Settings
	if err := env.Load(&s, nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}
	return &s, nil
}

// ResolveClientID returns the Discord client id, checking sources in
// precedence order: environment (including .env), the config file's
// client_id field, then the interactive prompt. prompt may be nil when no
// terminal is attached; the zero result is ErrMissingClientID.
func (s *Settings) ResolveClientID(cfg *config.PresenceConfig, prompt func() (string, error)) (string, error) {
	if s.ClientID != "" {
		return s.ClientID, nil
	}
	if cfg != nil && cfg.ClientID != "" {
		return cfg.ClientID, nil
	}
	if prompt != nil {
		id, err := prompt()
		if err != nil {
			return "", fmt.Errorf("prompt for client id: %w", err)
		}
		if id != "" {
			return id, nil
		}
	}
	return "", ErrMissingClientID
}

// ValidClientID reports whether id looks like a Discord application id:
// digits only and long enough to be a snowflake.
func ValidClientID(id string) bool {
	if len(id) < minClientIDLength {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// SaveClientID persists the client id into the .env file at path,
// preserving any other keys already present.
func SaveClientID(path, id string) error {
	vars, err := godotenv.Read(path)
	if err != nil {
		vars = map[string]string{}
	}
	vars["DISCORD_CLIENT_ID"] = strings.TrimSpace(id)

	if err := godotenv.Write(vars, path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
