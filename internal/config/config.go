// Package config loads and persists the presence configuration file
// (discord_config.json): a flat JSON record of the status fields pushed to
// Discord plus the refresh cadence. Unknown keys are ignored and missing
// keys take documented defaults, so hand-edited files stay forgiving.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// DefaultFileName is where the presence configuration lives unless
// overridden on the command line.
const DefaultFileName = "discord_config.json"

// DefaultUpdateInterval is the refresh cadence in seconds when the file
// does not specify one.
const DefaultUpdateInterval = 15

// Button is a clickable link shown under the presence, at most two.
type Button struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// PresenceConfig is the on-disk configuration record. It is owned by a
// single session for the process lifetime; there is no cross-goroutine
// sharing to guard.
type PresenceConfig struct {
	State          string   `json:"state"`
	Details        string   `json:"details"`
	LargeImage     string   `json:"large_image"`
	LargeText      string   `json:"large_text"`
	SmallImage     string   `json:"small_image,omitempty"`
	SmallText      string   `json:"small_text,omitempty"`
	PartySize      []int    `json:"party_size,omitempty"` // [current, max]
	Buttons        []Button `json:"buttons,omitempty"`
	UpdateInterval int      `json:"update_interval"` // seconds between refreshes
	AutoStart      bool     `json:"auto_start"`
	ClientID       string   `json:"client_id,omitempty"`
}

// LoadError reports a configuration file that could not be read, parsed,
// or written, carrying the path for the top-level error message.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("config file %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Default returns the configuration used when the file is absent.
func Default() *PresenceConfig {
	return &PresenceConfig{
		State:          "Playing a game",
		Details:        "Enjoying Discord",
		LargeImage:     "discord",
		LargeText:      "Discord Rich Presence",
		UpdateInterval: DefaultUpdateInterval,
		AutoStart:      true,
	}
}

// Load reads the configuration file at path. A missing file yields the
// defaults; keys absent from the file keep their default values.
func Load(path string) (*PresenceConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("parse: %w", err)}
	}
	return cfg, nil
}

// Save writes the configuration atomically (temp file + rename) so a crash
// mid-write never leaves a truncated file behind.
func (c *PresenceConfig) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return &LoadError{Path: path, Err: fmt.Errorf("marshal: %w", err)}
	}
	data = append(data, '\n')

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return &LoadError{Path: path, Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return &LoadError{Path: path, Err: err}
	}
	return nil
}

// Validate checks the invariants the session relies on.
// Fails fast on the first error.
func (c *PresenceConfig) Validate() error {
	if c.UpdateInterval <= 0 {
		return fmt.Errorf("update_interval must be positive, got %d", c.UpdateInterval)
	}

	if len(c.Buttons) > 2 {
		return fmt.Errorf("at most 2 buttons allowed, got %d", len(c.Buttons))
	}

	if len(c.PartySize) > 0 {
		if len(c.PartySize) != 2 {
			return fmt.Errorf("party_size must be a [current, max] pair, got %d values", len(c.PartySize))
		}
		if c.PartySize[0] > c.PartySize[1] {
			return fmt.Errorf("party_size current %d exceeds max %d", c.PartySize[0], c.PartySize[1])
		}
	}

	return nil
}
