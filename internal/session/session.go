// Package session implements the status-update session manager: a single
// logical session against the Discord client that keeps the visible rich
// presence synchronized with the configuration on a timer.
package session

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/rohanmehra/discord-presence-client/internal/config"
	"github.com/rohanmehra/discord-presence-client/internal/discord"
)

// State is the session lifecycle state.
type State int

const (
	StateDisconnected State = iota // initial; also entered on Disconnect or send failure
	StateConnected                 // entered by a successful Connect
)

func (s State) String() string {
	if s == StateConnected {
		return "connected"
	}
	return "disconnected"
}

// PresenceClient is the subset of the Discord RPC client the session uses.
// Tests substitute an in-memory fake.
type PresenceClient interface {
	Connect() error
	SetActivity(*discord.Activity) error
	Close() error
}

// Session owns one connection to Discord and the current configuration
// record. It is single-threaded: all operations run on the caller's
// goroutine, and the refresh loop performs strictly sequential updates.
type Session struct {
	client PresenceClient
	cfg    *config.PresenceConfig
	clock  clockwork.Clock
	state  State

	// startedAt anchors the elapsed-time timer shown on the presence.
	// Set on Connect so the timer reflects session age, not update age.
	startedAt time.Time
}

// New creates a session manager over the given client and configuration.
// Pass clockwork.NewRealClock outside of tests.
func New(client PresenceClient, cfg *config.PresenceConfig, clock clockwork.Clock) *Session {
	return &Session{
		client: client,
		cfg:    cfg,
		clock:  clock,
	}
}

// SetupSignalHandler installs SIGINT/SIGTERM handlers and returns a context
// that is cancelled when a signal is received. Call before RunContinuous.
func SetupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig.String())
		cancel()
	}()
	return ctx, cancel
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Connect opens the underlying connection. The client id lives in the RPC
// client, which rejects an empty one before dialing; the config record may
// legitimately omit client_id when the id was resolved from the environment.
// Fails with a *discord.ConnectionError when the Discord client is not
// running; no retry is performed here — the caller decides.
func (s *Session) Connect() error {
	if s.state == StateConnected {
		return nil
	}

	if err := s.client.Connect(); err != nil {
		return err
	}
	s.state = StateConnected
	s.startedAt = s.clock.Now()
	return nil
}

// Disconnect releases the connection. Idempotent: safe to call when
// already disconnected.
func (s *Session) Disconnect() {
	if s.state == StateDisconnected {
		return
	}
	if err := s.client.Close(); err != nil {
		slog.Warn("error closing Discord connection", "error", err)
	}
	s.state = StateDisconnected
}

// UpdateStatus validates the activity and sends it to the active
// connection. Validation happens before any byte is written, so an invalid
// update leaves the previously visible presence unchanged. Returns
// discord.ErrNotConnected when called before a successful Connect. A
// transport failure during the send transitions the session back to
// Disconnected.
func (s *Session) UpdateStatus(a *discord.Activity) error {
	if s.state != StateConnected {
		return discord.ErrNotConnected
	}
	if err := a.Validate(); err != nil {
		return err
	}

	if err := s.client.SetActivity(a); err != nil {
		if discord.IsConnectionError(err) {
			s.Disconnect()
		}
		return err
	}
	return nil
}

// Activity builds the presence payload from the current configuration.
func (s *Session) Activity() *discord.Activity {
	cfg := s.cfg
	a := &discord.Activity{
		Type:    discord.Playing,
		State:   cfg.State,
		Details: cfg.Details,
	}

	if !s.startedAt.IsZero() {
		a.Timestamps = &discord.Timestamps{Start: s.startedAt.Unix()}
	}

	if cfg.LargeImage != "" || cfg.LargeText != "" || cfg.SmallImage != "" || cfg.SmallText != "" {
		a.Assets = &discord.Assets{
			LargeImage: cfg.LargeImage,
			LargeText:  cfg.LargeText,
			SmallImage: cfg.SmallImage,
			SmallText:  cfg.SmallText,
		}
	}

	if len(cfg.PartySize) == 2 {
		a.Party = &discord.Party{Size: []int{cfg.PartySize[0], cfg.PartySize[1]}}
	}

	for _, b := range cfg.Buttons {
		a.Buttons = append(a.Buttons, discord.Button{Label: b.Label, URL: b.URL})
	}

	return a
}

// RunContinuous pushes the configured status immediately, then once per
// update interval until duration elapses (zero means run until cancelled)
// or ctx is cancelled. The connection is always released before returning —
// this is the session's one cleanup guarantee.
//
// A transport failure mid-loop (Discord quit after startup) ends the loop
// and surfaces the error; reconnecting is left to the caller.
func (s *Session) RunContinuous(ctx context.Context, duration time.Duration) error {
	if s.state != StateConnected {
		return discord.ErrNotConnected
	}
	defer s.Disconnect()

	interval := time.Duration(s.cfg.UpdateInterval) * time.Second
	if interval <= 0 {
		return &discord.ValidationError{Field: "update_interval", Reason: "must be positive"}
	}
	start := s.clock.Now()

	// The first update follows the same policy as every tick: connection
	// failures end the run, rejections are logged and retried next tick.
	if err := s.UpdateStatus(s.Activity()); err != nil {
		if discord.IsConnectionError(err) {
			return err
		}
		slog.Warn("status update rejected", "error", err)
	}
	slog.Info("presence loop started", "state", s.cfg.State, "interval", interval)

	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.Chan():
			// Check the deadline before sending so a tick landing exactly on
			// the deadline does not produce one extra update.
			if duration > 0 && s.clock.Since(start) >= duration {
				return nil
			}
			if err := s.UpdateStatus(s.Activity()); err != nil {
				if discord.IsConnectionError(err) {
					return err
				}
				slog.Warn("status update rejected", "error", err)
			}
		}
	}
}
