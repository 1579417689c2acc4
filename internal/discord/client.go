// Package discord implements the RPC client for the Discord desktop
// application's local IPC endpoint: the version 1 handshake and the
// SET_ACTIVITY command used to publish rich presence.
package discord

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/rohanmehra/discord-presence-client/internal/ipc"
)

// rpcVersion is the only protocol version the Discord client speaks.
const rpcVersion = 1

// ErrNotConnected is returned when an operation requires an established
// connection and none exists.
var ErrNotConnected = errors.New("not connected to Discord")

// ConnectionError wraps a transport-level failure: the Discord client is not
// running, refused the handshake, or dropped the connection mid-session.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("Discord unreachable: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// IsConnectionError reports whether err is a transport-level failure rather
// than a validation or protocol error. Callers use this to decide between
// "start Discord and retry" guidance and reporting a bad payload.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// transport is the framed connection the client speaks over. Satisfied by
// *ipc.Conn; tests substitute an in-memory fake.
type transport interface {
	WriteFrame(op ipc.Opcode, payload []byte) error
	ReadFrame() (ipc.Opcode, []byte, error)
	Close() error
}

// Client is a single logical RPC session with the Discord desktop app.
// It is not safe for concurrent use; the session manager serializes access.
type Client struct {
	clientID string
	dial     func() (transport, error)
	conn     transport
}

// NewClient creates a client for the application registered under clientID.
// No connection is made until Connect.
func NewClient(clientID string) *Client {
	return &Client{
		clientID: clientID,
		dial: func() (transport, error) {
			return ipc.Dial()
		},
	}
}

// ---------------------------------------------------------------------------
// Wire messages
// ---------------------------------------------------------------------------

type handshake struct {
	Version  int    `json:"v"`
	ClientID string `json:"client_id"`
}

type command struct {
	Cmd   string `json:"cmd"`
	Args  any    `json:"args,omitempty"`
	Nonce string `json:"nonce"`
}

type setActivityArgs struct {
	PID      int       `json:"pid"`
	Activity *Activity `json:"activity"`
}

type reply struct {
	Cmd   string          `json:"cmd"`
	Evt   string          `json:"evt"`
	Nonce string          `json:"nonce"`
	Data  json.RawMessage `json:"data"`
}

type closeData struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type errorData struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ---------------------------------------------------------------------------
// Connection lifecycle
// ---------------------------------------------------------------------------

// Connect dials the IPC socket and performs the version 1 handshake,
// waiting for the READY dispatch. No-op when already connected.
func (c *Client) Connect() error {
	if c.conn != nil {
		return nil
	}
	if c.clientID == "" {
		return &ValidationError{Field: "client_id", Reason: "must not be empty"}
	}

	conn, err := c.dial()
	if err != nil {
		return &ConnectionError{Err: err}
	}

	payload, err := json.Marshal(handshake{Version: rpcVersion, ClientID: c.clientID})
	if err != nil {
		conn.Close()
		return fmt.Errorf("marshal handshake: %w", err)
	}
	if err := conn.WriteFrame(ipc.OpHandshake, payload); err != nil {
		conn.Close()
		return &ConnectionError{Err: err}
	}

	op, body, err := conn.ReadFrame()
	if err != nil {
		conn.Close()
		return &ConnectionError{Err: err}
	}

	switch op {
	case ipc.OpFrame:
		var r reply
		if err := json.Unmarshal(body, &r); err != nil {
			conn.Close()
			return fmt.Errorf("parse handshake response: %w", err)
		}
		if r.Evt != "READY" {
			conn.Close()
			return &ConnectionError{Err: fmt.Errorf("handshake rejected with event %q", r.Evt)}
		}
	case ipc.OpClose:
		var cd closeData
		_ = json.Unmarshal(body, &cd)
		conn.Close()
		// Code 4000 is INVALID_CLIENTID; surface the message as-is.
		return &ConnectionError{Err: fmt.Errorf("handshake closed by Discord (%d): %s", cd.Code, cd.Message)}
	default:
		conn.Close()
		return &ConnectionError{Err: fmt.Errorf("unexpected opcode %d during handshake", op)}
	}

	c.conn = conn
	return nil
}

// Connected reports whether a handshake has completed and the connection
// has not been closed since.
func (c *Client) Connected() bool {
	return c.conn != nil
}

// Close sends a close frame and releases the connection.
// Safe to call when not connected.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	_ = c.conn.WriteFrame(ipc.OpClose, []byte("{}"))
	err := c.conn.Close()
	c.conn = nil
	return err
}

// ---------------------------------------------------------------------------
// Activity commands
// ---------------------------------------------------------------------------

// SetActivity publishes the given activity as this process's rich presence.
// The activity is validated before any byte is written, so an invalid update
// never disturbs the currently visible presence. A nil activity clears it.
func (c *Client) SetActivity(a *Activity) error {
	if c.conn == nil {
		return ErrNotConnected
	}
	if a != nil {
		if err := a.Validate(); err != nil {
			return err
		}
	}

	nonce := uuid.New().String()
	payload, err := json.Marshal(command{
		Cmd:   "SET_ACTIVITY",
		Args:  setActivityArgs{PID: os.Getpid(), Activity: a},
		Nonce: nonce,
	})
	if err != nil {
		return fmt.Errorf("marshal SET_ACTIVITY: %w", err)
	}

	if err := c.conn.WriteFrame(ipc.OpFrame, payload); err != nil {
		c.drop()
		return &ConnectionError{Err: err}
	}
	return c.awaitReply(nonce)
}

// ClearActivity removes this process's presence from the profile.
func (c *Client) ClearActivity() error {
	return c.SetActivity(nil)
}

// awaitReply reads frames until the reply carrying nonce arrives, answering
// pings and skipping unsolicited dispatch events along the way.
func (c *Client) awaitReply(nonce string) error {
	for {
		op, body, err := c.conn.ReadFrame()
		if err != nil {
			c.drop()
			return &ConnectionError{Err: err}
		}

		switch op {
		case ipc.OpPing:
			if err := c.conn.WriteFrame(ipc.OpPong, body); err != nil {
				c.drop()
				return &ConnectionError{Err: err}
			}

		case ipc.OpClose:
			var cd closeData
			_ = json.Unmarshal(body, &cd)
			c.drop()
			return &ConnectionError{Err: fmt.Errorf("connection closed by Discord (%d): %s", cd.Code, cd.Message)}

		case ipc.OpFrame:
			var r reply
			if err := json.Unmarshal(body, &r); err != nil {
				return fmt.Errorf("parse command reply: %w", err)
			}
			if r.Nonce != nonce {
				continue // unsolicited event, not our reply
			}
			if r.Evt == "ERROR" {
				var ed errorData
				_ = json.Unmarshal(r.Data, &ed)
				return fmt.Errorf("Discord rejected activity (%d): %s", ed.Code, ed.Message)
			}
			return nil

		default:
			return fmt.Errorf("unexpected opcode %d while awaiting reply", op)
		}
	}
}

// drop discards the connection after a transport failure. Subsequent calls
// report ErrNotConnected until Connect succeeds again.
func (c *Client) drop() {
	_ = c.conn.Close()
	c.conn = nil
}
