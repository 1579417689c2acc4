// Package ipc implements the framed transport spoken by the Discord desktop
// client's local IPC endpoint: a Unix domain socket on Linux/macOS, a named
// pipe on Windows. Each frame is a little-endian uint32 opcode, a little-endian
// uint32 payload length, and a JSON payload.
package ipc

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

// Opcode identifies the frame type on the wire.
type Opcode uint32

const (
	OpHandshake Opcode = iota // first frame after dial; carries version + client id
	OpFrame                   // command / event payload
	OpClose                   // peer is closing the connection; carries code + message
	OpPing
	OpPong
)

// maxPayloadSize caps the payload read to prevent memory exhaustion on a
// corrupt length header.
const maxPayloadSize = 1 << 20 // 1 MB

// maxSocketIndex is the highest discord-ipc-N suffix probed by Dial. The
// Discord client binds the first free slot, so multiple running clients
// occupy consecutive indices.
const maxSocketIndex = 9

const headerSize = 8

// Conn is a framed connection to the Discord client.
type Conn struct {
	c net.Conn
}

// Dial probes the platform IPC paths (discord-ipc-0 through discord-ipc-9)
// and returns a connection to the first endpoint that accepts.
func Dial() (*Conn, error) {
	var lastErr error
	for i := 0; i <= maxSocketIndex; i++ {
		for _, path := range socketCandidates(i) {
			c, err := dialSocket(path)
			if err == nil {
				return &Conn{c: c}, nil
			}
			lastErr = err
		}
	}
	return nil, fmt.Errorf("no Discord IPC socket accepting connections: %w", lastErr)
}

// WriteFrame writes a single frame with the given opcode and payload.
func (c *Conn) WriteFrame(op Opcode, payload []byte) error {
	buf := make([]byte, headerSize+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(op))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(payload)))
	copy(buf[headerSize:], payload)

	if _, err := c.c.Write(buf); err != nil {
		return fmt.Errorf("write IPC frame: %w", err)
	}
	return nil
}

// ReadFrame reads a single frame, returning its opcode and payload.
func (c *Conn) ReadFrame() (Opcode, []byte, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(c.c, header); err != nil {
		return 0, nil, fmt.Errorf("read IPC frame header: %w", err)
	}

	op := Opcode(binary.LittleEndian.Uint32(header[0:4]))
	length := binary.LittleEndian.Uint32(header[4:8])
	if length > maxPayloadSize {
		return 0, nil, fmt.Errorf("IPC frame payload of %d bytes exceeds %d byte limit", length, maxPayloadSize)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(c.c, payload); err != nil {
		return 0, nil, fmt.Errorf("read IPC frame payload: %w", err)
	}
	return op, payload, nil
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.c.Close()
}
