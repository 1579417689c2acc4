//go:build windows

package ipc

import (
	"fmt"
	"net"
	"time"

	"github.com/Microsoft/go-winio"
)

var dialTimeout = time.Second

func socketCandidates(i int) []string {
	return []string{fmt.Sprintf(`\\.\pipe\discord-ipc-%d`, i)}
}

func dialSocket(path string) (net.Conn, error) {
	return winio.DialPipe(path, &dialTimeout)
}
