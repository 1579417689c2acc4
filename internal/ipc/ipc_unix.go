//go:build !windows

package ipc

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"
)

const dialTimeout = time.Second

// socketCandidates returns the possible socket paths for the given index.
// Sandboxed Discord installs (flatpak, snap) place the socket under a
// subdirectory of the runtime dir.
func socketCandidates(i int) []string {
	base := runtimeDir()
	name := fmt.Sprintf("discord-ipc-%d", i)
	return []string{
		filepath.Join(base, name),
		filepath.Join(base, "app", "com.discordapp.Discord", name),
		filepath.Join(base, "snap.discord", name),
	}
}

// runtimeDir resolves the directory Discord creates its socket in,
// in the order the client itself checks.
func runtimeDir() string {
	for _, env := range []string{"XDG_RUNTIME_DIR", "TMPDIR", "TMP", "TEMP"} {
		if dir := os.Getenv(env); dir != "" {
			return dir
		}
	}
	return "/tmp"
}

func dialSocket(path string) (net.Conn, error) {
	return net.DialTimeout("unix", path, dialTimeout)
}
