// Package ipc provides the local control channel between a running clipsync
// daemon and CLI tools such as `clipsync status`.
//
// On Linux and macOS it is a Unix domain socket; on Windows a named pipe.
// The daemon listens, the CLI dials. HTTP is spoken over it (see statusapi).
package ipc

import (
	"context"
	"net"
	"os"
)

// SocketPath returns the platform-appropriate path for the control socket.
//
//   - $CLIPSYNC_SOCKET when set
//   - Linux:   $XDG_RUNTIME_DIR/clipsync.sock, else $TMPDIR/clipsync.sock
//   - macOS:   $TMPDIR/clipsync.sock
//   - Windows: \\.\pipe\clipsync
func SocketPath() string {
	if s := os.Getenv("CLIPSYNC_SOCKET"); s != "" {
		return s
	}
	return socketPath()
}

// IsRunning reports whether a daemon appears to be listening on the control
// socket. It does a cheap dial-and-close; no data is exchanged.
func IsRunning() bool {
	c, err := Dial(context.Background())
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

// Listen creates a listener on the control socket, replacing a stale socket
// left by a crashed run.
func Listen() (net.Listener, error) {
	return listenIPC(SocketPath())
}

// Dial connects to the control socket.
func Dial(ctx context.Context) (net.Conn, error) {
	return dialIPC(ctx, SocketPath())
}
