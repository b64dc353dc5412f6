package hypr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// Environment variables used to locate the compositor's sockets.
const (
	EnvRuntimeDir = "XDG_RUNTIME_DIR"
	EnvSignature  = "HYPRLAND_INSTANCE_SIGNATURE"
)

const eventSocketName = ".socket2.sock"

// ErrSocketNotFound is returned when no event socket can be located.
var ErrSocketNotFound = errors.New("hyprland event socket not found")

// FindEventSocket locates the event socket path.
//
// With HYPRLAND_INSTANCE_SIGNATURE set the path is built directly (and not
// checked); otherwise the first instance directory under
// $XDG_RUNTIME_DIR/hypr that contains a socket wins.
func FindEventSocket() (string, error) {
	runtimeDir := os.Getenv(EnvRuntimeDir)
	if runtimeDir == "" {
		return "", fmt.Errorf("%w: %s is not set", ErrSocketNotFound, EnvRuntimeDir)
	}

	if sig := os.Getenv(EnvSignature); sig != "" {
		return filepath.Join(runtimeDir, "hypr", sig, eventSocketName), nil
	}

	hyprDir := filepath.Join(runtimeDir, "hypr")
	entries, err := os.ReadDir(hyprDir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSocketNotFound, err)
	}

	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		candidate := filepath.Join(hyprDir, entry.Name(), eventSocketName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w in %s", ErrSocketNotFound, hyprDir)
}

// EventConn is a connection to the event socket. One goroutine reads from it;
// any other goroutine may call Interrupt to make a blocked Read return.
type EventConn struct {
	conn *net.UnixConn
	path string
}

// DialEvents connects to the event socket at path.
func DialEvents(ctx context.Context, path string) (*EventConn, error) {
	var d net.Dialer
	c, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", path, err)
	}
	uc, ok := c.(*net.UnixConn)
	if !ok {
		c.Close()
		return nil, fmt.Errorf("connect %s: unexpected connection type %T", path, c)
	}
	return &EventConn{conn: uc, path: path}, nil
}

// Path returns the socket path this connection was dialed on.
func (c *EventConn) Path() string { return c.path }

// Read reads raw event bytes.
func (c *EventConn) Read(p []byte) (int, error) {
	return c.conn.Read(p)
}

// Close releases the connection. Only the reading goroutine closes it.
func (c *EventConn) Close() error {
	return c.conn.Close()
}

// Interrupt shuts the socket down in both directions so a blocked Read
// returns, without closing the descriptor. The expired read deadline covers
// the case where the descriptor was already shut down by the peer.
func (c *EventConn) Interrupt() error {
	raw, err := c.conn.SyscallConn()
	if err != nil {
		return err
	}

	var shutErr error
	if err := raw.Control(func(fd uintptr) {
		shutErr = unix.Shutdown(int(fd), unix.SHUT_RDWR)
	}); err != nil {
		return err
	}

	deadlineErr := c.conn.SetReadDeadline(time.Now())
	if shutErr != nil && !errors.Is(shutErr, unix.ENOTCONN) {
		return fmt.Errorf("shutdown %s: %w", c.path, shutErr)
	}
	return deadlineErr
}
