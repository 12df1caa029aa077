// Package socket provides the Unix domain socket the MiniMessenger daemon
// serves its API on, and the dialer the CLI uses to reach it.
package socket

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/Krakenied/MiniMessenger/internal/log"
)

// DaemonProcessName is the executable name of the daemon.
const DaemonProcessName = "minimessengerd"

const (
	// DefaultMode restricts the socket to its owner.
	DefaultMode os.FileMode = 0o600
	// DefaultStartupTimeout is how long Dial waits for a starting daemon.
	DefaultStartupTimeout = 5 * time.Second
	// DefaultRetryInterval is the pause between dial attempts.
	DefaultRetryInterval = 250 * time.Millisecond
)

var (
	// ErrAddressInUse is returned when a live daemon already owns the socket.
	ErrAddressInUse = errors.New("address already in use")
	// ErrNotRunning is returned when no daemon process answers.
	ErrNotRunning = errors.New("daemon not running")
	// ErrNotSocket is returned when the socket path holds some other file.
	ErrNotSocket = errors.New("path exists and is not a socket")
)

// Options control Listen and Dial.
type Options struct {
	Mode           os.FileMode
	StartupTimeout time.Duration
	RetryInterval  time.Duration
	ProcessName    string
	Processes      ProcessChecker
}

// Option mutates Options.
type Option func(*Options)

// WithMode sets the permissions of the listening socket.
func WithMode(mode os.FileMode) Option {
	return func(o *Options) {
		if mode != 0 {
			o.Mode = mode
		}
	}
}

// WithStartupTimeout bounds how long Dial waits for a daemon that is running
// but not yet accepting.
func WithStartupTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.StartupTimeout = d
		}
	}
}

// WithRetryInterval sets the pause between dial attempts.
func WithRetryInterval(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.RetryInterval = d
		}
	}
}

// WithProcessChecker replaces the process table lookup.
func WithProcessChecker(pc ProcessChecker) Option {
	return func(o *Options) { o.Processes = pc }
}

func newOptions(opts []Option) Options {
	o := Options{
		Mode:           DefaultMode,
		StartupTimeout: DefaultStartupTimeout,
		RetryInterval:  DefaultRetryInterval,
		ProcessName:    DaemonProcessName,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Processes == nil {
		o.Processes = NewProcesses(nil)
	}
	return o
}

// Listen binds the daemon socket at path. The parent directory is created,
// a stale socket left by a crashed daemon is replaced, and a socket some
// live daemon still answers on is refused with ErrAddressInUse.
func Listen(path string, opts ...Option) (net.Listener, error) {
	o := newOptions(opts)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating socket directory: %w", err)
	}
	if err := removeStale(path); err != nil {
		return nil, err
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("creating socket listener: %w", err)
	}
	if err := os.Chmod(path, o.Mode); err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("setting socket permissions: %w", err)
	}

	log.Debug("socket listening", "path", path, "mode", o.Mode.String())
	return ln, nil
}

// Dial connects to the daemon socket. While the daemon process is running
// failed attempts are retried until the startup timeout; when it is not
// running Dial fails at once with ErrNotRunning.
func Dial(ctx context.Context, path string, opts ...Option) (net.Conn, error) {
	o := newOptions(opts)
	deadline := time.Now().Add(o.StartupTimeout)
	dialer := &net.Dialer{}

	for {
		conn, err := dialer.DialContext(ctx, "unix", path)
		if err == nil {
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if !o.Processes.Running(o.ProcessName) {
			return nil, fmt.Errorf("%w: %v", ErrNotRunning, err)
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: no answer within %s: %v", ErrNotRunning, o.StartupTimeout, err)
		}

		log.Debug("daemon starting, retrying dial", "path", path)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(o.RetryInterval):
		}
	}
}

// Cleanup removes the socket file at path. A missing file is not an error,
// and a file that is not a socket is left alone.
func Cleanup(path string) error {
	fi, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("inspecting socket: %w", err)
	}
	if fi.Mode()&fs.ModeSocket == 0 {
		return fmt.Errorf("%w: %s", ErrNotSocket, path)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing socket: %w", err)
	}
	return nil
}

func removeStale(path string) error {
	fi, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("inspecting socket: %w", err)
	}
	if fi.Mode()&fs.ModeSocket == 0 {
		return fmt.Errorf("%w: %s", ErrNotSocket, path)
	}

	if conn, err := net.Dial("unix", path); err == nil {
		_ = conn.Close()
		return ErrAddressInUse
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing stale socket: %w", err)
	}
	log.Info("removed stale socket", "path", path)
	return nil
}
