package player

import (
	"context"
	"crypto/rand"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/somaray-cli/somaray/log"
)

const (
	socketWaitRetries = 10
	socketWaitDelay   = 300 * time.Millisecond
)

// MPV implements the Transport interface using mpv's JSON-IPC protocol.
// A single idle mpv process is spawned on Start and reused for every stream.
type MPV struct {
	socketPath string
	cmd        *exec.Cmd
	exited     chan struct{} // closed when mpv process exits
	events     chan Event
	listener   *eventListener
	mu         sync.Mutex // Protects socket writes
	closeOnce  sync.Once
}

// NewMPV creates a new MPV transport (does not spawn the process yet).
func NewMPV() *MPV {
	return &MPV{
		exited: make(chan struct{}),
		events: make(chan Event, 8),
	}
}

// Start spawns the idle mpv process and begins listening for its events.
func (m *MPV) Start() error {
	// Random socket path under os.TempDir() for cross-platform support
	// (macOS $TMPDIR is /var/folders/... not /tmp/).
	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		return fmt.Errorf("generate socket name: %w", err)
	}
	m.socketPath = filepath.Join(os.TempDir(), fmt.Sprintf("somaray-%x.sock", randomBytes))

	args := []string{
		"--no-terminal",
		"--really-quiet",
		"--no-video",
		"--idle=yes",
		fmt.Sprintf("--input-ipc-server=%s", m.socketPath),
	}

	m.cmd = exec.Command("mpv", args...)

	// Detach from parent process group to prevent cascading shell panics.
	m.cmd.SysProcAttr = sysProcAttr()

	// Disable standard pipes to prevent resource leaks.
	m.cmd.Stdout = nil
	m.cmd.Stderr = nil
	m.cmd.Stdin = nil

	if err := m.cmd.Start(); err != nil {
		return fmt.Errorf("start mpv: %w", err)
	}

	// Background goroutine to reap the process and prevent zombies.
	go func() {
		_ = m.cmd.Wait()
		close(m.exited)
		m.emit(Event{Kind: EventError, Cause: "audio backend exited"})
	}()

	if err := m.waitForSocket(); err != nil {
		select {
		case <-m.exited:
		default:
			log.Warnf("killing mpv: socket never became ready")
			_ = m.cmd.Process.Kill()
		}
		return fmt.Errorf("mpv socket not ready: %w", err)
	}

	m.listener = newEventListener(m.socketPath, m.emit)
	if err := m.listener.Start(); err != nil {
		return fmt.Errorf("mpv event listener: %w", err)
	}

	return nil
}

// waitForSocket polls until the mpv IPC socket is accepting connections.
func (m *MPV) waitForSocket() error {
	for i := 0; i < socketWaitRetries; i++ {
		time.Sleep(socketWaitDelay)

		select {
		case <-m.exited:
			return fmt.Errorf("mpv exited before socket was ready")
		default:
		}

		conn, err := net.Dial("unix", m.socketPath)
		if err == nil {
			conn.Close()
			return nil
		}
	}
	return fmt.Errorf("socket %s not ready after %d attempts", m.socketPath, socketWaitRetries)
}

// Load replaces the current stream with url and unpauses. Cancelling ctx
// between IPC retries abandons the load without it reaching the backend.
func (m *MPV) Load(ctx context.Context, rawURL string) error {
	safeURL, err := sanitizeStreamURL(rawURL)
	if err != nil {
		return fmt.Errorf("invalid stream target: %w", err)
	}

	if _, err := m.send(ctx, "loadfile", safeURL, "replace"); err != nil {
		return err
	}
	return m.set("pause", false)
}

// Play resumes a paused stream.
func (m *MPV) Play() error {
	return m.set("pause", false)
}

// Pause suspends output.
func (m *MPV) Pause() error {
	return m.set("pause", true)
}

// Stop drops the active stream; the process stays alive in idle mode.
func (m *MPV) Stop() error {
	_, err := m.send(context.Background(), "stop")
	return err
}

// SetVolume sets the output volume (0-100).
func (m *MPV) SetVolume(level int) error {
	return m.set("volume", level)
}

// SetMute toggles audible output.
func (m *MPV) SetMute(on bool) error {
	return m.set("mute", on)
}

// Events returns the backend notification stream.
func (m *MPV) Events() <-chan Event {
	return m.events
}

// IsRunning reports whether mpv is responding to IPC commands.
func (m *MPV) IsRunning() bool {
	if m.socketPath == "" {
		return false
	}

	select {
	case <-m.exited:
		return false
	default:
	}

	_, err := m.send(context.Background(), "get_property", "pid")
	return err == nil
}

// Close shuts down the mpv process and cleans up resources.
func (m *MPV) Close() error {
	m.closeOnce.Do(func() {
		if m.listener != nil {
			m.listener.Stop()
		}

		if m.socketPath == "" {
			return
		}

		// Try graceful quit via IPC.
		_, _ = m.send(context.Background(), "quit")

		select {
		case <-m.exited:
			// Clean exit
		case <-time.After(3 * time.Second):
			_ = killProcess(m.cmd)
		}

		_ = os.Remove(m.socketPath)
	})
	return nil
}

// Socket returns the IPC socket path.
func (m *MPV) Socket() string {
	return m.socketPath
}

func (m *MPV) set(property string, value interface{}) error {
	_, err := m.send(context.Background(), "set_property", property, value)
	return err
}

// emit delivers a backend event without ever blocking the source; the oldest
// pending event is sacrificed under pressure.
func (m *MPV) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
		select {
		case <-m.events:
		default:
		}
		select {
		case m.events <- ev:
		default:
		}
	}
}

// sanitizeStreamURL validates that a URL is safe to pass to mpv.
func sanitizeStreamURL(link string) (string, error) {
	l := strings.TrimSpace(link)
	if l == "" {
		return "", fmt.Errorf("empty URL")
	}

	if strings.ContainsAny(l, "\x00\n\r") {
		return "", fmt.Errorf("invalid control characters in URL")
	}

	// Prevent flag injection: URLs must not start with -
	if strings.HasPrefix(l, "-") {
		return "", fmt.Errorf("url must not start with '-' (looks like a flag)")
	}

	u, err := url.Parse(l)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return l, nil
	default:
		return "", fmt.Errorf("unsupported URL scheme: %s", u.Scheme)
	}
}
