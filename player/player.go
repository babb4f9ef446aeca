// Package player defines the command/control boundary to the external audio backend.
// The primary implementation targets 'mpv' via its JSON-IPC interface; all real
// decoding and output happens in the backend process.
package player

import "context"

// EventKind discriminates backend notifications.
type EventKind int

const (
	// EventStarted signals that the backend began producing audio for the
	// most recently loaded URL.
	EventStarted EventKind = iota
	// EventEnded signals that the stream finished on its own.
	EventEnded
	// EventError signals a backend-reported failure.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventEnded:
		return "ended"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a backend notification delivered on the transport's event channel.
type Event struct {
	Kind  EventKind
	Cause string
}

// Transport encapsulates the required capabilities of an audio backend.
type Transport interface {
	// Load points the backend at a new stream URL and starts playback of it,
	// replacing whatever was playing. A nil return only acknowledges the
	// command; whether the stream actually plays arrives asynchronously as an
	// EventStarted or EventError event. Cancelling ctx abandons the load
	// before it reaches the backend.
	Load(ctx context.Context, url string) error

	// Play resumes a paused stream.
	Play() error

	// Pause suspends audio output without dropping the stream.
	Pause() error

	// Stop tears down the active stream while keeping the backend alive.
	Stop() error

	// SetVolume sets the effective output volume (0-100).
	SetVolume(level int) error

	// SetMute toggles audible output without altering the volume level.
	SetMute(on bool) error

	// Events returns the stream of backend notifications. The channel stays
	// open for the transport's lifetime; consumers stop via their own context.
	Events() <-chan Event

	// Close terminates the backend process and releases all resources.
	Close() error
}
