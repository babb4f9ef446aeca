// Package playback owns the single playback session and coordinates the audio
// backend, the metadata poller and the desktop publisher around it.
package playback

import (
	"time"

	"github.com/samber/mo"

	"github.com/somaray-cli/somaray/catalog"
	"github.com/somaray-cli/somaray/metadata"
)

// State is the lifecycle phase of the playback session.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StatePlaying
	StatePaused
	StateStopped
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateConnecting:
		return "Connecting"
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	case StateStopped:
		return "Stopped"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Session is the full observable playback state. The controller hands out
// copies of it; a Session value is never shared mutable.
type Session struct {
	Channel   mo.Option[catalog.Channel]
	Track     mo.Option[metadata.Track]
	State     State
	Volume    int
	Muted     bool
	LastError mo.Option[string]
	UpdatedAt time.Time
}

// Active reports whether the session currently holds a live stream.
func (s Session) Active() bool {
	return s.State == StatePlaying || s.State == StatePaused
}
