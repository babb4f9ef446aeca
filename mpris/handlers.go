package mpris

import (
	"context"

	"github.com/godbus/dbus/v5"

	"github.com/somaray-cli/somaray/playback"
)

// rootHandler implements org.mpris.MediaPlayer2. Method names must match the
// D-Bus member names exactly; godbus dispatches by reflection.
type rootHandler struct {
	p *Publisher
}

func (h *rootHandler) Raise() *dbus.Error {
	return nil
}

func (h *rootHandler) Quit() *dbus.Error {
	// A terminal application quits from the terminal. Stopping playback is
	// the closest honest interpretation.
	_ = h.p.ctrl.Stop()
	return nil
}

// playerHandler implements org.mpris.MediaPlayer2.Player.
type playerHandler struct {
	p *Publisher
}

func (h *playerHandler) Play() *dbus.Error {
	snap := h.p.ctrl.Snapshot()
	switch {
	case snap.State == playback.StatePaused:
		_ = h.p.ctrl.TogglePause()
	case !snap.Active():
		if channel, ok := snap.Channel.Get(); ok {
			h.p.ctrl.SelectChannel(context.Background(), channel)
		}
	}
	return nil
}

func (h *playerHandler) Pause() *dbus.Error {
	if h.p.ctrl.Snapshot().State == playback.StatePlaying {
		_ = h.p.ctrl.TogglePause()
	}
	return nil
}

func (h *playerHandler) PlayPause() *dbus.Error {
	_ = h.p.ctrl.TogglePause()
	return nil
}

func (h *playerHandler) Stop() *dbus.Error {
	_ = h.p.ctrl.Stop()
	return nil
}

func (h *playerHandler) Next() *dbus.Error {
	h.p.ctrl.Next(context.Background())
	return nil
}

func (h *playerHandler) Previous() *dbus.Error {
	h.p.ctrl.Previous(context.Background())
	return nil
}

func (h *playerHandler) Seek(offset int64) *dbus.Error {
	return nil // live streams are not seekable
}

func (h *playerHandler) SetPosition(trackID dbus.ObjectPath, position int64) *dbus.Error {
	return nil
}

func (h *playerHandler) OpenUri(uri string) *dbus.Error {
	return nil
}
