// Package mpris exposes the playback session on the D-Bus session bus as an
// org.mpris.MediaPlayer2 service, so desktop media keys and applets control
// somaray like any other player. The whole feature is best-effort: when the
// bus is missing or misbehaves the publisher turns itself off and playback
// continues untouched.
package mpris

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"
	"github.com/spf13/viper"

	"github.com/somaray-cli/somaray/constant"
	"github.com/somaray-cli/somaray/key"
	"github.com/somaray-cli/somaray/log"
	"github.com/somaray-cli/somaray/playback"
)

const (
	objectPath  = dbus.ObjectPath("/org/mpris/MediaPlayer2")
	rootIface   = "org.mpris.MediaPlayer2"
	playerIface = "org.mpris.MediaPlayer2.Player"

	debounceWindow = 200 * time.Millisecond
)

// Publisher mirrors the playback session onto the session bus and dispatches
// inbound media-key commands back to the controller.
type Publisher struct {
	ctrl  *playback.Controller
	conn  *dbus.Conn
	props *prop.Properties

	mu      sync.Mutex
	enabled bool

	stop     chan struct{}
	stopOnce sync.Once
}

func New(ctrl *playback.Controller) *Publisher {
	return &Publisher{
		ctrl: ctrl,
		stop: make(chan struct{}),
	}
}

// Start connects to the session bus, claims the well-known name and begins
// mirroring session updates. Any failure leaves the publisher disabled and
// returns nil: desktop integration is never allowed to break playback.
func (p *Publisher) Start(ctx context.Context) error {
	if !viper.GetBool(key.MPRISEnable) {
		log.Debugf("mpris disabled by configuration")
		return nil
	}

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		log.Warnf("mpris: session bus unavailable: %v", err)
		return nil
	}

	if err := p.export(conn); err != nil {
		log.Warnf("mpris: export failed: %v", err)
		_ = conn.Close()
		return nil
	}

	reply, err := conn.RequestName(constant.MPRISName, dbus.NameFlagReplaceExisting)
	if err != nil || reply != dbus.RequestNameReplyPrimaryOwner {
		log.Warnf("mpris: could not claim %s", constant.MPRISName)
		_ = conn.Close()
		return nil
	}

	p.mu.Lock()
	p.conn = conn
	p.enabled = true
	p.mu.Unlock()

	go p.publishLoop(ctx)

	log.Infof("mpris service registered as %s", constant.MPRISName)
	return nil
}

func (p *Publisher) export(conn *dbus.Conn) error {
	if err := conn.Export(&rootHandler{p}, objectPath, rootIface); err != nil {
		return err
	}
	if err := conn.Export(&playerHandler{p}, objectPath, playerIface); err != nil {
		return err
	}

	props, err := prop.Export(conn, objectPath, p.propertySpec())
	if err != nil {
		return err
	}
	p.props = props
	return nil
}

func (p *Publisher) propertySpec() map[string]map[string]*prop.Prop {
	constProp := func(v interface{}) *prop.Prop {
		return &prop.Prop{Value: v, Writable: false, Emit: prop.EmitFalse}
	}

	return map[string]map[string]*prop.Prop{
		rootIface: {
			"CanQuit":             constProp(true),
			"CanRaise":            constProp(false),
			"HasTrackList":        constProp(false),
			"Identity":            constProp("somaray"),
			"SupportedUriSchemes": constProp([]string{"http", "https"}),
			"SupportedMimeTypes":  constProp([]string{"audio/mpeg", "audio/aacp"}),
		},
		playerIface: {
			"PlaybackStatus": {Value: "Stopped", Writable: false, Emit: prop.EmitTrue},
			"Metadata":       {Value: map[string]dbus.Variant{}, Writable: false, Emit: prop.EmitTrue},
			"Volume": {
				Value:    1.0,
				Writable: true,
				Emit:     prop.EmitTrue,
				Callback: p.volumeChanged,
			},
			"Position":      constProp(int64(0)),
			"Rate":          constProp(1.0),
			"MinimumRate":   constProp(1.0),
			"MaximumRate":   constProp(1.0),
			"CanGoNext":     constProp(true),
			"CanGoPrevious": constProp(true),
			"CanPlay":       constProp(true),
			"CanPause":      constProp(true),
			"CanSeek":       constProp(false),
			"CanControl":    constProp(true),
		},
	}
}

// volumeChanged handles writes to the Volume property from desktop applets.
// MPRIS uses 0.0..1.0 doubles, the session uses 0..100.
func (p *Publisher) volumeChanged(c *prop.Change) *dbus.Error {
	level, ok := c.Value.(float64)
	if !ok {
		return dbus.MakeFailedError(fmt.Errorf("volume must be a double"))
	}
	if err := p.ctrl.SetVolume(int(level*100 + 0.5)); err != nil {
		log.Warnf("mpris: set volume: %v", err)
	}
	return nil
}

// publishLoop debounces session transitions into property updates. Rapid
// bursts collapse into one update carrying the latest session.
func (p *Publisher) publishLoop(ctx context.Context) {
	sub := p.ctrl.Subscribe()

	timer := time.NewTimer(debounceWindow)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	var latest playback.Session
	pending := false

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case session := <-sub:
			latest = session
			if !pending {
				pending = true
				timer.Reset(debounceWindow)
			}
		case <-timer.C:
			if pending {
				pending = false
				p.publish(latest)
			}
		}
	}
}

func (p *Publisher) publish(session playback.Session) {
	p.mu.Lock()
	props := p.props
	enabled := p.enabled
	p.mu.Unlock()
	if !enabled || props == nil {
		return
	}

	if err := props.Set(playerIface, "PlaybackStatus", dbus.MakeVariant(statusOf(session))); err != nil {
		p.failAndDisable(err)
		return
	}

	volume := float64(session.Volume) / 100
	if session.Muted {
		volume = 0
	}
	if err := props.Set(playerIface, "Volume", dbus.MakeVariant(volume)); err != nil {
		p.failAndDisable(err)
		return
	}

	if viper.GetBool(key.MPRISSendMetadata) {
		if err := props.Set(playerIface, "Metadata", dbus.MakeVariant(metadataOf(session))); err != nil {
			p.failAndDisable(err)
		}
	}
}

func (p *Publisher) failAndDisable(err error) {
	log.Warnf("mpris: publish failed, disabling desktop integration: %v", err)
	p.Disable()
}

// Disable releases the bus name and stops publishing. Safe to call more than
// once and on a publisher that never started.
func (p *Publisher) Disable() {
	p.stopOnce.Do(func() { close(p.stop) })

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return
	}
	p.enabled = false
	if p.conn != nil {
		_, _ = p.conn.ReleaseName(constant.MPRISName)
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Enabled reports whether the publisher currently owns the bus name.
func (p *Publisher) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

func statusOf(session playback.Session) string {
	switch session.State {
	case playback.StatePlaying, playback.StateConnecting:
		return "Playing"
	case playback.StatePaused:
		return "Paused"
	default:
		return "Stopped"
	}
}

func metadataOf(session playback.Session) map[string]dbus.Variant {
	meta := map[string]dbus.Variant{}

	channel, hasChannel := session.Channel.Get()
	if hasChannel {
		meta["mpris:trackid"] = dbus.MakeVariant(dbus.ObjectPath("/org/somaray/channel/" + channel.ID))
		meta["xesam:album"] = dbus.MakeVariant(channel.Title)
		if channel.Description != "" {
			meta["xesam:comment"] = dbus.MakeVariant(channel.Description)
		}
	}

	if track, ok := session.Track.Get(); ok {
		if track.Artist != "" {
			meta["xesam:artist"] = dbus.MakeVariant([]string{track.Artist})
		}
		if track.Title != "" {
			meta["xesam:title"] = dbus.MakeVariant(track.Title)
		}
		if art, ok := track.Art.Get(); ok {
			meta["mpris:artUrl"] = dbus.MakeVariant(art)
		}
	}

	return meta
}
