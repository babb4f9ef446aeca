package playback

import (
	"context"
	"sync"
	"time"

	"github.com/samber/mo"
	"github.com/spf13/viper"

	"github.com/somaray-cli/somaray/buffer"
	"github.com/somaray-cli/somaray/catalog"
	"github.com/somaray-cli/somaray/key"
	"github.com/somaray-cli/somaray/log"
	"github.com/somaray-cli/somaray/metadata"
	"github.com/somaray-cli/somaray/player"
	"github.com/somaray-cli/somaray/util"
)

// Publisher is the optional desktop-integration surface the controller
// disables during shutdown. Registered by the mpris package.
type Publisher interface {
	Disable()
}

// startConfirmTimeout bounds how long a dial waits for the backend to confirm
// that a loaded endpoint actually started producing audio.
const startConfirmTimeout = 15 * time.Second

// Controller is the single writer of the playback session. All mutation goes
// through its methods under one mutex; consumers read copies via Snapshot or
// a Subscribe channel. Backend and network calls are never made while the
// lock is held.
//
// Every select bumps the generation counter and carries its own cancellable
// context. A superseded dial is cancelled before it can issue another load,
// and its results and side effects are discarded by re-checking the
// generation under the lock. Backend events are stamped the same way: loadGen
// records the generation whose load last reached the backend, so events left
// over from a superseded load are dropped instead of being applied to the new
// session.
type Controller struct {
	mu          sync.Mutex
	session     Session
	generation  uint64
	loadGen     uint64
	retried     bool
	channels    []catalog.Channel
	subscribers []chan Session
	dialCancel  context.CancelFunc
	confirm     chan player.Event

	transport player.Transport
	poller    *metadata.Poller
	buf       *buffer.Buffer
	sampler   *buffer.Sampler
	publisher Publisher
}

func New(transport player.Transport, poller *metadata.Poller, buf *buffer.Buffer) *Controller {
	var sampler *buffer.Sampler
	if buf != nil {
		sampler = buffer.NewSampler(buf)
	}
	return &Controller{
		session: Session{
			State:     StateIdle,
			Volume:    util.Clamp(viper.GetInt(key.PlayerVolume), 0, 100),
			UpdatedAt: time.Now(),
		},
		transport: transport,
		poller:    poller,
		buf:       buf,
		sampler:   sampler,
	}
}

// BufferLevel reports the advisory stream buffer fill, in bytes and percent.
// Zero values when buffering is disabled.
func (c *Controller) BufferLevel() (bytes int, percent int) {
	if c.buf == nil {
		return 0, 0
	}
	return c.buf.FillLevel()
}

// SetChannels gives the controller the current directory order, used by
// Next/Previous and usage pruning.
func (c *Controller) SetChannels(channels []catalog.Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels = make([]catalog.Channel, len(channels))
	copy(c.channels, channels)
}

// SetPublisher registers the desktop publisher for shutdown ordering.
func (c *Controller) SetPublisher(p Publisher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publisher = p
}

// Snapshot returns a copy of the current session.
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Subscribe returns a channel carrying session copies after every transition.
// Delivery is latest-wins; a slow consumer only misses intermediate states.
func (c *Controller) Subscribe() <-chan Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	sub := make(chan Session, 1)
	c.subscribers = append(c.subscribers, sub)
	return sub
}

// Run consumes backend events and metadata updates until ctx is cancelled.
// Meant to be started once, in its own goroutine.
func (c *Controller) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.transport.Events():
			if !ok {
				return
			}
			c.handleBackendEvent(ev)
		case track := <-c.poller.Updates():
			c.handleTrack(track)
		}
	}
}

// SelectChannel starts playback of the given channel. A select in progress is
// superseded: its eventual result is discarded via the generation counter.
func (c *Controller) SelectChannel(ctx context.Context, ch catalog.Channel) {
	c.connect(ctx, ch, false)
}

func (c *Controller) connect(ctx context.Context, ch catalog.Channel, isRetry bool) {
	c.mu.Lock()
	if c.dialCancel != nil {
		c.dialCancel()
	}
	dialCtx, cancel := context.WithCancel(ctx)
	c.dialCancel = cancel
	c.generation++
	gen := c.generation
	c.confirm = nil
	if !isRetry {
		c.retried = false
	}
	c.session.Channel = mo.Some(ch)
	c.session.Track = mo.None[metadata.Track]()
	c.session.State = StateConnecting
	c.session.LastError = mo.None[string]()
	c.notifyLocked()
	c.mu.Unlock()

	c.drainBackendEvents()
	c.poller.Suspend()

	go c.dial(dialCtx, ch, gen)
}

// drainBackendEvents discards events still queued for a load that has just
// been superseded, so they cannot be misread as outcomes of the new one.
func (c *Controller) drainBackendEvents() {
	for {
		select {
		case <-c.transport.Events():
		default:
			return
		}
	}
}

// dial walks the channel's endpoints, highest bitrate first. Each attempt
// loads the endpoint and then waits for the backend to confirm playback with
// a started event; an error event or a confirmation timeout moves on to the
// next endpoint. The generation is re-verified under the lock before the
// session and every post-load side effect are touched.
func (c *Controller) dial(ctx context.Context, ch catalog.Channel, gen uint64) {
	for _, ep := range ch.Endpoints {
		if ctx.Err() != nil {
			return
		}

		confirm := make(chan player.Event, 1)
		c.mu.Lock()
		if gen != c.generation {
			c.mu.Unlock()
			return
		}
		c.confirm = confirm
		c.loadGen = gen
		c.mu.Unlock()

		if err := c.transport.Load(ctx, ep.URL); err != nil {
			log.Warnf("endpoint %s (%d kbps) unreachable: %v", ep.URL, ep.Bitrate, err)
			continue
		}

		ev, proceed := c.awaitStart(ctx, confirm)
		if !proceed {
			return
		}
		if ev.Kind != player.EventStarted {
			log.Warnf("endpoint %s (%d kbps) did not start: %s", ep.URL, ep.Bitrate, ev.Cause)
			continue
		}

		c.mu.Lock()
		if gen != c.generation {
			c.mu.Unlock()
			return
		}
		c.confirm = nil
		c.session.State = StatePlaying
		c.notifyLocked()
		volume, muted := c.session.Volume, c.session.Muted
		c.mu.Unlock()

		if c.superseded(gen) {
			return
		}
		_ = c.transport.SetVolume(volume)
		_ = c.transport.SetMute(muted)

		if c.superseded(gen) {
			return
		}
		if c.sampler != nil {
			c.sampler.Watch(ep.URL)
		}
		c.poller.Watch(ch.ID)
		catalog.TouchUsage(ch.ID, c.channelsCopy())

		log.Infof("playing %s via %s (%d kbps)", ch.ID, ep.URL, ep.Bitrate)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return
	}
	c.confirm = nil
	c.session.State = StateError
	c.session.LastError = mo.Some("no reachable stream")
	c.notifyLocked()
	if c.sampler != nil {
		c.sampler.Stop()
	}
	log.Errorf("all %d endpoints of %s failed", len(ch.Endpoints), ch.ID)
}

// awaitStart blocks until the backend confirms or rejects the pending load.
// The second return value is false when the dial was cancelled.
func (c *Controller) awaitStart(ctx context.Context, confirm chan player.Event) (player.Event, bool) {
	timer := time.NewTimer(startConfirmTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return player.Event{}, false
	case ev := <-confirm:
		return ev, true
	case <-timer.C:
		return player.Event{Kind: player.EventError, Cause: "no playback confirmation"}, true
	}
}

// superseded reports whether a newer select has replaced gen.
func (c *Controller) superseded(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen != c.generation
}

// TogglePause flips between Playing and Paused. In any other state it does
// nothing.
func (c *Controller) TogglePause() error {
	c.mu.Lock()
	state := c.session.State
	gen := c.generation
	channel := c.session.Channel
	c.mu.Unlock()

	switch state {
	case StatePlaying:
		if err := c.transport.Pause(); err != nil {
			return err
		}
		c.apply(gen, func(s *Session) { s.State = StatePaused })
		c.poller.Suspend()

	case StatePaused:
		if err := c.transport.Play(); err != nil {
			return err
		}
		c.apply(gen, func(s *Session) { s.State = StatePlaying })
		if ch, ok := channel.Get(); ok {
			c.poller.Watch(ch.ID)
		}
	}
	return nil
}

// Stop halts playback but keeps the selected channel. An in-flight connect is
// cancelled and its eventual outcome discarded, so a stop can never be undone
// by a dial completing late.
func (c *Controller) Stop() error {
	c.mu.Lock()
	state := c.session.State
	if state == StateIdle || state == StateStopped {
		c.mu.Unlock()
		return nil
	}
	c.generation++
	gen := c.generation
	if c.dialCancel != nil {
		c.dialCancel()
		c.dialCancel = nil
	}
	c.confirm = nil
	c.mu.Unlock()

	err := c.transport.Stop()
	c.apply(gen, func(s *Session) { s.State = StateStopped })
	c.poller.Suspend()
	if c.sampler != nil {
		c.sampler.Stop()
	}
	return err
}

// SetVolume clamps the level into 0..100 and applies it. Stored even while
// muted, so unmuting restores it.
func (c *Controller) SetVolume(level int) error {
	level = util.Clamp(level, 0, 100)

	c.mu.Lock()
	c.session.Volume = level
	muted := c.session.Muted
	c.notifyLocked()
	c.mu.Unlock()

	if muted {
		return nil
	}
	return c.transport.SetVolume(level)
}

// ToggleMute flips the mute flag without touching the stored volume.
func (c *Controller) ToggleMute() error {
	c.mu.Lock()
	c.session.Muted = !c.session.Muted
	muted := c.session.Muted
	c.notifyLocked()
	c.mu.Unlock()

	return c.transport.SetMute(muted)
}

// Next selects the channel after the current one in directory order,
// wrapping around.
func (c *Controller) Next(ctx context.Context) {
	c.step(ctx, 1)
}

// Previous selects the channel before the current one in directory order,
// wrapping around.
func (c *Controller) Previous(ctx context.Context) {
	c.step(ctx, -1)
}

func (c *Controller) step(ctx context.Context, delta int) {
	c.mu.Lock()
	channels := c.channels
	current, hasCurrent := c.session.Channel.Get()
	c.mu.Unlock()

	if len(channels) == 0 {
		return
	}

	index := 0
	if hasCurrent {
		for i, ch := range channels {
			if ch.ID == current.ID {
				index = (i + delta + len(channels)) % len(channels)
				break
			}
		}
	}
	c.SelectChannel(ctx, channels[index])
}

// Shutdown tears the session down in order: transport, poller, publisher,
// buffer. Each step is best-effort and bounded by ctx. An in-flight connect
// is cancelled first so it cannot resurrect the session mid-teardown.
func (c *Controller) Shutdown(ctx context.Context) {
	c.mu.Lock()
	c.generation++
	if c.dialCancel != nil {
		c.dialCancel()
		c.dialCancel = nil
	}
	c.confirm = nil
	c.mu.Unlock()

	c.shutdownStep(ctx, "transport", func() { _ = c.transport.Close() })
	c.shutdownStep(ctx, "poller", c.poller.Stop)

	c.mu.Lock()
	publisher := c.publisher
	c.mu.Unlock()
	if publisher != nil {
		c.shutdownStep(ctx, "publisher", publisher.Disable)
	}

	if c.sampler != nil {
		c.sampler.Stop()
	} else if c.buf != nil {
		c.buf.Flush()
	}

	c.mu.Lock()
	c.session.State = StateIdle
	c.session.Track = mo.None[metadata.Track]()
	c.notifyLocked()
	c.mu.Unlock()
}

func (c *Controller) shutdownStep(ctx context.Context, name string, fn func()) {
	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Warnf("shutdown: %s did not finish in time", name)
	}
}

func (c *Controller) handleTrack(track metadata.Track) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.session.Active() {
		return
	}
	c.session.Track = mo.Some(track)
	c.notifyLocked()
	log.Debugf("now playing: %s", track.String())
}

func (c *Controller) handleBackendEvent(ev player.Event) {
	c.mu.Lock()
	if confirm := c.confirm; confirm != nil {
		c.confirm = nil
		c.mu.Unlock()
		select {
		case confirm <- ev:
		default:
		}
		return
	}
	if c.loadGen != c.generation {
		c.mu.Unlock()
		log.Debugf("discarding %s event from a superseded load", ev.Kind)
		return
	}
	c.mu.Unlock()

	switch ev.Kind {
	case player.EventStarted:
		log.Debugf("backend reports playback start")

	case player.EventEnded, player.EventError:
		cause := ev.Cause
		if cause == "" {
			cause = "stream ended"
		}

		c.mu.Lock()
		channel, hasChannel := c.session.Channel.Get()
		state := c.session.State
		if !hasChannel || (state != StatePlaying && state != StatePaused) {
			c.mu.Unlock()
			return
		}

		if viper.GetBool(key.PlayerReconnectOnError) && !c.retried {
			c.retried = true
			c.mu.Unlock()
			log.Warnf("backend failure (%s), reconnecting to %s", cause, channel.ID)
			c.connect(context.Background(), channel, true)
			return
		}

		c.session.State = StateError
		c.session.LastError = mo.Some(cause)
		c.notifyLocked()
		c.mu.Unlock()

		c.poller.Suspend()
		if c.sampler != nil {
			c.sampler.Stop()
		}
		log.Errorf("playback failed: %s", cause)
	}
}

// apply mutates the session under the lock, but only if no newer select has
// superseded gen since the caller observed it.
func (c *Controller) apply(gen uint64, mutate func(*Session)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return
	}
	mutate(&c.session)
	c.notifyLocked()
}

func (c *Controller) channelsCopy() []catalog.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]catalog.Channel, len(c.channels))
	copy(out, c.channels)
	return out
}

// notifyLocked stamps the session and fans a copy out to subscribers without
// ever blocking; the stale pending copy is replaced by the newer one.
func (c *Controller) notifyLocked() {
	c.session.UpdatedAt = time.Now()
	snapshot := c.session
	for _, sub := range c.subscribers {
		select {
		case sub <- snapshot:
		default:
			select {
			case <-sub:
			default:
			}
			select {
			case sub <- snapshot:
			default:
			}
		}
	}
}
