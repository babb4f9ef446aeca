package metadata

import (
	"context"
	"sync"
	"time"

	"github.com/samber/mo"
	"github.com/somaray-cli/somaray/log"
)

// After this many consecutive failures the poller demotes itself to a slower
// cadence instead of surfacing an error; playback is unaffected.
const demoteAfterFailures = 3

// FetchFunc retrieves the current track for a channel id.
type FetchFunc func(ctx context.Context, channelID string) (Track, error)

// Poller periodically queries now-playing metadata for the active channel and
// emits a Track on Updates whenever the song changes. It is suspended until
// Watch is called and after Suspend.
type Poller struct {
	fetch    FetchFunc
	interval time.Duration

	mu        sync.Mutex
	channelID string
	last      mo.Option[Track]
	failures  int

	updates chan Track
	stop    chan struct{}
	once    sync.Once
}

// NewPoller creates a poller using the given fetch implementation and base
// interval. Run must be called to start the loop.
func NewPoller(fetch FetchFunc, interval time.Duration) *Poller {
	return &Poller{
		fetch:    fetch,
		interval: interval,
		updates:  make(chan Track, 1),
		stop:     make(chan struct{}),
	}
}

// Updates exposes the stream of track changes. Only distinct tracks are sent.
func (p *Poller) Updates() <-chan Track {
	return p.updates
}

// Watch points the poller at a channel and resets the change detector so the
// first successful fetch always emits.
func (p *Poller) Watch(channelID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channelID = channelID
	p.last = mo.None[Track]()
	p.failures = 0
}

// Suspend idles the poller without stopping its loop. Used while playback is
// paused or stopped.
func (p *Poller) Suspend() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channelID = ""
	p.last = mo.None[Track]()
}

// Stop terminates the polling loop. Safe to call more than once.
func (p *Poller) Stop() {
	p.once.Do(func() { close(p.stop) })
}

// Run executes the polling loop until Stop is called or ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-ticker.C:
			p.tick(ctx, ticker)
		}
	}
}

func (p *Poller) tick(ctx context.Context, ticker *time.Ticker) {
	p.mu.Lock()
	channelID := p.channelID
	p.mu.Unlock()

	if channelID == "" {
		return
	}

	// Network I/O happens outside the lock.
	track, err := p.fetch(ctx, channelID)

	p.mu.Lock()
	defer p.mu.Unlock()

	// The watched channel may have changed while the fetch was in flight.
	if p.channelID != channelID {
		return
	}

	if err != nil {
		p.failures++
		log.Warnf("metadata poll for %s failed (%d consecutive): %v", channelID, p.failures, err)
		if p.failures == demoteAfterFailures {
			ticker.Reset(p.interval * 4)
			log.Infof("metadata poller demoted to %v interval", p.interval*4)
		}
		return
	}

	if p.failures >= demoteAfterFailures {
		ticker.Reset(p.interval)
	}
	p.failures = 0

	if last, ok := p.last.Get(); ok && last.Same(track) {
		return
	}
	p.last = mo.Some(track)

	// Latest value wins; a slow consumer only ever misses intermediates.
	select {
	case p.updates <- track:
	default:
		select {
		case <-p.updates:
		default:
		}
		p.updates <- track
	}
}
