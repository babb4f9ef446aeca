package playback

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"

	"github.com/somaray-cli/somaray/catalog"
	"github.com/somaray-cli/somaray/filesystem"
	"github.com/somaray-cli/somaray/key"
	"github.com/somaray-cli/somaray/metadata"
	"github.com/somaray-cli/somaray/player"
)

func init() {
	filesystem.SetMemMapFs()
	viper.Set(key.PlayerVolume, 50)
	viper.Set(key.PlayerReconnectOnError, true)
}

// fakeTransport mimics the backend's asynchronous contract: Load only
// acknowledges the command, and the actual outcome arrives as a started or
// error event. Tests can refuse URLs at the IPC level, mark them dead after
// the ack, or stall them behind a gate.
type fakeTransport struct {
	mu      sync.Mutex
	loads   []string
	failing map[string]bool
	dead    map[string]bool
	stall   map[string]chan struct{}
	silent  bool
	paused  bool
	stopped bool
	volume  int
	muted   bool
	closed  bool
	events  chan player.Event
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		failing: map[string]bool{},
		dead:    map[string]bool{},
		stall:   map[string]chan struct{}{},
		events:  make(chan player.Event, 8),
	}
}

func (f *fakeTransport) Load(ctx context.Context, url string) error {
	f.mu.Lock()
	gate := f.stall[url]
	fail := f.failing[url]
	dead := f.dead[url]
	silent := f.silent
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	f.loads = append(f.loads, url)
	f.mu.Unlock()

	if fail {
		return fmt.Errorf("connection refused")
	}
	if !silent {
		if dead {
			f.events <- player.Event{Kind: player.EventError, Cause: "stream unreachable"}
		} else {
			f.events <- player.Event{Kind: player.EventStarted}
		}
	}
	return nil
}

func (f *fakeTransport) Play() error  { f.mu.Lock(); f.paused = false; f.mu.Unlock(); return nil }
func (f *fakeTransport) Pause() error { f.mu.Lock(); f.paused = true; f.mu.Unlock(); return nil }
func (f *fakeTransport) Stop() error  { f.mu.Lock(); f.stopped = true; f.mu.Unlock(); return nil }

func (f *fakeTransport) SetVolume(level int) error {
	f.mu.Lock()
	f.volume = level
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) SetMute(on bool) error {
	f.mu.Lock()
	f.muted = on
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Events() <-chan player.Event { return f.events }

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.loads)
}

func (f *fakeTransport) loadedURLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.loads))
	copy(out, f.loads)
	return out
}

func makeChannel(id string, urls ...string) catalog.Channel {
	endpoints := make([]catalog.Endpoint, 0, len(urls))
	bitrate := 320
	for _, u := range urls {
		endpoints = append(endpoints, catalog.Endpoint{URL: u, Format: "mp3", Bitrate: bitrate})
		bitrate /= 2
	}
	return catalog.Channel{ID: id, Title: id, Endpoints: endpoints}
}

// testController builds a controller with an inert poller and starts its
// event loop. The returned stop func ends the loop.
func testController(transport player.Transport) (*Controller, func()) {
	poller := metadata.NewPoller(func(ctx context.Context, channelID string) (metadata.Track, error) {
		return metadata.Track{}, fmt.Errorf("not polled in tests")
	}, time.Hour)
	ctrl := New(transport, poller, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go ctrl.Run(ctx)
	return ctrl, cancel
}

func eventually(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestControllerVolume(t *testing.T) {
	Convey("Controller volume", t, func() {
		transport := newFakeTransport()
		ctrl, stop := testController(transport)
		Reset(stop)

		Convey("Should start with the configured level", func() {
			So(ctrl.Snapshot().Volume, ShouldEqual, 50)
		})

		Convey("Should clamp levels into 0..100", func() {
			So(ctrl.SetVolume(150), ShouldBeNil)
			So(ctrl.Snapshot().Volume, ShouldEqual, 100)

			So(ctrl.SetVolume(-5), ShouldBeNil)
			So(ctrl.Snapshot().Volume, ShouldEqual, 0)
		})

		Convey("Muting should not touch the stored level", func() {
			So(ctrl.SetVolume(40), ShouldBeNil)
			So(ctrl.ToggleMute(), ShouldBeNil)

			snap := ctrl.Snapshot()
			So(snap.Muted, ShouldBeTrue)
			So(snap.Volume, ShouldEqual, 40)

			Convey("And changing volume while muted stays silent", func() {
				So(ctrl.SetVolume(80), ShouldBeNil)
				So(ctrl.Snapshot().Volume, ShouldEqual, 80)
				So(transport.volume, ShouldNotEqual, 80)
			})

			Convey("And unmuting restores output", func() {
				So(ctrl.ToggleMute(), ShouldBeNil)
				So(ctrl.Snapshot().Muted, ShouldBeFalse)
				So(transport.muted, ShouldBeFalse)
			})
		})
	})
}

func TestControllerSelect(t *testing.T) {
	Convey("Controller.SelectChannel", t, func() {
		transport := newFakeTransport()
		ctrl, stop := testController(transport)
		Reset(stop)

		Convey("Should fall through refused endpoints to a working one", func() {
			transport.failing["https://ice1.example.com/a-320-mp3"] = true
			ch := makeChannel("groovesalad",
				"https://ice1.example.com/a-320-mp3",
				"https://ice2.example.com/a-160-mp3",
			)

			ctrl.SelectChannel(context.Background(), ch)

			So(eventually(time.Second, func() bool {
				return ctrl.Snapshot().State == StatePlaying
			}), ShouldBeTrue)
			So(transport.loadedURLs(), ShouldResemble, []string{
				"https://ice1.example.com/a-320-mp3",
				"https://ice2.example.com/a-160-mp3",
			})
		})

		Convey("Should fall through an endpoint that loads but never starts", func() {
			transport.dead["https://ice1.example.com/a-320-mp3"] = true
			ch := makeChannel("groovesalad",
				"https://ice1.example.com/a-320-mp3",
				"https://ice2.example.com/a-160-mp3",
			)

			ctrl.SelectChannel(context.Background(), ch)

			So(eventually(time.Second, func() bool {
				return ctrl.Snapshot().State == StatePlaying
			}), ShouldBeTrue)
			So(transport.loadedURLs(), ShouldResemble, []string{
				"https://ice1.example.com/a-320-mp3",
				"https://ice2.example.com/a-160-mp3",
			})
		})

		Convey("Should end in Error when every endpoint fails", func() {
			transport.failing["https://ice1.example.com/b-320-mp3"] = true
			transport.dead["https://ice2.example.com/b-160-mp3"] = true
			ch := makeChannel("dronezone",
				"https://ice1.example.com/b-320-mp3",
				"https://ice2.example.com/b-160-mp3",
			)

			ctrl.SelectChannel(context.Background(), ch)

			So(eventually(time.Second, func() bool {
				return ctrl.Snapshot().State == StateError
			}), ShouldBeTrue)

			snap := ctrl.Snapshot()
			cause, ok := snap.LastError.Get()
			So(ok, ShouldBeTrue)
			So(cause, ShouldEqual, "no reachable stream")
		})

		Convey("Should clear the previous track on channel change", func() {
			ch := makeChannel("groovesalad", "https://ice1.example.com/a-320-mp3")
			ctrl.SelectChannel(context.Background(), ch)
			So(eventually(time.Second, func() bool {
				return ctrl.Snapshot().State == StatePlaying
			}), ShouldBeTrue)

			ctrl.handleTrack(metadata.Track{Artist: "Boards of Canada", Title: "Dayvan Cowboy"})
			track, ok := ctrl.Snapshot().Track.Get()
			So(ok, ShouldBeTrue)
			So(track.Title, ShouldEqual, "Dayvan Cowboy")

			ctrl.SelectChannel(context.Background(), makeChannel("dronezone", "https://ice1.example.com/d-320-mp3"))
			_, ok = ctrl.Snapshot().Track.Get()
			So(ok, ShouldBeFalse)
		})

		Convey("A newer select should supersede a stalled one", func() {
			gate := make(chan struct{})
			transport.stall["https://ice1.example.com/slow-320-mp3"] = gate

			slow := makeChannel("slow", "https://ice1.example.com/slow-320-mp3")
			fast := makeChannel("fast", "https://ice1.example.com/fast-320-mp3")

			ctrl.SelectChannel(context.Background(), slow)
			ctrl.SelectChannel(context.Background(), fast)

			So(eventually(time.Second, func() bool {
				snap := ctrl.Snapshot()
				ch, ok := snap.Channel.Get()
				return ok && ch.ID == "fast" && snap.State == StatePlaying
			}), ShouldBeTrue)

			close(gate)
			time.Sleep(50 * time.Millisecond)

			snap := ctrl.Snapshot()
			ch, _ := snap.Channel.Get()
			So(ch.ID, ShouldEqual, "fast")
			So(snap.State, ShouldEqual, StatePlaying)

			Convey("And the superseded load never reaches the backend", func() {
				So(transport.loadedURLs(), ShouldResemble, []string{
					"https://ice1.example.com/fast-320-mp3",
				})
			})
		})
	})
}

func TestControllerPauseStop(t *testing.T) {
	Convey("Controller pause and stop", t, func() {
		transport := newFakeTransport()
		ctrl, stop := testController(transport)
		Reset(stop)

		Convey("TogglePause should do nothing while idle", func() {
			So(ctrl.TogglePause(), ShouldBeNil)
			So(ctrl.Snapshot().State, ShouldEqual, StateIdle)
			So(transport.paused, ShouldBeFalse)
		})

		Convey("With a playing channel", func() {
			ch := makeChannel("groovesalad", "https://ice1.example.com/a-320-mp3")
			ctrl.SelectChannel(context.Background(), ch)
			So(eventually(time.Second, func() bool {
				return ctrl.Snapshot().State == StatePlaying
			}), ShouldBeTrue)

			Convey("TogglePause should flip Playing and Paused", func() {
				So(ctrl.TogglePause(), ShouldBeNil)
				So(ctrl.Snapshot().State, ShouldEqual, StatePaused)
				So(transport.paused, ShouldBeTrue)

				So(ctrl.TogglePause(), ShouldBeNil)
				So(ctrl.Snapshot().State, ShouldEqual, StatePlaying)
				So(transport.paused, ShouldBeFalse)
			})

			Convey("Stop should keep the channel selected", func() {
				So(ctrl.Stop(), ShouldBeNil)

				snap := ctrl.Snapshot()
				So(snap.State, ShouldEqual, StateStopped)
				So(transport.stopped, ShouldBeTrue)

				_, ok := snap.Channel.Get()
				So(ok, ShouldBeTrue)
			})
		})

		Convey("Stop during a stalled connect must stick", func() {
			gate := make(chan struct{})
			transport.stall["https://ice1.example.com/slow-320-mp3"] = gate
			ch := makeChannel("slow", "https://ice1.example.com/slow-320-mp3")

			ctrl.SelectChannel(context.Background(), ch)
			So(eventually(time.Second, func() bool {
				return ctrl.Snapshot().State == StateConnecting
			}), ShouldBeTrue)

			So(ctrl.Stop(), ShouldBeNil)
			So(ctrl.Snapshot().State, ShouldEqual, StateStopped)

			close(gate)
			time.Sleep(50 * time.Millisecond)

			So(ctrl.Snapshot().State, ShouldEqual, StateStopped)
			So(transport.loadCount(), ShouldEqual, 0)
		})
	})
}

func TestControllerReconnect(t *testing.T) {
	Convey("Controller backend failure handling", t, func() {
		transport := newFakeTransport()
		ctrl, stop := testController(transport)
		Reset(stop)

		ch := makeChannel("groovesalad", "https://ice1.example.com/a-320-mp3")
		ctrl.SelectChannel(context.Background(), ch)
		So(eventually(time.Second, func() bool {
			return ctrl.Snapshot().State == StatePlaying
		}), ShouldBeTrue)
		before := transport.loadCount()

		Convey("Should reconnect once on a backend error", func() {
			transport.events <- player.Event{Kind: player.EventError, Cause: "stream failed"}

			So(eventually(time.Second, func() bool {
				return transport.loadCount() > before && ctrl.Snapshot().State == StatePlaying
			}), ShouldBeTrue)

			ch2, _ := ctrl.Snapshot().Channel.Get()
			So(ch2.ID, ShouldEqual, "groovesalad")

			Convey("And give up on the second error", func() {
				transport.events <- player.Event{Kind: player.EventError, Cause: "stream failed again"}

				So(eventually(time.Second, func() bool {
					return ctrl.Snapshot().State == StateError
				}), ShouldBeTrue)

				cause, ok := ctrl.Snapshot().LastError.Get()
				So(ok, ShouldBeTrue)
				So(cause, ShouldEqual, "stream failed again")
			})
		})
	})
}

func TestControllerStaleEvents(t *testing.T) {
	Convey("Events left over from a previous channel", t, func() {
		// The controller's own loop stays off here; the test dispatches
		// backend events by hand to pin down their ordering.
		transport := newFakeTransport()
		transport.silent = true

		poller := metadata.NewPoller(func(ctx context.Context, channelID string) (metadata.Track, error) {
			return metadata.Track{}, fmt.Errorf("not polled in tests")
		}, time.Hour)
		ctrl := New(transport, poller, nil)

		a := makeChannel("groovesalad", "https://ice1.example.com/a-320-mp3")
		b := makeChannel("dronezone", "https://ice1.example.com/b-320-mp3")

		ctrl.SelectChannel(context.Background(), a)
		So(eventually(time.Second, func() bool { return transport.loadCount() == 1 }), ShouldBeTrue)
		ctrl.handleBackendEvent(player.Event{Kind: player.EventStarted})
		So(eventually(time.Second, func() bool {
			return ctrl.Snapshot().State == StatePlaying
		}), ShouldBeTrue)

		// Two failure events for the first channel sit undelivered when the
		// user switches away.
		transport.events <- player.Event{Kind: player.EventError, Cause: "old stream died"}
		transport.events <- player.Event{Kind: player.EventError, Cause: "old stream died"}

		ctrl.SelectChannel(context.Background(), b)
		So(eventually(time.Second, func() bool { return transport.loadCount() == 2 }), ShouldBeTrue)

		Convey("Are drained before the new dial", func() {
			So(len(transport.events), ShouldEqual, 0)
		})

		Convey("And do not consume the new channel's reconnect budget", func() {
			ctrl.handleBackendEvent(player.Event{Kind: player.EventStarted})
			So(eventually(time.Second, func() bool {
				snap := ctrl.Snapshot()
				ch, ok := snap.Channel.Get()
				return ok && ch.ID == "dronezone" && snap.State == StatePlaying
			}), ShouldBeTrue)

			// A first real failure must still get the automatic reconnect.
			ctrl.handleBackendEvent(player.Event{Kind: player.EventError, Cause: "hiccup"})
			So(eventually(time.Second, func() bool { return transport.loadCount() == 3 }), ShouldBeTrue)

			ctrl.handleBackendEvent(player.Event{Kind: player.EventStarted})
			So(eventually(time.Second, func() bool {
				return ctrl.Snapshot().State == StatePlaying
			}), ShouldBeTrue)
			_, hasErr := ctrl.Snapshot().LastError.Get()
			So(hasErr, ShouldBeFalse)
		})
	})
}

func TestControllerStep(t *testing.T) {
	Convey("Controller.Next and Previous", t, func() {
		transport := newFakeTransport()
		ctrl, stop := testController(transport)
		Reset(stop)

		channels := []catalog.Channel{
			makeChannel("groovesalad", "https://ice1.example.com/gs-320-mp3"),
			makeChannel("dronezone", "https://ice1.example.com/dz-320-mp3"),
			makeChannel("lush", "https://ice1.example.com/lu-320-mp3"),
		}
		ctrl.SetChannels(channels)

		playing := func(id string) func() bool {
			return func() bool {
				snap := ctrl.Snapshot()
				ch, ok := snap.Channel.Get()
				return ok && ch.ID == id && snap.State == StatePlaying
			}
		}

		ctrl.SelectChannel(context.Background(), channels[1])
		So(eventually(time.Second, playing("dronezone")), ShouldBeTrue)

		Convey("Next should advance in directory order", func() {
			ctrl.Next(context.Background())
			So(eventually(time.Second, playing("lush")), ShouldBeTrue)

			Convey("And wrap around at the end", func() {
				ctrl.Next(context.Background())
				So(eventually(time.Second, playing("groovesalad")), ShouldBeTrue)
			})
		})

		Convey("Previous should step back", func() {
			ctrl.Previous(context.Background())
			So(eventually(time.Second, playing("groovesalad")), ShouldBeTrue)
		})
	})
}

func TestControllerSubscribe(t *testing.T) {
	Convey("Controller.Subscribe", t, func() {
		transport := newFakeTransport()
		ctrl, stop := testController(transport)
		Reset(stop)
		sub := ctrl.Subscribe()

		Convey("Should deliver the latest transition without blocking", func() {
			for level := 0; level <= 100; level += 10 {
				So(ctrl.SetVolume(level), ShouldBeNil)
			}

			var last Session
			got := false
			for {
				select {
				case last = <-sub:
					got = true
					continue
				default:
				}
				break
			}
			So(got, ShouldBeTrue)
			So(last.Volume, ShouldEqual, 100)
		})
	})
}

func TestControllerShutdown(t *testing.T) {
	Convey("Controller.Shutdown", t, func() {
		transport := newFakeTransport()
		ctrl, stop := testController(transport)
		Reset(stop)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		ctrl.Shutdown(ctx)

		So(transport.closed, ShouldBeTrue)
		So(ctrl.Snapshot().State, ShouldEqual, StateIdle)

		Convey("A connect stalled at shutdown time cannot resurrect the session", func() {
			gate := make(chan struct{})
			transport.stall["https://ice1.example.com/slow-320-mp3"] = gate
			ch := makeChannel("slow", "https://ice1.example.com/slow-320-mp3")

			ctrl.SelectChannel(context.Background(), ch)
			So(eventually(time.Second, func() bool {
				return ctrl.Snapshot().State == StateConnecting
			}), ShouldBeTrue)

			ctrl.Shutdown(ctx)
			So(ctrl.Snapshot().State, ShouldEqual, StateIdle)

			close(gate)
			time.Sleep(50 * time.Millisecond)
			So(ctrl.Snapshot().State, ShouldEqual, StateIdle)
		})
	})
}
