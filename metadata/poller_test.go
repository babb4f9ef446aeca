package metadata

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func collect(ch <-chan Track, wait time.Duration) []Track {
	var got []Track
	deadline := time.After(wait)
	for {
		select {
		case t := <-ch:
			got = append(got, t)
		case <-deadline:
			return got
		}
	}
}

func TestPoller(t *testing.T) {
	Convey("Poller", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		Reset(cancel)

		Convey("Emits only on track change", func() {
			var calls int32
			fetch := func(ctx context.Context, id string) (Track, error) {
				n := atomic.AddInt32(&calls, 1)
				if n < 3 {
					return Track{Artist: "Boards of Canada", Title: "Dayvan Cowboy"}, nil
				}
				return Track{Artist: "Tycho", Title: "Awake"}, nil
			}

			p := NewPoller(fetch, 10*time.Millisecond)
			p.Watch("groovesalad")
			go p.Run(ctx)
			defer p.Stop()

			got := collect(p.Updates(), 120*time.Millisecond)
			So(len(got), ShouldEqual, 2)
			So(got[0].Title, ShouldEqual, "Dayvan Cowboy")
			So(got[1].Title, ShouldEqual, "Awake")
		})

		Convey("Idle until Watch is called", func() {
			fetch := func(ctx context.Context, id string) (Track, error) {
				return Track{Title: "should not appear"}, nil
			}

			p := NewPoller(fetch, 10*time.Millisecond)
			go p.Run(ctx)
			defer p.Stop()

			got := collect(p.Updates(), 60*time.Millisecond)
			So(got, ShouldBeEmpty)
		})

		Convey("Failures are skipped without emitting", func() {
			fetch := func(ctx context.Context, id string) (Track, error) {
				return Track{}, errors.New("boom")
			}

			p := NewPoller(fetch, 10*time.Millisecond)
			p.Watch("dronezone")
			go p.Run(ctx)
			defer p.Stop()

			got := collect(p.Updates(), 80*time.Millisecond)
			So(got, ShouldBeEmpty)
		})

		Convey("Suspend clears the change detector", func() {
			fetch := func(ctx context.Context, id string) (Track, error) {
				return Track{Artist: "A", Title: "B"}, nil
			}

			p := NewPoller(fetch, 10*time.Millisecond)
			p.Watch("lush")
			go p.Run(ctx)
			defer p.Stop()

			first := collect(p.Updates(), 60*time.Millisecond)
			So(len(first), ShouldEqual, 1)

			p.Suspend()
			p.Watch("lush")

			second := collect(p.Updates(), 60*time.Millisecond)
			So(len(second), ShouldEqual, 1)
		})
	})
}

func TestTrackSame(t *testing.T) {
	Convey("Track.Same", t, func() {
		a := Track{Artist: "x", Title: "y", StartedAt: time.Now()}
		b := Track{Artist: "x", Title: "y"}
		c := Track{Artist: "x", Title: "z"}
		So(a.Same(b), ShouldBeTrue)
		So(a.Same(c), ShouldBeFalse)
	})
}
