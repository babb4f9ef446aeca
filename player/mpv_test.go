package player

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSanitizeStreamURL(t *testing.T) {
	Convey("sanitizeStreamURL", t, func() {
		Convey("Should accept plain http and https URLs", func() {
			link, err := sanitizeStreamURL("https://ice1.somafm.com/groovesalad-256-mp3")
			So(err, ShouldBeNil)
			So(link, ShouldEqual, "https://ice1.somafm.com/groovesalad-256-mp3")

			link, err = sanitizeStreamURL("http://ice2.somafm.com/dronezone-128-mp3")
			So(err, ShouldBeNil)
			So(link, ShouldEqual, "http://ice2.somafm.com/dronezone-128-mp3")
		})

		Convey("Should reject non-http schemes", func() {
			_, err := sanitizeStreamURL("file:///etc/passwd")
			So(err, ShouldNotBeNil)

			_, err = sanitizeStreamURL("ftp://example.com/stream")
			So(err, ShouldNotBeNil)
		})

		Convey("Should reject values that could be read as options", func() {
			_, err := sanitizeStreamURL("--script=evil.lua")
			So(err, ShouldNotBeNil)
		})

		Convey("Should reject control characters", func() {
			_, err := sanitizeStreamURL("https://example.com/\nstream")
			So(err, ShouldNotBeNil)
		})

		Convey("Should reject empty input", func() {
			_, err := sanitizeStreamURL("")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestEventKindString(t *testing.T) {
	Convey("EventKind", t, func() {
		So(EventStarted.String(), ShouldEqual, "started")
		So(EventEnded.String(), ShouldEqual, "ended")
		So(EventError.String(), ShouldEqual, "error")
	})
}

func TestEmitNeverBlocks(t *testing.T) {
	Convey("MPV event emission", t, func() {
		mpv := NewMPV()

		Convey("Should not block when nobody is reading", func() {
			for i := 0; i < 100; i++ {
				mpv.emit(Event{Kind: EventStarted})
			}
			So(len(mpv.Events()), ShouldBeLessThanOrEqualTo, 8)
		})

		Convey("Should keep the most recent event when full", func() {
			for i := 0; i < 20; i++ {
				mpv.emit(Event{Kind: EventEnded})
			}
			mpv.emit(Event{Kind: EventError, Cause: "latest"})

			var last Event
			for len(mpv.Events()) > 0 {
				last = <-mpv.Events()
			}
			So(last.Kind, ShouldEqual, EventError)
			So(last.Cause, ShouldEqual, "latest")
		})
	})
}
