package util

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestClamp(t *testing.T) {
	Convey("Clamp", t, func() {
		So(Clamp(150, 0, 100), ShouldEqual, 100)
		So(Clamp(-3, 0, 100), ShouldEqual, 0)
		So(Clamp(42, 0, 100), ShouldEqual, 42)
	})
}

func TestQuantify(t *testing.T) {
	Convey("Quantify", t, func() {
		So(Quantify(1, "listener", "listeners"), ShouldEqual, "1 listener")
		So(Quantify(2, "listener", "listeners"), ShouldEqual, "2 listeners")
	})
}

func TestMaxMin(t *testing.T) {
	Convey("Max/Min", t, func() {
		So(Max(1, 5, 2), ShouldEqual, 5)
		So(Min(1, 5, 2), ShouldEqual, 1)
	})
}

func TestStack(t *testing.T) {
	Convey("Stack", t, func() {
		var s Stack[string]

		Convey("Pop and Peek report emptiness", func() {
			_, ok := s.Pop()
			So(ok, ShouldBeFalse)
			_, ok = s.Peek()
			So(ok, ShouldBeFalse)
		})

		Convey("Elements come back in LIFO order", func() {
			s.Push("channels")
			s.Push("playing")
			So(s.Len(), ShouldEqual, 2)

			top, ok := s.Peek()
			So(ok, ShouldBeTrue)
			So(top, ShouldEqual, "playing")

			top, _ = s.Pop()
			So(top, ShouldEqual, "playing")
			top, _ = s.Pop()
			So(top, ShouldEqual, "channels")
			So(s.Len(), ShouldEqual, 0)
		})
	})
}
