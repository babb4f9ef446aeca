package buffer

import (
	"bytes"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestBuffer(t *testing.T) {
	Convey("Buffer", t, func() {
		Convey("Never exceeds the byte ceiling", func() {
			b := New(10, 0)

			for i := 0; i < 5; i++ {
				b.Append(bytes.Repeat([]byte{byte(i)}, 4))
				size, _ := b.FillLevel()
				So(size, ShouldBeLessThanOrEqualTo, 10)
			}
		})

		Convey("Drops exactly the oldest chunks needed", func() {
			b := New(10, 0)
			b.Append([]byte("aaaa"))
			b.Append([]byte("bbbb"))
			b.Append([]byte("cccc")) // 12 bytes staged, oldest must go

			size, percent := b.FillLevel()
			So(size, ShouldEqual, 8)
			So(percent, ShouldEqual, 80)

			So(b.chunks[0].data, ShouldResemble, []byte("bbbb"))
			So(b.chunks[1].data, ShouldResemble, []byte("cccc"))
		})

		Convey("An oversized write is trimmed to the ceiling", func() {
			b := New(10, 0)
			b.Append([]byte("1234"))
			b.Append(append(bytes.Repeat([]byte("x"), 60), []byte("tail")...))

			size, percent := b.FillLevel()
			So(size, ShouldEqual, 10)
			So(percent, ShouldEqual, 100)
			So(len(b.chunks), ShouldEqual, 1)
			So(b.chunks[0].data, ShouldResemble, []byte("xxxxxxtail"))
		})

		Convey("Evicts by age", func() {
			b := New(0, time.Minute)
			clock := time.Now()
			b.now = func() time.Time { return clock }

			b.Append([]byte("old"))
			clock = clock.Add(2 * time.Minute)
			b.Append([]byte("new"))

			size, _ := b.FillLevel()
			So(size, ShouldEqual, 3)
			So(b.chunks[0].data, ShouldResemble, []byte("new"))
		})

		Convey("Flush discards everything", func() {
			b := New(100, 0)
			b.Append([]byte("data"))
			b.Flush()

			size, percent := b.FillLevel()
			So(size, ShouldEqual, 0)
			So(percent, ShouldEqual, 0)
		})

		Convey("Appends after flush still work", func() {
			b := New(100, 0)
			b.Append([]byte("one"))
			b.Flush()
			b.Append([]byte("two"))

			size, _ := b.FillLevel()
			So(size, ShouldEqual, 3)
		})
	})
}
