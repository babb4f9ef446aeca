package network

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestFetchJSON(t *testing.T) {
	Convey("FetchJSON", t, func() {
		Convey("Should decode a well-formed response", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"name":"groove salad"}`))
			}))
			defer srv.Close()

			var out struct {
				Name string `json:"name"`
			}
			err := FetchJSON(context.Background(), srv.URL, &out)
			So(err, ShouldBeNil)
			So(out.Name, ShouldEqual, "groove salad")
		})

		Convey("Should retry transient server errors", func() {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if atomic.AddInt32(&calls, 1) < 3 {
					w.WriteHeader(http.StatusBadGateway)
					return
				}
				_, _ = w.Write([]byte(`{}`))
			}))
			defer srv.Close()

			var out map[string]any
			err := FetchJSON(context.Background(), srv.URL, &out)
			So(err, ShouldBeNil)
			So(atomic.LoadInt32(&calls), ShouldEqual, 3)
		})

		Convey("Should not retry a malformed body", func() {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				_, _ = w.Write([]byte(`{"name":`))
			}))
			defer srv.Close()

			var out map[string]any
			err := FetchJSON(context.Background(), srv.URL, &out)
			So(err, ShouldNotBeNil)
			So(IsParseError(err), ShouldBeTrue)
			So(atomic.LoadInt32(&calls), ShouldEqual, 1)
		})

		Convey("Should classify exhausted retries as a network error", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			}))
			defer srv.Close()

			var out map[string]any
			err := FetchJSON(context.Background(), srv.URL, &out)
			So(err, ShouldNotBeNil)
			So(IsParseError(err), ShouldBeFalse)
		})
	})
}
