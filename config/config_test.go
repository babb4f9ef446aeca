package config

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/somaray-cli/somaray/filesystem"
	"github.com/spf13/viper"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestSetup(t *testing.T) {
	Convey("Config Setup", t, func() {
		Convey("Should initialize without error", func() {
			err := Setup()
			So(err, ShouldBeNil)
		})

		Convey("Should have default values populated", func() {
			_ = Setup()
			for name := range Default {
				So(viper.Get(name), ShouldNotBeNil)
			}
		})

		Convey("EnvKeyReplacer should convert dots to underscores", func() {
			result := EnvKeyReplacer.Replace("metadata.poll.seconds")
			So(result, ShouldEqual, "metadata_poll_seconds")
		})

		Convey("Env names carry the application prefix", func() {
			f := Default["player.volume"]
			So(f.Env(), ShouldEqual, "SOMARAY_PLAYER_VOLUME")
		})
	})
}
