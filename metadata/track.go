// Package metadata polls the now-playing track information for the active channel.
package metadata

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/samber/mo"
	"github.com/somaray-cli/somaray/constant"
	"github.com/somaray-cli/somaray/key"
	"github.com/somaray-cli/somaray/network"
	"github.com/spf13/viper"
)

// Track is an immutable now-playing record. It is replaced wholesale on every
// metadata change, never mutated field by field.
type Track struct {
	Artist    string
	Title     string
	Album     string
	Art       mo.Option[string]
	StartedAt time.Time
}

// Same reports whether two tracks describe the same song.
func (t Track) Same(other Track) bool {
	return t.Artist == other.Artist && t.Title == other.Title
}

func (t Track) String() string {
	if t.Artist == "" {
		return t.Title
	}
	return fmt.Sprintf("%s - %s", t.Artist, t.Title)
}

// apiSongs mirrors the wire format of the per-channel songs endpoint.
// The newest song comes first.
type apiSongs struct {
	Songs []struct {
		Title    string `json:"title"`
		Artist   string `json:"artist"`
		Album    string `json:"album"`
		AlbumArt string `json:"albumart"`
		Date     string `json:"date"`
	} `json:"songs"`
}

// FetchTrack retrieves the current track for a channel id.
func FetchTrack(ctx context.Context, channelID string) (Track, error) {
	var payload apiSongs
	url := fmt.Sprintf(constant.SongsURLFormat, channelID)
	if err := network.FetchJSON(ctx, url, &payload); err != nil {
		return Track{}, err
	}

	if len(payload.Songs) == 0 {
		return Track{}, fmt.Errorf("no songs reported for channel %s", channelID)
	}

	newest := payload.Songs[0]
	track := Track{
		Artist: newest.Artist,
		Title:  newest.Title,
		Album:  newest.Album,
	}

	if unix, err := strconv.ParseInt(newest.Date, 10, 64); err == nil {
		track.StartedAt = time.Unix(unix, 0)
	} else {
		track.StartedAt = time.Now()
	}

	if viper.GetBool(key.MetadataFetchArt) && newest.AlbumArt != "" {
		track.Art = mo.Some(newest.AlbumArt)
	}

	return track, nil
}
