// Package catalog fetches and models the SomaFM channel directory.
package catalog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Endpoint is a single stream URL for a channel at a known bitrate.
type Endpoint struct {
	URL     string `json:"url"`
	Format  string `json:"format"`
	Bitrate int    `json:"bitrate"`
}

// Channel is a single entry of the channel directory. Immutable once parsed,
// except for the favorite flag which tracks the local favorites registry.
type Channel struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Genres      []string   `json:"genres"`
	Endpoints   []Endpoint `json:"endpoints"`
	Listeners   int        `json:"listeners"`
	Favorite    bool       `json:"-"`
}

func (c *Channel) String() string {
	return c.Title
}

// BestEndpoint returns the highest-bitrate endpoint, or false when the channel
// has no stream at all.
func (c *Channel) BestEndpoint() (Endpoint, bool) {
	if len(c.Endpoints) == 0 {
		return Endpoint{}, false
	}
	return c.Endpoints[0], true
}

// apiChannel mirrors the wire format of the SomaFM directory.
type apiChannel struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Genre       string `json:"genre"`
	Listeners   string `json:"listeners"`
	Playlists   []struct {
		URL     string `json:"url"`
		Format  string `json:"format"`
		Quality string `json:"quality"`
	} `json:"playlists"`
}

type apiDirectory struct {
	Channels []apiChannel `json:"channels"`
}

// newChannel converts a wire record into a validated Channel value.
// Endpoints come out ordered by descending bitrate, mp3 preferred on ties.
func newChannel(raw apiChannel) (Channel, error) {
	if raw.ID == "" {
		return Channel{}, fmt.Errorf("channel with empty id")
	}

	listeners, _ := strconv.Atoi(strings.TrimSpace(raw.Listeners))

	var genres []string
	for _, g := range strings.Split(raw.Genre, "|") {
		if g = strings.TrimSpace(g); g != "" {
			genres = append(genres, g)
		}
	}

	endpoints := make([]Endpoint, 0, len(raw.Playlists))
	for _, p := range raw.Playlists {
		if p.URL == "" {
			continue
		}
		endpoints = append(endpoints, Endpoint{
			URL:     p.URL,
			Format:  p.Format,
			Bitrate: bitrateOf(p.URL, p.Quality),
		})
	}
	sort.SliceStable(endpoints, func(i, j int) bool {
		if endpoints[i].Bitrate != endpoints[j].Bitrate {
			return endpoints[i].Bitrate > endpoints[j].Bitrate
		}
		return endpoints[i].Format == "mp3" && endpoints[j].Format != "mp3"
	})

	title := raw.Title
	if title == "" {
		title = raw.ID
	}

	return Channel{
		ID:          raw.ID,
		Title:       title,
		Description: raw.Description,
		Genres:      genres,
		Endpoints:   endpoints,
		Listeners:   listeners,
	}, nil
}

// bitrateOf recovers the stream bitrate from the playlist URL. SomaFM encodes
// it in the filename (groovesalad256.pls); 130 is an internal id for 128kbps.
func bitrateOf(url, quality string) int {
	for _, br := range []int{320, 256, 192, 130, 128, 64, 32} {
		if strings.Contains(url, strconv.Itoa(br)+".pls") {
			if br == 130 {
				return 128
			}
			return br
		}
	}

	switch quality {
	case "highest":
		return 320
	case "high":
		return 128
	default:
		return 64
	}
}
