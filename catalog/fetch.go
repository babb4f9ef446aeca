package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/metafates/gache"
	"github.com/somaray-cli/somaray/constant"
	"github.com/somaray-cli/somaray/filesystem"
	"github.com/somaray-cli/somaray/key"
	"github.com/somaray-cli/somaray/log"
	"github.com/somaray-cli/somaray/network"
	"github.com/somaray-cli/somaray/where"
	"github.com/spf13/viper"
)

// directoryCacher keeps a local copy of the channel directory so the API is
// not hammered on every start and a stale copy survives network outages.
// Built per call: the TTL comes from configuration, which is not loaded yet
// at package init time.
func directoryCacher() *gache.Cache[[]Channel] {
	return gache.New[[]Channel](&gache.Options{
		Path:       where.Channels(),
		Lifetime:   time.Duration(viper.GetInt(key.CatalogCacheTTLMinutes)) * time.Minute,
		FileSystem: &filesystem.GacheFs{},
	})
}

// Fetch returns the channel directory, ordered per configuration. A fresh
// cache short-circuits the network; a network failure falls back to a stale
// cache when one exists. Parse failures are structural and returned as-is.
func Fetch(ctx context.Context) ([]Channel, error) {
	cacher := directoryCacher()
	cached, expired, err := cacher.Get()
	if err == nil && !expired && len(cached) > 0 {
		return finalize(cached), nil
	}

	channels, err := fetchRemote(ctx)
	if err != nil {
		if network.IsParseError(err) {
			return nil, err
		}
		if len(cached) > 0 {
			log.Warnf("channel directory fetch failed, using stale cache: %v", err)
			return finalize(cached), nil
		}
		return nil, err
	}

	if err := cacher.Set(channels); err != nil {
		log.Warnf("cache channel directory: %v", err)
	}

	return finalize(channels), nil
}

func fetchRemote(ctx context.Context) ([]Channel, error) {
	var dir apiDirectory
	if err := network.FetchJSON(ctx, constant.ChannelsURL, &dir); err != nil {
		return nil, err
	}

	if len(dir.Channels) == 0 {
		return nil, fmt.Errorf("channel directory is empty")
	}

	channels := make([]Channel, 0, len(dir.Channels))
	for _, raw := range dir.Channels {
		ch, err := newChannel(raw)
		if err != nil {
			log.Warnf("skipping malformed channel entry: %v", err)
			continue
		}
		channels = append(channels, ch)
	}

	return channels, nil
}

// finalize stamps favorite flags and applies the configured ordering.
func finalize(channels []Channel) []Channel {
	favorites := Favorites()
	for i := range channels {
		channels[i].Favorite = favorites.Has(channels[i].ID)
	}

	if viper.GetBool(key.CatalogSortByUsage) {
		channels = SortByUsage(channels)
	}
	return channels
}
