package catalog

import (
	"sort"
	"time"

	"github.com/metafates/gache"
	"github.com/somaray-cli/somaray/filesystem"
	"github.com/somaray-cli/somaray/log"
	"github.com/somaray-cli/somaray/where"
)

// favoritesCacher persists the favorite channel ids across sessions.
var favoritesCacher = gache.New[map[string]bool](&gache.Options{
	Path:       where.Favorites(),
	FileSystem: &filesystem.GacheFs{},
})

// usageCacher persists the last-played unix timestamp per channel id.
var usageCacher = gache.New[map[string]int64](&gache.Options{
	Path:       where.Usage(),
	FileSystem: &filesystem.GacheFs{},
})

// FavoritesSet is a snapshot of the favorite channel registry. Mutations go
// through Toggle, which persists immediately.
type FavoritesSet map[string]bool

// Favorites loads the persisted favorites registry. A missing or unreadable
// file yields an empty set.
func Favorites() FavoritesSet {
	cached, _, err := favoritesCacher.Get()
	if err != nil || cached == nil {
		return FavoritesSet{}
	}
	return FavoritesSet(cached)
}

// Has reports whether the channel id is marked as a favorite.
func (f FavoritesSet) Has(id string) bool {
	return f[id]
}

// Toggle flips the favorite flag for a channel id and persists the registry.
// It returns the new flag value.
func Toggle(id string) bool {
	favorites := Favorites()
	if favorites.Has(id) {
		delete(favorites, id)
	} else {
		favorites[id] = true
	}

	if err := favoritesCacher.Set(map[string]bool(favorites)); err != nil {
		log.Errorf("persist favorites: %v", err)
	}
	return favorites.Has(id)
}

// TouchUsage records that a channel was just played and prunes entries for
// channels no longer present in the directory.
func TouchUsage(id string, valid []Channel) {
	usage, _, err := usageCacher.Get()
	if err != nil || usage == nil {
		usage = map[string]int64{}
	}
	usage[id] = time.Now().Unix()

	// Prune entries for channels that no longer exist, but only when we
	// actually know the current directory.
	if len(valid) > 0 {
		known := make(map[string]struct{}, len(valid))
		for _, ch := range valid {
			known[ch.ID] = struct{}{}
		}
		for k := range usage {
			if _, ok := known[k]; !ok {
				delete(usage, k)
			}
		}
	}

	if err := usageCacher.Set(usage); err != nil {
		log.Errorf("persist channel usage: %v", err)
	}
}

// SortByUsage orders channels most-recently-played first; channels never
// played keep their directory order after the played ones.
func SortByUsage(channels []Channel) []Channel {
	usage, _, err := usageCacher.Get()
	if err != nil || len(usage) == 0 {
		return channels
	}

	sorted := make([]Channel, len(channels))
	copy(sorted, channels)
	sort.SliceStable(sorted, func(i, j int) bool {
		return usage[sorted[i].ID] > usage[sorted[j].ID]
	})
	return sorted
}
