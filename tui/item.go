// Package tui provides the primary terminal user interface implementation.
package tui

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/somaray-cli/somaray/catalog"
	"github.com/somaray-cli/somaray/icon"
	"github.com/somaray-cli/somaray/key"
	"github.com/somaray-cli/somaray/style"
	"github.com/somaray-cli/somaray/util"
)

// listItem implements the list.Item interface, wrapping a channel for terminal display.
type listItem struct {
	channel catalog.Channel
}

// Title retrieves the primary display text for the list item.
func (t *listItem) Title() string {
	if t.channel.Favorite {
		return fmt.Sprintf("%s %s", t.channel.Title, icon.Get(icon.Favorite))
	}
	return t.channel.Title
}

// Description retrieves the secondary metadata line for the list item.
func (t *listItem) Description() string {
	var parts []string

	if len(t.channel.Genres) > 0 {
		parts = append(parts, strings.Join(t.channel.Genres, ", "))
	}

	if best, ok := t.channel.BestEndpoint(); ok {
		parts = append(parts, style.Faint(fmt.Sprintf("%d kbps", best.Bitrate)))
	}

	if viper.GetBool(key.TUIShowListeners) {
		parts = append(parts, style.Faint(util.Quantify(t.channel.Listeners, "listener", "listeners")))
	}

	return strings.Join(parts, " • ")
}

// FilterValue returns the string used for real-time list filtering and searching.
func (t *listItem) FilterValue() string {
	return t.channel.Title + " " + strings.Join(t.channel.Genres, " ")
}
