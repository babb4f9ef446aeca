// Package tui provides the primary terminal user interface implementation.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/list"
	"github.com/spf13/viper"

	"github.com/somaray-cli/somaray/catalog"
	"github.com/somaray-cli/somaray/key"
)

type channelsLoadedMsg []catalog.Channel

type tickMsg time.Time

// loadChannels fetches the channel directory off the UI goroutine.
func (b *statefulBubble) loadChannels() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		channels, err := catalog.Fetch(ctx)
		if err != nil {
			return err
		}
		return channelsLoadedMsg(channels)
	}
}

// tick schedules the next snapshot refresh.
func (b *statefulBubble) tick() tea.Cmd {
	interval := time.Duration(viper.GetInt(key.TUITickMillis)) * time.Millisecond
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// refreshSnapshot pulls the latest session state from the controller.
func (b *statefulBubble) refreshSnapshot() {
	b.snapshot = b.options.Controller.Snapshot()
	_, b.bufferPercent = b.options.Controller.BufferLevel()
}

// playSelected starts playback of the channel under the cursor.
func (b *statefulBubble) playSelected() {
	item, ok := b.channelsC.SelectedItem().(*listItem)
	if !ok {
		return
	}

	b.options.Controller.SelectChannel(context.Background(), item.channel)
	b.refreshSnapshot()
	b.newState(playingState)
}

// toggleFavoriteSelected flips the favorite mark of the channel under the cursor.
func (b *statefulBubble) toggleFavoriteSelected() tea.Cmd {
	item, ok := b.channelsC.SelectedItem().(*listItem)
	if !ok {
		return nil
	}

	item.channel.Favorite = catalog.Toggle(item.channel.ID)
	return b.channelsC.SetItem(b.channelsC.Index(), item)
}

// toggleFavoriteCurrent flips the favorite mark of the playing channel.
func (b *statefulBubble) toggleFavoriteCurrent() {
	channel, ok := b.snapshot.Channel.Get()
	if !ok {
		return
	}
	catalog.Toggle(channel.ID)
	b.syncFavoriteMarks()
}

// syncFavoriteMarks refreshes favorite flags on the channel list items.
func (b *statefulBubble) syncFavoriteMarks() {
	favorites := catalog.Favorites()
	for _, raw := range b.channelsC.Items() {
		if item, ok := raw.(*listItem); ok {
			item.channel.Favorite = favorites.Has(item.channel.ID)
		}
	}
}

// setChannels populates the channel list and hands the directory order to the controller.
func (b *statefulBubble) setChannels(channels []catalog.Channel) tea.Cmd {
	items := make([]list.Item, 0, len(channels))
	for _, channel := range channels {
		channel := channel
		items = append(items, &listItem{channel: channel})
	}

	b.options.Controller.SetChannels(channels)
	return b.channelsC.SetItems(items)
}
