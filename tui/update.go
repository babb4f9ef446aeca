// Package tui provides the primary terminal user interface implementation.
package tui

import (
	"context"

	bubblesKey "github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

const volumeStep = 5

func (b *statefulBubble) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case error:
		b.raiseError(msg)
		return b, nil

	case tea.WindowSizeMsg:
		b.resize(msg.Width, msg.Height)

	case channelsLoadedMsg:
		cmd = b.setChannels(msg)
		b.newState(channelsState)
		return b, cmd

	case tickMsg:
		b.refreshSnapshot()
		return b, b.tick()

	case tea.KeyMsg:
		if bubblesKey.Matches(msg, b.keymap.forceQuit) {
			return b, tea.Quit
		}
	}

	switch b.state {
	case loadingState:
		return b.updateLoading(msg)
	case channelsState:
		return b.updateChannels(msg)
	case playingState:
		return b.updatePlaying(msg)
	case errorState:
		return b.updateError(msg)
	}

	return b, cmd
}

func (b *statefulBubble) updateLoading(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	b.spinnerC, cmd = b.spinnerC.Update(msg)
	return b, cmd
}

func (b *statefulBubble) updateChannels(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	if msg, ok := msg.(tea.KeyMsg); ok {
		// Keys typed into an active filter belong to the filter.
		if b.channelsC.FilterState() == list.Filtering {
			b.channelsC, cmd = b.channelsC.Update(msg)
			return b, cmd
		}

		switch {
		case bubblesKey.Matches(msg, b.keymap.confirm):
			b.playSelected()
			return b, nil

		case bubblesKey.Matches(msg, b.keymap.favorite):
			return b, b.toggleFavoriteSelected()

		case bubblesKey.Matches(msg, b.keymap.togglePause):
			if err := b.options.Controller.TogglePause(); err != nil {
				b.raiseError(err)
			}
			return b, nil

		case bubblesKey.Matches(msg, b.keymap.volumeUp):
			return b, b.adjustVolume(volumeStep)

		case bubblesKey.Matches(msg, b.keymap.volumeDown):
			return b, b.adjustVolume(-volumeStep)

		case bubblesKey.Matches(msg, b.keymap.back):
			if b.snapshot.Active() {
				b.newState(playingState)
				return b, nil
			}
		}
	}

	b.channelsC, cmd = b.channelsC.Update(msg)
	return b, cmd
}

func (b *statefulBubble) updatePlaying(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case bubblesKey.Matches(msg, b.keymap.togglePause):
			if err := b.options.Controller.TogglePause(); err != nil {
				b.raiseError(err)
			}
		case bubblesKey.Matches(msg, b.keymap.stopPlayback):
			if err := b.options.Controller.Stop(); err != nil {
				b.raiseError(err)
			}
		case bubblesKey.Matches(msg, b.keymap.mute):
			if err := b.options.Controller.ToggleMute(); err != nil {
				b.raiseError(err)
			}
		case bubblesKey.Matches(msg, b.keymap.volumeUp):
			return b, b.adjustVolume(volumeStep)
		case bubblesKey.Matches(msg, b.keymap.volumeDown):
			return b, b.adjustVolume(-volumeStep)
		case bubblesKey.Matches(msg, b.keymap.nextChannel):
			b.options.Controller.Next(context.Background())
		case bubblesKey.Matches(msg, b.keymap.prevChannel):
			b.options.Controller.Previous(context.Background())
		case bubblesKey.Matches(msg, b.keymap.favorite):
			b.toggleFavoriteCurrent()
		case bubblesKey.Matches(msg, b.keymap.back):
			b.newState(channelsState)
		case bubblesKey.Matches(msg, b.keymap.quit):
			return b, tea.Quit
		}
		b.refreshSnapshot()
		return b, nil
	}

	b.spinnerC, cmd = b.spinnerC.Update(msg)
	return b, cmd
}

func (b *statefulBubble) updateError(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case bubblesKey.Matches(msg, b.keymap.quit):
			return b, tea.Quit
		case bubblesKey.Matches(msg, b.keymap.back):
			b.lastError = nil
			b.setState(channelsState)
		}
	}
	return b, nil
}

func (b *statefulBubble) adjustVolume(delta int) tea.Cmd {
	if err := b.options.Controller.SetVolume(b.snapshot.Volume + delta); err != nil {
		b.raiseError(err)
		return nil
	}
	b.refreshSnapshot()
	return nil
}
