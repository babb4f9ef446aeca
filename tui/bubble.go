// Package tui provides the primary terminal user interface implementation.
package tui

import (
	"github.com/charmbracelet/bubbles/help"
	bubblesKey "github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
	"github.com/spf13/viper"

	"github.com/somaray-cli/somaray/color"
	"github.com/somaray-cli/somaray/key"
	"github.com/somaray-cli/somaray/playback"
	"github.com/somaray-cli/somaray/util"
)

// statefulBubble encapsulates the comprehensive application state, including component models and workflow tracking.
type statefulBubble struct {
	state         state
	statesHistory util.Stack[state]

	keymap *statefulKeymap

	// components
	spinnerC  spinner.Model
	channelsC list.Model
	volumeC   progress.Model
	helpC     help.Model

	// last observed playback session, refreshed on every tick
	snapshot      playback.Session
	bufferPercent int

	lastError error

	width, height int

	options *Options
}

// raiseError dispatches a terminal error and transitions the application to the failure view.
func (b *statefulBubble) raiseError(err error) {
	b.lastError = err
	b.newState(errorState)
}

// setState performs a synchronous transition of both the application workflow and its associated keymap.
func (b *statefulBubble) setState(s state) {
	b.state = s
	b.keymap.setState(s)
}

// newState facilitates an idempotent transition to a target state, recording the previous state in the navigation history when appropriate.
func (b *statefulBubble) newState(s state) {
	if b.state == s {
		return
	}

	if !lo.Contains([]state{loadingState, errorState}, b.state) {
		b.statesHistory.Push(b.state)
	}

	b.setState(s)
}

// previousState restores the application to its immediate predecessor in the navigation stack.
func (b *statefulBubble) previousState() {
	if previous, ok := b.statesHistory.Pop(); ok {
		b.setState(previous)
	}
}

// resize propagates terminal dimension changes to all child component models.
func (b *statefulBubble) resize(width, height int) {
	x, y := paddingStyle.GetFrameSize()
	xx, yy := listExtraPaddingStyle.GetFrameSize()

	b.channelsC.SetSize(width-xx, height-yy)
	b.channelsC.Help.Width = width - xx

	b.volumeC.Width = util.Min(width-x, 40)

	b.width = width - x
	b.height = height - y
	b.helpC.Width = width - xx
}

// newBubble performs a complete initialization of the application's primary UI model.
func newBubble(options *Options) *statefulBubble {
	keymap := newStatefulKeymap()
	bubble := statefulBubble{
		statesHistory: util.Stack[state]{},
		keymap:        keymap,
		options:       options,
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.Styles.SelectedTitle = lipgloss.NewStyle().
		Border(lipgloss.ThickBorder(), false, false, false, true).
		BorderForeground(color.Orange).
		Foreground(color.Orange).
		Padding(0, 0, 0, 1)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedTitle

	channelsC := list.New([]list.Item{}, delegate, 0, 0)
	channelsC.KeyMap = keymap.forList()
	channelsC.AdditionalShortHelpKeys = keymap.ShortHelp
	channelsC.AdditionalFullHelpKeys = func() []bubblesKey.Binding {
		return keymap.FullHelp()[0]
	}
	channelsC.Title = "SomaFM Channels"
	channelsC.Styles.Title = lipgloss.NewStyle().Foreground(color.Cream).Background(color.Indigo).Padding(0, 1)
	channelsC.Styles.NoItems = paddingStyle
	channelsC.SetStatusBarItemName("channel", "channels")
	channelsC.SetShowPagination(false)
	channelsC.FilterInput.Prompt = viper.GetString(key.TUISearchPromptString)
	bubble.channelsC = channelsC

	bubble.helpC = help.New()

	bubble.spinnerC = spinner.New()
	bubble.spinnerC.Spinner = spinner.Dot
	bubble.spinnerC.Style = lipgloss.NewStyle().Foreground(color.Pink)

	bubble.volumeC = progress.New(progress.WithDefaultGradient())
	bubble.volumeC.ShowPercentage = false

	bubble.snapshot = options.Controller.Snapshot()

	if w, h, err := util.TerminalSize(); err == nil {
		bubble.resize(w, h)
	}

	return &bubble
}
