// Package tui provides the primary terminal user interface implementation.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/somaray-cli/somaray/playback"
)

// Options encapsulates the runtime configuration for the terminal user interface.
type Options struct {
	Controller *playback.Controller
}

// Run initializes and executes the primary Bubble Tea application loop.
func Run(options *Options) error {
	bubble := newBubble(options)
	bubble.setState(loadingState)

	_, err := tea.NewProgram(bubble, tea.WithAltScreen()).Run()
	return err
}
