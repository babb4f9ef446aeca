// Package tui provides the primary terminal user interface implementation.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wrap"

	"github.com/somaray-cli/somaray/color"
	"github.com/somaray-cli/somaray/icon"
	"github.com/somaray-cli/somaray/playback"
	"github.com/somaray-cli/somaray/style"
)

var (
	listExtraPaddingStyle = lipgloss.NewStyle().Padding(1, 2, 1, 0)
	paddingStyle          = lipgloss.NewStyle().Padding(1, 2)
)

func (b *statefulBubble) View() string {
	switch b.state {
	case loadingState:
		return b.viewLoading()
	case channelsState:
		return b.viewChannels()
	case playingState:
		return b.viewPlaying()
	case errorState:
		return b.viewError()
	default:
		return "Unknown state"
	}
}

func (b *statefulBubble) viewLoading() string {
	return b.renderLines(
		true,
		[]string{
			style.Title("Loading"),
			"",
			b.spinnerC.View() + " Fetching channel directory...",
		},
	)
}

func (b *statefulBubble) viewChannels() string {
	return listExtraPaddingStyle.Render(b.channelsC.View())
}

func (b *statefulBubble) viewPlaying() string {
	var channelName string
	if channel, ok := b.snapshot.Channel.Get(); ok {
		channelName = channel.Title
		if channel.Favorite {
			channelName += " " + icon.Get(icon.Favorite)
		}
	}

	lines := []string{
		style.Title("Now Playing"),
		"",
		style.Truncate(b.width)(fmt.Sprintf("%s %s", b.stateIcon(), style.Fg(color.Purple)(channelName))),
		"",
		style.Truncate(b.width)(b.trackLine()),
		"",
		b.volumeLine(),
	}

	if b.bufferPercent > 0 {
		lines = append(lines, style.Faint(fmt.Sprintf("buffer %d%%", b.bufferPercent)))
	}

	if cause, ok := b.snapshot.LastError.Get(); ok {
		lines = append(lines, "", icon.Get(icon.Fail)+" "+style.Fg(color.Red)(cause))
	}

	return b.renderLines(true, lines)
}

func (b *statefulBubble) stateIcon() string {
	switch b.snapshot.State {
	case playback.StateConnecting:
		return b.spinnerC.View()
	case playback.StatePlaying:
		return icon.Get(icon.Play)
	case playback.StatePaused:
		return icon.Get(icon.Pause)
	case playback.StateStopped:
		return icon.Get(icon.Stop)
	case playback.StateError:
		return icon.Get(icon.Fail)
	default:
		return ""
	}
}

func (b *statefulBubble) trackLine() string {
	track, ok := b.snapshot.Track.Get()
	if !ok {
		switch b.snapshot.State {
		case playback.StateConnecting:
			return style.Faint("connecting...")
		case playback.StatePlaying:
			return style.Faint("waiting for track info...")
		default:
			return ""
		}
	}
	return fmt.Sprintf("%s %s", icon.Get(icon.Note), track.String())
}

func (b *statefulBubble) volumeLine() string {
	volumeIcon := icon.Get(icon.Volume)
	if b.snapshot.Muted {
		volumeIcon = icon.Get(icon.Muted)
	}

	gauge := b.volumeC.ViewAs(float64(b.snapshot.Volume) / 100)
	return fmt.Sprintf("%s %s %d%%", volumeIcon, gauge, b.snapshot.Volume)
}

func (b *statefulBubble) viewError() string {
	errorStyle := lipgloss.NewStyle().Foreground(color.Scarlet).Bold(true)
	errorBody := errorStyle.Render(fmt.Sprintf("%v", b.lastError))
	errorMsg := wrap.String(errorBody, b.width)

	return b.renderLines(
		true,
		append([]string{
			style.ErrorTitle("Error"),
			"",
			icon.Get(icon.Fail) + " An error occurred:",
			"",
		},
			errorMsg,
		),
	)
}

func (b *statefulBubble) renderLines(addHelp bool, lines []string) string {
	h := len(lines)
	l := strings.Join(lines, "\n")
	if addHelp {
		if b.height > h {
			l += strings.Repeat("\n", b.height-h)
		}
		l += b.helpC.View(b.keymap)
	}

	return paddingStyle.Render(l)
}
