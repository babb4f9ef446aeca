// Package cmd implements the command-line interface for somaray.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/somaray-cli/somaray/catalog"
	"github.com/somaray-cli/somaray/color"
	"github.com/somaray-cli/somaray/icon"
	"github.com/somaray-cli/somaray/style"
	"github.com/somaray-cli/somaray/util"
)

func init() {
	rootCmd.AddCommand(channelsCmd)

	channelsCmd.Flags().StringP("filter", "f", "", "Fuzzy-match channels by title or genre")
	channelsCmd.Flags().BoolP("favorites", "F", false, "Only show favorite channels")
	channelsCmd.Flags().BoolP("json", "j", false, "Format the output as a JSON string")

	channelsCmd.SetOut(os.Stdout)
}

// channelsCmd prints the channel directory to stdout without entering the TUI.
var channelsCmd = &cobra.Command{
	Use:     "channels",
	Short:   "List the SomaFM channel directory",
	Aliases: []string{"ls"},
	Run: func(cmd *cobra.Command, args []string) {
		var (
			filter        = lo.Must(cmd.Flags().GetString("filter"))
			favoritesOnly = lo.Must(cmd.Flags().GetBool("favorites"))
			asJson        = lo.Must(cmd.Flags().GetBool("json"))
		)

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		channels, err := catalog.Fetch(ctx)
		handleErr(err)

		if favoritesOnly {
			channels = lo.Filter(channels, func(ch catalog.Channel, _ int) bool {
				return ch.Favorite
			})
		}

		if filter != "" {
			channels = lo.Filter(channels, func(ch catalog.Channel, _ int) bool {
				haystack := ch.Title + " " + strings.Join(ch.Genres, " ")
				return fuzzy.MatchFold(filter, haystack)
			})
		}

		if asJson {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			lo.Must0(encoder.Encode(channels))
			return
		}

		for i, ch := range channels {
			printChannel(cmd, ch)
			if i < len(channels)-1 {
				cmd.Println()
			}
		}
	},
}

func printChannel(cmd *cobra.Command, ch catalog.Channel) {
	title := style.Bold(ch.Title)
	if ch.Favorite {
		title += " " + icon.Get(icon.Favorite)
	}

	cmd.Printf("%s %s\n", title, style.Faint("("+ch.ID+")"))

	if ch.Description != "" {
		cmd.Println("  " + style.Faint(ch.Description))
	}

	var details []string
	if len(ch.Genres) > 0 {
		details = append(details, style.Fg(color.Purple)(strings.Join(ch.Genres, ", ")))
	}
	if best, ok := ch.BestEndpoint(); ok {
		details = append(details, fmt.Sprintf("%d kbps %s", best.Bitrate, best.Format))
	}
	details = append(details, util.Quantify(ch.Listeners, "listener", "listeners"))

	cmd.Println("  " + strings.Join(details, " • "))
}
