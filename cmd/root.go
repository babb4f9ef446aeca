// Package cmd implements the command-line interface for somaray.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	cc "github.com/ivanpirog/coloredcobra"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/somaray-cli/somaray/buffer"
	"github.com/somaray-cli/somaray/color"
	"github.com/somaray-cli/somaray/constant"
	"github.com/somaray-cli/somaray/icon"
	"github.com/somaray-cli/somaray/key"
	"github.com/somaray-cli/somaray/log"
	"github.com/somaray-cli/somaray/metadata"
	"github.com/somaray-cli/somaray/mpris"
	"github.com/somaray-cli/somaray/playback"
	"github.com/somaray-cli/somaray/player"
	"github.com/somaray-cli/somaray/style"
	"github.com/somaray-cli/somaray/tui"
	"github.com/somaray-cli/somaray/version"
)

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print the application version")

	rootCmd.PersistentFlags().StringP("icons", "I", "", "Set the visual icon variant (e.g., nerd, emoji, plain)")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("icons", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return icon.AvailableVariants(), cobra.ShellCompDirectiveDefault
	}))
	lo.Must0(viper.BindPFlag(key.IconsVariant, rootCmd.PersistentFlags().Lookup("icons")))

	rootCmd.Flags().IntP("volume", "V", 0, "Override the initial playback volume (0-100)")

	helpFunc := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		helpFunc(cmd, args)
		version.Notify()
	})
}

// rootCmd defines the entry point for the somaray application.
var rootCmd = &cobra.Command{
	Use:   constant.Somaray,
	Short: "A terminal radio player for the SomaFM channel directory",
	Long: constant.AsciiArtLogo + "\n" +
		style.New().Italic(true).Foreground(color.HiRed).Render("    - A terminal radio player for the SomaFM channel directory"),
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("version") {
			versionCmd.Run(versionCmd, args)
			return
		}

		CheckDependencies()

		if cmd.Flags().Changed("volume") {
			viper.Set(key.PlayerVolume, lo.Must(cmd.Flags().GetInt("volume")))
		}

		handleErr(runPlayer())
	},
}

// runPlayer assembles the playback stack and hands control to the TUI.
func runPlayer() error {
	transport := player.NewMPV()
	if err := transport.Start(); err != nil {
		return fmt.Errorf("start audio backend: %w", err)
	}

	pollInterval := time.Duration(viper.GetInt(key.MetadataPollSeconds)) * time.Second
	if pollInterval <= 0 {
		pollInterval = 15 * time.Second
	}
	poller := metadata.NewPoller(metadata.FetchTrack, pollInterval)

	var buf *buffer.Buffer
	if sizeMB := viper.GetInt(key.BufferSizeMB); sizeMB > 0 {
		buf = buffer.New(
			sizeMB*1024*1024,
			time.Duration(viper.GetInt(key.BufferSeconds))*time.Second,
		)
	}

	controller := playback.New(transport, poller, buf)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go poller.Run(ctx)
	go controller.Run(ctx)

	publisher := mpris.New(controller)
	if err := publisher.Start(ctx); err != nil {
		log.Warnf("mpris start: %v", err)
	}
	controller.SetPublisher(publisher)

	err := tui.Run(&tui.Options{Controller: controller})

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	controller.Shutdown(shutdownCtx)

	return err
}

// Execute initializes child command routing and processes the CLI entry point.
func Execute() {
	if viper.GetBool(key.CliColored) {
		cc.Init(&cc.Config{
			RootCmd:       rootCmd,
			Headings:      cc.HiCyan + cc.Bold + cc.Underline,
			Commands:      cc.HiYellow + cc.Bold,
			Example:       cc.Italic,
			ExecName:      cc.Bold,
			Flags:         cc.Bold,
			FlagsDataType: cc.Italic + cc.HiBlue,
		})
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func handleErr(err error) {
	if err != nil {
		log.Error(err)
		_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", icon.Get(icon.Fail), strings.Trim(err.Error(), " \n"))
		os.Exit(1)
	}
}
