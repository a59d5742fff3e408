// Command asciireel converts videos into character-art frames and plays them
// in the terminal, exports them, or serves them over SSH.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// exitInterrupted is the conventional exit status after SIGINT.
const exitInterrupted = 130

var errInterrupted = errors.New("interrupted")

var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	TimeFormat:      time.Kitchen,
	Prefix:          "asciireel",
})

var rootCmd = &cobra.Command{
	Use:   "asciireel",
	Short: "Watch videos as character art in your terminal",
	Long: `asciireel samples a video with ffmpeg (or reads a directory of numbered PNG
frames), converts every frame to characters and plays the result in the
terminal at the source frame rate.

Converted frames are cached per source and settings, so a second run starts
immediately. The same frames can be exported as a self-contained shell player
or an MP4, or served to SSH clients.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Configuration file path (default: ./asciireel.yaml or the user config dir)")
	rootCmd.PersistentFlags().StringP("preset", "p", "", "Named preset: classic, crt, c64, sketch or minimal")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	log.SetDefault(logger)
}

// exitCode maps the command result to a process status.
func exitCode(ctx context.Context, err error) int {
	switch {
	case err == nil && ctx.Err() == nil:
		return 0
	case errors.Is(err, errInterrupted), errors.Is(err, context.Canceled), ctx.Err() != nil:
		return exitInterrupted
	default:
		return 1
	}
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Warn("interrupt received, cleaning up")
		cancel()
	}()

	err := rootCmd.ExecuteContext(ctx)
	code := exitCode(ctx, err)
	if code == 1 {
		logger.Error("asciireel failed", "err", err)
	}
	cancel()
	os.Exit(code)
}
