package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"asciireel/audio"
	"asciireel/config"
	"asciireel/pipeline"
	"asciireel/playback"
	"asciireel/serve"
	"asciireel/subtitle"
)

var playCmd = &cobra.Command{
	Use:   "play <video|frame-dir>",
	Short: "Convert and play a video in the terminal",
	Long: `Play converts the input (a video file, or a directory of numbered PNG frames)
and plays it at the extraction frame rate. Frames come from the cache when a
previous run used the same input and settings.

By default frames are written straight to the terminal and Ctrl+C stops
playback. With --tui the player runs as an interactive program with pause,
restart, loop and speed keys.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlay,
}

func init() {
	addConversionFlags(playCmd.Flags())
	addPlaybackFlags(playCmd.Flags())
	playCmd.Flags().String("audio", "", "MP3 soundtrack to play alongside")
	playCmd.Flags().Bool("tui", false, "Interactive player with keyboard controls")
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	track, err := loadSubtitles(cfg.Subtitles)
	if err != nil {
		return err
	}

	res, err := convertInput(ctx, cfg, args[0], nil)
	if err != nil {
		return err
	}
	defer release(res)
	logger.Info("frames ready", "frames", res.Len(), "cached", res.Hit, "converted", res.Converted)

	var sound *audio.Soundtrack
	if cfg.Audio != "" {
		sound, err = audio.Open(cfg.Audio, logger)
		if err != nil {
			logger.Warn("playing without sound", "err", err)
			sound = nil
		} else {
			defer sound.Close()
		}
	}

	if tui, _ := cmd.Flags().GetBool("tui"); tui {
		return playInteractive(ctx, cfg, res, track, sound)
	}
	return playDirect(ctx, cfg, res, track, sound)
}

// playDirect streams frames to stdout with the scheduler.
func playDirect(ctx context.Context, cfg *config.Config, res *pipeline.Result, track *subtitle.Track, sound *audio.Soundtrack) error {
	screen := playback.NewScreen(os.Stdout, cfg.ColorScheme())
	sched, err := playback.New(res, screen, playback.Options{
		FPS:       cfg.FPS,
		Speed:     cfg.Speed,
		Loop:      cfg.Loop,
		Progress:  cfg.Progress,
		Subtitles: track,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	if sound != nil {
		sched.OnStateChange(sound.Follow)
	}

	state, err := sched.Run(ctx)
	if err != nil {
		return err
	}
	if state == playback.Cancelled {
		return errInterrupted
	}
	return nil
}

// playInteractive runs the Bubble Tea player locally.
func playInteractive(ctx context.Context, cfg *config.Config, res *pipeline.Result, track *subtitle.Track, sound *audio.Soundtrack) error {
	model, err := serve.NewModel(res, serve.Options{
		FPS:       cfg.FPS,
		Speed:     cfg.Speed,
		Loop:      cfg.Loop,
		Progress:  cfg.Progress,
		Subtitles: track,
		Scheme:    cfg.ColorScheme(),
		Audio:     sound,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return errInterrupted
		}
		return fmt.Errorf("failed to run player: %w", err)
	}
	return nil
}
