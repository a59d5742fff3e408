package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"asciireel/source"
)

var extractCmd = &cobra.Command{
	Use:   "extract <video> <frame-dir>",
	Short: "Dump a video to numbered PNG frames",
	Long: `Extract runs ffmpeg once to write out0001.png, out0002.png and so on into
frame-dir. The directory can then be played, exported or served without
ffmpeg installed.`,
	Args: cobra.ExactArgs(2),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().Float64("fps", 0, "Extraction frame rate (default from config)")
	extractCmd.Flags().Int("max-width", 640, "Downscale frames wider than this (0 keeps the source)")
	extractCmd.Flags().Bool("gray", false, "Store grayscale frames")
	extractCmd.Flags().String("ffmpeg", "", "ffmpeg binary (default: from PATH)")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	width, _ := cmd.Flags().GetInt("max-width")
	gray, _ := cmd.Flags().GetBool("gray")

	e := &source.Extract{
		Input:      args[0],
		Dir:        args[1],
		FPS:        cfg.FPS,
		Width:      width,
		Gray:       gray,
		FFmpegPath: cfg.FFmpeg,
		Logger:     logger,
	}
	n, err := e.Run(cmd.Context())
	if err != nil {
		if cmd.Context().Err() != nil {
			return errInterrupted
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d frames in %s\n", n, args[1])
	return nil
}
