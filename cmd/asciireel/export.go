package main

import (
	"errors"

	"github.com/spf13/cobra"

	"asciireel/export"
)

var errNothingToExport = errors.New("nothing to export: pass --script and/or --video")

var exportCmd = &cobra.Command{
	Use:   "export <video|frame-dir>",
	Short: "Export converted frames as a shell player or an MP4",
	Long: `Export converts the input like play does, then writes the frames out.

--script writes a self-contained bash player that needs only base64, gunzip
and awk. --video rasterises every frame with a monospace font and encodes an
MP4 through ffmpeg (h265 or prores422).`,
	Example: `  asciireel export clip.mp4 --script clip.sh
  asciireel export clip.mp4 --preset c64 --video clip.mp4 --codec prores422`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	addConversionFlags(exportCmd.Flags())
	exportCmd.Flags().String("script", "", "Write a shell player to this path")
	exportCmd.Flags().String("video", "", "Write an MP4 to this path")
	exportCmd.Flags().String("codec", "", "Video codec: h265 or prores422")
	exportCmd.Flags().Float64("font-size", 0, "Video font size in points")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	scriptPath, _ := cmd.Flags().GetString("script")
	videoPath, _ := cmd.Flags().GetString("video")
	if scriptPath == "" && videoPath == "" {
		return errNothingToExport
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	codec, err := export.ParseCodec(cfg.Export.Codec)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	res, err := convertInput(ctx, cfg, args[0], nil)
	if err != nil {
		return err
	}
	defer release(res)

	scheme := cfg.ColorScheme()
	if scriptPath != "" {
		err := export.ExportScript(scriptPath, res, export.ScriptOptions{
			FPS:    cfg.FPS,
			CRT:    scheme != nil,
			Scheme: scheme,
			Logger: logger,
		})
		if err != nil {
			return err
		}
	}

	if videoPath != "" {
		v := &export.Video{
			Output:     videoPath,
			FPS:        cfg.FPS,
			Codec:      codec,
			FontSize:   cfg.Export.FontSize,
			Scheme:     scheme,
			FFmpegPath: cfg.FFmpeg,
			Logger:     logger,
		}
		if err := v.Export(ctx, res); err != nil {
			if ctx.Err() != nil {
				return errInterrupted
			}
			return err
		}
	}
	return nil
}
