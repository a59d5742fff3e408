package main

import (
	"github.com/spf13/cobra"

	"asciireel/metrics"
	"asciireel/serve"
)

var serveCmd = &cobra.Command{
	Use:   "serve <video|frame-dir>",
	Short: "Serve the converted video to SSH clients",
	Long: `Serve converts the input once and lets any number of SSH clients watch it.
Every session gets its own interactive player sized to the client's terminal.

  ssh -p 23234 localhost`,
	Args: cobra.ExactArgs(1),
	RunE: runServe,
}

func init() {
	addConversionFlags(serveCmd.Flags())
	addPlaybackFlags(serveCmd.Flags())
	serveCmd.Flags().String("host", "", "Listen host (default localhost)")
	serveCmd.Flags().Int("port", 0, "Listen port (default 23234)")
	serveCmd.Flags().String("host-key", "", "SSH host key path, created when missing")
	serveCmd.Flags().String("metrics-addr", "", "Also serve Prometheus metrics on this address")
	serveCmd.Flags().Duration("idle-timeout", 0, "Disconnect idle sessions after this long")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	track, err := loadSubtitles(cfg.Subtitles)
	if err != nil {
		return err
	}

	var m *metrics.Metrics
	if cfg.Serve.MetricsAddr != "" {
		m = metrics.New()
	}
	res, err := convertInput(ctx, cfg, args[0], m)
	if err != nil {
		return err
	}
	defer release(res)

	idle, _ := cmd.Flags().GetDuration("idle-timeout")
	srv, err := serve.NewServer(res, serve.ServerOptions{
		Host:        cfg.Serve.Host,
		Port:        cfg.Serve.Port,
		HostKey:     cfg.Serve.HostKey,
		MetricsAddr: cfg.Serve.MetricsAddr,
		IdleTimeout: idle,
		Player: serve.Options{
			FPS:       cfg.FPS,
			Speed:     cfg.Speed,
			Loop:      cfg.Loop,
			Progress:  cfg.Progress,
			Subtitles: track,
			Scheme:    cfg.ColorScheme(),
			Metrics:   m,
			Logger:    logger,
		},
	})
	if err != nil {
		return err
	}
	logger.Info("serving", "addr", srv.Addr(), "frames", res.Len())
	return srv.Run(ctx)
}
