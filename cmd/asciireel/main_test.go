package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asciireel/config"
	"asciireel/frame"
	"asciireel/source"
)

// isolate keeps config discovery away from the developer's real files.
func isolate(t *testing.T) string {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("HOME", dir)
	return dir
}

func testCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringP("config", "c", "", "")
	cmd.Flags().StringP("preset", "p", "", "")
	cmd.Flags().BoolP("verbose", "v", false, "")
	addConversionFlags(cmd.Flags())
	addPlaybackFlags(cmd.Flags())
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func writePNGs(t *testing.T, dir string, n int) {
	t.Helper()
	for i := range n {
		img := image.NewRGBA(image.Rect(0, 0, 32, 32))
		for y := range 32 {
			for x := range 32 {
				v := uint8((x*8 + i*40) % 256)
				img.Set(x, y, color.RGBA{v, v, v, 255})
			}
		}
		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("frame_%04d.png", i+1)))
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, img))
		require.NoError(t, f.Close())
	}
}

func TestExitCode(t *testing.T) {
	ctx := context.Background()
	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	assert.Equal(t, 0, exitCode(ctx, nil))
	assert.Equal(t, 1, exitCode(ctx, errors.New("boom")))
	assert.Equal(t, exitInterrupted, exitCode(ctx, errInterrupted))
	assert.Equal(t, exitInterrupted, exitCode(ctx, fmt.Errorf("wrapped: %w", context.Canceled)))
	assert.Equal(t, exitInterrupted, exitCode(cancelled, nil))
}

func TestLoadConfigDefaults(t *testing.T) {
	isolate(t)
	cfg, err := loadConfig(testCommand(t))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)
}

func TestLoadConfigPriority(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "reel.yaml")
	require.NoError(t, os.WriteFile(path, []byte("width: 100\nfps: 24\ncharset: blocks\nloop: true\n"), 0o644))

	// File only.
	cfg, err := loadConfig(testCommand(t, "--config", path))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 24.0, cfg.FPS)
	assert.Equal(t, "blocks", cfg.Charset)

	// Preset overrides the file; fields it does not define survive.
	cfg, err = loadConfig(testCommand(t, "--config", path, "--preset", "minimal"))
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.Width)
	assert.Equal(t, 10.0, cfg.FPS)
	assert.Equal(t, "simple", cfg.Charset)
	assert.True(t, cfg.Loop)

	// Explicit flags win over both.
	cfg, err = loadConfig(testCommand(t, "--config", path, "--preset", "minimal", "-w", "50", "--charset", "@#. ", "--loop=false"))
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Width)
	assert.Equal(t, 10.0, cfg.FPS)
	assert.Equal(t, "@#. ", cfg.Charset)
	assert.False(t, cfg.Loop)
}

func TestLoadConfigDiscoversFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "asciireel.yaml"), []byte("speed: 2\n"), 0o644))

	cfg, err := loadConfig(testCommand(t))
	require.NoError(t, err)
	assert.Equal(t, 2.0, cfg.Speed)
}

func TestLoadConfigErrors(t *testing.T) {
	isolate(t)

	_, err := loadConfig(testCommand(t, "--fps", "0", "--speed", "-1"))
	require.ErrorIs(t, err, frame.ErrInvalidSettings)
	assert.Contains(t, err.Error(), "fps")
	assert.Contains(t, err.Error(), "speed")

	_, err = loadConfig(testCommand(t, "--preset", "vhs"))
	assert.ErrorIs(t, err, frame.ErrInvalidSettings)

	_, err = loadConfig(testCommand(t, "--config", "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigVerbose(t *testing.T) {
	isolate(t)
	cfg, err := loadConfig(testCommand(t, "-v"))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestResolveWidth(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "notatty")
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, fallbackWidth, terminalWidth(int(f.Fd())))

	cfg := config.DefaultConfig()
	cfg.Width = 42
	resolveWidth(cfg)
	assert.Equal(t, 42, cfg.Width)
}

func TestSourceIDIncludesFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	cfg := config.DefaultConfig()
	plain, err := sourceID(cfg, path)
	require.NoError(t, err)
	assert.Empty(t, plain.Filter)

	cfg.CRTFilter = true
	crt, err := sourceID(cfg, path)
	require.NoError(t, err)
	assert.Equal(t, source.CRTFilter, crt.Filter)

	_, err = sourceID(cfg, filepath.Join(t.TempDir(), "missing.mp4"))
	assert.Error(t, err)
}

func TestConvertInputFrameDir(t *testing.T) {
	frames := t.TempDir()
	writePNGs(t, frames, 4)

	cfg := config.DefaultConfig()
	cfg.Width = 8
	cfg.CacheDir = t.TempDir()
	ctx := context.Background()

	res, err := convertInput(ctx, cfg, frames, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Len())
	assert.False(t, res.Hit)
	f, err := res.Frame(0)
	require.NoError(t, err)
	assert.Equal(t, 8, f.Cols)
	release(res)

	res, err = convertInput(ctx, cfg, frames, nil)
	require.NoError(t, err)
	defer release(res)
	assert.True(t, res.Hit)
	assert.Equal(t, 4, res.Len())
}

func TestConvertInputMissing(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.CacheDir = t.TempDir()
	_, err := convertInput(context.Background(), cfg, filepath.Join(t.TempDir(), "nope"), nil)
	assert.Error(t, err)
}

func TestLoadSubtitles(t *testing.T) {
	track, err := loadSubtitles("")
	require.NoError(t, err)
	assert.Nil(t, track)

	path := filepath.Join(t.TempDir(), "subs.srt")
	require.NoError(t, os.WriteFile(path, []byte("1\n00:00:01,000 --> 00:00:02,000\nHello\n"), 0o644))
	track, err = loadSubtitles(path)
	require.NoError(t, err)
	assert.Equal(t, 1, track.Len())
}

func TestCommands(t *testing.T) {
	isolate(t)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	defer rootCmd.SetOut(nil)
	defer rootCmd.SetErr(nil)

	rootCmd.SetArgs([]string{"presets"})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	for _, name := range config.PresetNames() {
		assert.Contains(t, out.String(), name)
	}

	rootCmd.SetArgs([]string{"export", "clip.mp4"})
	assert.ErrorIs(t, rootCmd.ExecuteContext(context.Background()), errNothingToExport)

	rootCmd.SetArgs([]string{"config", "init", "out.yaml"})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	cfg, err := config.LoadFile("out.yaml")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)

	rootCmd.SetArgs([]string{"config", "init", "out.yaml"})
	assert.Error(t, rootCmd.ExecuteContext(context.Background()))

	out.Reset()
	rootCmd.SetArgs([]string{"config", "show"})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	assert.True(t, strings.Contains(out.String(), "width: 160"))
}
