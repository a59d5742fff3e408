package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asciireel/frame"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	s, err := cfg.Settings()
	require.NoError(t, err)
	assert.Equal(t, 160, s.Width)
	assert.Equal(t, 2.0, s.AspectRatio)
	assert.Equal(t, 10, s.Ramp.Len())
	assert.Nil(t, cfg.ColorScheme())
	assert.Equal(t, log.InfoLevel, cfg.Level())
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width = -1
	cfg.FPS = 0
	cfg.Speed = -2
	cfg.EdgeThreshold = 1.5
	cfg.Charset = "x"
	cfg.Scheme = "amber"
	cfg.LogLevel = "loud"
	cfg.Export.Codec = "vp9"

	err := cfg.Validate()
	require.ErrorIs(t, err, frame.ErrInvalidSettings)
	for _, want := range []string{"width", "fps", "speed", "edge threshold", "charset", "amber", "loud", "vp9"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestPresets(t *testing.T) {
	assert.Equal(t, []string{"c64", "classic", "crt", "minimal", "sketch"}, PresetNames())

	tests := []struct {
		name    string
		width   int
		charset string
		scheme  *frame.Scheme
		edge    bool
	}{
		{"classic", 160, "classic", nil, false},
		{"crt", 80, "classic", &frame.SchemeCRT, false},
		{"c64", 40, "petscii", &frame.SchemeC64, false},
		{"sketch", 160, "classic", nil, true},
		{"minimal", 120, "simple", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			require.NoError(t, cfg.ApplyPreset(tt.name))
			require.NoError(t, cfg.Validate())
			assert.Equal(t, tt.width, cfg.Width)
			assert.Equal(t, tt.charset, cfg.Charset)
			assert.Equal(t, tt.scheme, cfg.ColorScheme())
			assert.Equal(t, tt.edge, cfg.Edge)
		})
	}

	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyPreset("minimal"))
	assert.Equal(t, 10.0, cfg.FPS)

	assert.ErrorIs(t, cfg.ApplyPreset("vhs"), frame.ErrInvalidSettings)
}

func TestPresetOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asciireel.yaml")
	require.NoError(t, os.WriteFile(path, []byte("width: 100\nloop: true\ncolor: true\n"), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Width)
	assert.True(t, cfg.Loop)

	require.NoError(t, cfg.ApplyPreset("sketch"))
	assert.Equal(t, 160, cfg.Width)
	assert.False(t, cfg.Color)
	assert.True(t, cfg.Loop, "fields the preset does not define survive")
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
fps: 24
charset: blocks
scheme: c64
log_level: debug
export:
  codec: prores422
serve:
  port: 2222
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 24.0, cfg.FPS)
	assert.Equal(t, "blocks", cfg.Charset)
	assert.Equal(t, &frame.SchemeC64, cfg.ColorScheme())
	assert.Equal(t, log.DebugLevel, cfg.Level())
	assert.Equal(t, "prores422", cfg.Export.Codec)
	assert.Equal(t, 20.0, cfg.Export.FontSize, "defaults fill unset keys")
	assert.Equal(t, 2222, cfg.Serve.Port)
	assert.Equal(t, "localhost", cfg.Serve.Host)
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("widht: 80\n"), 0o644))
	_, err = LoadFile(bad)
	assert.ErrorContains(t, err, "widht")

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	cfg, err := LoadFile(empty)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyPreset("crt"))
	cfg.Subtitles = "movie.srt"
	require.NoError(t, SaveFile(cfg, path))

	loaded, found, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, found)
	assert.Equal(t, cfg, loaded)
}

func TestFindConfigFileInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("HOME", dir)

	assert.Equal(t, "", FindConfigFile())
	cfg, found, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, found)
	assert.Equal(t, DefaultConfig(), cfg)

	require.NoError(t, os.WriteFile("asciireel.yaml", []byte("speed: 2\n"), 0o644))
	assert.Equal(t, "./asciireel.yaml", FindConfigFile())
	cfg, _, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, 2.0, cfg.Speed)
}

func TestCopyIsIndependent(t *testing.T) {
	cfg := DefaultConfig()
	cp := cfg.Copy()
	cp.Serve.Port = 1
	cp.Width = 1
	assert.Equal(t, 23234, cfg.Serve.Port)
	assert.Equal(t, 160, cfg.Width)
}
