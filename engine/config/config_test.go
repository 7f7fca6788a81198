package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, uint32(2), cfg.Render.FramesInFlight)
	assert.Equal(t, uint32(1280), cfg.Window.Width)
	assert.True(t, cfg.Assets.HotReload)
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prisma.toml")
	body := `
name = "gpucull"

[window]
width = 1920
height = 1080

[render]
frames_in_flight = 3
vsync = false

[log]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gpucull", cfg.Name)
	assert.Equal(t, uint32(1920), cfg.Window.Width)
	assert.Equal(t, uint32(3), cfg.Render.FramesInFlight)
	assert.False(t, cfg.Render.VSync)
	// Sections not present keep their defaults.
	assert.Equal(t, uint32(1024), cfg.Render.DescriptorPoolSize)
	assert.Equal(t, "assets", cfg.Assets.Dir)
}

func TestLoadRejectsBadFrameCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prisma.toml")
	require.NoError(t, os.WriteFile(path, []byte("[render]\nframes_in_flight = 0\n"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "frames_in_flight")
}
