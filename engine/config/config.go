package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/prisma/engine/core"
)

// ApplicationConfig drives engine startup. Loaded from a TOML file next to
// the binary, with Default() values for anything the file omits.
type ApplicationConfig struct {
	Name   string       `toml:"name"`
	Window WindowConfig `toml:"window"`
	Render RenderConfig `toml:"render"`
	Assets AssetsConfig `toml:"assets"`
	Log    LogConfig    `toml:"log"`
}

type WindowConfig struct {
	StartPosX uint32 `toml:"start_pos_x"`
	StartPosY uint32 `toml:"start_pos_y"`
	Width     uint32 `toml:"width"`
	Height    uint32 `toml:"height"`
}

type RenderConfig struct {
	// Number of frames the CPU may record ahead of the GPU. Bounded to keep
	// per-surface handle arrays small.
	FramesInFlight uint32 `toml:"frames_in_flight"`
	// Upper bound for descriptor sets allocated from one pool.
	DescriptorPoolSize uint32 `toml:"descriptor_pool_size"`
	VSync              bool   `toml:"vsync"`
	ValidationLayers   bool   `toml:"validation_layers"`
}

type AssetsConfig struct {
	// Root directory for shaders and textures.
	Dir string `toml:"dir"`
	// Watch the shader directory and reload modules on change.
	HotReload bool `toml:"hot_reload"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

func Default() *ApplicationConfig {
	return &ApplicationConfig{
		Name: "Prisma Application",
		Window: WindowConfig{
			StartPosX: 100,
			StartPosY: 100,
			Width:     1280,
			Height:    720,
		},
		Render: RenderConfig{
			FramesInFlight:     2,
			DescriptorPoolSize: 1024,
			VSync:              true,
			ValidationLayers:   false,
		},
		Assets: AssetsConfig{
			Dir:       "assets",
			HotReload: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path and overlays it on Default(). A missing file is not an
// error, the defaults are returned.
func Load(path string) (*ApplicationConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			core.LogDebug("config file %s not found, using defaults", path)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ApplicationConfig) validate() error {
	if c.Render.FramesInFlight == 0 || c.Render.FramesInFlight > 8 {
		return fmt.Errorf("render.frames_in_flight must be between 1 and 8, got %d", c.Render.FramesInFlight)
	}
	if c.Render.DescriptorPoolSize == 0 {
		return fmt.Errorf("render.descriptor_pool_size must be positive")
	}
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return fmt.Errorf("window dimensions must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	return nil
}

// LogLevel maps the configured level name to a core log level.
func (c *ApplicationConfig) LogLevel() core.LogLevel {
	switch c.Log.Level {
	case "debug":
		return core.DebugLevel
	case "warn":
		return core.WarnLevel
	case "error":
		return core.ErrorLevel
	default:
		return core.InfoLevel
	}
}
