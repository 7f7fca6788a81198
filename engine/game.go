package engine

import (
	"github.com/spaghettifunk/prisma/engine/config"
	"github.com/spaghettifunk/prisma/engine/renderer"
)

// Game is the application-side half of the engine. The engine owns the
// window, the renderer and the frame loop; the game fills in the callbacks.
type Game struct {
	ApplicationConfig *config.ApplicationConfig
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnRender          Render
	FnOnResize        OnResize
	FnShutdown        Shutdown
}

type Initialize func() error
type Update func(deltaTime float64) error
type Render func(deltaTime float64) (*renderer.RenderPacket, error)
type OnResize func(width uint32, height uint32) error
type Shutdown func() error
