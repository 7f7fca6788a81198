package engine

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/spaghettifunk/prisma/engine/assets"
	"github.com/spaghettifunk/prisma/engine/config"
	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/platform"
	"github.com/spaghettifunk/prisma/engine/renderer"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine completed boot process and is ready to be initialized
	EngineStageBootComplete
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// How often frame statistics are written to the log.
const metricsLogIntervalSeconds = 5.0

type Engine struct {
	currentStage Stage
	gameInstance *Game
	isRunning    bool
	isSuspended  bool
	platform     *platform.Platform
	assetManager *assets.AssetManager
	width        uint32
	height       uint32
	clock        *core.Clock
	lastTime     float64

	metricsAccum float64
}

func New(g *Game) (*Engine, error) {
	if g.ApplicationConfig == nil {
		g.ApplicationConfig = config.Default()
	}
	core.SetLogLevel(g.ApplicationConfig.LogLevel())

	p, err := platform.New()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	am, err := assets.NewAssetManager()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		clock:        core.NewClock(),
		platform:     p,
		assetManager: am,
		isRunning:    true,
		isSuspended:  false,
		width:        g.ApplicationConfig.Window.Width,
		height:       g.ApplicationConfig.Window.Height,
		lastTime:     0,
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	cfg := e.gameInstance.ApplicationConfig

	// initialize input
	if err := core.InputInitialize(); err != nil {
		return err
	}

	// initialize events
	if !core.EventInitialize() {
		return fmt.Errorf("failed to initialize the event system")
	}

	if err := core.MetricsInitialize(); err != nil {
		return err
	}

	// register some events
	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e.onEvent)
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, e.onKey)
	core.EventRegister(core.EVENT_CODE_KEY_RELEASED, e.onKey)
	core.EventRegister(core.EVENT_CODE_RESIZED, e.onResized)

	if err := e.platform.Startup(cfg.Name,
		cfg.Window.StartPosX,
		cfg.Window.StartPosY,
		cfg.Window.Width,
		cfg.Window.Height); err != nil {
		return err
	}

	assetsDir, err := filepath.Abs(cfg.Assets.Dir)
	if err != nil {
		return err
	}
	if err := e.assetManager.Initialize(assetsDir, cfg.Assets.HotReload); err != nil {
		return err
	}
	// A touched shader file on disk becomes an engine event. The watcher
	// runs on its own goroutine, so delivery is deferred to the frame loop;
	// listeners reload the module there, between frames, which invalidates
	// the pipelines built from it.
	e.assetManager.OnShaderReload(func(path string) {
		core.EventFireDeferred(core.EventContext{
			Type: core.EVENT_CODE_SHADER_RELOADED,
			Data: &core.AssetEvent{Path: path},
		})
	})

	if err := renderer.Initialize(cfg.Name, e.width, e.height, e.platform, cfg.Render); err != nil {
		return err
	}

	if err := e.gameInstance.FnInitialize(); err != nil {
		return err
	}

	if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
		return err
	}

	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning

	e.clock.Start()
	e.clock.Update()

	e.lastTime = e.clock.Elapsed()

	for e.isRunning {
		e.platform.PumpMessages()
		if e.platform.ShouldClose() {
			e.isRunning = false
		}

		if !e.isSuspended {
			// Deliver events queued by background goroutines before any
			// frame work references the state their listeners mutate.
			core.EventPump()

			// Update clock and get delta time.
			e.clock.Update()

			currentTime := e.clock.Elapsed()
			delta := currentTime - e.lastTime

			if err := e.gameInstance.FnUpdate(delta); err != nil {
				core.LogFatal("Game update failed, shutting down.")
				e.isRunning = false
				break
			}

			packet, err := e.gameInstance.FnRender(delta)
			if err != nil {
				core.LogFatal("Game render failed, shutting down.")
				e.isRunning = false
				break
			}

			if packet != nil {
				if err := renderer.DrawFrame(packet); err != nil {
					core.LogError(err.Error())
					e.isRunning = false
					break
				}
			}

			e.clock.Update()
			core.MetricsUpdate(e.clock.Elapsed() - currentTime)
			e.logMetrics(delta)

			// NOTE: Input update/state copying should always be handled
			// after any input should be recorded; I.E. before this line.
			// As a safety, input is the last thing to be updated before
			// this frame ends.
			core.InputUpdate(delta)

			// Update last time
			e.lastTime = currentTime
		}
	}

	return e.Shutdown()
}

func (e *Engine) logMetrics(delta float64) {
	e.metricsAccum += delta
	if e.metricsAccum < metricsLogIntervalSeconds {
		return
	}
	e.metricsAccum = 0
	fps, frameTime := core.MetricsFrame()
	core.LogInfo("%.1f fps, %.2f ms/frame, %d descriptor validations", fps, frameTime*1000.0, core.MetricsTakeValidations())
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown

	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			core.LogError(err.Error())
		}
	}
	if err := renderer.Shutdown(); err != nil {
		return err
	}
	if err := e.assetManager.Shutdown(); err != nil {
		return err
	}
	if err := core.EventShutdown(); err != nil {
		return err
	}
	if err := core.InputShutdown(); err != nil {
		return err
	}
	if err := e.platform.Shutdown(); err != nil {
		return err
	}
	return nil
}

// GetFramebufferSize returns the width and height (in this order)
// of the application framebuffer
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

// Assets exposes the asset manager so games can load shaders and textures.
func (e *Engine) Assets() *assets.AssetManager {
	return e.assetManager
}

// ParallelFor runs fn for every index in [0, count) across a bounded worker
// group. Used by update code that touches many scene objects per frame.
func ParallelFor(count int, fn func(i int)) {
	workers := runtime.GOMAXPROCS(0)
	if workers > count {
		workers = count
	}
	if workers <= 1 {
		for i := 0; i < count; i++ {
			fn(i)
		}
		return
	}

	var wg sync.WaitGroup
	next := make(chan int)
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range next {
				fn(i)
			}
		}()
	}
	for i := 0; i < count; i++ {
		next <- i
	}
	close(next)
	wg.Wait()
}

func (e *Engine) onEvent(context core.EventContext) {
	switch context.Type {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT recieved, shutting down.")
		e.isRunning = false
	}
}

func (e *Engine) onKey(context core.EventContext) {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return
	}

	keyCode := ke.KeyCode

	if context.Type == core.EVENT_CODE_KEY_PRESSED {
		if keyCode == core.KEY_ESCAPE {
			// NOTE: Technically firing an event to itself, but there may be other listeners.
			data := core.EventContext{
				Type: core.EVENT_CODE_APPLICATION_QUIT,
			}
			core.EventFire(data)
			// Block anything else from processing this.
			return
		}
		core.LogDebug("'%c' key pressed in window.", keyCode)
	} else if context.Type == core.EVENT_CODE_KEY_RELEASED {
		core.LogDebug("'%c' key released in window.", keyCode)
	}
}

func (e *Engine) onResized(context core.EventContext) {
	if context.Type != core.EVENT_CODE_RESIZED {
		return
	}
	se, ok := context.Data.(*core.SystemEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return
	}

	width := se.WindowWidth
	height := se.WindowHeight

	// Check if different. If so, trigger a resize event.
	if width != e.width || height != e.height {
		e.width = width
		e.height = height

		core.LogDebug("Window resize: %d, %d", width, height)

		// Handle minimization
		if width == 0 || height == 0 {
			core.LogInfo("Window minimized, suspending application.")
			e.isSuspended = true
			return
		}
		if e.isSuspended {
			core.LogInfo("Window restored, resuming application.")
			e.isSuspended = false
		}
		e.gameInstance.FnOnResize(width, height)
		if err := renderer.OnResize(uint16(width), uint16(height)); err != nil {
			core.LogError(err.Error())
		}
	}
}
