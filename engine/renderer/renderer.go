package renderer

import (
	"sync"

	"github.com/spaghettifunk/prisma/engine/config"
	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/platform"
	"github.com/spaghettifunk/prisma/engine/renderer/binding"
	"github.com/spaghettifunk/prisma/engine/renderer/vulkan"
)

// RenderPacket carries everything the renderer needs for one frame.
type RenderPacket struct {
	DeltaTime float64
	// Compute is invoked with the command buffer open but before the main
	// render pass begins. Compute dispatches belong here.
	Compute func(cb *vulkan.VulkanCommandBuffer, ctx binding.RenderContext) error
	// Record is invoked with the main render pass active.
	Record func(cb *vulkan.VulkanCommandBuffer, ctx binding.RenderContext) error
}

type RendererType uint8

const (
	Vulkan RendererType = iota
	DirectX
	Metal
	OpenGL
)

type Renderer struct {
	backend *vulkan.VulkanRenderer
}

var initRenderer sync.Once
var renderer *Renderer

func Initialize(appName string, appWidth, appHeight uint32, p *platform.Platform, renderConfig config.RenderConfig) error {
	initRenderer.Do(func() {
		renderer = &Renderer{
			backend: vulkan.New(p, renderConfig),
		}
	})
	return renderer.backend.Initialize(appName, appWidth, appHeight)
}

func Shutdown() error {
	return renderer.backend.Shutdown()
}

// Device returns the native-object factory. Binding objects key their
// per-device caches by it.
func Device() binding.Device {
	return renderer.backend.Device()
}

// RenderContext describes the frame slot currently being prepared.
func RenderContext() binding.RenderContext {
	return renderer.backend.RenderContext()
}

func Backend() *vulkan.VulkanRenderer {
	return renderer.backend
}

func OnResize(width, height uint16) error {
	return renderer.backend.Resized(width, height)
}

// InvalidateCommandBuffers marks every recorded frame stale so draw commands
// are re-recorded after native objects changed underneath them.
func InvalidateCommandBuffers() {
	renderer.backend.InvalidateCommandBuffers()
}

// DeferRelease parks a release callback until all frames currently in flight
// have retired.
func DeferRelease(release func()) {
	renderer.backend.DeferRelease(release)
}

func DrawFrame(renderPacket *RenderPacket) error {
	ready, err := renderer.backend.BeginFrame(renderPacket.DeltaTime)
	if err != nil {
		core.LogError(err.Error())
		return err
	}
	if !ready {
		// Swapchain is out of date. Skip this frame.
		return nil
	}
	cb := renderer.backend.CurrentCommandBuffer()
	ctx := renderer.backend.RenderContext()
	if renderPacket.Compute != nil {
		if err := renderPacket.Compute(cb, ctx); err != nil {
			core.LogError("compute recording failed: %s", err)
			return err
		}
	}
	renderer.backend.BeginMainRenderPass()
	if renderPacket.Record != nil {
		if err := renderPacket.Record(cb, ctx); err != nil {
			core.LogError("frame recording failed: %s", err)
			return err
		}
	}
	if err := renderer.backend.EndFrame(renderPacket.DeltaTime); err != nil {
		core.LogError("RendererEndFrame failed. Application shutting down...")
		return err
	}
	return nil
}
