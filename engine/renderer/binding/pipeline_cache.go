package binding

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/prisma/engine/core"
)

// PipelineCache is the per-device cache object pipeline compilation goes
// through, so repeated pipeline builds on one device can reuse compiled state.
type PipelineCache struct {
	mu        sync.Mutex
	perDevice map[Device]PipelineCacheHandle
}

func NewPipelineCache() *PipelineCache {
	return &PipelineCache{
		perDevice: make(map[Device]PipelineCacheHandle),
	}
}

// Validate creates the native cache for the context's device if absent.
func (pc *PipelineCache) Validate(ctx *RenderContext) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if _, ok := pc.perDevice[ctx.Device]; ok {
		return nil
	}
	handle, err := ctx.Device.CreatePipelineCache()
	if err != nil {
		return fmt.Errorf("pipeline cache creation failed: %w", err)
	}
	pc.perDevice[ctx.Device] = handle
	return nil
}

// Handle returns the cached native pipeline cache for the device.
func (pc *PipelineCache) Handle(device Device) (PipelineCacheHandle, error) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	handle, ok := pc.perDevice[device]
	if !ok {
		return nil, fmt.Errorf("pipeline cache: %w", core.ErrNotValidated)
	}
	return handle, nil
}

// Destroy releases all native handles.
func (pc *PipelineCache) Destroy() {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	for device, handle := range pc.perDevice {
		device.DestroyPipelineCache(handle)
		delete(pc.perDevice, device)
	}
}
