package binding

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/prisma/engine/core"
)

/**
 * @brief PipelineLayout is the per-device cached native layout derived from an
 * ordered list of binding schemas.
 */
type PipelineLayout struct {
	mu         sync.Mutex
	setLayouts []*DescriptorSetLayout
	perDevice  map[Device]PipelineLayoutHandle
}

func NewPipelineLayout(setLayouts ...*DescriptorSetLayout) *PipelineLayout {
	return &PipelineLayout{
		setLayouts: setLayouts,
		perDevice:  make(map[Device]PipelineLayoutHandle),
	}
}

// SetLayouts returns the binding schemas, in set order.
func (pl *PipelineLayout) SetLayouts() []*DescriptorSetLayout {
	return pl.setLayouts
}

// Validate validates every schema for the context's device, then creates the
// native pipeline layout if absent. Creation happens at most once per device.
func (pl *PipelineLayout) Validate(ctx *RenderContext) error {
	for _, l := range pl.setLayouts {
		if err := l.Validate(ctx); err != nil {
			return err
		}
	}

	pl.mu.Lock()
	defer pl.mu.Unlock()

	if _, ok := pl.perDevice[ctx.Device]; ok {
		return nil
	}
	handles := make([]DescriptorSetLayoutHandle, 0, len(pl.setLayouts))
	for _, l := range pl.setLayouts {
		h, err := l.Handle(ctx.Device)
		if err != nil {
			return err
		}
		handles = append(handles, h)
	}
	handle, err := ctx.Device.CreatePipelineLayout(handles)
	if err != nil {
		return fmt.Errorf("pipeline layout creation failed: %w", err)
	}
	pl.perDevice[ctx.Device] = handle
	return nil
}

// Handle returns the cached native pipeline layout for the device.
func (pl *PipelineLayout) Handle(device Device) (PipelineLayoutHandle, error) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	handle, ok := pl.perDevice[device]
	if !ok {
		return nil, fmt.Errorf("pipeline layout: %w", core.ErrNotValidated)
	}
	return handle, nil
}

// Destroy releases all native handles.
func (pl *PipelineLayout) Destroy() {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	for device, handle := range pl.perDevice {
		device.DestroyPipelineLayout(handle)
		delete(pl.perDevice, device)
	}
}
