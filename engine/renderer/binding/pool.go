package binding

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

/**
 * @brief DescriptorPool hands out native descriptor sets shaped by a binding
 * schema. The pool capacity, meaning the maximum number of concurrently
 * allocated sets, is fixed at construction time and accounted per device.
 */
type DescriptorPool struct {
	mu        sync.Mutex
	poolSize  uint32
	bindings  []metadata.DescriptorBinding
	perDevice map[Device]*poolPerDevice
}

type poolPerDevice struct {
	handle    DescriptorPoolHandle
	allocated uint32
}

func NewDescriptorPool(poolSize uint32, bindings []metadata.DescriptorBinding) *DescriptorPool {
	return &DescriptorPool{
		poolSize:  poolSize,
		bindings:  bindings,
		perDevice: make(map[Device]*poolPerDevice),
	}
}

// PoolSize returns the fixed capacity.
func (p *DescriptorPool) PoolSize() uint32 {
	return p.poolSize
}

// Validate creates the native pool for the context's device if absent.
func (p *DescriptorPool) Validate(ctx *RenderContext) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.perDevice[ctx.Device]; ok {
		return nil
	}
	handle, err := ctx.Device.CreateDescriptorPool(p.poolSize, p.bindings)
	if err != nil {
		return fmt.Errorf("descriptor pool creation failed: %w", err)
	}
	p.perDevice[ctx.Device] = &poolPerDevice{handle: handle}
	return nil
}

// Handle returns the cached native pool for the device.
func (p *DescriptorPool) Handle(device Device) (DescriptorPoolHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pd, ok := p.perDevice[device]
	if !ok {
		return nil, fmt.Errorf("descriptor pool: %w", core.ErrNotValidated)
	}
	return pd.handle, nil
}

// Allocate takes one native set out of the pool for the given device.
func (p *DescriptorPool) Allocate(device Device, layout DescriptorSetLayoutHandle) (DescriptorSetHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pd, ok := p.perDevice[device]
	if !ok {
		return nil, fmt.Errorf("descriptor pool: %w", core.ErrNotValidated)
	}
	if pd.allocated >= p.poolSize {
		return nil, fmt.Errorf("descriptor pool (size %d): %w", p.poolSize, core.ErrPoolExhausted)
	}
	handle, err := device.AllocateDescriptorSet(pd.handle, layout)
	if err != nil {
		return nil, fmt.Errorf("descriptor set allocation failed: %w", err)
	}
	pd.allocated++
	return handle, nil
}

// Free returns a previously allocated set to the pool.
func (p *DescriptorPool) Free(device Device, handle DescriptorSetHandle) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	pd, ok := p.perDevice[device]
	if !ok {
		return fmt.Errorf("descriptor pool: %w", core.ErrNotValidated)
	}
	if err := device.FreeDescriptorSet(pd.handle, handle); err != nil {
		return err
	}
	if pd.allocated > 0 {
		pd.allocated--
	}
	return nil
}

// Destroy releases every native pool. Sets allocated from a destroyed pool
// are released with it.
func (p *DescriptorPool) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for device, pd := range p.perDevice {
		device.DestroyDescriptorPool(pd.handle)
		delete(p.perDevice, device)
	}
}
