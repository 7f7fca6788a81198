package binding

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

/**
 * @brief DescriptorSetLayout is the binding schema of a descriptor set: an
 * ordered list of binding slots. It owns one cached native handle per device
 * it has been validated against. The schema is immutable once any device
 * handle exists; mutating it again requires an explicit Invalidate first.
 */
type DescriptorSetLayout struct {
	mu        sync.Mutex
	bindings  []metadata.DescriptorBinding
	perDevice map[Device]DescriptorSetLayoutHandle
}

func NewDescriptorSetLayout(bindings []metadata.DescriptorBinding) *DescriptorSetLayout {
	return &DescriptorSetLayout{
		bindings:  bindings,
		perDevice: make(map[Device]DescriptorSetLayoutHandle),
	}
}

// Validate creates the native layout for the context's device if it does not
// exist yet. Safe under concurrent calls from surfaces sharing one device; the
// creation happens at most once per device.
func (l *DescriptorSetLayout) Validate(ctx *RenderContext) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.perDevice[ctx.Device]; ok {
		return nil
	}
	handle, err := ctx.Device.CreateDescriptorSetLayout(l.bindings)
	if err != nil {
		return fmt.Errorf("descriptor set layout creation failed: %w", err)
	}
	l.perDevice[ctx.Device] = handle
	return nil
}

// Handle returns the cached native layout for the device.
func (l *DescriptorSetLayout) Handle(device Device) (DescriptorSetLayoutHandle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	handle, ok := l.perDevice[device]
	if !ok {
		return nil, fmt.Errorf("descriptor set layout: %w", core.ErrNotValidated)
	}
	return handle, nil
}

// Bindings returns the declared binding slots.
func (l *DescriptorSetLayout) Bindings() []metadata.DescriptorBinding {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bindings
}

// DescriptorKind returns the resource-kind tag declared for a slot.
func (l *DescriptorSetLayout) DescriptorKind(binding uint32) (metadata.DescriptorKind, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, b := range l.bindings {
		if b.Binding == binding {
			return b.Kind, nil
		}
	}
	return 0, fmt.Errorf("slot %d: %w", binding, core.ErrUnknownBinding)
}

// BindingCount returns the array count declared for a slot, or zero if the
// slot is not part of the schema.
func (l *DescriptorSetLayout) BindingCount(binding uint32) uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, b := range l.bindings {
		if b.Binding == binding {
			return b.Count
		}
	}
	return 0
}

// SetBindings replaces the schema. Rejected once any device handle exists;
// call Invalidate first when a post-validation reshape is really wanted.
func (l *DescriptorSetLayout) SetBindings(bindings []metadata.DescriptorBinding) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.perDevice) > 0 {
		return fmt.Errorf("descriptor set layout: %w", core.ErrAlreadyValidated)
	}
	l.bindings = bindings
	return nil
}

// Invalidate discards every cached native handle, forcing re-creation on the
// next Validate. It does not cascade to descriptor sets built from this
// schema; reshaping a schema that live sets still reference is a programming
// error.
func (l *DescriptorSetLayout) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for device, handle := range l.perDevice {
		device.DestroyDescriptorSetLayout(handle)
		delete(l.perDevice, device)
	}
}

// Destroy releases all native handles.
func (l *DescriptorSetLayout) Destroy() {
	l.Invalidate()
}
