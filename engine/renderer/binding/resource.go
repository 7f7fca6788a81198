package binding

// Invalidatable is the observer capability a bindable resource holds on to.
// Resources keep these as non-owning references and call Invalidate on every
// registered observer when they mutate; they never outlive-manage them.
type Invalidatable interface {
	Invalidate()
}

// Resource is anything that can supply binding values for a descriptor slot:
// a buffer region, an image view with its sampler, and so on. A resource may
// back any number of descriptors across unrelated descriptor sets; each of
// them owns an independent observer registration, so one mutation fans out to
// every dependent set. That fan-out is intended.
type Resource interface {
	// RegisterObserver adds a change observer. Every registration must be
	// matched by exactly one UnregisterObserver.
	RegisterObserver(observer Invalidatable)
	UnregisterObserver(observer Invalidatable)

	// Validate brings the resource's native state up to date for the given
	// device and frame slot.
	Validate(ctx *RenderContext) error

	// DescriptorValues returns the current concrete binding values. It must
	// reflect the resource's present state, never a stale snapshot.
	DescriptorValues(ctx *RenderContext) ([]DescriptorValue, error)
}

// Node is a render-graph consumer of a descriptor set or pipeline. When the
// object it consumes is invalidated, any command recording that referenced the
// old native handle must be discarded rather than replayed.
type Node interface {
	InvalidateCommandBuffers()
}

// RenderPass is the narrow contract a graphics pipeline needs from the pass it
// is built against.
type RenderPass interface {
	Validate(ctx *RenderContext) error
	Handle(device Device) (RenderPassHandle, error)
	SubpassCount() uint32
}
