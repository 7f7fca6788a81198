package binding

import (
	"fmt"
	"sort"
	"sync"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

/**
 * @brief DescriptorSet aggregates descriptors by binding slot and owns, per
 * surface, one native descriptor set handle and one validity flag per
 * in-flight slot. Validation for slot i is independent of slot j and never
 * blocks on it; rendering slot i may overlap updating the data destined for
 * slot i+1.
 *
 * Any contained-descriptor invalidation, binding mutation or in-flight-count
 * resize clears validity and tells every registered consumer node to discard
 * cached command recordings that referenced the now-stale native handle.
 */
type DescriptorSet struct {
	mu          sync.Mutex
	layout      *DescriptorSetLayout
	pool        *DescriptorPool
	descriptors map[uint32]*Descriptor
	perSurface  map[SurfaceID]*setPerSurface
	nodes       []Node
}

type setPerSurface struct {
	device  Device
	handles []DescriptorSetHandle
	valid   []bool
}

func (ps *setPerSurface) resize(count uint32) {
	ps.handles = make([]DescriptorSetHandle, count)
	ps.valid = make([]bool, count)
}

func NewDescriptorSet(layout *DescriptorSetLayout, pool *DescriptorPool) *DescriptorSet {
	return &DescriptorSet{
		layout:      layout,
		pool:        pool,
		descriptors: make(map[uint32]*Descriptor),
		perSurface:  make(map[SurfaceID]*setPerSurface),
	}
}

// Layout returns the binding schema this set was built from.
func (s *DescriptorSet) Layout() *DescriptorSetLayout {
	return s.layout
}

// SetDescriptor creates or replaces the descriptor at the given slot with the
// supplied kind tag and backing resources, invalidating the set.
func (s *DescriptorSet) SetDescriptor(binding uint32, kind metadata.DescriptorKind, resources ...Resource) error {
	if len(resources) == 0 {
		return fmt.Errorf("slot %d: a descriptor needs at least one backing resource", binding)
	}

	descriptor := newDescriptor(s, kind, resources)

	s.mu.Lock()
	previous := s.descriptors[binding]
	s.descriptors[binding] = descriptor
	s.mu.Unlock()

	// Observer registration happens outside the set lock: resources notify
	// their observers on mutation and that path takes the set lock.
	if previous != nil {
		previous.unregisterFromResources()
	}
	descriptor.registerInResources()

	s.Invalidate()
	return nil
}

// SetResource is SetDescriptor with the kind tag taken from the layout.
func (s *DescriptorSet) SetResource(binding uint32, resources ...Resource) error {
	kind, err := s.layout.DescriptorKind(binding)
	if err != nil {
		return err
	}
	return s.SetDescriptor(binding, kind, resources...)
}

// ResetDescriptor removes the binding at the given slot, unregistering its
// observers, and invalidates the set. Resetting an empty slot is a no-op.
func (s *DescriptorSet) ResetDescriptor(binding uint32) {
	s.mu.Lock()
	descriptor := s.descriptors[binding]
	delete(s.descriptors, binding)
	s.mu.Unlock()

	if descriptor == nil {
		return
	}
	descriptor.unregisterFromResources()
	s.Invalidate()
}

// Descriptor returns the descriptor currently bound at the slot, or nil.
func (s *DescriptorSet) Descriptor(binding uint32) *Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.descriptors[binding]
}

// Validate validates every contained descriptor, then, if the active in-flight
// slot is marked invalid, allocates (or reuses) the native set for that slot
// and writes all current binding values into it. Other slots are untouched.
func (s *DescriptorSet) Validate(ctx *RenderContext) error {
	if ctx.ImageCount == 0 {
		return fmt.Errorf("descriptor set: render context has no in-flight slots")
	}
	if ctx.ImageIndex >= ctx.ImageCount {
		return fmt.Errorf("descriptor set: in-flight index %d out of range (count=%d)", ctx.ImageIndex, ctx.ImageCount)
	}

	if err := s.layout.Validate(ctx); err != nil {
		return err
	}
	if err := s.pool.Validate(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	descriptors := make([]*Descriptor, 0, len(s.descriptors))
	for _, d := range s.descriptors {
		descriptors = append(descriptors, d)
	}
	s.mu.Unlock()

	// Pass-through validation of backing resources, outside the set lock.
	for _, d := range descriptors {
		if err := d.Validate(ctx); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ps, ok := s.perSurface[ctx.Surface]
	if !ok {
		ps = &setPerSurface{device: ctx.Device}
		ps.resize(ctx.ImageCount)
		s.perSurface[ctx.Surface] = ps
	}
	if uint32(len(ps.handles)) != ctx.ImageCount {
		s.releasePerSurfaceLocked(ps)
		ps.resize(ctx.ImageCount)
	}

	idx := ctx.ImageIndex
	if ps.valid[idx] {
		return nil
	}

	if ps.handles[idx] == nil {
		layoutHandle, err := s.layout.Handle(ctx.Device)
		if err != nil {
			return err
		}
		handle, err := s.pool.Allocate(ctx.Device, layoutHandle)
		if err != nil {
			return err
		}
		ps.handles[idx] = handle
	}

	writes, err := s.collectWritesLocked(ctx)
	if err != nil {
		return err
	}
	if err := ctx.Device.WriteDescriptorSet(ps.handles[idx], writes); err != nil {
		return fmt.Errorf("descriptor set write failed: %w", err)
	}
	ps.valid[idx] = true
	return nil
}

func (s *DescriptorSet) collectWritesLocked(ctx *RenderContext) ([]DescriptorWrite, error) {
	bindings := make([]uint32, 0, len(s.descriptors))
	for b := range s.descriptors {
		bindings = append(bindings, b)
	}
	sort.Slice(bindings, func(i, j int) bool { return bindings[i] < bindings[j] })

	writes := make([]DescriptorWrite, 0, len(bindings))
	for _, b := range bindings {
		d := s.descriptors[b]
		values, err := d.DescriptorValues(ctx)
		if err != nil {
			return nil, err
		}
		writes = append(writes, DescriptorWrite{
			Binding: b,
			Kind:    d.Kind(),
			Values:  values,
		})
	}
	return writes, nil
}

// Handle returns the native descriptor set for the context's surface and
// in-flight slot. The slot must have been validated since its last
// invalidation.
func (s *DescriptorSet) Handle(ctx *RenderContext) (DescriptorSetHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, ok := s.perSurface[ctx.Surface]
	if !ok {
		return nil, fmt.Errorf("descriptor set: %w", core.ErrNotValidated)
	}
	if ctx.ImageIndex >= uint32(len(ps.valid)) || !ps.valid[ctx.ImageIndex] {
		return nil, fmt.Errorf("descriptor set not validated for in-flight index %d: %w", ctx.ImageIndex, core.ErrNotValidated)
	}
	return ps.handles[ctx.ImageIndex], nil
}

// Invalidate marks every in-flight slot of every surface invalid and tells
// all consumer nodes to discard cached command recordings. The next Validate
// rewrites the active slot; native handles are kept and reused.
func (s *DescriptorSet) Invalidate() {
	s.mu.Lock()
	for _, ps := range s.perSurface {
		for i := range ps.valid {
			ps.valid[i] = false
		}
	}
	nodes := make([]Node, len(s.nodes))
	copy(nodes, s.nodes)
	s.mu.Unlock()

	for _, n := range nodes {
		n.InvalidateCommandBuffers()
	}
}

// AddNode registers a render-graph consumer of this set.
func (s *DescriptorSet) AddNode(node Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = append(s.nodes, node)
}

// RemoveNode unregisters a consumer. Unknown nodes are ignored.
func (s *DescriptorSet) RemoveNode(node Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.nodes {
		if n == node {
			s.nodes = append(s.nodes[:i], s.nodes[i+1:]...)
			return
		}
	}
}

// releasePerSurfaceLocked gives allocated native sets back to the pool. Used
// on in-flight-count resize and on destruction.
func (s *DescriptorSet) releasePerSurfaceLocked(ps *setPerSurface) {
	for i, handle := range ps.handles {
		if handle == nil {
			continue
		}
		if err := s.pool.Free(ps.device, handle); err != nil {
			core.LogWarn("descriptor set: failed to release native set: %s", err.Error())
		}
		ps.handles[i] = nil
	}
}

// Destroy clears every binding (unregistering all observers), releases the
// per-surface native sets and notifies consumers one last time.
func (s *DescriptorSet) Destroy() {
	s.mu.Lock()
	descriptors := make([]*Descriptor, 0, len(s.descriptors))
	for _, d := range s.descriptors {
		descriptors = append(descriptors, d)
	}
	s.descriptors = make(map[uint32]*Descriptor)
	for _, ps := range s.perSurface {
		s.releasePerSurfaceLocked(ps)
	}
	s.perSurface = make(map[SurfaceID]*setPerSurface)
	nodes := make([]Node, len(s.nodes))
	copy(nodes, s.nodes)
	s.nodes = nil
	s.mu.Unlock()

	for _, d := range descriptors {
		d.unregisterFromResources()
	}
	for _, n := range nodes {
		n.InvalidateCommandBuffers()
	}
}
