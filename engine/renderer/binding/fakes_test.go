package binding

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

// fakeDevice counts native-object creations and records descriptor writes so
// tests can assert the at-most-one-rebuild-per-invalidation contract.
type fakeDevice struct {
	mu sync.Mutex

	capabilities map[Capability]bool

	layoutsCreated         int
	poolsCreated           int
	setsAllocated          int
	setsFreed              int
	pipelineLayoutsCreated int
	cachesCreated          int
	graphicsCreated        int
	computeCreated         int
	pipelinesDestroyed     int
	shaderModulesCreated   int
	writeCount             int

	// last writes per native set handle
	writes map[DescriptorSetHandle][]DescriptorWrite
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		capabilities: map[Capability]bool{CapabilityMultiDrawIndirect: true},
		writes:       make(map[DescriptorSetHandle][]DescriptorWrite),
	}
}

func (d *fakeDevice) Supports(capability Capability) bool {
	return d.capabilities[capability]
}

func (d *fakeDevice) CreateDescriptorSetLayout(bindings []metadata.DescriptorBinding) (DescriptorSetLayoutHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.layoutsCreated++
	return fmt.Sprintf("layout-%d", d.layoutsCreated), nil
}

func (d *fakeDevice) DestroyDescriptorSetLayout(handle DescriptorSetLayoutHandle) {}

func (d *fakeDevice) CreateDescriptorPool(maxSets uint32, bindings []metadata.DescriptorBinding) (DescriptorPoolHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.poolsCreated++
	return fmt.Sprintf("pool-%d", d.poolsCreated), nil
}

func (d *fakeDevice) DestroyDescriptorPool(handle DescriptorPoolHandle) {}

func (d *fakeDevice) AllocateDescriptorSet(pool DescriptorPoolHandle, layout DescriptorSetLayoutHandle) (DescriptorSetHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setsAllocated++
	return fmt.Sprintf("set-%d", d.setsAllocated), nil
}

func (d *fakeDevice) FreeDescriptorSet(pool DescriptorPoolHandle, handle DescriptorSetHandle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setsFreed++
	return nil
}

func (d *fakeDevice) WriteDescriptorSet(handle DescriptorSetHandle, writes []DescriptorWrite) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writeCount++
	d.writes[handle] = writes
	return nil
}

func (d *fakeDevice) lastWrites(handle DescriptorSetHandle) []DescriptorWrite {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writes[handle]
}

func (d *fakeDevice) CreatePipelineLayout(setLayouts []DescriptorSetLayoutHandle) (PipelineLayoutHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pipelineLayoutsCreated++
	return fmt.Sprintf("pipeline-layout-%d", d.pipelineLayoutsCreated), nil
}

func (d *fakeDevice) DestroyPipelineLayout(handle PipelineLayoutHandle) {}

func (d *fakeDevice) CreatePipelineCache() (PipelineCacheHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cachesCreated++
	return fmt.Sprintf("cache-%d", d.cachesCreated), nil
}

func (d *fakeDevice) DestroyPipelineCache(handle PipelineCacheHandle) {}

func (d *fakeDevice) CreateGraphicsPipeline(cache PipelineCacheHandle, state *GraphicsPipelineState) (PipelineHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.graphicsCreated++
	return fmt.Sprintf("graphics-pipeline-%d", d.graphicsCreated), nil
}

func (d *fakeDevice) CreateComputePipeline(cache PipelineCacheHandle, state *ComputePipelineState) (PipelineHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.computeCreated++
	return fmt.Sprintf("compute-pipeline-%d", d.computeCreated), nil
}

func (d *fakeDevice) DestroyPipeline(handle PipelineHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pipelinesDestroyed++
}

func (d *fakeDevice) CreateShaderModule(code []byte) (ShaderModuleHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shaderModulesCreated++
	return fmt.Sprintf("shader-module-%d", d.shaderModulesCreated), nil
}

func (d *fakeDevice) DestroyShaderModule(handle ShaderModuleHandle) {}

// fakeResource is a bindable resource whose binding value changes with every
// Set call, notifying registered observers the way a real buffer does.
type fakeResource struct {
	mu        sync.Mutex
	name      string
	version   uint32
	observers []Invalidatable

	validateCalls int
}

func newFakeResource(name string) *fakeResource {
	return &fakeResource{name: name}
}

func (r *fakeResource) RegisterObserver(observer Invalidatable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, observer)
}

func (r *fakeResource) UnregisterObserver(observer Invalidatable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, o := range r.observers {
		if o == observer {
			r.observers = append(r.observers[:i], r.observers[i+1:]...)
			return
		}
	}
}

func (r *fakeResource) observerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.observers)
}

func (r *fakeResource) Validate(ctx *RenderContext) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validateCalls++
	return nil
}

func (r *fakeResource) DescriptorValues(ctx *RenderContext) ([]DescriptorValue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return []DescriptorValue{{
		Buffer: &BufferInfo{
			Buffer: fmt.Sprintf("%s@v%d", r.name, r.version),
			Offset: 0,
			Range:  64,
		},
	}}, nil
}

// Set mutates the backing data and pushes invalidation to every observer,
// outside the resource lock.
func (r *fakeResource) Set(version uint32) {
	r.mu.Lock()
	r.version = version
	observers := make([]Invalidatable, len(r.observers))
	copy(observers, r.observers)
	r.mu.Unlock()

	for _, o := range observers {
		o.Invalidate()
	}
}

// fakeNode counts the invalidate-recordings hook calls.
type fakeNode struct {
	mu            sync.Mutex
	invalidations int
}

func (n *fakeNode) InvalidateCommandBuffers() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.invalidations++
}

func (n *fakeNode) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.invalidations
}

// fakeRenderPass satisfies the narrow pass contract pipelines need.
type fakeRenderPass struct {
	mu        sync.Mutex
	validated map[Device]bool
	subpasses uint32
}

func newFakeRenderPass(subpasses uint32) *fakeRenderPass {
	return &fakeRenderPass{
		validated: make(map[Device]bool),
		subpasses: subpasses,
	}
}

func (rp *fakeRenderPass) Validate(ctx *RenderContext) error {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	rp.validated[ctx.Device] = true
	return nil
}

func (rp *fakeRenderPass) Handle(device Device) (RenderPassHandle, error) {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	if !rp.validated[device] {
		return nil, fmt.Errorf("render pass not validated")
	}
	return "render-pass", nil
}

func (rp *fakeRenderPass) SubpassCount() uint32 {
	return rp.subpasses
}

func testContext(device Device, surface SurfaceID, index, count uint32) *RenderContext {
	return &RenderContext{
		Device:     device,
		Surface:    surface,
		ImageIndex: index,
		ImageCount: count,
	}
}

func testBindings() []metadata.DescriptorBinding {
	return []metadata.DescriptorBinding{
		metadata.NewDescriptorBinding(0, 1, metadata.DescriptorKindUniformBuffer, metadata.ShaderStageVertex|metadata.ShaderStageCompute),
		metadata.NewDescriptorBinding(1, 1, metadata.DescriptorKindStorageBuffer, metadata.ShaderStageCompute),
	}
}
