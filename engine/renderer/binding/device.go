package binding

import "github.com/spaghettifunk/prisma/engine/renderer/metadata"

// Opaque native handles. The backend decides what hides behind them; this layer
// only caches and hands them back. All of them are comparable against nil.
type (
	DescriptorSetLayoutHandle interface{}
	DescriptorPoolHandle      interface{}
	DescriptorSetHandle       interface{}
	PipelineLayoutHandle      interface{}
	PipelineCacheHandle       interface{}
	PipelineHandle            interface{}
	ShaderModuleHandle        interface{}
	RenderPassHandle          interface{}
	BufferHandle              interface{}
	ImageViewHandle           interface{}
	SamplerHandle             interface{}
)

// Capability names an optional device feature the render-command layer may
// query before choosing a code path.
type Capability uint8

const (
	// CapabilityMultiDrawIndirect is set when a single indirect draw command
	// can consume a whole array of draw records.
	CapabilityMultiDrawIndirect Capability = iota
	// CapabilityDrawIndirectFirstInstance is set when indirect draw records may
	// carry a non-zero first instance.
	CapabilityDrawIndirectFirstInstance
	// CapabilitySamplerAnisotropy is set when samplers may enable anisotropic
	// filtering.
	CapabilitySamplerAnisotropy
)

func (c Capability) String() string {
	switch c {
	case CapabilityMultiDrawIndirect:
		return "multi-draw-indirect"
	case CapabilityDrawIndirectFirstInstance:
		return "draw-indirect-first-instance"
	case CapabilitySamplerAnisotropy:
		return "sampler-anisotropy"
	}
	return "unknown"
}

/**
 * @brief BufferInfo is the buffer-range flavour of a concrete binding value.
 */
type BufferInfo struct {
	Buffer BufferHandle
	Offset uint64
	Range  uint64
}

/**
 * @brief ImageInfo is the image-view-plus-sampler flavour of a concrete
 * binding value.
 */
type ImageInfo struct {
	Sampler   SamplerHandle
	ImageView ImageViewHandle
	Layout    metadata.ImageLayout
}

// DescriptorValue carries exactly one of the two flavours. Which one is set
// must agree with the descriptor kind of the slot it is written to.
type DescriptorValue struct {
	Buffer *BufferInfo
	Image  *ImageInfo
}

// DescriptorWrite is one slot's worth of binding values, ready to be written
// into an allocated native descriptor set.
type DescriptorWrite struct {
	Binding uint32
	Kind    metadata.DescriptorKind
	Values  []DescriptorValue
}

// Device is the native-object factory every per-device cache is keyed by.
// Implementations must be comparable (pointer receivers), creation calls must
// either succeed or fail fatally for the caller; nothing here is retried.
type Device interface {
	// Supports reports whether the device exposes the given capability.
	Supports(capability Capability) bool

	CreateDescriptorSetLayout(bindings []metadata.DescriptorBinding) (DescriptorSetLayoutHandle, error)
	DestroyDescriptorSetLayout(handle DescriptorSetLayoutHandle)

	CreateDescriptorPool(maxSets uint32, bindings []metadata.DescriptorBinding) (DescriptorPoolHandle, error)
	DestroyDescriptorPool(handle DescriptorPoolHandle)

	AllocateDescriptorSet(pool DescriptorPoolHandle, layout DescriptorSetLayoutHandle) (DescriptorSetHandle, error)
	FreeDescriptorSet(pool DescriptorPoolHandle, handle DescriptorSetHandle) error
	WriteDescriptorSet(handle DescriptorSetHandle, writes []DescriptorWrite) error

	CreatePipelineLayout(setLayouts []DescriptorSetLayoutHandle) (PipelineLayoutHandle, error)
	DestroyPipelineLayout(handle PipelineLayoutHandle)

	CreatePipelineCache() (PipelineCacheHandle, error)
	DestroyPipelineCache(handle PipelineCacheHandle)

	CreateGraphicsPipeline(cache PipelineCacheHandle, state *GraphicsPipelineState) (PipelineHandle, error)
	CreateComputePipeline(cache PipelineCacheHandle, state *ComputePipelineState) (PipelineHandle, error)
	DestroyPipeline(handle PipelineHandle)

	CreateShaderModule(code []byte) (ShaderModuleHandle, error)
	DestroyShaderModule(handle ShaderModuleHandle)
}

// ShaderStageInfo is one shader stage with its module already resolved to the
// device the pipeline is being built for.
type ShaderStageInfo struct {
	Stage      metadata.ShaderStageFlags
	Module     ShaderModuleHandle
	EntryPoint string
}

// GraphicsPipelineState is the full device-facing snapshot of a graphics
// pipeline at validation time. It is assembled under the pipeline lock, so the
// backend may read it without further synchronization.
type GraphicsPipelineState struct {
	Layout     PipelineLayoutHandle
	RenderPass RenderPassHandle
	Subpass    uint32

	VertexInput            []metadata.VertexInputDefinition
	Topology               metadata.PrimitiveTopology
	PrimitiveRestartEnable bool
	PatchControlPoints     uint32
	Rasterization          metadata.RasterizationState
	BlendAttachments       []metadata.BlendAttachmentDefinition
	DepthStencil           metadata.DepthStencilState
	Multisample            metadata.MultisampleState
	Viewports              []metadata.Viewport
	Scissors               []metadata.Rect2D
	DynamicStates          []metadata.DynamicState

	Stages []ShaderStageInfo
}

// ComputePipelineState is the device-facing snapshot of a compute pipeline.
type ComputePipelineState struct {
	Layout PipelineLayoutHandle
	Stage  ShaderStageInfo
}
