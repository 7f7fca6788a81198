package metadata

import "fmt"

// DescriptorKind is the resource-kind tag declared by a binding slot. It mirrors
// the descriptor types a graphics API distinguishes between, without naming any
// API-level enum so that frontends stay backend agnostic.
type DescriptorKind uint8

const (
	DescriptorKindSampler DescriptorKind = iota
	DescriptorKindCombinedImageSampler
	DescriptorKindSampledImage
	DescriptorKindStorageImage
	DescriptorKindUniformTexelBuffer
	DescriptorKindStorageTexelBuffer
	DescriptorKindUniformBuffer
	DescriptorKindStorageBuffer
	DescriptorKindUniformBufferDynamic
	DescriptorKindStorageBufferDynamic
	DescriptorKindInputAttachment
)

func (k DescriptorKind) String() string {
	switch k {
	case DescriptorKindSampler:
		return "sampler"
	case DescriptorKindCombinedImageSampler:
		return "combined_image_sampler"
	case DescriptorKindSampledImage:
		return "sampled_image"
	case DescriptorKindStorageImage:
		return "storage_image"
	case DescriptorKindUniformTexelBuffer:
		return "uniform_texel_buffer"
	case DescriptorKindStorageTexelBuffer:
		return "storage_texel_buffer"
	case DescriptorKindUniformBuffer:
		return "uniform_buffer"
	case DescriptorKindStorageBuffer:
		return "storage_buffer"
	case DescriptorKindUniformBufferDynamic:
		return "uniform_buffer_dynamic"
	case DescriptorKindStorageBufferDynamic:
		return "storage_buffer_dynamic"
	case DescriptorKindInputAttachment:
		return "input_attachment"
	}
	return fmt.Sprintf("descriptor_kind(%d)", uint8(k))
}

// ShaderStageFlags is a bitmask of the shader stages that may access a binding.
type ShaderStageFlags uint32

const (
	ShaderStageVertex ShaderStageFlags = 1 << iota
	ShaderStageTessellationControl
	ShaderStageTessellationEvaluation
	ShaderStageGeometry
	ShaderStageFragment
	ShaderStageCompute
)

const ShaderStageAllGraphics = ShaderStageVertex | ShaderStageTessellationControl |
	ShaderStageTessellationEvaluation | ShaderStageGeometry | ShaderStageFragment

// Has reports whether every stage in the given mask is present.
func (f ShaderStageFlags) Has(stage ShaderStageFlags) bool {
	return f&stage == stage
}

/**
 * @brief Declares a single slot of a binding-schema: which slot index it occupies,
 * how many array elements it holds, what kind of resource it accepts and which
 * shader stages may access it.
 */
type DescriptorBinding struct {
	/** @brief The slot index in the shader interface. */
	Binding uint32
	/** @brief The number of array elements bound at this slot. */
	Count uint32
	/** @brief The kind of resource this slot accepts. */
	Kind DescriptorKind
	/** @brief The shader stages that may access this slot. */
	Stages ShaderStageFlags
}

// NewDescriptorBinding fills in the defaults the vast majority of slots want.
func NewDescriptorBinding(binding uint32, count uint32, kind DescriptorKind, stages ShaderStageFlags) DescriptorBinding {
	if count == 0 {
		count = 1
	}
	return DescriptorBinding{
		Binding: binding,
		Count:   count,
		Kind:    kind,
		Stages:  stages,
	}
}

// ImageLayout is the layout the backing image is expected to be in when sampled
// or written through a descriptor.
type ImageLayout uint8

const (
	ImageLayoutUndefined ImageLayout = iota
	ImageLayoutGeneral
	ImageLayoutColorAttachment
	ImageLayoutDepthStencilAttachment
	ImageLayoutShaderReadOnly
	ImageLayoutTransferSrc
	ImageLayoutTransferDst
	ImageLayoutPresentSrc
)
