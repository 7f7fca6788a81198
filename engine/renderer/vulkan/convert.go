package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

func descriptorType(kind metadata.DescriptorKind) vk.DescriptorType {
	switch kind {
	case metadata.DescriptorKindSampler:
		return vk.DescriptorTypeSampler
	case metadata.DescriptorKindCombinedImageSampler:
		return vk.DescriptorTypeCombinedImageSampler
	case metadata.DescriptorKindSampledImage:
		return vk.DescriptorTypeSampledImage
	case metadata.DescriptorKindStorageImage:
		return vk.DescriptorTypeStorageImage
	case metadata.DescriptorKindUniformTexelBuffer:
		return vk.DescriptorTypeUniformTexelBuffer
	case metadata.DescriptorKindStorageTexelBuffer:
		return vk.DescriptorTypeStorageTexelBuffer
	case metadata.DescriptorKindUniformBuffer:
		return vk.DescriptorTypeUniformBuffer
	case metadata.DescriptorKindStorageBuffer:
		return vk.DescriptorTypeStorageBuffer
	case metadata.DescriptorKindUniformBufferDynamic:
		return vk.DescriptorTypeUniformBufferDynamic
	case metadata.DescriptorKindStorageBufferDynamic:
		return vk.DescriptorTypeStorageBufferDynamic
	case metadata.DescriptorKindInputAttachment:
		return vk.DescriptorTypeInputAttachment
	}
	return vk.DescriptorTypeUniformBuffer
}

func shaderStageFlags(stages metadata.ShaderStageFlags) vk.ShaderStageFlags {
	var out vk.ShaderStageFlags
	if stages.Has(metadata.ShaderStageVertex) {
		out |= vk.ShaderStageFlags(vk.ShaderStageVertexBit)
	}
	if stages.Has(metadata.ShaderStageTessellationControl) {
		out |= vk.ShaderStageFlags(vk.ShaderStageTessellationControlBit)
	}
	if stages.Has(metadata.ShaderStageTessellationEvaluation) {
		out |= vk.ShaderStageFlags(vk.ShaderStageTessellationEvaluationBit)
	}
	if stages.Has(metadata.ShaderStageGeometry) {
		out |= vk.ShaderStageFlags(vk.ShaderStageGeometryBit)
	}
	if stages.Has(metadata.ShaderStageFragment) {
		out |= vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
	}
	if stages.Has(metadata.ShaderStageCompute) {
		out |= vk.ShaderStageFlags(vk.ShaderStageComputeBit)
	}
	return out
}

func shaderStageBit(stage metadata.ShaderStageFlags) vk.ShaderStageFlagBits {
	switch stage {
	case metadata.ShaderStageVertex:
		return vk.ShaderStageVertexBit
	case metadata.ShaderStageTessellationControl:
		return vk.ShaderStageTessellationControlBit
	case metadata.ShaderStageTessellationEvaluation:
		return vk.ShaderStageTessellationEvaluationBit
	case metadata.ShaderStageGeometry:
		return vk.ShaderStageGeometryBit
	case metadata.ShaderStageFragment:
		return vk.ShaderStageFragmentBit
	case metadata.ShaderStageCompute:
		return vk.ShaderStageComputeBit
	}
	return vk.ShaderStageVertexBit
}

func primitiveTopology(t metadata.PrimitiveTopology) vk.PrimitiveTopology {
	switch t {
	case metadata.PrimitiveTopologyPointList:
		return vk.PrimitiveTopologyPointList
	case metadata.PrimitiveTopologyLineList:
		return vk.PrimitiveTopologyLineList
	case metadata.PrimitiveTopologyLineStrip:
		return vk.PrimitiveTopologyLineStrip
	case metadata.PrimitiveTopologyTriangleStrip:
		return vk.PrimitiveTopologyTriangleStrip
	case metadata.PrimitiveTopologyTriangleFan:
		return vk.PrimitiveTopologyTriangleFan
	case metadata.PrimitiveTopologyPatchList:
		return vk.PrimitiveTopologyPatchList
	default:
		return vk.PrimitiveTopologyTriangleList
	}
}

func polygonMode(m metadata.PolygonMode) vk.PolygonMode {
	switch m {
	case metadata.PolygonModeLine:
		return vk.PolygonModeLine
	case metadata.PolygonModePoint:
		return vk.PolygonModePoint
	default:
		return vk.PolygonModeFill
	}
}

func cullMode(m metadata.FaceCullMode) vk.CullModeFlags {
	switch m {
	case metadata.FaceCullModeNone:
		return vk.CullModeFlags(vk.CullModeNone)
	case metadata.FaceCullModeFront:
		return vk.CullModeFlags(vk.CullModeFrontBit)
	case metadata.FaceCullModeFrontAndBack:
		return vk.CullModeFlags(vk.CullModeFrontAndBack)
	default:
		return vk.CullModeFlags(vk.CullModeBackBit)
	}
}

func frontFace(f metadata.FrontFace) vk.FrontFace {
	if f == metadata.FrontFaceClockwise {
		return vk.FrontFaceClockwise
	}
	return vk.FrontFaceCounterClockwise
}

func compareOp(op metadata.CompareOp) vk.CompareOp {
	switch op {
	case metadata.CompareOpNever:
		return vk.CompareOpNever
	case metadata.CompareOpLess:
		return vk.CompareOpLess
	case metadata.CompareOpEqual:
		return vk.CompareOpEqual
	case metadata.CompareOpLessOrEqual:
		return vk.CompareOpLessOrEqual
	case metadata.CompareOpGreater:
		return vk.CompareOpGreater
	case metadata.CompareOpNotEqual:
		return vk.CompareOpNotEqual
	case metadata.CompareOpGreaterOrEqual:
		return vk.CompareOpGreaterOrEqual
	default:
		return vk.CompareOpAlways
	}
}

func blendFactor(f metadata.BlendFactor) vk.BlendFactor {
	switch f {
	case metadata.BlendFactorZero:
		return vk.BlendFactorZero
	case metadata.BlendFactorOne:
		return vk.BlendFactorOne
	case metadata.BlendFactorSrcColor:
		return vk.BlendFactorSrcColor
	case metadata.BlendFactorOneMinusSrcColor:
		return vk.BlendFactorOneMinusSrcColor
	case metadata.BlendFactorDstColor:
		return vk.BlendFactorDstColor
	case metadata.BlendFactorOneMinusDstColor:
		return vk.BlendFactorOneMinusDstColor
	case metadata.BlendFactorSrcAlpha:
		return vk.BlendFactorSrcAlpha
	case metadata.BlendFactorOneMinusSrcAlpha:
		return vk.BlendFactorOneMinusSrcAlpha
	case metadata.BlendFactorDstAlpha:
		return vk.BlendFactorDstAlpha
	default:
		return vk.BlendFactorOneMinusDstAlpha
	}
}

func blendOp(op metadata.BlendOp) vk.BlendOp {
	switch op {
	case metadata.BlendOpSubtract:
		return vk.BlendOpSubtract
	case metadata.BlendOpReverseSubtract:
		return vk.BlendOpReverseSubtract
	case metadata.BlendOpMin:
		return vk.BlendOpMin
	case metadata.BlendOpMax:
		return vk.BlendOpMax
	default:
		return vk.BlendOpAdd
	}
}

func colorComponentFlags(f metadata.ColorComponentFlags) vk.ColorComponentFlags {
	var out vk.ColorComponentFlags
	if f&metadata.ColorComponentR != 0 {
		out |= vk.ColorComponentFlags(vk.ColorComponentRBit)
	}
	if f&metadata.ColorComponentG != 0 {
		out |= vk.ColorComponentFlags(vk.ColorComponentGBit)
	}
	if f&metadata.ColorComponentB != 0 {
		out |= vk.ColorComponentFlags(vk.ColorComponentBBit)
	}
	if f&metadata.ColorComponentA != 0 {
		out |= vk.ColorComponentFlags(vk.ColorComponentABit)
	}
	return out
}

func dynamicState(s metadata.DynamicState) vk.DynamicState {
	switch s {
	case metadata.DynamicStateScissor:
		return vk.DynamicStateScissor
	case metadata.DynamicStateLineWidth:
		return vk.DynamicStateLineWidth
	case metadata.DynamicStateDepthBias:
		return vk.DynamicStateDepthBias
	case metadata.DynamicStateBlendConstants:
		return vk.DynamicStateBlendConstants
	case metadata.DynamicStateDepthBounds:
		return vk.DynamicStateDepthBounds
	case metadata.DynamicStateStencilCompareMask:
		return vk.DynamicStateStencilCompareMask
	case metadata.DynamicStateStencilWriteMask:
		return vk.DynamicStateStencilWriteMask
	case metadata.DynamicStateStencilReference:
		return vk.DynamicStateStencilReference
	default:
		return vk.DynamicStateViewport
	}
}

func vertexInputRate(r metadata.VertexInputRate) vk.VertexInputRate {
	if r == metadata.VertexInputRateInstance {
		return vk.VertexInputRateInstance
	}
	return vk.VertexInputRateVertex
}

func vertexFormat(f metadata.VertexFormat) vk.Format {
	switch f {
	case metadata.VertexFormatFloat32:
		return vk.FormatR32Sfloat
	case metadata.VertexFormatFloat32x2:
		return vk.FormatR32g32Sfloat
	case metadata.VertexFormatFloat32x3:
		return vk.FormatR32g32b32Sfloat
	case metadata.VertexFormatFloat32x4:
		return vk.FormatR32g32b32a32Sfloat
	case metadata.VertexFormatUint32:
		return vk.FormatR32Uint
	case metadata.VertexFormatUint32x2:
		return vk.FormatR32g32Uint
	case metadata.VertexFormatUint32x4:
		return vk.FormatR32g32b32a32Uint
	}
	return vk.FormatR32Sfloat
}

func imageLayout(l metadata.ImageLayout) vk.ImageLayout {
	switch l {
	case metadata.ImageLayoutGeneral:
		return vk.ImageLayoutGeneral
	case metadata.ImageLayoutColorAttachment:
		return vk.ImageLayoutColorAttachmentOptimal
	case metadata.ImageLayoutDepthStencilAttachment:
		return vk.ImageLayoutDepthStencilAttachmentOptimal
	case metadata.ImageLayoutShaderReadOnly:
		return vk.ImageLayoutShaderReadOnlyOptimal
	case metadata.ImageLayoutTransferSrc:
		return vk.ImageLayoutTransferSrcOptimal
	case metadata.ImageLayoutTransferDst:
		return vk.ImageLayoutTransferDstOptimal
	case metadata.ImageLayoutPresentSrc:
		return vk.ImageLayoutPresentSrc
	default:
		return vk.ImageLayoutUndefined
	}
}
