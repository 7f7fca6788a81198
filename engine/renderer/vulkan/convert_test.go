package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

func TestDescriptorType(t *testing.T) {
	assert.Equal(t, vk.DescriptorTypeUniformBuffer, descriptorType(metadata.DescriptorKindUniformBuffer))
	assert.Equal(t, vk.DescriptorTypeStorageBuffer, descriptorType(metadata.DescriptorKindStorageBuffer))
	assert.Equal(t, vk.DescriptorTypeCombinedImageSampler, descriptorType(metadata.DescriptorKindCombinedImageSampler))
	assert.Equal(t, vk.DescriptorTypeUniformBufferDynamic, descriptorType(metadata.DescriptorKindUniformBufferDynamic))
}

func TestShaderStageFlagsCombines(t *testing.T) {
	flags := shaderStageFlags(metadata.ShaderStageVertex | metadata.ShaderStageFragment)
	assert.NotZero(t, flags&vk.ShaderStageFlags(vk.ShaderStageVertexBit))
	assert.NotZero(t, flags&vk.ShaderStageFlags(vk.ShaderStageFragmentBit))
	assert.Zero(t, flags&vk.ShaderStageFlags(vk.ShaderStageComputeBit))
}

func TestShaderStageFlagsCompute(t *testing.T) {
	flags := shaderStageFlags(metadata.ShaderStageCompute)
	assert.Equal(t, vk.ShaderStageFlags(vk.ShaderStageComputeBit), flags)
}

func TestCullMode(t *testing.T) {
	assert.Equal(t, vk.CullModeFlags(vk.CullModeNone), cullMode(metadata.FaceCullModeNone))
	assert.Equal(t, vk.CullModeFlags(vk.CullModeFrontBit), cullMode(metadata.FaceCullModeFront))
	assert.Equal(t, vk.CullModeFlags(vk.CullModeBackBit), cullMode(metadata.FaceCullModeBack))
	assert.Equal(t, vk.CullModeFlags(vk.CullModeFrontAndBack), cullMode(metadata.FaceCullModeFrontAndBack))
}

func TestVertexFormat(t *testing.T) {
	assert.Equal(t, vk.FormatR32Sfloat, vertexFormat(metadata.VertexFormatFloat32))
	assert.Equal(t, vk.FormatR32g32b32Sfloat, vertexFormat(metadata.VertexFormatFloat32x3))
	assert.Equal(t, vk.FormatR32g32b32a32Uint, vertexFormat(metadata.VertexFormatUint32x4))
}

func TestImageLayout(t *testing.T) {
	assert.Equal(t, vk.ImageLayoutShaderReadOnlyOptimal, imageLayout(metadata.ImageLayoutShaderReadOnly))
	assert.Equal(t, vk.ImageLayoutPresentSrc, imageLayout(metadata.ImageLayoutPresentSrc))
}

func TestDynamicState(t *testing.T) {
	assert.Equal(t, vk.DynamicStateViewport, dynamicState(metadata.DynamicStateViewport))
	assert.Equal(t, vk.DynamicStateScissor, dynamicState(metadata.DynamicStateScissor))
}
