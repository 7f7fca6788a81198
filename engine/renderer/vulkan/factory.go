package vulkan

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/renderer/binding"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

// deviceCaches counts live native objects per category so that shutdown can
// flag leaks left behind by callers that skipped teardown.
type deviceCaches struct {
	setLayouts      int64
	descriptorPools int64
	descriptorSets  int64
	pipelineLayouts int64
	pipelineCaches  int64
	pipelines       int64
	shaderModules   int64
}

func (c *deviceCaches) init() {
	*c = deviceCaches{}
}

func (c *deviceCaches) report() {
	counts := map[string]int64{
		"descriptor set layouts": atomic.LoadInt64(&c.setLayouts),
		"descriptor pools":       atomic.LoadInt64(&c.descriptorPools),
		"descriptor sets":        atomic.LoadInt64(&c.descriptorSets),
		"pipeline layouts":       atomic.LoadInt64(&c.pipelineLayouts),
		"pipeline caches":        atomic.LoadInt64(&c.pipelineCaches),
		"pipelines":              atomic.LoadInt64(&c.pipelines),
		"shader modules":         atomic.LoadInt64(&c.shaderModules),
	}
	for name, count := range counts {
		if count > 0 {
			core.LogWarn("Device destroyed with %d live %s.", count, name)
		}
	}
}

/**
 * @brief Supports reports whether the selected physical device exposes the
 * given optional capability.
 */
func (d *VulkanDevice) Supports(capability binding.Capability) bool {
	switch capability {
	case binding.CapabilityMultiDrawIndirect:
		return d.Features.MultiDrawIndirect == vk.True
	case binding.CapabilityDrawIndirectFirstInstance:
		return d.Features.DrawIndirectFirstInstance == vk.True
	case binding.CapabilitySamplerAnisotropy:
		return d.Features.SamplerAnisotropy == vk.True
	}
	return false
}

func (d *VulkanDevice) CreateDescriptorSetLayout(bindings []metadata.DescriptorBinding) (binding.DescriptorSetLayoutHandle, error) {
	layoutBindings := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i, b := range bindings {
		layoutBindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  descriptorType(b.Kind),
			DescriptorCount: b.Count,
			StageFlags:      shaderStageFlags(b.Stages),
		}
	}

	createInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(layoutBindings)),
		PBindings:    layoutBindings,
	}

	var layout vk.DescriptorSetLayout
	if err := lockPool.SafeCall(DescriptorManagement, func() error {
		if res := vk.CreateDescriptorSetLayout(d.LogicalDevice, &createInfo, d.Allocator, &layout); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("vkCreateDescriptorSetLayout failed with %s", VulkanResultString(res))
		}
		return nil
	}); err != nil {
		return nil, err
	}
	atomic.AddInt64(&d.caches.setLayouts, 1)
	return layout, nil
}

func (d *VulkanDevice) DestroyDescriptorSetLayout(handle binding.DescriptorSetLayoutHandle) {
	layout, ok := handle.(vk.DescriptorSetLayout)
	if !ok || layout == vk.NullDescriptorSetLayout {
		return
	}
	lockPool.SafeCall(DescriptorManagement, func() error {
		vk.DestroyDescriptorSetLayout(d.LogicalDevice, layout, d.Allocator)
		return nil
	})
	atomic.AddInt64(&d.caches.setLayouts, -1)
}

func (d *VulkanDevice) CreateDescriptorPool(maxSets uint32, bindings []metadata.DescriptorBinding) (binding.DescriptorPoolHandle, error) {
	// One pool size entry per descriptor kind, scaled by how many sets the
	// pool must be able to serve at once.
	totals := make(map[vk.DescriptorType]uint32)
	for _, b := range bindings {
		totals[descriptorType(b.Kind)] += b.Count * maxSets
	}
	poolSizes := make([]vk.DescriptorPoolSize, 0, len(totals))
	for descType, count := range totals {
		poolSizes = append(poolSizes, vk.DescriptorPoolSize{
			Type:            descType,
			DescriptorCount: count,
		})
	}

	createInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}

	var pool vk.DescriptorPool
	if err := lockPool.SafeCall(DescriptorManagement, func() error {
		if res := vk.CreateDescriptorPool(d.LogicalDevice, &createInfo, d.Allocator, &pool); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("vkCreateDescriptorPool failed with %s", VulkanResultString(res))
		}
		return nil
	}); err != nil {
		return nil, err
	}
	atomic.AddInt64(&d.caches.descriptorPools, 1)
	return pool, nil
}

func (d *VulkanDevice) DestroyDescriptorPool(handle binding.DescriptorPoolHandle) {
	pool, ok := handle.(vk.DescriptorPool)
	if !ok || pool == vk.NullDescriptorPool {
		return
	}
	lockPool.SafeCall(DescriptorManagement, func() error {
		vk.DestroyDescriptorPool(d.LogicalDevice, pool, d.Allocator)
		return nil
	})
	atomic.AddInt64(&d.caches.descriptorPools, -1)
}

func (d *VulkanDevice) AllocateDescriptorSet(pool binding.DescriptorPoolHandle, layout binding.DescriptorSetLayoutHandle) (binding.DescriptorSetHandle, error) {
	vkPool, ok := pool.(vk.DescriptorPool)
	if !ok {
		return nil, fmt.Errorf("descriptor pool handle is not a Vulkan pool")
	}
	vkLayout, ok := layout.(vk.DescriptorSetLayout)
	if !ok {
		return nil, fmt.Errorf("descriptor set layout handle is not a Vulkan layout")
	}

	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     vkPool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{vkLayout},
	}

	sets := make([]vk.DescriptorSet, 1)
	if err := lockPool.SafeCall(DescriptorManagement, func() error {
		if res := vk.AllocateDescriptorSets(d.LogicalDevice, &allocateInfo, &sets[0]); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("vkAllocateDescriptorSets failed with %s", VulkanResultString(res))
		}
		return nil
	}); err != nil {
		return nil, err
	}
	atomic.AddInt64(&d.caches.descriptorSets, 1)
	return sets[0], nil
}

func (d *VulkanDevice) FreeDescriptorSet(pool binding.DescriptorPoolHandle, handle binding.DescriptorSetHandle) error {
	vkPool, ok := pool.(vk.DescriptorPool)
	if !ok {
		return fmt.Errorf("descriptor pool handle is not a Vulkan pool")
	}
	set, ok := handle.(vk.DescriptorSet)
	if !ok {
		return fmt.Errorf("descriptor set handle is not a Vulkan set")
	}
	if err := lockPool.SafeCall(DescriptorManagement, func() error {
		if res := vk.FreeDescriptorSets(d.LogicalDevice, vkPool, 1, []vk.DescriptorSet{set}); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("vkFreeDescriptorSets failed with %s", VulkanResultString(res))
		}
		return nil
	}); err != nil {
		return err
	}
	atomic.AddInt64(&d.caches.descriptorSets, -1)
	return nil
}

func (d *VulkanDevice) WriteDescriptorSet(handle binding.DescriptorSetHandle, writes []binding.DescriptorWrite) error {
	set, ok := handle.(vk.DescriptorSet)
	if !ok {
		return fmt.Errorf("descriptor set handle is not a Vulkan set")
	}

	vkWrites := make([]vk.WriteDescriptorSet, 0, len(writes))
	for _, write := range writes {
		if len(write.Values) == 0 {
			continue
		}
		vkWrite := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      write.Binding,
			DstArrayElement: 0,
			DescriptorCount: uint32(len(write.Values)),
			DescriptorType:  descriptorType(write.Kind),
		}
		switch {
		case write.Values[0].Buffer != nil:
			bufferInfos := make([]vk.DescriptorBufferInfo, len(write.Values))
			for i, value := range write.Values {
				if value.Buffer == nil {
					return fmt.Errorf("binding %d mixes buffer and image values", write.Binding)
				}
				buffer, ok := value.Buffer.Buffer.(vk.Buffer)
				if !ok {
					return fmt.Errorf("binding %d element %d is not a Vulkan buffer", write.Binding, i)
				}
				bufferInfos[i] = vk.DescriptorBufferInfo{
					Buffer: buffer,
					Offset: vk.DeviceSize(value.Buffer.Offset),
					Range:  vk.DeviceSize(value.Buffer.Range),
				}
			}
			vkWrite.PBufferInfo = bufferInfos
		case write.Values[0].Image != nil:
			imageInfos := make([]vk.DescriptorImageInfo, len(write.Values))
			for i, value := range write.Values {
				if value.Image == nil {
					return fmt.Errorf("binding %d mixes buffer and image values", write.Binding)
				}
				imageInfo := vk.DescriptorImageInfo{
					ImageLayout: imageLayout(value.Image.Layout),
				}
				if view, ok := value.Image.ImageView.(vk.ImageView); ok {
					imageInfo.ImageView = view
				}
				if sampler, ok := value.Image.Sampler.(vk.Sampler); ok {
					imageInfo.Sampler = sampler
				}
				imageInfos[i] = imageInfo
			}
			vkWrite.PImageInfo = imageInfos
		default:
			return fmt.Errorf("binding %d carries no value", write.Binding)
		}
		vkWrites = append(vkWrites, vkWrite)
	}

	if len(vkWrites) == 0 {
		return nil
	}
	return lockPool.SafeCall(DescriptorManagement, func() error {
		vk.UpdateDescriptorSets(d.LogicalDevice, uint32(len(vkWrites)), vkWrites, 0, nil)
		return nil
	})
}

func (d *VulkanDevice) CreatePipelineLayout(setLayouts []binding.DescriptorSetLayoutHandle) (binding.PipelineLayoutHandle, error) {
	vkLayouts := make([]vk.DescriptorSetLayout, len(setLayouts))
	for i, layout := range setLayouts {
		vkLayout, ok := layout.(vk.DescriptorSetLayout)
		if !ok {
			return nil, fmt.Errorf("set layout %d is not a Vulkan layout", i)
		}
		vkLayouts[i] = vkLayout
	}

	createInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(vkLayouts)),
		PSetLayouts:    vkLayouts,
	}

	var layout vk.PipelineLayout
	if err := lockPool.SafeCall(PipelineManagement, func() error {
		if res := vk.CreatePipelineLayout(d.LogicalDevice, &createInfo, d.Allocator, &layout); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("vkCreatePipelineLayout failed with %s", VulkanResultString(res))
		}
		return nil
	}); err != nil {
		return nil, err
	}
	atomic.AddInt64(&d.caches.pipelineLayouts, 1)
	return layout, nil
}

func (d *VulkanDevice) DestroyPipelineLayout(handle binding.PipelineLayoutHandle) {
	layout, ok := handle.(vk.PipelineLayout)
	if !ok || layout == vk.NullPipelineLayout {
		return
	}
	lockPool.SafeCall(PipelineManagement, func() error {
		vk.DestroyPipelineLayout(d.LogicalDevice, layout, d.Allocator)
		return nil
	})
	atomic.AddInt64(&d.caches.pipelineLayouts, -1)
}

func (d *VulkanDevice) CreatePipelineCache() (binding.PipelineCacheHandle, error) {
	createInfo := vk.PipelineCacheCreateInfo{
		SType: vk.StructureTypePipelineCacheCreateInfo,
	}
	var cache vk.PipelineCache
	if err := lockPool.SafeCall(PipelineManagement, func() error {
		if res := vk.CreatePipelineCache(d.LogicalDevice, &createInfo, d.Allocator, &cache); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("vkCreatePipelineCache failed with %s", VulkanResultString(res))
		}
		return nil
	}); err != nil {
		return nil, err
	}
	atomic.AddInt64(&d.caches.pipelineCaches, 1)
	return cache, nil
}

func (d *VulkanDevice) DestroyPipelineCache(handle binding.PipelineCacheHandle) {
	cache, ok := handle.(vk.PipelineCache)
	if !ok || cache == vk.NullPipelineCache {
		return
	}
	lockPool.SafeCall(PipelineManagement, func() error {
		vk.DestroyPipelineCache(d.LogicalDevice, cache, d.Allocator)
		return nil
	})
	atomic.AddInt64(&d.caches.pipelineCaches, -1)
}

func (d *VulkanDevice) CreateGraphicsPipeline(cache binding.PipelineCacheHandle, state *binding.GraphicsPipelineState) (binding.PipelineHandle, error) {
	layout, ok := state.Layout.(vk.PipelineLayout)
	if !ok {
		return nil, fmt.Errorf("pipeline layout handle is not a Vulkan layout")
	}
	renderPass, ok := state.RenderPass.(vk.RenderPass)
	if !ok {
		return nil, fmt.Errorf("render pass handle is not a Vulkan render pass")
	}

	stages, err := pipelineShaderStages(state.Stages)
	if err != nil {
		return nil, err
	}

	// Vertex input
	bindingDescriptions := make([]vk.VertexInputBindingDescription, 0, len(state.VertexInput))
	attributeDescriptions := []vk.VertexInputAttributeDescription{}
	for _, input := range state.VertexInput {
		bindingDescriptions = append(bindingDescriptions, vk.VertexInputBindingDescription{
			Binding:   input.Binding,
			Stride:    input.Stride,
			InputRate: vertexInputRate(input.InputRate),
		})
		for _, attribute := range input.Attributes {
			attributeDescriptions = append(attributeDescriptions, vk.VertexInputAttributeDescription{
				Location: attribute.Location,
				Binding:  input.Binding,
				Format:   vertexFormat(attribute.Format),
				Offset:   attribute.Offset,
			})
		}
	}
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(bindingDescriptions)),
		PVertexBindingDescriptions:      bindingDescriptions,
		VertexAttributeDescriptionCount: uint32(len(attributeDescriptions)),
		PVertexAttributeDescriptions:    attributeDescriptions,
	}

	// Input assembly
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               primitiveTopology(state.Topology),
		PrimitiveRestartEnable: vkBool(state.PrimitiveRestartEnable),
	}

	// Viewport state. Dynamic viewports still need a count.
	viewports := make([]vk.Viewport, len(state.Viewports))
	for i, viewport := range state.Viewports {
		viewports[i] = vk.Viewport{
			X:        viewport.X,
			Y:        viewport.Y,
			Width:    viewport.Width,
			Height:   viewport.Height,
			MinDepth: viewport.MinDepth,
			MaxDepth: viewport.MaxDepth,
		}
	}
	scissors := make([]vk.Rect2D, len(state.Scissors))
	for i, scissor := range state.Scissors {
		scissors[i] = vk.Rect2D{
			Offset: vk.Offset2D{X: scissor.X, Y: scissor.Y},
			Extent: vk.Extent2D{Width: scissor.Width, Height: scissor.Height},
		}
	}
	viewportCount := uint32(len(viewports))
	if viewportCount == 0 {
		viewportCount = 1
		viewports = nil
	}
	scissorCount := uint32(len(scissors))
	if scissorCount == 0 {
		scissorCount = 1
		scissors = nil
	}
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: viewportCount,
		PViewports:    viewports,
		ScissorCount:  scissorCount,
		PScissors:     scissors,
	}

	// Rasterizer
	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vkBool(state.Rasterization.DepthClampEnable),
		RasterizerDiscardEnable: vkBool(state.Rasterization.RasterizerDiscardEnable),
		PolygonMode:             polygonMode(state.Rasterization.PolygonMode),
		CullMode:                cullMode(state.Rasterization.CullMode),
		FrontFace:               frontFace(state.Rasterization.FrontFace),
		DepthBiasEnable:         vkBool(state.Rasterization.DepthBiasEnable),
		DepthBiasConstantFactor: state.Rasterization.DepthBiasConstantFactor,
		DepthBiasClamp:          state.Rasterization.DepthBiasClamp,
		DepthBiasSlopeFactor:    state.Rasterization.DepthBiasSlopeFactor,
		LineWidth:               state.Rasterization.LineWidth,
	}
	if rasterizerCreateInfo.LineWidth == 0 {
		rasterizerCreateInfo.LineWidth = 1.0
	}

	// Multisampling
	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples:  sampleCount(state.Multisample.RasterizationSamples),
		SampleShadingEnable:   vkBool(state.Multisample.SampleShadingEnable),
		MinSampleShading:      state.Multisample.MinSampleShading,
		AlphaToCoverageEnable: vkBool(state.Multisample.AlphaToCoverageEnable),
		AlphaToOneEnable:      vkBool(state.Multisample.AlphaToOneEnable),
	}

	// Depth and stencil testing
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:       vkBool(state.DepthStencil.DepthTestEnable),
		DepthWriteEnable:      vkBool(state.DepthStencil.DepthWriteEnable),
		DepthCompareOp:        compareOp(state.DepthStencil.DepthCompareOp),
		DepthBoundsTestEnable: vkBool(state.DepthStencil.DepthBoundsTestEnable),
		StencilTestEnable:     vkBool(state.DepthStencil.StencilTestEnable),
		MinDepthBounds:        state.DepthStencil.MinDepthBounds,
		MaxDepthBounds:        state.DepthStencil.MaxDepthBounds,
	}

	// Color blending
	blendAttachments := make([]vk.PipelineColorBlendAttachmentState, len(state.BlendAttachments))
	for i, attachment := range state.BlendAttachments {
		blendAttachments[i] = vk.PipelineColorBlendAttachmentState{
			BlendEnable:         vkBool(attachment.BlendEnable),
			SrcColorBlendFactor: blendFactor(attachment.SrcColorBlendFactor),
			DstColorBlendFactor: blendFactor(attachment.DstColorBlendFactor),
			ColorBlendOp:        blendOp(attachment.ColorBlendOp),
			SrcAlphaBlendFactor: blendFactor(attachment.SrcAlphaBlendFactor),
			DstAlphaBlendFactor: blendFactor(attachment.DstAlphaBlendFactor),
			AlphaBlendOp:        blendOp(attachment.AlphaBlendOp),
			ColorWriteMask:      colorComponentFlags(attachment.ColorWriteMask),
		}
	}
	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: uint32(len(blendAttachments)),
		PAttachments:    blendAttachments,
	}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		Layout:              layout,
		RenderPass:          renderPass,
		Subpass:             state.Subpass,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	// Dynamic state
	if len(state.DynamicStates) > 0 {
		dynamicStates := make([]vk.DynamicState, len(state.DynamicStates))
		for i, s := range state.DynamicStates {
			dynamicStates[i] = dynamicState(s)
		}
		pipelineCreateInfo.PDynamicState = &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: uint32(len(dynamicStates)),
			PDynamicStates:    dynamicStates,
		}
	}

	// Tessellation
	if state.PatchControlPoints > 0 {
		pipelineCreateInfo.PTessellationState = &vk.PipelineTessellationStateCreateInfo{
			SType:              vk.StructureTypePipelineTessellationStateCreateInfo,
			PatchControlPoints: state.PatchControlPoints,
		}
	}

	pipelineCache := vk.NullPipelineCache
	if vkCache, ok := cache.(vk.PipelineCache); ok {
		pipelineCache = vkCache
	}

	pPipelines := make([]vk.Pipeline, 1)
	if err := lockPool.SafeCall(PipelineManagement, func() error {
		result := vk.CreateGraphicsPipelines(
			d.LogicalDevice,
			pipelineCache,
			1,
			[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo},
			d.Allocator,
			pPipelines)
		if !VulkanResultIsSuccess(result) {
			return fmt.Errorf("vkCreateGraphicsPipelines failed with %s", VulkanResultString(result))
		}
		return nil
	}); err != nil {
		return nil, err
	}

	atomic.AddInt64(&d.caches.pipelines, 1)
	core.LogDebug("Graphics pipeline created!")
	return pPipelines[0], nil
}

func (d *VulkanDevice) CreateComputePipeline(cache binding.PipelineCacheHandle, state *binding.ComputePipelineState) (binding.PipelineHandle, error) {
	layout, ok := state.Layout.(vk.PipelineLayout)
	if !ok {
		return nil, fmt.Errorf("pipeline layout handle is not a Vulkan layout")
	}
	stages, err := pipelineShaderStages([]binding.ShaderStageInfo{state.Stage})
	if err != nil {
		return nil, err
	}

	pipelineCreateInfo := vk.ComputePipelineCreateInfo{
		SType:              vk.StructureTypeComputePipelineCreateInfo,
		Stage:              stages[0],
		Layout:             layout,
		BasePipelineHandle: vk.NullPipeline,
		BasePipelineIndex:  -1,
	}

	pipelineCache := vk.NullPipelineCache
	if vkCache, ok := cache.(vk.PipelineCache); ok {
		pipelineCache = vkCache
	}

	pPipelines := make([]vk.Pipeline, 1)
	if err := lockPool.SafeCall(PipelineManagement, func() error {
		result := vk.CreateComputePipelines(
			d.LogicalDevice,
			pipelineCache,
			1,
			[]vk.ComputePipelineCreateInfo{pipelineCreateInfo},
			d.Allocator,
			pPipelines)
		if !VulkanResultIsSuccess(result) {
			return fmt.Errorf("vkCreateComputePipelines failed with %s", VulkanResultString(result))
		}
		return nil
	}); err != nil {
		return nil, err
	}

	atomic.AddInt64(&d.caches.pipelines, 1)
	core.LogDebug("Compute pipeline created!")
	return pPipelines[0], nil
}

func (d *VulkanDevice) DestroyPipeline(handle binding.PipelineHandle) {
	pipeline, ok := handle.(vk.Pipeline)
	if !ok || pipeline == vk.NullPipeline {
		return
	}
	lockPool.SafeCall(PipelineManagement, func() error {
		vk.DestroyPipeline(d.LogicalDevice, pipeline, d.Allocator)
		return nil
	})
	atomic.AddInt64(&d.caches.pipelines, -1)
}

func (d *VulkanDevice) CreateShaderModule(code []byte) (binding.ShaderModuleHandle, error) {
	words, err := repackSpirv(code)
	if err != nil {
		return nil, err
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    words,
	}

	var module vk.ShaderModule
	if err := lockPool.SafeCall(ShaderManagement, func() error {
		if res := vk.CreateShaderModule(d.LogicalDevice, &createInfo, d.Allocator, &module); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("vkCreateShaderModule failed with %s", VulkanResultString(res))
		}
		return nil
	}); err != nil {
		return nil, err
	}
	atomic.AddInt64(&d.caches.shaderModules, 1)
	return module, nil
}

func (d *VulkanDevice) DestroyShaderModule(handle binding.ShaderModuleHandle) {
	module, ok := handle.(vk.ShaderModule)
	if !ok || module == vk.NullShaderModule {
		return
	}
	lockPool.SafeCall(ShaderManagement, func() error {
		vk.DestroyShaderModule(d.LogicalDevice, module, d.Allocator)
		return nil
	})
	atomic.AddInt64(&d.caches.shaderModules, -1)
}

func pipelineShaderStages(infos []binding.ShaderStageInfo) ([]vk.PipelineShaderStageCreateInfo, error) {
	stages := make([]vk.PipelineShaderStageCreateInfo, len(infos))
	for i, info := range infos {
		module, ok := info.Module.(vk.ShaderModule)
		if !ok {
			return nil, fmt.Errorf("stage %d shader module handle is not a Vulkan module", i)
		}
		entryPoint := info.EntryPoint
		if entryPoint == "" {
			entryPoint = "main"
		}
		stages[i] = vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  shaderStageBit(info.Stage),
			Module: module,
			PName:  VulkanSafeString(entryPoint),
		}
	}
	return stages, nil
}

func vkBool(value bool) vk.Bool32 {
	if value {
		return vk.True
	}
	return vk.False
}

func sampleCount(samples uint32) vk.SampleCountFlagBits {
	switch samples {
	case 2:
		return vk.SampleCount2Bit
	case 4:
		return vk.SampleCount4Bit
	case 8:
		return vk.SampleCount8Bit
	case 16:
		return vk.SampleCount16Bit
	case 32:
		return vk.SampleCount32Bit
	case 64:
		return vk.SampleCount64Bit
	default:
		return vk.SampleCount1Bit
	}
}

// repackSpirv converts raw shader bytes to the 32-bit words the driver expects.
// Words are little-endian on disk regardless of host order.
func repackSpirv(code []byte) ([]uint32, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, fmt.Errorf("shader code size %d is not a multiple of 4", len(code))
	}
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	return words, nil
}
