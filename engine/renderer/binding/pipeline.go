package binding

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

/**
 * @brief One shader stage of a pipeline: which stage it feeds, the module
 * providing the code and the entry point within it.
 */
type ShaderStageDefinition struct {
	Stage      metadata.ShaderStageFlags
	Module     *ShaderModule
	EntryPoint string
}

// pipeline is the per-device caching and invalidation behaviour shared by the
// graphics and compute variants. Each device entry carries its own validity
// flag: internalInvalidate marks every entry stale and the next Validate on
// that device rebuilds the native pipeline exactly once.
type pipeline struct {
	mu        sync.Mutex
	cache     *PipelineCache
	layout    *PipelineLayout
	perDevice map[Device]*pipelinePerDevice
	nodes     []Node
}

type pipelinePerDevice struct {
	handle PipelineHandle
	valid  bool
}

func newPipeline(cache *PipelineCache, layout *PipelineLayout) pipeline {
	return pipeline{
		cache:     cache,
		layout:    layout,
		perDevice: make(map[Device]*pipelinePerDevice),
	}
}

// Cache returns the pipeline cache compilation goes through.
func (p *pipeline) Cache() *PipelineCache {
	return p.cache
}

// Layout returns the pipeline layout.
func (p *pipeline) Layout() *PipelineLayout {
	return p.layout
}

// Handle returns the native pipeline for the device. The pipeline must have
// been validated for that device since its last invalidation.
func (p *pipeline) Handle(device Device) (PipelineHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pd, ok := p.perDevice[device]
	if !ok || !pd.valid {
		return nil, fmt.Errorf("pipeline: %w", core.ErrNotValidated)
	}
	return pd.handle, nil
}

// AddNode registers a render-graph consumer of this pipeline.
func (p *pipeline) AddNode(node Node) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nodes = append(p.nodes, node)
}

// RemoveNode unregisters a consumer. Unknown nodes are ignored.
func (p *pipeline) RemoveNode(node Node) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, n := range p.nodes {
		if n == node {
			p.nodes = append(p.nodes[:i], p.nodes[i+1:]...)
			return
		}
	}
}

// internalInvalidate discards the cached native pipeline for every device and
// tells consumers to drop recordings that referenced the old handle. Every
// state-mutating setter must call it.
func (p *pipeline) internalInvalidate() {
	p.mu.Lock()
	for _, pd := range p.perDevice {
		pd.valid = false
	}
	nodes := make([]Node, len(p.nodes))
	copy(nodes, p.nodes)
	p.mu.Unlock()

	for _, n := range nodes {
		n.InvalidateCommandBuffers()
	}
}

// Invalidate forces a full rebuild on the next Validate, e.g. after an
// external shader reload.
func (p *pipeline) Invalidate() {
	p.internalInvalidate()
}

func (p *pipeline) destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for device, pd := range p.perDevice {
		if pd.handle != nil {
			device.DestroyPipeline(pd.handle)
		}
		delete(p.perDevice, device)
	}
}

/**
 * @brief GraphicsPipeline owns the full fixed-function and shader-stage state
 * description of one graphics pipeline, plus its per-device cache of compiled
 * native pipelines. Mutating any state field invalidates every cached handle.
 */
type GraphicsPipeline struct {
	pipeline

	renderPass RenderPass
	subpass    uint32

	vertexInput            []metadata.VertexInputDefinition
	topology               metadata.PrimitiveTopology
	primitiveRestartEnable bool
	patchControlPoints     uint32
	rasterization          metadata.RasterizationState
	blendAttachments       []metadata.BlendAttachmentDefinition
	depthStencil           metadata.DepthStencilState
	multisample            metadata.MultisampleState
	viewports              []metadata.Viewport
	scissors               []metadata.Rect2D
	dynamicStates          []metadata.DynamicState
	shaderStages           []ShaderStageDefinition
}

func NewGraphicsPipeline(cache *PipelineCache, layout *PipelineLayout, renderPass RenderPass, subpass uint32) *GraphicsPipeline {
	return &GraphicsPipeline{
		pipeline:      newPipeline(cache, layout),
		renderPass:    renderPass,
		subpass:       subpass,
		topology:      metadata.PrimitiveTopologyTriangleList,
		rasterization: metadata.NewRasterizationState(),
		depthStencil:  metadata.NewDepthStencilState(),
		multisample:   metadata.NewMultisampleState(),
	}
}

func (gp *GraphicsPipeline) SetVertexInput(input []metadata.VertexInputDefinition) {
	gp.mu.Lock()
	gp.vertexInput = input
	gp.mu.Unlock()
	gp.internalInvalidate()
}

func (gp *GraphicsPipeline) SetTopology(topology metadata.PrimitiveTopology, primitiveRestart bool) {
	gp.mu.Lock()
	gp.topology = topology
	gp.primitiveRestartEnable = primitiveRestart
	gp.mu.Unlock()
	gp.internalInvalidate()
}

func (gp *GraphicsPipeline) SetPatchControlPoints(points uint32) {
	gp.mu.Lock()
	gp.patchControlPoints = points
	gp.mu.Unlock()
	gp.internalInvalidate()
}

func (gp *GraphicsPipeline) SetRasterization(state metadata.RasterizationState) {
	gp.mu.Lock()
	gp.rasterization = state
	gp.mu.Unlock()
	gp.internalInvalidate()
}

func (gp *GraphicsPipeline) SetBlendAttachments(attachments []metadata.BlendAttachmentDefinition) {
	gp.mu.Lock()
	gp.blendAttachments = attachments
	gp.mu.Unlock()
	gp.internalInvalidate()
}

func (gp *GraphicsPipeline) SetDepthStencil(state metadata.DepthStencilState) {
	gp.mu.Lock()
	gp.depthStencil = state
	gp.mu.Unlock()
	gp.internalInvalidate()
}

func (gp *GraphicsPipeline) SetMultisample(state metadata.MultisampleState) {
	gp.mu.Lock()
	gp.multisample = state
	gp.mu.Unlock()
	gp.internalInvalidate()
}

func (gp *GraphicsPipeline) SetViewports(viewports []metadata.Viewport) {
	gp.mu.Lock()
	gp.viewports = viewports
	gp.mu.Unlock()
	gp.internalInvalidate()
}

func (gp *GraphicsPipeline) SetScissors(scissors []metadata.Rect2D) {
	gp.mu.Lock()
	gp.scissors = scissors
	gp.mu.Unlock()
	gp.internalInvalidate()
}

func (gp *GraphicsPipeline) SetDynamicStates(states []metadata.DynamicState) {
	gp.mu.Lock()
	gp.dynamicStates = states
	gp.mu.Unlock()
	gp.internalInvalidate()
}

// SetShaderStages replaces the shader stage list. The pipeline observes each
// module so that an external reload rebuilds it; old registrations are torn
// down symmetrically.
func (gp *GraphicsPipeline) SetShaderStages(stages []ShaderStageDefinition) {
	gp.mu.Lock()
	previous := gp.shaderStages
	gp.shaderStages = stages
	gp.mu.Unlock()

	for _, s := range previous {
		if s.Module != nil {
			s.Module.UnregisterObserver(gp)
		}
	}
	for _, s := range stages {
		if s.Module != nil {
			s.Module.RegisterObserver(gp)
		}
	}
	gp.internalInvalidate()
}

// HasDynamicState reports whether the given state is set at record time. Pure
// query, used by the render-command layer to decide whether to emit dynamic
// state-setting commands.
func (gp *GraphicsPipeline) HasDynamicState(state metadata.DynamicState) bool {
	gp.mu.Lock()
	defer gp.mu.Unlock()
	for _, d := range gp.dynamicStates {
		if d == state {
			return true
		}
	}
	return false
}

// HasShaderStage reports whether a stage with the given flag is attached.
func (gp *GraphicsPipeline) HasShaderStage(stage metadata.ShaderStageFlags) bool {
	gp.mu.Lock()
	defer gp.mu.Unlock()
	for _, s := range gp.shaderStages {
		if s.Stage == stage {
			return true
		}
	}
	return false
}

// Validate compiles the native pipeline for the context's device if it is
// absent or stale. Dependencies (cache, layout, render pass, shader modules)
// are validated first.
func (gp *GraphicsPipeline) Validate(ctx *RenderContext) error {
	// A bad render-pass/subpass pairing is a graph-construction bug, not a
	// runtime condition.
	if gp.subpass >= gp.renderPass.SubpassCount() {
		core.LogFatal("graphics pipeline: subpass %d out of range, render pass has %d subpasses", gp.subpass, gp.renderPass.SubpassCount())
	}

	if err := gp.cache.Validate(ctx); err != nil {
		return err
	}
	if err := gp.layout.Validate(ctx); err != nil {
		return err
	}
	if err := gp.renderPass.Validate(ctx); err != nil {
		return err
	}

	gp.mu.Lock()
	defer gp.mu.Unlock()

	pd, ok := gp.perDevice[ctx.Device]
	if !ok {
		pd = &pipelinePerDevice{}
		gp.perDevice[ctx.Device] = pd
	}
	if pd.valid {
		return nil
	}
	if pd.handle != nil {
		ctx.Device.DestroyPipeline(pd.handle)
		pd.handle = nil
	}

	state, err := gp.buildStateLocked(ctx)
	if err != nil {
		return err
	}
	handle, err := ctx.Device.CreateGraphicsPipeline(mustCacheHandle(gp.cache, ctx.Device), state)
	if err != nil {
		return fmt.Errorf("graphics pipeline creation failed: %w", err)
	}
	pd.handle = handle
	pd.valid = true
	return nil
}

func (gp *GraphicsPipeline) buildStateLocked(ctx *RenderContext) (*GraphicsPipelineState, error) {
	layoutHandle, err := gp.layout.Handle(ctx.Device)
	if err != nil {
		return nil, err
	}
	passHandle, err := gp.renderPass.Handle(ctx.Device)
	if err != nil {
		return nil, err
	}
	stages := make([]ShaderStageInfo, 0, len(gp.shaderStages))
	for _, s := range gp.shaderStages {
		moduleHandle, err := s.Module.Resolve(ctx)
		if err != nil {
			return nil, err
		}
		entryPoint := s.EntryPoint
		if entryPoint == "" {
			entryPoint = "main"
		}
		stages = append(stages, ShaderStageInfo{
			Stage:      s.Stage,
			Module:     moduleHandle,
			EntryPoint: entryPoint,
		})
	}
	return &GraphicsPipelineState{
		Layout:                 layoutHandle,
		RenderPass:             passHandle,
		Subpass:                gp.subpass,
		VertexInput:            gp.vertexInput,
		Topology:               gp.topology,
		PrimitiveRestartEnable: gp.primitiveRestartEnable,
		PatchControlPoints:     gp.patchControlPoints,
		Rasterization:          gp.rasterization,
		BlendAttachments:       gp.blendAttachments,
		DepthStencil:           gp.depthStencil,
		Multisample:            gp.multisample,
		Viewports:              gp.viewports,
		Scissors:               gp.scissors,
		DynamicStates:          gp.dynamicStates,
		Stages:                 stages,
	}, nil
}

// Destroy releases native pipelines and observer registrations.
func (gp *GraphicsPipeline) Destroy() {
	gp.mu.Lock()
	stages := gp.shaderStages
	gp.shaderStages = nil
	gp.mu.Unlock()
	for _, s := range stages {
		if s.Module != nil {
			s.Module.UnregisterObserver(gp)
		}
	}
	gp.destroy()
}

/**
 * @brief ComputePipeline is the compute variant: a single shader stage over
 * the shared caching and invalidation behaviour.
 */
type ComputePipeline struct {
	pipeline

	shaderStage ShaderStageDefinition
}

func NewComputePipeline(cache *PipelineCache, layout *PipelineLayout) *ComputePipeline {
	return &ComputePipeline{
		pipeline: newPipeline(cache, layout),
	}
}

// SetShaderStage replaces the compute stage and invalidates the pipeline.
func (cp *ComputePipeline) SetShaderStage(stage ShaderStageDefinition) {
	cp.mu.Lock()
	previous := cp.shaderStage
	cp.shaderStage = stage
	cp.mu.Unlock()

	if previous.Module != nil {
		previous.Module.UnregisterObserver(cp)
	}
	if stage.Module != nil {
		stage.Module.RegisterObserver(cp)
	}
	cp.internalInvalidate()
}

// HasShaderStage reports whether the compute stage carries the given flag.
func (cp *ComputePipeline) HasShaderStage(stage metadata.ShaderStageFlags) bool {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return cp.shaderStage.Module != nil && cp.shaderStage.Stage == stage
}

// Validate compiles the native compute pipeline for the context's device if
// absent or stale.
func (cp *ComputePipeline) Validate(ctx *RenderContext) error {
	if err := cp.cache.Validate(ctx); err != nil {
		return err
	}
	if err := cp.layout.Validate(ctx); err != nil {
		return err
	}

	cp.mu.Lock()
	defer cp.mu.Unlock()

	if cp.shaderStage.Module == nil {
		return fmt.Errorf("compute pipeline: no shader stage set")
	}

	pd, ok := cp.perDevice[ctx.Device]
	if !ok {
		pd = &pipelinePerDevice{}
		cp.perDevice[ctx.Device] = pd
	}
	if pd.valid {
		return nil
	}
	if pd.handle != nil {
		ctx.Device.DestroyPipeline(pd.handle)
		pd.handle = nil
	}

	layoutHandle, err := cp.layout.Handle(ctx.Device)
	if err != nil {
		return err
	}
	moduleHandle, err := cp.shaderStage.Module.Resolve(ctx)
	if err != nil {
		return err
	}
	entryPoint := cp.shaderStage.EntryPoint
	if entryPoint == "" {
		entryPoint = "main"
	}
	handle, err := ctx.Device.CreateComputePipeline(mustCacheHandle(cp.cache, ctx.Device), &ComputePipelineState{
		Layout: layoutHandle,
		Stage: ShaderStageInfo{
			Stage:      cp.shaderStage.Stage,
			Module:     moduleHandle,
			EntryPoint: entryPoint,
		},
	})
	if err != nil {
		return fmt.Errorf("compute pipeline creation failed: %w", err)
	}
	pd.handle = handle
	pd.valid = true
	return nil
}

// Destroy releases native pipelines and the module registration.
func (cp *ComputePipeline) Destroy() {
	cp.mu.Lock()
	stage := cp.shaderStage
	cp.shaderStage = ShaderStageDefinition{}
	cp.mu.Unlock()
	if stage.Module != nil {
		stage.Module.UnregisterObserver(cp)
	}
	cp.destroy()
}

// mustCacheHandle resolves the cache handle after the cache was validated in
// the same call; a miss here is a programming error.
func mustCacheHandle(cache *PipelineCache, device Device) PipelineCacheHandle {
	handle, err := cache.Handle(device)
	if err != nil {
		core.LogFatal("pipeline cache handle missing after validation: %s", err.Error())
	}
	return handle
}
