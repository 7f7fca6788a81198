package testbed

import (
	"encoding/binary"
	"fmt"
	stdmath "math"
	"path/filepath"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prisma/engine"
	"github.com/spaghettifunk/prisma/engine/config"
	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/math"
	"github.com/spaghettifunk/prisma/engine/renderer"
	"github.com/spaghettifunk/prisma/engine/renderer/binding"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
	"github.com/spaghettifunk/prisma/engine/renderer/vulkan"
)

const (
	staticInstanceCount  = 1024
	dynamicInstanceCount = 256

	// model matrix (16 floats) + bounding sphere (4 floats)
	instanceStride = 20 * 4
	// vkCmdDrawIndirect record: vertexCount, instanceCount, firstVertex, firstInstance
	drawCommandStride = 4 * 4
	// view-projection matrix + camera position
	cameraDataSize = 16*4 + 4*4

	cubeVertexCount   = 36
	cullWorkgroupSize = 64
)

type TestGame struct {
	*engine.Game
}

// instanceGroup is one culled batch: its instances live in a storage buffer
// the compute pass reads, and its draw records in an indirect buffer the
// compute pass writes and the graphics pass consumes.
type instanceGroup struct {
	count     uint32
	instances *vulkan.VulkanBuffer
	indirect  *vulkan.VulkanBuffer
	set       *binding.DescriptorSet
}

type gameState struct {
	width  uint32
	height uint32

	cameraAngle    float32
	cameraDistance float32
	cameraBuffer   *vulkan.VulkanBuffer

	groundTexture *vulkan.VulkanTexture

	static  instanceGroup
	dynamic instanceGroup

	// bounding-sphere radius of the cube the vertex shader emits
	cubeRadius float32

	// dynamic instances orbit a shared hub transform
	orbitHub *math.Transform
	orbiters []*math.Transform

	// scratch for the per-frame dynamic instance rebuild
	dynamicData []byte

	layout         *binding.DescriptorSetLayout
	pool           *binding.DescriptorPool
	pipelineLayout *binding.PipelineLayout
	pipelineCache  *binding.PipelineCache
	drawPipeline   *binding.GraphicsPipeline
	cullPipeline   *binding.ComputePipeline

	vertexShader   *binding.ShaderModule
	fragmentShader *binding.ShaderModule
	cullShader     *binding.ShaderModule
}

func NewTestGame() (*TestGame, error) {
	cfg, err := config.Load("prisma.toml")
	if err != nil {
		return nil, err
	}
	cfg.Name = "Prisma GPU Cull"

	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: cfg,
			State: &gameState{
				cameraDistance: 60.0,
				width:          cfg.Window.Width,
				height:         cfg.Window.Height,
			},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg, nil
}

func (g *TestGame) Initialize() error {
	core.LogInfo("initializing testbed...")

	state := g.State.(*gameState)
	vctx := renderer.Backend().Context()
	cfg := g.ApplicationConfig

	// The culling shader routes each visible instance through the draw
	// record's firstInstance field, so this feature is not optional here.
	if err := requireCapability(renderer.Device(), binding.CapabilityDrawIndirectFirstInstance); err != nil {
		return err
	}

	shaderDir := filepath.Join(cfg.Assets.Dir, "shaders")
	var err error
	if state.vertexShader, err = binding.NewShaderModuleFromFile(filepath.Join(shaderDir, "gpucull.vert.spv")); err != nil {
		return err
	}
	if state.fragmentShader, err = binding.NewShaderModuleFromFile(filepath.Join(shaderDir, "gpucull.frag.spv")); err != nil {
		return err
	}
	if state.cullShader, err = binding.NewShaderModuleFromFile(filepath.Join(shaderDir, "gpucull.comp.spv")); err != nil {
		return err
	}
	core.EventRegister(core.EVENT_CODE_SHADER_RELOADED, state.onShaderReloaded)

	// One layout shared by the culling and drawing pipelines and by both
	// instance groups.
	bindings := []metadata.DescriptorBinding{
		metadata.NewDescriptorBinding(0, 1, metadata.DescriptorKindUniformBuffer, metadata.ShaderStageVertex|metadata.ShaderStageCompute),
		metadata.NewDescriptorBinding(1, 1, metadata.DescriptorKindStorageBuffer, metadata.ShaderStageVertex|metadata.ShaderStageCompute),
		metadata.NewDescriptorBinding(2, 1, metadata.DescriptorKindStorageBuffer, metadata.ShaderStageCompute),
		metadata.NewDescriptorBinding(3, 1, metadata.DescriptorKindCombinedImageSampler, metadata.ShaderStageFragment),
	}
	state.layout = binding.NewDescriptorSetLayout(bindings)
	state.pool = binding.NewDescriptorPool(cfg.Render.DescriptorPoolSize, bindings)

	state.cameraBuffer = vulkan.NewUniformBuffer(vctx, cameraDataSize)
	state.groundTexture, err = vulkan.NewTexture(vctx, 256, 256, checkerboard(256, 256))
	if err != nil {
		return err
	}

	if err := state.initGroup(&state.static, vctx, staticInstanceCount); err != nil {
		return err
	}
	if err := state.initGroup(&state.dynamic, vctx, dynamicInstanceCount); err != nil {
		return err
	}

	// The culling pass tests each instance's bounding sphere, derived from
	// the cube the vertex shader emits and scaled per instance.
	_, state.cubeRadius = math.GeometryBoundingSphere(cubeCorners())

	// Static instances never move, so their buffer is written once.
	staticData := make([]byte, staticInstanceCount*instanceStride)
	for i := 0; i < staticInstanceCount; i++ {
		pos := math.NewVec3(math.RandomInRange(-100, 100), 0, math.RandomInRange(-100, 100))
		scale := math.RandomInRange(0.5, 3.0)
		spin := math.NewQuatFromAxisAngle(math.NewVec3Up(), math.RandomInRange(0, 2*stdmath.Pi))
		tr := math.TransformFromPositionRotationScale(pos, spin, math.NewVec3(scale, scale, scale))
		packInstance(staticData[i*instanceStride:], tr.GetLocal(), pos, scale*state.cubeRadius)
	}
	if err := state.static.instances.SetData(0, staticData); err != nil {
		return err
	}

	// Dynamic instances are parented to a hub; rotating the hub each frame
	// swings every orbiter through the frustum.
	state.orbitHub = math.TransformCreate()
	state.orbiters = make([]*math.Transform, dynamicInstanceCount)
	for i := range state.orbiters {
		t := float32(i) * 0.13
		radius := 20.0 + float32(i%16)*4.0
		orbiter := math.TransformFromPosition(math.NewVec3(radius*cosf(t), 1.0, radius*sinf(t)))
		orbiter.Parent = state.orbitHub
		state.orbiters[i] = orbiter
	}

	state.dynamicData = make([]byte, dynamicInstanceCount*instanceStride)

	state.pipelineLayout = binding.NewPipelineLayout(state.layout)
	state.pipelineCache = binding.NewPipelineCache()

	state.drawPipeline = binding.NewGraphicsPipeline(state.pipelineCache, state.pipelineLayout, vctx.MainRenderpass.Binding(), 0)
	state.drawPipeline.SetShaderStages([]binding.ShaderStageDefinition{
		{Stage: metadata.ShaderStageVertex, Module: state.vertexShader, EntryPoint: "main"},
		{Stage: metadata.ShaderStageFragment, Module: state.fragmentShader, EntryPoint: "main"},
	})
	// Vertices are generated in the vertex shader from gl_VertexIndex, so
	// there is no vertex input.
	state.drawPipeline.SetTopology(metadata.PrimitiveTopologyTriangleList, false)
	state.drawPipeline.SetRasterization(metadata.NewRasterizationState())
	state.drawPipeline.SetDepthStencil(metadata.NewDepthStencilState())
	state.drawPipeline.SetMultisample(metadata.NewMultisampleState())
	state.drawPipeline.SetBlendAttachments([]metadata.BlendAttachmentDefinition{metadata.NewBlendAttachment(false)})
	state.drawPipeline.SetDynamicStates([]metadata.DynamicState{metadata.DynamicStateViewport, metadata.DynamicStateScissor})

	state.cullPipeline = binding.NewComputePipeline(state.pipelineCache, state.pipelineLayout)
	state.cullPipeline.SetShaderStage(binding.ShaderStageDefinition{
		Stage:      metadata.ShaderStageCompute,
		Module:     state.cullShader,
		EntryPoint: "main",
	})

	// Re-record draw commands whenever a native set or pipeline is replaced.
	state.static.set.AddNode(renderer.Backend())
	state.dynamic.set.AddNode(renderer.Backend())
	state.drawPipeline.AddNode(renderer.Backend())
	state.cullPipeline.AddNode(renderer.Backend())

	return nil
}

func (gs *gameState) initGroup(group *instanceGroup, vctx *vulkan.VulkanContext, count uint32) error {
	group.count = count
	group.instances = vulkan.NewStorageBuffer(vctx, uint64(count)*instanceStride)
	group.indirect = vulkan.NewIndirectBuffer(vctx, uint64(count)*drawCommandStride)
	group.set = binding.NewDescriptorSet(gs.layout, gs.pool)

	if err := group.set.SetDescriptor(0, metadata.DescriptorKindUniformBuffer, gs.cameraBuffer); err != nil {
		return err
	}
	if err := group.set.SetDescriptor(1, metadata.DescriptorKindStorageBuffer, group.instances); err != nil {
		return err
	}
	if err := group.set.SetDescriptor(2, metadata.DescriptorKindStorageBuffer, group.indirect); err != nil {
		return err
	}
	return group.set.SetDescriptor(3, metadata.DescriptorKindCombinedImageSampler, gs.groundTexture)
}

func (g *TestGame) Update(deltaTime float64) error {
	state := g.State.(*gameState)

	state.cameraAngle += float32(deltaTime) * 0.2
	angle := state.cameraAngle

	// Rebuild every dynamic instance. Rotating the hub moves all of them;
	// each orbiter also spins in place. The per-orbiter work is independent,
	// so fan it out after settling the shared parent matrix.
	state.orbitHub.SetRotation(math.NewQuatFromAxisAngle(math.NewVec3Up(), angle))
	state.orbitHub.GetLocal()
	engine.ParallelFor(dynamicInstanceCount, func(i int) {
		orbiter := state.orbiters[i]
		orbiter.SetRotation(math.NewQuatFromAxisAngle(math.NewVec3Up(), angle+float32(i)*0.13))
		model := orbiter.GetWorld()
		center := math.NewVec3(model.Data[12], model.Data[13], model.Data[14])
		packInstance(state.dynamicData[i*instanceStride:], model, center, state.cubeRadius)
	})
	if err := state.dynamic.instances.SetData(0, state.dynamicData); err != nil {
		return err
	}

	// Camera orbits the scene.
	eye := math.NewVec3(state.cameraDistance*cosf(angle*0.3), 30.0, state.cameraDistance*sinf(angle*0.3))
	view := math.NewMat4LookAt(eye, math.NewVec3Zero(), math.NewVec3Up())
	aspect := float32(state.width) / float32(state.height)
	proj := math.NewMat4Perspective(math.DegToRad(60.0), aspect, 0.1, 500.0)

	cameraData := make([]byte, cameraDataSize)
	viewProj := proj.Mul(view)
	for i, f := range viewProj.Data {
		binary.LittleEndian.PutUint32(cameraData[i*4:], stdmath.Float32bits(f))
	}
	binary.LittleEndian.PutUint32(cameraData[64:], stdmath.Float32bits(eye.X))
	binary.LittleEndian.PutUint32(cameraData[68:], stdmath.Float32bits(eye.Y))
	binary.LittleEndian.PutUint32(cameraData[72:], stdmath.Float32bits(eye.Z))
	binary.LittleEndian.PutUint32(cameraData[76:], stdmath.Float32bits(1.0))
	return state.cameraBuffer.SetData(0, cameraData)
}

func (g *TestGame) Render(deltaTime float64) (*renderer.RenderPacket, error) {
	state := g.State.(*gameState)
	return &renderer.RenderPacket{
		DeltaTime: deltaTime,
		Compute:   state.recordCull,
		Record:    state.recordDraw,
	}, nil
}

// recordCull validates everything the culling pass depends on, then records
// one dispatch per instance group. Validation is what makes stale native
// objects reappear: anything invalidated since the last frame is recreated
// or rewritten here.
func (gs *gameState) recordCull(cb *vulkan.VulkanCommandBuffer, ctx binding.RenderContext) error {
	if err := gs.cullPipeline.Validate(&ctx); err != nil {
		return err
	}
	pipeline, err := gs.cullPipeline.Handle(ctx.Device)
	if err != nil {
		return err
	}
	layout, err := gs.pipelineLayout.Handle(ctx.Device)
	if err != nil {
		return err
	}

	vk.CmdBindPipeline(cb.Handle, vk.PipelineBindPointCompute, pipeline.(vk.Pipeline))

	for _, group := range []*instanceGroup{&gs.static, &gs.dynamic} {
		if err := group.set.Validate(&ctx); err != nil {
			return err
		}
		setHandle, err := group.set.Handle(&ctx)
		if err != nil {
			return err
		}

		vk.CmdBindDescriptorSets(cb.Handle, vk.PipelineBindPointCompute, layout.(vk.PipelineLayout), 0, 1,
			[]vk.DescriptorSet{setHandle.(vk.DescriptorSet)}, 0, nil)

		groupCount := (group.count + cullWorkgroupSize - 1) / cullWorkgroupSize
		vk.CmdDispatch(cb.Handle, groupCount, 1, 1)
	}

	// The indirect records written above are read by the draw stage.
	barrier := vk.MemoryBarrier{
		SType:         vk.StructureTypeMemoryBarrier,
		SrcAccessMask: vk.AccessFlags(vk.AccessShaderWriteBit),
		DstAccessMask: vk.AccessFlags(vk.AccessIndirectCommandReadBit),
	}
	vk.CmdPipelineBarrier(cb.Handle,
		vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
		vk.PipelineStageFlags(vk.PipelineStageDrawIndirectBit),
		0, 1, []vk.MemoryBarrier{barrier}, 0, nil, 0, nil)

	return nil
}

func (gs *gameState) recordDraw(cb *vulkan.VulkanCommandBuffer, ctx binding.RenderContext) error {
	if err := gs.drawPipeline.Validate(&ctx); err != nil {
		return err
	}
	pipeline, err := gs.drawPipeline.Handle(ctx.Device)
	if err != nil {
		return err
	}
	layout, err := gs.pipelineLayout.Handle(ctx.Device)
	if err != nil {
		return err
	}

	vk.CmdBindPipeline(cb.Handle, vk.PipelineBindPointGraphics, pipeline.(vk.Pipeline))

	multiDraw := ctx.Device.Supports(binding.CapabilityMultiDrawIndirect)

	for _, group := range []*instanceGroup{&gs.static, &gs.dynamic} {
		setHandle, err := group.set.Handle(&ctx)
		if err != nil {
			return err
		}
		indirect, err := group.indirect.Handle(ctx.ImageIndex)
		if err != nil {
			return err
		}

		vk.CmdBindDescriptorSets(cb.Handle, vk.PipelineBindPointGraphics, layout.(vk.PipelineLayout), 0, 1,
			[]vk.DescriptorSet{setHandle.(vk.DescriptorSet)}, 0, nil)

		if multiDraw {
			vk.CmdDrawIndirect(cb.Handle, indirect, 0, group.count, drawCommandStride)
		} else {
			// One record at a time for devices without multi-draw.
			for i := uint32(0); i < group.count; i++ {
				vk.CmdDrawIndirect(cb.Handle, indirect, vk.DeviceSize(i*drawCommandStride), 1, drawCommandStride)
			}
		}
	}

	return nil
}

func (g *TestGame) OnResize(width, height uint32) error {
	state := g.State.(*gameState)
	state.width = width
	state.height = height
	return nil
}

func (g *TestGame) Shutdown() error {
	state := g.State.(*gameState)

	state.drawPipeline.Destroy()
	state.cullPipeline.Destroy()
	state.pipelineCache.Destroy()
	state.pipelineLayout.Destroy()

	state.static.set.Destroy()
	state.dynamic.set.Destroy()
	state.pool.Destroy()
	state.layout.Destroy()

	state.vertexShader.Destroy()
	state.fragmentShader.Destroy()
	state.cullShader.Destroy()

	state.static.instances.Destroy()
	state.static.indirect.Destroy()
	state.dynamic.instances.Destroy()
	state.dynamic.indirect.Destroy()
	state.cameraBuffer.Destroy()
	state.groundTexture.Destroy()

	return nil
}

// onShaderReloaded swaps the bytecode of the touched module. The module
// invalidates every pipeline built from it; the next Validate rebuilds them.
func (gs *gameState) onShaderReloaded(context core.EventContext) {
	ae, ok := context.Data.(*core.AssetEvent)
	if !ok {
		return
	}
	for _, module := range []*binding.ShaderModule{gs.vertexShader, gs.fragmentShader, gs.cullShader} {
		if module.FileName() != ae.Path {
			continue
		}
		if err := module.Reload(); err != nil {
			core.LogError("shader reload failed for %s: %s", ae.Path, err)
			return
		}
		core.LogInfo("shader %s reloaded", ae.Path)
		renderer.InvalidateCommandBuffers()
	}
}

// packInstance writes one instance record: column-major model matrix followed
// by the bounding sphere the culling shader tests.
func packInstance(dst []byte, model math.Mat4, center math.Vec3, radius float32) {
	for i, f := range model.Data {
		binary.LittleEndian.PutUint32(dst[i*4:], stdmath.Float32bits(f))
	}
	binary.LittleEndian.PutUint32(dst[64:], stdmath.Float32bits(center.X))
	binary.LittleEndian.PutUint32(dst[68:], stdmath.Float32bits(center.Y))
	binary.LittleEndian.PutUint32(dst[72:], stdmath.Float32bits(center.Z))
	binary.LittleEndian.PutUint32(dst[76:], stdmath.Float32bits(radius))
}

// requireCapability reports a device feature the demo cannot run without.
func requireCapability(device binding.Device, capability binding.Capability) error {
	if device.Supports(capability) {
		return nil
	}
	return fmt.Errorf("capability %s: %w", capability, core.ErrCapabilityMissing)
}

// cubeCorners lists the eight corners of the cube the vertex shader emits,
// spanning [-1, 1] on every axis.
func cubeCorners() []math.Vertex3D {
	corners := make([]math.Vertex3D, 0, 8)
	for _, x := range []float32{-1, 1} {
		for _, y := range []float32{-1, 1} {
			for _, z := range []float32{-1, 1} {
				corners = append(corners, math.Vertex3D{Position: math.NewVec3(x, y, z)})
			}
		}
	}
	return corners
}

// checkerboard builds RGBA pixels for the demo texture.
func checkerboard(width, height int) []byte {
	pixels := make([]byte, width*height*4)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * 4
			shade := byte(60)
			if (x/32+y/32)%2 == 0 {
				shade = 220
			}
			pixels[i] = shade
			pixels[i+1] = shade
			pixels[i+2] = shade
			pixels[i+3] = 255
		}
	}
	return pixels
}

func cosf(x float32) float32 { return float32(stdmath.Cos(float64(x))) }
func sinf(x float32) float32 { return float32(stdmath.Sin(float64(x))) }
