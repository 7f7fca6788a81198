package binding

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

func TestPipelineHandleBeforeValidate(t *testing.T) {
	device := newFakeDevice()

	cache := NewPipelineCache()
	_, err := cache.Handle(device)
	assert.ErrorIs(t, err, core.ErrNotValidated)

	layout := NewPipelineLayout(NewDescriptorSetLayout(testBindings()))
	_, err = layout.Handle(device)
	assert.ErrorIs(t, err, core.ErrNotValidated)

	gp := NewGraphicsPipeline(cache, layout, newFakeRenderPass(1), 0)
	_, err = gp.Handle(device)
	assert.ErrorIs(t, err, core.ErrNotValidated)

	cp := NewComputePipeline(cache, layout)
	_, err = cp.Handle(device)
	assert.ErrorIs(t, err, core.ErrNotValidated)

	sm := NewShaderModule([]byte{0x03, 0x02, 0x23, 0x07})
	_, err = sm.Handle(device)
	assert.ErrorIs(t, err, core.ErrNotValidated)
}

func TestPipelineLayoutValidatesSchemas(t *testing.T) {
	device := newFakeDevice()
	ctx := testContext(device, NewSurfaceID(), 0, 2)

	setLayout := NewDescriptorSetLayout(testBindings())
	layout := NewPipelineLayout(setLayout)
	require.NoError(t, layout.Validate(ctx))
	require.NoError(t, layout.Validate(ctx))

	assert.Equal(t, 1, device.layoutsCreated)
	assert.Equal(t, 1, device.pipelineLayoutsCreated)

	_, err := setLayout.Handle(device)
	assert.NoError(t, err)
}

func TestGraphicsPipelineValidateIdempotent(t *testing.T) {
	device := newFakeDevice()
	ctx := testContext(device, NewSurfaceID(), 0, 2)

	cache := NewPipelineCache()
	layout := NewPipelineLayout(NewDescriptorSetLayout(testBindings()))
	gp := NewGraphicsPipeline(cache, layout, newFakeRenderPass(1), 0)
	gp.SetShaderStages([]ShaderStageDefinition{
		{Stage: metadata.ShaderStageVertex, Module: NewShaderModule([]byte{1})},
		{Stage: metadata.ShaderStageFragment, Module: NewShaderModule([]byte{2})},
	})

	require.NoError(t, gp.Validate(ctx))
	require.NoError(t, gp.Validate(ctx))
	assert.Equal(t, 1, device.graphicsCreated)
	assert.Equal(t, 1, device.cachesCreated)

	handle, err := gp.Handle(device)
	require.NoError(t, err)
	assert.NotNil(t, handle)
}

func TestGraphicsPipelineSetterInvalidates(t *testing.T) {
	device := newFakeDevice()
	ctx := testContext(device, NewSurfaceID(), 0, 2)

	cache := NewPipelineCache()
	layout := NewPipelineLayout(NewDescriptorSetLayout(testBindings()))
	gp := NewGraphicsPipeline(cache, layout, newFakeRenderPass(1), 0)
	gp.SetShaderStages([]ShaderStageDefinition{
		{Stage: metadata.ShaderStageVertex, Module: NewShaderModule([]byte{1})},
	})
	require.NoError(t, gp.Validate(ctx))

	node := &fakeNode{}
	gp.AddNode(node)

	gp.SetRasterization(metadata.NewRasterizationState())
	_, err := gp.Handle(device)
	assert.ErrorIs(t, err, core.ErrNotValidated)
	assert.Equal(t, 1, node.count())

	require.NoError(t, gp.Validate(ctx))
	assert.Equal(t, 2, device.graphicsCreated)
	assert.Equal(t, 1, device.pipelinesDestroyed)

	// every other state setter behaves the same way
	gp.SetDynamicStates([]metadata.DynamicState{metadata.DynamicStateViewport, metadata.DynamicStateScissor})
	require.NoError(t, gp.Validate(ctx))
	assert.Equal(t, 3, device.graphicsCreated)
}

func TestGraphicsPipelineQueries(t *testing.T) {
	cache := NewPipelineCache()
	layout := NewPipelineLayout()
	gp := NewGraphicsPipeline(cache, layout, newFakeRenderPass(1), 0)

	gp.SetDynamicStates([]metadata.DynamicState{metadata.DynamicStateViewport, metadata.DynamicStateLineWidth})
	assert.True(t, gp.HasDynamicState(metadata.DynamicStateViewport))
	assert.True(t, gp.HasDynamicState(metadata.DynamicStateLineWidth))
	assert.False(t, gp.HasDynamicState(metadata.DynamicStateScissor))

	gp.SetShaderStages([]ShaderStageDefinition{
		{Stage: metadata.ShaderStageVertex, Module: NewShaderModule([]byte{1})},
		{Stage: metadata.ShaderStageFragment, Module: NewShaderModule([]byte{2})},
	})
	assert.True(t, gp.HasShaderStage(metadata.ShaderStageVertex))
	assert.False(t, gp.HasShaderStage(metadata.ShaderStageCompute))
}

func TestComputePipelineValidate(t *testing.T) {
	device := newFakeDevice()
	ctx := testContext(device, NewSurfaceID(), 0, 2)

	cache := NewPipelineCache()
	layout := NewPipelineLayout(NewDescriptorSetLayout(testBindings()))
	cp := NewComputePipeline(cache, layout)

	// no stage set yet
	require.Error(t, cp.Validate(ctx))

	cp.SetShaderStage(ShaderStageDefinition{
		Stage:  metadata.ShaderStageCompute,
		Module: NewShaderModule([]byte{1}),
	})
	require.NoError(t, cp.Validate(ctx))
	require.NoError(t, cp.Validate(ctx))
	assert.Equal(t, 1, device.computeCreated)
	assert.True(t, cp.HasShaderStage(metadata.ShaderStageCompute))

	cp.Invalidate()
	_, err := cp.Handle(device)
	assert.ErrorIs(t, err, core.ErrNotValidated)
	require.NoError(t, cp.Validate(ctx))
	assert.Equal(t, 2, device.computeCreated)
}

func TestPipelineSharedCacheAcrossVariants(t *testing.T) {
	device := newFakeDevice()
	ctx := testContext(device, NewSurfaceID(), 0, 2)

	cache := NewPipelineCache()
	layout := NewPipelineLayout(NewDescriptorSetLayout(testBindings()))

	gp := NewGraphicsPipeline(cache, layout, newFakeRenderPass(1), 0)
	gp.SetShaderStages([]ShaderStageDefinition{
		{Stage: metadata.ShaderStageVertex, Module: NewShaderModule([]byte{1})},
	})
	cp := NewComputePipeline(cache, layout)
	cp.SetShaderStage(ShaderStageDefinition{Stage: metadata.ShaderStageCompute, Module: NewShaderModule([]byte{2})})

	require.NoError(t, gp.Validate(ctx))
	require.NoError(t, cp.Validate(ctx))

	assert.Equal(t, 1, device.cachesCreated)
	assert.Equal(t, 1, device.pipelineLayoutsCreated)
}

func TestShaderModuleReloadInvalidatesPipelines(t *testing.T) {
	device := newFakeDevice()
	ctx := testContext(device, NewSurfaceID(), 0, 2)

	fileName := filepath.Join(t.TempDir(), "cull.comp.spv")
	require.NoError(t, os.WriteFile(fileName, []byte{0x03, 0x02, 0x23, 0x07}, 0o644))

	module, err := NewShaderModuleFromFile(fileName)
	require.NoError(t, err)

	cache := NewPipelineCache()
	layout := NewPipelineLayout(NewDescriptorSetLayout(testBindings()))
	cp := NewComputePipeline(cache, layout)
	cp.SetShaderStage(ShaderStageDefinition{Stage: metadata.ShaderStageCompute, Module: module})

	require.NoError(t, cp.Validate(ctx))
	assert.Equal(t, 1, device.shaderModulesCreated)

	require.NoError(t, os.WriteFile(fileName, []byte{0x03, 0x02, 0x23, 0x07, 0xff}, 0o644))
	require.NoError(t, module.Reload())

	_, err = cp.Handle(device)
	assert.ErrorIs(t, err, core.ErrNotValidated)

	require.NoError(t, cp.Validate(ctx))
	assert.Equal(t, 2, device.shaderModulesCreated)
	assert.Equal(t, 2, device.computeCreated)
}

func TestComputePipelineValidateDuringConcurrentReload(t *testing.T) {
	device := newFakeDevice()
	ctx := testContext(device, NewSurfaceID(), 0, 2)

	fileName := filepath.Join(t.TempDir(), "cull.comp.spv")
	require.NoError(t, os.WriteFile(fileName, []byte{0x03, 0x02, 0x23, 0x07}, 0o644))
	module, err := NewShaderModuleFromFile(fileName)
	require.NoError(t, err)

	cache := NewPipelineCache()
	layout := NewPipelineLayout(NewDescriptorSetLayout(testBindings()))
	cp := NewComputePipeline(cache, layout)
	cp.SetShaderStage(ShaderStageDefinition{Stage: metadata.ShaderStageCompute, Module: module})

	// Every reload logs; keep the loop below quiet.
	core.SetLogLevel(core.ErrorLevel)
	defer core.SetLogLevel(core.InfoLevel)

	// Reloads landing mid-validation must only ever force a rebuild, never
	// surface as a not-validated error from Validate.
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				_ = module.Reload()
			}
		}
	}()

	for i := 0; i < 20000; i++ {
		require.NoError(t, cp.Validate(ctx))
	}
	close(done)
	wg.Wait()
}

func TestShaderModuleObserverSymmetry(t *testing.T) {
	moduleA := NewShaderModule([]byte{1})
	moduleB := NewShaderModule([]byte{2})

	cache := NewPipelineCache()
	layout := NewPipelineLayout()
	gp := NewGraphicsPipeline(cache, layout, newFakeRenderPass(1), 0)

	gp.SetShaderStages([]ShaderStageDefinition{{Stage: metadata.ShaderStageVertex, Module: moduleA}})
	gp.SetShaderStages([]ShaderStageDefinition{{Stage: metadata.ShaderStageVertex, Module: moduleB}})

	assert.Len(t, moduleA.observers, 0)
	assert.Len(t, moduleB.observers, 1)

	gp.Destroy()
	assert.Len(t, moduleB.observers, 0)
}
