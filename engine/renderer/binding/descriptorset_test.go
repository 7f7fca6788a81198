package binding

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

func TestLayoutHandleBeforeValidate(t *testing.T) {
	device := newFakeDevice()

	layout := NewDescriptorSetLayout(testBindings())
	_, err := layout.Handle(device)
	assert.ErrorIs(t, err, core.ErrNotValidated)

	pool := NewDescriptorPool(3, testBindings())
	_, err = pool.Handle(device)
	assert.ErrorIs(t, err, core.ErrNotValidated)

	set := NewDescriptorSet(layout, pool)
	_, err = set.Handle(testContext(device, NewSurfaceID(), 0, 2))
	assert.ErrorIs(t, err, core.ErrNotValidated)
}

func TestLayoutValidateIdempotent(t *testing.T) {
	device := newFakeDevice()
	ctx := testContext(device, NewSurfaceID(), 0, 2)
	layout := NewDescriptorSetLayout(testBindings())

	require.NoError(t, layout.Validate(ctx))
	require.NoError(t, layout.Validate(ctx))
	assert.Equal(t, 1, device.layoutsCreated)

	handle, err := layout.Handle(device)
	require.NoError(t, err)
	assert.NotNil(t, handle)
}

func TestLayoutSharedAcrossSets(t *testing.T) {
	device := newFakeDevice()
	surface := NewSurfaceID()
	ctx := testContext(device, surface, 0, 2)

	layout := NewDescriptorSetLayout(testBindings())
	pool := NewDescriptorPool(4, testBindings())

	setA := NewDescriptorSet(layout, pool)
	setB := NewDescriptorSet(layout, pool)
	require.NoError(t, setA.SetResource(0, newFakeResource("ubo")))
	require.NoError(t, setB.SetResource(0, newFakeResource("ubo2")))

	require.NoError(t, setA.Validate(ctx))
	require.NoError(t, setB.Validate(ctx))

	// the schema handle is created once per device regardless of consumers
	assert.Equal(t, 1, device.layoutsCreated)
	assert.Equal(t, 1, device.poolsCreated)
	assert.Equal(t, 2, device.setsAllocated)
}

func TestLayoutMutationAfterValidate(t *testing.T) {
	device := newFakeDevice()
	ctx := testContext(device, NewSurfaceID(), 0, 2)
	layout := NewDescriptorSetLayout(testBindings())
	require.NoError(t, layout.Validate(ctx))

	err := layout.SetBindings(testBindings()[:1])
	assert.ErrorIs(t, err, core.ErrAlreadyValidated)

	layout.Invalidate()
	require.NoError(t, layout.SetBindings(testBindings()[:1]))
	require.NoError(t, layout.Validate(ctx))
	assert.Equal(t, 2, device.layoutsCreated)
}

func TestDescriptorKindLookup(t *testing.T) {
	layout := NewDescriptorSetLayout(testBindings())

	kind, err := layout.DescriptorKind(1)
	require.NoError(t, err)
	assert.Equal(t, metadata.DescriptorKindStorageBuffer, kind)
	assert.Equal(t, uint32(1), layout.BindingCount(0))

	_, err = layout.DescriptorKind(7)
	assert.ErrorIs(t, err, core.ErrUnknownBinding)
}

func TestPoolExhaustion(t *testing.T) {
	device := newFakeDevice()
	ctx := testContext(device, NewSurfaceID(), 0, 1)
	layout := NewDescriptorSetLayout(testBindings())
	pool := NewDescriptorPool(1, testBindings())
	require.NoError(t, layout.Validate(ctx))
	require.NoError(t, pool.Validate(ctx))

	layoutHandle, err := layout.Handle(device)
	require.NoError(t, err)

	first, err := pool.Allocate(device, layoutHandle)
	require.NoError(t, err)

	_, err = pool.Allocate(device, layoutHandle)
	assert.ErrorIs(t, err, core.ErrPoolExhausted)

	require.NoError(t, pool.Free(device, first))
	_, err = pool.Allocate(device, layoutHandle)
	assert.NoError(t, err)
}

func TestDescriptorSetReflectsLatestBindings(t *testing.T) {
	device := newFakeDevice()
	surface := NewSurfaceID()
	ctx := testContext(device, surface, 0, 2)

	layout := NewDescriptorSetLayout(testBindings())
	pool := NewDescriptorPool(3, testBindings())
	set := NewDescriptorSet(layout, pool)

	first := newFakeResource("first")
	second := newFakeResource("second")
	storage := newFakeResource("storage")

	require.NoError(t, set.SetResource(0, first))
	require.NoError(t, set.SetResource(1, storage))
	require.NoError(t, set.SetResource(0, second)) // replaces "first"
	set.ResetDescriptor(1)

	require.NoError(t, set.Validate(ctx))
	handle, err := set.Handle(ctx)
	require.NoError(t, err)

	writes := device.lastWrites(handle)
	require.Len(t, writes, 1)
	assert.Equal(t, uint32(0), writes[0].Binding)
	assert.Equal(t, metadata.DescriptorKindUniformBuffer, writes[0].Kind)
	require.Len(t, writes[0].Values, 1)
	assert.Equal(t, "second@v0", writes[0].Values[0].Buffer.Buffer)

	// replacing a binding tears down the old observer registration
	assert.Equal(t, 0, first.observerCount())
	assert.Equal(t, 1, second.observerCount())
	assert.Equal(t, 0, storage.observerCount())
}

func TestDescriptorSetWriteReflectsCurrentResourceState(t *testing.T) {
	device := newFakeDevice()
	ctx := testContext(device, NewSurfaceID(), 0, 2)

	layout := NewDescriptorSetLayout(testBindings())
	pool := NewDescriptorPool(3, testBindings())
	set := NewDescriptorSet(layout, pool)

	ubo := newFakeResource("camera")
	require.NoError(t, set.SetResource(0, ubo))
	require.NoError(t, set.Validate(ctx))

	ubo.Set(3)
	require.NoError(t, set.Validate(ctx))

	handle, err := set.Handle(ctx)
	require.NoError(t, err)
	writes := device.lastWrites(handle)
	require.Len(t, writes, 1)
	assert.Equal(t, "camera@v3", writes[0].Values[0].Buffer.Buffer)
}

func TestResourceInvalidationFansOutAcrossSets(t *testing.T) {
	device := newFakeDevice()
	surface := NewSurfaceID()
	ctx0 := testContext(device, surface, 0, 2)

	layout := NewDescriptorSetLayout(testBindings())
	pool := NewDescriptorPool(4, testBindings())
	setA := NewDescriptorSet(layout, pool)
	setB := NewDescriptorSet(layout, pool)

	shared := newFakeResource("shared-ubo")
	require.NoError(t, setA.SetResource(0, shared))
	require.NoError(t, setB.SetResource(0, shared))

	require.NoError(t, setA.Validate(ctx0))
	require.NoError(t, setB.Validate(ctx0))

	// two independent registrations for one shared resource
	assert.Equal(t, 2, shared.observerCount())

	shared.Set(1)

	_, err := setA.Handle(ctx0)
	assert.ErrorIs(t, err, core.ErrNotValidated)
	_, err = setB.Handle(ctx0)
	assert.ErrorIs(t, err, core.ErrNotValidated)

	// validating A does not touch B
	require.NoError(t, setA.Validate(ctx0))
	_, err = setA.Handle(ctx0)
	assert.NoError(t, err)
	_, err = setB.Handle(ctx0)
	assert.ErrorIs(t, err, core.ErrNotValidated)
}

func TestDescriptorSetValidateIdempotent(t *testing.T) {
	device := newFakeDevice()
	ctx := testContext(device, NewSurfaceID(), 0, 2)

	layout := NewDescriptorSetLayout(testBindings())
	pool := NewDescriptorPool(3, testBindings())
	set := NewDescriptorSet(layout, pool)
	require.NoError(t, set.SetResource(0, newFakeResource("ubo")))

	require.NoError(t, set.Validate(ctx))
	require.NoError(t, set.Validate(ctx))

	assert.Equal(t, 1, device.setsAllocated)
	assert.Equal(t, 1, device.writeCount)
}

func TestInFlightIndexIndependence(t *testing.T) {
	device := newFakeDevice()
	surface := NewSurfaceID()

	layout := NewDescriptorSetLayout(testBindings())
	pool := NewDescriptorPool(3, testBindings())
	set := NewDescriptorSet(layout, pool)

	ubo := newFakeResource("camera")
	sbo := newFakeResource("instances")
	require.NoError(t, set.SetResource(0, ubo))
	require.NoError(t, set.SetResource(1, sbo))

	ctx0 := testContext(device, surface, 0, 2)
	ctx1 := testContext(device, surface, 1, 2)
	require.NoError(t, set.Validate(ctx0))
	require.NoError(t, set.Validate(ctx1))

	// mutate the storage buffer: both in-flight copies go stale
	sbo.Set(1)
	_, err := set.Handle(ctx0)
	require.ErrorIs(t, err, core.ErrNotValidated)
	_, err = set.Handle(ctx1)
	require.ErrorIs(t, err, core.ErrNotValidated)

	// validating slot 0 leaves slot 1 invalid until separately validated
	require.NoError(t, set.Validate(ctx0))
	_, err = set.Handle(ctx0)
	assert.NoError(t, err)
	_, err = set.Handle(ctx1)
	assert.ErrorIs(t, err, core.ErrNotValidated)

	require.NoError(t, set.Validate(ctx1))
	_, err = set.Handle(ctx1)
	assert.NoError(t, err)
}

func TestInFlightCountResize(t *testing.T) {
	device := newFakeDevice()
	surface := NewSurfaceID()

	layout := NewDescriptorSetLayout(testBindings())
	pool := NewDescriptorPool(6, testBindings())
	set := NewDescriptorSet(layout, pool)
	require.NoError(t, set.SetResource(0, newFakeResource("ubo")))

	for i := uint32(0); i < 2; i++ {
		require.NoError(t, set.Validate(testContext(device, surface, i, 2)))
	}

	// surface recreation grows the in-flight count from 2 to 3
	for i := uint32(0); i < 3; i++ {
		ctx := testContext(device, surface, i, 3)
		if i == 0 {
			// the first validate after the resize drops the old handles
			require.NoError(t, set.Validate(ctx))
			assert.Equal(t, 2, device.setsFreed)
			continue
		}
		_, err := set.Handle(ctx)
		require.ErrorIs(t, err, core.ErrNotValidated)
		require.NoError(t, set.Validate(ctx))
		_, err = set.Handle(ctx)
		require.NoError(t, err)
	}
}

func TestDescriptorSetNodeInvalidation(t *testing.T) {
	device := newFakeDevice()
	ctx := testContext(device, NewSurfaceID(), 0, 2)

	layout := NewDescriptorSetLayout(testBindings())
	pool := NewDescriptorPool(3, testBindings())
	set := NewDescriptorSet(layout, pool)

	node := &fakeNode{}
	set.AddNode(node)

	ubo := newFakeResource("camera")
	require.NoError(t, set.SetResource(0, ubo)) // invalidates
	require.NoError(t, set.Validate(ctx))
	before := node.count()

	ubo.Set(1)
	assert.Equal(t, before+1, node.count())

	set.RemoveNode(node)
	ubo.Set(2)
	assert.Equal(t, before+1, node.count())
}

func TestDescriptorSetDestroyUnregisters(t *testing.T) {
	device := newFakeDevice()
	ctx := testContext(device, NewSurfaceID(), 0, 2)

	layout := NewDescriptorSetLayout(testBindings())
	pool := NewDescriptorPool(3, testBindings())
	set := NewDescriptorSet(layout, pool)

	ubo := newFakeResource("camera")
	sbo := newFakeResource("instances")
	require.NoError(t, set.SetResource(0, ubo))
	require.NoError(t, set.SetResource(1, sbo))
	require.NoError(t, set.Validate(ctx))

	set.Destroy()
	assert.Equal(t, 0, ubo.observerCount())
	assert.Equal(t, 0, sbo.observerCount())
	assert.Equal(t, device.setsAllocated, device.setsFreed)
}

func TestEndToEndScenario(t *testing.T) {
	device := newFakeDevice()
	surface := NewSurfaceID()

	// schema with 2 slots (uniform buffer, storage buffer), pool sized for 3
	layout := NewDescriptorSetLayout(testBindings())
	pool := NewDescriptorPool(3, testBindings())
	set := NewDescriptorSet(layout, pool)

	camera := newFakeResource("camera")
	instances := newFakeResource("instances")
	require.NoError(t, set.SetDescriptor(0, metadata.DescriptorKindUniformBuffer, camera))
	require.NoError(t, set.SetDescriptor(1, metadata.DescriptorKindStorageBuffer, instances))

	ctx0 := testContext(device, surface, 0, 2)
	ctx1 := testContext(device, surface, 1, 2)
	require.NoError(t, set.Validate(ctx0))
	require.NoError(t, set.Validate(ctx1))

	for i, ctx := range []*RenderContext{ctx0, ctx1} {
		handle, err := set.Handle(ctx)
		require.NoError(t, err, fmt.Sprintf("index %d", i))
		writes := device.lastWrites(handle)
		require.Len(t, writes, 2)
		assert.Equal(t, metadata.DescriptorKindUniformBuffer, writes[0].Kind)
		assert.Equal(t, metadata.DescriptorKindStorageBuffer, writes[1].Kind)
	}

	// mutate the storage buffer resource
	instances.Set(42)

	_, err := set.Handle(ctx0)
	require.ErrorIs(t, err, core.ErrNotValidated)
	_, err = set.Handle(ctx1)
	require.ErrorIs(t, err, core.ErrNotValidated)

	// validate index 0 only
	require.NoError(t, set.Validate(ctx0))
	handle0, err := set.Handle(ctx0)
	require.NoError(t, err)
	writes := device.lastWrites(handle0)
	assert.Equal(t, "instances@v42", writes[1].Values[0].Buffer.Buffer)

	// index 1 remains invalid until separately validated
	_, err = set.Handle(ctx1)
	assert.ErrorIs(t, err, core.ErrNotValidated)
}
