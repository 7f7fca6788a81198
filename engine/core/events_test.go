package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventFireReachesListener(t *testing.T) {
	require.True(t, EventInitialize())
	defer EventShutdown()

	var got *AssetEvent
	EventRegister(EVENT_CODE_SHADER_RELOADED, func(ctx EventContext) {
		got, _ = ctx.Data.(*AssetEvent)
	})

	fired := EventFire(EventContext{
		Type: EVENT_CODE_SHADER_RELOADED,
		Data: &AssetEvent{Path: "shaders/gpucull.comp.spv"},
	})
	assert.True(t, fired)
	require.NotNil(t, got)
	assert.Equal(t, "shaders/gpucull.comp.spv", got.Path)
}

func TestEventFireWithoutListeners(t *testing.T) {
	require.True(t, EventInitialize())
	defer EventShutdown()

	assert.False(t, EventFire(EventContext{Type: EVENT_CODE_MOUSE_WHEEL}))
}

func TestEventMultipleListeners(t *testing.T) {
	require.True(t, EventInitialize())
	defer EventShutdown()

	calls := 0
	EventRegister(EVENT_CODE_RESIZED, func(EventContext) { calls++ })
	EventRegister(EVENT_CODE_RESIZED, func(EventContext) { calls++ })

	EventFire(EventContext{Type: EVENT_CODE_RESIZED, Data: &SystemEvent{WindowWidth: 800, WindowHeight: 600}})
	assert.Equal(t, 2, calls)
}

func TestEventFireDeferredWaitsForPump(t *testing.T) {
	require.True(t, EventInitialize())
	defer EventShutdown()

	var paths []string
	EventRegister(EVENT_CODE_SHADER_RELOADED, func(ctx EventContext) {
		ae, _ := ctx.Data.(*AssetEvent)
		paths = append(paths, ae.Path)
	})

	// Queued off the frame loop, the way the asset watcher fires them.
	done := make(chan struct{})
	go func() {
		EventFireDeferred(EventContext{
			Type: EVENT_CODE_SHADER_RELOADED,
			Data: &AssetEvent{Path: "shaders/gpucull.vert.spv"},
		})
		EventFireDeferred(EventContext{
			Type: EVENT_CODE_SHADER_RELOADED,
			Data: &AssetEvent{Path: "shaders/gpucull.comp.spv"},
		})
		close(done)
	}()
	<-done

	// Nothing is delivered until the loop pumps.
	assert.Empty(t, paths)

	EventPump()
	assert.Equal(t, []string{"shaders/gpucull.vert.spv", "shaders/gpucull.comp.spv"}, paths)

	// The queue is drained; a second pump delivers nothing.
	EventPump()
	assert.Len(t, paths, 2)
}

func TestMetricsValidationCounter(t *testing.T) {
	require.NoError(t, MetricsInitialize())

	MetricsTakeValidations()
	MetricsCountValidation()
	MetricsCountValidation()
	MetricsCountValidation()

	assert.Equal(t, uint64(3), MetricsTakeValidations())
	// Take resets the counter.
	assert.Equal(t, uint64(0), MetricsTakeValidations())
}
