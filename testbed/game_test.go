package testbed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/renderer/binding"
)

// capDevice stubs the capability query; the embedded interface covers the
// factory methods the helper never touches.
type capDevice struct {
	binding.Device
	caps map[binding.Capability]bool
}

func (d *capDevice) Supports(c binding.Capability) bool { return d.caps[c] }

func TestRequireCapability(t *testing.T) {
	device := &capDevice{caps: map[binding.Capability]bool{
		binding.CapabilityDrawIndirectFirstInstance: true,
	}}

	require.NoError(t, requireCapability(device, binding.CapabilityDrawIndirectFirstInstance))

	err := requireCapability(device, binding.CapabilityMultiDrawIndirect)
	assert.ErrorIs(t, err, core.ErrCapabilityMissing)
	assert.Contains(t, err.Error(), "multi-draw-indirect")
}
