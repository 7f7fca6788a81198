package vulkan

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVulkanSafeStringAppendsTerminator(t *testing.T) {
	s := VulkanSafeString("VK_KHR_surface")
	assert.Equal(t, byte(0), s[len(s)-1])
	assert.Equal(t, "VK_KHR_surface", s[:len(s)-1])
}

func TestVulkanSafeStringKeepsExistingTerminator(t *testing.T) {
	s := VulkanSafeString("already\x00")
	assert.Equal(t, "already\x00", s)
}

func TestVulkanTrimString(t *testing.T) {
	arr := make([]byte, 16)
	copy(arr, "VK_LAYER")
	assert.Equal(t, "VK_LAYER", VulkanTrimString(arr))
}

func TestVulkanTrimStringNoTerminator(t *testing.T) {
	arr := []byte("abcd")
	assert.Equal(t, "abcd", VulkanTrimString(arr))
}

func TestRepackSpirv(t *testing.T) {
	code := make([]byte, 8)
	binary.LittleEndian.PutUint32(code, 0x07230203)
	binary.LittleEndian.PutUint32(code[4:], 0x00010000)

	words, err := repackSpirv(code)
	require.NoError(t, err)
	require.Len(t, words, 2)
	assert.Equal(t, uint32(0x07230203), words[0])
	assert.Equal(t, uint32(0x00010000), words[1])
}

func TestRepackSpirvRejectsBadSizes(t *testing.T) {
	_, err := repackSpirv(nil)
	assert.Error(t, err)
	_, err = repackSpirv([]byte{1, 2, 3})
	assert.Error(t, err)
}
