package vulkan

import (
	"fmt"
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/renderer/binding"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

/**
 * @brief A sampled 2D texture exposed as a bindable resource.
 *
 * Pixel data lives in a CPU shadow until Validate uploads it through a staging
 * buffer. Replacing the pixels invalidates the upload and every registered
 * observer, so dependent descriptor sets re-resolve on their next validation.
 */
type VulkanTexture struct {
	context *VulkanContext
	width   uint32
	height  uint32

	mu        sync.Mutex
	pixels    []byte
	image     *VulkanImage
	sampler   vk.Sampler
	uploaded  bool
	observers []binding.Invalidatable
}

// NewTexture wraps RGBA pixel data, 4 bytes per texel.
func NewTexture(context *VulkanContext, width, height uint32, pixels []byte) (*VulkanTexture, error) {
	if uint64(len(pixels)) != uint64(width)*uint64(height)*4 {
		return nil, fmt.Errorf("pixel data is %d bytes, want %d for %dx%d RGBA", len(pixels), width*height*4, width, height)
	}
	shadow := make([]byte, len(pixels))
	copy(shadow, pixels)
	return &VulkanTexture{
		context: context,
		width:   width,
		height:  height,
		pixels:  shadow,
	}, nil
}

// SetPixels replaces the texture contents. Dimensions must match.
func (t *VulkanTexture) SetPixels(pixels []byte) error {
	t.mu.Lock()
	if len(pixels) != len(t.pixels) {
		t.mu.Unlock()
		return fmt.Errorf("pixel data is %d bytes, want %d", len(pixels), len(t.pixels))
	}
	copy(t.pixels, pixels)
	t.uploaded = false
	observers := make([]binding.Invalidatable, len(t.observers))
	copy(observers, t.observers)
	t.mu.Unlock()

	for _, observer := range observers {
		observer.Invalidate()
	}
	return nil
}

func (t *VulkanTexture) RegisterObserver(observer binding.Invalidatable) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, observer)
}

func (t *VulkanTexture) UnregisterObserver(observer binding.Invalidatable) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, existing := range t.observers {
		if existing == observer {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Validate creates the native image and sampler on first use and re-uploads
// the pixel shadow whenever it changed.
func (t *VulkanTexture) Validate(ctx *binding.RenderContext) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.image == nil {
		image, err := ImageCreate(
			t.context,
			vk.ImageType2d,
			t.width,
			t.height,
			vk.FormatR8g8b8a8Unorm,
			vk.ImageTilingOptimal,
			vk.ImageUsageFlags(vk.ImageUsageSampledBit)|vk.ImageUsageFlags(vk.ImageUsageTransferDstBit),
			vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
			true,
			vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			return err
		}
		t.image = image
	}
	if t.sampler == vk.NullSampler {
		if err := t.createSampler(ctx.Device); err != nil {
			return err
		}
	}
	if t.uploaded {
		return nil
	}
	if err := t.upload(); err != nil {
		return err
	}
	t.uploaded = true
	core.MetricsCountValidation()
	return nil
}

func (t *VulkanTexture) DescriptorValues(ctx *binding.RenderContext) ([]binding.DescriptorValue, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.image == nil || t.sampler == vk.NullSampler {
		return nil, fmt.Errorf("texture has no native state, validate first")
	}
	return []binding.DescriptorValue{
		{
			Image: &binding.ImageInfo{
				Sampler:   t.sampler,
				ImageView: t.image.View,
				Layout:    metadata.ImageLayoutShaderReadOnly,
			},
		},
	}, nil
}

func (t *VulkanTexture) createSampler(device binding.Device) error {
	samplerCreateInfo := vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MagFilter:    vk.FilterLinear,
		MinFilter:    vk.FilterLinear,
		MipmapMode:   vk.SamplerMipmapModeLinear,
		AddressModeU: vk.SamplerAddressModeRepeat,
		AddressModeV: vk.SamplerAddressModeRepeat,
		AddressModeW: vk.SamplerAddressModeRepeat,
		MaxLod:       1,
	}
	if device.Supports(binding.CapabilitySamplerAnisotropy) {
		samplerCreateInfo.AnisotropyEnable = vk.True
		samplerCreateInfo.MaxAnisotropy = 16
	}

	return lockPool.SafeCall(SamplerManagement, func() error {
		var sampler vk.Sampler
		if res := vk.CreateSampler(t.context.Device.LogicalDevice, &samplerCreateInfo, t.context.Allocator, &sampler); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("vkCreateSampler failed with %s", VulkanResultString(res))
		}
		t.sampler = sampler
		return nil
	})
}

func (t *VulkanTexture) upload() error {
	size := vk.DeviceSize(len(t.pixels))

	// Staging buffer
	stagingCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		SharingMode: vk.SharingModeExclusive,
	}
	var staging vk.Buffer
	var stagingMemory vk.DeviceMemory
	if err := lockPool.SafeCall(BufferManagement, func() error {
		if res := vk.CreateBuffer(t.context.Device.LogicalDevice, &stagingCreateInfo, t.context.Allocator, &staging); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("vkCreateBuffer for staging failed with %s", VulkanResultString(res))
		}
		var memoryRequirements vk.MemoryRequirements
		vk.GetBufferMemoryRequirements(t.context.Device.LogicalDevice, staging, &memoryRequirements)
		memoryRequirements.Deref()

		memoryType := t.context.FindMemoryIndex(
			memoryRequirements.MemoryTypeBits,
			uint32(vk.MemoryPropertyHostVisibleBit)|uint32(vk.MemoryPropertyHostCoherentBit))
		if memoryType == -1 {
			return fmt.Errorf("required memory type not found for staging buffer")
		}
		allocateInfo := vk.MemoryAllocateInfo{
			SType:           vk.StructureTypeMemoryAllocateInfo,
			AllocationSize:  memoryRequirements.Size,
			MemoryTypeIndex: uint32(memoryType),
		}
		if res := vk.AllocateMemory(t.context.Device.LogicalDevice, &allocateInfo, t.context.Allocator, &stagingMemory); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("vkAllocateMemory for staging failed with %s", VulkanResultString(res))
		}
		if res := vk.BindBufferMemory(t.context.Device.LogicalDevice, staging, stagingMemory, 0); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("vkBindBufferMemory for staging failed with %s", VulkanResultString(res))
		}

		var pData unsafe.Pointer
		if res := vk.MapMemory(t.context.Device.LogicalDevice, stagingMemory, 0, size, 0, &pData); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("vkMapMemory for staging failed with %s", VulkanResultString(res))
		}
		vk.Memcopy(pData, t.pixels)
		vk.UnmapMemory(t.context.Device.LogicalDevice, stagingMemory)
		return nil
	}); err != nil {
		return err
	}
	defer lockPool.SafeCall(BufferManagement, func() error {
		vk.FreeMemory(t.context.Device.LogicalDevice, stagingMemory, t.context.Allocator)
		vk.DestroyBuffer(t.context.Device.LogicalDevice, staging, t.context.Allocator)
		return nil
	})

	// Copy through a single-use command buffer on the graphics queue.
	commandBuffer, err := AllocateAndBeginSingleUse(t.context, t.context.Device.GraphicsCommandPool)
	if err != nil {
		return err
	}

	subresourceRange := vk.ImageSubresourceRange{
		AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
		LevelCount: 1,
		LayerCount: 1,
	}

	toTransfer := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           vk.ImageLayoutUndefined,
		NewLayout:           vk.ImageLayoutTransferDstOptimal,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               t.image.Handle,
		SubresourceRange:    subresourceRange,
		DstAccessMask:       vk.AccessFlags(vk.AccessTransferWriteBit),
	}
	vk.CmdPipelineBarrier(commandBuffer.Handle,
		vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{toTransfer})

	region := vk.BufferImageCopy{
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
		},
		ImageExtent: vk.Extent3D{Width: t.width, Height: t.height, Depth: 1},
	}
	vk.CmdCopyBufferToImage(commandBuffer.Handle, staging, t.image.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})

	toShaderRead := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           vk.ImageLayoutTransferDstOptimal,
		NewLayout:           vk.ImageLayoutShaderReadOnlyOptimal,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               t.image.Handle,
		SubresourceRange:    subresourceRange,
		SrcAccessMask:       vk.AccessFlags(vk.AccessTransferWriteBit),
		DstAccessMask:       vk.AccessFlags(vk.AccessShaderReadBit),
	}
	vk.CmdPipelineBarrier(commandBuffer.Handle,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{toShaderRead})

	return commandBuffer.EndSingleUse(
		t.context,
		t.context.Device.GraphicsCommandPool,
		t.context.Device.GraphicsQueue,
		uint32(t.context.Device.GraphicsQueueIndex))
}

func (t *VulkanTexture) Destroy() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sampler != vk.NullSampler {
		lockPool.SafeCall(SamplerManagement, func() error {
			vk.DestroySampler(t.context.Device.LogicalDevice, t.sampler, t.context.Allocator)
			return nil
		})
		t.sampler = vk.NullSampler
	}
	if t.image != nil {
		t.image.ImageDestroy(t.context)
		t.image = nil
	}
	t.uploaded = false
}
