package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Width  uint32
	Height uint32
}

func ImageCreate(context *VulkanContext, imageType vk.ImageType, width, height uint32, format vk.Format, tiling vk.ImageTiling, usage vk.ImageUsageFlags, memoryFlags vk.MemoryPropertyFlags, createView bool, viewAspectFlags vk.ImageAspectFlags) (*VulkanImage, error) {
	image := &VulkanImage{
		Width:  width,
		Height: height,
	}

	imageCreateInfo := vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     imageType,
		Format:        format,
		Extent:        vk.Extent3D{Width: width, Height: height, Depth: 1},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        tiling,
		Usage:         usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}

	var handle vk.Image
	if err := lockPool.SafeCall(ImageManagement, func() error {
		if res := vk.CreateImage(context.Device.LogicalDevice, &imageCreateInfo, context.Allocator, &handle); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("vkCreateImage failed with %s", VulkanResultString(res))
		}
		return nil
	}); err != nil {
		return nil, err
	}
	image.Handle = handle

	var memoryRequirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(context.Device.LogicalDevice, image.Handle, &memoryRequirements)
	memoryRequirements.Deref()

	memoryType := context.FindMemoryIndex(memoryRequirements.MemoryTypeBits, uint32(memoryFlags))
	if memoryType == -1 {
		return nil, fmt.Errorf("required memory type not found, image not valid")
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memoryRequirements.Size,
		MemoryTypeIndex: uint32(memoryType),
	}
	var memory vk.DeviceMemory
	if err := lockPool.SafeCall(ImageManagement, func() error {
		if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocateInfo, context.Allocator, &memory); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("vkAllocateMemory for image failed with %s", VulkanResultString(res))
		}
		if res := vk.BindImageMemory(context.Device.LogicalDevice, image.Handle, memory, 0); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("vkBindImageMemory failed with %s", VulkanResultString(res))
		}
		return nil
	}); err != nil {
		return nil, err
	}
	image.Memory = memory

	if createView {
		if err := image.ImageViewCreate(context, format, viewAspectFlags); err != nil {
			return nil, err
		}
	}

	return image, nil
}

func (image *VulkanImage) ImageViewCreate(context *VulkanContext, format vk.Format, aspectFlags vk.ImageAspectFlags) error {
	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image.Handle,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspectFlags,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var view vk.ImageView
	if err := lockPool.SafeCall(ImageManagement, func() error {
		if res := vk.CreateImageView(context.Device.LogicalDevice, &viewCreateInfo, context.Allocator, &view); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("vkCreateImageView failed with %s", VulkanResultString(res))
		}
		return nil
	}); err != nil {
		return err
	}
	image.View = view
	return nil
}

func (image *VulkanImage) ImageDestroy(context *VulkanContext) {
	if image == nil {
		return
	}
	lockPool.SafeCall(ImageManagement, func() error {
		if image.View != vk.NullImageView {
			vk.DestroyImageView(context.Device.LogicalDevice, image.View, context.Allocator)
			image.View = vk.NullImageView
		}
		if image.Memory != vk.NullDeviceMemory {
			vk.FreeMemory(context.Device.LogicalDevice, image.Memory, context.Allocator)
			image.Memory = vk.NullDeviceMemory
		}
		if image.Handle != vk.NullImage {
			vk.DestroyImage(context.Device.LogicalDevice, image.Handle, context.Allocator)
			image.Handle = vk.NullImage
		}
		return nil
	})
}
