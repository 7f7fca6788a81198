package vulkan

import (
	"fmt"
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/renderer/binding"
)

type vulkanBufferSlot struct {
	buffer vk.Buffer
	memory vk.DeviceMemory
	valid  bool
}

/**
 * @brief A host-visible buffer with one native buffer per in-flight slot.
 *
 * Writes land in a CPU shadow copy and mark every slot dirty; the slot for the
 * frame being recorded is flushed on Validate. Registered observers are told
 * about every mutation so dependent descriptor sets re-resolve their values.
 */
type VulkanBuffer struct {
	context *VulkanContext
	usage   vk.BufferUsageFlags
	size    uint64

	mu        sync.Mutex
	shadow    []byte
	slots     []vulkanBufferSlot
	observers []binding.Invalidatable
}

// NewUniformBuffer returns a buffer usable behind uniform-buffer descriptors.
func NewUniformBuffer(context *VulkanContext, size uint64) *VulkanBuffer {
	return newBuffer(context, size, vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit))
}

// NewStorageBuffer returns a buffer usable behind storage-buffer descriptors.
func NewStorageBuffer(context *VulkanContext, size uint64) *VulkanBuffer {
	return newBuffer(context, size, vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit))
}

// NewIndirectBuffer returns a storage buffer that can also feed indirect draw
// commands.
func NewIndirectBuffer(context *VulkanContext, size uint64) *VulkanBuffer {
	return newBuffer(context, size,
		vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)|vk.BufferUsageFlags(vk.BufferUsageIndirectBufferBit))
}

func newBuffer(context *VulkanContext, size uint64, usage vk.BufferUsageFlags) *VulkanBuffer {
	return &VulkanBuffer{
		context: context,
		usage:   usage,
		size:    size,
		shadow:  make([]byte, size),
	}
}

func (b *VulkanBuffer) Size() uint64 {
	return b.size
}

// SetData replaces the buffer contents starting at offset and invalidates
// every in-flight slot along with all registered observers.
func (b *VulkanBuffer) SetData(offset uint64, data []byte) error {
	b.mu.Lock()
	if offset+uint64(len(data)) > b.size {
		b.mu.Unlock()
		return fmt.Errorf("write of %d bytes at offset %d exceeds buffer size %d", len(data), offset, b.size)
	}
	copy(b.shadow[offset:], data)
	for i := range b.slots {
		b.slots[i].valid = false
	}
	observers := make([]binding.Invalidatable, len(b.observers))
	copy(observers, b.observers)
	b.mu.Unlock()

	// Notify outside the lock. Observers may call back into this buffer.
	for _, observer := range observers {
		observer.Invalidate()
	}
	return nil
}

func (b *VulkanBuffer) RegisterObserver(observer binding.Invalidatable) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = append(b.observers, observer)
}

func (b *VulkanBuffer) UnregisterObserver(observer binding.Invalidatable) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, existing := range b.observers {
		if existing == observer {
			b.observers = append(b.observers[:i], b.observers[i+1:]...)
			return
		}
	}
}

// Validate flushes the shadow copy into the native buffer backing the frame
// slot named by ctx, creating it on first use.
func (b *VulkanBuffer) Validate(ctx *binding.RenderContext) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if uint32(len(b.slots)) < ctx.ImageCount {
		grown := make([]vulkanBufferSlot, ctx.ImageCount)
		copy(grown, b.slots)
		b.slots = grown
	}
	if ctx.ImageIndex >= uint32(len(b.slots)) {
		return fmt.Errorf("frame slot %d out of range, surface keeps %d slots", ctx.ImageIndex, len(b.slots))
	}

	slot := &b.slots[ctx.ImageIndex]
	if slot.buffer == vk.NullBuffer {
		if err := b.createSlot(slot); err != nil {
			return err
		}
	}
	if slot.valid {
		return nil
	}

	var pData unsafe.Pointer
	if err := lockPool.SafeCall(BufferManagement, func() error {
		if res := vk.MapMemory(b.context.Device.LogicalDevice, slot.memory, 0, vk.DeviceSize(b.size), 0, &pData); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("vkMapMemory failed with %s", VulkanResultString(res))
		}
		vk.Memcopy(pData, b.shadow)
		vk.UnmapMemory(b.context.Device.LogicalDevice, slot.memory)
		return nil
	}); err != nil {
		return err
	}

	slot.valid = true
	core.MetricsCountValidation()
	return nil
}

// DescriptorValues reports the native buffer for the frame slot named by ctx.
func (b *VulkanBuffer) DescriptorValues(ctx *binding.RenderContext) ([]binding.DescriptorValue, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ctx.ImageIndex >= uint32(len(b.slots)) || b.slots[ctx.ImageIndex].buffer == vk.NullBuffer {
		return nil, fmt.Errorf("buffer has no native state for frame slot %d, validate first", ctx.ImageIndex)
	}
	return []binding.DescriptorValue{
		{
			Buffer: &binding.BufferInfo{
				Buffer: b.slots[ctx.ImageIndex].buffer,
				Offset: 0,
				Range:  b.size,
			},
		},
	}, nil
}

// Handle returns the native buffer for a frame slot, for uses outside the
// descriptor path such as indirect draw sourcing.
func (b *VulkanBuffer) Handle(imageIndex uint32) (vk.Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if imageIndex >= uint32(len(b.slots)) || b.slots[imageIndex].buffer == vk.NullBuffer {
		return vk.NullBuffer, fmt.Errorf("buffer has no native state for frame slot %d", imageIndex)
	}
	return b.slots[imageIndex].buffer, nil
}

func (b *VulkanBuffer) createSlot(slot *vulkanBufferSlot) error {
	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(b.size),
		Usage:       b.usage,
		SharingMode: vk.SharingModeExclusive,
	}

	return lockPool.SafeCall(BufferManagement, func() error {
		var buffer vk.Buffer
		if res := vk.CreateBuffer(b.context.Device.LogicalDevice, &bufferCreateInfo, b.context.Allocator, &buffer); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("vkCreateBuffer failed with %s", VulkanResultString(res))
		}

		var memoryRequirements vk.MemoryRequirements
		vk.GetBufferMemoryRequirements(b.context.Device.LogicalDevice, buffer, &memoryRequirements)
		memoryRequirements.Deref()

		memoryType := b.context.FindMemoryIndex(
			memoryRequirements.MemoryTypeBits,
			uint32(vk.MemoryPropertyHostVisibleBit)|uint32(vk.MemoryPropertyHostCoherentBit))
		if memoryType == -1 {
			vk.DestroyBuffer(b.context.Device.LogicalDevice, buffer, b.context.Allocator)
			return fmt.Errorf("required memory type not found, buffer not valid")
		}

		allocateInfo := vk.MemoryAllocateInfo{
			SType:           vk.StructureTypeMemoryAllocateInfo,
			AllocationSize:  memoryRequirements.Size,
			MemoryTypeIndex: uint32(memoryType),
		}
		var memory vk.DeviceMemory
		if res := vk.AllocateMemory(b.context.Device.LogicalDevice, &allocateInfo, b.context.Allocator, &memory); !VulkanResultIsSuccess(res) {
			vk.DestroyBuffer(b.context.Device.LogicalDevice, buffer, b.context.Allocator)
			return fmt.Errorf("vkAllocateMemory for buffer failed with %s", VulkanResultString(res))
		}
		if res := vk.BindBufferMemory(b.context.Device.LogicalDevice, buffer, memory, 0); !VulkanResultIsSuccess(res) {
			vk.FreeMemory(b.context.Device.LogicalDevice, memory, b.context.Allocator)
			vk.DestroyBuffer(b.context.Device.LogicalDevice, buffer, b.context.Allocator)
			return fmt.Errorf("vkBindBufferMemory failed with %s", VulkanResultString(res))
		}

		slot.buffer = buffer
		slot.memory = memory
		return nil
	})
}

func (b *VulkanBuffer) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()

	lockPool.SafeCall(BufferManagement, func() error {
		for i := range b.slots {
			if b.slots[i].buffer != vk.NullBuffer {
				vk.DestroyBuffer(b.context.Device.LogicalDevice, b.slots[i].buffer, b.context.Allocator)
				b.slots[i].buffer = vk.NullBuffer
			}
			if b.slots[i].memory != vk.NullDeviceMemory {
				vk.FreeMemory(b.context.Device.LogicalDevice, b.slots[i].memory, b.context.Allocator)
				b.slots[i].memory = vk.NullDeviceMemory
			}
			b.slots[i].valid = false
		}
		return nil
	})
}
