package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
)

// VulkanBuffer lives in host visible, coherent memory. GUI geometry is
// rewritten every frame so there is no staging copy.
type VulkanBuffer struct {
	device *VulkanDevice
	desc   metadata.BufferDesc

	Handle vk.Buffer
	Memory vk.DeviceMemory
}

func newVulkanBuffer(device *VulkanDevice, desc metadata.BufferDesc, usage vk.BufferUsageFlags) (*VulkanBuffer, error) {
	if desc.Size == 0 {
		return nil, core.Errorf("buffer_create", core.ErrUnknown, "buffer `%s` has zero size", desc.Name)
	}
	b := &VulkanBuffer{device: device, desc: desc}

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(desc.Size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive, // NOTE: Only used in one queue.
	}
	var handle vk.Buffer
	if res := vk.CreateBuffer(device.LogicalDevice, &bufferInfo, device.Allocator, &handle); res != vk.Success {
		return nil, vkError("vkCreateBuffer", res)
	}
	b.Handle = handle

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device.LogicalDevice, b.Handle, &requirements)
	requirements.Deref()

	flags := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	memoryType := device.FindMemoryIndex(requirements.MemoryTypeBits, flags)
	if memoryType == -1 {
		b.destroy()
		return nil, core.Errorf("buffer_create", core.ErrUnknown, "no host visible memory type for buffer `%s`", desc.Name)
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(memoryType),
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(device.LogicalDevice, &allocInfo, device.Allocator, &memory); res != vk.Success {
		b.destroy()
		return nil, vkError("vkAllocateMemory", res)
	}
	b.Memory = memory

	if res := vk.BindBufferMemory(device.LogicalDevice, b.Handle, b.Memory, 0); res != vk.Success {
		b.destroy()
		return nil, vkError("vkBindBufferMemory", res)
	}
	return b, nil
}

func bufferUsage(kind metadata.BufferKind) vk.BufferUsageFlags {
	switch kind {
	case metadata.BufferKindIndex:
		return vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit)
	case metadata.BufferKindUniform:
		return vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)
	}
	return vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)
}

// LoadData copies data into the buffer at offset.
func (b *VulkanBuffer) LoadData(offset uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if offset+uint64(len(data)) > b.desc.Size {
		return core.Errorf("buffer_load_data", core.ErrUnknown, "write of %d bytes at %d overflows buffer `%s` of %d bytes", len(data), offset, b.desc.Name, b.desc.Size)
	}
	var mapped unsafe.Pointer
	if res := vk.MapMemory(b.device.LogicalDevice, b.Memory, vk.DeviceSize(offset), vk.DeviceSize(len(data)), 0, &mapped); res != vk.Success {
		return vkError("vkMapMemory", res)
	}
	vk.Memcopy(mapped, data)
	vk.UnmapMemory(b.device.LogicalDevice, b.Memory)
	return nil
}

func (b *VulkanBuffer) Desc() metadata.BufferDesc {
	return b.desc
}

func (b *VulkanBuffer) Release() error {
	if err := b.device.WaitIdle(); err != nil {
		return err
	}
	b.destroy()
	return nil
}

func (b *VulkanBuffer) destroy() {
	if b.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(b.device.LogicalDevice, b.Memory, b.device.Allocator)
		b.Memory = vk.NullDeviceMemory
	}
	if b.Handle != vk.NullBuffer {
		vk.DestroyBuffer(b.device.LogicalDevice, b.Handle, b.device.Allocator)
		b.Handle = vk.NullBuffer
	}
}
