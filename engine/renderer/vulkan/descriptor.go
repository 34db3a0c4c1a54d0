package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gfx/engine/core"
)

// VULKAN_MAX_TEXTURE_SETS bounds the sampled textures alive at once on a device.
const VULKAN_MAX_TEXTURE_SETS uint32 = 256

// VulkanTextureDescriptors owns the single combined image sampler layout
// every pipeline binds at set 0, and the pool texture sets come from.
type VulkanTextureDescriptors struct {
	Layout  vk.DescriptorSetLayout
	Pool    vk.DescriptorPool
	Sampler vk.Sampler
}

func newTextureDescriptors(device *VulkanDevice) (*VulkanTextureDescriptors, error) {
	d := &VulkanTextureDescriptors{}

	binding := vk.DescriptorSetLayoutBinding{
		Binding:         0,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
	}
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: 1,
		PBindings:    []vk.DescriptorSetLayoutBinding{binding},
	}
	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(device.LogicalDevice, &layoutInfo, device.Allocator, &layout); res != vk.Success {
		return nil, vkError("vkCreateDescriptorSetLayout", res)
	}
	d.Layout = layout

	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       VULKAN_MAX_TEXTURE_SETS,
		PoolSizeCount: 1,
		PPoolSizes: []vk.DescriptorPoolSize{{
			Type:            vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: VULKAN_MAX_TEXTURE_SETS,
		}},
	}
	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(device.LogicalDevice, &poolInfo, device.Allocator, &pool); res != vk.Success {
		d.Destroy(device)
		return nil, vkError("vkCreateDescriptorPool", res)
	}
	d.Pool = pool

	samplerInfo := vk.SamplerCreateInfo{
		SType:         vk.StructureTypeSamplerCreateInfo,
		MagFilter:     vk.FilterLinear,
		MinFilter:     vk.FilterLinear,
		MipmapMode:    vk.SamplerMipmapModeLinear,
		AddressModeU:  vk.SamplerAddressModeClampToEdge,
		AddressModeV:  vk.SamplerAddressModeClampToEdge,
		AddressModeW:  vk.SamplerAddressModeClampToEdge,
		MinLod:        -1000,
		MaxLod:        1000,
		MaxAnisotropy: 1.0,
		BorderColor:   vk.BorderColorFloatTransparentBlack,
	}
	var sampler vk.Sampler
	if res := vk.CreateSampler(device.LogicalDevice, &samplerInfo, device.Allocator, &sampler); res != vk.Success {
		d.Destroy(device)
		return nil, vkError("vkCreateSampler", res)
	}
	d.Sampler = sampler
	return d, nil
}

// Allocate returns a set pointing at view through the shared sampler.
func (d *VulkanTextureDescriptors) Allocate(device *VulkanDevice, view vk.ImageView) (vk.DescriptorSet, error) {
	var set vk.DescriptorSet
	err := device.lockPool.SafeCall(DescriptorManagement, func() error {
		allocInfo := vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     d.Pool,
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{d.Layout},
		}
		if res := vk.AllocateDescriptorSets(device.LogicalDevice, &allocInfo, &set); res != vk.Success {
			if res == vk.ErrorOutOfPoolMemory {
				return core.Errorf("vkAllocateDescriptorSets", core.ErrUnknown, "more than %d sampled textures alive", VULKAN_MAX_TEXTURE_SETS)
			}
			return vkError("vkAllocateDescriptorSets", res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      0,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		PImageInfo: []vk.DescriptorImageInfo{{
			Sampler:     d.Sampler,
			ImageView:   view,
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
		}},
	}
	vk.UpdateDescriptorSets(device.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)
	return set, nil
}

func (d *VulkanTextureDescriptors) Free(device *VulkanDevice, set vk.DescriptorSet) {
	_ = device.lockPool.SafeCall(DescriptorManagement, func() error {
		vk.FreeDescriptorSets(device.LogicalDevice, d.Pool, 1, &set)
		return nil
	})
}

func (d *VulkanTextureDescriptors) Destroy(device *VulkanDevice) {
	if d.Sampler != nil {
		vk.DestroySampler(device.LogicalDevice, d.Sampler, device.Allocator)
		d.Sampler = nil
	}
	if d.Pool != nil {
		vk.DestroyDescriptorPool(device.LogicalDevice, d.Pool, device.Allocator)
		d.Pool = nil
	}
	if d.Layout != nil {
		vk.DestroyDescriptorSetLayout(device.LogicalDevice, d.Layout, device.Allocator)
		d.Layout = nil
	}
}
