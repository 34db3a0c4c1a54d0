package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gfx/engine/core"
)

/**
 * @brief Represents a single shader stage.
 */
type VulkanShaderStage struct {
	/** @brief The internal shader module Handle. */
	Handle vk.ShaderModule
	/** @brief The pipeline shader stage creation info. */
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

// NewShaderStage wraps SPIR-V words into a module for one pipeline stage.
func NewShaderStage(device *VulkanDevice, name string, code []uint32, stage vk.ShaderStageFlagBits) (*VulkanShaderStage, error) {
	if len(code) == 0 {
		return nil, core.Errorf("shader_module_create", core.ErrUnknown, "shader `%s` has no SPIR-V code", name)
	}
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code) * 4),
		PCode:    code,
	}

	var module vk.ShaderModule
	if res := vk.CreateShaderModule(device.LogicalDevice, &createInfo, device.Allocator, &module); res != vk.Success {
		return nil, vkError("vkCreateShaderModule", res)
	}

	return &VulkanShaderStage{
		Handle: module,
		ShaderStageCreateInfo: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  stage,
			Module: module,
			PName:  safeString("main"),
		},
	}, nil
}

func (s *VulkanShaderStage) Destroy(device *VulkanDevice) {
	if s.Handle != vk.NullShaderModule {
		vk.DestroyShaderModule(device.LogicalDevice, s.Handle, device.Allocator)
		s.Handle = vk.NullShaderModule
	}
}
