package vulkan

import (
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/renderer"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
)

type VulkanDevice struct {
	Instance       vk.Instance
	Allocator      *vk.AllocationCallbacks
	PhysicalDevice vk.PhysicalDevice
	LogicalDevice  vk.Device

	// One queue family does graphics and, checked per surface, presentation.
	GraphicsQueueIndex  uint32
	GraphicsQueue       vk.Queue
	GraphicsCommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties

	lockPool *VulkanLockPool
	textures *VulkanTextureDescriptors

	ids uint64

	renderpassMu sync.Mutex
	renderpasses map[renderpassKey]*VulkanRenderpass
}

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

type VulkanPhysicalDeviceRequirements struct {
	Graphics             bool
	DeviceExtensionNames []string
	DiscreteGPU          bool
}

func DeviceCreate(instance vk.Instance, allocator *vk.AllocationCallbacks) (*VulkanDevice, error) {
	device := &VulkanDevice{
		Instance:     instance,
		Allocator:    allocator,
		lockPool:     NewVulkanLockPool(),
		renderpasses: map[renderpassKey]*VulkanRenderpass{},
	}
	if err := device.selectPhysicalDevice(); err != nil {
		return nil, err
	}

	core.LogInfo("Creating logical device...")

	var queuePriority float32 = 1.0
	queueCreateInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: device.GraphicsQueueIndex,
		QueueCount:       1,
		PQueuePriorities: []float32{queuePriority},
	}}

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	if device.hasExtension("VK_KHR_portability_subset") {
		core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
		extensionNames = append(extensionNames, "VK_KHR_portability_subset")
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: safeStrings(extensionNames),
	}

	var logical vk.Device
	if res := vk.CreateDevice(device.PhysicalDevice, &deviceCreateInfo, allocator, &logical); res != vk.Success {
		return nil, vkError("vkCreateDevice", res)
	}
	device.LogicalDevice = logical
	core.LogInfo("Logical device created.")

	var queue vk.Queue
	vk.GetDeviceQueue(device.LogicalDevice, device.GraphicsQueueIndex, 0, &queue)
	device.GraphicsQueue = queue

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: device.GraphicsQueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(device.LogicalDevice, &poolCreateInfo, allocator, &pool); res != vk.Success {
		device.destroy()
		return nil, vkError("vkCreateCommandPool", res)
	}
	device.GraphicsCommandPool = pool
	core.LogInfo("Graphics command pool created.")

	textures, err := newTextureDescriptors(device)
	if err != nil {
		device.destroy()
		return nil, err
	}
	device.textures = textures

	return device, nil
}

func (d *VulkanDevice) selectPhysicalDevice() error {
	var physicalDeviceCount uint32
	if res := vk.EnumeratePhysicalDevices(d.Instance, &physicalDeviceCount, nil); res != vk.Success {
		return vkError("vkEnumeratePhysicalDevices", res)
	}
	if physicalDeviceCount == 0 {
		return core.Errorf("select_physical_device", core.ErrGraphicsInitFailed, "no devices which support Vulkan were found")
	}
	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(d.Instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		return vkError("vkEnumeratePhysicalDevices", res)
	}

	requirements := VulkanPhysicalDeviceRequirements{
		Graphics:             true,
		DiscreteGPU:          runtime.GOOS != "darwin",
		DeviceExtensionNames: []string{vk.KhrSwapchainExtensionName},
	}

	// A discrete GPU wins; anything else meeting the requirements is kept
	// as a fallback.
	selected := -1
	for pass := 0; pass < 2 && selected < 0; pass++ {
		for i := range physicalDevices {
			var properties vk.PhysicalDeviceProperties
			vk.GetPhysicalDeviceProperties(physicalDevices[i], &properties)
			properties.Deref()

			queueIndex, ok := physicalDeviceMeetsRequirements(physicalDevices[i], &properties, &requirements)
			if !ok {
				continue
			}

			d.PhysicalDevice = physicalDevices[i]
			d.GraphicsQueueIndex = queueIndex
			d.Properties = properties
			vk.GetPhysicalDeviceFeatures(physicalDevices[i], &d.Features)
			d.Features.Deref()
			vk.GetPhysicalDeviceMemoryProperties(physicalDevices[i], &d.Memory)
			d.Memory.Deref()
			selected = i
			break
		}
		requirements.DiscreteGPU = false
	}

	if selected < 0 {
		return core.Errorf("select_physical_device", core.ErrGraphicsInitFailed, "no physical devices were found which meet the requirements")
	}

	core.LogInfo("Selected device: '%s'.", cString(d.Properties.DeviceName[:]))
	switch d.Properties.DeviceType {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete.")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual.")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU.")
	default:
		core.LogInfo("GPU type is Unknown.")
	}
	core.LogInfo(
		"GPU Driver version: %d.%d.%d",
		vk.Version(d.Properties.DriverVersion).Major(),
		vk.Version(d.Properties.DriverVersion).Minor(),
		vk.Version(d.Properties.DriverVersion).Patch(),
	)
	core.LogInfo(
		"Vulkan API version: %d.%d.%d",
		vk.Version(d.Properties.ApiVersion).Major(),
		vk.Version(d.Properties.ApiVersion).Minor(),
		vk.Version(d.Properties.ApiVersion).Patch(),
	)
	for j := 0; j < int(d.Memory.MemoryHeapCount); j++ {
		d.Memory.MemoryHeaps[j].Deref()
		memorySizeGib := float64(d.Memory.MemoryHeaps[j].Size) / 1024.0 / 1024.0 / 1024.0
		if d.Memory.MemoryHeaps[j].Flags&vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit) != 0 {
			core.LogInfo("Local GPU memory: %.2f GiB", memorySizeGib)
		} else {
			core.LogInfo("Shared System memory: %.2f GiB", memorySizeGib)
		}
	}
	core.LogInfo("Physical device selected.")
	return nil
}

// physicalDeviceMeetsRequirements returns the graphics queue family of a
// usable device.
func physicalDeviceMeetsRequirements(device vk.PhysicalDevice, properties *vk.PhysicalDeviceProperties, requirements *VulkanPhysicalDeviceRequirements) (uint32, bool) {
	name := cString(properties.DeviceName[:])
	if requirements.DiscreteGPU && properties.DeviceType != vk.PhysicalDeviceTypeDiscreteGpu {
		core.LogDebug("Device '%s' is not a discrete GPU, and one is required. Skipping.", name)
		return 0, false
	}

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	graphicsIndex := -1
	for i := range queueFamilies {
		queueFamilies[i].Deref()
		if queueFamilies[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			graphicsIndex = i
			break
		}
	}
	if requirements.Graphics && graphicsIndex < 0 {
		core.LogDebug("Device '%s' has no graphics queue. Skipping.", name)
		return 0, false
	}

	available := deviceExtensions(device)
	for _, required := range requirements.DeviceExtensionNames {
		if _, ok := available[strings.TrimRight(required, "\x00")]; !ok {
			core.LogInfo("Required extension not found: '%s', skipping device.", required)
			return 0, false
		}
	}
	core.LogDebug("Device '%s' meets requirements, graphics family index %d", name, graphicsIndex)
	return uint32(graphicsIndex), true
}

func deviceExtensions(device vk.PhysicalDevice) map[string]struct{} {
	out := map[string]struct{}{}
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, nil); res != vk.Success || count == 0 {
		return out
	}
	props := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, props); res != vk.Success {
		return out
	}
	for i := range props {
		props[i].Deref()
		out[cString(props[i].ExtensionName[:])] = struct{}{}
	}
	return out
}

func (d *VulkanDevice) hasExtension(name string) bool {
	_, ok := deviceExtensions(d.PhysicalDevice)[name]
	return ok
}

// QuerySwapchainSupport reads what surface accepts on the selected device and
// whether the graphics family can present to it.
func (d *VulkanDevice) QuerySwapchainSupport(surface vk.Surface) (*VulkanSwapchainSupportInfo, error) {
	var supportsPresent vk.Bool32
	if res := vk.GetPhysicalDeviceSurfaceSupport(d.PhysicalDevice, d.GraphicsQueueIndex, surface, &supportsPresent); res != vk.Success {
		return nil, vkError("vkGetPhysicalDeviceSurfaceSupport", res)
	}
	if supportsPresent != vk.True {
		return nil, core.Errorf("query_swapchain_support", core.ErrSurfaceCreationFailed, "queue family %d cannot present to this surface", d.GraphicsQueueIndex)
	}

	info := &VulkanSwapchainSupportInfo{}
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(d.PhysicalDevice, surface, &info.Capabilities); res != vk.Success {
		return nil, vkError("vkGetPhysicalDeviceSurfaceCapabilities", res)
	}
	info.Capabilities.Deref()
	info.Capabilities.CurrentExtent.Deref()
	info.Capabilities.MinImageExtent.Deref()
	info.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(d.PhysicalDevice, surface, &formatCount, nil); res != vk.Success {
		return nil, vkError("vkGetPhysicalDeviceSurfaceFormats", res)
	}
	if formatCount != 0 {
		info.Formats = make([]vk.SurfaceFormat, formatCount)
		if res := vk.GetPhysicalDeviceSurfaceFormats(d.PhysicalDevice, surface, &formatCount, info.Formats); res != vk.Success {
			return nil, vkError("vkGetPhysicalDeviceSurfaceFormats", res)
		}
		for i := range info.Formats {
			info.Formats[i].Deref()
		}
	}

	var presentModeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(d.PhysicalDevice, surface, &presentModeCount, nil); res != vk.Success {
		return nil, vkError("vkGetPhysicalDeviceSurfacePresentModes", res)
	}
	if presentModeCount != 0 {
		info.PresentModes = make([]vk.PresentMode, presentModeCount)
		if res := vk.GetPhysicalDeviceSurfacePresentModes(d.PhysicalDevice, surface, &presentModeCount, info.PresentModes); res != vk.Success {
			return nil, vkError("vkGetPhysicalDeviceSurfacePresentModes", res)
		}
	}

	if len(info.Formats) == 0 || len(info.PresentModes) == 0 {
		return nil, core.Errorf("query_swapchain_support", core.ErrSurfaceCreationFailed, "required swapchain support not present")
	}
	return info, nil
}

// DetectDepthFormat returns preferred when the device can use it as a depth
// attachment, otherwise the first supported candidate.
func (d *VulkanDevice) DetectDepthFormat(preferred vk.Format) (vk.Format, bool) {
	candidates := []vk.Format{
		preferred,
		vk.FormatD32Sfloat,
		vk.FormatD24UnormS8Uint,
		vk.FormatD16Unorm,
	}
	flags := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	for _, candidate := range candidates {
		if candidate == vk.FormatUndefined {
			continue
		}
		var properties vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(d.PhysicalDevice, candidate, &properties)
		properties.Deref()
		if properties.OptimalTilingFeatures&flags == flags {
			return candidate, true
		}
	}
	return vk.FormatUndefined, false
}

func (d *VulkanDevice) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) int32 {
	for i := uint32(0); i < d.Memory.MemoryTypeCount; i++ {
		// Check each memory type to see if its bit is set to 1.
		d.Memory.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && (d.Memory.MemoryTypes[i].PropertyFlags&propertyFlags) == propertyFlags {
			return int32(i)
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return -1
}

func (d *VulkanDevice) renderpassFor(color, depth vk.Format) (*VulkanRenderpass, error) {
	d.renderpassMu.Lock()
	defer d.renderpassMu.Unlock()
	key := renderpassKey{color: color, depth: depth}
	if rp, ok := d.renderpasses[key]; ok {
		return rp, nil
	}
	rp, err := RenderpassCreate(d, color, depth)
	if err != nil {
		return nil, err
	}
	d.renderpasses[key] = rp
	return rp, nil
}

func (d *VulkanDevice) nextID() uint64 {
	return atomic.AddUint64(&d.ids, 1)
}

func (d *VulkanDevice) CreateBuffer(desc metadata.BufferDesc) (renderer.Buffer, error) {
	return newVulkanBuffer(d, desc, bufferUsage(desc.Kind))
}

func (d *VulkanDevice) CreateTexture(desc metadata.TextureDesc, pixels []byte) (renderer.TextureView, error) {
	return d.createSampledTexture(desc, pixels)
}

func (d *VulkanDevice) CreatePipeline(desc metadata.PipelineDesc) (renderer.Pipeline, error) {
	return NewGraphicsPipeline(d, desc)
}

func (d *VulkanDevice) WaitIdle() error {
	return d.lockPool.SafeQueueCall(d.GraphicsQueueIndex, func() error {
		return vkError("vkDeviceWaitIdle", vk.DeviceWaitIdle(d.LogicalDevice))
	})
}

func (d *VulkanDevice) Release() error {
	if d.LogicalDevice == nil {
		return nil
	}
	err := d.WaitIdle()
	d.destroy()
	return err
}

func (d *VulkanDevice) destroy() {
	if d.LogicalDevice == nil {
		return
	}
	d.renderpassMu.Lock()
	for key, rp := range d.renderpasses {
		rp.Destroy(d)
		delete(d.renderpasses, key)
	}
	d.renderpassMu.Unlock()

	if d.textures != nil {
		d.textures.Destroy(d)
		d.textures = nil
	}

	core.LogInfo("Destroying command pools...")
	if d.GraphicsCommandPool != vk.NullCommandPool {
		vk.DestroyCommandPool(d.LogicalDevice, d.GraphicsCommandPool, d.Allocator)
		d.GraphicsCommandPool = vk.NullCommandPool
	}
	d.GraphicsQueue = nil

	core.LogInfo("Destroying logical device...")
	vk.DestroyDevice(d.LogicalDevice, d.Allocator)
	d.LogicalDevice = nil

	// Physical devices are not destroyed.
	d.PhysicalDevice = nil
}
