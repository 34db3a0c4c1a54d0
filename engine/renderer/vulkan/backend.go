package vulkan

import (
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/platform"
	"github.com/spaghettifunk/anima-gfx/engine/renderer"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
)

const validationLayerName = "VK_LAYER_KHRONOS_validation"

func init() {
	renderer.Register("vulkan", NewFactory)
}

// Factory owns the Vulkan instance. Devices and swapchains are created from
// it; every swapchain gets its own surface.
type Factory struct {
	opts      renderer.FactoryOptions
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks

	debugMessenger vk.DebugReportCallback
}

var _ renderer.Factory = (*Factory)(nil)

func NewFactory(opts renderer.FactoryOptions) (renderer.Factory, error) {
	var f *Factory
	err := core.Guard("vulkan_factory_create", func() error {
		var err error
		f, err = createFactory(opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

func createFactory(opts renderer.FactoryOptions) (*Factory, error) {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return nil, core.Errorf("vulkan_init", core.ErrGraphicsInitFailed, "GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		return nil, core.Errorf("vulkan_init", core.ErrGraphicsInitFailed, "failed to initialize vk: %s", err)
	}

	f := &Factory{opts: opts}

	// Negative viewport heights need 1.1.
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   safeString(opts.ApplicationName),
		PEngineName:        safeString("Anima Gfx"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	// Obtain a list of required extensions
	requiredExtensions := []string{"VK_KHR_surface"}
	for _, ext := range opts.InstanceExtensions {
		if ext != "VK_KHR_surface" {
			requiredExtensions = append(requiredExtensions, ext)
		}
	}
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	var layers []string
	if opts.Validation {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
		if hasInstanceLayer(validationLayerName) {
			layers = append(layers, validationLayerName)
			core.LogInfo("Validation layers enabled.")
		} else {
			core.LogWarn("Required validation layer is missing: %s", validationLayerName)
		}
	}
	core.LogDebug("Required extensions: %v", requiredExtensions)

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = safeStrings(requiredExtensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = safeStrings(layers)

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, f.Allocator, &instance); res != vk.Success {
		return nil, core.Errorf("vkCreateInstance", core.ErrGraphicsInitFailed, "%s", VulkanResultString(res, true))
	}
	if err := vk.InitInstance(instance); err != nil {
		vk.DestroyInstance(instance, f.Allocator)
		return nil, core.Errorf("vkInitInstance", core.ErrGraphicsInitFailed, "%s", err)
	}
	f.Instance = instance
	core.LogInfo("Vulkan Instance created.")

	if opts.Validation {
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if res := vk.CreateDebugReportCallback(f.Instance, &debugCreateInfo, f.Allocator, &dbg); res != vk.Success {
			// the instance works without it
			core.LogWarn("vk.CreateDebugReportCallback failed with %s", VulkanResultString(res, true))
		} else {
			f.debugMessenger = dbg
			core.LogDebug("Vulkan debugger created.")
		}
	}
	return f, nil
}

func hasInstanceLayer(name string) bool {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return false
	}
	available := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, available); res != vk.Success {
		return false
	}
	for i := range available {
		available[i].Deref()
		if cString(available[i].LayerName[:]) == name {
			return true
		}
	}
	return false
}

func (f *Factory) Name() string {
	return "vulkan"
}

func (f *Factory) CreateDeviceAndContext() (renderer.Device, renderer.DeviceContext, error) {
	device, err := DeviceCreate(f.Instance, f.Allocator)
	if err != nil {
		return nil, nil, core.Errorf("vulkan_device_create", core.ErrGraphicsInitFailed, "%v", err)
	}
	return device, newDeviceContext(device), nil
}

func (f *Factory) CreateSwapchain(device renderer.Device, context renderer.DeviceContext, desc metadata.SwapchainDesc, window platform.Window) (renderer.Swapchain, error) {
	d, ok := device.(*VulkanDevice)
	if !ok {
		return nil, core.Errorf("vulkan_swapchain_create", core.ErrSurfaceCreationFailed, "device was not created by the vulkan factory")
	}
	ctx, ok := context.(*VulkanDeviceContext)
	if !ok {
		return nil, core.Errorf("vulkan_swapchain_create", core.ErrSurfaceCreationFailed, "context was not created by the vulkan factory")
	}

	surface, err := f.createSurface(window)
	if err != nil {
		return nil, err
	}
	sc, err := SwapchainCreate(d, ctx, surface, desc)
	if err != nil {
		// SwapchainCreate has destroyed the surface
		return nil, core.Errorf("vulkan_swapchain_create", core.ErrSurfaceCreationFailed, "%v", err)
	}
	return sc, nil
}

func (f *Factory) createSurface(window platform.Window) (vk.Surface, error) {
	handle, ok := window.Native().(*glfw.Window)
	if !ok || handle == nil {
		return vk.NullSurface, core.Errorf("vulkan_surface_create", core.ErrSurfaceCreationFailed, "window has no native glfw handle")
	}
	var surface uintptr
	err := core.Guard("vulkan_surface_create", func() error {
		var err error
		surface, err = handle.CreateWindowSurface(f.Instance, nil)
		return err
	})
	if err != nil {
		return vk.NullSurface, core.Errorf("vulkan_surface_create", core.ErrSurfaceCreationFailed, "%v", err)
	}
	core.LogDebug("Vulkan surface created.")
	return vk.SurfaceFromPointer(surface), nil
}

func (f *Factory) Release() error {
	if f.debugMessenger != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(f.Instance, f.debugMessenger, f.Allocator)
		f.debugMessenger = vk.NullDebugReportCallback
	}
	if f.Instance != nil {
		vk.DestroyInstance(f.Instance, f.Allocator)
		f.Instance = nil
	}
	core.LogInfo("Vulkan instance destroyed.")
	return nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		core.LogDebug("DEBUG: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
