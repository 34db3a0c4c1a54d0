package vulkan

import (
	"math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/renderer"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
)

// VulkanSwapchain presents one window surface. It keeps a single frame in
// flight: acquiring the next image waits for the previous submission, after
// which every host visible buffer may be rewritten.
type VulkanSwapchain struct {
	device  *VulkanDevice
	context *VulkanDeviceContext
	surface vk.Surface
	desc    metadata.SwapchainDesc

	Handle      vk.Swapchain
	ImageFormat vk.SurfaceFormat
	DepthFormat vk.Format
	Extent      vk.Extent2D
	Images      []vk.Image

	views        []*VulkanTexture
	depthImage   *VulkanImage
	depthView    *VulkanTexture
	renderpass   *VulkanRenderpass
	framebuffers []*VulkanFramebuffer

	commandBuffers []*VulkanCommandBuffer
	imageAvailable vk.Semaphore
	renderComplete []vk.Semaphore
	inFlight       *VulkanFence

	imageIndex uint32
	acquired   bool
	submitted  bool
}

var _ renderer.Swapchain = (*VulkanSwapchain)(nil)

func SwapchainCreate(device *VulkanDevice, context *VulkanDeviceContext, surface vk.Surface, desc metadata.SwapchainDesc) (*VulkanSwapchain, error) {
	sc := &VulkanSwapchain{
		device:  device,
		context: context,
		surface: surface,
		desc:    desc,
	}
	if err := sc.create(uint32(desc.Width), uint32(desc.Height)); err != nil {
		sc.destroy()
		return nil, err
	}

	semaphoreCreateInfo := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	var semaphore vk.Semaphore
	if res := vk.CreateSemaphore(device.LogicalDevice, &semaphoreCreateInfo, device.Allocator, &semaphore); res != vk.Success {
		sc.destroy()
		return nil, vkError("vkCreateSemaphore", res)
	}
	sc.imageAvailable = semaphore

	// Create the fence in a signaled state, indicating that the first frame has already been "rendered".
	fence, err := NewFence(device, true)
	if err != nil {
		sc.destroy()
		return nil, err
	}
	sc.inFlight = fence

	core.LogInfo("Swapchain created successfully.")
	return sc, nil
}

func (vs *VulkanSwapchain) create(width, height uint32) error {
	support, err := vs.device.QuerySwapchainSupport(vs.surface)
	if err != nil {
		return err
	}
	caps := support.Capabilities

	// Choose a swap surface format, the requested one first.
	wanted := toVkFormat(vs.desc.ColorBufferFormat)
	vs.ImageFormat = support.Formats[0]
	found := false
	for _, format := range support.Formats {
		if format.Format == wanted && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			vs.ImageFormat = format
			found = true
			break
		}
	}
	if !found {
		for _, format := range support.Formats {
			if format.Format == vk.FormatB8g8r8a8Unorm && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
				vs.ImageFormat = format
				break
			}
		}
	}

	// FIFO is the only mode every implementation supports and it waits for
	// the vertical blank, which is what a sync interval of one asks for.
	presentMode := vk.PresentModeFifo

	extent := vk.Extent2D{Width: width, Height: height}
	if caps.CurrentExtent.Width != math.MaxUint32 {
		extent = caps.CurrentExtent
	}
	extent.Width = clampUint32(extent.Width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width)
	extent.Height = clampUint32(extent.Height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height)
	if extent.Width == 0 || extent.Height == 0 {
		return core.Errorf("swapchain_create", core.ErrSurfaceCreationFailed, "surface has a zero extent")
	}

	imageCount := caps.MinImageCount + 1
	if vs.desc.BufferCount > 0 && uint32(vs.desc.BufferCount) > imageCount {
		imageCount = uint32(vs.desc.BufferCount)
	}
	if caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}

	oldSwapchain := vs.Handle
	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          vs.surface,
		MinImageCount:    imageCount,
		ImageFormat:      vs.ImageFormat.Format,
		ImageColorSpace:  vs.ImageFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
		OldSwapchain:     oldSwapchain,
	}

	var swapchainHandle vk.Swapchain
	err = vs.device.lockPool.SafeCall(SwapchainManagement, func() error {
		return vkError("vkCreateSwapchain", vk.CreateSwapchain(vs.device.LogicalDevice, &swapchainCreateInfo, vs.device.Allocator, &swapchainHandle))
	})
	if oldSwapchain != nil {
		vk.DestroySwapchain(vs.device.LogicalDevice, oldSwapchain, vs.device.Allocator)
		vs.Handle = nil
	}
	if err != nil {
		return err
	}
	vs.Handle = swapchainHandle
	vs.Extent = extent

	var count uint32
	if res := vk.GetSwapchainImages(vs.device.LogicalDevice, vs.Handle, &count, nil); res != vk.Success {
		return vkError("vkGetSwapchainImages", res)
	}
	vs.Images = make([]vk.Image, count)
	if res := vk.GetSwapchainImages(vs.device.LogicalDevice, vs.Handle, &count, vs.Images); res != vk.Success {
		return vkError("vkGetSwapchainImages", res)
	}

	// Depth resources
	depthFormat, ok := vs.device.DetectDepthFormat(toVkFormat(vs.desc.DepthBufferFormat))
	if !ok {
		core.LogWarn("no depth format usable as an attachment, rendering without depth")
	}
	vs.DepthFormat = depthFormat

	renderpass, err := vs.device.renderpassFor(vs.ImageFormat.Format, vs.DepthFormat)
	if err != nil {
		return err
	}
	vs.renderpass = renderpass

	if vs.DepthFormat != vk.FormatUndefined {
		depthImage, err := ImageCreate(
			vs.device,
			vk.ImageType2d,
			extent.Width,
			extent.Height,
			vs.DepthFormat,
			vk.ImageTilingOptimal,
			vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
			vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
			true,
			vk.ImageAspectFlags(vk.ImageAspectDepthBit))
		if err != nil {
			return err
		}
		vs.depthImage = depthImage
		vs.depthView = &VulkanTexture{
			device: vs.device,
			id:     vs.device.nextID(),
			desc:   metadata.TextureDesc{Name: "depth_buffer", Width: extent.Width, Height: extent.Height, Format: fromVkFormat(vs.DepthFormat)},
			swapchain: vs,
			depth:     true,
		}
	}

	vs.views = make([]*VulkanTexture, count)
	vs.framebuffers = make([]*VulkanFramebuffer, count)
	vs.commandBuffers = make([]*VulkanCommandBuffer, count)
	vs.renderComplete = make([]vk.Semaphore, count)
	for i := range vs.Images {
		view, err := ImageViewCreate(vs.device, vs.ImageFormat.Format, vs.Images[i], vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			return err
		}
		vs.views[i] = &VulkanTexture{
			device:     vs.device,
			id:         vs.device.nextID(),
			desc:       metadata.TextureDesc{Name: "back_buffer", Width: extent.Width, Height: extent.Height, Format: fromVkFormat(vs.ImageFormat.Format)},
			Image:      nil,
			swapchain:  vs,
			imageIndex: uint32(i),
		}
		vs.views[i].viewHandle = view

		attachments := []vk.ImageView{view}
		if vs.depthImage != nil {
			attachments = append(attachments, vs.depthImage.View)
		}
		fb, err := FramebufferCreate(vs.device, vs.renderpass, extent.Width, extent.Height, attachments)
		if err != nil {
			return err
		}
		vs.framebuffers[i] = fb

		cb, err := NewVulkanCommandBuffer(vs.device, vs.device.GraphicsCommandPool, true)
		if err != nil {
			return err
		}
		vs.commandBuffers[i] = cb

		semaphoreCreateInfo := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
		var semaphore vk.Semaphore
		if res := vk.CreateSemaphore(vs.device.LogicalDevice, &semaphoreCreateInfo, vs.device.Allocator, &semaphore); res != vk.Success {
			return vkError("vkCreateSemaphore", res)
		}
		vs.renderComplete[i] = semaphore
	}

	vs.desc.Width = int(extent.Width)
	vs.desc.Height = int(extent.Height)
	vs.desc.ColorBufferFormat = fromVkFormat(vs.ImageFormat.Format)
	vs.desc.DepthBufferFormat = fromVkFormat(vs.DepthFormat)
	vs.desc.PreTransform = fromVkTransform(caps.CurrentTransform)
	vs.desc.BufferCount = int(count)
	return nil
}

// destroyImageResources drops everything sized by the extent and keeps the
// swapchain handle so it can be passed as the old swapchain.
func (vs *VulkanSwapchain) destroyImageResources() {
	d := vs.device
	for _, sem := range vs.renderComplete {
		if sem != vk.NullSemaphore {
			vk.DestroySemaphore(d.LogicalDevice, sem, d.Allocator)
		}
	}
	vs.renderComplete = nil
	for _, cb := range vs.commandBuffers {
		if cb != nil {
			cb.Free(d, d.GraphicsCommandPool)
		}
	}
	vs.commandBuffers = nil
	for _, fb := range vs.framebuffers {
		if fb != nil {
			fb.Destroy(d)
		}
	}
	vs.framebuffers = nil
	// Only destroy the views, not the images, since those are owned by the swapchain.
	for _, v := range vs.views {
		if v != nil && v.viewHandle != vk.NullImageView {
			vk.DestroyImageView(d.LogicalDevice, v.viewHandle, d.Allocator)
		}
	}
	vs.views = nil
	if vs.depthImage != nil {
		vs.depthImage.Destroy(d)
		vs.depthImage = nil
	}
	vs.depthView = nil
	vs.Images = nil
	vs.acquired = false
	vs.submitted = false
}

func (vs *VulkanSwapchain) recreate(width, height uint32) error {
	if err := vs.device.WaitIdle(); err != nil {
		return err
	}
	if vs.context != nil {
		vs.context.forget(vs)
	}
	vs.destroyImageResources()
	if err := vs.create(width, height); err != nil {
		return err
	}
	// a recreated swapchain has nothing in flight
	vs.inFlight.IsSignaled = true
	core.LogDebug("swapchain recreated %dx%d", vs.desc.Width, vs.desc.Height)
	return nil
}

func (vs *VulkanSwapchain) Desc() metadata.SwapchainDesc {
	return vs.desc
}

func (vs *VulkanSwapchain) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	vs.desc.Width, vs.desc.Height = width, height
	return vs.recreate(uint32(width), uint32(height))
}

// BackBufferRTV acquires the next image the first time it is called in a
// frame and returns its view.
func (vs *VulkanSwapchain) BackBufferRTV() (renderer.TextureView, error) {
	if vs.acquired {
		return vs.views[vs.imageIndex], nil
	}
	if err := vs.acquire(); err != nil {
		return nil, err
	}
	return vs.views[vs.imageIndex], nil
}

func (vs *VulkanSwapchain) acquire() error {
	// Wait for the execution of the previous frame to complete.
	if err := vs.inFlight.Wait(vs.device, math.MaxUint64); err != nil {
		return err
	}

	for attempt := 0; attempt < 2; attempt++ {
		var imageIndex uint32
		result := vk.AcquireNextImage(vs.device.LogicalDevice, vs.Handle, math.MaxUint64, vs.imageAvailable, vk.NullFence, &imageIndex)
		switch result {
		case vk.Success, vk.Suboptimal:
			vs.imageIndex = imageIndex
			vs.acquired = true
			vs.submitted = false
			return nil
		case vk.ErrorOutOfDate:
			// Trigger swapchain recreation, then try once more.
			if err := vs.recreate(uint32(vs.desc.Width), uint32(vs.desc.Height)); err != nil {
				return err
			}
		default:
			return vkError("vkAcquireNextImage", result)
		}
	}
	return core.Errorf("vkAcquireNextImage", core.ErrUnknown, "swapchain stayed out of date after recreation")
}

func (vs *VulkanSwapchain) DepthBufferDSV() renderer.TextureView {
	if vs.depthView == nil {
		return nil
	}
	return vs.depthView
}

// commandBuffer returns the buffer recording the acquired image.
func (vs *VulkanSwapchain) commandBuffer() *VulkanCommandBuffer {
	return vs.commandBuffers[vs.imageIndex]
}

func (vs *VulkanSwapchain) framebuffer() *VulkanFramebuffer {
	return vs.framebuffers[vs.imageIndex]
}

// Present gives the acquired image back to the presentation engine. An
// image that was acquired but never flushed is submitted first so the
// acquire semaphore is always consumed.
func (vs *VulkanSwapchain) Present(syncInterval int) error {
	if !vs.acquired {
		core.LogDebug("present called without an acquired image. Booting.")
		return nil
	}
	if !vs.submitted {
		if err := vs.context.submit(vs); err != nil {
			return err
		}
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{vs.renderComplete[vs.imageIndex]},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{vs.imageIndex},
	}

	var result vk.Result
	_ = vs.device.lockPool.SafeQueueCall(vs.device.GraphicsQueueIndex, func() error {
		result = vk.QueuePresent(vs.device.GraphicsQueue, &presentInfo)
		return nil
	})
	vs.acquired = false
	vs.submitted = false

	switch result {
	case vk.Success:
		return nil
	case vk.ErrorOutOfDate, vk.Suboptimal:
		// Swapchain is out of date, suboptimal or a framebuffer resize has occurred.
		return vs.recreate(uint32(vs.desc.Width), uint32(vs.desc.Height))
	}
	return vkError("vkQueuePresent", result)
}

func (vs *VulkanSwapchain) Release() error {
	err := vs.device.WaitIdle()
	if vs.context != nil {
		vs.context.forget(vs)
	}
	vs.destroy()
	return err
}

func (vs *VulkanSwapchain) destroy() {
	d := vs.device
	vs.destroyImageResources()
	if vs.inFlight != nil {
		vs.inFlight.Destroy(d)
		vs.inFlight = nil
	}
	if vs.imageAvailable != vk.NullSemaphore {
		vk.DestroySemaphore(d.LogicalDevice, vs.imageAvailable, d.Allocator)
		vs.imageAvailable = vk.NullSemaphore
	}
	if vs.Handle != nil {
		vk.DestroySwapchain(d.LogicalDevice, vs.Handle, d.Allocator)
		vs.Handle = nil
	}
	if vs.surface != vk.NullSurface {
		vk.DestroySurface(d.Instance, vs.surface, d.Allocator)
		vs.surface = vk.NullSurface
	}
}
