package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
)

// VulkanTexture is either a sampled texture owning its image, or a view on
// a swapchain attachment. Only the former can be bound for sampling.
type VulkanTexture struct {
	device *VulkanDevice
	id     uint64
	desc   metadata.TextureDesc

	Image *VulkanImage
	Set   vk.DescriptorSet

	// swapchain attachments carry the image they point at
	swapchain  *VulkanSwapchain
	viewHandle vk.ImageView
	imageIndex uint32
	depth      bool
}

func (d *VulkanDevice) createSampledTexture(desc metadata.TextureDesc, pixels []byte) (*VulkanTexture, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, core.Errorf("texture_create", core.ErrUnknown, "texture `%s` has zero extent", desc.Name)
	}
	if want := int(desc.Width * desc.Height * 4); len(pixels) != want {
		return nil, core.Errorf("texture_create", core.ErrUnknown, "texture `%s` expects %d bytes, got %d", desc.Name, want, len(pixels))
	}
	format := toVkFormat(desc.Format)
	if format == vk.FormatUndefined {
		format = vk.FormatR8g8b8a8Unorm
		desc.Format = metadata.TextureFormatRGBA8Unorm
	}

	image, err := ImageCreate(
		d,
		vk.ImageType2d,
		desc.Width,
		desc.Height,
		format,
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageTransferDstBit|vk.ImageUsageSampledBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		true,
		vk.ImageAspectFlags(vk.ImageAspectColorBit))
	if err != nil {
		return nil, err
	}

	if err := d.uploadImage(image, pixels); err != nil {
		image.Destroy(d)
		return nil, err
	}

	set, err := d.textures.Allocate(d, image.View)
	if err != nil {
		image.Destroy(d)
		return nil, err
	}

	return &VulkanTexture{device: d, id: d.nextID(), desc: desc, Image: image, Set: set}, nil
}

// uploadImage copies pixels through a staging buffer and leaves the image
// ready for sampling.
func (d *VulkanDevice) uploadImage(image *VulkanImage, pixels []byte) error {
	staging, err := newVulkanBuffer(d, metadata.BufferDesc{
		Name: "texture_staging",
		Size: uint64(len(pixels)),
	}, vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit))
	if err != nil {
		return err
	}
	defer staging.destroy()

	if err := staging.LoadData(0, pixels); err != nil {
		return err
	}

	cb, err := AllocateAndBeginSingleUse(d, d.GraphicsCommandPool)
	if err != nil {
		return err
	}
	if err := image.TransitionLayout(cb, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); err != nil {
		cb.Free(d, d.GraphicsCommandPool)
		return err
	}
	image.CopyFromBuffer(cb, staging.Handle)
	if err := image.TransitionLayout(cb, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal); err != nil {
		cb.Free(d, d.GraphicsCommandPool)
		return err
	}
	return cb.EndSingleUse(d, d.GraphicsCommandPool, d.GraphicsQueue, d.GraphicsQueueIndex)
}

func (t *VulkanTexture) ID() uint64 {
	return t.id
}

func (t *VulkanTexture) Desc() metadata.TextureDesc {
	return t.desc
}

// Release frees a sampled texture. Swapchain views are owned by their
// swapchain and releasing them does nothing.
func (t *VulkanTexture) Release() error {
	if t.Image == nil {
		return nil
	}
	// the last submitted frame may still sample it
	if err := t.device.WaitIdle(); err != nil {
		core.LogWarn("texture `%s` released without an idle device: %v", t.desc.Name, err)
	}
	if t.Set != nil {
		t.device.textures.Free(t.device, t.Set)
		t.Set = nil
	}
	t.Image.Destroy(t.device)
	t.Image = nil
	return nil
}
