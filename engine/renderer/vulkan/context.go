package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/math"
	"github.com/spaghettifunk/anima-gfx/engine/renderer"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
)

// VulkanDeviceContext records into the command buffer of the swapchain
// image bound with SetRenderTargets. The render pass is begun lazily by the
// first command that needs it, so clears issued before that become the
// load values of the pass.
type VulkanDeviceContext struct {
	device *VulkanDevice

	target       *VulkanSwapchain
	inRenderPass bool

	clearColor   metadata.Color
	clearDepth   float32
	clearStencil uint32

	pipeline *VulkanPipeline
}

var _ renderer.DeviceContext = (*VulkanDeviceContext)(nil)

func newDeviceContext(device *VulkanDevice) *VulkanDeviceContext {
	return &VulkanDeviceContext{device: device}
}

func (vc *VulkanDeviceContext) SetRenderTargets(rtv, dsv renderer.TextureView) error {
	tex, ok := rtv.(*VulkanTexture)
	if !ok || tex.swapchain == nil || tex.depth {
		return core.Errorf("set_render_targets", core.ErrUnknown, "only swapchain back buffers can be bound as render targets")
	}
	if dsv != nil {
		if depth, ok := dsv.(*VulkanTexture); !ok || depth.swapchain != tex.swapchain || !depth.depth {
			return core.Errorf("set_render_targets", core.ErrUnknown, "depth target does not belong to the bound swapchain")
		}
	}
	sc := tex.swapchain
	if !sc.acquired || sc.imageIndex != tex.imageIndex {
		return core.Errorf("set_render_targets", core.ErrInvalidFrameState, "back buffer %d is not the acquired image", tex.imageIndex)
	}
	if vc.target == sc {
		return nil
	}
	if vc.target != nil {
		if err := vc.submit(vc.target); err != nil {
			return err
		}
	}

	cb := sc.commandBuffer()
	if err := cb.Reset(); err != nil {
		return err
	}
	if err := cb.Begin(true, false, false); err != nil {
		return err
	}
	vc.target = sc
	vc.inRenderPass = false
	vc.pipeline = nil
	vc.clearColor = metadata.DefaultClearColor
	vc.clearDepth = 1.0
	vc.clearStencil = 0
	return nil
}

func (vc *VulkanDeviceContext) commandBuffer(op string) (*VulkanCommandBuffer, error) {
	if vc.target == nil {
		return nil, core.Errorf(op, core.ErrInvalidFrameState, "no render target is bound")
	}
	return vc.target.commandBuffer(), nil
}

// beginRenderPass starts the pass with the pending clear values and resets
// the viewport and scissor to the whole target.
func (vc *VulkanDeviceContext) beginRenderPass(op string) (*VulkanCommandBuffer, error) {
	cb, err := vc.commandBuffer(op)
	if err != nil {
		return nil, err
	}
	if vc.inRenderPass {
		return cb, nil
	}
	sc := vc.target
	sc.renderpass.Begin(cb, sc.framebuffer().Handle, sc.Extent.Width, sc.Extent.Height, vc.clearColor, vc.clearDepth, vc.clearStencil)
	vc.inRenderPass = true

	vk.CmdSetViewport(cb.Handle, 0, 1, []vk.Viewport{flipViewport(metadata.Viewport{
		Width:    float32(sc.Extent.Width),
		Height:   float32(sc.Extent.Height),
		MaxDepth: 1,
	})})
	vk.CmdSetScissor(cb.Handle, 0, 1, []vk.Rect2D{{
		Extent: sc.Extent,
	}})
	return cb, nil
}

func (vc *VulkanDeviceContext) ClearRenderTarget(rtv renderer.TextureView, color metadata.Color) error {
	if vc.target == nil {
		return core.Errorf("clear_render_target", core.ErrInvalidFrameState, "no render target is bound")
	}
	if !vc.inRenderPass {
		vc.clearColor = color
		return nil
	}
	cb := vc.target.commandBuffer()
	vk.CmdClearAttachments(cb.Handle, 1, []vk.ClearAttachment{{
		AspectMask:      vk.ImageAspectFlags(vk.ImageAspectColorBit),
		ColorAttachment: 0,
		ClearValue:      vk.NewClearValue([]float32{color.R, color.G, color.B, color.A}),
	}}, 1, []vk.ClearRect{vc.fullClearRect()})
	return nil
}

func (vc *VulkanDeviceContext) ClearDepthStencil(dsv renderer.TextureView, depth float32, stencil uint8) error {
	if vc.target == nil {
		return core.Errorf("clear_depth_stencil", core.ErrInvalidFrameState, "no render target is bound")
	}
	if dsv == nil || vc.target.depthImage == nil {
		return nil
	}
	if !vc.inRenderPass {
		vc.clearDepth = depth
		vc.clearStencil = uint32(stencil)
		return nil
	}
	aspect := vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	if vc.target.DepthFormat == vk.FormatD24UnormS8Uint || vc.target.DepthFormat == vk.FormatD32SfloatS8Uint {
		aspect |= vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	}
	cb := vc.target.commandBuffer()
	vk.CmdClearAttachments(cb.Handle, 1, []vk.ClearAttachment{{
		AspectMask: aspect,
		ClearValue: vk.NewClearDepthStencil(depth, uint32(stencil)),
	}}, 1, []vk.ClearRect{vc.fullClearRect()})
	return nil
}

func (vc *VulkanDeviceContext) fullClearRect() vk.ClearRect {
	return vk.ClearRect{
		Rect:       vk.Rect2D{Extent: vc.target.Extent},
		LayerCount: 1,
	}
}

// UpdateBuffer writes through the host mapping. The fence wait at acquire
// guarantees the GPU no longer reads the previous contents.
func (vc *VulkanDeviceContext) UpdateBuffer(buffer renderer.Buffer, offset uint64, data []byte) error {
	b, ok := buffer.(*VulkanBuffer)
	if !ok {
		return core.Errorf("update_buffer", core.ErrUnknown, "buffer was not created by the vulkan device")
	}
	return b.LoadData(offset, data)
}

func (vc *VulkanDeviceContext) SetVertexBuffer(buffer renderer.Buffer) error {
	b, ok := buffer.(*VulkanBuffer)
	if !ok {
		return core.Errorf("set_vertex_buffer", core.ErrUnknown, "buffer was not created by the vulkan device")
	}
	cb, err := vc.commandBuffer("set_vertex_buffer")
	if err != nil {
		return err
	}
	vk.CmdBindVertexBuffers(cb.Handle, 0, 1, []vk.Buffer{b.Handle}, []vk.DeviceSize{0})
	return nil
}

func (vc *VulkanDeviceContext) SetIndexBuffer(buffer renderer.Buffer, indexType metadata.IndexType) error {
	b, ok := buffer.(*VulkanBuffer)
	if !ok {
		return core.Errorf("set_index_buffer", core.ErrUnknown, "buffer was not created by the vulkan device")
	}
	cb, err := vc.commandBuffer("set_index_buffer")
	if err != nil {
		return err
	}
	vkIndexType := vk.IndexTypeUint16
	if indexType == metadata.IndexTypeUint32 {
		vkIndexType = vk.IndexTypeUint32
	}
	vk.CmdBindIndexBuffer(cb.Handle, b.Handle, 0, vkIndexType)
	return nil
}

func (vc *VulkanDeviceContext) SetPipeline(pipeline renderer.Pipeline) error {
	p, ok := pipeline.(*VulkanPipeline)
	if !ok {
		return core.Errorf("set_pipeline", core.ErrUnknown, "pipeline was not created by the vulkan device")
	}
	cb, err := vc.beginRenderPass("set_pipeline")
	if err != nil {
		return err
	}
	if p.Renderpass != vc.target.renderpass {
		return core.Errorf("set_pipeline", core.ErrUnknown, "pipeline `%s` targets formats the bound swapchain does not have", p.desc.Name)
	}
	p.Bind(cb, vk.PipelineBindPointGraphics)
	vc.pipeline = p
	return nil
}

func (vc *VulkanDeviceContext) SetConstants(pipeline renderer.Pipeline, projection math.Mat4) error {
	p, ok := pipeline.(*VulkanPipeline)
	if !ok {
		return core.Errorf("set_constants", core.ErrUnknown, "pipeline was not created by the vulkan device")
	}
	size := uint32(unsafe.Sizeof(projection))
	if p.desc.PushConstantSize < size {
		return core.Errorf("set_constants", core.ErrUnknown, "pipeline `%s` reserves %d bytes of constants, %d needed", p.desc.Name, p.desc.PushConstantSize, size)
	}
	cb, err := vc.commandBuffer("set_constants")
	if err != nil {
		return err
	}
	vk.CmdPushConstants(cb.Handle, p.PipelineLayout, vk.ShaderStageFlags(vk.ShaderStageVertexBit), 0, size, unsafe.Pointer(&projection.Data[0]))
	return nil
}

// flipViewport turns a top-left origin viewport into one with a negative
// height, so clip space y points up as in the other backends.
func flipViewport(viewport metadata.Viewport) vk.Viewport {
	return vk.Viewport{
		X:        viewport.X,
		Y:        viewport.Y + viewport.Height,
		Width:    viewport.Width,
		Height:   -viewport.Height,
		MinDepth: viewport.MinDepth,
		MaxDepth: viewport.MaxDepth,
	}
}

func (vc *VulkanDeviceContext) SetViewport(viewport metadata.Viewport) error {
	cb, err := vc.beginRenderPass("set_viewport")
	if err != nil {
		return err
	}
	vk.CmdSetViewport(cb.Handle, 0, 1, []vk.Viewport{flipViewport(viewport)})
	return nil
}

func scissorRect(rect metadata.Rect) vk.Rect2D {
	left, top := rect.Left, rect.Top
	if left < 0 {
		left = 0
	}
	if top < 0 {
		top = 0
	}
	var width, height uint32
	if rect.Right > left {
		width = uint32(rect.Right - left)
	}
	if rect.Bottom > top {
		height = uint32(rect.Bottom - top)
	}
	return vk.Rect2D{
		Offset: vk.Offset2D{X: left, Y: top},
		Extent: vk.Extent2D{Width: width, Height: height},
	}
}

func (vc *VulkanDeviceContext) SetScissor(rect metadata.Rect) error {
	cb, err := vc.beginRenderPass("set_scissor")
	if err != nil {
		return err
	}
	vk.CmdSetScissor(cb.Handle, 0, 1, []vk.Rect2D{scissorRect(rect)})
	return nil
}

func (vc *VulkanDeviceContext) BindTexture(pipeline renderer.Pipeline, texture renderer.TextureView) error {
	p, ok := pipeline.(*VulkanPipeline)
	if !ok {
		return core.Errorf("bind_texture", core.ErrUnknown, "pipeline was not created by the vulkan device")
	}
	tex, ok := texture.(*VulkanTexture)
	if !ok || tex.Set == nil {
		return core.Errorf("bind_texture", core.ErrUnknown, "texture cannot be sampled")
	}
	cb, err := vc.commandBuffer("bind_texture")
	if err != nil {
		return err
	}
	vk.CmdBindDescriptorSets(cb.Handle, vk.PipelineBindPointGraphics, p.PipelineLayout, 0, 1, []vk.DescriptorSet{tex.Set}, 0, nil)
	return nil
}

func (vc *VulkanDeviceContext) DrawIndexed(attribs metadata.DrawIndexedAttribs) error {
	if vc.pipeline == nil {
		return core.Errorf("draw_indexed", core.ErrInvalidFrameState, "no pipeline is bound")
	}
	cb, err := vc.beginRenderPass("draw_indexed")
	if err != nil {
		return err
	}
	vk.CmdDrawIndexed(cb.Handle, attribs.NumIndices, 1, attribs.FirstIndexLocation, attribs.BaseVertex, 0)
	return nil
}

// Flush submits whatever was recorded for the bound swapchain image.
func (vc *VulkanDeviceContext) Flush() error {
	if vc.target == nil {
		return nil
	}
	return vc.submit(vc.target)
}

// submit closes and submits the command buffer of sc. The pass is begun
// even when nothing was drawn so that the clears land and the acquire
// semaphore is waited on.
func (vc *VulkanDeviceContext) submit(sc *VulkanSwapchain) error {
	if sc.submitted {
		return nil
	}
	if vc.target != sc {
		// acquired but never bound: record an empty frame
		if vc.target != nil {
			if err := vc.submit(vc.target); err != nil {
				return err
			}
		}
		if err := sc.commandBuffer().Reset(); err != nil {
			return err
		}
		if err := sc.commandBuffer().Begin(true, false, false); err != nil {
			return err
		}
		vc.target = sc
		vc.inRenderPass = false
		vc.clearColor = metadata.DefaultClearColor
		vc.clearDepth = 1.0
		vc.clearStencil = 0
	}

	cb, err := vc.beginRenderPass("flush")
	if err != nil {
		return err
	}
	sc.renderpass.End(cb)
	vc.inRenderPass = false
	vc.target = nil
	vc.pipeline = nil

	if err := cb.End(); err != nil {
		return err
	}

	// Reset the fence for use on the next frame
	if err := sc.inFlight.Reset(vc.device); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{sc.imageAvailable},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{sc.renderComplete[sc.imageIndex]},
	}
	if err := vc.device.lockPool.SafeQueueCall(vc.device.GraphicsQueueIndex, func() error {
		return vkError("vkQueueSubmit", vk.QueueSubmit(vc.device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, sc.inFlight.Handle))
	}); err != nil {
		return err
	}
	cb.UpdateSubmitted()
	sc.submitted = true
	return nil
}

// forget drops the binding to sc without submitting, used when the
// swapchain is recreated or released.
func (vc *VulkanDeviceContext) forget(sc *VulkanSwapchain) {
	if vc.target == sc {
		vc.target = nil
		vc.inRenderPass = false
		vc.pipeline = nil
	}
}

func (vc *VulkanDeviceContext) Release() error {
	vc.target = nil
	vc.pipeline = nil
	return nil
}
