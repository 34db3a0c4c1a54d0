package renderer

import (
	"github.com/spaghettifunk/anima-gfx/engine/math"
	"github.com/spaghettifunk/anima-gfx/engine/platform"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
)

// Factory is the entry point of a graphics backend. It is shared by every
// window of the process.
type Factory interface {
	Name() string
	CreateDeviceAndContext() (Device, DeviceContext, error)
	CreateSwapchain(device Device, context DeviceContext, desc metadata.SwapchainDesc, window platform.Window) (Swapchain, error)
	Release() error
}

type Device interface {
	CreateBuffer(desc metadata.BufferDesc) (Buffer, error)
	// CreateTexture uploads tightly packed RGBA8 pixels.
	CreateTexture(desc metadata.TextureDesc, pixels []byte) (TextureView, error)
	CreatePipeline(desc metadata.PipelineDesc) (Pipeline, error)
	WaitIdle() error
	Release() error
}

// DeviceContext records commands against the render targets most recently
// bound with SetRenderTargets.
type DeviceContext interface {
	SetRenderTargets(rtv, dsv TextureView) error
	ClearRenderTarget(rtv TextureView, color metadata.Color) error
	ClearDepthStencil(dsv TextureView, depth float32, stencil uint8) error
	UpdateBuffer(buffer Buffer, offset uint64, data []byte) error
	SetVertexBuffer(buffer Buffer) error
	SetIndexBuffer(buffer Buffer, indexType metadata.IndexType) error
	SetPipeline(pipeline Pipeline) error
	SetConstants(pipeline Pipeline, projection math.Mat4) error
	SetViewport(viewport metadata.Viewport) error
	SetScissor(rect metadata.Rect) error
	BindTexture(pipeline Pipeline, texture TextureView) error
	DrawIndexed(attribs metadata.DrawIndexedAttribs) error
	// Flush closes the commands recorded since the last flush.
	Flush() error
	Release() error
}

type Swapchain interface {
	Desc() metadata.SwapchainDesc
	Resize(width, height int) error
	BackBufferRTV() (TextureView, error)
	DepthBufferDSV() TextureView
	Present(syncInterval int) error
	Release() error
}

type Buffer interface {
	Desc() metadata.BufferDesc
	Release() error
}

type TextureView interface {
	// ID is stable for the lifetime of the view and is what GUI draw
	// commands carry as their texture id.
	ID() uint64
	Desc() metadata.TextureDesc
	Release() error
}

type Pipeline interface {
	Desc() metadata.PipelineDesc
	Release() error
}
