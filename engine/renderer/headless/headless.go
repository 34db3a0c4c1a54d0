// Package headless is a graphics backend that draws nothing. It validates
// the calls it receives and records them, which is what tests and CI use in
// place of a GPU.
package headless

import (
	"fmt"

	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/math"
	"github.com/spaghettifunk/anima-gfx/engine/platform"
	"github.com/spaghettifunk/anima-gfx/engine/renderer"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
)

func init() {
	renderer.Register("headless", func(opts renderer.FactoryOptions) (renderer.Factory, error) {
		return NewFactory(NewRecorder()), nil
	})
}

type Factory struct {
	rec *Recorder
}

func NewFactory(rec *Recorder) *Factory {
	return &Factory{rec: rec}
}

func (f *Factory) Recorder() *Recorder {
	return f.rec
}

func (f *Factory) Name() string {
	return "headless"
}

func (f *Factory) CreateDeviceAndContext() (renderer.Device, renderer.DeviceContext, error) {
	if err := f.rec.record("CreateDeviceAndContext"); err != nil {
		return nil, nil, err
	}
	d := &device{rec: f.rec}
	return d, &context{rec: f.rec, device: d}, nil
}

func (f *Factory) CreateSwapchain(dev renderer.Device, ctx renderer.DeviceContext, desc metadata.SwapchainDesc, window platform.Window) (renderer.Swapchain, error) {
	if err := f.rec.record("CreateSwapchain"); err != nil {
		return nil, err
	}
	if window == nil {
		return nil, core.NewError("CreateSwapchain", core.ErrSurfaceCreationFailed)
	}
	if _, ok := dev.(*device); !ok {
		return nil, fmt.Errorf("device %T does not belong to the headless backend", dev)
	}
	var sc *swapchain
	f.rec.with(func() {
		desc.ColorBufferFormat = f.rec.ColorFormat
		desc.DepthBufferFormat = f.rec.DepthFormat
		desc.PreTransform = f.rec.PreTransform
	})
	sc = &swapchain{rec: f.rec, desc: desc}
	sc.rebuildViews()
	return sc, nil
}

func (f *Factory) Release() error {
	return f.rec.record("FactoryRelease")
}

type device struct {
	rec *Recorder
}

func (d *device) CreateBuffer(desc metadata.BufferDesc) (renderer.Buffer, error) {
	if err := d.rec.record("CreateBuffer"); err != nil {
		return nil, err
	}
	if desc.Size == 0 {
		return nil, fmt.Errorf("buffer `%s` has zero size", desc.Name)
	}
	return &buffer{rec: d.rec, id: d.rec.id(), desc: desc}, nil
}

func (d *device) CreateTexture(desc metadata.TextureDesc, pixels []byte) (renderer.TextureView, error) {
	if err := d.rec.record("CreateTexture"); err != nil {
		return nil, err
	}
	if want := int(desc.Width * desc.Height * 4); pixels != nil && len(pixels) != want {
		return nil, fmt.Errorf("texture `%s` expects %d bytes, got %d", desc.Name, want, len(pixels))
	}
	t := &texture{rec: d.rec, id: d.rec.id(), desc: desc}
	if pixels != nil {
		d.rec.with(func() { d.rec.uploads[t.id] = append([]byte(nil), pixels...) })
	}
	return t, nil
}

func (d *device) CreatePipeline(desc metadata.PipelineDesc) (renderer.Pipeline, error) {
	if err := d.rec.record("CreatePipeline"); err != nil {
		return nil, err
	}
	return &pipeline{rec: d.rec, desc: desc}, nil
}

func (d *device) WaitIdle() error {
	return d.rec.record("WaitIdle")
}

func (d *device) Release() error {
	return d.rec.record("DeviceRelease")
}

type context struct {
	rec    *Recorder
	device *device
	rtv    renderer.TextureView
	vb     *buffer
	ib     *buffer
	pso    renderer.Pipeline
}

func (c *context) SetRenderTargets(rtv, dsv renderer.TextureView) error {
	if err := c.rec.record("SetRenderTargets"); err != nil {
		return err
	}
	c.rtv = rtv
	return nil
}

func (c *context) ClearRenderTarget(rtv renderer.TextureView, color metadata.Color) error {
	if err := c.rec.record("ClearRenderTarget"); err != nil {
		return err
	}
	c.rec.with(func() { c.rec.clears = append(c.rec.clears, color) })
	return nil
}

func (c *context) ClearDepthStencil(dsv renderer.TextureView, depth float32, stencil uint8) error {
	return c.rec.record("ClearDepthStencil")
}

func (c *context) UpdateBuffer(b renderer.Buffer, offset uint64, data []byte) error {
	if err := c.rec.record("UpdateBuffer"); err != nil {
		return err
	}
	hb, ok := b.(*buffer)
	if !ok {
		return fmt.Errorf("buffer %T does not belong to the headless backend", b)
	}
	if offset+uint64(len(data)) > hb.desc.Size {
		return fmt.Errorf("write of %d bytes at %d overflows buffer `%s` of %d bytes", len(data), offset, hb.desc.Name, hb.desc.Size)
	}
	c.rec.with(func() { c.rec.uploads[hb.id] = append([]byte(nil), data...) })
	return nil
}

func (c *context) SetVertexBuffer(b renderer.Buffer) error {
	if err := c.rec.record("SetVertexBuffer"); err != nil {
		return err
	}
	c.vb, _ = b.(*buffer)
	return nil
}

func (c *context) SetIndexBuffer(b renderer.Buffer, indexType metadata.IndexType) error {
	if err := c.rec.record("SetIndexBuffer"); err != nil {
		return err
	}
	c.ib, _ = b.(*buffer)
	return nil
}

func (c *context) SetPipeline(p renderer.Pipeline) error {
	if err := c.rec.record("SetPipeline"); err != nil {
		return err
	}
	c.pso = p
	return nil
}

func (c *context) SetConstants(p renderer.Pipeline, projection math.Mat4) error {
	if err := c.rec.record("SetConstants"); err != nil {
		return err
	}
	c.rec.with(func() { c.rec.consts = append(c.rec.consts, projection) })
	return nil
}

func (c *context) SetViewport(vp metadata.Viewport) error {
	return c.rec.record("SetViewport")
}

func (c *context) SetScissor(r metadata.Rect) error {
	if err := c.rec.record("SetScissor"); err != nil {
		return err
	}
	c.rec.with(func() { c.rec.scissors = append(c.rec.scissors, r) })
	return nil
}

func (c *context) BindTexture(p renderer.Pipeline, t renderer.TextureView) error {
	if err := c.rec.record("BindTexture"); err != nil {
		return err
	}
	c.rec.with(func() { c.rec.binds = append(c.rec.binds, t.ID()) })
	return nil
}

func (c *context) DrawIndexed(attribs metadata.DrawIndexedAttribs) error {
	if err := c.rec.record("DrawIndexed"); err != nil {
		return err
	}
	if c.rtv == nil || c.pso == nil || c.vb == nil || c.ib == nil {
		return fmt.Errorf("draw issued without render target, pipeline, vertex and index buffers bound")
	}
	c.rec.with(func() { c.rec.draws = append(c.rec.draws, attribs) })
	return nil
}

func (c *context) Flush() error {
	if err := c.rec.record("Flush"); err != nil {
		return err
	}
	c.rtv = nil
	return nil
}

func (c *context) Release() error {
	return c.rec.record("ContextRelease")
}

type swapchain struct {
	rec   *Recorder
	desc  metadata.SwapchainDesc
	color *texture
	depth *texture
}

func (s *swapchain) rebuildViews() {
	s.color = &texture{rec: s.rec, id: s.rec.id(), desc: metadata.TextureDesc{
		Name: "back_buffer", Width: uint32(s.desc.Width), Height: uint32(s.desc.Height), Format: s.desc.ColorBufferFormat,
	}}
	s.depth = &texture{rec: s.rec, id: s.rec.id(), desc: metadata.TextureDesc{
		Name: "depth_buffer", Width: uint32(s.desc.Width), Height: uint32(s.desc.Height), Format: s.desc.DepthBufferFormat,
	}}
}

func (s *swapchain) Desc() metadata.SwapchainDesc {
	return s.desc
}

func (s *swapchain) Resize(width, height int) error {
	if err := s.rec.record("Resize"); err != nil {
		return err
	}
	s.desc.Width, s.desc.Height = width, height
	s.rebuildViews()
	return nil
}

func (s *swapchain) BackBufferRTV() (renderer.TextureView, error) {
	if err := s.rec.record("BackBufferRTV"); err != nil {
		return nil, err
	}
	return s.color, nil
}

func (s *swapchain) DepthBufferDSV() renderer.TextureView {
	return s.depth
}

func (s *swapchain) Present(syncInterval int) error {
	return s.rec.record("Present")
}

func (s *swapchain) Release() error {
	return s.rec.record("SwapchainRelease")
}

type buffer struct {
	rec  *Recorder
	id   uint64
	desc metadata.BufferDesc
}

func (b *buffer) Desc() metadata.BufferDesc {
	return b.desc
}

func (b *buffer) Release() error {
	return b.rec.record("BufferRelease")
}

type texture struct {
	rec  *Recorder
	id   uint64
	desc metadata.TextureDesc
}

func (t *texture) ID() uint64 {
	return t.id
}

func (t *texture) Desc() metadata.TextureDesc {
	return t.desc
}

func (t *texture) Release() error {
	return t.rec.record("TextureRelease")
}

type pipeline struct {
	rec  *Recorder
	desc metadata.PipelineDesc
}

func (p *pipeline) Desc() metadata.PipelineDesc {
	return p.desc
}

func (p *pipeline) Release() error {
	return p.rec.record("PipelineRelease")
}
