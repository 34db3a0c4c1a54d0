package gui

import (
	"unsafe"

	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/math"
	"github.com/spaghettifunk/anima-gfx/engine/renderer"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
)

const (
	DefaultInitialVertexCapacity = 1024 * 1024
	DefaultInitialIndexCapacity  = 1024 * 1024
	DefaultFontSize              = 13.0
)

type RendererConfig struct {
	ColorFormat metadata.TextureFormat
	DepthFormat metadata.TextureFormat
	// Capacities are in vertices and indices, not bytes.
	InitialVertexCapacity uint32
	InitialIndexCapacity  uint32
	// FontSize is the unscaled font height in pixels.
	FontSize float32
	// SPIR-V words of the GUI shaders.
	VertexShader []uint32
	PixelShader  []uint32
}

func (c RendererConfig) withDefaults() RendererConfig {
	if c.InitialVertexCapacity == 0 {
		c.InitialVertexCapacity = DefaultInitialVertexCapacity
	}
	if c.InitialIndexCapacity == 0 {
		c.InitialIndexCapacity = DefaultInitialIndexCapacity
	}
	if c.FontSize <= 0 {
		c.FontSize = DefaultFontSize
	}
	return c
}

type RenderStats struct {
	DrawCalls    int
	TextureBinds int
	Vertices     int
	Indices      int
}

// Renderer turns GUI draw data into draw calls on a device context. It owns
// the GUI pipeline, the dynamic vertex and index buffers and the font
// texture.
type Renderer struct {
	device renderer.Device
	fonts  FontBuilder
	config RendererConfig

	pipeline     renderer.Pipeline
	vertexBuffer renderer.Buffer
	indexBuffer  renderer.Buffer
	fontTexture  renderer.TextureView
	vbCapacity   uint32
	ibCapacity   uint32
	textures     map[TextureID]renderer.TextureView

	surfaceWidth  int
	surfaceHeight int
	transform     metadata.SurfaceTransform
	fontScale     float32

	vertices []DrawVert
	indices  []DrawIdx

	stats     RenderStats
	lastStats RenderStats
}

func NewRenderer(device renderer.Device, fonts FontBuilder, config RendererConfig) *Renderer {
	config = config.withDefaults()
	return &Renderer{
		device:     device,
		fonts:      fonts,
		config:     config,
		vbCapacity: config.InitialVertexCapacity,
		ibCapacity: config.InitialIndexCapacity,
		textures:   make(map[TextureID]renderer.TextureView),
		transform:  metadata.SurfaceTransformIdentity,
	}
}

func (r *Renderer) Config() RendererConfig {
	return r.config
}

// NewFrame records the surface the next draw data is rendered to. Device
// objects are created on first use and the font texture is rebuilt when
// scale changed since it was baked.
func (r *Renderer) NewFrame(surfaceWidth, surfaceHeight int, transform metadata.SurfaceTransform, scale float32) error {
	r.surfaceWidth = surfaceWidth
	r.surfaceHeight = surfaceHeight
	r.transform = transform
	r.stats = RenderStats{}

	if r.pipeline == nil {
		return r.CreateDeviceObjects(scale, false)
	}
	if r.fontTexture == nil || r.fontScale != scale {
		r.InvalidateFontObjects()
		return r.CreateFontsTexture(scale)
	}
	return nil
}

func (r *Renderer) EndFrame() {
	r.lastStats = r.stats
}

// Stats returns the counters of the last completed frame.
func (r *Renderer) Stats() RenderStats {
	return r.lastStats
}

// CreateDeviceObjects creates the pipeline, the buffers and the font
// texture. Existing objects are kept unless force is set.
func (r *Renderer) CreateDeviceObjects(scale float32, force bool) error {
	if r.pipeline != nil {
		if !force {
			return nil
		}
		r.InvalidateDeviceObjects()
	}
	if len(r.config.VertexShader) == 0 || len(r.config.PixelShader) == 0 {
		core.LogWarn("gui shaders are not loaded, the backend must provide its own")
	}

	pipeline, err := r.device.CreatePipeline(metadata.PipelineDesc{
		Name:         "gui_pipeline",
		ColorFormat:  r.config.ColorFormat,
		DepthFormat:  r.config.DepthFormat,
		VertexStride: DrawVertSize,
		Attributes: []metadata.VertexAttribute{
			{Location: 0, Components: 2, Offset: 0},
			{Location: 1, Components: 2, Offset: 8},
			{Location: 2, Components: 4, Normalized: true, Offset: 16},
		},
		VertexShader:     r.config.VertexShader,
		PixelShader:      r.config.PixelShader,
		Blend:            metadata.BlendModeAlpha,
		CullMode:         metadata.FaceCullModeNone,
		Topology:         metadata.PrimitiveTopologyTriangleList,
		DepthTest:        false,
		ScissorTest:      true,
		PushConstantSize: uint32(unsafe.Sizeof(math.Mat4{})),
	})
	if err != nil {
		return core.NewError("gui_create_pipeline", err)
	}
	r.pipeline = pipeline

	if err := r.createVertexBuffer(); err != nil {
		r.InvalidateDeviceObjects()
		return err
	}
	if err := r.createIndexBuffer(); err != nil {
		r.InvalidateDeviceObjects()
		return err
	}
	if err := r.CreateFontsTexture(scale); err != nil {
		r.InvalidateDeviceObjects()
		return err
	}
	return nil
}

// InvalidateDeviceObjects releases every GPU object. Capacities are kept so
// recreated buffers start at the size they had grown to.
func (r *Renderer) InvalidateDeviceObjects() {
	r.InvalidateFontObjects()
	if r.vertexBuffer != nil {
		core.Teardown("gui_vertex_buffer_release", r.vertexBuffer.Release)
		r.vertexBuffer = nil
	}
	if r.indexBuffer != nil {
		core.Teardown("gui_index_buffer_release", r.indexBuffer.Release)
		r.indexBuffer = nil
	}
	if r.pipeline != nil {
		core.Teardown("gui_pipeline_release", r.pipeline.Release)
		r.pipeline = nil
	}
}

func (r *Renderer) InvalidateFontObjects() {
	if r.fontTexture == nil {
		return
	}
	delete(r.textures, TextureID(r.fontTexture.ID()))
	core.Teardown("gui_font_texture_release", r.fontTexture.Release)
	r.fontTexture = nil
	if r.fonts != nil {
		r.fonts.SetFontTexture(0)
	}
}

// CreateFontsTexture bakes the font atlas at FontSize*scale pixels and
// uploads it.
func (r *Renderer) CreateFontsTexture(scale float32) error {
	if scale <= 0 {
		scale = 1
	}
	if r.fonts == nil {
		return core.Errorf("gui_create_fonts", core.ErrNotInitialized, "renderer has no font builder")
	}
	atlas, err := r.fonts.BuildFontAtlas(r.config.FontSize * scale)
	if err != nil {
		return core.NewError("gui_build_font_atlas", err)
	}
	if len(atlas.Pixels) != atlas.Width*atlas.Height*4 {
		return core.Errorf("gui_build_font_atlas", core.ErrUnknown, "atlas %dx%d holds %d bytes", atlas.Width, atlas.Height, len(atlas.Pixels))
	}
	texture, err := r.device.CreateTexture(metadata.TextureDesc{
		Name:   "gui_font_texture",
		Width:  uint32(atlas.Width),
		Height: uint32(atlas.Height),
		Format: metadata.TextureFormatRGBA8Unorm,
	}, atlas.Pixels)
	if err != nil {
		return core.NewError("gui_create_font_texture", err)
	}
	r.fontTexture = texture
	r.fontScale = scale
	id := r.RegisterTexture(texture)
	r.fonts.SetFontTexture(id)
	core.LogDebug("gui font atlas %dx%d baked at %.1fpx", atlas.Width, atlas.Height, r.config.FontSize*scale)
	return nil
}

// RegisterTexture makes texture drawable from GUI draw commands.
func (r *Renderer) RegisterTexture(texture renderer.TextureView) TextureID {
	id := TextureID(texture.ID())
	r.textures[id] = texture
	return id
}

func (r *Renderer) UnregisterTexture(id TextureID) {
	delete(r.textures, id)
}

func (r *Renderer) FontTexture() TextureID {
	if r.fontTexture == nil {
		return 0
	}
	return TextureID(r.fontTexture.ID())
}

func (r *Renderer) FontScale() float32 {
	return r.fontScale
}

func (r *Renderer) VertexCapacity() uint32 {
	return r.vbCapacity
}

func (r *Renderer) IndexCapacity() uint32 {
	return r.ibCapacity
}

func (r *Renderer) createVertexBuffer() error {
	vb, err := r.device.CreateBuffer(metadata.BufferDesc{
		Name:    "gui_vertex_buffer",
		Kind:    metadata.BufferKindVertex,
		Size:    uint64(r.vbCapacity) * DrawVertSize,
		Dynamic: true,
	})
	if err != nil {
		return core.NewError("gui_create_vertex_buffer", err)
	}
	r.vertexBuffer = vb
	return nil
}

func (r *Renderer) createIndexBuffer() error {
	ib, err := r.device.CreateBuffer(metadata.BufferDesc{
		Name:    "gui_index_buffer",
		Kind:    metadata.BufferKindIndex,
		Size:    uint64(r.ibCapacity) * DrawIndexSize,
		Dynamic: true,
	})
	if err != nil {
		return core.NewError("gui_create_index_buffer", err)
	}
	r.indexBuffer = ib
	return nil
}

// reserve grows the buffers so they hold the whole frame. Capacities double
// until they fit and never shrink.
func (r *Renderer) reserve(vertices, indices uint32) error {
	if r.vertexBuffer == nil || vertices > r.vbCapacity {
		if r.vertexBuffer != nil {
			core.Teardown("gui_vertex_buffer_release", r.vertexBuffer.Release)
			r.vertexBuffer = nil
		}
		r.vbCapacity = math.GrowCapacity(r.vbCapacity, vertices)
		if err := r.createVertexBuffer(); err != nil {
			return err
		}
	}
	if r.indexBuffer == nil || indices > r.ibCapacity {
		if r.indexBuffer != nil {
			core.Teardown("gui_index_buffer_release", r.indexBuffer.Release)
			r.indexBuffer = nil
		}
		r.ibCapacity = math.GrowCapacity(r.ibCapacity, indices)
		if err := r.createIndexBuffer(); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) setupRenderState(ctx renderer.DeviceContext, data *DrawData) error {
	if err := ctx.SetPipeline(r.pipeline); err != nil {
		return err
	}
	if err := ctx.SetVertexBuffer(r.vertexBuffer); err != nil {
		return err
	}
	if err := ctx.SetIndexBuffer(r.indexBuffer, metadata.IndexTypeUint16); err != nil {
		return err
	}
	projection := Projection(data.DisplayPos, data.DisplaySize, r.transform)
	if err := ctx.SetConstants(r.pipeline, projection); err != nil {
		return err
	}
	return ctx.SetViewport(metadata.Viewport{
		Width:    float32(r.surfaceWidth) * data.FramebufferScale.X,
		Height:   float32(r.surfaceHeight) * data.FramebufferScale.Y,
		MinDepth: 0,
		MaxDepth: 1,
	})
}

// RenderDrawData draws data into the render target bound on ctx. Nothing
// is drawn for a minimized surface.
func (r *Renderer) RenderDrawData(ctx renderer.DeviceContext, data *DrawData) error {
	if !data.Valid() || r.surfaceWidth <= 0 || r.surfaceHeight <= 0 {
		return nil
	}
	if r.pipeline == nil {
		return core.Errorf("gui_render_draw_data", core.ErrNotInitialized, "device objects were not created")
	}
	if len(data.CmdLists) == 0 {
		return nil
	}

	if uint64(data.TotalVtxCount) > uint64(^uint32(0)) || uint64(data.TotalIdxCount) > uint64(^uint32(0)) {
		return core.Errorf("gui_render_draw_data", core.ErrUnknown, "draw data of %d vertices and %d indices does not fit the buffers", data.TotalVtxCount, data.TotalIdxCount)
	}
	if err := r.reserve(uint32(data.TotalVtxCount), uint32(data.TotalIdxCount)); err != nil {
		return err
	}
	if err := r.upload(ctx, data); err != nil {
		return err
	}
	if err := r.setupRenderState(ctx, data); err != nil {
		return core.NewError("gui_setup_render_state", err)
	}

	scale := data.FramebufferScale
	if scale.X == 0 || scale.Y == 0 {
		scale = math.NewVec2(1, 1)
	}
	displaySize := data.DisplaySize.Mul(scale)

	var lastTexture TextureID
	var globalVtxOffset, globalIdxOffset uint32
	for li := range data.CmdLists {
		list := &data.CmdLists[li]
		for ci := range list.Cmds {
			cmd := &list.Cmds[ci]
			if cmd.UserCallback != nil || cmd.ResetRenderState {
				if cmd.ResetRenderState {
					if err := r.setupRenderState(ctx, data); err != nil {
						return core.NewError("gui_setup_render_state", err)
					}
					lastTexture = 0
				} else {
					cmd.UserCallback(list, cmd)
				}
				continue
			}
			if cmd.ElemCount == 0 {
				continue
			}

			clip := math.NewVec4(
				(cmd.ClipRect.X-data.DisplayPos.X)*scale.X,
				(cmd.ClipRect.Y-data.DisplayPos.Y)*scale.Y,
				(cmd.ClipRect.Z-data.DisplayPos.X)*scale.X,
				(cmd.ClipRect.W-data.DisplayPos.Y)*scale.Y,
			)
			clip = TransformClipRect(r.transform, displaySize, clip)
			if clip.Z <= clip.X || clip.W <= clip.Y {
				continue
			}
			if err := ctx.SetScissor(metadata.Rect{
				Left:   int32(clip.X),
				Top:    int32(clip.Y),
				Right:  int32(clip.Z),
				Bottom: int32(clip.W),
			}); err != nil {
				return core.NewError("gui_set_scissor", err)
			}

			if cmd.TextureID != lastTexture {
				texture, ok := r.textures[cmd.TextureID]
				if !ok {
					core.LogWarn("gui draw command references unknown texture %d", cmd.TextureID)
					continue
				}
				if err := ctx.BindTexture(r.pipeline, texture); err != nil {
					return core.NewError("gui_bind_texture", err)
				}
				lastTexture = cmd.TextureID
				r.stats.TextureBinds++
			}

			if err := ctx.DrawIndexed(metadata.DrawIndexedAttribs{
				NumIndices:         cmd.ElemCount,
				IndexType:          metadata.IndexTypeUint16,
				FirstIndexLocation: cmd.IdxOffset + globalIdxOffset,
				BaseVertex:         int32(cmd.VtxOffset + globalVtxOffset),
			}); err != nil {
				return core.NewError("gui_draw_indexed", err)
			}
			r.stats.DrawCalls++
		}
		globalIdxOffset += uint32(len(list.IdxBuffer))
		globalVtxOffset += uint32(len(list.VtxBuffer))
	}
	r.stats.Vertices += data.TotalVtxCount
	r.stats.Indices += data.TotalIdxCount
	return nil
}

// upload copies every list into one contiguous vertex and index range.
func (r *Renderer) upload(ctx renderer.DeviceContext, data *DrawData) error {
	r.vertices = r.vertices[:0]
	r.indices = r.indices[:0]
	for i := range data.CmdLists {
		r.vertices = append(r.vertices, data.CmdLists[i].VtxBuffer...)
		r.indices = append(r.indices, data.CmdLists[i].IdxBuffer...)
	}
	if len(r.vertices) != data.TotalVtxCount || len(r.indices) != data.TotalIdxCount {
		return core.Errorf("gui_upload", core.ErrUnknown, "draw data totals %d/%d do not match lists %d/%d",
			data.TotalVtxCount, data.TotalIdxCount, len(r.vertices), len(r.indices))
	}
	if len(r.vertices) > 0 {
		raw := unsafe.Slice((*byte)(unsafe.Pointer(&r.vertices[0])), len(r.vertices)*DrawVertSize)
		if err := ctx.UpdateBuffer(r.vertexBuffer, 0, raw); err != nil {
			return core.NewError("gui_update_vertex_buffer", err)
		}
	}
	if len(r.indices) > 0 {
		raw := unsafe.Slice((*byte)(unsafe.Pointer(&r.indices[0])), len(r.indices)*DrawIndexSize)
		if err := ctx.UpdateBuffer(r.indexBuffer, 0, raw); err != nil {
			return core.NewError("gui_update_index_buffer", err)
		}
	}
	return nil
}

// Release drops every GPU object and forgets registered textures.
func (r *Renderer) Release() {
	r.InvalidateDeviceObjects()
	r.textures = map[TextureID]renderer.TextureView{}
}

