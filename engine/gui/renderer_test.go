package gui

import (
	"testing"

	"github.com/spaghettifunk/anima-gfx/engine/math"
	"github.com/spaghettifunk/anima-gfx/engine/platform"
	"github.com/spaghettifunk/anima-gfx/engine/renderer"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/headless"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
)

type fixture struct {
	rec      *headless.Recorder
	device   renderer.Device
	ctx      renderer.DeviceContext
	fonts    *HeadlessContext
	renderer *Renderer
}

func newFixture(t *testing.T, cfg RendererConfig) *fixture {
	t.Helper()
	rec := headless.NewRecorder()
	device, ctx, err := headless.NewFactory(rec).CreateDeviceAndContext()
	if err != nil {
		t.Fatal(err)
	}
	handle, _ := NewHeadlessLibrary().CreateContext()
	fonts := handle.(*HeadlessContext)

	// bind a render target so draws are legal
	sys := platform.NewHeadless()
	sys.Init()
	win, _ := sys.CreateWindow(0, 0, 1280, 800, "gui")
	sc, err := headless.NewFactory(rec).CreateSwapchain(device, ctx, metadata.DefaultSwapchainDesc(1280, 800), win)
	if err != nil {
		t.Fatal(err)
	}
	rtv, _ := sc.BackBufferRTV()
	ctx.SetRenderTargets(rtv, sc.DepthBufferDSV())

	return &fixture{rec: rec, device: device, ctx: ctx, fonts: fonts, renderer: NewRenderer(device, fonts, cfg)}
}

func makeList(vertices, indices int, cmds ...DrawCmd) DrawList {
	return DrawList{
		VtxBuffer: make([]DrawVert, vertices),
		IdxBuffer: make([]DrawIdx, indices),
		Cmds:      cmds,
	}
}

func makeData(lists ...DrawList) *DrawData {
	d := &DrawData{
		DisplaySize:      math.NewVec2(1280, 800),
		FramebufferScale: math.NewVec2(1, 1),
		CmdLists:         lists,
	}
	d.Totals()
	return d
}

func fullClip() math.Vec4 {
	return math.NewVec4(0, 0, 1280, 800)
}

func TestRendererCreatesDeviceObjectsOnce(t *testing.T) {
	f := newFixture(t, RendererConfig{})
	for i := 0; i < 3; i++ {
		if err := f.renderer.NewFrame(1280, 800, metadata.SurfaceTransformIdentity, 1); err != nil {
			t.Fatal(err)
		}
	}
	if n := f.rec.Calls("CreatePipeline"); n != 1 {
		t.Fatalf("have %d\nwant 1", n)
	}
	if n := f.rec.Calls("CreateTexture"); n != 1 {
		t.Fatalf("have %d\nwant 1", n)
	}
	if f.renderer.VertexCapacity() != DefaultInitialVertexCapacity || f.renderer.IndexCapacity() != DefaultInitialIndexCapacity {
		t.Fatalf("have %d/%d\nwant %d/%d", f.renderer.VertexCapacity(), f.renderer.IndexCapacity(), DefaultInitialVertexCapacity, DefaultInitialIndexCapacity)
	}
	if f.fonts.FontTexture() != f.renderer.FontTexture() || f.fonts.FontTexture() == 0 {
		t.Fatalf("have font texture %d\nwant %d", f.fonts.FontTexture(), f.renderer.FontTexture())
	}
	if sizes := f.fonts.FontSizes(); len(sizes) != 1 || sizes[0] != 13 {
		t.Fatalf("have %v\nwant [13]", sizes)
	}
}

func TestRendererBufferGrowth(t *testing.T) {
	f := newFixture(t, RendererConfig{InitialVertexCapacity: 4, InitialIndexCapacity: 6})
	if err := f.renderer.NewFrame(1280, 800, metadata.SurfaceTransformIdentity, 1); err != nil {
		t.Fatal(err)
	}

	steps := []struct {
		vertices, indices int
		wantVB, wantIB    uint32
	}{
		{4, 6, 4, 6},
		{5, 6, 8, 6},
		{20, 13, 32, 24},
		{3, 3, 32, 24},
	}
	for _, s := range steps {
		data := makeData(makeList(s.vertices, s.indices, DrawCmd{ClipRect: fullClip(), TextureID: f.renderer.FontTexture(), ElemCount: 3}))
		if err := f.renderer.RenderDrawData(f.ctx, data); err != nil {
			t.Fatal(err)
		}
		if f.renderer.VertexCapacity() != s.wantVB || f.renderer.IndexCapacity() != s.wantIB {
			t.Fatalf("%d/%d: have %d/%d\nwant %d/%d", s.vertices, s.indices,
				f.renderer.VertexCapacity(), f.renderer.IndexCapacity(), s.wantVB, s.wantIB)
		}
	}
	// initial buffers plus one regrowth of the vertex buffer at step 2 and
	// one of each at step 3
	if n := f.rec.Calls("CreateBuffer"); n != 5 {
		t.Fatalf("have %d\nwant 5", n)
	}
}

func TestRendererTextureBindCaching(t *testing.T) {
	f := newFixture(t, RendererConfig{})
	if err := f.renderer.NewFrame(1280, 800, metadata.SurfaceTransformIdentity, 1); err != nil {
		t.Fatal(err)
	}
	other, err := f.device.CreateTexture(metadata.TextureDesc{Name: "image", Width: 1, Height: 1}, []byte{1, 2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	image := f.renderer.RegisterTexture(other)
	font := f.renderer.FontTexture()

	data := makeData(makeList(12, 18,
		DrawCmd{ClipRect: fullClip(), TextureID: font, ElemCount: 6},
		DrawCmd{ClipRect: fullClip(), TextureID: font, IdxOffset: 6, ElemCount: 6},
		DrawCmd{ClipRect: fullClip(), TextureID: image, IdxOffset: 12, ElemCount: 6},
	))
	if err := f.renderer.RenderDrawData(f.ctx, data); err != nil {
		t.Fatal(err)
	}
	binds := f.rec.Binds()
	if len(binds) != 2 || binds[0] != uint64(font) || binds[1] != uint64(image) {
		t.Fatalf("have %v\nwant [%d %d]", binds, font, image)
	}
	if n := len(f.rec.Draws()); n != 3 {
		t.Fatalf("have %d\nwant 3", n)
	}
}

func TestRendererOffsetsAcrossLists(t *testing.T) {
	f := newFixture(t, RendererConfig{})
	f.renderer.NewFrame(1280, 800, metadata.SurfaceTransformIdentity, 1)
	font := f.renderer.FontTexture()

	data := makeData(
		makeList(4, 6, DrawCmd{ClipRect: fullClip(), TextureID: font, ElemCount: 6}),
		makeList(8, 12,
			DrawCmd{ClipRect: fullClip(), TextureID: font, ElemCount: 6},
			DrawCmd{ClipRect: fullClip(), TextureID: font, VtxOffset: 4, IdxOffset: 6, ElemCount: 6},
		),
	)
	if err := f.renderer.RenderDrawData(f.ctx, data); err != nil {
		t.Fatal(err)
	}
	want := []metadata.DrawIndexedAttribs{
		{NumIndices: 6, FirstIndexLocation: 0, BaseVertex: 0},
		{NumIndices: 6, FirstIndexLocation: 6, BaseVertex: 4},
		{NumIndices: 6, FirstIndexLocation: 12, BaseVertex: 8},
	}
	draws := f.rec.Draws()
	if len(draws) != len(want) {
		t.Fatalf("have %d draws\nwant %d", len(draws), len(want))
	}
	for i := range want {
		if draws[i] != want[i] {
			t.Fatalf("draw %d:\nhave %+v\nwant %+v", i, draws[i], want[i])
		}
	}
}

func TestRendererMinimizedSkips(t *testing.T) {
	f := newFixture(t, RendererConfig{})
	f.renderer.NewFrame(0, 0, metadata.SurfaceTransformIdentity, 1)
	data := makeData(makeList(4, 6, DrawCmd{ClipRect: fullClip(), ElemCount: 6}))
	if err := f.renderer.RenderDrawData(f.ctx, data); err != nil {
		t.Fatal(err)
	}
	data.DisplaySize = math.NewVec2(0, 0)
	f.renderer.NewFrame(1280, 800, metadata.SurfaceTransformIdentity, 1)
	if err := f.renderer.RenderDrawData(f.ctx, data); err != nil {
		t.Fatal(err)
	}
	if n := f.rec.Calls("DrawIndexed") + f.rec.Calls("UpdateBuffer"); n != 0 {
		t.Fatalf("have %d calls\nwant 0", n)
	}
}

func TestRendererScissorAndCulling(t *testing.T) {
	f := newFixture(t, RendererConfig{})
	f.renderer.NewFrame(800, 1280, metadata.SurfaceTransformRotate90, 1)
	font := f.renderer.FontTexture()

	data := makeData(makeList(4, 12,
		DrawCmd{ClipRect: math.NewVec4(10, 20, 300, 400), TextureID: font, ElemCount: 6},
		DrawCmd{ClipRect: math.NewVec4(50, 50, 50, 90), TextureID: font, IdxOffset: 6, ElemCount: 6},
	))
	if err := f.renderer.RenderDrawData(f.ctx, data); err != nil {
		t.Fatal(err)
	}
	scissors := f.rec.Scissors()
	want := metadata.Rect{Left: 400, Top: 10, Right: 780, Bottom: 300}
	if len(scissors) != 1 || scissors[0] != want {
		t.Fatalf("have %v\nwant [%v]", scissors, want)
	}
	if n := len(f.rec.Draws()); n != 1 {
		t.Fatalf("have %d draws\nwant 1", n)
	}
}

func TestRendererUserCallbacks(t *testing.T) {
	f := newFixture(t, RendererConfig{})
	f.renderer.NewFrame(1280, 800, metadata.SurfaceTransformIdentity, 1)
	font := f.renderer.FontTexture()

	called := 0
	data := makeData(makeList(4, 12,
		DrawCmd{ClipRect: fullClip(), TextureID: font, ElemCount: 6},
		DrawCmd{UserCallback: func(*DrawList, *DrawCmd) { called++ }},
		DrawCmd{ResetRenderState: true},
		DrawCmd{ClipRect: fullClip(), TextureID: font, IdxOffset: 6, ElemCount: 6},
	))
	if err := f.renderer.RenderDrawData(f.ctx, data); err != nil {
		t.Fatal(err)
	}
	if called != 1 {
		t.Fatalf("have %d callback calls\nwant 1", called)
	}
	if n := f.rec.Calls("SetPipeline"); n != 2 {
		t.Fatalf("have %d pipeline binds\nwant 2", n)
	}
	// state reset forgets the bound texture
	if n := len(f.rec.Binds()); n != 2 {
		t.Fatalf("have %d texture binds\nwant 2", n)
	}
}

func TestRendererFontScale(t *testing.T) {
	f := newFixture(t, RendererConfig{InitialVertexCapacity: 16, InitialIndexCapacity: 16})
	f.renderer.NewFrame(1280, 800, metadata.SurfaceTransformIdentity, 1)
	first := f.renderer.FontTexture()

	f.renderer.NewFrame(1280, 800, metadata.SurfaceTransformIdentity, 2)
	if sizes := f.fonts.FontSizes(); len(sizes) != 2 || sizes[1] != 26 {
		t.Fatalf("have %v\nwant [13 26]", sizes)
	}
	if f.renderer.FontTexture() == first {
		t.Fatal("font texture was not recreated")
	}
	if n := f.rec.Calls("CreatePipeline"); n != 1 {
		t.Fatalf("font rebake recreated the pipeline: have %d\nwant 1", n)
	}
	if n := f.rec.Calls("TextureRelease"); n != 1 {
		t.Fatalf("have %d\nwant 1", n)
	}

	if err := f.renderer.CreateDeviceObjects(2, true); err != nil {
		t.Fatal(err)
	}
	if n := f.rec.Calls("CreatePipeline"); n != 2 {
		t.Fatalf("have %d\nwant 2", n)
	}
	if f.renderer.VertexCapacity() != 16 {
		t.Fatalf("have %d\nwant 16", f.renderer.VertexCapacity())
	}
}
