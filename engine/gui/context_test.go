package gui

import (
	"testing"
	"time"

	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/platform"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/headless"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
)

type manualTime struct {
	now time.Time
}

func (m *manualTime) read() time.Time {
	return m.now
}

func newTestContext(t *testing.T, lib Library) (*Context, *headless.Recorder, *manualTime) {
	t.Helper()
	rec := headless.NewRecorder()
	device, _, err := headless.NewFactory(rec).CreateDeviceAndContext()
	if err != nil {
		t.Fatal(err)
	}
	clock := &manualTime{now: time.Unix(1000, 0)}
	c, err := NewContext(lib, device, ContextConfig{
		Clock:          core.NewClockWithSource(clock.read),
		EventQueueSize: 4,
	})
	if err != nil {
		t.Fatal(err)
	}
	return c, rec, clock
}

func TestContextDeltaTime(t *testing.T) {
	lib := NewHeadlessLibrary()
	c, _, clock := newTestContext(t, lib)
	c.Sync(metadata.DefaultSwapchainDesc(640, 480), 1)
	handle := c.Handle().(*HeadlessContext)

	if err := c.BeginFrame(640, 480, metadata.SurfaceTransformIdentity, 1); err != nil {
		t.Fatal(err)
	}
	if have := handle.LastInput().DeltaTime; have != float32(1.0/60.0) {
		t.Fatalf("first frame delta:\nhave %v\nwant %v", have, float32(1.0/60.0))
	}
	handle.Render()

	clock.now = clock.now.Add(250 * time.Millisecond)
	if err := c.BeginFrame(640, 480, metadata.SurfaceTransformIdentity, 1); err != nil {
		t.Fatal(err)
	}
	if have := handle.LastInput().DeltaTime; have != 0.25 {
		t.Fatalf("second frame delta:\nhave %v\nwant 0.25", have)
	}
	handle.Render()

	if err := c.BeginFrame(640, 480, metadata.SurfaceTransformIdentity, 1); err != nil {
		t.Fatal(err)
	}
	if have := handle.LastInput().DeltaTime; have <= 0 {
		t.Fatalf("a frame without elapsed time must still advance, have %v", have)
	}
}

func TestContextRequiresSync(t *testing.T) {
	c, _, _ := newTestContext(t, NewHeadlessLibrary())
	if err := c.BeginFrame(1, 1, metadata.SurfaceTransformIdentity, 1); err == nil {
		t.Fatal("BeginFrame before Sync: want error")
	}
}

func TestContextSyncRebuildsOnFormatChange(t *testing.T) {
	c, rec, _ := newTestContext(t, NewHeadlessLibrary())
	desc := metadata.DefaultSwapchainDesc(640, 480)

	c.Sync(desc, 1)
	first := c.Renderer()
	c.Sync(desc, 1)
	if c.Renderer() != first {
		t.Fatal("same formats must keep the renderer")
	}
	c.Sync(desc, 2)
	if c.Renderer() != first {
		t.Fatal("a dpi change must keep the renderer")
	}
	if c.DPI() != 2 {
		t.Fatalf("have %v\nwant 2", c.DPI())
	}

	if err := c.BeginFrame(640, 480, metadata.SurfaceTransformIdentity, 2); err != nil {
		t.Fatal(err)
	}
	sizes := c.Handle().(*HeadlessContext).FontSizes()
	if len(sizes) != 1 || sizes[0] != 26 {
		t.Fatalf("have %v\nwant [26]", sizes)
	}
	c.Handle().(*HeadlessContext).Render()

	desc.ColorBufferFormat = metadata.TextureFormatBGRA8UnormSRGB
	c.Sync(desc, 2)
	if c.Renderer() == first {
		t.Fatal("a new color format must rebuild the renderer")
	}
	if cfg := c.Renderer().Config(); cfg.ColorFormat != metadata.TextureFormatBGRA8UnormSRGB {
		t.Fatalf("have %s\nwant %s", cfg.ColorFormat, metadata.TextureFormatBGRA8UnormSRGB)
	}
	if n := rec.Calls("PipelineRelease"); n != 1 {
		t.Fatalf("have %d\nwant 1", n)
	}
}

func TestContextInput(t *testing.T) {
	c, _, _ := newTestContext(t, NewHeadlessLibrary())
	c.Sync(metadata.DefaultSwapchainDesc(640, 480), 1)
	handle := c.Handle().(*HeadlessContext)

	c.PushEvent(core.InputEvent{Type: core.InputEventMouseMove, X: 10, Y: 20})
	c.PushEvent(core.InputEvent{Type: core.InputEventButton, Button: core.BUTTON_LEFT, Pressed: true})
	c.PushEvent(core.InputEvent{Type: core.InputEventKey, Key: 65, Pressed: true})
	c.PushEvent(core.InputEvent{Type: core.InputEventChar, Char: 'x'})

	c.BeginFrame(640, 480, metadata.SurfaceTransformIdentity, 1)
	in := handle.LastInput()
	if in.MousePos.X != 10 || in.MousePos.Y != 20 {
		t.Fatalf("have %v\nwant {10 20}", in.MousePos)
	}
	if !in.MouseDown[core.BUTTON_LEFT] {
		t.Fatal("left button not forwarded")
	}
	if len(in.KeysPressed) != 1 || in.KeysPressed[0] != 65 {
		t.Fatalf("have %v\nwant [65]", in.KeysPressed)
	}
	if string(in.Chars) != "x" {
		t.Fatalf("have %q\nwant %q", string(in.Chars), "x")
	}
	handle.Render()

	c.PushEvent(core.InputEvent{Type: core.InputEventKey, Key: 65, Pressed: false})
	c.BeginFrame(640, 480, metadata.SurfaceTransformIdentity, 1)
	in = handle.LastInput()
	if len(in.KeysReleased) != 1 || len(in.KeysPressed) != 0 || len(in.Chars) != 0 {
		t.Fatalf("have pressed=%v released=%v chars=%v\nwant pressed=[] released=[65] chars=[]", in.KeysPressed, in.KeysReleased, in.Chars)
	}
	if !in.MouseDown[core.BUTTON_LEFT] {
		t.Fatal("button state must persist across frames")
	}
}

func TestContextQueueDropsOldest(t *testing.T) {
	c, _, _ := newTestContext(t, NewHeadlessLibrary())
	c.Sync(metadata.DefaultSwapchainDesc(640, 480), 1)
	for i := 0; i < 6; i++ {
		c.PushEvent(core.InputEvent{Type: core.InputEventMouseMove, X: float32(i), Y: float32(i)})
	}
	c.BeginFrame(640, 480, metadata.SurfaceTransformIdentity, 1)
	if have := c.Handle().(*HeadlessContext).LastInput().MousePos.X; have != 5 {
		t.Fatalf("have %v\nwant 5", have)
	}
}

func TestContextRotatedDisplaySize(t *testing.T) {
	c, _, _ := newTestContext(t, NewHeadlessLibrary())
	c.Sync(metadata.DefaultSwapchainDesc(800, 1280), 1)
	c.BeginFrame(800, 1280, metadata.SurfaceTransformRotate90, 1)
	size := c.Handle().(*HeadlessContext).LastInput().DisplaySize
	if size.X != 1280 || size.Y != 800 {
		t.Fatalf("have %v\nwant {1280 800}", size)
	}
}

func TestContextEndFrameDraws(t *testing.T) {
	c, rec, _ := newTestContext(t, NewHeadlessLibrary())
	factory := headless.NewFactory(rec)
	device, ctx, _ := factory.CreateDeviceAndContext()
	sys := platform.NewHeadless()
	sys.Init()
	win, _ := sys.CreateWindow(0, 0, 640, 480, "gui")
	sc, err := factory.CreateSwapchain(device, ctx, metadata.DefaultSwapchainDesc(640, 480), win)
	if err != nil {
		t.Fatal(err)
	}
	rtv, _ := sc.BackBufferRTV()
	ctx.SetRenderTargets(rtv, sc.DepthBufferDSV())

	c.Sync(sc.Desc(), 1)
	if err := c.BeginFrame(640, 480, metadata.SurfaceTransformIdentity, 1); err != nil {
		t.Fatal(err)
	}
	if err := c.EndFrame(ctx); err != nil {
		t.Fatal(err)
	}
	if n := rec.Calls("DrawIndexed"); n != 1 {
		t.Fatalf("have %d\nwant 1", n)
	}
	if st := c.Renderer().Stats(); st.DrawCalls != 1 || st.Vertices != 4 || st.Indices != 6 {
		t.Fatalf("have %+v\nwant 1 draw, 4 vertices, 6 indices", st)
	}

	c.Destroy()
	if c.Renderer() != nil {
		t.Fatal("renderer survived Destroy")
	}
}
