package engine

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spaghettifunk/anima-gfx/engine/config"
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/gui"
	"github.com/spaghettifunk/anima-gfx/engine/platform"
	"github.com/spaghettifunk/anima-gfx/engine/renderer"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/headless"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
)

var errBoom = errors.New("boom")

type fixture struct {
	gfx *Gfx
	rec *headless.Recorder
	ws  *platform.Headless
	lib *gui.HeadlessLibrary
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Platform.Name = "headless"
	cfg.Renderer.Backend = "headless"
	cfg.GUI.Library = "headless"
	cfg.Renderer.InitialVertexCapacity = 1024
	cfg.Renderer.InitialIndexCapacity = 1024
	cfg.Renderer.FrameStackCapacity = 4
	cfg.Assets.Dir = filepath.Join(t.TempDir(), "assets")
	return cfg
}

func newFixture(t *testing.T, cfg *config.Config, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		rec: headless.NewRecorder(),
		ws:  platform.NewHeadless(),
		lib: gui.NewHeadlessLibrary(),
	}
	now := time.Unix(0, 0)
	clock := core.NewClockWithSource(func() time.Time {
		now = now.Add(16 * time.Millisecond)
		return now
	})
	base := []Option{
		WithWindowSystem(f.ws),
		WithGUILibrary(f.lib),
		WithFactory(func(renderer.FactoryOptions) (renderer.Factory, error) {
			return headless.NewFactory(f.rec), nil
		}),
		WithClock(clock),
	}
	f.gfx = New(append(base, opts...)...)
	if cfg == nil {
		cfg = testConfig(t)
	}
	if err := f.gfx.Init(cfg); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(f.gfx.Destroy)
	return f
}

func (f *fixture) open(t *testing.T) *Window {
	t.Helper()
	w, err := f.gfx.OpenWindow(100, 100, 1280, 800)
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func (f *fixture) headlessWindow(t *testing.T, i int) *platform.HeadlessWindow {
	t.Helper()
	windows := f.ws.Windows()
	if i >= len(windows) {
		t.Fatalf("have %d native windows\nwant more than %d", len(windows), i)
	}
	return windows[i]
}

func TestEndToEnd(t *testing.T) {
	f := newFixture(t, nil)
	w := f.open(t)
	if err := w.Show(); err != nil {
		t.Fatal(err)
	}

	running, err := f.gfx.Pump()
	if err != nil || !running {
		t.Fatalf("have %t %v\nwant running", running, err)
	}
	steps := []struct {
		name string
		fn   func() error
		want FrameState
	}{
		{"begin_frame", f.gfx.BeginFrame, FrameStateFrameBegun},
		{"begin_imgui", f.gfx.BeginImgui, FrameStateImguiBegun},
		{"end_imgui", f.gfx.EndImgui, FrameStateImguiEnded},
		{"end_frame", f.gfx.EndFrame, FrameStateFrameEnded},
		{"present", f.gfx.Present, FrameStateIdle},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			t.Fatalf("%s: %v", s.name, err)
		}
		if have := w.State(); have != s.want {
			t.Fatalf("%s: have %s\nwant %s", s.name, have, s.want)
		}
	}

	if !f.headlessWindow(t, 0).Visible() {
		t.Fatal("window was not shown")
	}
	if have := f.rec.Calls("Present"); have != 1 {
		t.Fatalf("have %d presents\nwant 1", have)
	}
	if have := len(f.rec.Draws()); have == 0 {
		t.Fatal("gui drew nothing")
	}
	clears := f.rec.Clears()
	if len(clears) != 1 || clears[0] != metadata.DefaultClearColor {
		t.Fatalf("have %v\nwant [%v]", clears, metadata.DefaultClearColor)
	}
	if width, height := w.DisplaySize(); width != 1280 || height != 800 {
		t.Fatalf("have %dx%d\nwant 1280x800", width, height)
	}
}

func TestBeginWindowTwiceIsInFlight(t *testing.T) {
	f := newFixture(t, nil)
	w := f.open(t)

	fr, err := w.BeginWindow()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.BeginWindow(); !errors.Is(err, core.ErrRendererInFlight) {
		t.Fatalf("have %v\nwant %v", err, core.ErrRendererInFlight)
	}
	if fr.GUI() == nil {
		t.Fatal("live renderer has no gui")
	}
	fr.Release()
	if have := w.State(); have != FrameStateFrameEnded {
		t.Fatalf("have %s\nwant %s", have, FrameStateFrameEnded)
	}
	if err := w.Present(); err != nil {
		t.Fatal(err)
	}

	next, err := w.BeginWindow()
	if err != nil {
		t.Fatalf("begin after release: %v", err)
	}
	next.Release()
}

func TestFrameRendererReleaseRunsOnce(t *testing.T) {
	f := newFixture(t, nil)
	w := f.open(t)

	fr, err := w.BeginWindow()
	if err != nil {
		t.Fatal(err)
	}
	fr.Release()
	fr.Release()
	if have := f.rec.Calls("Flush"); have != 1 {
		t.Fatalf("have %d flushes\nwant 1", have)
	}

	// a stale token must not end the frame of its successor
	next, err := w.BeginWindow()
	if err != nil {
		t.Fatal(err)
	}
	fr.Release()
	if have := w.State(); have != FrameStateImguiBegun {
		t.Fatalf("have %s\nwant %s", have, FrameStateImguiBegun)
	}
	if !next.Live() || fr.Live() {
		t.Fatal("only the newest token may be live")
	}
	next.Release()
	if have := f.rec.Calls("Flush"); have != 2 {
		t.Fatalf("have %d flushes\nwant 2", have)
	}
}

func TestBeginWindowFailureUnwinds(t *testing.T) {
	f := newFixture(t, nil)
	w := f.open(t)

	f.rec.FailOn("CreateSwapchain", errBoom)
	if _, err := w.BeginWindow(); !errors.Is(err, core.ErrSurfaceCreationFailed) {
		t.Fatalf("have %v\nwant %v", err, core.ErrSurfaceCreationFailed)
	}
	f.rec.FailOn("CreateSwapchain", nil)

	fr, err := w.BeginWindow()
	if err != nil {
		t.Fatalf("the stack was not unwound: %v", err)
	}
	fr.Release()
}

func TestUserErrorStillEndsFrame(t *testing.T) {
	f := newFixture(t, nil)
	w := f.open(t)

	err := w.DoFrame(func(*Window) error { return errBoom })
	if !errors.Is(err, errBoom) {
		t.Fatalf("have %v\nwant %v", err, errBoom)
	}
	if have := f.rec.Calls("Flush"); have != 1 {
		t.Fatalf("have %d flushes\nwant 1", have)
	}
	if have := w.State(); have != FrameStateFrameEnded {
		t.Fatalf("have %s\nwant %s", have, FrameStateFrameEnded)
	}

	err = w.DoFrame(func(*Window) error { panic("user code") })
	if !errors.Is(err, core.ErrNotSpecified) {
		t.Fatalf("have %v\nwant a gfx error", err)
	}
	if have := f.rec.Calls("Flush"); have != 2 {
		t.Fatalf("have %d flushes\nwant 2", have)
	}
}

func TestDoImguiEndsOnError(t *testing.T) {
	f := newFixture(t, nil)
	w := f.open(t)

	err := w.DoFrame(func(w *Window) error {
		return w.DoImgui(func(*Window) error { return errBoom })
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("have %v\nwant %v", err, errBoom)
	}
	if have := f.rec.Calls("DrawIndexed"); have == 0 {
		t.Fatal("gui frame was not drawn")
	}
	if have := w.State(); have != FrameStateFrameEnded {
		t.Fatalf("have %s\nwant %s", have, FrameStateFrameEnded)
	}
}

func TestBeginFrameFailureChangesNothing(t *testing.T) {
	f := newFixture(t, nil)
	w := f.open(t)

	f.rec.FailOn("CreateSwapchain", errBoom)
	if err := w.BeginFrame(); !errors.Is(err, core.ErrSurfaceCreationFailed) {
		t.Fatalf("have %v\nwant %v", err, core.ErrSurfaceCreationFailed)
	}
	if have := w.State(); have != FrameStateIdle {
		t.Fatalf("have %s\nwant %s", have, FrameStateIdle)
	}
	if f.gfx.Globals().Alive() {
		t.Fatal("globals survived a failed first frame")
	}
	if w.GUI() != nil {
		t.Fatal("gui created by a failed frame")
	}
	f.rec.FailOn("CreateSwapchain", nil)

	native := f.headlessWindow(t, 0)
	native.FailSize = errBoom
	if err := w.BeginFrame(); !errors.Is(err, errBoom) {
		t.Fatalf("have %v\nwant %v", err, errBoom)
	}
	native.FailSize = nil

	if err := w.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	if err := w.BeginFrame(); !errors.Is(err, core.ErrInvalidFrameState) {
		t.Fatalf("have %v\nwant %v", err, core.ErrInvalidFrameState)
	}
}

func TestGlobalsRecreatedAfterZeroWindows(t *testing.T) {
	f := newFixture(t, nil)
	created := 0
	f.gfx.Events().Register(core.EVENT_CODE_GLOBALS_CREATED, func(core.EventContext) bool {
		created++
		return false
	})

	first := f.open(t)
	second := f.open(t)
	for _, w := range []*Window{first, second} {
		if err := w.DoFrame(func(*Window) error { return nil }); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.gfx.Present(); err != nil {
		t.Fatal(err)
	}
	if created != 1 {
		t.Fatalf("have %d constructions\nwant 1", created)
	}

	first.Close()
	second.Close()
	if f.gfx.Globals().Alive() {
		t.Fatal("globals outlived the last window")
	}
	if f.ws.Initialized() {
		t.Fatal("platform outlived the last window")
	}
	if running, _ := f.gfx.Pump(); running {
		t.Fatal("pump must stop without windows")
	}

	third := f.open(t)
	if err := third.DoFrame(func(*Window) error { return nil }); err != nil {
		t.Fatal(err)
	}
	if created != 2 {
		t.Fatalf("have %d constructions\nwant 2", created)
	}
	if have := f.gfx.Globals().Generation(); have != 2 {
		t.Fatalf("have generation %d\nwant 2", have)
	}
}

func TestResizeOnlyWhenSizeChanges(t *testing.T) {
	f := newFixture(t, nil)
	w := f.open(t)

	var resized []core.WindowEvent
	f.gfx.Events().Register(core.EVENT_CODE_RESIZED, func(ctx core.EventContext) bool {
		resized = append(resized, *ctx.Data.(*core.WindowEvent))
		return false
	})

	for i := 0; i < 3; i++ {
		if _, err := f.gfx.DoFrame(func() error { return nil }); err != nil {
			t.Fatal(err)
		}
	}
	if have := f.rec.Calls("Resize"); have != 0 {
		t.Fatalf("have %d resizes\nwant 0", have)
	}

	f.headlessWindow(t, 0).Resize(640, 480)
	if _, err := f.gfx.DoFrame(func() error { return nil }); err != nil {
		t.Fatal(err)
	}
	if have := f.rec.Calls("Resize"); have != 1 {
		t.Fatalf("have %d resizes\nwant 1", have)
	}
	if len(resized) != 1 || resized[0].Width != 640 || resized[0].Height != 480 || resized[0].WindowID != w.ID() {
		t.Fatalf("have %+v\nwant one 640x480 event for %s", resized, w.ID())
	}
	if desc := w.resources.Desc(); desc.Width != 640 || desc.Height != 480 {
		t.Fatalf("have %dx%d\nwant 640x480", desc.Width, desc.Height)
	}
}

func TestMinimizedWindowKeepsSwapchain(t *testing.T) {
	f := newFixture(t, nil)
	w := f.open(t)
	if err := w.DoFrame(func(*Window) error { return nil }); err != nil {
		t.Fatal(err)
	}
	if err := w.Present(); err != nil {
		t.Fatal(err)
	}

	f.headlessWindow(t, 0).Resize(0, 0)
	if err := w.DoFrame(func(w *Window) error {
		return w.DoImgui(func(*Window) error { return nil })
	}); err != nil {
		t.Fatal(err)
	}
	if have := f.rec.Calls("Resize"); have != 0 {
		t.Fatalf("have %d resizes\nwant 0", have)
	}
}

func TestPumpStops(t *testing.T) {
	f := newFixture(t, nil)
	if running, err := f.gfx.Pump(); running || err != nil {
		t.Fatalf("have %t %v\nwant stopped without windows", running, err)
	}

	f.open(t)
	secondary := f.open(t)
	if running, _ := f.gfx.Pump(); !running {
		t.Fatal("pump stopped with open windows")
	}

	f.headlessWindow(t, 1).RequestClose()
	if running, _ := f.gfx.Pump(); !running {
		t.Fatal("a secondary window must not stop the loop")
	}
	if !secondary.WantsToClose() {
		t.Fatal("close request was lost")
	}

	f.headlessWindow(t, 0).RequestClose()
	if running, _ := f.gfx.Pump(); running {
		t.Fatal("the primary window requested close")
	}
}

func TestRequestQuit(t *testing.T) {
	f := newFixture(t, nil)
	f.open(t)
	f.gfx.RequestQuit()
	if running, _ := f.gfx.Pump(); running {
		t.Fatal("pump ignored the quit request")
	}
}

func TestPresentDropsClosedWindows(t *testing.T) {
	f := newFixture(t, nil)
	f.open(t)
	second := f.open(t)
	if _, err := f.gfx.DoFrame(func() error { return nil }); err != nil {
		t.Fatal(err)
	}
	second.Close()
	if err := f.gfx.Present(); err != nil {
		t.Fatal(err)
	}
	if have := len(f.gfx.windows); have != 1 {
		t.Fatalf("have %d windows\nwant 1", have)
	}
	if have := len(f.gfx.Windows()); have != 1 {
		t.Fatalf("have %d live windows\nwant 1", have)
	}
}

func TestPresentStopsAtFirstError(t *testing.T) {
	f := newFixture(t, nil)
	f.open(t)
	f.open(t)
	f.rec.FailOn("Present", errBoom)
	_, err := f.gfx.DoFrame(func() error { return nil })
	if !errors.Is(err, errBoom) {
		t.Fatalf("have %v\nwant %v", err, errBoom)
	}
	if have := f.rec.Calls("Present"); have != 1 {
		t.Fatalf("have %d presents\nwant 1", have)
	}
	f.rec.FailOn("Present", nil)
	if _, err := f.gfx.DoFrame(func() error { return nil }); err != nil {
		t.Fatalf("next frame: %v", err)
	}
}

func TestEndImguiFailureStillEndsFrame(t *testing.T) {
	f := newFixture(t, nil)
	w := f.open(t)
	if err := w.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	if err := w.BeginImgui(); err != nil {
		t.Fatal(err)
	}
	f.rec.FailOn("DrawIndexed", errBoom)
	if err := w.EndImgui(); !errors.Is(err, errBoom) {
		t.Fatalf("have %v\nwant %v", err, errBoom)
	}
	if have := w.State(); have != FrameStateImguiEnded {
		t.Fatalf("have %s\nwant %s", have, FrameStateImguiEnded)
	}
	f.rec.FailOn("DrawIndexed", nil)
	if err := w.EndFrame(); err != nil {
		t.Fatal(err)
	}
	if have := w.State(); have != FrameStateFrameEnded {
		t.Fatalf("have %s\nwant %s", have, FrameStateFrameEnded)
	}
}

func TestEndFrameWithoutImgui(t *testing.T) {
	f := newFixture(t, nil)
	w := f.open(t)
	if err := w.EndFrame(); !errors.Is(err, core.ErrInvalidFrameState) {
		t.Fatalf("have %v\nwant %v", err, core.ErrInvalidFrameState)
	}
	if err := w.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	if err := w.EndFrame(); err != nil {
		t.Fatal(err)
	}
	if have := len(f.rec.Clears()); have != 1 {
		t.Fatalf("have %d clears\nwant 1", have)
	}
	if err := w.Present(); err != nil {
		t.Fatal(err)
	}
	if err := w.Present(); err != nil {
		t.Fatalf("present on idle must be a no-op: %v", err)
	}
	if have := f.rec.Calls("Present"); have != 1 {
		t.Fatalf("have %d presents\nwant 1", have)
	}
}

func TestInputBufferedUntilGUIExists(t *testing.T) {
	f := newFixture(t, nil)
	w := f.open(t)
	f.headlessWindow(t, 0).MoveCursor(10, 20)
	if running, err := f.gfx.Pump(); !running || err != nil {
		t.Fatalf("have %t %v\nwant running", running, err)
	}
	if err := w.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	if err := w.BeginImgui(); err != nil {
		t.Fatal(err)
	}
	in := w.GUI().Handle().(*gui.HeadlessContext).LastInput()
	if in.MousePos.X != 10 || in.MousePos.Y != 20 {
		t.Fatalf("have %v\nwant (10, 20)", in.MousePos)
	}
	if err := w.EndFrame(); err != nil {
		t.Fatal(err)
	}
}

func TestApplyConfigAtNextPump(t *testing.T) {
	f := newFixture(t, nil)
	f.open(t)

	next := config.Default()
	next.Renderer.ClearColor = [4]float32{1, 0, 0, 1}
	next.GUI.DPIScale = 2
	f.gfx.ApplyConfig(next)
	if _, err := f.gfx.DoFrame(func() error { return nil }); err != nil {
		t.Fatal(err)
	}
	want := metadata.Color{R: 1, A: 1}
	if clears := f.rec.Clears(); len(clears) != 1 || clears[0] != want {
		t.Fatalf("have %v\nwant [%v]", clears, want)
	}
	if have := f.gfx.Windows()[0].DPIScale(); have != 2 {
		t.Fatalf("have %v\nwant 2", have)
	}
	if f.gfx.Config().Renderer.Backend != "headless" {
		t.Fatal("only the reloadable fields may change")
	}
}

func TestParallelFrames(t *testing.T) {
	cfg := testConfig(t)
	cfg.Renderer.Parallel = true
	f := newFixture(t, cfg)
	for i := 0; i < 3; i++ {
		f.open(t)
	}
	for i := 0; i < 2; i++ {
		if _, err := f.gfx.DoFrame(func() error { return nil }); err != nil {
			t.Fatal(err)
		}
	}
	if have := f.rec.Calls("Present"); have != 6 {
		t.Fatalf("have %d presents\nwant 6", have)
	}
	if have := f.rec.Calls("CreateSwapchain"); have != 3 {
		t.Fatalf("have %d swapchains\nwant 3", have)
	}
	if have := f.gfx.Globals().Generation(); have != 1 {
		t.Fatalf("have generation %d\nwant 1", have)
	}
}

func TestBeginFrameRollsBackSiblings(t *testing.T) {
	f := newFixture(t, nil)
	first := f.open(t)
	f.open(t)
	if _, err := f.gfx.DoFrame(func() error { return nil }); err != nil {
		t.Fatal(err)
	}

	f.headlessWindow(t, 1).Resize(300, 200)
	f.rec.FailOn("Resize", errBoom)
	if _, err := f.gfx.DoFrame(func() error { return nil }); !errors.Is(err, errBoom) {
		t.Fatalf("have %v\nwant %v", err, errBoom)
	}
	if have := first.State(); have != FrameStateIdle {
		t.Fatalf("have %s\nwant %s", have, FrameStateIdle)
	}
}

func TestBeginPump(t *testing.T) {
	f := newFixture(t, nil)
	w := f.open(t)

	p, running, err := f.gfx.BeginPump()
	if err != nil || !running {
		t.Fatalf("have %t %v\nwant running", running, err)
	}
	if _, _, err := f.gfx.BeginPump(); !errors.Is(err, core.ErrRendererInFlight) {
		t.Fatalf("have %v\nwant %v", err, core.ErrRendererInFlight)
	}
	fr, err := w.BeginWindow()
	if err != nil {
		t.Fatal(err)
	}
	fr.Release()
	if err := p.Release(); err != nil {
		t.Fatal(err)
	}
	if err := p.Release(); err != nil {
		t.Fatal(err)
	}
	if have := f.rec.Calls("Present"); have != 1 {
		t.Fatalf("have %d presents\nwant 1", have)
	}
	if _, _, err := f.gfx.BeginPump(); err != nil {
		t.Fatalf("pump after release: %v", err)
	}
}

type countingViewports struct {
	mu       sync.Mutex
	rendered int
	shown    int
}

func (c *countingViewports) RenderViewports(w *Window, ctx renderer.DeviceContext) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rendered++
	return nil
}

func (c *countingViewports) PresentViewports(w *Window) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shown++
	return nil
}

func TestViewportHooks(t *testing.T) {
	vr := &countingViewports{}
	f := newFixture(t, nil, WithViewports(vr))
	f.open(t)
	if _, err := f.gfx.DoFrame(func() error { return nil }); err != nil {
		t.Fatal(err)
	}
	if vr.rendered != 1 || vr.shown != 1 {
		t.Fatalf("have %d renders %d presents\nwant 1 and 1", vr.rendered, vr.shown)
	}
}

func TestRunStopsAfterMaxFrames(t *testing.T) {
	f := newFixture(t, nil)
	f.open(t)

	renders, shutdowns := 0, 0
	game := &Game{
		ApplicationConfig: &ApplicationConfig{Name: "test", MaxFrames: 3},
		FnRender: func(w *Window, delta float64) error {
			renders++
			return nil
		},
		FnShutdown: func() error {
			shutdowns++
			return nil
		},
	}
	if err := f.gfx.Run(game); err != nil {
		t.Fatal(err)
	}
	if renders != 3 || shutdowns != 1 {
		t.Fatalf("have %d renders %d shutdowns\nwant 3 and 1", renders, shutdowns)
	}
	if have := f.rec.Calls("Present"); have != 3 {
		t.Fatalf("have %d presents\nwant 3", have)
	}
}

func TestRunReturnsGameError(t *testing.T) {
	f := newFixture(t, nil)
	f.open(t)
	game := &Game{
		FnUpdate: func(float64) error { return errBoom },
	}
	if err := f.gfx.Run(game); !errors.Is(err, errBoom) {
		t.Fatalf("have %v\nwant %v", err, errBoom)
	}
	if have := f.rec.Calls("Flush"); have != 1 {
		t.Fatalf("have %d flushes\nwant 1", have)
	}
}

func TestNotInitialized(t *testing.T) {
	g := New()
	if _, err := g.OpenWindow(0, 0, 1, 1); !errors.Is(err, core.ErrNotInitialized) {
		t.Fatalf("have %v\nwant %v", err, core.ErrNotInitialized)
	}
	if _, err := g.Pump(); !errors.Is(err, core.ErrNotInitialized) {
		t.Fatalf("have %v\nwant %v", err, core.ErrNotInitialized)
	}
}

func TestSelectPlatform(t *testing.T) {
	g := New()
	ok, err := g.SelectPlatform("headless")
	if !ok || err != nil {
		t.Fatalf("have %t %v\nwant true", ok, err)
	}
	if ok, err := g.SelectPlatform("sdl"); ok || !errors.Is(err, core.ErrPlatformNotSelected) {
		t.Fatalf("have %t %v\nwant %v", ok, err, core.ErrPlatformNotSelected)
	}
}

type failingLibrary struct {
	*gui.HeadlessLibrary
	mu   sync.Mutex
	fail error
}

func (l *failingLibrary) failWith(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fail = err
}

func (l *failingLibrary) CreateContext() (gui.ContextHandle, error) {
	l.mu.Lock()
	err := l.fail
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return l.HeadlessLibrary.CreateContext()
}

func TestGUIFailureLeavesSwapchainUntouched(t *testing.T) {
	lib := &failingLibrary{HeadlessLibrary: gui.NewHeadlessLibrary()}
	f := newFixture(t, nil, WithGUILibrary(lib))
	w := f.open(t)

	lib.failWith(errBoom)
	if err := w.BeginFrame(); !errors.Is(err, errBoom) {
		t.Fatalf("have %v\nwant %v", err, errBoom)
	}
	if have := w.State(); have != FrameStateIdle {
		t.Fatalf("have %s\nwant %s", have, FrameStateIdle)
	}
	if have := f.rec.Calls("Resize"); have != 0 {
		t.Fatalf("have %d resizes\nwant 0", have)
	}
	if w.GUI() != nil {
		t.Fatal("gui created by a failed frame")
	}
	if f.gfx.Globals().Alive() {
		t.Fatal("globals survived a failed first frame")
	}
	if have := w.resources.Desc(); have.Width != 0 {
		t.Fatalf("have %+v\nwant no swapchain", have)
	}

	lib.failWith(nil)
	if _, err := f.gfx.DoFrame(func() error { return nil }); err != nil {
		t.Fatal(err)
	}
	ctx := w.GUI()
	desc := w.resources.Desc()

	f.headlessWindow(t, 0).Resize(640, 480)
	f.rec.FailOn("Resize", errBoom)
	if err := w.BeginFrame(); !errors.Is(err, errBoom) {
		t.Fatalf("have %v\nwant %v", err, errBoom)
	}
	if width, height := w.DisplaySize(); width != 1280 || height != 800 {
		t.Fatalf("have %dx%d\nwant 1280x800", width, height)
	}
	if have := w.resources.Desc(); have != desc {
		t.Fatalf("have %+v\nwant %+v", have, desc)
	}
	if w.GUI() != ctx {
		t.Fatal("gui context replaced by a failed resize")
	}
}

func TestLifecycleHandlersMayQueryGfx(t *testing.T) {
	f := newFixture(t, nil)
	refs, alive := -1, true
	var selectErr error
	f.gfx.Events().Register(core.EVENT_CODE_GLOBALS_CREATED, func(core.EventContext) bool {
		refs = f.gfx.Globals().Refs()
		return false
	})
	f.gfx.Events().Register(core.EVENT_CODE_GLOBALS_DESTROYED, func(core.EventContext) bool {
		alive = f.gfx.Globals().Alive()
		return false
	})
	f.gfx.Events().Register(core.EVENT_CODE_PLATFORM_STARTED, func(core.EventContext) bool {
		_, selectErr = f.gfx.SelectPlatform("headless")
		return false
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		w, err := f.gfx.OpenWindow(100, 100, 1280, 800)
		if err != nil {
			t.Error(err)
			return
		}
		if _, err := f.gfx.DoFrame(func() error { return nil }); err != nil {
			t.Error(err)
		}
		w.Close()
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lifecycle handler deadlocked")
	}

	if refs != 1 {
		t.Fatalf("have %d refs\nwant 1", refs)
	}
	if alive {
		t.Fatal("globals alive in the destroyed handler")
	}
	if selectErr == nil {
		t.Fatal("platform switched while starting a window")
	}
}
