package renderer_test

import (
	"errors"
	"testing"

	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/platform"
	"github.com/spaghettifunk/anima-gfx/engine/renderer"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/headless"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
)

func newManager(rec *headless.Recorder, events *core.EventSystem) *renderer.GlobalsManager {
	return renderer.NewGlobalsManager(func() (renderer.Factory, error) {
		return headless.NewFactory(rec), nil
	}, events)
}

func TestGlobalsLifetime(t *testing.T) {
	rec := headless.NewRecorder()
	events := core.NewEventSystem()
	created, destroyed := 0, 0
	events.Register(core.EVENT_CODE_GLOBALS_CREATED, func(core.EventContext) bool { created++; return false })
	events.Register(core.EVENT_CODE_GLOBALS_DESTROYED, func(core.EventContext) bool { destroyed++; return false })
	gm := newManager(rec, events)

	a, err := gm.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	b, err := gm.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	if a.Get() != b.Get() {
		t.Fatal("two live references must share the same globals")
	}
	if n := rec.Calls("CreateDeviceAndContext"); n != 1 {
		t.Fatalf("have %d\nwant 1", n)
	}

	a.Release()
	if !gm.Alive() {
		t.Fatal("globals destroyed while a reference is alive")
	}
	b.Release()
	if gm.Alive() {
		t.Fatal("globals alive after the last release")
	}
	if n := rec.Calls("DeviceRelease"); n != 1 {
		t.Fatalf("have %d\nwant 1", n)
	}

	c, err := gm.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	defer c.Release()
	if gm.Generation() != 2 {
		t.Fatalf("have %d\nwant 2", gm.Generation())
	}
	if created != 2 || destroyed != 1 {
		t.Fatalf("have created=%d destroyed=%d\nwant created=2 destroyed=1", created, destroyed)
	}
}

func TestGlobalsCreateFailure(t *testing.T) {
	rec := headless.NewRecorder()
	rec.FailOn("CreateDeviceAndContext", errors.New("no adapter"))
	gm := newManager(rec, core.NewEventSystem())

	_, err := gm.Acquire()
	if !errors.Is(err, core.ErrNotSpecified) || !errors.Is(err, core.ErrGraphicsInitFailed) {
		t.Fatalf("have %v\nwant %v", err, core.ErrGraphicsInitFailed)
	}
	if gm.Alive() {
		t.Fatal("a failed construction must not leave globals behind")
	}
	if n := rec.Calls("FactoryRelease"); n != 1 {
		t.Fatalf("have %d\nwant 1", n)
	}

	rec.FailOn("CreateDeviceAndContext", nil)
	ref, err := gm.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	ref.Release()
}

func newWindow(t *testing.T) platform.Window {
	t.Helper()
	h := platform.NewHeadless()
	h.Init()
	w, err := h.CreateWindow(100, 100, 1280, 800, "test")
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func TestWindowResourcesResize(t *testing.T) {
	rec := headless.NewRecorder()
	gm := newManager(rec, nil)
	ref, err := gm.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	defer ref.Release()

	wr := renderer.NewWindowResources()
	if err := wr.Resize(10, 10); !errors.Is(err, core.ErrNotInitialized) {
		t.Fatalf("have %v\nwant %v", err, core.ErrNotInitialized)
	}
	win := newWindow(t)
	if err := wr.EnsureCreated(win, ref.Get(), 1280, 800); err != nil {
		t.Fatal(err)
	}
	if err := wr.EnsureCreated(win, ref.Get(), 1280, 800); err != nil {
		t.Fatal(err)
	}
	if n := rec.Calls("CreateSwapchain"); n != 1 {
		t.Fatalf("have %d\nwant 1", n)
	}

	tests := []struct {
		w, h  int
		calls int
	}{
		{1280, 800, 0},
		{0, 800, 0},
		{1280, 0, 0},
		{640, 480, 1},
		{640, 480, 1},
		{800, 600, 2},
	}
	for _, tt := range tests {
		if err := wr.Resize(tt.w, tt.h); err != nil {
			t.Fatal(err)
		}
		if n := rec.Calls("Resize"); n != tt.calls {
			t.Fatalf("resize %dx%d: have %d calls\nwant %d", tt.w, tt.h, n, tt.calls)
		}
	}
	if d := wr.Desc(); d.Width != 800 || d.Height != 600 {
		t.Fatalf("have %dx%d\nwant 800x600", d.Width, d.Height)
	}

	wr.Release()
	if wr.Created() {
		t.Fatal("resources still created after Release")
	}
}

func TestWindowResourcesClearAndPresent(t *testing.T) {
	rec := headless.NewRecorder()
	gm := newManager(rec, nil)
	ref, _ := gm.Acquire()
	defer ref.Release()

	wr := renderer.NewWindowResources()
	if err := wr.EnsureCreated(newWindow(t), ref.Get(), 320, 240); err != nil {
		t.Fatal(err)
	}
	if err := wr.Clear(metadata.DefaultClearColor); err != nil {
		t.Fatal(err)
	}
	clears := rec.Clears()
	if len(clears) != 1 || clears[0] != metadata.DefaultClearColor {
		t.Fatalf("have %v\nwant [%v]", clears, metadata.DefaultClearColor)
	}
	if n := rec.Calls("ClearDepthStencil"); n != 1 {
		t.Fatalf("have %d\nwant 1", n)
	}

	rec.FailOn("Present", core.ErrDeviceLost)
	if err := wr.Present(); !errors.Is(err, core.ErrDeviceLost) {
		t.Fatalf("have %v\nwant %v", err, core.ErrDeviceLost)
	}
	if !wr.Created() {
		t.Fatal("a failed present must keep the swapchain")
	}
	rec.FailOn("Present", nil)
	if err := wr.Present(); err != nil {
		t.Fatal(err)
	}
}

func TestWindowResourcesSurfaceFailure(t *testing.T) {
	rec := headless.NewRecorder()
	gm := newManager(rec, nil)
	ref, _ := gm.Acquire()
	defer ref.Release()

	rec.FailOn("CreateSwapchain", errors.New("no surface"))
	wr := renderer.NewWindowResources()
	err := wr.EnsureCreated(newWindow(t), ref.Get(), 1, 1)
	if !errors.Is(err, core.ErrNotSpecified) {
		t.Fatalf("have %v\nwant %v", err, core.ErrNotSpecified)
	}
	if wr.Created() {
		t.Fatal("resources created despite the failure")
	}
}

func TestNewFactory(t *testing.T) {
	f, err := renderer.NewFactory("headless", renderer.FactoryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if f.Name() != "headless" {
		t.Fatalf("have %s\nwant headless", f.Name())
	}
	if _, err := renderer.NewFactory("d3d12", renderer.FactoryOptions{}); err == nil {
		t.Fatal("want error for unknown backend")
	}
}
