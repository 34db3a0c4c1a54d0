package engine

import (
	"sync"

	"github.com/google/uuid"

	"github.com/spaghettifunk/anima-gfx/engine/containers"
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/gui"
	"github.com/spaghettifunk/anima-gfx/engine/memory"
	"github.com/spaghettifunk/anima-gfx/engine/platform"
	"github.com/spaghettifunk/anima-gfx/engine/renderer"
)

// Window is an OS window together with its swapchain and GUI context. Both
// are created on the first BeginFrame.
type Window struct {
	id     string
	gfx    *Gfx
	native platform.Window

	platformRef *core.Ref[platformHandle]
	globals     *core.Ref[renderer.Globals]
	resources   *renderer.WindowResources
	gui         *gui.Context

	state  FrameState
	closed bool

	width  int
	height int
	dpi    float32

	// input arriving before the GUI context exists
	pendingMu sync.Mutex
	pending   *containers.RingQueue[core.InputEvent]

	stack  *memory.Stack[rendererSlot]
	marker memory.Marker
	seq    uint64
}

// frameSize is what BeginFrame read from the native window.
type frameSize struct {
	width  int
	height int
	dpi    float32
}

func newWindow(g *Gfx, native platform.Window, platformRef *core.Ref[platformHandle]) *Window {
	w := &Window{
		id:          uuid.NewString(),
		gfx:         g,
		native:      native,
		platformRef: platformRef,
		resources:   renderer.NewWindowResources(),
		pending:     containers.NewRingQueue[core.InputEvent](gui.DefaultEventQueueSize),
		stack:       memory.NewStack[rendererSlot](g.config().Renderer.FrameStackCapacity),
	}
	w.marker = w.stack.Top()
	native.SetCallbacks(w.callbacks())
	return w
}

func (w *Window) ID() string {
	return w.id
}

func (w *Window) State() FrameState {
	return w.state
}

// DisplaySize is the framebuffer size read by the last BeginFrame.
func (w *Window) DisplaySize() (int, int) {
	return w.width, w.height
}

func (w *Window) DPIScale() float32 {
	return w.dpi
}

// GUI returns the GUI context, nil before the first frame.
func (w *Window) GUI() *gui.Context {
	return w.gui
}

func (w *Window) Native() platform.Window {
	return w.native
}

func (w *Window) Closed() bool {
	return w.closed
}

func (w *Window) Show() error {
	if w.closed {
		return core.NewError("window_show", core.ErrWindowDestroyed)
	}
	return core.Guard("window_show", w.native.Show)
}

// WantsToClose reports a close request from the user or the OS. A closed
// window always wants to.
func (w *Window) WantsToClose() bool {
	if w.closed {
		return true
	}
	v, err := w.native.ShouldClose()
	if err != nil {
		core.LogGfxError(core.NewError("window_should_close", err))
		return true
	}
	return v
}

// BeginFrame makes sure the swapchain and the GUI context exist and match
// the window. On failure nothing changes.
func (w *Window) BeginFrame() error {
	size, err := w.query()
	if err != nil {
		return err
	}
	events, err := w.prepare(size)
	if err != nil {
		return err
	}
	w.gfx.fire(events)
	return nil
}

// query reads the native window. It must run on the goroutine that owns the
// window system.
func (w *Window) query() (frameSize, error) {
	if w.closed {
		return frameSize{}, core.NewError("window_begin_frame", core.ErrWindowDestroyed)
	}
	if err := checkTransition("window_begin_frame", w.state, FrameStateFrameBegun); err != nil {
		return frameSize{}, err
	}
	var size frameSize
	err := core.Guard("window_framebuffer_size", func() error {
		width, height, err := w.native.FramebufferSize()
		if err != nil {
			return err
		}
		sx, _, err := w.native.ContentScale()
		if err != nil {
			return err
		}
		size = frameSize{width: width, height: height, dpi: sx}
		return nil
	})
	if err != nil {
		return frameSize{}, err
	}
	if override := w.gfx.config().GUI.DPIScale; override > 0 {
		size.dpi = override
	}
	if size.dpi <= 0 {
		size.dpi = 1
	}
	return size, nil
}

// prepare materializes the resources for size. It may run on a job worker;
// the events it returns are fired by the caller.
func (w *Window) prepare(size frameSize) ([]core.EventContext, error) {
	newGlobals := false
	if w.globals == nil {
		ref, err := w.gfx.globals.Acquire()
		if err != nil {
			return nil, err
		}
		w.globals = ref
		newGlobals = true
	}
	rollback := func() {
		if newGlobals {
			core.Teardown("globals_release", w.globals.Release)
			w.globals = nil
		}
	}

	newResources := !w.resources.Created()
	err := w.gfx.serial(func() error {
		if err := w.resources.EnsureCreated(w.native, w.globals.Get(), size.width, size.height); err != nil {
			return err
		}
		// the GUI context is the last step that can fail without touching
		// the swapchain, so it comes before the resize
		var created *gui.Context
		if w.gui == nil {
			ctx, err := gui.NewContext(w.gfx.library, w.globals.Get().Device, w.gfx.guiConfig())
			if err != nil {
				return err
			}
			created = ctx
		}
		if err := w.resources.Resize(size.width, size.height); err != nil {
			if created != nil {
				created.Destroy()
			}
			return err
		}
		if created != nil {
			w.adoptGUI(created)
		}
		w.gui.Sync(w.resources.Desc(), size.dpi)
		return nil
	})
	if err != nil {
		if newResources {
			w.gfx.serial(func() error {
				w.resources.Release()
				return nil
			})
		}
		rollback()
		return nil, err
	}

	var events []core.EventContext
	if w.width != 0 && (w.width != size.width || w.height != size.height) {
		events = append(events, w.event(core.EVENT_CODE_RESIZED, size))
	}
	if w.dpi != 0 && w.dpi != size.dpi {
		events = append(events, w.event(core.EVENT_CODE_SCALE_CHANGED, size))
	}
	w.width, w.height, w.dpi = size.width, size.height, size.dpi
	w.state = FrameStateFrameBegun
	return events, nil
}

func (w *Window) event(code core.SystemEventCode, size frameSize) core.EventContext {
	return core.EventContext{
		Type:   code,
		Sender: w,
		Data: &core.WindowEvent{
			WindowID: w.id,
			Width:    uint32(size.width),
			Height:   uint32(size.height),
			Scale:    size.dpi,
		},
	}
}

// BeginImgui opens a GUI frame. On failure the window stays in
// FrameStateFrameBegun and EndFrame still applies.
func (w *Window) BeginImgui() error {
	if err := checkTransition("window_begin_imgui", w.state, FrameStateImguiBegun); err != nil {
		return err
	}
	desc := w.resources.Desc()
	err := w.gfx.serial(func() error {
		return w.gui.BeginFrame(desc.Width, desc.Height, desc.PreTransform, w.dpi)
	})
	if err != nil {
		return err
	}
	w.state = FrameStateImguiBegun
	return nil
}

// EndImgui clears the back buffer and draws the GUI frame into it. The
// window moves to FrameStateImguiEnded even when this fails.
func (w *Window) EndImgui() (err error) {
	if err := checkTransition("window_end_imgui", w.state, FrameStateImguiEnded); err != nil {
		return err
	}
	defer func() { w.state = FrameStateImguiEnded }()

	return w.gfx.serial(func() error {
		if err := w.resources.Clear(w.gfx.clearColor()); err != nil {
			core.Teardown("gui_discard_frame", w.gui.Discard)
			return err
		}
		var err error
		keepFirst(&err, w.gui.EndFrame(w.resources.Context()))
		if vr := w.gfx.opts.Viewports; vr != nil {
			keepFirst(&err, core.Guard("render_viewports", func() error {
				return vr.RenderViewports(w, w.resources.Context())
			}))
		}
		return err
	})
}

// EndFrame flushes the commands of the frame. A GUI frame left open is
// ended first and a frame without GUI gets its back buffer cleared, so the
// window always reaches FrameStateFrameEnded.
func (w *Window) EndFrame() (err error) {
	switch w.state {
	case FrameStateImguiBegun:
		keepFirst(&err, w.EndImgui())
	case FrameStateFrameBegun:
		keepFirst(&err, w.gfx.serial(func() error {
			return w.resources.Clear(w.gfx.clearColor())
		}))
	case FrameStateImguiEnded:
	default:
		return core.Errorf("window_end_frame", core.ErrInvalidFrameState, "%s -> %s", w.state, FrameStateFrameEnded)
	}
	keepFirst(&err, w.gfx.serial(w.resources.Flush))
	w.state = FrameStateFrameEnded
	return err
}

// Present shows the frame. It does nothing for a window that has no ended
// frame.
func (w *Window) Present() error {
	switch w.state {
	case FrameStateIdle:
		return nil
	case FrameStateFrameEnded:
	default:
		return core.Errorf("window_present", core.ErrInvalidFrameState, "%s -> %s", w.state, FrameStateIdle)
	}
	w.state = FrameStateIdle
	return w.gfx.serial(w.resources.Present)
}

// DoFrame runs fn between BeginFrame and EndFrame. EndFrame runs exactly
// once whatever fn does.
func (w *Window) DoFrame(fn func(*Window) error) (err error) {
	if err := w.BeginFrame(); err != nil {
		return err
	}
	defer func() { keepFirst(&err, w.EndFrame()) }()
	return core.Guard("window_frame", func() error { return fn(w) })
}

// DoImgui runs fn inside a GUI frame.
func (w *Window) DoImgui(fn func(*Window) error) (err error) {
	if err := w.BeginImgui(); err != nil {
		return err
	}
	defer func() { keepFirst(&err, w.EndImgui()) }()
	return core.Guard("window_imgui", func() error { return fn(w) })
}

// Close ends a frame in progress, releases the GPU resources and destroys
// the native window. The window is dropped from its Gfx on the next Present.
func (w *Window) Close() {
	if w.closed {
		return
	}
	switch w.state {
	case FrameStateFrameBegun, FrameStateImguiBegun, FrameStateImguiEnded:
		core.Teardown("window_end_frame", w.EndFrame)
	}
	w.stack.Unwind(w.marker)
	w.closed = true
	w.state = FrameStateIdle

	w.gfx.serial(func() error {
		if w.gui != nil {
			w.gui.Destroy()
			w.adoptGUI(nil)
		}
		w.resources.Release()
		return nil
	})
	if w.globals != nil {
		core.Teardown("globals_release", w.globals.Release)
		w.globals = nil
	}
	core.Teardown("window_destroy", w.native.Destroy)
	if w.platformRef != nil {
		core.Teardown("platform_release", w.platformRef.Release)
		w.platformRef = nil
	}
	w.gfx.fire([]core.EventContext{w.event(core.EVENT_CODE_WINDOW_CLOSED, frameSize{width: w.width, height: w.height, dpi: w.dpi})})
	core.LogDebug("window `%s` closed", w.id)
}

func (w *Window) callbacks() platform.Callbacks {
	return platform.Callbacks{
		OnMouseButton: func(button int, pressed bool) {
			w.push(core.InputEvent{Type: core.InputEventButton, Button: core.Button(button), Pressed: pressed})
		},
		OnCursorPos: func(x, y float64) {
			w.push(core.InputEvent{Type: core.InputEventMouseMove, X: float32(x), Y: float32(y)})
		},
		OnScroll: func(xoff, yoff float64) {
			w.push(core.InputEvent{Type: core.InputEventMouseWheel, X: float32(xoff), Y: float32(yoff)})
		},
		OnKey: func(key int, pressed bool) {
			w.push(core.InputEvent{Type: core.InputEventKey, Key: key, Pressed: pressed})
		},
		OnChar: func(char rune) {
			w.push(core.InputEvent{Type: core.InputEventChar, Char: char})
		},
		OnFocus: func(focused bool) {
			w.push(core.InputEvent{Type: core.InputEventFocus, Pressed: focused})
		},
		// size and scale are read again by the next BeginFrame
		OnContentScale: func(x, y float32) {
			core.LogDebug("window `%s` content scale %.2fx%.2f", w.id, x, y)
		},
		OnFramebufferSize: func(width, height int) {
			core.LogDebug("window `%s` framebuffer %dx%d", w.id, width, height)
		},
		OnClose: func() {
			core.LogDebug("window `%s` close requested", w.id)
		},
	}
}

func (w *Window) push(ev core.InputEvent) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	if w.gui != nil {
		w.gui.PushEvent(ev)
		return
	}
	w.pending.Push(ev)
}

// adoptGUI installs the GUI context and hands it the buffered input.
func (w *Window) adoptGUI(ctx *gui.Context) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.gui = ctx
	if ctx != nil {
		w.pending.Drain(ctx.PushEvent)
	}
}
