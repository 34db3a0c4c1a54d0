package platform

import (
	"sync"

	"github.com/spaghettifunk/anima-gfx/engine/core"
)

// Headless is an in-memory window system. Windows never reach the screen;
// their size, scale and close requests are driven by the caller, which makes
// it the window system used by tests and CI.
type Headless struct {
	mu          sync.Mutex
	initialized bool
	windows     []*HeadlessWindow
	polls       int
	// FailCreate makes the next CreateWindow call fail.
	FailCreate error
}

func NewHeadless() *Headless {
	return &Headless{}
}

func (h *Headless) Name() string {
	return "headless"
}

func (h *Headless) Init() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.initialized = true
	return nil
}

func (h *Headless) Initialized() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.initialized
}

func (h *Headless) CreateWindow(x, y, width, height int, title string) (Window, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.initialized {
		return nil, core.NewError("headless_create_window", core.ErrNotInitialized)
	}
	if h.FailCreate != nil {
		err := h.FailCreate
		h.FailCreate = nil
		return nil, core.NewError("headless_create_window", err)
	}
	w := &HeadlessWindow{
		X: x, Y: y,
		Title:  title,
		width:  width,
		height: height,
		scaleX: 1,
		scaleY: 1,
	}
	h.windows = append(h.windows, w)
	return w, nil
}

// PollEvents delivers the events queued on every live window since the
// previous poll.
func (h *Headless) PollEvents() error {
	h.mu.Lock()
	h.polls++
	windows := append([]*HeadlessWindow(nil), h.windows...)
	h.mu.Unlock()

	for _, w := range windows {
		w.flush()
	}
	return nil
}

func (h *Headless) Polls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.polls
}

func (h *Headless) RequiredInstanceExtensions() []string {
	return nil
}

func (h *Headless) Terminate() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.initialized = false
	h.windows = nil
	return nil
}

// Windows returns the windows created so far that were not destroyed.
func (h *Headless) Windows() []*HeadlessWindow {
	h.mu.Lock()
	defer h.mu.Unlock()
	live := make([]*HeadlessWindow, 0, len(h.windows))
	for _, w := range h.windows {
		if !w.Destroyed() {
			live = append(live, w)
		}
	}
	return live
}

type HeadlessWindow struct {
	X, Y  int
	Title string

	mu          sync.Mutex
	width       int
	height      int
	scaleX      float32
	scaleY      float32
	visible     bool
	shouldClose bool
	destroyed   bool
	callbacks   Callbacks
	pending     []func(Callbacks)

	// FailSize makes FramebufferSize return this error until cleared.
	FailSize error
}

func (w *HeadlessWindow) Show() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.destroyed {
		return core.NewError("headless_show", core.ErrWindowDestroyed)
	}
	w.visible = true
	return nil
}

func (w *HeadlessWindow) Visible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible
}

func (w *HeadlessWindow) ShouldClose() (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.shouldClose || w.destroyed, nil
}

func (w *HeadlessWindow) SetShouldClose(v bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.shouldClose = v
}

func (w *HeadlessWindow) FramebufferSize() (int, int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.destroyed {
		return 0, 0, core.NewError("headless_framebuffer_size", core.ErrWindowDestroyed)
	}
	if w.FailSize != nil {
		return 0, 0, core.NewError("headless_framebuffer_size", w.FailSize)
	}
	return w.width, w.height, nil
}

func (w *HeadlessWindow) ContentScale() (float32, float32, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.scaleX, w.scaleY, nil
}

func (w *HeadlessWindow) SetCallbacks(cb Callbacks) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = cb
}

func (w *HeadlessWindow) Native() interface{} {
	return w
}

func (w *HeadlessWindow) Destroy() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.destroyed = true
	w.pending = nil
	return nil
}

func (w *HeadlessWindow) Destroyed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.destroyed
}

// Resize changes the framebuffer size immediately and queues the resize
// callback for the next poll.
func (w *HeadlessWindow) Resize(width, height int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.width, w.height = width, height
	w.queue(func(cb Callbacks) {
		if cb.OnFramebufferSize != nil {
			cb.OnFramebufferSize(width, height)
		}
	})
}

func (w *HeadlessWindow) SetContentScale(x, y float32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.scaleX, w.scaleY = x, y
	w.queue(func(cb Callbacks) {
		if cb.OnContentScale != nil {
			cb.OnContentScale(x, y)
		}
	})
}

// RequestClose behaves like the user pressing the close button.
func (w *HeadlessWindow) RequestClose() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.shouldClose = true
	w.queue(func(cb Callbacks) {
		if cb.OnClose != nil {
			cb.OnClose()
		}
	})
}

func (w *HeadlessWindow) MoveCursor(x, y float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.queue(func(cb Callbacks) {
		if cb.OnCursorPos != nil {
			cb.OnCursorPos(x, y)
		}
	})
}

func (w *HeadlessWindow) PressButton(button int, pressed bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.queue(func(cb Callbacks) {
		if cb.OnMouseButton != nil {
			cb.OnMouseButton(button, pressed)
		}
	})
}

func (w *HeadlessWindow) PressKey(key int, pressed bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.queue(func(cb Callbacks) {
		if cb.OnKey != nil {
			cb.OnKey(key, pressed)
		}
	})
}

func (w *HeadlessWindow) TypeChar(char rune) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.queue(func(cb Callbacks) {
		if cb.OnChar != nil {
			cb.OnChar(char)
		}
	})
}

func (w *HeadlessWindow) queue(fn func(Callbacks)) {
	if w.destroyed {
		return
	}
	w.pending = append(w.pending, fn)
}

func (w *HeadlessWindow) flush() {
	w.mu.Lock()
	pending := w.pending
	w.pending = nil
	cb := w.callbacks
	w.mu.Unlock()

	for _, fn := range pending {
		fn(cb)
	}
}
