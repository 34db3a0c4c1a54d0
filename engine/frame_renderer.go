package engine

import (
	"time"

	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/gui"
)

// rendererSlot is the per-frame state carved from a window's stack.
type rendererSlot struct {
	seq      uint64
	released bool
	began    time.Time
}

// FrameRenderer is the token of a frame in flight on one window. Only one
// can be live per window; Release ends the frame.
type FrameRenderer struct {
	window *Window
	slot   *rendererSlot
	seq    uint64
}

// BeginWindow begins the frame and the GUI frame of w and returns the token
// that ends them. It fails with ErrRendererInFlight while a previous token
// was not released.
func (w *Window) BeginWindow() (FrameRenderer, error) {
	if w.closed {
		return FrameRenderer{}, core.NewError("window_begin", core.ErrWindowDestroyed)
	}
	if w.stack.Top() != w.marker {
		return FrameRenderer{}, core.NewError("window_begin", core.ErrRendererInFlight)
	}
	slot, err := w.stack.Alloc()
	if err != nil {
		return FrameRenderer{}, err
	}
	w.seq++
	*slot = rendererSlot{seq: w.seq, began: time.Now()}

	if err := w.BeginFrame(); err != nil {
		w.stack.Unwind(w.marker)
		return FrameRenderer{}, err
	}
	if err := w.BeginImgui(); err != nil {
		core.Teardown("window_end_frame", w.EndFrame)
		w.stack.Unwind(w.marker)
		return FrameRenderer{}, err
	}
	return FrameRenderer{window: w, slot: slot, seq: w.seq}, nil
}

// Live reports whether the token still holds its frame.
func (fr *FrameRenderer) Live() bool {
	return fr.slot != nil && fr.slot.seq == fr.seq && !fr.slot.released
}

func (fr *FrameRenderer) Window() *Window {
	return fr.window
}

func (fr *FrameRenderer) GUI() *gui.Context {
	if !fr.Live() {
		return nil
	}
	return fr.window.gui
}

// Release ends the GUI frame and the frame, then unwinds the window's
// stack. Failures are logged. Calling it again does nothing.
func (fr *FrameRenderer) Release() {
	if !fr.Live() {
		return
	}
	fr.slot.released = true
	w := fr.window
	switch w.state {
	case FrameStateImguiBegun:
		core.Teardown("frame_renderer_end_imgui", w.EndImgui)
		core.Teardown("frame_renderer_end_frame", w.EndFrame)
	case FrameStateFrameBegun, FrameStateImguiEnded:
		core.Teardown("frame_renderer_end_frame", w.EndFrame)
	}
	core.LogDebug("window `%s` frame took %s", w.id, time.Since(fr.slot.began))
	w.stack.Unwind(w.marker)
}
