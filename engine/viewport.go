package engine

import "github.com/spaghettifunk/anima-gfx/engine/renderer"

// ViewportRenderer draws GUI viewports living outside their main window,
// e.g. docked panels torn off into OS windows of their own. It is optional.
type ViewportRenderer interface {
	// RenderViewports runs after the GUI of w was drawn, with the render
	// target of w still bound on ctx.
	RenderViewports(w *Window, ctx renderer.DeviceContext) error
	// PresentViewports runs after w was presented.
	PresentViewports(w *Window) error
}
