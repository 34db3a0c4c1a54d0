package renderer

import (
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/platform"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
)

// WindowResources owns the swapchain of one window. The device and context
// it draws with belong to the Globals it was created against.
type WindowResources struct {
	globals   *Globals
	swapchain Swapchain
}

func NewWindowResources() *WindowResources {
	return &WindowResources{}
}

// EnsureCreated builds the swapchain for window if it does not exist yet.
// A failure leaves the resources empty so the next call retries.
func (wr *WindowResources) EnsureCreated(window platform.Window, globals *Globals, width, height int) error {
	if wr.swapchain != nil {
		return nil
	}
	if globals == nil {
		return core.NewError("window_resources_create", core.ErrNotInitialized)
	}
	desc := metadata.DefaultSwapchainDesc(width, height)
	var swapchain Swapchain
	err := core.Guard("create_swapchain", func() error {
		sc, err := globals.Factory.CreateSwapchain(globals.Device, globals.Context, desc, window)
		if err != nil {
			return core.Errorf("create_swapchain", core.ErrSurfaceCreationFailed, "%v", err)
		}
		swapchain = sc
		return nil
	})
	if err != nil {
		return err
	}
	wr.globals = globals
	wr.swapchain = swapchain
	d := swapchain.Desc()
	core.LogDebug("swapchain created %dx%d color=%s depth=%s transform=%s", d.Width, d.Height, d.ColorBufferFormat, d.DepthBufferFormat, d.PreTransform)
	return nil
}

func (wr *WindowResources) Created() bool {
	return wr.swapchain != nil
}

// Resize is a no-op when the size did not change or when either side is
// zero (a minimized window keeps its last swapchain).
func (wr *WindowResources) Resize(width, height int) error {
	if wr.swapchain == nil {
		return core.NewError("window_resources_resize", core.ErrNotInitialized)
	}
	if width <= 0 || height <= 0 {
		return nil
	}
	desc := wr.swapchain.Desc()
	if desc.Width == width && desc.Height == height {
		return nil
	}
	return core.Guard("swapchain_resize", func() error {
		return wr.swapchain.Resize(width, height)
	})
}

// Clear binds the back buffer and depth buffer and clears both.
func (wr *WindowResources) Clear(color metadata.Color) error {
	if wr.swapchain == nil {
		return core.NewError("window_resources_clear", core.ErrNotInitialized)
	}
	return core.Guard("window_resources_clear", func() error {
		rtv, err := wr.swapchain.BackBufferRTV()
		if err != nil {
			return err
		}
		dsv := wr.swapchain.DepthBufferDSV()
		ctx := wr.globals.Context
		if err := ctx.SetRenderTargets(rtv, dsv); err != nil {
			return err
		}
		if err := ctx.ClearRenderTarget(rtv, color); err != nil {
			return err
		}
		if dsv != nil {
			return ctx.ClearDepthStencil(dsv, 1.0, 0)
		}
		return nil
	})
}

func (wr *WindowResources) Flush() error {
	if wr.swapchain == nil {
		return core.NewError("window_resources_flush", core.ErrNotInitialized)
	}
	return core.Guard("context_flush", wr.globals.Context.Flush)
}

// Present shows the back buffer. A failure keeps the swapchain so the caller
// can decide between retrying and releasing it.
func (wr *WindowResources) Present() error {
	if wr.swapchain == nil {
		return core.NewError("window_resources_present", core.ErrNotInitialized)
	}
	return core.Guard("swapchain_present", func() error {
		return wr.swapchain.Present(1)
	})
}

func (wr *WindowResources) Desc() metadata.SwapchainDesc {
	if wr.swapchain == nil {
		return metadata.SwapchainDesc{}
	}
	return wr.swapchain.Desc()
}

func (wr *WindowResources) Context() DeviceContext {
	if wr.globals == nil {
		return nil
	}
	return wr.globals.Context
}

// Release drops the swapchain. Errors are logged.
func (wr *WindowResources) Release() {
	if wr.swapchain == nil {
		return
	}
	core.Teardown("swapchain_release", wr.swapchain.Release)
	wr.swapchain = nil
	wr.globals = nil
}
