package platform

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/anima-gfx/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

type GLFW struct {
	extensions []string
}

func NewGLFW() *GLFW {
	return &GLFW{}
}

func (g *GLFW) Name() string {
	return "glfw"
}

func (g *GLFW) Init() error {
	return core.Guard("glfw_init", func() error {
		if err := glfw.Init(); err != nil {
			return fmt.Errorf("failed to initialize glfw: %w", err)
		}
		if !glfw.VulkanSupported() {
			core.LogWarn("glfw reports no Vulkan loader, only headless rendering will work")
		}
		return nil
	})
}

func (g *GLFW) CreateWindow(x, y, width, height int, title string) (Window, error) {
	var window *glfw.Window
	err := core.Guard("glfw_create_window", func() error {
		glfw.WindowHint(glfw.Visible, glfw.False)
		glfw.WindowHint(glfw.Resizable, glfw.True)
		glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

		w, err := glfw.CreateWindow(width, height, title, nil, nil)
		if err != nil {
			return fmt.Errorf("failed to create window: %w", err)
		}
		w.SetPos(x, y)
		window = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(g.extensions) == 0 {
		g.extensions = window.GetRequiredInstanceExtensions()
	}
	return &glfwWindow{handle: window}, nil
}

func (g *GLFW) PollEvents() error {
	return core.Guard("glfw_poll_events", func() error {
		glfw.PollEvents()
		return nil
	})
}

func (g *GLFW) RequiredInstanceExtensions() []string {
	return g.extensions
}

func (g *GLFW) Terminate() error {
	return core.Guard("glfw_terminate", func() error {
		glfw.Terminate()
		return nil
	})
}

type glfwWindow struct {
	handle *glfw.Window
}

func (w *glfwWindow) Show() error {
	return core.Guard("glfw_show", func() error {
		w.handle.Show()
		return nil
	})
}

func (w *glfwWindow) ShouldClose() (bool, error) {
	if w.handle == nil {
		return true, nil
	}
	var close bool
	err := core.Guard("glfw_should_close", func() error {
		close = w.handle.ShouldClose()
		return nil
	})
	return close, err
}

func (w *glfwWindow) SetShouldClose(v bool) {
	if w.handle != nil {
		w.handle.SetShouldClose(v)
	}
}

func (w *glfwWindow) FramebufferSize() (int, int, error) {
	if w.handle == nil {
		return 0, 0, core.NewError("glfw_framebuffer_size", core.ErrWindowDestroyed)
	}
	var width, height int
	err := core.Guard("glfw_framebuffer_size", func() error {
		width, height = w.handle.GetFramebufferSize()
		return nil
	})
	return width, height, err
}

func (w *glfwWindow) ContentScale() (float32, float32, error) {
	if w.handle == nil {
		return 1, 1, core.NewError("glfw_content_scale", core.ErrWindowDestroyed)
	}
	var x, y float32
	err := core.Guard("glfw_content_scale", func() error {
		x, y = w.handle.GetContentScale()
		return nil
	})
	return x, y, err
}

func (w *glfwWindow) Native() interface{} {
	return w.handle
}

func (w *glfwWindow) SetCallbacks(cb Callbacks) {
	h := w.handle
	h.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		if cb.OnMouseButton != nil && action != glfw.Repeat {
			cb.OnMouseButton(int(button), action == glfw.Press)
		}
	})
	h.SetCursorPosCallback(func(_ *glfw.Window, xpos, ypos float64) {
		if cb.OnCursorPos != nil {
			cb.OnCursorPos(xpos, ypos)
		}
	})
	h.SetScrollCallback(func(_ *glfw.Window, xoff, yoff float64) {
		if cb.OnScroll != nil {
			cb.OnScroll(xoff, yoff)
		}
	})
	h.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if cb.OnKey != nil && action != glfw.Repeat {
			cb.OnKey(int(key), action == glfw.Press)
		}
	})
	h.SetCharCallback(func(_ *glfw.Window, char rune) {
		if cb.OnChar != nil {
			cb.OnChar(char)
		}
	})
	h.SetFocusCallback(func(_ *glfw.Window, focused bool) {
		if cb.OnFocus != nil {
			cb.OnFocus(focused)
		}
	})
	h.SetContentScaleCallback(func(_ *glfw.Window, x, y float32) {
		if cb.OnContentScale != nil {
			cb.OnContentScale(x, y)
		}
	})
	h.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		if cb.OnFramebufferSize != nil {
			cb.OnFramebufferSize(width, height)
		}
	})
	h.SetCloseCallback(func(_ *glfw.Window) {
		if cb.OnClose != nil {
			cb.OnClose()
		}
	})
}

func (w *glfwWindow) Destroy() error {
	if w.handle == nil {
		return nil
	}
	h := w.handle
	w.handle = nil
	return core.Guard("glfw_destroy_window", func() error {
		h.Destroy()
		return nil
	})
}
