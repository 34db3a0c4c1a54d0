package platform

import (
	"fmt"
	"sort"
	"strings"
)

// WindowSystem creates OS windows and pumps their events. Init must be
// called before anything else and Terminate after the last window is gone.
type WindowSystem interface {
	Name() string
	Init() error
	CreateWindow(x, y, width, height int, title string) (Window, error)
	// PollEvents processes pending events without blocking.
	PollEvents() error
	// RequiredInstanceExtensions lists the GPU instance extensions needed
	// to present into windows of this system.
	RequiredInstanceExtensions() []string
	Terminate() error
}

type Window interface {
	Show() error
	ShouldClose() (bool, error)
	SetShouldClose(bool)
	FramebufferSize() (int, int, error)
	ContentScale() (float32, float32, error)
	SetCallbacks(Callbacks)
	// Native returns the handle the GPU backend binds its surface to.
	Native() interface{}
	Destroy() error
}

// Callbacks are invoked from PollEvents on the goroutine that called it.
// Nil members are ignored.
type Callbacks struct {
	OnMouseButton     func(button int, pressed bool)
	OnCursorPos       func(x, y float64)
	OnScroll          func(xoff, yoff float64)
	OnKey             func(key int, pressed bool)
	OnChar            func(char rune)
	OnFocus           func(focused bool)
	OnContentScale    func(x, y float32)
	OnFramebufferSize func(width, height int)
	OnClose           func()
}

type constructor func() WindowSystem

var systems = map[string]constructor{
	"glfw":     func() WindowSystem { return NewGLFW() },
	"headless": func() WindowSystem { return NewHeadless() },
}

// Select returns an uninitialized window system by name.
func Select(name string) (WindowSystem, error) {
	c, ok := systems[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown platform `%s` (available: %s)", name, strings.Join(Names(), ", "))
	}
	return c(), nil
}

// Names lists the selectable window systems.
func Names() []string {
	names := make([]string, 0, len(systems))
	for n := range systems {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
