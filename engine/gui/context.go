package gui

import (
	"sync"

	"github.com/spaghettifunk/anima-gfx/engine/containers"
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/math"
	"github.com/spaghettifunk/anima-gfx/engine/renderer"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
)

const (
	DefaultEventQueueSize = 256
	// delta reported for the first frame of a context
	firstFrameDelta = 1.0 / 60.0
	minFrameDelta   = 1e-5
)

type ContextConfig struct {
	Renderer       RendererConfig
	EventQueueSize int
	// Clock drives frame deltas, a wall clock when nil.
	Clock *core.Clock
}

// Context is the GUI state of one window: a library context, the renderer
// drawing it and the input that feeds it.
type Context struct {
	config ContextConfig
	handle ContextHandle
	device renderer.Device

	renderer    *Renderer
	colorFormat metadata.TextureFormat
	depthFormat metadata.TextureFormat
	dpi         float32

	input   *core.InputState
	queueMu sync.Mutex
	queue   *containers.RingQueue[core.InputEvent]
	dropped int

	clock     *core.Clock
	lastTime  float64
	frames    uint64
	lastDelta float32
}

func NewContext(library Library, device renderer.Device, config ContextConfig) (*Context, error) {
	if library == nil {
		return nil, core.Errorf("gui_context_create", core.ErrNotInitialized, "no gui library")
	}
	var handle ContextHandle
	err := core.Guard("gui_context_create", func() error {
		h, err := library.CreateContext()
		handle = h
		return err
	})
	if err != nil {
		return nil, err
	}
	if config.EventQueueSize <= 0 {
		config.EventQueueSize = DefaultEventQueueSize
	}
	clock := config.Clock
	if clock == nil {
		clock = core.NewClock()
	}
	core.LogDebug("gui context created with `%s`", library.Name())
	return &Context{
		config: config,
		handle: handle,
		device: device,
		input:  core.NewInputState(),
		queue:  containers.NewRingQueue[core.InputEvent](config.EventQueueSize),
		clock:  clock,
		dpi:    1,
	}, nil
}

// Sync matches the renderer to the swapchain. A new back buffer or depth
// format rebuilds the renderer; a DPI change only rebakes the fonts on the
// next frame.
func (c *Context) Sync(desc metadata.SwapchainDesc, dpi float32) {
	if dpi <= 0 {
		dpi = 1
	}
	if c.renderer == nil || desc.ColorBufferFormat != c.colorFormat || desc.DepthBufferFormat != c.depthFormat {
		if c.renderer != nil {
			core.LogInfo("swapchain format changed to %s/%s, recreating gui renderer", desc.ColorBufferFormat, desc.DepthBufferFormat)
			c.renderer.Release()
		}
		cfg := c.config.Renderer
		cfg.ColorFormat = desc.ColorBufferFormat
		cfg.DepthFormat = desc.DepthBufferFormat
		c.renderer = NewRenderer(c.device, c.handle, cfg)
		c.colorFormat = desc.ColorBufferFormat
		c.depthFormat = desc.DepthBufferFormat
	}
	if dpi != c.dpi {
		core.LogDebug("gui dpi scale %.2f -> %.2f", c.dpi, dpi)
		c.dpi = dpi
	}
}

// PushEvent queues a platform event for the next frame. When the queue is
// full the oldest event is dropped.
func (c *Context) PushEvent(ev core.InputEvent) {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	if c.queue.Push(ev) {
		c.dropped++
		if c.dropped == 1 || c.dropped%c.config.EventQueueSize == 0 {
			core.LogWarn("gui input queue full, dropped %d events", c.dropped)
		}
	}
}

// BeginFrame starts a GUI frame for a surface of width x height pixels.
func (c *Context) BeginFrame(width, height int, transform metadata.SurfaceTransform, dpi float32) error {
	if c.renderer == nil {
		return core.Errorf("gui_begin_frame", core.ErrNotInitialized, "Sync was not called")
	}
	c.handle.MakeCurrent()

	in := c.frameInput(width, height, transform)
	if err := core.Guard("gui_new_frame", func() error { return c.handle.NewFrame(in) }); err != nil {
		return err
	}
	if dpi > 0 {
		c.dpi = dpi
	}
	if err := c.renderer.NewFrame(width, height, transform, c.dpi); err != nil {
		// the library frame is open, close it so the next BeginFrame is legal
		core.Teardown("gui_discard_frame", c.Discard)
		return err
	}
	c.frames++
	return nil
}

// EndFrame finalizes the GUI frame and draws it into the render target
// currently bound on ctx.
func (c *Context) EndFrame(ctx renderer.DeviceContext) error {
	c.handle.MakeCurrent()
	var data *DrawData
	err := core.Guard("gui_render", func() error {
		d, err := c.handle.Render()
		data = d
		return err
	})
	if err != nil {
		return err
	}
	err = c.renderer.RenderDrawData(ctx, data)
	c.renderer.EndFrame()
	return err
}

// Discard closes a started GUI frame without drawing it.
func (c *Context) Discard() error {
	c.handle.MakeCurrent()
	return core.Guard("gui_discard_frame", func() error {
		_, err := c.handle.Render()
		return err
	})
}

func (c *Context) frameInput(width, height int, transform metadata.SurfaceTransform) FrameInput {
	delta := float32(firstFrameDelta)
	if !c.clock.Started() {
		c.clock.Start()
		c.lastTime = 0
	} else {
		c.clock.Update()
		now := c.clock.Elapsed()
		delta = float32(now - c.lastTime)
		c.lastTime = now
		if delta < minFrameDelta {
			delta = minFrameDelta
		}
	}
	c.lastDelta = delta

	c.queueMu.Lock()
	c.queue.Drain(func(ev core.InputEvent) { c.input.Process(ev) })
	c.queueMu.Unlock()

	displaySize := math.NewVec2(float32(width), float32(height))
	if transform == metadata.SurfaceTransformRotate90 || transform == metadata.SurfaceTransformRotate270 {
		displaySize = math.NewVec2(float32(height), float32(width))
	}

	is := c.input
	in := FrameInput{
		DisplaySize:      displaySize,
		FramebufferScale: math.NewVec2(1, 1),
		DeltaTime:        delta,
		MousePos:         math.NewVec2(is.MouseCurrent.X, is.MouseCurrent.Y),
		MouseWheel:       math.NewVec2(is.MouseCurrent.WheelX, is.MouseCurrent.WheelY),
		Chars:            append([]rune(nil), is.Chars...),
		Focused:          is.Focused,
	}
	for b := core.BUTTON_LEFT; b < core.BUTTON_MAX_BUTTONS; b++ {
		in.MouseDown[b] = is.IsButtonDown(b)
	}
	for k := 0; k < core.KEYS_MAX_KEYS; k++ {
		now, was := is.IsKeyDown(k), is.WasKeyDown(k)
		if now && !was {
			in.KeysPressed = append(in.KeysPressed, k)
		} else if !now && was {
			in.KeysReleased = append(in.KeysReleased, k)
		}
	}
	is.Update()
	return in
}

func (c *Context) Renderer() *Renderer {
	return c.renderer
}

func (c *Context) Handle() ContextHandle {
	return c.handle
}

func (c *Context) Input() *core.InputState {
	return c.input
}

func (c *Context) DPI() float32 {
	return c.dpi
}

func (c *Context) Frames() uint64 {
	return c.frames
}

// LastDelta is the delta time handed to the library on the last frame.
func (c *Context) LastDelta() float32 {
	return c.lastDelta
}

func (c *Context) Destroy() {
	if c.renderer != nil {
		c.renderer.Release()
		c.renderer = nil
	}
	if c.handle != nil {
		c.handle.MakeCurrent()
		c.handle.Destroy()
		c.handle = nil
	}
}
