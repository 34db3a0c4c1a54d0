package engine

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/spaghettifunk/anima-gfx/engine/assets"
	"github.com/spaghettifunk/anima-gfx/engine/config"
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/gui"
	"github.com/spaghettifunk/anima-gfx/engine/memory"
	"github.com/spaghettifunk/anima-gfx/engine/platform"
	"github.com/spaghettifunk/anima-gfx/engine/renderer"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-gfx/engine/systems"
)

type Options struct {
	// Factory replaces the backend named in the configuration.
	Factory renderer.FactoryConstructor
	// WindowSystem replaces the platform named in the configuration.
	WindowSystem platform.WindowSystem
	// GUILibrary replaces the library named in the configuration.
	GUILibrary gui.Library
	Viewports  ViewportRenderer
	// Clock drives the GUI frame deltas, a wall clock when nil.
	Clock *core.Clock
}

type Option func(*Options)

func WithFactory(f renderer.FactoryConstructor) Option {
	return func(o *Options) { o.Factory = f }
}

func WithWindowSystem(ws platform.WindowSystem) Option {
	return func(o *Options) { o.WindowSystem = ws }
}

func WithGUILibrary(l gui.Library) Option {
	return func(o *Options) { o.GUILibrary = l }
}

func WithViewports(vr ViewportRenderer) Option {
	return func(o *Options) { o.Viewports = vr }
}

func WithClock(c *core.Clock) Option {
	return func(o *Options) { o.Clock = c }
}

// platformHandle is the initialized window system shared by all windows.
type platformHandle struct {
	system platform.WindowSystem
}

type guiShaders struct {
	vertex []uint32
	pixel  []uint32
}

// Gfx opens windows and drives their frames. Its methods must be called
// from the goroutine that selected the platform, except ApplyConfig and
// RequestQuit.
type Gfx struct {
	opts   Options
	cfg    *config.Config
	events *core.EventSystem

	windowSystem platform.WindowSystem
	platform     *core.Shared[platformHandle]
	globals      *renderer.GlobalsManager
	library      gui.Library
	assets       *assets.AssetManager
	shaders      guiShaders
	jobs         *systems.JobSystem

	windows []*Window
	primary *Window

	pumpStack  *memory.Stack[pumpSlot]
	pumpMarker memory.Marker
	pumpSeq    uint64

	// device objects and the GUI library are not safe for concurrent use
	renderMu sync.Mutex

	pendingMu     sync.Mutex
	pendingConfig *config.Config

	metrics     *core.Metrics
	frameClock  *core.Clock
	lastPresent float64

	quit        atomic.Bool
	quitID      uint64
	initialized bool
}

var (
	defaultOnce sync.Once
	defaultGfx  *Gfx
)

// Default returns the process-wide Gfx.
func Default() *Gfx {
	defaultOnce.Do(func() {
		defaultGfx = New()
	})
	return defaultGfx
}

func New(opts ...Option) *Gfx {
	g := &Gfx{
		cfg:     config.Default(),
		events:  core.NewEventSystem(),
		metrics: core.NewMetrics(),
	}
	for _, o := range opts {
		o(&g.opts)
	}
	g.quitID = g.events.Register(core.EVENT_CODE_APPLICATION_QUIT, func(ctx core.EventContext) bool {
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		g.quit.Store(true)
		return false
	})
	return g
}

// SelectPlatform picks the window system. It cannot change while windows
// are open.
func (g *Gfx) SelectPlatform(name string) (bool, error) {
	if g.platform != nil && g.platform.Alive() {
		return false, core.Errorf("gfx_select_platform", core.ErrUnknown, "platform `%s` has open windows", g.windowSystem.Name())
	}
	var ws platform.WindowSystem
	if g.opts.WindowSystem != nil && (name == "" || strings.EqualFold(name, g.opts.WindowSystem.Name())) {
		ws = g.opts.WindowSystem
	} else {
		selected, err := platform.Select(name)
		if err != nil {
			return false, core.Errorf("gfx_select_platform", core.ErrPlatformNotSelected, "%v", err)
		}
		ws = selected
	}
	g.windowSystem = ws
	g.platform = core.NewShared(
		func() (*platformHandle, error) {
			if err := ws.Init(); err != nil {
				return nil, core.NewError("platform_init", err)
			}
			return &platformHandle{system: ws}, nil
		},
		func(p *platformHandle) error {
			return p.system.Terminate()
		},
	).Observe(
		func(p *platformHandle) {
			g.events.Fire(core.EventContext{Type: core.EVENT_CODE_PLATFORM_STARTED, Sender: g, Data: p.system.Name()})
		},
		func(p *platformHandle) {
			g.events.Fire(core.EventContext{Type: core.EVENT_CODE_PLATFORM_STOPPED, Sender: g, Data: p.system.Name()})
		},
	)
	core.LogInfo("platform `%s` selected", ws.Name())
	return true, nil
}

// Init applies cfg, nil meaning the defaults. It selects the platform named
// in cfg unless SelectPlatform was called.
func (g *Gfx) Init(cfg *config.Config) error {
	if g.initialized {
		return core.Errorf("gfx_init", core.ErrUnknown, "already initialized")
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	g.cfg = cfg
	core.SetLogLevel(cfg.LogLevel())

	if g.windowSystem == nil {
		if _, err := g.SelectPlatform(cfg.Platform.Name); err != nil {
			return err
		}
	}

	library := g.opts.GUILibrary
	if library == nil {
		l, err := gui.Select(cfg.GUI.Library)
		if err != nil {
			return core.Errorf("gfx_init", core.ErrNotInitialized, "%v", err)
		}
		library = l
	}
	g.library = library

	if err := g.loadShaders(cfg); err != nil {
		return err
	}

	g.globals = renderer.NewGlobalsManager(g.newFactory, g.events)

	if cfg.Renderer.Parallel {
		jobs, err := systems.NewJobSystem(runtime.NumCPU(), 0)
		if err != nil {
			return core.Errorf("gfx_init", core.ErrUnknown, "%v", err)
		}
		g.jobs = jobs
	}

	g.pumpStack = memory.NewStack[pumpSlot](cfg.Renderer.FrameStackCapacity)
	g.pumpMarker = g.pumpStack.Top()
	g.frameClock = core.NewClock()
	g.frameClock.Start()
	g.lastPresent = 0
	g.quit.Store(false)
	g.initialized = true
	core.LogInfo("gfx initialized: platform=%s backend=%s gui=%s parallel=%t", g.windowSystem.Name(), g.backendName(), library.Name(), cfg.Renderer.Parallel)
	return nil
}

func (g *Gfx) backendName() string {
	if g.opts.Factory != nil {
		return "custom"
	}
	return g.cfg.Renderer.Backend
}

func (g *Gfx) newFactory() (renderer.Factory, error) {
	opts := renderer.FactoryOptions{
		ApplicationName:    g.cfg.Window.Title,
		InstanceExtensions: g.windowSystem.RequiredInstanceExtensions(),
		Validation:         g.cfg.Renderer.Validation,
	}
	if g.opts.Factory != nil {
		return g.opts.Factory(opts)
	}
	return renderer.NewFactory(g.cfg.Renderer.Backend, opts)
}

// loadShaders reads the GUI shaders. Only the vulkan backend cannot do
// without them.
func (g *Gfx) loadShaders(cfg *config.Config) error {
	required := g.opts.Factory == nil && strings.EqualFold(cfg.Renderer.Backend, "vulkan")
	if _, err := os.Stat(cfg.Assets.Dir); err != nil {
		if required {
			return core.Errorf("gfx_load_shaders", core.ErrGraphicsInitFailed, "asset directory: %v", err)
		}
		core.LogDebug("no asset directory `%s`, gui shaders not loaded", cfg.Assets.Dir)
		return nil
	}
	am := assets.NewAssetManager()
	if err := am.Initialize(cfg.Assets.Dir, false); err != nil {
		return err
	}
	g.assets = am

	vertex, verr := am.LoadShader(filepath.ToSlash(cfg.Assets.GUIVertexShader))
	pixel, perr := am.LoadShader(filepath.ToSlash(cfg.Assets.GUIPixelShader))
	if verr != nil || perr != nil {
		if required {
			var err error
			keepFirst(&err, verr)
			keepFirst(&err, perr)
			return err
		}
		core.LogDebug("gui shaders not loaded from `%s`", cfg.Assets.Dir)
		return nil
	}
	g.shaders = guiShaders{vertex: vertex, pixel: pixel}
	return nil
}

func (g *Gfx) ready(op string) error {
	if !g.initialized {
		return core.NewError(op, core.ErrNotInitialized)
	}
	if g.windowSystem == nil {
		return core.NewError(op, core.ErrPlatformNotSelected)
	}
	return nil
}

// OpenWindow creates a window. Its resources are created by the first
// BeginFrame.
func (g *Gfx) OpenWindow(x, y, width, height int) (*Window, error) {
	if err := g.ready("gfx_open_window"); err != nil {
		return nil, err
	}
	ref, err := g.platform.Acquire()
	if err != nil {
		return nil, err
	}
	var native platform.Window
	err = core.Guard("gfx_open_window", func() error {
		n, err := g.windowSystem.CreateWindow(x, y, width, height, g.cfg.Window.Title)
		native = n
		return err
	})
	if err != nil {
		core.Teardown("platform_release", ref.Release)
		return nil, err
	}
	w := newWindow(g, native, ref)
	g.windows = append(g.windows, w)
	if g.primary == nil || g.primary.closed {
		g.primary = w
	}
	g.fire([]core.EventContext{w.event(core.EVENT_CODE_WINDOW_OPENED, frameSize{width: width, height: height})})
	core.LogInfo("window `%s` opened at %d,%d %dx%d", w.id, x, y, width, height)
	return w, nil
}

// Windows returns the windows that are not closed.
func (g *Gfx) Windows() []*Window {
	live := make([]*Window, 0, len(g.windows))
	for _, w := range g.windows {
		if !w.closed {
			live = append(live, w)
		}
	}
	return live
}

// Pump processes OS events. It reports false once the loop should stop: a
// quit was requested, the primary window wants to close or no window is
// left.
func (g *Gfx) Pump() (bool, error) {
	if err := g.ready("gfx_pump"); err != nil {
		return false, err
	}
	g.applyPendingConfig()
	if g.platform.Alive() {
		if err := g.windowSystem.PollEvents(); err != nil {
			return false, core.NewError("gfx_pump", err)
		}
	}
	if g.quit.Load() {
		return false, nil
	}
	if len(g.Windows()) == 0 {
		return false, nil
	}
	if g.primary != nil && g.primary.WantsToClose() {
		return false, nil
	}
	return true, nil
}

// BeginFrame begins the frame of every window. If one window fails, the
// windows that did begin are ended again and the first error is returned.
func (g *Gfx) BeginFrame() error {
	if err := g.ready("gfx_begin_frame"); err != nil {
		return err
	}
	windows := g.Windows()
	sizes := make([]frameSize, len(windows))
	for i, w := range windows {
		size, err := w.query()
		if err != nil {
			return err
		}
		sizes[i] = size
	}

	events := make([][]core.EventContext, len(windows))
	errs := make([]error, len(windows))
	if g.jobs != nil && len(windows) > 1 {
		tasks := make([]systems.JobTask, len(windows))
		for i, w := range windows {
			i, w := i, w
			tasks[i] = systems.JobTask{Name: "begin_frame", OnStart: func() error {
				ev, err := w.prepare(sizes[i])
				events[i] = ev
				return err
			}}
		}
		if stageErrs := g.jobs.Stage(tasks...); stageErrs != nil {
			errs = stageErrs
		}
	} else {
		for i, w := range windows {
			events[i], errs[i] = w.prepare(sizes[i])
			if errs[i] != nil {
				break
			}
		}
	}

	var first error
	for i := range windows {
		keepFirst(&first, errs[i])
		g.fire(events[i])
	}
	if first != nil {
		for _, w := range windows {
			if w.state == FrameStateFrameBegun {
				core.Teardown("window_end_frame", w.EndFrame)
			}
		}
	}
	return first
}

// BeginImgui opens the GUI frame of every window whose frame has begun.
func (g *Gfx) BeginImgui() (err error) {
	if err := g.ready("gfx_begin_imgui"); err != nil {
		return err
	}
	for _, w := range g.Windows() {
		if w.state == FrameStateFrameBegun {
			keepFirst(&err, w.BeginImgui())
		}
	}
	return err
}

// EndImgui draws the GUI frame of every window that has one open.
func (g *Gfx) EndImgui() (err error) {
	if err := g.ready("gfx_end_imgui"); err != nil {
		return err
	}
	for _, w := range g.Windows() {
		if w.state == FrameStateImguiBegun {
			keepFirst(&err, w.EndImgui())
		}
	}
	return err
}

// EndFrame ends the frame of every window that has one in progress.
func (g *Gfx) EndFrame() (err error) {
	if err := g.ready("gfx_end_frame"); err != nil {
		return err
	}
	// GUI work stays on this goroutine
	keepFirst(&err, g.EndImgui())

	var pending []*Window
	for _, w := range g.Windows() {
		switch w.state {
		case FrameStateFrameBegun, FrameStateImguiEnded:
			pending = append(pending, w)
		}
	}
	if g.jobs != nil && len(pending) > 1 {
		tasks := make([]systems.JobTask, len(pending))
		for i, w := range pending {
			tasks[i] = systems.JobTask{Name: "end_frame", OnStart: w.EndFrame}
		}
		for _, e := range g.jobs.Stage(tasks...) {
			keepFirst(&err, e)
		}
		return err
	}
	for _, w := range pending {
		keepFirst(&err, w.EndFrame())
	}
	return err
}

// Present shows every ended frame and drops closed windows. The first
// failure stops the iteration and is returned.
func (g *Gfx) Present() error {
	if err := g.ready("gfx_present"); err != nil {
		return err
	}
	var first error
	live := make([]*Window, 0, len(g.windows))
	for _, w := range g.windows {
		if w.closed {
			continue
		}
		live = append(live, w)
		if first != nil {
			continue
		}
		if err := w.Present(); err != nil {
			first = err
			continue
		}
		if vr := g.opts.Viewports; vr != nil {
			first = core.Guard("present_viewports", func() error { return vr.PresentViewports(w) })
		}
	}
	g.windows = live

	g.frameClock.Update()
	now := g.frameClock.Elapsed()
	g.metrics.Update(now - g.lastPresent)
	g.lastPresent = now
	return first
}

// DoFrame pumps and runs fn inside the frame and GUI frame of every window.
// The end steps and the present run on every path once the frame began.
func (g *Gfx) DoFrame(fn func() error) (running bool, err error) {
	running, err = g.Pump()
	if err != nil || !running {
		return running, err
	}
	defer func() { keepFirst(&err, g.Present()) }()
	if err := g.BeginFrame(); err != nil {
		return true, err
	}
	defer func() { keepFirst(&err, g.EndFrame()) }()
	if err := g.BeginImgui(); err != nil {
		return true, err
	}
	defer func() { keepFirst(&err, g.EndImgui()) }()
	return true, core.Guard("gfx_frame", fn)
}

// ApplyConfig schedules a reloaded configuration. The log level, clear
// color and DPI override take effect at the next Pump; the rest needs a
// restart.
func (g *Gfx) ApplyConfig(cfg *config.Config) {
	g.pendingMu.Lock()
	defer g.pendingMu.Unlock()
	g.pendingConfig = cfg
}

func (g *Gfx) applyPendingConfig() {
	g.pendingMu.Lock()
	next := g.pendingConfig
	g.pendingConfig = nil
	g.pendingMu.Unlock()
	if next == nil {
		return
	}
	cfg := *g.cfg
	cfg.Log = next.Log
	cfg.Renderer.ClearColor = next.Renderer.ClearColor
	cfg.GUI.DPIScale = next.GUI.DPIScale
	g.cfg = &cfg
	core.SetLogLevel(cfg.LogLevel())
	core.LogInfo("configuration applied: level=%s clear=%v dpi=%.2f", cfg.Log.Level, cfg.Renderer.ClearColor, cfg.GUI.DPIScale)
}

// RequestQuit makes the next Pump report false.
func (g *Gfx) RequestQuit() {
	g.events.Fire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT, Sender: g})
}

func (g *Gfx) Events() *core.EventSystem {
	return g.events
}

// FrameStats returns the frames per second and the average frame time in
// milliseconds.
func (g *Gfx) FrameStats() (float64, float64) {
	return g.metrics.Frame()
}

func (g *Gfx) Config() *config.Config {
	return g.cfg
}

// Globals exposes the shared device manager, nil before Init.
func (g *Gfx) Globals() *renderer.GlobalsManager {
	return g.globals
}

// Destroy closes every window and releases what Init created. The Gfx can
// be initialized again afterwards.
func (g *Gfx) Destroy() {
	for _, w := range g.windows {
		w.Close()
	}
	g.windows = nil
	g.primary = nil
	if g.jobs != nil {
		core.Teardown("job_system_shutdown", g.jobs.Shutdown)
		g.jobs = nil
	}
	if g.assets != nil {
		core.Teardown("assets_close", g.assets.Close)
		g.assets = nil
	}
	g.pumpStack = nil
	if g.initialized {
		core.LogInfo("gfx destroyed")
	}
	g.initialized = false
}

func (g *Gfx) config() *config.Config {
	return g.cfg
}

func (g *Gfx) clearColor() metadata.Color {
	return g.cfg.ClearColor()
}

func (g *Gfx) guiConfig() gui.ContextConfig {
	return gui.ContextConfig{
		Renderer: gui.RendererConfig{
			InitialVertexCapacity: g.cfg.Renderer.InitialVertexCapacity,
			InitialIndexCapacity:  g.cfg.Renderer.InitialIndexCapacity,
			FontSize:              g.cfg.GUI.FontSize,
			VertexShader:          g.shaders.vertex,
			PixelShader:           g.shaders.pixel,
		},
		Clock: g.opts.Clock,
	}
}

// serial runs device and GUI library work one call at a time.
func (g *Gfx) serial(fn func() error) error {
	g.renderMu.Lock()
	defer g.renderMu.Unlock()
	return fn()
}

func (g *Gfx) fire(events []core.EventContext) {
	for _, e := range events {
		g.events.Fire(e)
	}
}
