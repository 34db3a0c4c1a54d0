package engine

import (
	"github.com/spaghettifunk/anima-gfx/engine/core"
)

type Game struct {
	ApplicationConfig *ApplicationConfig
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnRender          Render
	FnOnResize        OnResize
	FnShutdown        Shutdown
}

type Initialize func(g *Gfx) error
type Update func(deltaTime float64) error

// Render runs inside the GUI frame of a window.
type Render func(w *Window, deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error

// Run drives game until the loop stops. Secondary windows that want to
// close are closed after their frame; the primary one ends the loop.
func (g *Gfx) Run(game *Game) (err error) {
	if err := g.ready("gfx_run"); err != nil {
		return err
	}
	if game.FnShutdown != nil {
		defer func() { keepFirst(&err, core.Guard("game_shutdown", game.FnShutdown)) }()
	}
	if game.FnInitialize != nil {
		if err := core.Guard("game_initialize", func() error { return game.FnInitialize(g) }); err != nil {
			return err
		}
	}
	if game.FnOnResize != nil {
		id := g.events.Register(core.EVENT_CODE_RESIZED, func(ctx core.EventContext) bool {
			we, ok := ctx.Data.(*core.WindowEvent)
			if !ok {
				core.LogError("wrong event associated with the event type `%d`", ctx.Type)
				return false
			}
			if err := game.FnOnResize(we.Width, we.Height); err != nil {
				core.LogError("game resize failed: %v", err)
			}
			return false
		})
		defer g.events.Unregister(core.EVENT_CODE_RESIZED, id)
	}

	var maxFrames uint64
	if game.ApplicationConfig != nil {
		maxFrames = game.ApplicationConfig.MaxFrames
	}

	clock := core.NewClock()
	clock.Start()
	lastTime := 0.0
	for frame := uint64(0); maxFrames == 0 || frame < maxFrames; frame++ {
		clock.Update()
		now := clock.Elapsed()
		delta := now - lastTime
		lastTime = now

		running, err := g.DoFrame(func() error {
			if game.FnUpdate != nil {
				if err := game.FnUpdate(delta); err != nil {
					return err
				}
			}
			if game.FnRender == nil {
				return nil
			}
			for _, w := range g.Windows() {
				if w.state != FrameStateImguiBegun {
					continue
				}
				if err := game.FnRender(w, delta); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			core.LogError("frame %d failed, shutting down: %v", frame, err)
			return err
		}
		if !running {
			break
		}
		for _, w := range g.Windows() {
			if w != g.primary && w.WantsToClose() {
				w.Close()
			}
		}
	}
	return nil
}
