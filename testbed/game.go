package testbed

import (
	"fmt"

	"github.com/inkyblackness/imgui-go/v4"

	"github.com/spaghettifunk/anima-gfx/engine"
	"github.com/spaghettifunk/anima-gfx/engine/core"
	imguilib "github.com/spaghettifunk/anima-gfx/engine/gui/imgui"
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	gfx *engine.Gfx

	width  uint32
	height uint32

	showDemo bool
	frames   uint64
	elapsed  float64
}

func NewTestGame(maxFrames uint64) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: &engine.ApplicationConfig{
				Name:      "Anima Gfx Testbed",
				MaxFrames: maxFrames,
			},
			State: &gameState{showDemo: true},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg
}

func (g *TestGame) Initialize(gfx *engine.Gfx) error {
	core.LogDebug("TestGame Initialize fn....")
	state := g.State.(*gameState)
	state.gfx = gfx
	if w := gfx.Windows(); len(w) > 0 {
		width, height := w[0].DisplaySize()
		state.width, state.height = uint32(width), uint32(height)
	}
	return nil
}

func (g *TestGame) Update(deltaTime float64) error {
	state := g.State.(*gameState)
	state.frames++
	state.elapsed += deltaTime
	return nil
}

func (g *TestGame) Render(w *engine.Window, deltaTime float64) error {
	ctx := w.GUI()
	if ctx == nil {
		return nil
	}
	// widgets only exist with the imgui library
	if _, ok := ctx.Handle().(*imguilib.Context); !ok {
		return nil
	}
	state := g.State.(*gameState)

	if state.showDemo {
		imgui.ShowDemoWindow(&state.showDemo)
	}

	fps, ms := state.gfx.FrameStats()
	width, height := w.DisplaySize()
	imgui.Begin("Stats")
	imgui.Text(fmt.Sprintf("window %s", w.ID()))
	imgui.Text(fmt.Sprintf("%dx%d @ %.2f dpi", width, height, w.DPIScale()))
	imgui.Text(fmt.Sprintf("%.1f fps (%.3f ms)", fps, ms))
	imgui.Text(fmt.Sprintf("frame %d, %.1fs", state.frames, state.elapsed))
	imgui.Checkbox("demo window", &state.showDemo)
	imgui.End()
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.State.(*gameState)
	state.width = width
	state.height = height
	core.LogDebug("testbed resized to %dx%d", width, height)
	return nil
}

func (g *TestGame) Shutdown() error {
	state := g.State.(*gameState)
	core.LogInfo("testbed ran %d frames in %.1fs", state.frames, state.elapsed)
	return nil
}
