package engine

import (
	"github.com/spaghettifunk/anima-gfx/engine/core"
)

type pumpSlot struct {
	seq      uint64
	released bool
}

// Pumper is the token of one pumped iteration of the application loop.
// Releasing it presents every window.
type Pumper struct {
	gfx  *Gfx
	slot *pumpSlot
	seq  uint64
}

// BeginPump pumps events and returns the token whose Release presents. When
// the loop should stop, running is false and no token is live.
func (g *Gfx) BeginPump() (p Pumper, running bool, err error) {
	if g.pumpStack == nil {
		return Pumper{}, false, core.NewError("gfx_begin_pump", core.ErrNotInitialized)
	}
	if g.pumpStack.Top() != g.pumpMarker {
		return Pumper{}, false, core.NewError("gfx_begin_pump", core.ErrRendererInFlight)
	}
	running, err = g.Pump()
	if err != nil || !running {
		return Pumper{}, running, err
	}
	slot, err := g.pumpStack.Alloc()
	if err != nil {
		return Pumper{}, false, err
	}
	g.pumpSeq++
	*slot = pumpSlot{seq: g.pumpSeq}
	return Pumper{gfx: g, slot: slot, seq: g.pumpSeq}, true, nil
}

func (p *Pumper) Live() bool {
	return p.slot != nil && p.slot.seq == p.seq && !p.slot.released
}

// Release presents all windows and returns the first present failure.
// Calling it again does nothing.
func (p *Pumper) Release() error {
	if !p.Live() {
		return nil
	}
	p.slot.released = true
	defer p.gfx.pumpStack.Unwind(p.gfx.pumpMarker)
	return p.gfx.Present()
}
