package renderer

import (
	"github.com/spaghettifunk/anima-gfx/engine/core"
)

// Globals are the graphics objects shared by every window: the backend
// factory, the device and its immediate context.
type Globals struct {
	Factory Factory
	Device  Device
	Context DeviceContext
}

// GlobalsManager hands out references to the process-wide Globals. They are
// created when the first reference is acquired and destroyed when the last
// one is released, so a process that closes all its windows and opens a new
// one gets a fresh device.
type GlobalsManager struct {
	shared *core.Shared[Globals]
}

func NewGlobalsManager(newFactory func() (Factory, error), events *core.EventSystem) *GlobalsManager {
	gm := &GlobalsManager{}
	gm.shared = core.NewShared(
		func() (*Globals, error) {
			g, err := createGlobals(newFactory)
			if err != nil {
				return nil, err
			}
			core.LogInfo("graphics globals created with `%s` backend", g.Factory.Name())
			return g, nil
		},
		func(g *Globals) error {
			destroyGlobals(g)
			core.LogInfo("graphics globals destroyed")
			return nil
		},
	).Observe(
		func(*Globals) {
			events.Fire(core.EventContext{Type: core.EVENT_CODE_GLOBALS_CREATED, Sender: gm})
		},
		func(*Globals) {
			events.Fire(core.EventContext{Type: core.EVENT_CODE_GLOBALS_DESTROYED, Sender: gm})
		},
	)
	return gm
}

// Acquire returns a reference to the live Globals, creating them first if
// none exist. The caller must Release the reference.
func (gm *GlobalsManager) Acquire() (*core.Ref[Globals], error) {
	ref, err := gm.shared.Acquire()
	if err != nil {
		return nil, core.NewError("globals_acquire", err)
	}
	return ref, nil
}

func (gm *GlobalsManager) Alive() bool {
	return gm.shared.Alive()
}

func (gm *GlobalsManager) Refs() int {
	return gm.shared.Refs()
}

// Generation counts how many times the Globals were constructed.
func (gm *GlobalsManager) Generation() uint64 {
	return gm.shared.Generation()
}

func createGlobals(newFactory func() (Factory, error)) (g *Globals, err error) {
	err = core.Guard("create_globals", func() error {
		factory, err := newFactory()
		if err != nil {
			return core.Errorf("create_factory", core.ErrGraphicsInitFailed, "%v", err)
		}
		device, context, err := factory.CreateDeviceAndContext()
		if err != nil {
			core.Teardown("factory_release", factory.Release)
			return core.Errorf("create_device", core.ErrGraphicsInitFailed, "%v", err)
		}
		g = &Globals{Factory: factory, Device: device, Context: context}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// destroyGlobals releases in reverse creation order.
func destroyGlobals(g *Globals) {
	if g.Device != nil {
		core.Teardown("device_wait_idle", g.Device.WaitIdle)
	}
	if g.Context != nil {
		core.Teardown("context_release", g.Context.Release)
	}
	if g.Device != nil {
		core.Teardown("device_release", g.Device.Release)
	}
	if g.Factory != nil {
		core.Teardown("factory_release", g.Factory.Release)
	}
}
