package engine

import (
	"github.com/spaghettifunk/anima-gfx/engine/core"
)

// FrameState is where a window stands in its frame.
type FrameState uint8

const (
	FrameStateIdle FrameState = iota
	// Resources exist and match the window size.
	FrameStateFrameBegun
	// A GUI frame is open, user code may emit widgets.
	FrameStateImguiBegun
	// GUI draw data was submitted to the back buffer.
	FrameStateImguiEnded
	// Commands are flushed, the back buffer waits for Present.
	FrameStateFrameEnded
)

func (s FrameState) String() string {
	switch s {
	case FrameStateIdle:
		return "idle"
	case FrameStateFrameBegun:
		return "frame_begun"
	case FrameStateImguiBegun:
		return "imgui_begun"
	case FrameStateImguiEnded:
		return "imgui_ended"
	case FrameStateFrameEnded:
		return "frame_ended"
	}
	return "unknown"
}

// A frame that ended without a present (a viewport window, a failed begin
// of a sibling) may begin again.
var frameTransitions = map[FrameState][]FrameState{
	FrameStateIdle:       {FrameStateFrameBegun},
	FrameStateFrameBegun: {FrameStateImguiBegun, FrameStateFrameEnded},
	FrameStateImguiBegun: {FrameStateImguiEnded},
	FrameStateImguiEnded: {FrameStateFrameEnded},
	FrameStateFrameEnded: {FrameStateIdle, FrameStateFrameBegun},
}

func CanTransition(from, to FrameState) bool {
	for _, s := range frameTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func checkTransition(op string, from, to FrameState) error {
	if !CanTransition(from, to) {
		return core.Errorf(op, core.ErrInvalidFrameState, "%s -> %s", from, to)
	}
	return nil
}

// keepFirst stores err in dst unless dst already holds one, in which case
// err is logged so it does not mask the first failure.
func keepFirst(dst *error, err error) {
	if err == nil {
		return
	}
	if *dst == nil {
		*dst = err
		return
	}
	core.LogGfxError(err)
}
