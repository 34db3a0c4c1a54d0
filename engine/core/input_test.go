package core

import "testing"

func TestInputStateTracksPreviousFrame(t *testing.T) {
	is := NewInputState()
	if !is.Process(InputEvent{Type: InputEventButton, Button: BUTTON_LEFT, Pressed: true}) {
		t.Fatalf("button press reported no change")
	}
	if is.Process(InputEvent{Type: InputEventButton, Button: BUTTON_LEFT, Pressed: true}) {
		t.Fatalf("repeated press reported a change")
	}
	is.Process(InputEvent{Type: InputEventMouseWheel, Y: 1})
	is.Process(InputEvent{Type: InputEventChar, Char: 'x'})

	is.Update()
	if !is.WasButtonDown(BUTTON_LEFT) || !is.IsButtonDown(BUTTON_LEFT) {
		t.Fatalf("button state lost across Update")
	}
	if is.MouseCurrent.WheelY != 0 || len(is.Chars) != 0 {
		t.Fatalf("per-frame accumulators survived Update")
	}
}

func TestInputStateRejectsOutOfRangeKeys(t *testing.T) {
	is := NewInputState()
	if is.Process(InputEvent{Type: InputEventKey, Key: KEYS_MAX_KEYS, Pressed: true}) {
		t.Fatalf("out of range key accepted")
	}
	if is.IsKeyDown(-1) {
		t.Fatalf("negative key reported as down")
	}
}
