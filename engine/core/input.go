package core

type Button uint16

const (
	BUTTON_LEFT Button = iota
	BUTTON_RIGHT
	BUTTON_MIDDLE
	BUTTON_MAX_BUTTONS
)

// Key codes are the platform's own. 512 covers every GLFW key.
const KEYS_MAX_KEYS = 512

type InputEventType uint8

const (
	InputEventKey InputEventType = iota
	InputEventButton
	InputEventMouseMove
	InputEventMouseWheel
	InputEventChar
	InputEventFocus
)

// InputEvent is one platform callback, queued until the GUI context
// picks it up at the start of its next frame.
type InputEvent struct {
	Type    InputEventType
	Key     int
	Button  Button
	Pressed bool
	X, Y    float32
	Char    rune
}

// Mouse state structure
type MouseState struct {
	X, Y    float32
	WheelX  float32
	WheelY  float32
	Buttons [BUTTON_MAX_BUTTONS]bool
}

// Keyboard state structure
type KeyboardState struct {
	Keys [KEYS_MAX_KEYS]bool
}

// InputState holds current and previous keyboard and mouse states for
// one GUI context. It is owned by a single window, there is no global
// input state.
type InputState struct {
	KeyboardCurrent  KeyboardState
	KeyboardPrevious KeyboardState
	MouseCurrent     MouseState
	MousePrevious    MouseState
	Focused          bool
	Chars            []rune
}

func NewInputState() *InputState {
	return &InputState{Focused: true}
}

// Update copies the current states into the previous ones and clears the
// per-frame accumulators. Call once per frame, after the GUI consumed them.
func (is *InputState) Update() {
	is.KeyboardPrevious = is.KeyboardCurrent
	is.MousePrevious = is.MouseCurrent
	is.MouseCurrent.WheelX = 0
	is.MouseCurrent.WheelY = 0
	is.Chars = is.Chars[:0]
}

// Process applies ev to the current state. It reports whether anything changed.
func (is *InputState) Process(ev InputEvent) bool {
	switch ev.Type {
	case InputEventKey:
		if ev.Key < 0 || ev.Key >= KEYS_MAX_KEYS || is.KeyboardCurrent.Keys[ev.Key] == ev.Pressed {
			return false
		}
		is.KeyboardCurrent.Keys[ev.Key] = ev.Pressed
	case InputEventButton:
		if ev.Button >= BUTTON_MAX_BUTTONS || is.MouseCurrent.Buttons[ev.Button] == ev.Pressed {
			return false
		}
		is.MouseCurrent.Buttons[ev.Button] = ev.Pressed
	case InputEventMouseMove:
		if is.MouseCurrent.X == ev.X && is.MouseCurrent.Y == ev.Y {
			return false
		}
		is.MouseCurrent.X = ev.X
		is.MouseCurrent.Y = ev.Y
	case InputEventMouseWheel:
		is.MouseCurrent.WheelX += ev.X
		is.MouseCurrent.WheelY += ev.Y
	case InputEventChar:
		is.Chars = append(is.Chars, ev.Char)
	case InputEventFocus:
		if is.Focused == ev.Pressed {
			return false
		}
		is.Focused = ev.Pressed
	default:
		return false
	}
	return true
}

// keyboard input
func (is *InputState) IsKeyDown(key int) bool {
	return key >= 0 && key < KEYS_MAX_KEYS && is.KeyboardCurrent.Keys[key]
}

func (is *InputState) WasKeyDown(key int) bool {
	return key >= 0 && key < KEYS_MAX_KEYS && is.KeyboardPrevious.Keys[key]
}

// mouse input
func (is *InputState) IsButtonDown(button Button) bool {
	return button < BUTTON_MAX_BUTTONS && is.MouseCurrent.Buttons[button]
}

func (is *InputState) WasButtonDown(button Button) bool {
	return button < BUTTON_MAX_BUTTONS && is.MousePrevious.Buttons[button]
}

func (is *InputState) MousePosition() (float32, float32) {
	return is.MouseCurrent.X, is.MouseCurrent.Y
}
