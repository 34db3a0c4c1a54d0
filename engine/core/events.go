package core

import "sync"

// System internal event codes. Application should use codes beyond 255.
type SystemEventCode int

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01

	// A window was opened. Data: *WindowEvent
	EVENT_CODE_WINDOW_OPENED SystemEventCode = 0x02

	// A window was closed and released its resources. Data: *WindowEvent
	EVENT_CODE_WINDOW_CLOSED SystemEventCode = 0x03

	// The framebuffer of a window changed size. Data: *WindowEvent
	EVENT_CODE_RESIZED SystemEventCode = 0x04

	// The content scale of a window changed. Data: *WindowEvent
	EVENT_CODE_SCALE_CHANGED SystemEventCode = 0x05

	// The shared device, context and factory were constructed.
	EVENT_CODE_GLOBALS_CREATED SystemEventCode = 0x06

	// The last window released the shared device, context and factory.
	EVENT_CODE_GLOBALS_DESTROYED SystemEventCode = 0x07

	// The window system was initialized / terminated.
	EVENT_CODE_PLATFORM_STARTED SystemEventCode = 0x08
	EVENT_CODE_PLATFORM_STOPPED SystemEventCode = 0x09

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

type EventContext struct {
	Type   SystemEventCode
	Sender interface{}
	Data   interface{}
}

type WindowEvent struct {
	WindowID string
	Width    uint32
	Height   uint32
	Scale    float32
}

// Should return true if handled.
type FnOnEvent func(context EventContext) bool

type registeredEvent struct {
	id       uint64
	callback FnOnEvent
}

// EventSystem dispatches events synchronously on the goroutine calling Fire.
type EventSystem struct {
	mu         sync.RWMutex
	nextID     uint64
	registered map[SystemEventCode][]registeredEvent
}

func NewEventSystem() *EventSystem {
	return &EventSystem{
		registered: make(map[SystemEventCode][]registeredEvent),
	}
}

// Register listens for code and returns a handle for Unregister.
func (es *EventSystem) Register(code SystemEventCode, onEvent FnOnEvent) uint64 {
	es.mu.Lock()
	defer es.mu.Unlock()

	es.nextID++
	es.registered[code] = append(es.registered[code], registeredEvent{
		id:       es.nextID,
		callback: onEvent,
	})
	return es.nextID
}

// Unregister removes the listener returned by Register. It reports false
// if nothing matched.
func (es *EventSystem) Unregister(code SystemEventCode, id uint64) bool {
	es.mu.Lock()
	defer es.mu.Unlock()

	events := es.registered[code]
	for i := range events {
		if events[i].id == id {
			es.registered[code] = append(events[:i:i], events[i+1:]...)
			return true
		}
	}
	return false
}

// Fire hands context to listeners in registration order. Once a listener
// returns true the event is considered handled and is not passed on.
func (es *EventSystem) Fire(context EventContext) bool {
	if es == nil {
		return false
	}
	es.mu.RLock()
	events := append([]registeredEvent(nil), es.registered[context.Type]...)
	es.mu.RUnlock()

	for _, e := range events {
		if e.callback(context) {
			return true
		}
	}
	return false
}

// Shutdown drops every listener.
func (es *EventSystem) Shutdown() {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.registered = make(map[SystemEventCode][]registeredEvent)
}
