package core

import "testing"

func TestEventsStopAtFirstHandler(t *testing.T) {
	es := NewEventSystem()
	var order []int
	es.Register(EVENT_CODE_RESIZED, func(EventContext) bool {
		order = append(order, 1)
		return true
	})
	es.Register(EVENT_CODE_RESIZED, func(EventContext) bool {
		order = append(order, 2)
		return false
	})

	if !es.Fire(EventContext{Type: EVENT_CODE_RESIZED}) {
		t.Fatalf("Fire reported the event as unhandled")
	}
	if len(order) != 1 || order[0] != 1 {
		t.Fatalf("listeners called:\nhave %v\nwant [1]", order)
	}
}

func TestEventsUnregister(t *testing.T) {
	es := NewEventSystem()
	calls := 0
	id := es.Register(EVENT_CODE_GLOBALS_CREATED, func(EventContext) bool {
		calls++
		return false
	})
	es.Fire(EventContext{Type: EVENT_CODE_GLOBALS_CREATED})
	if !es.Unregister(EVENT_CODE_GLOBALS_CREATED, id) {
		t.Fatalf("Unregister did not find the listener")
	}
	es.Fire(EventContext{Type: EVENT_CODE_GLOBALS_CREATED})
	if calls != 1 {
		t.Fatalf("calls:\nhave %d\nwant 1", calls)
	}
	if es.Unregister(EVENT_CODE_GLOBALS_CREATED, id) {
		t.Fatalf("Unregister removed a listener twice")
	}
}
