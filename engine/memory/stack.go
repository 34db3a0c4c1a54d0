// Package memory holds the per-frame scratch allocator.
package memory

import "github.com/spaghettifunk/anima-gfx/engine/core"

// Marker is a saved stack top.
type Marker int

// Stack is a fixed-capacity arena of T. Alloc hands out slots in order
// and Unwind gives every slot above a marker back at once, so per-frame
// objects never touch the heap after construction.
type Stack[T any] struct {
	slots []T
	top   int
}

func NewStack[T any](capacity int) *Stack[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Stack[T]{slots: make([]T, capacity)}
}

// Top returns the current high-water mark.
func (s *Stack[T]) Top() Marker {
	return Marker(s.top)
}

// Alloc returns a zeroed slot.
func (s *Stack[T]) Alloc() (*T, error) {
	if s.top >= len(s.slots) {
		return nil, core.NewError("stack_alloc", core.ErrStackExhausted)
	}
	slot := &s.slots[s.top]
	s.top++
	return slot, nil
}

// Unwind releases every slot allocated after m and zeroes them.
// Unwinding to a marker above the top is a no-op.
func (s *Stack[T]) Unwind(m Marker) {
	if int(m) >= s.top || m < 0 {
		return
	}
	var zero T
	for i := int(m); i < s.top; i++ {
		s.slots[i] = zero
	}
	s.top = int(m)
}

func (s *Stack[T]) Cap() int {
	return len(s.slots)
}

func (s *Stack[T]) Len() int {
	return s.top
}
