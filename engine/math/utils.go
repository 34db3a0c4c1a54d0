package math

import "golang.org/x/exp/constraints"

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// GrowCapacity doubles capacity until it can hold required elements.
// It never returns less than the current capacity, and a zero capacity
// grows from one. When the next doubling would overflow T the result is
// required itself.
func GrowCapacity[T constraints.Integer](capacity, required T) T {
	if capacity <= 0 {
		capacity = 1
	}
	for capacity < required {
		next := capacity * 2
		if next <= capacity {
			return required
		}
		capacity = next
	}
	return capacity
}
