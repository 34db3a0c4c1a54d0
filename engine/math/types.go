package math

// Vec2 represents a 2D vector
type Vec2 struct {
	X, Y float32
}

// Vec4 represents a 4D vector. When used as a rectangle, X/Y hold the
// top-left corner and Z/W the bottom-right corner.
type Vec4 struct {
	X, Y, Z, W float32
}

/** @brief a 4x4 row-major matrix, multiplied with row vectors (v * M). */
type Mat4 struct {
	/** @brief The matrix elements */
	Data [16]float32
}
