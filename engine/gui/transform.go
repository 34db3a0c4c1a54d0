package gui

import (
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/math"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
)

// Projection returns the orthographic matrix mapping the display rectangle
// to clip space, followed by the rotation the presentation engine expects
// for the surface transform.
func Projection(pos, size math.Vec2, transform metadata.SurfaceTransform) math.Mat4 {
	l := pos.X
	r := pos.X + size.X
	t := pos.Y
	b := pos.Y + size.Y

	projection := math.NewMat4([16]float32{
		2.0 / (r - l), 0, 0, 0,
		0, 2.0 / (t - b), 0, 0,
		0, 0, 0.5, 0,
		(r + l) / (l - r), (t + b) / (b - t), 0.5, 1.0,
	})

	switch transform {
	case metadata.SurfaceTransformRotate90:
		// The image content is rotated 90 degrees clockwise, so the
		// scene is rotated counterclockwise to compensate.
		projection = projection.Mul(math.NewMat4EulerZ(-math.K_HALF_PI))
	case metadata.SurfaceTransformRotate180:
		projection = projection.Mul(math.NewMat4EulerZ(-math.K_PI))
	case metadata.SurfaceTransformRotate270:
		projection = projection.Mul(math.NewMat4EulerZ(-math.K_PI * 1.5))
	case metadata.SurfaceTransformOptimal, metadata.SurfaceTransformIdentity:
	default:
		core.LogWarn("surface transform %s is not supported by the gui renderer", transform)
	}
	return projection
}

// TransformClipRect rotates a clip rectangle (x1, y1, x2, y2) given for a
// display of displaySize into the coordinates of the pre-transformed
// surface.
func TransformClipRect(transform metadata.SurfaceTransform, displaySize math.Vec2, rect math.Vec4) math.Vec4 {
	a := math.NewVec2(rect.X, rect.Y)
	c := math.NewVec2(rect.Z, rect.W)

	switch transform {
	case metadata.SurfaceTransformIdentity:
		return rect
	case metadata.SurfaceTransformRotate90:
		// surface x is the flipped display y, surface y is display x
		return math.NewVec4(displaySize.Y-c.Y, a.X, displaySize.Y-a.Y, c.X)
	case metadata.SurfaceTransformRotate180:
		return math.NewVec4(displaySize.X-c.X, displaySize.Y-c.Y, displaySize.X-a.X, displaySize.Y-a.Y)
	case metadata.SurfaceTransformRotate270:
		return math.NewVec4(a.Y, displaySize.X-c.X, c.Y, displaySize.X-a.X)
	case metadata.SurfaceTransformOptimal:
		core.LogWarn("SurfaceTransformOptimal is only valid as a swapchain request, treating it as identity")
		return rect
	default:
		core.LogWarn("surface transform %s is not supported by the gui renderer", transform)
		return rect
	}
}
