package metadata

import "fmt"

type TextureFormat int

const (
	TextureFormatUnknown TextureFormat = iota
	TextureFormatRGBA8Unorm
	TextureFormatRGBA8UnormSRGB
	TextureFormatBGRA8Unorm
	TextureFormatBGRA8UnormSRGB
	TextureFormatD32Float
	TextureFormatD24UnormS8Uint
	TextureFormatD16Unorm
)

func (f TextureFormat) String() string {
	switch f {
	case TextureFormatRGBA8Unorm:
		return "rgba8_unorm"
	case TextureFormatRGBA8UnormSRGB:
		return "rgba8_unorm_srgb"
	case TextureFormatBGRA8Unorm:
		return "bgra8_unorm"
	case TextureFormatBGRA8UnormSRGB:
		return "bgra8_unorm_srgb"
	case TextureFormatD32Float:
		return "d32_float"
	case TextureFormatD24UnormS8Uint:
		return "d24_unorm_s8_uint"
	case TextureFormatD16Unorm:
		return "d16_unorm"
	}
	return "unknown"
}

// IsDepth reports whether the format can be bound as a depth-stencil target.
func (f TextureFormat) IsDepth() bool {
	return f == TextureFormatD32Float || f == TextureFormatD24UnormS8Uint || f == TextureFormatD16Unorm
}

/** @brief The transform the presentation engine applies to the swapchain images. */
type SurfaceTransform int

const (
	SurfaceTransformOptimal SurfaceTransform = iota
	SurfaceTransformIdentity
	SurfaceTransformRotate90
	SurfaceTransformRotate180
	SurfaceTransformRotate270
	SurfaceTransformHorizontalMirror
	SurfaceTransformHorizontalMirrorRotate90
	SurfaceTransformHorizontalMirrorRotate180
	SurfaceTransformHorizontalMirrorRotate270
)

func (t SurfaceTransform) String() string {
	names := [...]string{
		"optimal", "identity", "rotate_90", "rotate_180", "rotate_270",
		"horizontal_mirror", "horizontal_mirror_rotate_90",
		"horizontal_mirror_rotate_180", "horizontal_mirror_rotate_270",
	}
	if int(t) < 0 || int(t) >= len(names) {
		return fmt.Sprintf("surface_transform(%d)", int(t))
	}
	return names[t]
}
