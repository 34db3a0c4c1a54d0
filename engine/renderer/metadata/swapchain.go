package metadata

// SwapchainDesc describes the presentable images of one window.
type SwapchainDesc struct {
	Width             int
	Height            int
	ColorBufferFormat TextureFormat
	DepthBufferFormat TextureFormat
	PreTransform      SurfaceTransform
	BufferCount       int
}

// DefaultSwapchainDesc is what a window asks for before the backend settles
// on the formats the surface actually supports.
func DefaultSwapchainDesc(width, height int) SwapchainDesc {
	return SwapchainDesc{
		Width:             width,
		Height:            height,
		ColorBufferFormat: TextureFormatRGBA8UnormSRGB,
		DepthBufferFormat: TextureFormatD32Float,
		PreTransform:      SurfaceTransformOptimal,
		BufferCount:       2,
	}
}

// Color is a linear RGBA clear color.
type Color struct {
	R, G, B, A float32
}

var DefaultClearColor = Color{R: 0.35, G: 0.35, B: 0.35, A: 1}
