package metadata

type BufferKind int

const (
	BufferKindVertex BufferKind = iota
	BufferKindIndex
	BufferKindUniform
)

func (k BufferKind) String() string {
	switch k {
	case BufferKindVertex:
		return "vertex"
	case BufferKindIndex:
		return "index"
	case BufferKindUniform:
		return "uniform"
	}
	return "unknown"
}

type BufferDesc struct {
	Name string
	Kind BufferKind
	// Size in bytes.
	Size uint64
	// Dynamic buffers are rewritten every frame from the CPU.
	Dynamic bool
}

type TextureDesc struct {
	Name   string
	Width  uint32
	Height uint32
	Format TextureFormat
}

type IndexType int

const (
	IndexTypeUint16 IndexType = iota
	IndexTypeUint32
)

// Size returns the size of one index in bytes.
func (t IndexType) Size() int {
	if t == IndexTypeUint32 {
		return 4
	}
	return 2
}

type VertexAttribute struct {
	Location uint32
	// Number of float32 components, or 4 normalized bytes when Normalized is set.
	Components int
	Normalized bool
	Offset     uint32
}

type PipelineDesc struct {
	Name             string
	ColorFormat      TextureFormat
	DepthFormat      TextureFormat
	VertexStride     uint32
	Attributes       []VertexAttribute
	VertexShader     []uint32
	PixelShader      []uint32
	Blend            BlendMode
	CullMode         FaceCullMode
	Topology         PrimitiveTopology
	DepthTest        bool
	ScissorTest      bool
	PushConstantSize uint32
}

type Viewport struct {
	X, Y          float32
	Width, Height float32
	MinDepth      float32
	MaxDepth      float32
}

type Rect struct {
	Left, Top, Right, Bottom int32
}

func (r Rect) Empty() bool {
	return r.Right <= r.Left || r.Bottom <= r.Top
}

type DrawIndexedAttribs struct {
	NumIndices         uint32
	IndexType          IndexType
	FirstIndexLocation uint32
	BaseVertex         int32
}
