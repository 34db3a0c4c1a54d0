package metadata

type ResourceType int

/** @brief Pre-defined resource types. */
const (
	/** @brief Files nothing can load. */
	ResourceTypeNone ResourceType = iota
	/** @brief Text resource type (GLSL sources, configuration). */
	ResourceTypeText
	/** @brief Binary resource type. */
	ResourceTypeBinary
	/** @brief Shader resource type, compiled SPIR-V. */
	ResourceTypeShader
)

func (t ResourceType) String() string {
	switch t {
	case ResourceTypeText:
		return "text"
	case ResourceTypeBinary:
		return "binary"
	case ResourceTypeShader:
		return "shader"
	}
	return "none"
}

/**
 * @brief A generic structure for a resource. All resource loaders
 * load data into these.
 */
type Resource struct {
	/** @brief The name of the resource, its path relative to the asset root. */
	Name string
	/** @brief The full file path of the resource. */
	FullPath string
	Type     ResourceType
	/** @brief The size of the resource data in bytes. */
	DataSize uint64
	/** @brief []byte, string or []uint32 depending on Type. */
	Data interface{}
}
