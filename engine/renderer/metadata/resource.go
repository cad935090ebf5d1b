package metadata

type ResourceType int

/** @brief Pre-defined resource types. */
const (
	ResourceTypeNone ResourceType = iota
	/** @brief Image resource type. */
	ResourceTypeImage
	/** @brief Material resource type. */
	ResourceTypeMaterial
)

func (r ResourceType) String() string {
	switch r {
	case ResourceTypeImage:
		return "image"
	case ResourceTypeMaterial:
		return "material"
	default:
		return "none"
	}
}

/**
 * @brief A generic structure for a resource. All resource loaders
 * load data into these.
 */
type Resource struct {
	/** @brief The name of the resource. */
	Name string
	/** @brief The url or path the resource was fetched from. */
	FullPath string
	/** @brief The size of the raw resource data in bytes. */
	DataSize uint64
	/** @brief The resource data. */
	Data interface{}
}
