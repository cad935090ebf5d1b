package metadata

import "github.com/spaghettifunk/texbind/engine/math"

/** @brief The name of the default material. */
const DefaultMaterialName string = "default"

/** @brief A material slot a texture map can be bound to. */
type MaterialSlot int

const (
	MaterialSlotDiffuse MaterialSlot = iota
	MaterialSlotSpecular
	MaterialSlotNormal
	MaterialSlotBump
	MaterialSlotEmissive
	MaterialSlotLightmap
	MaterialSlotEnvironment
	MaterialSlotCount
)

var materialSlotNames = [MaterialSlotCount]string{
	"diffuse", "specular", "normal", "bump", "emissive", "lightmap", "environment",
}

func (s MaterialSlot) String() string {
	if s < 0 || s >= MaterialSlotCount {
		return "unknown"
	}
	return materialSlotNames[s]
}

// MaterialSlotFromName is the inverse of String.
func MaterialSlotFromName(name string) (MaterialSlot, bool) {
	for i, n := range materialSlotNames {
		if n == name {
			return MaterialSlot(i), true
		}
	}
	return 0, false
}

// Usage returns the texture usage assigned to textures bound to this slot.
func (s MaterialSlot) Usage(environmentUsage int) TextureUsage {
	usage := NewTextureUsage()
	switch s {
	case MaterialSlotSpecular:
		usage.MaterialUsage = MaterialMapSpecular
	case MaterialSlotNormal:
		usage.MaterialUsage = MaterialMapNormal
	case MaterialSlotBump:
		usage.MaterialUsage = MaterialMapBump
	case MaterialSlotEmissive:
		usage.MaterialUsage = MaterialMapEmissive
	case MaterialSlotLightmap:
		usage.MaterialUsage = MaterialMapLightmap
	case MaterialSlotEnvironment:
		usage.Type = TextureTypeCube
		usage.EnvironmentUsage = environmentUsage
	}
	return usage
}

/** @brief Configuration of a single texture map of a material. */
type TextureMapConfig struct {
	/** @brief Where the image comes from (path, file:// or http(s)://). */
	URL string
	/** @brief Texture coordinate transform. */
	Transform math.Transform2D
	/** @brief Lightmap remapping, only meaningful for the lightmap slot. */
	LightmapOffset float32
	LightmapScale  float32
}

func NewTextureMapConfig(url string) *TextureMapConfig {
	return &TextureMapConfig{
		URL:           url,
		Transform:     math.TransformIdentity2D(),
		LightmapScale: 1.0,
	}
}

/**
 * @brief Material configuration typically loaded from
 * a file or created in code to load a material from.
 */
type MaterialConfig struct {
	/** @brief The name of the material. */
	Name string
	/** @brief Indicates if textures should be automatically released when no references to them remain. */
	AutoRelease bool
	/** @brief The diffuse colour of the material. */
	DiffuseColour math.Vec4
	/** @brief Role tag forwarded to the environment map usage. */
	EnvironmentUsage int
	/** @brief Configured texture maps, by slot. */
	Maps map[MaterialSlot]*TextureMapConfig
}

func NewMaterialConfig(name string) *MaterialConfig {
	return &MaterialConfig{
		Name:          name,
		AutoRelease:   true,
		DiffuseColour: math.Vec4{X: 1, Y: 1, Z: 1, W: 1},
		Maps:          make(map[MaterialSlot]*TextureMapConfig),
	}
}

// Map returns the config of a slot, creating it when missing.
func (mc *MaterialConfig) Map(slot MaterialSlot) *TextureMapConfig {
	if mc.Maps == nil {
		mc.Maps = make(map[MaterialSlot]*TextureMapConfig)
	}
	m, ok := mc.Maps[slot]
	if !ok {
		m = NewTextureMapConfig("")
		mc.Maps[slot] = m
	}
	return m
}
