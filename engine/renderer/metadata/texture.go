package metadata

import (
	"strings"

	"github.com/google/uuid"
)

const (
	/** @brief The default texture name. */
	DEFAULT_TEXTURE_NAME string = "default"
	/** @brief The default diffuse texture name. */
	DEFAULT_DIFFUSE_TEXTURE_NAME string = "default_DIFF"
	/** @brief The default specular texture name. */
	DEFAULT_SPECULAR_TEXTURE_NAME string = "default_SPEC"
	/** @brief The default normal texture name. */
	DEFAULT_NORMAL_TEXTURE_NAME string = "default_NORM"
	/** @brief The default cube texture name. */
	DEFAULT_CUBE_TEXTURE_NAME string = "default_CUBE"
)

/** @brief Marks a generation that was never loaded. */
const InvalidID uint32 = 4294967295

/** @brief The number of faces of a cube texture. */
const CubeFaceCount = 6

/**
 * @brief Represents various types of textures.
 */
type TextureType int

const (
	/** @brief A standard two-dimensional texture. */
	TextureType2d TextureType = iota
	/** @brief A cube texture, used for cubemaps. */
	TextureTypeCube
)

func (t TextureType) String() string {
	switch t {
	case TextureType2d:
		return "2d"
	case TextureTypeCube:
		return "cube"
	default:
		return "unknown"
	}
}

/** @brief Material channels a texture can feed. Several may be combined. */
type MaterialMapFlags uint32

const (
	MaterialMapDiffuse MaterialMapFlags = 1 << iota
	MaterialMapSpecular
	MaterialMapNormal
	MaterialMapBump
	MaterialMapLightmap
	MaterialMapEmissive
	MaterialMapGloss
	MaterialMapTransparent
)

var materialMapNames = []struct {
	flag MaterialMapFlags
	name string
}{
	{MaterialMapDiffuse, "diffuse"},
	{MaterialMapSpecular, "specular"},
	{MaterialMapNormal, "normal"},
	{MaterialMapBump, "bump"},
	{MaterialMapLightmap, "lightmap"},
	{MaterialMapEmissive, "emissive"},
	{MaterialMapGloss, "gloss"},
	{MaterialMapTransparent, "transparent"},
}

func (f MaterialMapFlags) Has(flag MaterialMapFlags) bool {
	return f&flag != 0
}

func (f MaterialMapFlags) String() string {
	var parts []string
	for _, n := range materialMapNames {
		if f.Has(n.flag) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

/**
 * @brief Describes what a texture is for. Captured by value when a texture
 * source is reset and never changed afterwards.
 */
type TextureUsage struct {
	/** @brief The dimensionality the source must be decoded into. */
	Type TextureType
	/** @brief The material channels this texture feeds. Drives the decode policy. */
	MaterialUsage MaterialMapFlags
	/** @brief Role tag for environment/IBL textures, 0 means none. */
	EnvironmentUsage int
}

func NewTextureUsage() TextureUsage {
	return TextureUsage{
		Type:          TextureType2d,
		MaterialUsage: MaterialMapDiffuse,
	}
}

/** @brief GPU pixel layouts produced by the decode factories. */
type TextureFormat uint32

const (
	TextureFormatUndefined TextureFormat = iota
	/** @brief Single linear channel, data textures such as heights or masks. */
	TextureFormatR8Unorm
	/** @brief Two linear channels, e.g. XY normals. */
	TextureFormatRG8Unorm
	/** @brief Four linear channels, normal maps and other data. */
	TextureFormatRGBA8Unorm
	/** @brief Four channels with sRGB colour, albedo and environment colour. */
	TextureFormatRGBA8UnormSRGB
)

func (f TextureFormat) ChannelCount() uint8 {
	switch f {
	case TextureFormatR8Unorm:
		return 1
	case TextureFormatRG8Unorm:
		return 2
	case TextureFormatRGBA8Unorm, TextureFormatRGBA8UnormSRGB:
		return 4
	default:
		return 0
	}
}

func (f TextureFormat) IsSRGB() bool {
	return f == TextureFormatRGBA8UnormSRGB
}

func (f TextureFormat) String() string {
	switch f {
	case TextureFormatR8Unorm:
		return "r8unorm"
	case TextureFormatRG8Unorm:
		return "rg8unorm"
	case TextureFormatRGBA8Unorm:
		return "rgba8unorm"
	case TextureFormatRGBA8UnormSRGB:
		return "rgba8unorm-srgb"
	default:
		return "undefined"
	}
}

type TextureFlag int

const (
	/** @brief Indicates if the texture has transparency. */
	TextureFlagHasTransparency TextureFlag = 0x1
	/** @brief Indicates the texture was derived from a height map. */
	TextureFlagDerivedNormals TextureFlag = 0x2
	/** @brief Indicates the texture is one of the built-in fallbacks. */
	TextureFlagIsDefault TextureFlag = 0x4
)

/** @brief Holds bit flags for textures.. */
type TextureFlagBits uint8

func (b TextureFlagBits) Has(flag TextureFlag) bool {
	return b&TextureFlagBits(flag) != 0
}

/** @brief A single mip level of a single face. */
type TextureLevel struct {
	Width  uint32
	Height uint32
	/** @brief Tightly packed pixels, Format.ChannelCount() bytes per texel. */
	Pixels []uint8
}

/**
 * @brief Represents a GPU texture resource ready for upload.
 */
type Texture struct {
	/** @brief The unique texture identifier. */
	ID uuid.UUID
	/** @brief The texture Name, usually the source image name. */
	Name string
	/** @brief The texture type. */
	TextureType TextureType
	/** @brief The GPU pixel format. */
	Format TextureFormat
	/** @brief The texture Width (of a face, for cube textures). */
	Width uint32
	/** @brief The texture Height (of a face, for cube textures). */
	Height uint32
	/** @brief The number of channels in the texture. */
	ChannelCount uint8
	/** @brief Holds various Flags for this texture. */
	Flags TextureFlagBits
	/** @brief The texture Generation. Incremented every time the backend re-uploads it. */
	Generation uint32
	/** @brief Layers[face][mip]. 2D textures have exactly one face. */
	Layers [][]TextureLevel
	/** @brief A pointer to internal, render API-specific data. */
	InternalData interface{}
}

func NewTexture(name string, textureType TextureType, format TextureFormat, width, height uint32) *Texture {
	return &Texture{
		ID:           uuid.New(),
		Name:         name,
		TextureType:  textureType,
		Format:       format,
		Width:        width,
		Height:       height,
		ChannelCount: format.ChannelCount(),
		Generation:   InvalidID,
	}
}

func (t *Texture) FaceCount() int {
	if t == nil {
		return 0
	}
	return len(t.Layers)
}

func (t *Texture) MipLevelCount() int {
	if t == nil || len(t.Layers) == 0 {
		return 0
	}
	return len(t.Layers[0])
}

// Level returns the mip level of the given face, or nil when out of range.
func (t *Texture) Level(face, mip int) *TextureLevel {
	if t == nil || face < 0 || face >= len(t.Layers) {
		return nil
	}
	if mip < 0 || mip >= len(t.Layers[face]) {
		return nil
	}
	return &t.Layers[face][mip]
}

/**
 * @brief A bindable view of a texture. The zero value is the empty view and
 * binds nothing.
 */
type TextureView struct {
	Texture         *Texture
	Dimension       TextureType
	Format          TextureFormat
	BaseMipLevel    uint32
	MipLevelCount   uint32
	BaseArrayLayer  uint32
	ArrayLayerCount uint32
}

// NewTextureView returns a view over every face and mip level of t.
func NewTextureView(t *Texture) TextureView {
	if t == nil {
		return TextureView{}
	}
	return TextureView{
		Texture:         t,
		Dimension:       t.TextureType,
		Format:          t.Format,
		MipLevelCount:   uint32(t.MipLevelCount()),
		ArrayLayerCount: uint32(t.FaceCount()),
	}
}

func (v TextureView) IsValid() bool {
	return v.Texture != nil
}

/** @brief Built-in textures used when a slot has nothing defined yet. */
type DefaultTexture struct {
	DefaultTexture         *Texture
	DefaultDiffuseTexture  *Texture
	DefaultSpecularTexture *Texture
	DefaultNormalTexture   *Texture
	DefaultCubeTexture     *Texture
}

func NewDefaultTexture() *DefaultTexture {
	return &DefaultTexture{}
}

// CreateSkeletonTextures builds the pixel data of the fallback textures. The
// backend upload is left to the caller.
func (ts *DefaultTexture) CreateSkeletonTextures() bool {
	// NOTE: Create default texture, a 256x256 blue/white checkerboard pattern.
	// This is done in code to eliminate asset dependencies.
	texDimension := uint32(256)
	channels := uint32(4)
	pixels := make([]uint8, texDimension*texDimension*channels)
	for i := range pixels {
		pixels[i] = 255
	}

	// Each pixel.
	for row := uint32(0); row < texDimension; row++ {
		for col := uint32(0); col < texDimension; col++ {
			index := (row * texDimension) + col
			indexBpp := index * channels
			if row%2 != col%2 {
				continue
			}
			pixels[indexBpp+0] = 0
			pixels[indexBpp+1] = 0
		}
	}
	ts.DefaultTexture = newSolidTexture(DEFAULT_TEXTURE_NAME, TextureType2d, TextureFormatRGBA8UnormSRGB, texDimension, pixels)

	// Default diffuse map is all white.
	ts.DefaultDiffuseTexture = newSolidTexture(DEFAULT_DIFFUSE_TEXTURE_NAME, TextureType2d, TextureFormatRGBA8UnormSRGB, 16, fill(16*16, 255, 255, 255, 255))

	// Default spec map is black (no specular)
	ts.DefaultSpecularTexture = newSolidTexture(DEFAULT_SPECULAR_TEXTURE_NAME, TextureType2d, TextureFormatRGBA8Unorm, 16, fill(16*16, 0, 0, 0, 255))

	// Set blue, z-axis by default and alpha.
	ts.DefaultNormalTexture = newSolidTexture(DEFAULT_NORMAL_TEXTURE_NAME, TextureType2d, TextureFormatRGBA8Unorm, 16, fill(16*16, 128, 128, 255, 255))

	ts.DefaultCubeTexture = newSolidTexture(DEFAULT_CUBE_TEXTURE_NAME, TextureTypeCube, TextureFormatRGBA8UnormSRGB, 16, fill(16*16, 128, 128, 128, 255))

	return true
}

// ForUsage picks the fallback matching a slot's usage.
func (ts *DefaultTexture) ForUsage(usage TextureUsage) *Texture {
	switch {
	case usage.Type == TextureTypeCube:
		return ts.DefaultCubeTexture
	case usage.MaterialUsage.Has(MaterialMapNormal) || usage.MaterialUsage.Has(MaterialMapBump):
		return ts.DefaultNormalTexture
	case usage.MaterialUsage.Has(MaterialMapSpecular) || usage.MaterialUsage.Has(MaterialMapGloss):
		return ts.DefaultSpecularTexture
	case usage.MaterialUsage.Has(MaterialMapDiffuse) || usage.MaterialUsage.Has(MaterialMapLightmap):
		return ts.DefaultDiffuseTexture
	default:
		return ts.DefaultTexture
	}
}

func (ts *DefaultTexture) All() []*Texture {
	return []*Texture{
		ts.DefaultTexture,
		ts.DefaultDiffuseTexture,
		ts.DefaultSpecularTexture,
		ts.DefaultNormalTexture,
		ts.DefaultCubeTexture,
	}
}

func newSolidTexture(name string, textureType TextureType, format TextureFormat, dim uint32, pixels []uint8) *Texture {
	t := NewTexture(name, textureType, format, dim, dim)
	t.Flags |= TextureFlagBits(TextureFlagIsDefault)
	faces := 1
	if textureType == TextureTypeCube {
		faces = CubeFaceCount
	}
	t.Layers = make([][]TextureLevel, faces)
	for i := range t.Layers {
		// Faces share the backing slice, defaults are never written to.
		t.Layers[i] = []TextureLevel{{Width: dim, Height: dim, Pixels: pixels}}
	}
	return t
}

func fill(count int, r, g, b, a uint8) []uint8 {
	pixels := make([]uint8, count*4)
	for i := 0; i < count; i++ {
		pixels[i*4+0] = r
		pixels[i*4+1] = g
		pixels[i*4+2] = b
		pixels[i*4+3] = a
	}
	return pixels
}
