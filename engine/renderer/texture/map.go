package texture

import (
	"github.com/spaghettifunk/texbind/engine/math"
	"github.com/spaghettifunk/texbind/engine/renderer/metadata"
)

// TextureMap is what a material slot samples: a shared TextureSource plus the
// per-slot texture coordinate transform and lightmap remapping. The zero
// value has no source, the identity transform and a lightmap offset/scale of
// (0, 1). A TextureMap belongs to one material and is not safe for
// concurrent mutation; the source it points to is.
type TextureMap struct {
	textureSource *TextureSource

	texcoordTransform    math.Transform2D
	hasTexcoordTransform bool

	lightmapOffsetScale    math.Vec2
	hasLightmapOffsetScale bool
}

func NewTextureMap(source *TextureSource) *TextureMap {
	return &TextureMap{textureSource: source}
}

// SetTextureSource replaces the held source. Passing a source already used by
// other maps makes them share its texture.
func (tm *TextureMap) SetTextureSource(source *TextureSource) {
	tm.textureSource = source
}

func (tm *TextureMap) TextureSource() *TextureSource {
	return tm.textureSource
}

func (tm *TextureMap) IsDefined() bool {
	return tm.textureSource != nil && tm.textureSource.IsDefined()
}

// TextureView returns a view of the source's current texture. Neither the
// texture coordinate transform nor the lightmap remap are applied here. The
// empty view is returned when nothing is resolved.
func (tm *TextureMap) TextureView() metadata.TextureView {
	if tm.textureSource == nil {
		return metadata.TextureView{}
	}
	return metadata.NewTextureView(tm.textureSource.GPUTexture())
}

func (tm *TextureMap) SetTextureTransform(transform math.Transform2D) {
	tm.texcoordTransform = transform
	tm.hasTexcoordTransform = true
}

func (tm *TextureMap) TextureTransform() math.Transform2D {
	if !tm.hasTexcoordTransform {
		return math.TransformIdentity2D()
	}
	return tm.texcoordTransform
}

// SetLightmapOffsetScale stores the remapping as given, without clamping.
func (tm *TextureMap) SetLightmapOffsetScale(offset, scale float32) {
	tm.lightmapOffsetScale = math.NewVec2(offset, scale)
	tm.hasLightmapOffsetScale = true
}

// LightmapOffsetScale returns (offset, scale) as X and Y.
func (tm *TextureMap) LightmapOffsetScale() math.Vec2 {
	if !tm.hasLightmapOffsetScale {
		return math.NewVec2(0.0, 1.0)
	}
	return tm.lightmapOffsetScale
}
