package texture

import (
	"fmt"
	"image"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/texbind/engine/core"
	"github.com/spaghettifunk/texbind/engine/math"
	"github.com/spaghettifunk/texbind/engine/renderer/metadata"
	"golang.org/x/image/draw"
)

// bumpStrength scales height differences before they become normals.
const bumpStrength float32 = 2.0

/**
 * @brief Cube faces in the order they appear, left to right, in a
 * horizontal strip: +X, -X, +Y, -Y, +Z, -Z.
 */
type CubeFace int

const (
	CubeFacePositiveX CubeFace = iota
	CubeFaceNegativeX
	CubeFacePositiveY
	CubeFaceNegativeY
	CubeFacePositiveZ
	CubeFaceNegativeZ
)

func (f CubeFace) String() string {
	return [...]string{"+x", "-x", "+y", "-y", "+z", "-z"}[f]
}

// DecodeFunc is the signature shared by the decode factories.
type DecodeFunc func(img *metadata.ImageResourceData, srcImageName string) (*metadata.Texture, error)

// DecoderForUsage picks the factory a usage is decoded with.
func DecoderForUsage(usage metadata.TextureUsage) DecodeFunc {
	switch {
	case usage.Type == metadata.TextureTypeCube:
		return CreateCubeTextureFromImage
	case usage.MaterialUsage.Has(metadata.MaterialMapNormal), usage.MaterialUsage.Has(metadata.MaterialMapBump):
		return CreateNormalTextureFromBumpImage
	default:
		return Create2DTextureFromImage
	}
}

func DecodeForUsage(usage metadata.TextureUsage, img *metadata.ImageResourceData, srcImageName string) (*metadata.Texture, error) {
	return DecoderForUsage(usage)(img, srcImageName)
}

// Create2DTextureFromImage decodes a colour or data image into a 2D texture
// with a full mip chain. One and two channel images are treated as linear
// data, three and four channel images as sRGB colour.
func Create2DTextureFromImage(img *metadata.ImageResourceData, srcImageName string) (*metadata.Texture, error) {
	if !img.IsValid() {
		return nil, fmt.Errorf("%w: %s: invalid 2d source image", core.ErrDecodeFailure, srcImageName)
	}

	var format metadata.TextureFormat
	var pixels []uint8
	switch img.ChannelCount {
	case 1:
		format = metadata.TextureFormatR8Unorm
		pixels = copyPixels(img.Pixels, img.Width, img.Height, 1)
	case 2:
		format = metadata.TextureFormatRG8Unorm
		pixels = copyPixels(img.Pixels, img.Width, img.Height, 2)
	default:
		format = metadata.TextureFormatRGBA8UnormSRGB
		pixels = expandToRGBA(img.Pixels, img.Width, img.Height, img.ChannelCount)
	}

	tex := metadata.NewTexture(srcImageName, metadata.TextureType2d, format, img.Width, img.Height)
	if format.ChannelCount() == 4 && hasTransparency(pixels) {
		tex.Flags |= metadata.TextureFlagBits(metadata.TextureFlagHasTransparency)
	}
	base := metadata.TextureLevel{Width: img.Width, Height: img.Height, Pixels: pixels}
	tex.Layers = [][]metadata.TextureLevel{buildMipChain(base, format.ChannelCount(), false)}
	return tex, nil
}

// CreateNormalTextureFromBumpImage produces a linear normal map. Images that
// already hold normals are passed through; height maps are converted with
// central differences of their four neighbours.
func CreateNormalTextureFromBumpImage(img *metadata.ImageResourceData, srcImageName string) (*metadata.Texture, error) {
	class, err := ClassifyImage(img)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", srcImageName, err)
	}

	var tex *metadata.Texture
	var pixels []uint8
	if class == ImageClassNormalEncoded {
		if img.ChannelCount == 2 {
			tex = metadata.NewTexture(srcImageName, metadata.TextureType2d, metadata.TextureFormatRG8Unorm, img.Width, img.Height)
			pixels = copyPixels(img.Pixels, img.Width, img.Height, 2)
		} else {
			tex = metadata.NewTexture(srcImageName, metadata.TextureType2d, metadata.TextureFormatRGBA8Unorm, img.Width, img.Height)
			pixels = expandToRGBA(img.Pixels, img.Width, img.Height, img.ChannelCount)
		}
	} else {
		tex = metadata.NewTexture(srcImageName, metadata.TextureType2d, metadata.TextureFormatRGBA8Unorm, img.Width, img.Height)
		tex.Flags |= metadata.TextureFlagBits(metadata.TextureFlagDerivedNormals)
		pixels = normalsFromHeights(img)
	}

	base := metadata.TextureLevel{Width: img.Width, Height: img.Height, Pixels: pixels}
	tex.Layers = [][]metadata.TextureLevel{buildMipChain(base, tex.Format.ChannelCount(), true)}
	return tex, nil
}

// HeightNormal returns the unit normal for the given neighbour heights, as
// used when deriving normal maps. Heights are in [0, 1].
func HeightNormal(left, right, up, down float32) mgl32.Vec3 {
	dx := (right - left) * bumpStrength
	dy := (down - up) * bumpStrength
	return mgl32.Vec3{-dx, -dy, 1}.Normalize()
}

// EncodeNormal maps a unit vector to RGBA8 as n*0.5+0.5.
func EncodeNormal(n mgl32.Vec3) [4]uint8 {
	enc := func(v float32) uint8 {
		return uint8(math.Clamp((v*0.5+0.5)*255.0+0.5, 0, 255))
	}
	return [4]uint8{enc(n.X()), enc(n.Y()), enc(n.Z()), 255}
}

func normalsFromHeights(img *metadata.ImageResourceData) []uint8 {
	w, h := int(img.Width), int(img.Height)
	heights := make([]float32, w*h)
	for i := range heights {
		heights[i] = luminance(img.Pixels, i, img.ChannelCount)
	}
	at := func(x, y int) float32 {
		x = math.Clamp(x, 0, w-1)
		y = math.Clamp(y, 0, h-1)
		return heights[y*w+x]
	}

	out := make([]uint8, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			n := HeightNormal(at(x-1, y), at(x+1, y), at(x, y-1), at(x, y+1))
			enc := EncodeNormal(n)
			copy(out[(y*w+x)*4:], enc[:])
		}
	}
	return out
}

// CreateCubeTextureFromImage cuts a horizontal strip of six faces, ordered
// +X, -X, +Y, -Y, +Z, -Z from left to right, into a cube texture. Each face
// is W/6 x H and gets its own mip chain. No other layout is recognised.
func CreateCubeTextureFromImage(img *metadata.ImageResourceData, srcImageName string) (*metadata.Texture, error) {
	if !img.IsValid() {
		return nil, fmt.Errorf("%w: %s: invalid cube source image", core.ErrDecodeFailure, srcImageName)
	}
	if img.Width%metadata.CubeFaceCount != 0 {
		return nil, fmt.Errorf("%w: %s: strip width %d is not divisible by %d", core.ErrDecodeFailure, srcImageName, img.Width, metadata.CubeFaceCount)
	}

	faceWidth := img.Width / metadata.CubeFaceCount
	faceHeight := img.Height

	strip := toImage(expandToRGBA(img.Pixels, img.Width, img.Height, img.ChannelCount), img.Width, img.Height, 4)

	tex := metadata.NewTexture(srcImageName, metadata.TextureTypeCube, metadata.TextureFormatRGBA8UnormSRGB, faceWidth, faceHeight)
	tex.Layers = make([][]metadata.TextureLevel, metadata.CubeFaceCount)
	for face := 0; face < metadata.CubeFaceCount; face++ {
		sr := image.Rect(face*int(faceWidth), 0, (face+1)*int(faceWidth), int(faceHeight))
		dst := image.NewRGBA(image.Rect(0, 0, int(faceWidth), int(faceHeight)))
		draw.Copy(dst, image.Point{}, strip, sr, draw.Src, nil)

		if hasTransparency(dst.Pix) {
			tex.Flags |= metadata.TextureFlagBits(metadata.TextureFlagHasTransparency)
		}
		base := metadata.TextureLevel{Width: faceWidth, Height: faceHeight, Pixels: fromImage(dst, 4)}
		tex.Layers[face] = buildMipChain(base, 4, false)
	}
	return tex, nil
}
