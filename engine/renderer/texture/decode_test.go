package texture

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/texbind/engine/core"
	"github.com/spaghettifunk/texbind/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(width, height uint32, channels uint8, value ...uint8) *metadata.ImageResourceData {
	pixels := make([]uint8, int(width)*int(height)*int(channels))
	for i := range pixels {
		pixels[i] = value[i%len(value)]
	}
	return &metadata.ImageResourceData{
		Width:        width,
		Height:       height,
		ChannelCount: channels,
		Pixels:       pixels,
	}
}

// stripImage returns a horizontal strip where every texel of face i holds
// the value 10*(i+1) in each colour channel.
func stripImage(width, height uint32, channels uint8) *metadata.ImageResourceData {
	img := solidImage(width, height, channels, 0)
	faceWidth := width / 6
	for y := uint32(0); y < height; y++ {
		for x := uint32(0); x < width; x++ {
			face := x / max(faceWidth, 1)
			for c := uint8(0); c < channels; c++ {
				v := uint8(10 * (face + 1))
				if c == 3 {
					v = 255
				}
				img.Pixels[(y*width+x)*uint32(channels)+uint32(c)] = v
			}
		}
	}
	return img
}

func TestMipLevelCount(t *testing.T) {
	assert.Equal(t, 0, MipLevelCount(0, 0))
	assert.Equal(t, 1, MipLevelCount(1, 1))
	assert.Equal(t, 3, MipLevelCount(4, 4))
	assert.Equal(t, 4, MipLevelCount(8, 2))
	assert.Equal(t, 11, MipLevelCount(1024, 3))
}

func TestCreate2DTextureFromImageFormats(t *testing.T) {
	cases := []struct {
		channels uint8
		format   metadata.TextureFormat
	}{
		{1, metadata.TextureFormatR8Unorm},
		{2, metadata.TextureFormatRG8Unorm},
		{3, metadata.TextureFormatRGBA8UnormSRGB},
		{4, metadata.TextureFormatRGBA8UnormSRGB},
	}
	for _, c := range cases {
		img := solidImage(8, 4, c.channels, 200)
		tex, err := Create2DTextureFromImage(img, "albedo")
		require.NoError(t, err)

		assert.Equal(t, c.format, tex.Format, "channels=%d", c.channels)
		assert.Equal(t, metadata.TextureType2d, tex.TextureType)
		assert.Equal(t, uint32(8), tex.Width)
		assert.Equal(t, uint32(4), tex.Height)
		assert.Equal(t, "albedo", tex.Name)
		assert.Equal(t, 1, tex.FaceCount())
		assert.Equal(t, 4, tex.MipLevelCount())

		last := tex.Level(0, tex.MipLevelCount()-1)
		require.NotNil(t, last)
		assert.Equal(t, uint32(1), last.Width)
		assert.Equal(t, uint32(1), last.Height)
		for mip := 0; mip < tex.MipLevelCount(); mip++ {
			l := tex.Level(0, mip)
			assert.Len(t, l.Pixels, int(l.Width*l.Height)*int(c.format.ChannelCount()))
		}
	}
}

func TestCreate2DTextureFromImageExpandsRGB(t *testing.T) {
	img := solidImage(2, 2, 3, 10, 20, 30)
	tex, err := Create2DTextureFromImage(img, "rgb")
	require.NoError(t, err)

	base := tex.Level(0, 0)
	assert.Equal(t, []uint8{10, 20, 30, 255}, base.Pixels[:4])
	assert.False(t, tex.Flags.Has(metadata.TextureFlagHasTransparency))
}

func TestCreate2DTextureFromImageTransparency(t *testing.T) {
	img := solidImage(2, 2, 4, 255, 255, 255, 255)
	img.Pixels[7] = 12
	tex, err := Create2DTextureFromImage(img, "leaf")
	require.NoError(t, err)
	assert.True(t, tex.Flags.Has(metadata.TextureFlagHasTransparency))
}

func TestCreate2DTextureFromImageDoesNotAliasInput(t *testing.T) {
	img := solidImage(2, 2, 1, 7)
	tex, err := Create2DTextureFromImage(img, "mask")
	require.NoError(t, err)

	img.Pixels[0] = 99
	assert.Equal(t, uint8(7), tex.Level(0, 0).Pixels[0])
}

func TestCreate2DTextureFromImageFailures(t *testing.T) {
	_, err := Create2DTextureFromImage(nil, "nil")
	assert.ErrorIs(t, err, core.ErrDecodeFailure)

	_, err = Create2DTextureFromImage(&metadata.ImageResourceData{Width: 4, Height: 4, ChannelCount: 4, Pixels: make([]uint8, 8)}, "short")
	assert.ErrorIs(t, err, core.ErrDecodeFailure)

	_, err = Create2DTextureFromImage(&metadata.ImageResourceData{Width: 1, Height: 1, ChannelCount: 5, Pixels: make([]uint8, 5)}, "channels")
	assert.ErrorIs(t, err, core.ErrDecodeFailure)
}

func TestCreateNormalTextureFromBumpImagePassthrough(t *testing.T) {
	img := solidImage(4, 2, 3, 128, 100, 250)
	img.Pixels[0] = 140
	tex, err := CreateNormalTextureFromBumpImage(img, "normal")
	require.NoError(t, err)

	assert.Equal(t, metadata.TextureFormatRGBA8Unorm, tex.Format)
	assert.False(t, tex.Format.IsSRGB())
	assert.False(t, tex.Flags.Has(metadata.TextureFlagDerivedNormals))
	assert.Equal(t, uint32(4), tex.Width)
	assert.Equal(t, uint32(2), tex.Height)
	assert.Equal(t, []uint8{140, 100, 250, 255, 128, 100, 250, 255}, tex.Level(0, 0).Pixels[:8])
}

func TestCreateNormalTextureFromBumpImageTaggedNormal(t *testing.T) {
	// Grey texels would be read as heights without the tag.
	img := solidImage(2, 2, 4, 128, 128, 128, 255)
	img.Encoding = metadata.ImageEncodingNormal
	tex, err := CreateNormalTextureFromBumpImage(img, "tagged")
	require.NoError(t, err)

	assert.False(t, tex.Flags.Has(metadata.TextureFlagDerivedNormals))
	assert.Equal(t, img.Pixels, tex.Level(0, 0).Pixels)
}

func TestCreateNormalTextureFromBumpImageXY(t *testing.T) {
	img := solidImage(2, 2, 2, 10, 200)
	tex, err := CreateNormalTextureFromBumpImage(img, "xy")
	require.NoError(t, err)

	assert.Equal(t, metadata.TextureFormatRG8Unorm, tex.Format)
	assert.Equal(t, img.Pixels, tex.Level(0, 0).Pixels)
}

func TestCreateNormalTextureFromBumpImageFlatHeight(t *testing.T) {
	img := solidImage(4, 4, 1, 77)
	tex, err := CreateNormalTextureFromBumpImage(img, "flat")
	require.NoError(t, err)

	assert.Equal(t, metadata.TextureFormatRGBA8Unorm, tex.Format)
	assert.True(t, tex.Flags.Has(metadata.TextureFlagDerivedNormals))
	base := tex.Level(0, 0)
	for i := 0; i < 16; i++ {
		assert.Equal(t, []uint8{128, 128, 255, 255}, base.Pixels[i*4:i*4+4])
	}
}

func TestCreateNormalTextureFromBumpImageRamp(t *testing.T) {
	// Heights rise along x: 0, 64, 128, 192 on every row.
	img := solidImage(4, 3, 1, 0)
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			img.Pixels[y*4+x] = uint8(64 * x)
		}
	}
	tex, err := CreateNormalTextureFromBumpImage(img, "ramp")
	require.NoError(t, err)

	expected := func(left, right float32) [4]uint8 {
		dx := (right - left) / 255.0 * 2.0
		n := mgl32.Vec3{-dx, 0, 1}.Normalize()
		return EncodeNormal(n)
	}
	base := tex.Level(0, 0)

	// Interior texel (1, 1) uses its left and right neighbours.
	want := expected(0, 128)
	assert.Equal(t, want[:], base.Pixels[(1*4+1)*4:(1*4+1)*4+4])

	// Edge texel (0, 1) clamps its left neighbour to itself.
	want = expected(0, 64)
	assert.Equal(t, want[:], base.Pixels[(1*4+0)*4:(1*4+0)*4+4])

	// Normals tilt away from the rising slope.
	assert.Less(t, base.Pixels[(1*4+1)*4], uint8(128))
}

func TestNormalMipsStayUnitLength(t *testing.T) {
	// 2x2 blocks of alternating height, so neighbouring normals tilt apart
	// and a plain box filter would shorten them.
	img := solidImage(8, 8, 1, 0)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if (x/2+y/2)%2 == 1 {
				img.Pixels[y*8+x] = 255
			}
		}
	}
	tex, err := CreateNormalTextureFromBumpImage(img, "bumps")
	require.NoError(t, err)
	require.Equal(t, 4, tex.MipLevelCount())

	decode := func(v uint8) float32 { return float32(v)/255*2 - 1 }
	for mip := 1; mip < tex.MipLevelCount(); mip++ {
		level := tex.Level(0, mip)
		for i := 0; i+4 <= len(level.Pixels); i += 4 {
			px := level.Pixels[i : i+4]
			n := mgl32.Vec3{decode(px[0]), decode(px[1]), decode(px[2])}
			assert.InDelta(t, 1, n.Len(), 0.02, "mip %d texel %d", mip, i/4)
			assert.Equal(t, uint8(255), px[3])
		}
	}
}

func TestNormalMipsClampXY(t *testing.T) {
	img := solidImage(4, 4, 2, 255, 255)
	tex, err := CreateNormalTextureFromBumpImage(img, "xy")
	require.NoError(t, err)
	require.Equal(t, metadata.TextureFormatRG8Unorm, tex.Format)

	assert.Equal(t, img.Pixels, tex.Level(0, 0).Pixels)
	for mip := 1; mip < tex.MipLevelCount(); mip++ {
		px := tex.Level(0, mip).Pixels[:2]
		xy := mgl32.Vec2{float32(px[0])/255*2 - 1, float32(px[1])/255*2 - 1}
		assert.LessOrEqual(t, xy.Len(), float32(1.01), "mip %d", mip)
	}
}

func TestCreateNormalTextureFromBumpImageGreyRGB(t *testing.T) {
	img := solidImage(2, 2, 3, 90)
	tex, err := CreateNormalTextureFromBumpImage(img, "grey")
	require.NoError(t, err)
	assert.True(t, tex.Flags.Has(metadata.TextureFlagDerivedNormals))
}

func TestCreateNormalTextureFromBumpImageFailure(t *testing.T) {
	_, err := CreateNormalTextureFromBumpImage(&metadata.ImageResourceData{}, "empty")
	assert.ErrorIs(t, err, core.ErrDecodeFailure)

	img := solidImage(2, 2, 1, 10)
	img.Encoding = metadata.ImageEncodingNormal
	_, err = CreateNormalTextureFromBumpImage(img, "bad-tag")
	assert.ErrorIs(t, err, core.ErrDecodeFailure)
}

func TestCreateCubeTextureFromImage(t *testing.T) {
	img := stripImage(24, 4, 3)
	tex, err := CreateCubeTextureFromImage(img, "sky")
	require.NoError(t, err)

	assert.Equal(t, metadata.TextureTypeCube, tex.TextureType)
	assert.Equal(t, metadata.TextureFormatRGBA8UnormSRGB, tex.Format)
	assert.Equal(t, uint32(4), tex.Width)
	assert.Equal(t, uint32(4), tex.Height)
	require.Equal(t, 6, tex.FaceCount())
	assert.Equal(t, 3, tex.MipLevelCount())

	for face := 0; face < 6; face++ {
		base := tex.Level(face, 0)
		require.NotNil(t, base, "face %s", CubeFace(face))
		assert.Equal(t, uint32(4), base.Width)
		assert.Equal(t, uint32(4), base.Height)
		want := uint8(10 * (face + 1))
		for i := 0; i < 16; i++ {
			assert.Equal(t, []uint8{want, want, want, 255}, base.Pixels[i*4:i*4+4], "face %s", CubeFace(face))
		}
	}
}

func TestCreateCubeTextureFromImageNonSquareFaces(t *testing.T) {
	img := stripImage(12, 5, 4)
	tex, err := CreateCubeTextureFromImage(img, "tall")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), tex.Width)
	assert.Equal(t, uint32(5), tex.Height)
	assert.Equal(t, 6, tex.FaceCount())
}

func TestCreateCubeTextureFromImageFailures(t *testing.T) {
	_, err := CreateCubeTextureFromImage(solidImage(25, 4, 4, 1), "odd")
	assert.ErrorIs(t, err, core.ErrDecodeFailure)

	_, err = CreateCubeTextureFromImage(nil, "nil")
	assert.ErrorIs(t, err, core.ErrDecodeFailure)
}

func TestDecodeIsDeterministic(t *testing.T) {
	img := stripImage(24, 4, 4)
	a, err := CreateCubeTextureFromImage(img, "sky")
	require.NoError(t, err)
	b, err := CreateCubeTextureFromImage(img, "sky")
	require.NoError(t, err)

	assert.Equal(t, a.Format, b.Format)
	assert.Equal(t, a.Width, b.Width)
	assert.Equal(t, a.Layers, b.Layers)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestDecoderForUsage(t *testing.T) {
	usage := metadata.NewTextureUsage()
	tex, err := DecodeForUsage(usage, solidImage(2, 2, 4, 9), "albedo")
	require.NoError(t, err)
	assert.Equal(t, metadata.TextureFormatRGBA8UnormSRGB, tex.Format)

	usage.MaterialUsage = metadata.MaterialMapBump
	tex, err = DecodeForUsage(usage, solidImage(2, 2, 1, 9), "bump")
	require.NoError(t, err)
	assert.True(t, tex.Flags.Has(metadata.TextureFlagDerivedNormals))

	usage = metadata.TextureUsage{Type: metadata.TextureTypeCube}
	tex, err = DecodeForUsage(usage, stripImage(6, 1, 4), "env")
	require.NoError(t, err)
	assert.Equal(t, metadata.TextureTypeCube, tex.TextureType)
}
