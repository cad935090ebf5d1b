package texture

import (
	"github.com/anthonynsimon/bild/transform"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/texbind/engine/renderer/metadata"
)

// MipLevelCount returns the number of levels of a full chain down to 1x1.
func MipLevelCount(width, height uint32) int {
	size := max(width, height)
	if size == 0 {
		return 0
	}
	count := 1
	for size > 1 {
		size >>= 1
		count++
	}
	return count
}

// buildMipChain returns base followed by successively halved levels, each
// box-filtered from the previous one, down to 1x1. With normals set every
// filtered texel is renormalised, the base level is kept as is.
func buildMipChain(base metadata.TextureLevel, channels uint8, normals bool) []metadata.TextureLevel {
	levels := make([]metadata.TextureLevel, 0, MipLevelCount(base.Width, base.Height))
	levels = append(levels, base)

	prev := base
	for prev.Width > 1 || prev.Height > 1 {
		w := max(prev.Width/2, 1)
		h := max(prev.Height/2, 1)
		src := toImage(prev.Pixels, prev.Width, prev.Height, channels)
		dst := transform.Resize(src, int(w), int(h), transform.Box)
		next := metadata.TextureLevel{
			Width:  w,
			Height: h,
			Pixels: fromImage(dst, channels),
		}
		if normals {
			renormalize(next.Pixels, channels)
		}
		levels = append(levels, next)
		prev = next
	}
	return levels
}

func decodeUnorm(v uint8) float32 {
	return float32(v)/255.0*2.0 - 1.0
}

// renormalize rescales averaged normals back to unit length. Two channel
// maps only store xy, z is rebuilt by the shader so xy is clamped to the
// unit disc.
func renormalize(pixels []uint8, channels uint8) {
	stride := int(channels)
	for i := 0; i+stride <= len(pixels); i += stride {
		px := pixels[i : i+stride]
		switch channels {
		case 2:
			xy := mgl32.Vec2{decodeUnorm(px[0]), decodeUnorm(px[1])}
			if l := xy.Len(); l > 1 {
				xy = xy.Mul(1 / l)
			}
			enc := EncodeNormal(mgl32.Vec3{xy.X(), xy.Y(), 0})
			px[0], px[1] = enc[0], enc[1]
		case 3, 4:
			n := mgl32.Vec3{decodeUnorm(px[0]), decodeUnorm(px[1]), decodeUnorm(px[2])}
			if n.Len() < 1e-6 {
				n = mgl32.Vec3{0, 0, 1}
			}
			enc := EncodeNormal(n.Normalize())
			px[0], px[1], px[2] = enc[0], enc[1], enc[2]
		}
	}
}
