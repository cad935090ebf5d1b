package texture

import (
	"fmt"
	"image"

	"github.com/spaghettifunk/texbind/engine/renderer/metadata"
)

// expandToRGBA returns a new four channel copy of pixels. Missing colour
// channels are zero (greyscale is replicated) and missing alpha is opaque.
func expandToRGBA(pixels []uint8, width, height uint32, channels uint8) []uint8 {
	count := int(width) * int(height)
	out := make([]uint8, count*4)
	ch := int(channels)
	for i := 0; i < count; i++ {
		src := pixels[i*ch : i*ch+ch]
		dst := out[i*4 : i*4+4]
		switch channels {
		case 1:
			dst[0], dst[1], dst[2], dst[3] = src[0], src[0], src[0], 255
		case 2:
			dst[0], dst[1], dst[2], dst[3] = src[0], src[1], 0, 255
		case 3:
			dst[0], dst[1], dst[2], dst[3] = src[0], src[1], src[2], 255
		default:
			copy(dst, src)
		}
	}
	return out
}

func copyPixels(pixels []uint8, width, height uint32, channels uint8) []uint8 {
	n := int(width) * int(height) * int(channels)
	return append([]uint8(nil), pixels[:n]...)
}

func hasTransparency(rgba []uint8) bool {
	for i := 3; i < len(rgba); i += 4 {
		if rgba[i] < 255 {
			return true
		}
	}
	return false
}

// luminance returns the height of a texel in [0, 1].
func luminance(pixels []uint8, index int, channels uint8) float32 {
	p := pixels[index*int(channels):]
	if channels < 3 {
		return float32(p[0]) / 255.0
	}
	return (0.2126*float32(p[0]) + 0.7152*float32(p[1]) + 0.0722*float32(p[2])) / 255.0
}

// toImage stores channel i of every texel in RGBA component i so the image
// packages can resample raw data. Unused components are zero, alpha is
// opaque when the data has no alpha.
func toImage(pixels []uint8, width, height uint32, channels uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
	if channels == 4 {
		copy(img.Pix, pixels)
		return img
	}
	count := int(width) * int(height)
	ch := int(channels)
	for i := 0; i < count; i++ {
		copy(img.Pix[i*4:i*4+ch], pixels[i*ch:i*ch+ch])
		img.Pix[i*4+3] = 255
	}
	return img
}

// fromImage is the inverse of toImage.
func fromImage(img *image.RGBA, channels uint8) []uint8 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	ch := int(channels)
	out := make([]uint8, w*h*ch)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			copy(out[(y*w+x)*ch:(y*w+x)*ch+ch], row[x*4:x*4+ch])
		}
	}
	return out
}

// LevelImage wraps one face/mip of t as an image. Single channel data is
// returned as greyscale; two channel data fills red and green.
func LevelImage(t *metadata.Texture, face, mip int) (image.Image, error) {
	level := t.Level(face, mip)
	if level == nil {
		return nil, fmt.Errorf("texture '%s' has no face %d mip %d", t.Name, face, mip)
	}
	channels := t.Format.ChannelCount()
	if channels == 0 || len(level.Pixels) < int(level.Width)*int(level.Height)*int(channels) {
		return nil, fmt.Errorf("texture '%s' face %d mip %d: pixel data does not match %s", t.Name, face, mip, t.Format)
	}
	if channels == 1 {
		img := image.NewGray(image.Rect(0, 0, int(level.Width), int(level.Height)))
		copy(img.Pix, level.Pixels)
		return img, nil
	}
	rgba := toImage(level.Pixels, level.Width, level.Height, channels)
	return &image.NRGBA{Pix: rgba.Pix, Stride: rgba.Stride, Rect: rgba.Rect}, nil
}
