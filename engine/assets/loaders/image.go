package loaders

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"github.com/h2non/filetype"
	"github.com/spaghettifunk/texbind/engine/core"
	"github.com/spaghettifunk/texbind/engine/renderer/metadata"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

type ImageLoader struct{}

func (il *ImageLoader) Load(name string, data []byte, params interface{}) (*metadata.Resource, error) {
	typedParams, _ := params.(*metadata.ImageResourceParams)
	if typedParams == nil {
		typedParams = &metadata.ImageResourceParams{}
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s: no image bytes", core.ErrDecodeFailure, name)
	}

	img, format, err := decodeImage(name, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrDecodeFailure, name, err)
	}
	core.LogDebug("decoded %s image '%s' (%dx%d)", format, name, img.Bounds().Dx(), img.Bounds().Dy())

	resourceData := ImageToResourceData(img)
	if typedParams.FlipY {
		flipRows(resourceData)
	}
	resourceData.Encoding = typedParams.Encoding

	return &metadata.Resource{
		Name:     name,
		FullPath: name,
		DataSize: uint64(len(data)),
		Data:     resourceData,
	}, nil
}

func (il *ImageLoader) Unload(*metadata.Resource) error {
	return nil
}

// imageDecoders maps the extension reported by filetype to its decoder.
// image.Decode is not used: the tga package registers an empty magic string
// that matches every input.
var imageDecoders = map[string]func(io.Reader) (image.Image, error){
	"png":  png.Decode,
	"jpg":  jpeg.Decode,
	"gif":  gif.Decode,
	"bmp":  bmp.Decode,
	"tif":  tiff.Decode,
	"webp": webp.Decode,
}

func decodeImage(name string, data []byte) (image.Image, string, error) {
	// TGA has no magic number, trust the extension for it.
	if isTGA(name) {
		img, err := tga.Decode(bytes.NewReader(data))
		return img, "tga", err
	}

	kind, err := filetype.Match(data)
	if err != nil {
		return nil, "", err
	}
	if kind == filetype.Unknown {
		return nil, "", fmt.Errorf("content is not an image")
	}
	decode, ok := imageDecoders[kind.Extension]
	if !ok {
		return nil, kind.Extension, fmt.Errorf("unsupported image format %s", kind.Extension)
	}
	img, err := decode(bytes.NewReader(data))
	return img, kind.Extension, err
}

func isTGA(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".tga")
}

// ImageToResourceData packs img tightly. Greyscale keeps one channel, opaque
// images keep three, everything else becomes non-premultiplied RGBA.
func ImageToResourceData(img image.Image) *metadata.ImageResourceData {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := &metadata.ImageResourceData{
		Width:  uint32(w),
		Height: uint32(h),
	}

	switch src := img.(type) {
	case *image.Gray:
		out.ChannelCount = 1
		out.Pixels = make([]uint8, w*h)
		for y := 0; y < h; y++ {
			copy(out.Pixels[y*w:(y+1)*w], src.Pix[y*src.Stride:y*src.Stride+w])
		}
		return out
	case *image.Gray16:
		out.ChannelCount = 1
		out.Pixels = make([]uint8, w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				// High byte of the big-endian sample.
				out.Pixels[y*w+x] = src.Pix[y*src.Stride+x*2]
			}
		}
		return out
	}

	nrgba := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)

	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		out.ChannelCount = 3
		out.Pixels = make([]uint8, w*h*3)
		for i := 0; i < w*h; i++ {
			copy(out.Pixels[i*3:i*3+3], nrgba.Pix[i*4:i*4+3])
		}
		return out
	}

	out.ChannelCount = 4
	out.Pixels = nrgba.Pix
	return out
}

func flipRows(img *metadata.ImageResourceData) {
	rowSize := int(img.Width) * int(img.ChannelCount)
	tmp := make([]uint8, rowSize)
	for top, bottom := 0, int(img.Height)-1; top < bottom; top, bottom = top+1, bottom-1 {
		a := img.Pixels[top*rowSize : (top+1)*rowSize]
		b := img.Pixels[bottom*rowSize : (bottom+1)*rowSize]
		copy(tmp, a)
		copy(a, b)
		copy(b, tmp)
	}
}
