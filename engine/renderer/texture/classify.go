package texture

import (
	"fmt"

	"github.com/spaghettifunk/texbind/engine/core"
	"github.com/spaghettifunk/texbind/engine/renderer/metadata"
)

/** @brief What a normal/bump slot image turned out to contain. */
type ImageClass int

const (
	/** @brief Texels already are tangent-space normals (XY or XYZ). */
	ImageClassNormalEncoded ImageClass = iota
	/** @brief Texels are heights, normals must be derived. */
	ImageClassHeightEncoded
)

func (c ImageClass) String() string {
	if c == ImageClassHeightEncoded {
		return "height"
	}
	return "normal"
}

// ClassifyImage decides how a normal/bump image is decoded. An explicit
// encoding on the image wins. Otherwise a single channel is a height map,
// two channels are XY normals, and three or four channels are a height map
// only when every texel is grey.
func ClassifyImage(img *metadata.ImageResourceData) (ImageClass, error) {
	if !img.IsValid() {
		return 0, fmt.Errorf("%w: invalid image", core.ErrDecodeFailure)
	}

	switch img.Encoding {
	case metadata.ImageEncodingNormal:
		if img.ChannelCount < 2 {
			return 0, fmt.Errorf("%w: normal encoded image needs at least 2 channels, has %d", core.ErrDecodeFailure, img.ChannelCount)
		}
		return ImageClassNormalEncoded, nil
	case metadata.ImageEncodingHeight:
		return ImageClassHeightEncoded, nil
	}

	switch img.ChannelCount {
	case 1:
		return ImageClassHeightEncoded, nil
	case 2:
		return ImageClassNormalEncoded, nil
	}

	if isGreyscale(img) {
		return ImageClassHeightEncoded, nil
	}
	return ImageClassNormalEncoded, nil
}

func isGreyscale(img *metadata.ImageResourceData) bool {
	ch := int(img.ChannelCount)
	count := int(img.Width) * int(img.Height)
	for i := 0; i < count; i++ {
		p := img.Pixels[i*ch:]
		if p[0] != p[1] || p[1] != p[2] {
			return false
		}
	}
	return true
}
