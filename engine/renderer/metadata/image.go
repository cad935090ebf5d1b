package metadata

/** @brief What the texels of an image encode, when the source says so. */
type ImageEncoding int

const (
	/** @brief Nothing is known, the channel layout decides. */
	ImageEncodingUnknown ImageEncoding = iota
	/** @brief Each texel stores a tangent-space normal vector. */
	ImageEncodingNormal
	/** @brief Each texel stores a height/bump value. */
	ImageEncodingHeight
)

/**
 * @brief A structure to hold image resource data.
 */
type ImageResourceData struct {
	/** @brief The number of channels. */
	ChannelCount uint8
	/** @brief The width of the image. */
	Width uint32
	/** @brief The height of the image. */
	Height uint32
	/** @brief The pixel data of the image, tightly packed, 8 bits per channel. */
	Pixels []uint8
	/** @brief Optional hint about what the texels encode. */
	Encoding ImageEncoding
}

// IsValid reports whether the buffer is large enough for its declared layout.
func (img *ImageResourceData) IsValid() bool {
	if img == nil || img.Width == 0 || img.Height == 0 {
		return false
	}
	if img.ChannelCount < 1 || img.ChannelCount > 4 {
		return false
	}
	return uint64(len(img.Pixels)) >= uint64(img.Width)*uint64(img.Height)*uint64(img.ChannelCount)
}

/** @brief Parameters used when loading an image. */
type ImageResourceParams struct {
	/** @brief Indicates if the image should be flipped on the y-axis when loaded. */
	FlipY bool
	/** @brief Forwarded into ImageResourceData.Encoding. */
	Encoding ImageEncoding
}
