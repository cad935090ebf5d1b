package math

// Vec2 represents a 2D vector
type Vec2 struct {
	X, Y float32
}

// Vec4 represents a 4D vector
type Vec4 struct {
	X, Y, Z, W float32
}

/**
 * @brief Represents an affine transform of texture coordinates.
 * Coordinates are scaled, then rotated, then offset. NOTE: the zero value
 * has a zero scale, use TransformIdentity2D to get the identity.
 */
type Transform2D struct {
	/** @brief Translation applied last. */
	Offset Vec2
	/** @brief Rotation in radians, counter-clockwise. */
	Rotation float32
	/** @brief Scale applied first. */
	Scale Vec2
}
