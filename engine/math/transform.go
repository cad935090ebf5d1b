package math

import "github.com/go-gl/mathgl/mgl32"

func TransformIdentity2D() Transform2D {
	return Transform2D{Scale: NewVec2One()}
}

func TransformFromOffsetScale(offset, scale Vec2) Transform2D {
	return Transform2D{Offset: offset, Scale: scale}
}

func TransformFromOffsetRotationScale(offset Vec2, rotation float32, scale Vec2) Transform2D {
	return Transform2D{Offset: offset, Rotation: rotation, Scale: scale}
}

func (t Transform2D) SetOffset(offset Vec2) Transform2D {
	t.Offset = offset
	return t
}

func (t Transform2D) SetRotation(rotation float32) Transform2D {
	t.Rotation = rotation
	return t
}

func (t Transform2D) SetScale(scale Vec2) Transform2D {
	t.Scale = scale
	return t
}

// Matrix returns the homogeneous 3x3 matrix T * R * S, ready to be uploaded
// as a uniform by the shading stage.
func (t Transform2D) Matrix() mgl32.Mat3 {
	tr := mgl32.Translate2D(t.Offset.X, t.Offset.Y)
	r := mgl32.HomogRotate2D(t.Rotation)
	s := mgl32.Scale2D(t.Scale.X, t.Scale.Y)
	return tr.Mul3(r).Mul3(s)
}

// Apply transforms a single texture coordinate.
func (t Transform2D) Apply(uv Vec2) Vec2 {
	p := t.Matrix().Mul3x1(mgl32.Vec3{uv.X, uv.Y, 1})
	return Vec2{X: p.X(), Y: p.Y()}
}

func (t Transform2D) IsIdentity() bool {
	return t.Matrix().ApproxEqual(mgl32.Ident3())
}
