package math

func NewVec2(x, y float32) Vec2 {
	return Vec2{X: x, Y: y}
}

func NewVec2One() Vec2 {
	return Vec2{X: 1, Y: 1}
}
