package math

import (
	m "math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransformIdentity2D(t *testing.T) {
	tr := TransformIdentity2D()
	assert.True(t, tr.IsIdentity())

	uv := tr.Apply(NewVec2(0.25, 0.75))
	assert.InDelta(t, 0.25, uv.X, 1e-6)
	assert.InDelta(t, 0.75, uv.Y, 1e-6)
}

func TestTransformOffsetScale(t *testing.T) {
	tr := TransformFromOffsetScale(NewVec2(0.5, 0.25), NewVec2(2, 4))
	assert.False(t, tr.IsIdentity())

	uv := tr.Apply(NewVec2(1, 1))
	assert.InDelta(t, 2.5, uv.X, 1e-6)
	assert.InDelta(t, 4.25, uv.Y, 1e-6)
}

func TestTransformRotation(t *testing.T) {
	tr := TransformIdentity2D().SetRotation(float32(m.Pi / 2))

	uv := tr.Apply(NewVec2(1, 0))
	assert.InDelta(t, 0, uv.X, 1e-5)
	assert.InDelta(t, 1, uv.Y, 1e-5)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, Clamp(-3, 0, 10))
	assert.Equal(t, 10, Clamp(30, 0, 10))
	assert.Equal(t, float32(0.5), Clamp(float32(0.5), 0, 1))
}
