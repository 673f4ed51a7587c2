package camera

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f32(buf []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
}

func TestUniformLayout(t *testing.T) {
	c := NewCamera(WithPosition(mgl32.Vec3{1, 2, 3}), WithClip(0.5, 50))
	u := c.Uniform()
	buf := u.Marshal()
	require.Len(t, buf, GPUCameraUniformSize)

	assert.Equal(t, float32(1), f32(buf, 64))
	assert.Equal(t, float32(3), f32(buf, 72))
	assert.Equal(t, float32(0.5), f32(buf, 76))
	assert.Equal(t, float32(50), f32(buf, 80))
	assert.Equal(t, u.ViewProj[0], f32(buf, 0))
	assert.Zero(t, f32(buf, 92))
}

func TestViewProjectionMapsTargetToCenter(t *testing.T) {
	c := NewCamera()
	c.LookAt(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, 0})
	clip := c.ViewProjectionMatrix().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	ndc := clip.Vec3().Mul(1 / clip.W())

	assert.InDelta(t, 0, ndc.X(), 1e-5)
	assert.InDelta(t, 0, ndc.Y(), 1e-5)
	assert.Greater(t, ndc.Z(), float32(0))
	assert.Less(t, ndc.Z(), float32(1))
}

func TestSettersRecompute(t *testing.T) {
	c := NewCamera()
	before := c.ProjectionMatrix()
	c.SetAspect(16.0 / 9.0)
	assert.NotEqual(t, before, c.ProjectionMatrix())
	assert.InDelta(t, 16.0/9.0, c.Aspect(), 1e-6)

	c.SetClip(1, 10)
	assert.Equal(t, float32(1), c.Near())
	assert.Equal(t, float32(10), c.Far())
	assert.Equal(t, c.ProjectionMatrix().Mul4(c.ViewMatrix()), c.ViewProjectionMatrix())
}
