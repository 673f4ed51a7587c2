package common

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoalesce(t *testing.T) {
	assert.Equal(t, "b", Coalesce("", "b", "c"))
	assert.Equal(t, 0, Coalesce(0, 0))
}

func TestFloat32sToBytes(t *testing.T) {
	b := Float32sToBytes([]float32{1, -2})
	require.Len(t, b, 8)
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f}, b[:4])
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0xc0}, b[4:])
	assert.Len(t, Mat4ToBytes(mgl32.Ident4()), 64)
}

func TestPerspectiveDepthRange(t *testing.T) {
	near, far := float32(0.1), float32(100)
	p := Perspective(mgl32.DegToRad(60), 4.0/3.0, near, far)

	nearClip := p.Mul4x1(mgl32.Vec4{0, 0, -near, 1})
	farClip := p.Mul4x1(mgl32.Vec4{0, 0, -far, 1})
	assert.InDelta(t, 0, nearClip.Z()/nearClip.W(), 1e-5)
	assert.InDelta(t, 1, farClip.Z()/farClip.W(), 1e-4)
}

func TestBuildModelMatrix(t *testing.T) {
	m := BuildModelMatrix(mgl32.Vec3{1, 2, 3}, mgl32.Vec3{}, mgl32.Vec3{2, 2, 2})
	p := m.Mul4x1(mgl32.Vec4{1, 1, 1, 1})
	assert.Equal(t, mgl32.Vec4{3, 4, 5, 1}, p)

	r := BuildModelMatrix(mgl32.Vec3{}, mgl32.Vec3{0, math.Pi / 2, 0}, mgl32.Vec3{1, 1, 1})
	x := r.Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	assert.InDelta(t, 0, x.X(), 1e-6)
	assert.InDelta(t, -1, x.Z(), 1e-6)
}

func TestFrustumContainsSphere(t *testing.T) {
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	f := ExtractFrustum(Perspective(mgl32.DegToRad(60), 1, 0.1, 50).Mul4(view))

	assert.True(t, f.ContainsSphere(mgl32.Vec3{}, 1))
	assert.False(t, f.ContainsSphere(mgl32.Vec3{0, 0, 20}, 1), "behind the camera")
	assert.False(t, f.ContainsSphere(mgl32.Vec3{0, 0, -100}, 1), "past the far plane")
	assert.False(t, f.ContainsSphere(mgl32.Vec3{100, 0, 0}, 1))
}
