// Package common contains the byte packing and matrix helpers shared throughout the engine.
package common

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// depthRemap converts OpenGL clip-space depth [-1, 1] into the [0, 1] range expected by
// WebGPU, Vulkan and Metal. Column-major, applied after an mgl32 projection.
var depthRemap = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// Float32sToBytes packs float32 values into a freshly allocated little-endian byte slice.
//
// Parameters:
//   - values: the float32 values to pack
//
// Returns:
//   - []byte: 4*len(values) bytes in little-endian order
func Float32sToBytes(values []float32) []byte {
	buf := make([]byte, len(values)*4)
	PutFloat32s(buf, values)
	return buf
}

// PutFloat32s writes float32 values into dst in little-endian order. dst must hold at least
// 4*len(values) bytes.
//
// Parameters:
//   - dst: the destination byte slice
//   - values: the float32 values to write
func PutFloat32s(dst []byte, values []float32) {
	for i, v := range values {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
}

// Mat4ToBytes serializes a column-major mgl32 matrix into 64 little-endian bytes.
//
// Parameters:
//   - m: the matrix to serialize
//
// Returns:
//   - []byte: the 64-byte serialized matrix
func Mat4ToBytes(m mgl32.Mat4) []byte {
	return Float32sToBytes(m[:])
}

// Perspective builds a right-handed perspective projection with a [0, 1] depth range.
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
//
// Returns:
//   - mgl32.Mat4: the projection matrix
func Perspective(fovY, aspect, near, far float32) mgl32.Mat4 {
	return depthRemap.Mul4(mgl32.Perspective(fovY, aspect, near, far))
}

// BuildModelMatrix constructs a model matrix from position, Euler rotation, and scale.
// The rotation order is Y * X * Z (yaw-pitch-roll).
//
// Parameters:
//   - position: translation in world space
//   - rotation: rotation angles in radians around each axis
//   - scale: scale factors along each axis
//
// Returns:
//   - mgl32.Mat4: translation * rotation * scale
func BuildModelMatrix(position, rotation, scale mgl32.Vec3) mgl32.Mat4 {
	rot := mgl32.HomogRotate3DY(rotation.Y()).
		Mul4(mgl32.HomogRotate3DX(rotation.X())).
		Mul4(mgl32.HomogRotate3DZ(rotation.Z()))
	return mgl32.Translate3D(position.X(), position.Y(), position.Z()).
		Mul4(rot).
		Mul4(mgl32.Scale3D(scale.X(), scale.Y(), scale.Z()))
}
