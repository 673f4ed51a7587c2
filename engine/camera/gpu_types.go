package camera

import (
	"github.com/Carmen-Shannon/materia/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUCameraUniformSize is the byte size of the marshaled camera uniform, and of the group 0
// binding 0 buffer.
const GPUCameraUniformSize = 96

// GPUCameraUniform is the GPU-aligned representation of the camera uniform buffer.
// Matches the Camera struct of the built-in unlit shader exactly.
// Size: 96 bytes (WGSL uniform aligned).
type GPUCameraUniform struct {
	ViewProj       mgl32.Mat4 // offset  0: combined view-projection matrix (mat4x4<f32>)
	CameraPosition mgl32.Vec3 // offset 64: world-space camera position (vec3<f32>)
	Near           float32    // offset 76: near plane distance
	Far            float32    // offset 80: far plane distance, then 12 bytes of padding
}

// Size returns the size of the marshaled uniform in bytes.
//
// Returns:
//   - int: the uniform size in bytes (96)
func (g *GPUCameraUniform) Size() int {
	return GPUCameraUniformSize
}

// Marshal serializes the GPUCameraUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUCameraUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	common.PutFloat32s(buf, g.ViewProj[:])
	common.PutFloat32s(buf[64:], append(g.CameraPosition[:], g.Near, g.Far))
	return buf
}
