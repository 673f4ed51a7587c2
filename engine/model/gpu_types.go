package model

import (
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/materia/common"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
)

// GPUVertexSize is the stride of GPUVertex in a vertex buffer.
const GPUVertexSize = 24

// GPUVertex is the GPU-aligned representation of a single mesh vertex.
// Matches the VertexInput struct of the built-in unlit shader exactly.
// Size: 24 bytes (no padding required).
type GPUVertex struct {
	Position [3]float32 // offset  0: vertex position in model space (12 bytes), location 0
	Normal   [3]float32 // offset 12: vertex normal for lighting (12 bytes), location 1
}

// Size returns the size of the GPUVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUVertex struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 24-byte buffer ready for GPU upload.
func (g *GPUVertex) Marshal() []byte {
	buf := make([]byte, GPUVertexSize)
	g.put(buf)
	return buf
}

func (g *GPUVertex) put(buf []byte) {
	common.PutFloat32s(buf, g.Position[:])
	common.PutFloat32s(buf[12:], g.Normal[:])
}

// VertexLayout returns the vertex buffer layout of GPUVertex for slot 0.
//
// Returns:
//   - gputypes.VertexBufferLayout: position at location 0 and normal at location 1
func VertexLayout() gputypes.VertexBufferLayout {
	return gputypes.VertexBufferLayout{
		ArrayStride: GPUVertexSize,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes: []gputypes.VertexAttribute{
			{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			{Format: gputypes.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
		},
	}
}

// MarshalVertices packs vertices back to back.
//
// Parameters:
//   - vertices: the vertices to pack
//
// Returns:
//   - []byte: len(vertices) * GPUVertexSize bytes
func MarshalVertices(vertices []GPUVertex) []byte {
	buf := make([]byte, len(vertices)*GPUVertexSize)
	for i := range vertices {
		vertices[i].put(buf[i*GPUVertexSize:])
	}
	return buf
}

// ComputeBoundingRadius calculates the bounding sphere radius from vertex positions. The radius
// is the maximum distance from the origin across all vertices in the slice.
//
// Parameters:
//   - vertices: the vertex data to compute the bounding radius from
//
// Returns:
//   - float32: the maximum distance from the origin
func ComputeBoundingRadius(vertices []GPUVertex) float32 {
	var maxDistSq float32
	for _, v := range vertices {
		p := v.Position
		distSq := p[0]*p[0] + p[1]*p[1] + p[2]*p[2]
		if distSq > maxDistSq {
			maxDistSq = distSq
		}
	}
	return float32(math.Sqrt(float64(maxDistSq)))
}

// GPUModelDataSize is the byte size of GPUModelData, and of the group 1 uniform binding.
const GPUModelDataSize = 64

// GPUModelData is the GPU-aligned per-object uniform: the model-to-world transform.
// Matches the ObjectData struct of the built-in unlit shader exactly.
// Size: 64 bytes (mat4x4<f32>, no padding required).
type GPUModelData struct {
	Model mgl32.Mat4 // offset 0: 4x4 model-to-world transform matrix (64 bytes)
}

// Size returns the size of the GPUModelData struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUModelData) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUModelData struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload.
func (g *GPUModelData) Marshal() []byte {
	return common.Mat4ToBytes(g.Model)
}

// MarshalTo serializes into dst, which must hold GPUModelDataSize bytes.
func (g *GPUModelData) MarshalTo(dst []byte) {
	common.PutFloat32s(dst, g.Model[:])
}
