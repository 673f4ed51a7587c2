package material

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUMaterialSize is the byte size of GPUMaterial, and of the group 2 uniform binding.
const GPUMaterialSize = 16

// GPUMaterial is the GPU-aligned material uniform. Matches the MaterialData struct of the
// built-in unlit shader exactly.
// Size: 16 bytes (one vec4<f32>, std140 aligned).
type GPUMaterial struct {
	BaseColor [4]float32 // offset 0: RGBA base color (16 bytes)
}

// Size returns the size of the GPUMaterial struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUMaterial) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUMaterial struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload.
func (g *GPUMaterial) Marshal() []byte {
	buf := make([]byte, GPUMaterialSize)
	for i, c := range g.BaseColor {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(c))
	}
	return buf
}
