package light

import (
	"unsafe"

	"github.com/Carmen-Shannon/materia/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GPULightingSize is the byte size of GPULighting, and of the group 0 binding 1 buffer.
const GPULightingSize = 48

// DefaultAmbient is the ambient term used when a frame carries no ambient light.
var DefaultAmbient = mgl32.Vec3{0.1, 0.1, 0.1}

// GPULighting is the GPU-aligned lighting uniform. Matches the Light struct of the built-in
// unlit shader exactly.
// Size: 48 bytes (WGSL uniform aligned).
type GPULighting struct {
	Ambient   mgl32.Vec3 // offset  0: summed ambient color
	_pad0     float32    // offset 12
	Direction mgl32.Vec3 // offset 16: normalized direction of the key light
	_pad1     float32    // offset 28
	Color     mgl32.Vec3 // offset 32: key light color
	Intensity float32    // offset 44: key light intensity, 0 when there is none
}

// Size returns the size of the GPULighting struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (48)
func (g *GPULighting) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPULighting struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 48-byte buffer ready for GPU upload
func (g *GPULighting) Marshal() []byte {
	buf := make([]byte, GPULightingSize)
	common.PutFloat32s(buf, g.Ambient[:])
	common.PutFloat32s(buf[16:], g.Direction[:])
	common.PutFloat32s(buf[32:], append(g.Color[:], g.Intensity))
	return buf
}

// Pack folds the enabled lights of a frame into the lighting uniform. Ambient lights add up;
// the first enabled directional light becomes the key light and later ones are ignored.
// Without any ambient light DefaultAmbient is used.
//
// Parameters:
//   - lights: the frame's lights, in priority order
//
// Returns:
//   - GPULighting: the packed uniform
func Pack(lights []Light) GPULighting {
	g := GPULighting{Direction: mgl32.Vec3{0, -1, 0}}
	hasAmbient, hasKey := false, false
	for _, l := range lights {
		if l == nil || !l.Enabled() {
			continue
		}
		switch l.Type() {
		case LightTypeAmbient:
			g.Ambient = g.Ambient.Add(l.Color().Mul(l.Intensity()))
			hasAmbient = true
		case LightTypeDirectional:
			if hasKey {
				continue
			}
			g.Direction, g.Color, g.Intensity = l.Direction(), l.Color(), l.Intensity()
			hasKey = true
		}
	}
	if !hasAmbient {
		g.Ambient = DefaultAmbient
	}
	return g
}
