package light

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectionIsNormalized(t *testing.T) {
	l := NewLight(LightTypeDirectional, WithDirection(mgl32.Vec3{0, 0, -10}))
	assert.InDelta(t, 1, l.Direction().Len(), 1e-6)
	l.SetDirection(mgl32.Vec3{})
	assert.Equal(t, mgl32.Vec3{0, -1, 0}, l.Direction())
}

func TestPack(t *testing.T) {
	tests := []struct {
		name      string
		lights    []Light
		ambient   mgl32.Vec3
		intensity float32
		color     mgl32.Vec3
	}{
		{
			name:    "no lights",
			ambient: DefaultAmbient,
		},
		{
			name: "ambient lights add up",
			lights: []Light{
				NewLight(LightTypeAmbient, WithColor(mgl32.Vec3{0.1, 0.2, 0.3})),
				NewLight(LightTypeAmbient, WithColor(mgl32.Vec3{1, 1, 1}), WithIntensity(0.5)),
			},
			ambient: mgl32.Vec3{0.6, 0.7, 0.8},
		},
		{
			name: "first enabled directional is the key light",
			lights: []Light{
				NewLight(LightTypeDirectional, WithEnabled(false), WithIntensity(9)),
				NewLight(LightTypeDirectional, WithColor(mgl32.Vec3{1, 0, 0}), WithIntensity(2)),
				NewLight(LightTypeDirectional, WithIntensity(3)),
			},
			ambient:   DefaultAmbient,
			intensity: 2,
			color:     mgl32.Vec3{1, 0, 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Pack(tt.lights)
			assert.True(t, g.Ambient.ApproxEqual(tt.ambient), "ambient %v", g.Ambient)
			assert.Equal(t, tt.intensity, g.Intensity)
			assert.Equal(t, tt.color, g.Color)
		})
	}
}

func TestGPULightingMarshal(t *testing.T) {
	g := GPULighting{
		Ambient:   mgl32.Vec3{0.1, 0.2, 0.3},
		Direction: mgl32.Vec3{0, -1, 0},
		Color:     mgl32.Vec3{1, 0.5, 0.25},
		Intensity: 4,
	}
	assert.Equal(t, GPULightingSize, g.Size())
	buf := g.Marshal()
	require.Len(t, buf, GPULightingSize)
	at := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	assert.Equal(t, float32(0.3), at(8))
	assert.Equal(t, float32(-1), at(20))
	assert.Equal(t, float32(0.25), at(40))
	assert.Equal(t, float32(4), at(44))
}
