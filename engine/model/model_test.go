package model

import (
	"context"
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/Carmen-Shannon/materia/engine/gpu/gputest"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDevice(t *testing.T) (*gputest.Backend, *gpu.Device) {
	t.Helper()
	b := gputest.Install(t, gputest.WithID(t.Name()))
	inst, err := gpu.CreateInstance(b.ID())
	require.NoError(t, err)
	t.Cleanup(func() { _ = inst.Dispose() })
	a, err := inst.RequestAdapter(context.Background(), nil)
	require.NoError(t, err)
	d, err := a.RequestDevice(context.Background(), gpu.DeviceDescriptor{Label: "model test"})
	require.NoError(t, err)
	return b, d
}

func TestVertexLayoutMatchesMarshal(t *testing.T) {
	v := GPUVertex{Position: [3]float32{1, 2, 3}, Normal: [3]float32{4, 5, 6}}
	assert.Equal(t, GPUVertexSize, v.Size())
	buf := v.Marshal()
	layout := VertexLayout()
	assert.Equal(t, uint64(GPUVertexSize), layout.ArrayStride)
	normalOff := layout.Attributes[1].Offset
	assert.Equal(t, float32(4), math.Float32frombits(binary.LittleEndian.Uint32(buf[normalOff:])))
	assert.Equal(t, buf, MarshalVertices([]GPUVertex{v}))
}

func TestGPUModelDataMarshal(t *testing.T) {
	d := GPUModelData{Model: mgl32.Translate3D(1, 2, 3)}
	buf := d.Marshal()
	require.Len(t, buf, GPUModelDataSize)
	assert.Equal(t, float32(3), math.Float32frombits(binary.LittleEndian.Uint32(buf[56:])))
}

func TestPrimitives(t *testing.T) {
	tri := Triangle()
	assert.Equal(t, 3, tri.VertexCount())
	assert.Equal(t, 3, tri.IndexCount())
	assert.True(t, tri.Indexed())

	cube := Cube()
	assert.Equal(t, 24, cube.VertexCount())
	assert.Equal(t, 36, cube.IndexCount())
	assert.InDelta(t, math.Sqrt(0.75), cube.BoundingRadius(), 1e-6)
}

func TestUploadPadsAndPicksIndexFormat(t *testing.T) {
	b, d := newDevice(t)
	before := b.Live()
	tri := Triangle()

	require.NoError(t, tri.Upload(d))
	require.True(t, tri.Uploaded())
	assert.Equal(t, gputypes.IndexFormatUint16, tri.IndexFormat())
	assert.Equal(t, int64(72), tri.VertexBuffer().Size())
	assert.Equal(t, int64(8), tri.IndexBuffer().Size(), "6 index bytes padded to 8")
	assert.True(t, tri.IndexBuffer().Usage().Contains(gputypes.BufferUsageIndex))
	assert.Equal(t, before+2, b.Live())

	require.NoError(t, tri.Upload(d))
	assert.Equal(t, before+2, b.Live())

	require.NoError(t, tri.Release())
	assert.False(t, tri.Uploaded())
	assert.Equal(t, before, b.Live())
}

func TestUploadWideIndices(t *testing.T) {
	_, d := newDevice(t)
	m := NewModel(WithVertices(GPUVertex{}, GPUVertex{}, GPUVertex{}), WithIndices(0, 1, 70000))
	require.NoError(t, m.Upload(d))
	assert.Equal(t, gputypes.IndexFormatUint32, m.IndexFormat())
	assert.Equal(t, int64(12), m.IndexBuffer().Size())
}

func TestUploadNonIndexed(t *testing.T) {
	_, d := newDevice(t)
	m := NewModel(WithVertices(GPUVertex{}, GPUVertex{}, GPUVertex{}))
	require.NoError(t, m.Upload(d))
	assert.False(t, m.Indexed())
	assert.Nil(t, m.IndexBuffer())
}

func TestUploadFailures(t *testing.T) {
	b, d := newDevice(t)
	assert.ErrorIs(t, NewModel(WithName("empty")).Upload(d), ErrEmptyGeometry)

	before := b.Live()
	b.FailCreateAt(2)
	tri := Triangle()
	err := tri.Upload(d)
	assert.ErrorIs(t, err, gputest.ErrInjected)
	assert.False(t, tri.Uploaded())
	assert.Equal(t, before, b.Live())
}
