package material

import (
	"context"
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/Carmen-Shannon/materia/engine/gpu/gputest"
	"github.com/Carmen-Shannon/materia/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/materia/engine/renderer/pipeline"
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
	d, err := a.RequestDevice(context.Background(), gpu.DeviceDescriptor{Label: "material test"})
	require.NoError(t, err)
	return b, d
}

func TestGPUMaterialMarshal(t *testing.T) {
	u := GPUMaterial{BaseColor: [4]float32{0.25, 0.5, 0.75, 1}}
	assert.Equal(t, GPUMaterialSize, u.Size())
	buf := u.Marshal()
	require.Len(t, buf, GPUMaterialSize)
	assert.Equal(t, float32(0.75), math.Float32frombits(binary.LittleEndian.Uint32(buf[8:])))
}

func TestNewMaterialDefaults(t *testing.T) {
	a, err := NewMaterial()
	require.NoError(t, err)
	b, err := NewMaterial(WithName("red"), WithBaseColor([4]float32{1, 0, 0, 1}))
	require.NoError(t, err)

	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, "red", b.Name())
	assert.Contains(t, a.Name(), "material-")
	assert.Equal(t, [4]float32{1, 1, 1, 1}, a.BaseColor())

	avs, afs := a.Shaders()
	bvs, bfs := b.Shaders()
	assert.Same(t, avs, bvs, "default materials share the unlit shaders")
	assert.Same(t, afs, bfs)
	assert.Equal(t, "vs_main", avs.EntryPoint())
}

func TestFeaturesSelectPipelineVariant(t *testing.T) {
	opaque, err := NewMaterial()
	require.NoError(t, err)
	glass, err := NewMaterial(WithFeatures(FeatureAlphaBlend, FeatureDoubleSided, FeatureNoDepthWrite))
	require.NoError(t, err)

	assert.True(t, glass.Features().Has(FeatureAlphaBlend))
	assert.False(t, glass.Features().Has(FeatureWireframe))
	assert.Equal(t, "alpha-blend|double-sided|no-depth-write", glass.Features().String())
	assert.Equal(t, "none", opaque.Features().String())

	build := func(m Material) pipeline.Pipeline {
		vs, fs := m.Shaders()
		opts := append(m.PipelineOptions(), pipeline.WithDepthFormat(gputypes.TextureFormatDepth24Plus))
		return pipeline.NewPipeline(vs, fs, opts...)
	}
	o, g := build(opaque), build(glass)
	assert.Equal(t, gputypes.CullModeBack, o.CullMode())
	assert.Equal(t, gputypes.CullModeNone, g.CullMode())
	assert.Equal(t, pipeline.BlendAlpha, g.BlendMode())
	assert.False(t, g.Key().DepthWrite)
	assert.NotEqual(t, o.Key(), g.Key())
}

func TestInitUploadsUniform(t *testing.T) {
	b, d := newDevice(t)
	layout, err := bind_group_provider.NewLayout(d, "materials", Uniform)
	require.NoError(t, err)
	m, err := NewMaterial(WithBaseColor([4]float32{0, 1, 0, 1}))
	require.NoError(t, err)

	before := len(b.Writes())
	require.NoError(t, m.Init(d, layout))
	p := m.BindGroupProvider()
	require.NotNil(t, p)
	assert.Equal(t, uint32(Group), p.Group())
	assert.Same(t, layout, p.BindGroupLayout())
	writes := b.Writes()
	require.Len(t, writes, before+1, "one uniform upload")
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(writes[before].Data[4:])))

	require.NoError(t, m.Upload())
	assert.Len(t, b.Writes(), before+1, "clean uniform is not rewritten")

	m.SetBaseColor([4]float32{0, 0, 1, 1})
	require.NoError(t, m.Upload())
	assert.Len(t, b.Writes(), before+2)

	require.NoError(t, m.Release())
	assert.Nil(t, m.BindGroupProvider())
	assert.False(t, layout.Disposed())
}
