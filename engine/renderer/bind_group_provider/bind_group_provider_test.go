package bind_group_provider

import (
	"context"
	"testing"

	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/Carmen-Shannon/materia/engine/gpu/gputest"
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
	d, err := a.RequestDevice(context.Background(), gpu.DeviceDescriptor{Label: "bind group test"})
	require.NoError(t, err)
	return b, d
}

var (
	camera = Uniform{Binding: 0, Size: 96, Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment}
	light  = Uniform{Binding: 1, Size: 48, Visibility: gputypes.ShaderStageFragment}
)

func TestInitCreatesOwnedLayout(t *testing.T) {
	b, d := newDevice(t)
	before := b.Live()

	p := NewBindGroupProvider("frame", WithGroup(0), WithUniform(camera), WithUniform(light))
	assert.False(t, p.Initialized())
	require.NoError(t, p.Init(d))
	assert.True(t, p.Initialized())
	assert.Equal(t, uint32(0), p.Group())
	require.NotNil(t, p.BindGroupLayout())
	assert.Len(t, p.BindGroupLayout().Entries(), 2)
	assert.Equal(t, int64(96), p.Buffer(0).Size())
	assert.Equal(t, int64(48), p.Buffer(1).Size())
	// layout, two buffers, group
	assert.Equal(t, before+4, b.Live())

	require.NoError(t, p.Init(d), "second Init is a no-op")
	assert.Equal(t, before+4, b.Live())

	require.NoError(t, p.Write(0, 0, make([]byte, 96)))
	require.NoError(t, p.Release())
	assert.False(t, p.Initialized())
	assert.Nil(t, p.BindGroupLayout())
	assert.Equal(t, before, b.Live())
	assert.Zero(t, b.DoubleReleases())
}

func TestSharedLayoutStaysWithOwner(t *testing.T) {
	b, d := newDevice(t)
	object := Uniform{Binding: 0, Size: 64, Visibility: gputypes.ShaderStageVertex}
	layout, err := NewLayout(d, "objects", object)
	require.NoError(t, err)
	before := b.Live()

	providers := make([]BindGroupProvider, 3)
	for i := range providers {
		providers[i] = NewBindGroupProvider("object", WithGroup(1), WithUniform(object), WithBindGroupLayout(layout))
		require.NoError(t, providers[i].Init(d))
		assert.Same(t, layout, providers[i].BindGroupLayout())
	}
	assert.Equal(t, before+6, b.Live())

	for _, p := range providers {
		require.NoError(t, p.Release())
	}
	assert.Equal(t, before, b.Live())
	assert.False(t, layout.Disposed())
}

func TestInitFailureReleasesPartialResources(t *testing.T) {
	b, d := newDevice(t)
	before := b.Live()
	// layout, first buffer, then the second buffer fails
	b.FailCreateAt(3)

	p := NewBindGroupProvider("frame", WithUniform(camera), WithUniform(light))
	err := p.Init(d)
	require.Error(t, err)
	assert.ErrorIs(t, err, gputest.ErrInjected)
	assert.ErrorContains(t, err, "binding 1")
	assert.False(t, p.Initialized())
	assert.Equal(t, before, b.Live())
}

func TestWriteBeforeInit(t *testing.T) {
	p := NewBindGroupProvider("frame", WithUniform(camera))
	var se *gpu.StateError
	assert.ErrorAs(t, p.Write(0, 0, []byte{1, 2, 3, 4}), &se)
}

func TestApplyJoinsFailures(t *testing.T) {
	_, d := newDevice(t)
	p := NewBindGroupProvider("frame", WithUniform(camera), WithUniform(light))
	require.NoError(t, p.Init(d))
	t.Cleanup(func() { _ = p.Release() })

	err := Apply(
		BufferWrite{Provider: p, Binding: 0, Data: make([]byte, 96)},
		BufferWrite{Provider: p, Binding: 1, Data: make([]byte, 64)},
		BufferWrite{Provider: p, Binding: 1, Offset: 32, Data: make([]byte, 16)},
	)
	var ve *gpu.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "data", ve.Field)
	assert.ErrorContains(t, err, "frame")
}
