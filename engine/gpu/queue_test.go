package gpu_test

import (
	"testing"

	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/Carmen-Shannon/materia/engine/gpu/gputest"
	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) recorded(t *testing.T, label string) *gpu.CommandBuffer {
	t.Helper()
	enc, err := f.device.CreateCommandEncoder(label)
	require.NoError(t, err)
	cb, err := enc.Finish()
	require.NoError(t, err)
	return cb
}

func TestSubmitOrderAndSubmitOnce(t *testing.T) {
	f := newFixture(t)
	a, b, c := f.recorded(t, "a"), f.recorded(t, "b"), f.recorded(t, "c")
	q := f.device.Queue()

	require.NoError(t, q.Submit(a, b))
	require.NoError(t, q.Submit(c))
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, f.backend.Submissions())
	assert.Equal(t, uint64(2), q.Submissions())
	assert.True(t, a.Submitted())

	requireStateError(t, q.Submit(a), "command buffer already submitted")

	d := f.recorded(t, "d")
	requireStateError(t, q.Submit(d, d), "command buffer already submitted")
	assert.False(t, d.Submitted())
	assert.Len(t, f.backend.Submissions(), 2)
}

func TestSubmitRecordsCommands(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t, gputypes.TextureFormatRGBA8Unorm)
	enc, err := f.device.CreateCommandEncoder("triangle")
	require.NoError(t, err)
	pass, err := enc.BeginRenderPass(clearPass(f.colorTarget(t)))
	require.NoError(t, err)
	require.NoError(t, pass.SetPipeline(p))
	require.NoError(t, pass.Draw(3, 1, 0, 0))
	require.NoError(t, pass.End())
	cb, err := enc.Finish()
	require.NoError(t, err)
	require.NoError(t, f.device.Queue().Submit(cb))

	assert.Equal(t, []string{
		"begin render pass colors=1 depth=false",
		"set pipeline",
		"draw 3 1",
		"end pass",
	}, f.backend.Commands())
	assert.Zero(t, f.backend.DoubleReleases())
}

func TestDeviceLostOnSubmit(t *testing.T) {
	f := newFixture(t)
	cb := f.recorded(t, "doomed")
	f.backend.FailNextSubmit(gputest.DeviceLost("Submit"))

	err := f.device.Queue().Submit(cb)
	require.ErrorIs(t, err, gpu.ErrDeviceLost)
	assert.True(t, gpu.IsRecoverable(err))
	assert.True(t, f.device.Lost())

	_, err = f.device.CreateBuffer(gpu.BufferDescriptor{Size: 4, Usage: gputypes.BufferUsageVertex})
	var re *gpu.ResourceError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, gpu.ResourceDeviceLost, re.Kind)

	require.NoError(t, f.instance.Dispose())
	assert.Zero(t, f.backend.Live(), f.backend.LiveKinds())
}

func TestWriteTextureValidation(t *testing.T) {
	f := newFixture(t)
	tex, err := f.device.CreateTexture(gpu.TextureDescriptor{
		Size:   gputypes.Extent3D{Width: 4, Height: 4},
		Format: gputypes.TextureFormatRGBA8Unorm,
		Usage:  gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	require.NoError(t, err)
	q := f.device.Queue()
	layout := gpu.TextureDataLayout{BytesPerRow: 16}

	require.NoError(t, q.WriteTexture(gpu.TextureCopy{Texture: tex}, make([]byte, 64), layout, gputypes.Extent3D{Width: 4, Height: 4}))

	var ve *gpu.ValidationError
	require.ErrorAs(t, q.WriteTexture(gpu.TextureCopy{Texture: tex}, make([]byte, 32), layout, gputypes.Extent3D{Width: 4, Height: 4}), &ve)
	assert.Equal(t, "data", ve.Field)
	require.ErrorAs(t, q.WriteTexture(gpu.TextureCopy{Texture: tex, Origin: gputypes.Origin3D{X: 2}}, make([]byte, 64), layout, gputypes.Extent3D{Width: 4, Height: 4}), &ve)
	assert.Equal(t, "size", ve.Field)
	require.ErrorAs(t, q.WriteTexture(gpu.TextureCopy{Texture: tex, MipLevel: 1}, make([]byte, 64), layout, gputypes.Extent3D{Width: 1, Height: 1}), &ve)
	assert.Equal(t, "dst.MipLevel", ve.Field)
}
