package gpu_test

import (
	"testing"

	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireStateError(t *testing.T, err error, reason string) {
	t.Helper()
	var se *gpu.StateError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, reason, se.Reason)
}

func TestEncoderStateMachine(t *testing.T) {
	f := newFixture(t)
	view := f.colorTarget(t)
	enc, err := f.device.CreateCommandEncoder("frame")
	require.NoError(t, err)
	assert.Equal(t, gpu.EncoderIdle, enc.State())

	pass, err := enc.BeginRenderPass(clearPass(view))
	require.NoError(t, err)
	assert.Equal(t, gpu.EncoderRenderPassActive, enc.State())

	_, err = enc.BeginRenderPass(clearPass(view))
	requireStateError(t, err, "render pass already active")
	_, err = enc.BeginComputePass("compute")
	requireStateError(t, err, "render pass already active")
	_, err = enc.Finish()
	requireStateError(t, err, "render pass already active")

	require.NoError(t, pass.End())
	assert.Equal(t, gpu.EncoderIdle, enc.State())
	requireStateError(t, pass.Draw(3, 1, 0, 0), "render pass has ended")
	requireStateError(t, pass.End(), "render pass has ended")

	cb, err := enc.Finish()
	require.NoError(t, err)
	assert.Equal(t, gpu.EncoderFinished, enc.State())
	assert.False(t, cb.Submitted())

	_, err = enc.Finish()
	requireStateError(t, err, "encoder already finished")
	_, err = enc.BeginRenderPass(clearPass(view))
	requireStateError(t, err, "encoder already finished")
	assert.NoError(t, enc.Dispose())
}

func TestComputePassExclusive(t *testing.T) {
	f := newFixture(t)
	enc, err := f.device.CreateCommandEncoder("compute")
	require.NoError(t, err)
	cp, err := enc.BeginComputePass("cull")
	require.NoError(t, err)

	_, err = enc.BeginRenderPass(clearPass(f.colorTarget(t)))
	requireStateError(t, err, "compute pass already active")
	requireStateError(t, cp.DispatchWorkgroups(1, 1, 1), "no pipeline bound")
	require.NoError(t, cp.End())
	_, err = enc.Finish()
	require.NoError(t, err)
}

func TestDrawRequiresPipeline(t *testing.T) {
	f := newFixture(t)
	enc, err := f.device.CreateCommandEncoder("draw")
	require.NoError(t, err)
	pass, err := enc.BeginRenderPass(clearPass(f.colorTarget(t)))
	require.NoError(t, err)

	requireStateError(t, pass.Draw(3, 1, 0, 0), "no pipeline bound")
	requireStateError(t, pass.DrawIndexed(3, 1, 0, 0, 0), "no pipeline bound")

	require.NoError(t, pass.SetPipeline(f.pipeline(t, gputypes.TextureFormatRGBA8Unorm)))
	requireStateError(t, pass.DrawIndexed(3, 1, 0, 0, 0), "no index buffer bound")
	require.NoError(t, pass.Draw(3, 1, 0, 0))
	assert.Equal(t, gpu.PassStats{DrawCalls: 1, Triangles: 1, PipelineSwitches: 1}, pass.Stats())
}

func TestPipelineMustMatchPassTargets(t *testing.T) {
	f := newFixture(t)
	enc, err := f.device.CreateCommandEncoder("mismatch")
	require.NoError(t, err)
	pass, err := enc.BeginRenderPass(clearPass(f.colorTarget(t)))
	require.NoError(t, err)

	err = pass.SetPipeline(f.pipeline(t, gputypes.TextureFormatBGRA8Unorm))
	var ve *gpu.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestIndexedDrawStats(t *testing.T) {
	f := newFixture(t)
	vertices := f.buffer(t, 12*4, gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
	indices := f.buffer(t, 12, gputypes.BufferUsageIndex|gputypes.BufferUsageCopyDst)
	p := f.pipeline(t, gputypes.TextureFormatRGBA8Unorm)

	enc, err := f.device.CreateCommandEncoder("indexed")
	require.NoError(t, err)
	pass, err := enc.BeginRenderPass(clearPass(f.colorTarget(t)))
	require.NoError(t, err)
	require.NoError(t, pass.SetPipeline(p))
	require.NoError(t, pass.SetPipeline(p))
	require.NoError(t, pass.SetVertexBuffer(0, vertices, 0))
	require.NoError(t, pass.SetIndexBuffer(indices, gputypes.IndexFormatUint16, 0))

	require.NoError(t, pass.DrawIndexed(6, 2, 0, 0, 0))
	var ve *gpu.ValidationError
	assert.ErrorAs(t, pass.DrawIndexed(7, 1, 0, 0, 0), &ve)
	assert.ErrorAs(t, pass.SetVertexBuffer(0, indices, 0), &ve)

	require.NoError(t, pass.End())
	cb, err := enc.Finish()
	require.NoError(t, err)
	assert.Equal(t, gpu.PassStats{DrawCalls: 1, Triangles: 4, PipelineSwitches: 1}, cb.Stats())
}

func TestAbandonedEncoderReleasesNative(t *testing.T) {
	f := newFixture(t)
	live := f.backend.Live()
	enc, err := f.device.CreateCommandEncoder("abandoned")
	require.NoError(t, err)
	_, err = enc.BeginRenderPass(clearPass(f.colorTarget(t)))
	require.NoError(t, err)

	require.NoError(t, enc.Dispose())
	// The color target texture and view remain.
	assert.Equal(t, live+2, f.backend.Live())
	assert.Zero(t, f.backend.DoubleReleases())
}
