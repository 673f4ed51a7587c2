package hal_backend

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func installNoop(t *testing.T) *Backend {
	t.Helper()
	b := New("noop-"+t.Name(), gputypes.BackendEmpty, WithAPI(noop.API{}))
	gpu.RegisterBackend(b)
	t.Cleanup(func() { gpu.UnregisterBackend(b.ID()) })
	return b
}

func TestBackend_Available(t *testing.T) {
	assert.True(t, New("x", gputypes.BackendEmpty, WithAPI(noop.API{})).Available())
	assert.False(t, New("x", gputypes.BackendEmpty, WithAPI(noop.API{}), WithPlatforms("darwin"), WithGOOS("linux")).Available())
	assert.True(t, New("x", gputypes.BackendEmpty, WithAPI(noop.API{}), WithPlatforms("darwin", "ios"), WithGOOS("ios")).Available())
}

func TestDefaults(t *testing.T) {
	ids := make([]string, 0)
	for _, b := range Defaults() {
		ids = append(ids, b.ID())
	}
	assert.Equal(t, []string{IDVulkan, IDMoltenVK, IDMetal, IDGLES, IDHeadless}, ids)
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		err  error
		kind gpu.ResourceKind
	}{
		{hal.ErrDeviceLost, gpu.ResourceDeviceLost},
		{fmt.Errorf("acquire: %w", hal.ErrSurfaceOutdated), gpu.ResourceSwapchainOutOfDate},
		{hal.ErrSurfaceLost, gpu.ResourceSurfaceLost},
		{hal.ErrDeviceOutOfMemory, gpu.ResourceOutOfMemory},
		{errors.New("driver said no"), gpu.ResourceAllocationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			var re *gpu.ResourceError
			require.ErrorAs(t, translate("op", tt.err), &re)
			assert.Equal(t, tt.kind, re.Kind)
			assert.ErrorIs(t, re, tt.err)
		})
	}
	assert.NoError(t, translate("op", nil))
}

func TestSpirvWords(t *testing.T) {
	words, err := spirvWords(string([]byte{0x03, 0x02, 0x23, 0x07, 1, 0, 0, 0}))
	require.NoError(t, err)
	assert.Equal(t, []uint32{0x07230203, 1}, words)

	_, err = spirvWords("abc")
	assert.Error(t, err)
}

func TestNoop_FrameRoundTrip(t *testing.T) {
	b := installNoop(t)
	ctx := t.Context()

	inst, err := gpu.CreateInstance(b.ID())
	require.NoError(t, err)
	defer inst.Dispose()

	s, err := inst.CreateSurface(gpu.HeadlessTarget{Width: 320, Height: 240})
	require.NoError(t, err)
	a, err := inst.RequestAdapter(ctx, &gpu.RequestAdapterOptions{CompatibleSurface: s})
	require.NoError(t, err)
	assert.Equal(t, "Noop Adapter", a.Info().Name)
	assert.True(t, a.SupportsMultisample(gputypes.TextureFormatBGRA8Unorm, 4))

	d, err := a.RequestDevice(ctx, gpu.DeviceDescriptor{Label: "noop"})
	require.NoError(t, err)
	require.NoError(t, s.Configure(d, gpu.SurfaceConfiguration{
		Format: gputypes.TextureFormatBGRA8Unorm,
		Width:  320,
		Height: 240,
	}))

	vb, err := d.CreateBuffer(gpu.BufferDescriptor{Label: "tri", Size: 36, Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst})
	require.NoError(t, err)
	require.NoError(t, d.Queue().WriteBuffer(vb, 0, make([]byte, 36)))

	mod, err := d.CreateShaderModule(gpu.ShaderModuleDescriptor{Label: "tri", Code: "@vertex fn vs() {}", Language: gpu.ShaderLanguageWGSL})
	require.NoError(t, err)
	layout, err := d.CreatePipelineLayout(gpu.PipelineLayoutDescriptor{Label: "empty"})
	require.NoError(t, err)
	pipeline, err := d.CreateRenderPipeline(gpu.RenderPipelineDescriptor{
		Layout: layout,
		Vertex: gpu.VertexState{
			Module:     mod,
			EntryPoint: "vs",
			Buffers: []gputypes.VertexBufferLayout{{
				ArrayStride: 12,
				StepMode:    gputypes.VertexStepModeVertex,
				Attributes:  []gputypes.VertexAttribute{{Format: gputypes.VertexFormatFloat32x3}},
			}},
		},
		Fragment: &gpu.FragmentState{
			Module:     mod,
			EntryPoint: "fs",
			Targets:    []gputypes.ColorTargetState{{Format: gputypes.TextureFormatBGRA8Unorm, WriteMask: gputypes.ColorWriteMaskAll}},
		},
	})
	require.NoError(t, err)

	for range 3 {
		frame, err := s.AcquireNextImage()
		require.NoError(t, err)
		enc, err := d.CreateCommandEncoder("frame")
		require.NoError(t, err)
		pass, err := enc.BeginRenderPass(gpu.RenderPassDescriptor{
			ColorAttachments: []gpu.ColorAttachment{{
				View:       frame.View(),
				LoadOp:     gputypes.LoadOpClear,
				StoreOp:    gputypes.StoreOpStore,
				ClearColor: gputypes.Color{A: 1},
			}},
		})
		require.NoError(t, err)
		require.NoError(t, pass.SetPipeline(pipeline))
		require.NoError(t, pass.SetVertexBuffer(0, vb, 0))
		require.NoError(t, pass.Draw(3, 1, 0, 0))
		require.NoError(t, pass.End())
		cb, err := enc.Finish()
		require.NoError(t, err)
		require.NoError(t, d.Queue().Submit(cb))
		require.NoError(t, s.PresentImage(frame))
	}
	assert.Equal(t, uint64(3), d.Queue().Submissions())

	nd := d.Native().(*device)
	assert.Empty(t, nd.queue.inflight)
	assert.Empty(t, nd.queue.deferred)

	require.NoError(t, inst.Dispose())
	assert.Zero(t, inst.LiveObjects())
}

// lagQueue completes submissions only when the test says so.
type lagQueue struct {
	*noop.Queue
	completed uint64
}

func (q *lagQueue) PollCompleted() uint64 { return q.completed }

type countingDevice struct {
	*noop.Device
	destroyed int
	freed     int
}

func (d *countingDevice) DestroyBuffer(hal.Buffer) { d.destroyed++ }

func (d *countingDevice) FreeCommandBuffer(hal.CommandBuffer) { d.freed++ }

func TestQueue_DefersDestructionUntilCompleted(t *testing.T) {
	raw := &countingDevice{Device: &noop.Device{}}
	q := &lagQueue{Queue: &noop.Queue{}}
	d := newDevice(hal.OpenDevice{Device: raw, Queue: q})

	record := func() gpu.NativeObject {
		enc, err := d.CreateCommandEncoder("work")
		require.NoError(t, err)
		cb, err := enc.Finish()
		require.NoError(t, err)
		return cb
	}

	buf, err := d.CreateBuffer(&gpu.BufferDescriptor{Size: 16, Usage: gputypes.BufferUsageVertex})
	require.NoError(t, err)
	require.NoError(t, d.queue.Submit([]gpu.NativeObject{record()}))

	require.NoError(t, buf.Release())
	assert.Zero(t, raw.destroyed, "buffer may still be in use by submission 1")
	assert.Zero(t, raw.freed)

	q.completed = 1
	require.NoError(t, d.queue.Submit([]gpu.NativeObject{record()}))
	assert.Equal(t, 1, raw.destroyed)
	assert.Equal(t, 1, raw.freed)

	require.NoError(t, d.Release())
	assert.Equal(t, 2, raw.freed)
	assert.ErrorIs(t, d.Release(), errReleased)
}

func TestCommandBuffer_ReleaseUnsubmittedFrees(t *testing.T) {
	raw := &countingDevice{Device: &noop.Device{}}
	d := newDevice(hal.OpenDevice{Device: raw, Queue: &noop.Queue{}})

	enc, err := d.CreateCommandEncoder("dropped")
	require.NoError(t, err)
	cb, err := enc.Finish()
	require.NoError(t, err)
	require.NoError(t, cb.Release())
	assert.Equal(t, 1, raw.freed)
	assert.ErrorIs(t, cb.Release(), errReleased)
}
