package gpu_test

import (
	"testing"

	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/Carmen-Shannon/materia/engine/gpu/gputest"
	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresentOnlyMostRecentImage(t *testing.T) {
	f := newFixture(t)
	s := f.surface(t, 800, 600)

	a, err := s.AcquireNextImage()
	require.NoError(t, err)
	b, err := s.AcquireNextImage()
	require.NoError(t, err)
	assert.Equal(t, gpu.FrameStale, a.State())
	assert.NotEqual(t, a.ImageIndex, b.ImageIndex)

	var pe *gpu.PresentationError
	require.ErrorAs(t, s.PresentImage(a), &pe)
	assert.Contains(t, pe.Reason, "not the most recently acquired image")

	require.NoError(t, s.PresentImage(b))
	assert.Equal(t, gpu.FramePresented, b.State())
	assert.ErrorAs(t, s.PresentImage(b), &pe)
	assert.Equal(t, "frame already presented", pe.Reason)
}

func TestDiscardedFrameCannotBePresented(t *testing.T) {
	f := newFixture(t)
	s := f.surface(t, 320, 240)
	frame, err := s.AcquireFrame()
	require.NoError(t, err)
	require.NoError(t, s.DiscardImage(frame))

	var pe *gpu.PresentationError
	assert.ErrorAs(t, s.PresentImage(frame), &pe)
	assert.True(t, frame.View().Disposed())
}

func TestAcquireRequiresConfiguration(t *testing.T) {
	f := newFixture(t)
	s, err := f.instance.CreateSurface(gpu.HeadlessTarget{Width: 10, Height: 10})
	require.NoError(t, err)
	_, err = s.AcquireNextImage()
	requireStateError(t, err, "surface is not configured")
}

func TestConfigureValidation(t *testing.T) {
	f := newFixture(t)
	s, err := f.instance.CreateSurface(gpu.HeadlessTarget{Width: 10, Height: 10})
	require.NoError(t, err)

	var ve *gpu.ValidationError
	err = s.Configure(f.device, gpu.SurfaceConfiguration{Format: gputypes.TextureFormatRGBA16Float, Width: 10, Height: 10})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Format", ve.Field)

	err = s.Configure(f.device, gpu.SurfaceConfiguration{Width: 0, Height: 10})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Width", ve.Field)

	require.NoError(t, s.Configure(f.device, gpu.SurfaceConfiguration{Width: 10, Height: 10}))
	cfg, ok := s.Configuration()
	require.True(t, ok)
	assert.Equal(t, gputypes.TextureFormatBGRA8Unorm, cfg.Format)
	assert.Equal(t, gputypes.PresentModeFifo, cfg.PresentMode)
}

func TestRecreateSwapchain(t *testing.T) {
	f := newFixture(t)
	s := f.surface(t, 800, 600)

	var ve *gpu.ValidationError
	require.ErrorAs(t, s.RecreateSwapchain(0, 600), &ve)
	assert.Equal(t, "width", ve.Field)
	require.ErrorAs(t, s.RecreateSwapchain(800, -1), &ve)
	assert.Equal(t, "height", ve.Field)

	w, h := s.Extent()
	assert.Equal(t, [2]int{800, 600}, [2]int{w, h})

	require.NoError(t, s.RecreateSwapchain(1024, 768))
	w, h = s.Extent()
	assert.Equal(t, [2]int{1024, 768}, [2]int{w, h})

	frame, err := s.AcquireNextImage()
	require.NoError(t, err)
	vw, vh := frame.View().Extent()
	assert.Equal(t, [2]uint32{1024, 768}, [2]uint32{vw, vh})
	requireStateError(t, s.RecreateSwapchain(640, 480), "cannot resize while a frame is outstanding")
	require.NoError(t, s.PresentImage(frame))
	require.NoError(t, s.RecreateSwapchain(640, 480))
}

func TestAcquireOutOfDate(t *testing.T) {
	f := newFixture(t)
	s := f.surface(t, 800, 600)
	f.backend.FailNextAcquire(gputest.OutOfDate("Acquire"))

	_, err := s.AcquireNextImage()
	require.ErrorIs(t, err, gpu.ErrSwapchainOutOfDate)
	assert.True(t, gpu.IsRecoverable(err))
	assert.False(t, f.device.Lost())

	require.NoError(t, s.RecreateSwapchain(800, 600))
	frame, err := s.AcquireNextImage()
	require.NoError(t, err)
	require.NoError(t, s.PresentImage(frame))
}

func TestStaleSwapchainViewRejected(t *testing.T) {
	f := newFixture(t)
	s := f.surface(t, 64, 64)
	p := f.pipeline(t, gputypes.TextureFormatBGRA8Unorm)

	old, err := s.AcquireNextImage()
	require.NoError(t, err)
	enc, err := f.device.CreateCommandEncoder("old")
	require.NoError(t, err)
	pass, err := enc.BeginRenderPass(clearPass(old.View()))
	require.NoError(t, err)
	require.NoError(t, pass.SetPipeline(p))
	require.NoError(t, pass.Draw(3, 1, 0, 0))
	require.NoError(t, pass.End())
	cb, err := enc.Finish()
	require.NoError(t, err)
	assert.Same(t, old, cb.Frame())

	current, err := s.AcquireNextImage()
	require.NoError(t, err)

	var pe *gpu.PresentationError
	require.ErrorAs(t, f.device.Queue().Submit(cb), &pe)
	assert.False(t, cb.Submitted())

	enc2, err := f.device.CreateCommandEncoder("stale view")
	require.NoError(t, err)
	_, err = enc2.BeginRenderPass(clearPass(old.View()))
	assert.ErrorAs(t, err, &pe)
	require.NoError(t, s.PresentImage(current))
}

func TestDeviceDisposeUnconfiguresSurface(t *testing.T) {
	f := newFixture(t)
	s := f.surface(t, 64, 64)
	frame, err := s.AcquireNextImage()
	require.NoError(t, err)

	require.NoError(t, f.device.Dispose())
	_, ok := s.Configuration()
	assert.False(t, ok)
	assert.Equal(t, gpu.FrameStale, frame.State())

	// Instance, adapter and surface remain.
	assert.Equal(t, 3, f.backend.Live(), f.backend.LiveKinds())
}
