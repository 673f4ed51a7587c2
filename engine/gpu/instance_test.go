package gpu_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/Carmen-Shannon/materia/engine/gpu/gputest"
	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateInstanceUnknownBackend(t *testing.T) {
	_, err := gpu.CreateInstance("does-not-exist")
	assert.ErrorIs(t, err, gpu.ErrBackendNotRegistered)
}

func TestCreateInstanceUnavailableBackend(t *testing.T) {
	b := gputest.Install(t, gputest.WithID(t.Name()), gputest.WithUnavailable())
	_, err := gpu.CreateInstance(b.ID())
	assert.ErrorIs(t, err, gpu.ErrBackendUnavailable)
	assert.Zero(t, b.Created())
}

func TestRequestAdapterReleasesUnchosen(t *testing.T) {
	b := gputest.Install(t, gputest.WithID(t.Name()), gputest.WithAdapters(3))
	inst, err := gpu.CreateInstance(b.ID())
	require.NoError(t, err)
	defer inst.Dispose()

	a, err := inst.RequestAdapter(context.Background(), &gpu.RequestAdapterOptions{PowerPreference: gputypes.PowerPreferenceHighPerformance})
	require.NoError(t, err)
	assert.Equal(t, "gputest adapter", a.Info().Name)
	assert.Equal(t, 1, inst.LiveObjects())
	assert.Equal(t, 2, b.Live())
}

func TestRequestAdapterCancelled(t *testing.T) {
	b := gputest.Install(t, gputest.WithID(t.Name()))
	inst, err := gpu.CreateInstance(b.ID())
	require.NoError(t, err)
	defer inst.Dispose()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = inst.RequestAdapter(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, b.Live())
}

func TestRequestDeviceCancelledLeaksNothing(t *testing.T) {
	b := gputest.Install(t, gputest.WithID(t.Name()))
	inst, err := gpu.CreateInstance(b.ID())
	require.NoError(t, err)
	defer inst.Dispose()
	a, err := inst.RequestAdapter(context.Background(), nil)
	require.NoError(t, err)

	unblock := b.BlockOpenDevice()
	defer unblock()
	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := a.RequestDevice(ctx, gpu.DeviceDescriptor{Label: "slow"})
		errs <- err
	}()
	cancel()

	assert.ErrorIs(t, <-errs, context.Canceled)
	assert.Equal(t, 2, b.Live())
}

func TestRequestDeviceValidatesFeaturesAndLimits(t *testing.T) {
	f := newFixture(t)
	var ve *gpu.ValidationError

	_, err := f.adapter.RequestDevice(context.Background(), gpu.DeviceDescriptor{
		RequiredFeatures: gputypes.Features(gputypes.FeatureTimestampQuery),
	})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "RequiredFeatures", ve.Field)

	limits := gputypes.DefaultLimits()
	limits.MaxTextureDimension2D *= 4
	_, err = f.adapter.RequestDevice(context.Background(), gpu.DeviceDescriptor{RequiredLimits: &limits})
	assert.ErrorAs(t, err, &ve)
}

func TestInstanceDisposeReleasesEverything(t *testing.T) {
	f := newFixture(t)
	f.surface(t, 32, 32)
	f.buffer(t, 64, gputypes.BufferUsageUniform)
	f.colorTarget(t)
	f.pipeline(t, gputypes.TextureFormatRGBA8Unorm)

	require.NoError(t, f.instance.Dispose())
	assert.Zero(t, f.backend.Live(), f.backend.LiveKinds())
	assert.Zero(t, f.backend.DoubleReleases())
	assert.True(t, f.device.Disposed())
	assert.True(t, f.adapter.Disposed())
	assert.NoError(t, f.instance.Dispose())
}

func TestDisposeAll(t *testing.T) {
	f := newFixture(t)
	second, err := gpu.CreateInstance(f.backend.ID())
	require.NoError(t, err)

	require.NoError(t, gpu.DisposeAll())
	assert.True(t, f.instance.Disposed())
	assert.True(t, second.Disposed())
	assert.Zero(t, f.backend.Live())
}

func TestDisposeContinuesPastFailures(t *testing.T) {
	f := newFixture(t)
	f.buffer(t, 64, gputypes.BufferUsageUniform)
	f.buffer(t, 64, gputypes.BufferUsageUniform)
	f.backend.FailRelease("buffer", gputest.ErrInjected)

	err := f.device.Dispose()
	require.ErrorIs(t, err, gputest.ErrInjected)
	assert.Equal(t, 2, f.backend.Live(), "only instance and adapter remain")
}

func TestCapabilityErrorMissingFeatures(t *testing.T) {
	err := &gpu.CapabilityError{
		Platform: "linux",
		Rejections: []gpu.Rejection{
			{BackendID: "vulkan", Missing: []string{"RayTracing", "MeshShaders"}},
			{BackendID: "gles", Missing: []string{"RayTracing", "Compute"}},
			{BackendID: "headless", Reason: "not available"},
		},
	}
	assert.Equal(t, []string{"RayTracing", "MeshShaders", "Compute"}, err.MissingFeatures())
	assert.Contains(t, err.Error(), "linux")
	assert.False(t, gpu.IsRecoverable(err))
	assert.False(t, errors.Is(err, gpu.ErrDeviceLost))
}
