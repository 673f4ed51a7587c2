package negotiator

import (
	"context"
	"testing"
	"time"

	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/Carmen-Shannon/materia/engine/gpu/gputest"
	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullReport(backend string) DeviceCapabilityReport {
	flags := make(map[Feature]FeatureStatus)
	for _, f := range AllFeatures() {
		flags[f] = StatusSupported
	}
	flags[FeatureRayTracing] = StatusMissing
	return DeviceCapabilityReport{
		Backend:      backend,
		FeatureFlags: flags,
		Limits:       CapabilityLimits{MaxTextureSize: 8192, MaxVertexAttributes: 16},
	}
}

func linuxPolicy() Policy {
	return Policy{Platform: PlatformLinux, Floor: DefaultFeatureFloor()}
}

func profile(id string, priority int, features ...Feature) RenderingBackendProfile {
	return RenderingBackendProfile{
		BackendID:        id,
		RequiredFeatures: append([]Feature{FeatureRender}, features...),
		FallbackPriority: priority,
		PlatformTargets:  []Platform{PlatformLinux},
	}
}

func TestSelectBackendPriorityOrder(t *testing.T) {
	candidates := []RenderingBackendProfile{profile("gles", 4), profile("vulkan", 1), profile("webgpu", 0)}

	sel, err := SelectBackend(fullReport("any"), candidates, linuxPolicy())
	require.NoError(t, err)
	assert.Equal(t, "webgpu", sel.Profile.BackendID)
	assert.Empty(t, sel.Rejected)
	assert.Empty(t, sel.EmulatedFeatures)
}

func TestSelectBackendMissingFeatureFallsBack(t *testing.T) {
	candidates := []RenderingBackendProfile{
		profile("rt", 0, FeatureRayTracing),
		profile("plain", 1),
	}

	sel, err := SelectBackend(fullReport("any"), candidates, linuxPolicy())
	require.NoError(t, err)
	assert.Equal(t, "plain", sel.Profile.BackendID)
	require.Len(t, sel.Rejected, 1)
	assert.Equal(t, "rt", sel.Rejected[0].BackendID)
	assert.Equal(t, []string{"RAY_TRACING"}, sel.Rejected[0].Missing)
}

func TestSelectBackendNoCandidateQualifies(t *testing.T) {
	b := gputest.Install(t, gputest.WithID(t.Name()))
	candidates := []RenderingBackendProfile{
		profile("vulkan", 1, FeatureRayTracing),
		profile("metal", 2, FeatureRayTracing),
	}

	_, err := SelectBackend(fullReport("any"), candidates, linuxPolicy())
	require.Error(t, err)
	var capErr *gpu.CapabilityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, "linux", capErr.Platform)
	require.Len(t, capErr.Rejections, 2)
	assert.Equal(t, "vulkan", capErr.Rejections[0].BackendID)
	assert.Equal(t, "metal", capErr.Rejections[1].BackendID)
	assert.Equal(t, []string{"RAY_TRACING"}, capErr.MissingFeatures())
	assert.Zero(t, b.Created())
}

func TestSelectBackendAcceptsEmulated(t *testing.T) {
	report := fullReport("any")
	report.FeatureFlags[FeatureCompute] = StatusEmulated

	sel, err := SelectBackend(report, []RenderingBackendProfile{profile("webgpu", 0, FeatureCompute)}, linuxPolicy())
	require.NoError(t, err)
	assert.Equal(t, "webgpu", sel.Profile.BackendID)
	assert.Equal(t, []Feature{FeatureCompute}, sel.EmulatedFeatures)
}

func TestSelectBackendFeatureFloor(t *testing.T) {
	report := fullReport("any")
	report.Limits = CapabilityLimits{MaxTextureSize: 1024, MaxVertexAttributes: 8}

	_, err := SelectBackend(report, []RenderingBackendProfile{profile("webgpu", 0)}, linuxPolicy())
	var capErr *gpu.CapabilityError
	require.ErrorAs(t, err, &capErr)
	require.Len(t, capErr.Rejections, 1)
	r := capErr.Rejections[0]
	assert.Empty(t, r.Missing)
	assert.Contains(t, r.Reason, "max texture size 1024 below floor 2048")
	assert.Contains(t, r.Reason, "max vertex attributes 8 below floor 16")
}

func TestSelectBackendPlatformNotTargeted(t *testing.T) {
	metal := profile("metal", 0)
	metal.PlatformTargets = []Platform{PlatformDarwin}

	sel, err := SelectBackend(fullReport("any"), []RenderingBackendProfile{metal, profile("vulkan", 1)}, linuxPolicy())
	require.NoError(t, err)
	assert.Equal(t, "vulkan", sel.Profile.BackendID)
	require.Len(t, sel.Rejected, 1)
	assert.Equal(t, "platform linux not targeted", sel.Rejected[0].Reason)
}

func TestSelectBackendPreferred(t *testing.T) {
	candidates := []RenderingBackendProfile{profile("webgpu", 0), profile("vulkan", 1)}

	policy := linuxPolicy()
	policy.PreferredBackend = "vulkan"
	sel, err := SelectBackend(fullReport("any"), candidates, policy)
	require.NoError(t, err)
	assert.Equal(t, "vulkan", sel.Profile.BackendID)

	// a device hint does not reorder the priorities
	report := fullReport("any")
	report.PreferredBackend = "vulkan"
	sel, err = SelectBackend(report, candidates, linuxPolicy())
	require.NoError(t, err)
	assert.Equal(t, "webgpu", sel.Profile.BackendID)

	n := NewNegotiator(WithPlatform(PlatformLinux), WithProfiles(candidates...), WithPreferredBackend("vulkan"))
	sel, err = n.SelectBackend(report)
	require.NoError(t, err)
	assert.Equal(t, "vulkan", sel.Profile.BackendID)
}

func TestSelectBackendFromReportsMissingReport(t *testing.T) {
	candidates := []RenderingBackendProfile{profile("webgpu", 0), profile("vulkan", 1)}
	reports := map[string]DeviceCapabilityReport{"vulkan": fullReport("vulkan")}

	sel, err := SelectBackendFromReports(reports, candidates, linuxPolicy())
	require.NoError(t, err)
	assert.Equal(t, "vulkan", sel.Profile.BackendID)
	assert.Equal(t, "vulkan", sel.Report.Backend)
	require.Len(t, sel.Rejected, 1)
	assert.Equal(t, "no capability report", sel.Rejected[0].Reason)
}

func TestFeatureStatus(t *testing.T) {
	assert.False(t, StatusMissing.Satisfies())
	assert.True(t, StatusEmulated.Satisfies())
	assert.True(t, StatusSupported.Satisfies())
	assert.Equal(t, "EMULATED", StatusEmulated.String())
	assert.Equal(t, StatusMissing, DeviceCapabilityReport{}.Status(FeatureRender))
}

func TestPlatformFor(t *testing.T) {
	assert.Equal(t, PlatformWeb, platformFor("js"))
	assert.Equal(t, PlatformWeb, platformFor("wasip1"))
	assert.Equal(t, PlatformDarwin, platformFor("darwin"))
	assert.Equal(t, PlatformLinux, platformFor("linux"))
}

func TestDefaultProfilesRequireRender(t *testing.T) {
	for _, p := range DefaultProfiles() {
		assert.Contains(t, p.RequiredFeatures, FeatureRender, p.BackendID)
	}
}

func TestDetectCapabilities(t *testing.T) {
	b := gputest.Install(t, gputest.WithID(t.Name()))
	n := NewNegotiator(WithPlatform(PlatformLinux))

	report, err := n.DetectCapabilities(context.Background(), DetectionRequest{BackendID: b.ID()})
	require.NoError(t, err)
	assert.Equal(t, b.ID(), report.Backend)
	assert.Equal(t, "0000:1234", report.DeviceID)
	assert.Equal(t, "1.0.0", report.DriverVersion)
	assert.Equal(t, uint32(8192), report.Limits.MaxTextureSize)
	assert.Equal(t, uint32(16), report.Limits.MaxVertexAttributes)
	assert.Equal(t, StatusSupported, report.Status(FeatureRender))
	assert.Equal(t, StatusSupported, report.Status(FeatureCompute))
	assert.Equal(t, StatusSupported, report.Status(FeatureMultisampling))
	assert.Equal(t, StatusMissing, report.Status(FeatureRayTracing))
	assert.Equal(t, StatusMissing, report.Status(FeatureTextureCompressionBC))
	assert.Equal(t, StatusMissing, report.Status(FeaturePresentation))
	assert.Zero(t, b.Live(), "probe leaked %v", b.LiveKinds())
}

func TestDetectCapabilitiesWithTarget(t *testing.T) {
	b := gputest.Install(t,
		gputest.WithID(t.Name()),
		gputest.WithFeatures(gputypes.Features(gputypes.FeatureTextureCompressionBC)),
	)
	n := NewNegotiator(WithPlatform(PlatformLinux))

	report, err := n.DetectCapabilities(context.Background(), DetectionRequest{
		BackendID: b.ID(),
		Target:    gpu.HeadlessTarget{Width: 64, Height: 64},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSupported, report.Status(FeaturePresentation))
	assert.Equal(t, StatusSupported, report.Status(FeatureTextureCompressionBC))
	assert.Zero(t, b.Live())
}

func TestDetectCapabilitiesSoftwareAdapter(t *testing.T) {
	b := gputest.Install(t,
		gputest.WithID(t.Name()),
		gputest.WithAdapterInfo(gpu.AdapterInfo{Name: "llvmpipe", DeviceType: gputypes.DeviceTypeCPU}),
	)
	n := NewNegotiator(WithPlatform(PlatformLinux))

	report, err := n.DetectCapabilities(context.Background(), DetectionRequest{BackendID: b.ID()})
	require.NoError(t, err)
	assert.Equal(t, StatusEmulated, report.Status(FeatureRender))
	assert.Equal(t, StatusEmulated, report.Status(FeatureCompute))
	assert.Contains(t, report.Limitations, "software adapter")

	sel, err := n.SelectBackend(report)
	require.NoError(t, err)
	assert.Equal(t, "webgpu", sel.Profile.BackendID)
	assert.Equal(t, []Feature{FeatureRender}, sel.EmulatedFeatures)
}

func TestDetectAllJoinsFailures(t *testing.T) {
	b := gputest.Install(t, gputest.WithID(t.Name()))
	n := NewNegotiator(WithPlatform(PlatformLinux), WithWorkerCount(2))

	reports, err := n.DetectAll(context.Background(), []string{b.ID(), "not-registered"})
	require.Error(t, err)
	assert.ErrorIs(t, err, gpu.ErrBackendNotRegistered)
	require.Contains(t, reports, b.ID())
	assert.NotContains(t, reports, "not-registered")
	assert.Zero(t, b.Live())
}

func TestInitializePlatform(t *testing.T) {
	b := gputest.Install(t, gputest.WithID(t.Name()))
	n := NewNegotiator(WithPlatform(PlatformLinux))

	rsd, err := n.InitializePlatform(context.Background(), b.ID(), SurfaceConfig{
		Target: gpu.HeadlessTarget{Width: 800, Height: 600},
		Format: gputypes.TextureFormatBGRA8Unorm,
	})
	require.NoError(t, err)
	assert.NotNil(t, rsd.Instance)
	assert.NotNil(t, rsd.Surface)
	assert.NotNil(t, rsd.Adapter)
	assert.NotNil(t, rsd.Device)
	assert.Equal(t, 800, rsd.Config.Width)
	assert.Equal(t, 600, rsd.Config.Height)
	assert.Equal(t, gputypes.TextureFormatBGRA8Unorm, rsd.Config.Format)
	assert.Nil(t, rsd.Selection)

	require.NoError(t, rsd.Dispose())
	require.NoError(t, rsd.Dispose())
	assert.Zero(t, b.Live(), "leaked %v", b.LiveKinds())
	assert.Zero(t, b.DoubleReleases())
}

func TestInitializePlatformFailureTearsDown(t *testing.T) {
	b := gputest.Install(t, gputest.WithID(t.Name()))
	n := NewNegotiator(WithPlatform(PlatformLinux))

	// surface is the first counted creation, the device the second
	b.FailCreateAt(2)
	rsd, err := n.InitializePlatform(context.Background(), b.ID(), SurfaceConfig{Width: 320, Height: 240})
	require.Error(t, err)
	assert.Nil(t, rsd)
	assert.ErrorIs(t, err, gputest.ErrInjected)
	var re *gpu.ResourceError
	assert.ErrorAs(t, err, &re)
	assert.Zero(t, b.Live(), "leaked %v", b.LiveKinds())
}

func TestInitializePlatformCancelled(t *testing.T) {
	b := gputest.Install(t, gputest.WithID(t.Name()))
	n := NewNegotiator(WithPlatform(PlatformLinux))
	unblock := b.BlockOpenDevice()
	defer unblock()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := n.InitializePlatform(ctx, b.ID(), SurfaceConfig{Width: 320, Height: 240})
		errc <- err
	}()

	// instance, surface and adapter exist once the device request is pending
	require.Eventually(t, func() bool { return b.Live() == 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("InitializePlatform did not return after cancellation")
	}
	assert.Zero(t, b.Live(), "leaked %v", b.LiveKinds())
}

func TestAcquireDeviceDeliversOnce(t *testing.T) {
	b := gputest.Install(t, gputest.WithID(t.Name()))
	inst, err := gpu.CreateInstance(b.ID())
	require.NoError(t, err)
	defer inst.Dispose()
	a, err := inst.RequestAdapter(context.Background(), nil)
	require.NoError(t, err)

	results := AcquireDevice(context.Background(), a, gpu.DeviceDescriptor{Label: "async"})
	res, ok := <-results
	require.True(t, ok)
	require.NoError(t, res.Err)
	assert.NotNil(t, res.Device)
	_, ok = <-results
	assert.False(t, ok)
}

func TestNegotiate(t *testing.T) {
	small := gputypes.DefaultLimits()
	small.MaxTextureDimension2D = 1024
	weak := gputest.Install(t, gputest.WithID(t.Name()+"-weak"), gputest.WithLimits(small))
	good := gputest.Install(t, gputest.WithID(t.Name()+"-good"))

	n := NewNegotiator(
		WithPlatform(PlatformLinux),
		WithProfiles(profile(weak.ID(), 0), profile(good.ID(), 1)),
	)
	rsd, err := n.Negotiate(context.Background(), SurfaceConfig{Width: 800, Height: 600})
	require.NoError(t, err)
	defer rsd.Dispose()

	require.NotNil(t, rsd.Selection)
	assert.Equal(t, good.ID(), rsd.Selection.Profile.BackendID)
	require.Len(t, rsd.Selection.Rejected, 1)
	assert.Equal(t, weak.ID(), rsd.Selection.Rejected[0].BackendID)
	assert.Contains(t, rsd.Selection.Rejected[0].Reason, "max texture size 1024")
	assert.Equal(t, good.ID(), rsd.Instance.Backend())
	assert.Zero(t, weak.Live())
}

func TestNegotiateNoBackendLeavesNothingOpen(t *testing.T) {
	a := gputest.Install(t, gputest.WithID(t.Name()+"-a"))
	b := gputest.Install(t, gputest.WithID(t.Name()+"-b"))

	n := NewNegotiator(
		WithPlatform(PlatformLinux),
		WithProfiles(profile(a.ID(), 0, FeatureRayTracing), profile(b.ID(), 1, FeatureRayTracing)),
	)
	rsd, err := n.Negotiate(context.Background(), SurfaceConfig{Width: 800, Height: 600})
	assert.Nil(t, rsd)
	var capErr *gpu.CapabilityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, []string{"RAY_TRACING"}, capErr.MissingFeatures())
	assert.Zero(t, a.Live())
	assert.Zero(t, b.Live())
}

func TestNegotiateProbesPresentation(t *testing.T) {
	b := gputest.Install(t, gputest.WithID(t.Name()))
	n := NewNegotiator(
		WithPlatform(PlatformLinux),
		WithProfiles(profile(b.ID(), 0, FeaturePresentation)),
	)

	rsd, err := n.Negotiate(context.Background(), SurfaceConfig{Target: gpu.HeadlessTarget{Width: 320, Height: 240}})
	require.NoError(t, err)
	defer rsd.Dispose()
	require.NotNil(t, rsd.Selection)
	assert.Equal(t, StatusSupported, rsd.Selection.Report.Status(FeaturePresentation))

	// without a target the probe falls back to a headless surface of the configured size
	rsd2, err := n.Negotiate(context.Background(), SurfaceConfig{Width: 320, Height: 240})
	require.NoError(t, err)
	require.NoError(t, rsd2.Dispose())
}

type windowTarget struct{}

func (windowTarget) NativeHandles() (uintptr, uintptr) { return 1, 2 }
func (windowTarget) FramebufferSize() (int, int)       { return 640, 480 }

func TestNegotiateSkipsOffscreenForWindow(t *testing.T) {
	offscreen := gputest.Install(t, gputest.WithID(t.Name()+"-offscreen"))
	onscreen := gputest.Install(t, gputest.WithID(t.Name()+"-onscreen"))
	headless := profile(offscreen.ID(), 0)
	headless.Offscreen = true
	n := NewNegotiator(WithPlatform(PlatformLinux), WithProfiles(headless, profile(onscreen.ID(), 1)))

	rsd, err := n.Negotiate(context.Background(), SurfaceConfig{Target: windowTarget{}})
	require.NoError(t, err)
	require.NotNil(t, rsd.Selection)
	assert.Equal(t, onscreen.ID(), rsd.Selection.Profile.BackendID)
	require.Len(t, rsd.Selection.Rejected, 1)
	assert.Equal(t, "offscreen backend cannot present to a window", rsd.Selection.Rejected[0].Reason)
	assert.Zero(t, offscreen.Created(), "offscreen backend must not be probed")
	require.NoError(t, rsd.Dispose())

	rsd, err = n.Negotiate(context.Background(), SurfaceConfig{Target: gpu.HeadlessTarget{Width: 64, Height: 64}})
	require.NoError(t, err)
	defer rsd.Dispose()
	assert.Equal(t, offscreen.ID(), rsd.Selection.Profile.BackendID)
}

func TestDefaultHeadlessProfileIsOffscreen(t *testing.T) {
	for _, p := range DefaultProfiles() {
		assert.Equal(t, p.BackendID == "headless", p.Offscreen, p.BackendID)
	}
}
