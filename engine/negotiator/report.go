package negotiator

import (
	"context"
	"fmt"
	"runtime"

	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/Carmen-Shannon/materia/engine/logger"
	"github.com/gogpu/gputypes"
)

// CapabilityLimits are the limits checked against the feature floor.
type CapabilityLimits struct {
	MaxTextureSize      uint32
	MaxVertexAttributes uint32
}

// DeviceCapabilityReport describes what one backend's adapter can do on this machine.
type DeviceCapabilityReport struct {
	Backend          string
	DeviceID         string
	DriverVersion    string
	OSBuild          string
	FeatureFlags     map[Feature]FeatureStatus
	PreferredBackend string
	Limitations      []string
	Limits           CapabilityLimits
	Adapter          gpu.AdapterInfo
}

// Status returns the status of f, MISSING when the report does not mention it.
func (r DeviceCapabilityReport) Status(f Feature) FeatureStatus {
	return r.FeatureFlags[f]
}

// DetectionRequest selects what DetectCapabilities probes.
type DetectionRequest struct {
	BackendID string
	// Target, when set, is used to probe presentation support.
	Target           gpu.SurfaceTarget
	PowerPreference  gputypes.PowerPreference
	PreferredBackend string
}

// adapterFeatures maps gputypes features onto the negotiator vocabulary.
var adapterFeatures = map[Feature]gputypes.Feature{
	FeatureDepth32FStencil8:       gputypes.FeatureDepth32FloatStencil8,
	FeatureTextureCompressionBC:   gputypes.FeatureTextureCompressionBC,
	FeatureTextureCompressionETC2: gputypes.FeatureTextureCompressionETC2,
	FeatureTextureCompressionASTC: gputypes.FeatureTextureCompressionASTC,
	FeatureTimestampQuery:         gputypes.FeatureTimestampQuery,
	FeatureIndirectFirstInstance:  gputypes.FeatureIndirectFirstInstance,
	FeatureShaderF16:              gputypes.FeatureShaderF16,
}

func (n *negotiator) DetectCapabilities(ctx context.Context, req DetectionRequest) (DeviceCapabilityReport, error) {
	inst, err := gpu.CreateInstance(req.BackendID, gpu.WithLabel("capability probe"), gpu.WithValidation(n.validation))
	if err != nil {
		return DeviceCapabilityReport{}, fmt.Errorf("negotiator: detect %q: %w", req.BackendID, err)
	}
	defer func() {
		if err := inst.Dispose(); err != nil {
			logger.Logger().Warn("negotiator: probe teardown failed", "backend", req.BackendID, "error", err)
		}
	}()

	var surface *gpu.Surface
	var limitations []string
	if req.Target != nil {
		surface, err = inst.CreateSurface(req.Target)
		if err != nil {
			limitations = append(limitations, fmt.Sprintf("surface creation failed: %v", err))
		}
	}

	power := req.PowerPreference
	if power == gputypes.PowerPreferenceNone {
		power = n.power
	}
	adapter, err := inst.RequestAdapter(ctx, &gpu.RequestAdapterOptions{CompatibleSurface: surface, PowerPreference: power})
	if err != nil {
		return DeviceCapabilityReport{}, fmt.Errorf("negotiator: detect %q: %w", req.BackendID, err)
	}

	report := buildReport(req.BackendID, adapter, surface)
	report.Limitations = append(limitations, report.Limitations...)
	report.PreferredBackend = req.PreferredBackend
	logger.Logger().Debug("negotiator: capabilities detected",
		"backend", req.BackendID,
		"device", report.Adapter.Name,
		"maxTextureSize", report.Limits.MaxTextureSize,
		"maxVertexAttributes", report.Limits.MaxVertexAttributes,
	)
	return report, nil
}

// buildReport reads everything the negotiator needs from a live adapter.
func buildReport(backendID string, adapter *gpu.Adapter, surface *gpu.Surface) DeviceCapabilityReport {
	info := adapter.Info()
	limits := adapter.Limits()
	features := adapter.Features()

	r := DeviceCapabilityReport{
		Backend:       backendID,
		DeviceID:      fmt.Sprintf("%04x:%04x", info.VendorID, info.DeviceID),
		DriverVersion: info.DriverVersion,
		OSBuild:       fmt.Sprintf("%s/%s %s", runtime.GOOS, runtime.GOARCH, runtime.Version()),
		FeatureFlags:  make(map[Feature]FeatureStatus, len(AllFeatures())),
		Limits: CapabilityLimits{
			MaxTextureSize:      limits.MaxTextureDimension2D,
			MaxVertexAttributes: limits.MaxVertexAttributes,
		},
		Adapter: info,
	}

	native := StatusSupported
	if info.DeviceType == gputypes.DeviceTypeCPU {
		native = StatusEmulated
		r.Limitations = append(r.Limitations, "software adapter")
	}
	r.FeatureFlags[FeatureRender] = native
	if limits.MaxComputeWorkgroupsPerDimension > 0 {
		r.FeatureFlags[FeatureCompute] = native
	} else {
		r.FeatureFlags[FeatureCompute] = StatusMissing
		r.Limitations = append(r.Limitations, "compute dispatch unavailable")
	}
	if adapter.SupportsMultisample(gputypes.TextureFormatRGBA8Unorm, 4) {
		r.FeatureFlags[FeatureMultisampling] = StatusSupported
	} else {
		r.FeatureFlags[FeatureMultisampling] = StatusMissing
	}
	for f, gf := range adapterFeatures {
		if features.Contains(gf) {
			r.FeatureFlags[f] = StatusSupported
		} else {
			r.FeatureFlags[f] = StatusMissing
		}
	}
	r.FeatureFlags[FeatureRayTracing] = StatusMissing

	r.FeatureFlags[FeaturePresentation] = StatusMissing
	if surface != nil {
		if caps, err := adapter.SurfaceCapabilities(surface); err == nil && len(caps.Formats) > 0 {
			r.FeatureFlags[FeaturePresentation] = StatusSupported
		}
	}
	return r
}
