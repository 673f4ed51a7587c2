package negotiator

import (
	"runtime"
	"slices"
)

// Feature names one capability a backend profile may require.
type Feature string

const (
	FeatureRender                 Feature = "RENDER"
	FeatureCompute                Feature = "COMPUTE"
	FeatureMultisampling          Feature = "MULTISAMPLING"
	FeatureDepth32FStencil8       Feature = "DEPTH32F_STENCIL8"
	FeatureTextureCompressionBC   Feature = "TEXTURE_COMPRESSION_BC"
	FeatureTextureCompressionETC2 Feature = "TEXTURE_COMPRESSION_ETC2"
	FeatureTextureCompressionASTC Feature = "TEXTURE_COMPRESSION_ASTC"
	FeatureTimestampQuery         Feature = "TIMESTAMP_QUERY"
	FeatureIndirectFirstInstance  Feature = "INDIRECT_FIRST_INSTANCE"
	FeatureShaderF16              Feature = "SHADER_F16"
	FeatureRayTracing             Feature = "RAY_TRACING"
	FeaturePresentation           Feature = "PRESENTATION"
)

// AllFeatures lists every known feature in report order.
func AllFeatures() []Feature {
	return []Feature{
		FeatureRender,
		FeatureCompute,
		FeatureMultisampling,
		FeatureDepth32FStencil8,
		FeatureTextureCompressionBC,
		FeatureTextureCompressionETC2,
		FeatureTextureCompressionASTC,
		FeatureTimestampQuery,
		FeatureIndirectFirstInstance,
		FeatureShaderF16,
		FeatureRayTracing,
		FeaturePresentation,
	}
}

// FeatureStatus is how a device provides a feature.
type FeatureStatus int

const (
	// StatusMissing is the zero value so absent features read as missing.
	StatusMissing FeatureStatus = iota
	StatusEmulated
	StatusSupported
)

func (s FeatureStatus) String() string {
	switch s {
	case StatusSupported:
		return "SUPPORTED"
	case StatusEmulated:
		return "EMULATED"
	default:
		return "MISSING"
	}
}

// Satisfies reports whether the status meets a hard requirement.
func (s FeatureStatus) Satisfies() bool {
	return s == StatusSupported || s == StatusEmulated
}

// Platform is a deployment target a backend profile can run on.
type Platform string

const (
	PlatformLinux   Platform = "linux"
	PlatformWindows Platform = "windows"
	PlatformDarwin  Platform = "darwin"
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
	PlatformWeb     Platform = "web"
)

// CurrentPlatform maps runtime.GOOS to a Platform. js/wasm builds report PlatformWeb.
func CurrentPlatform() Platform {
	return platformFor(runtime.GOOS)
}

func platformFor(goos string) Platform {
	switch goos {
	case "js", "wasip1":
		return PlatformWeb
	default:
		return Platform(goos)
	}
}

var desktop = []Platform{PlatformLinux, PlatformWindows, PlatformDarwin}

// RenderingBackendProfile declares what a backend needs and where it runs.
type RenderingBackendProfile struct {
	BackendID        string
	RequiredFeatures []Feature
	// FallbackPriority orders candidates; lower is tried first.
	FallbackPriority int
	PlatformTargets  []Platform
	// Offscreen backends render without presenting and never qualify for a windowed target.
	Offscreen bool
}

// Targets reports whether the profile runs on p.
func (p RenderingBackendProfile) Targets(platform Platform) bool {
	return slices.Contains(p.PlatformTargets, platform)
}

// DefaultProfiles returns the stock candidate list, one profile per registered backend id.
//
// Returns:
//   - []RenderingBackendProfile: webgpu, vulkan, moltenvk, metal, gles and the offscreen headless profile
func DefaultProfiles() []RenderingBackendProfile {
	render := []Feature{FeatureRender}
	return []RenderingBackendProfile{
		{BackendID: "webgpu", RequiredFeatures: render, FallbackPriority: 0, PlatformTargets: append([]Platform{PlatformWeb}, desktop...)},
		{BackendID: "vulkan", RequiredFeatures: render, FallbackPriority: 1, PlatformTargets: []Platform{PlatformLinux, PlatformWindows, PlatformAndroid}},
		{BackendID: "moltenvk", RequiredFeatures: render, FallbackPriority: 2, PlatformTargets: []Platform{PlatformDarwin, PlatformIOS}},
		{BackendID: "metal", RequiredFeatures: render, FallbackPriority: 3, PlatformTargets: []Platform{PlatformDarwin, PlatformIOS}},
		{BackendID: "gles", RequiredFeatures: render, FallbackPriority: 4, PlatformTargets: []Platform{PlatformLinux, PlatformWindows, PlatformAndroid}},
		{BackendID: "headless", RequiredFeatures: render, FallbackPriority: 9, PlatformTargets: append([]Platform{PlatformAndroid, PlatformIOS, PlatformWeb}, desktop...), Offscreen: true},
	}
}
