// Package hal_backend implements gpu.Backend over the gogpu wgpu hardware abstraction layer.
// One Backend value exists per backend id; several ids may share a hal variant (vulkan and
// moltenvk both drive the Vulkan hal on different platforms).
package hal_backend

import (
	"errors"
	"fmt"
	"runtime"
	"slices"

	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Backend ids registered by this package.
const (
	IDVulkan   = "vulkan"
	IDMoltenVK = "moltenvk"
	IDMetal    = "metal"
	IDGLES     = "gles"
	IDHeadless = "headless"
)

// Backend adapts one hal backend variant to gpu.Backend.
type Backend struct {
	id        string
	variant   gputypes.Backend
	platforms []string
	api       hal.Backend
	goos      string
}

var _ gpu.Backend = &Backend{}

// New creates a backend for the given hal variant.
//
// Parameters:
//   - id: the gpu backend id
//   - variant: the hal backend variant looked up through hal.GetBackend
//   - options: builder options
//
// Returns:
//   - *Backend: the backend, not yet registered
func New(id string, variant gputypes.Backend, options ...BackendBuilderOption) *Backend {
	b := &Backend{id: id, variant: variant, goos: runtime.GOOS}
	for _, opt := range options {
		opt(b)
	}
	return b
}

// Defaults returns the backends this package registers.
func Defaults() []*Backend {
	return []*Backend{
		New(IDVulkan, gputypes.BackendVulkan, WithPlatforms("linux", "windows", "android")),
		New(IDMoltenVK, gputypes.BackendVulkan, WithPlatforms("darwin", "ios")),
		New(IDMetal, gputypes.BackendMetal, WithPlatforms("darwin", "ios")),
		New(IDGLES, gputypes.BackendGL, WithPlatforms("linux", "windows", "android")),
		New(IDHeadless, gputypes.BackendEmpty),
	}
}

func (b *Backend) ID() string { return b.id }

// Variant returns the hal variant the backend drives.
func (b *Backend) Variant() gputypes.Backend { return b.variant }

func (b *Backend) resolve() (hal.Backend, bool) {
	if b.api != nil {
		return b.api, true
	}
	return hal.GetBackend(b.variant)
}

func (b *Backend) Available() bool {
	if len(b.platforms) > 0 && !slices.Contains(b.platforms, b.goos) {
		return false
	}
	_, ok := b.resolve()
	return ok
}

func (b *Backend) OpenInstance(desc gpu.InstanceDescriptor) (gpu.NativeInstance, error) {
	api, ok := b.resolve()
	if !ok {
		return nil, fmt.Errorf("%w: hal %s is not linked", gpu.ErrBackendUnavailable, b.variant)
	}
	flags := gputypes.InstanceFlagsNone
	if desc.Validation {
		flags |= gputypes.InstanceFlagsDebug | gputypes.InstanceFlagsValidation
	}
	raw, err := api.CreateInstance(&hal.InstanceDescriptor{
		Backends: gputypes.Backends(1) << b.variant,
		Flags:    flags,
	})
	if err != nil {
		return nil, translate("CreateInstance", err)
	}
	return &instance{raw: raw, variant: b.variant}, nil
}

// translate classifies a hal error into the gpu error taxonomy.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	kind := gpu.ResourceAllocationFailed
	switch {
	case errors.Is(err, hal.ErrDeviceLost):
		kind = gpu.ResourceDeviceLost
	case errors.Is(err, hal.ErrSurfaceOutdated):
		kind = gpu.ResourceSwapchainOutOfDate
	case errors.Is(err, hal.ErrSurfaceLost):
		kind = gpu.ResourceSurfaceLost
	case errors.Is(err, hal.ErrDeviceOutOfMemory):
		kind = gpu.ResourceOutOfMemory
	}
	return &gpu.ResourceError{Kind: kind, Op: op, Err: err}
}
