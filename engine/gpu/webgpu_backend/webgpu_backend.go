// Package webgpu_backend implements gpu.Backend over wgpu-native through the cogentcore/webgpu
// bindings. WebGPU is itself portable, so one backend covers Vulkan, Metal and D3D12 drivers
// wherever wgpu-native ships.
package webgpu_backend

import (
	"runtime"
	"slices"
	"strings"

	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// ID is the backend id registered by this package.
const ID = "webgpu"

// Backend adapts wgpu-native to gpu.Backend.
type Backend struct {
	platforms     []string
	forceFallback bool
	goos          string
}

var _ gpu.Backend = &Backend{}

// New creates the webgpu backend.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - *Backend: the backend, not yet registered
func New(options ...BackendBuilderOption) *Backend {
	b := &Backend{
		platforms: []string{"linux", "windows", "darwin"},
		goos:      runtime.GOOS,
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

func init() {
	gpu.RegisterBackend(New())
}

func (b *Backend) ID() string { return ID }

func (b *Backend) Available() bool {
	return slices.Contains(b.platforms, b.goos)
}

func (b *Backend) OpenInstance(desc gpu.InstanceDescriptor) (gpu.NativeInstance, error) {
	raw := wgpu.CreateInstance(nil)
	if raw == nil {
		return nil, &gpu.ResourceError{Kind: gpu.ResourceAllocationFailed, Op: "OpenInstance", Err: gpu.ErrBackendUnavailable}
	}
	return &instance{raw: raw, forceFallback: b.forceFallback}, nil
}

// translate classifies a wgpu-native error by its message; the bindings do not expose typed errors.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	kind := gpu.ResourceAllocationFailed
	switch {
	case strings.Contains(msg, "lost"):
		kind = gpu.ResourceDeviceLost
	case strings.Contains(msg, "outdated"), strings.Contains(msg, "timeout"):
		kind = gpu.ResourceSwapchainOutOfDate
	case strings.Contains(msg, "out of memory"), strings.Contains(msg, "outofmemory"):
		kind = gpu.ResourceOutOfMemory
	}
	return &gpu.ResourceError{Kind: kind, Op: op, Err: err}
}
