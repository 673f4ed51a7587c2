package gpu

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/materia/engine/logger"
	"github.com/gogpu/gputypes"
)

// Backend is one native graphics API binding. Implementations live in their own packages and
// register themselves from init(), so the set of backends is chosen at link time.
type Backend interface {
	// ID returns the stable backend identifier, e.g. "vulkan" or "webgpu".
	//
	// Returns:
	//   - string: the backend id
	ID() string

	// Available reports whether the native API can be used in this process (driver present, platform matches).
	// It must not create any native object.
	//
	// Returns:
	//   - bool: true if OpenInstance is expected to succeed
	Available() bool

	// OpenInstance creates the native entry point for this backend.
	//
	// Parameters:
	//   - desc: instance creation flags
	//
	// Returns:
	//   - NativeInstance: the native instance
	//   - error: error if the native API could not be initialized
	OpenInstance(desc InstanceDescriptor) (NativeInstance, error)
}

// NativeObject is any backend-owned object that must be released exactly once.
type NativeObject interface {
	Release() error
}

// NativeInstance is the backend side of an Instance.
type NativeInstance interface {
	NativeObject
	CreateSurface(target SurfaceTarget) (NativeSurface, error)
	// EnumerateAdapters returns every adapter compatible with surface (nil for offscreen).
	// Ownership of all returned adapters passes to the caller.
	EnumerateAdapters(ctx context.Context, surface NativeSurface) ([]NativeAdapter, error)
}

// NativeAdapter is the backend side of an Adapter.
type NativeAdapter interface {
	NativeObject
	Info() AdapterInfo
	Limits() gputypes.Limits
	Features() gputypes.Features
	SupportsMultisample(format gputypes.TextureFormat, samples uint32) bool
	SurfaceCapabilities(surface NativeSurface) SurfaceCapabilities
	OpenDevice(ctx context.Context, desc DeviceDescriptor) (NativeDevice, error)
}

// NativeDevice is the backend side of a Device. Descriptors arrive already validated and
// reference public handles whose Native() objects belong to the same backend.
type NativeDevice interface {
	NativeObject
	Queue() NativeQueue
	CreateBuffer(desc *BufferDescriptor) (NativeObject, error)
	CreateTexture(desc *TextureDescriptor) (NativeObject, error)
	CreateTextureView(texture NativeObject, desc *TextureViewDescriptor) (NativeObject, error)
	CreateSampler(desc *SamplerDescriptor) (NativeObject, error)
	CreateShaderModule(desc *ShaderModuleDescriptor) (NativeObject, error)
	CreateBindGroupLayout(desc *BindGroupLayoutDescriptor) (NativeObject, error)
	CreateBindGroup(desc *BindGroupDescriptor) (NativeObject, error)
	CreatePipelineLayout(desc *PipelineLayoutDescriptor) (NativeObject, error)
	CreateRenderPipeline(desc *RenderPipelineDescriptor) (NativeObject, error)
	CreateComputePipeline(desc *ComputePipelineDescriptor) (NativeObject, error)
	CreateCommandEncoder(label string) (NativeCommandEncoder, error)
}

// NativeQueue is the backend side of a Queue.
type NativeQueue interface {
	Submit(buffers []NativeObject) error
	WriteBuffer(buffer NativeObject, offset uint64, data []byte) error
	WriteTexture(dst *TextureCopy, data []byte, layout TextureDataLayout, size gputypes.Extent3D) error
}

// NativeCommandEncoder records commands until Finish. Release abandons an unfinished recording.
type NativeCommandEncoder interface {
	NativeObject
	BeginRenderPass(desc *RenderPassDescriptor) (NativeRenderPass, error)
	BeginComputePass(label string) (NativeComputePass, error)
	// Finish ends recording. On success the encoder must not be used or released afterwards;
	// on failure it is still owned by the caller.
	Finish() (NativeObject, error)
}

// NativeRenderPass records draw commands. Arguments are validated before they reach it.
type NativeRenderPass interface {
	SetPipeline(pipeline NativeObject)
	SetBindGroup(index uint32, group NativeObject, dynamicOffsets []uint32)
	SetVertexBuffer(slot uint32, buffer NativeObject, offset uint64)
	SetIndexBuffer(buffer NativeObject, format gputypes.IndexFormat, offset uint64)
	SetViewport(x, y, width, height, minDepth, maxDepth float32)
	SetScissorRect(x, y, width, height uint32)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)
	End() error
}

// NativeComputePass records dispatches.
type NativeComputePass interface {
	SetPipeline(pipeline NativeObject)
	SetBindGroup(index uint32, group NativeObject, dynamicOffsets []uint32)
	Dispatch(x, y, z uint32)
	End() error
}

// NativeSurface is the backend side of a Surface. Configure binds it to one device, whose
// queue is then used by Present.
type NativeSurface interface {
	NativeObject
	Configure(device NativeDevice, config *SurfaceConfiguration) error
	Unconfigure(device NativeDevice)
	Acquire() (NativeSurfaceTexture, error)
	Present(texture NativeSurfaceTexture) error
	Discard(texture NativeSurfaceTexture)
}

// NativeSurfaceTexture is one acquired swapchain image. Its view is owned by the backend and
// released on Present or Discard.
type NativeSurfaceTexture interface {
	View() NativeObject
	Suboptimal() bool
}

// SurfaceTarget is supplied by the windowing collaborator. The core never creates windows.
type SurfaceTarget interface {
	// NativeHandles returns the platform display connection (or 0) and window handle.
	NativeHandles() (display, window uintptr)
	// FramebufferSize returns the drawable size in pixels.
	FramebufferSize() (width, height int)
}

// HeadlessTarget is a SurfaceTarget with no window, for offscreen rendering and tests.
type HeadlessTarget struct {
	Width  int
	Height int
}

func (HeadlessTarget) NativeHandles() (uintptr, uintptr) { return 0, 0 }

func (h HeadlessTarget) FramebufferSize() (int, int) { return h.Width, h.Height }

var (
	registryMu sync.RWMutex
	backends   = make(map[string]Backend)
)

// RegisterBackend makes a backend available under its ID. Typically called from init().
// A backend registered under an existing id replaces it.
//
// Parameters:
//   - b: the backend to register
func RegisterBackend(b Backend) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[b.ID()] = b
	logger.Logger().Debug("gpu: backend registered", "backend", b.ID())
}

// UnregisterBackend removes a backend from the registry. This is useful for testing.
//
// Parameters:
//   - id: the backend id to remove
func UnregisterBackend(id string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, id)
}

// LookupBackend returns the backend registered under id.
//
// Parameters:
//   - id: the backend id
//
// Returns:
//   - Backend: the registered backend
//   - error: ErrBackendNotRegistered if no backend has that id
func LookupBackend(id string) (Backend, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	b, ok := backends[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotRegistered, id)
	}
	return b, nil
}

// RegisteredBackends returns the sorted ids of all registered backends.
//
// Returns:
//   - []string: registered backend ids
func RegisteredBackends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	ids := make([]string, 0, len(backends))
	for id := range backends {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
