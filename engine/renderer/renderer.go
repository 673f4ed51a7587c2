package renderer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Carmen-Shannon/materia/engine/camera"
	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/Carmen-Shannon/materia/engine/light"
	"github.com/Carmen-Shannon/materia/engine/logger"
	"github.com/Carmen-Shannon/materia/engine/model"
	"github.com/Carmen-Shannon/materia/engine/negotiator"
	"github.com/Carmen-Shannon/materia/engine/profiler"
	"github.com/Carmen-Shannon/materia/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/materia/engine/renderer/material"
	"github.com/Carmen-Shannon/materia/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/materia/engine/scene"
	"github.com/gogpu/gputypes"
)

// ErrFrameSkipped marks a frame that was dropped instead of presented. FrameStats.LastFault wraps
// it together with the cause.
var ErrFrameSkipped = errors.New("renderer: frame skipped")

// Bind group indices used by every pipeline the renderer builds.
const (
	FrameGroup    = 0
	ObjectGroup   = 1
	MaterialGroup = material.Group
)

var (
	cameraUniform = bind_group_provider.Uniform{
		Binding:    0,
		Size:       camera.GPUCameraUniformSize,
		Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
	}
	lightingUniform = bind_group_provider.Uniform{
		Binding:    1,
		Size:       light.GPULightingSize,
		Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
	}
	objectUniform = bind_group_provider.Uniform{
		Binding:    0,
		Size:       model.GPUModelDataSize,
		Visibility: gputypes.ShaderStageVertex,
	}
)

// FrameInput is everything one frame draws.
type FrameInput struct {
	// Camera fills the camera uniform. A nil camera keeps the previous frame's uniform.
	Camera camera.Camera
	// Lights are folded into the lighting uniform with light.Pack.
	Lights []light.Light
	// Drawables are drawn in order; invisible ones are skipped.
	Drawables []scene.Drawable
	// Packer fills the per-object uniforms. Nil packs on the render goroutine.
	Packer ObjectPacker
}

// ObjectPacker serializes the 64-byte object uniform of each drawable, back to back.
// scene.Scene implements it with its worker pool.
type ObjectPacker interface {
	PackObjectUniforms(drawables []scene.Drawable) []byte
}

// PipelineFactory creates the unbuilt pipeline a material is drawn with. base carries the vertex
// layout and attachment state of the renderer and must be applied first.
type PipelineFactory func(m material.Material, base []pipeline.PipelineBuilderOption) pipeline.Pipeline

// FrameStats reports the last frame and running totals.
type FrameStats struct {
	Frames           uint64
	DrawCalls        int
	Triangles        int
	PipelineSwitches int
	LastFrame        time.Duration

	// Faults counts dropped frames. LastFault wraps ErrFrameSkipped and the cause of the most
	// recent one.
	Faults    uint64
	LastFault error

	TotalDrawCalls uint64
	TotalTriangles uint64
}

// RendererCapabilities describes the device the renderer runs on. It is fixed at construction.
type RendererCapabilities struct {
	Backend               string
	MaxTextureSize        uint32
	MaxVertexAttributes   uint32
	DeviceName            string
	DriverVersion         string
	SupportsCompute       bool
	SupportsRayTracing    bool
	SupportsMultisampling bool
}

// variantKey identifies the pipeline variant of a material.
type variantKey struct {
	materialID uint64
	features   material.FeatureSet
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	rsd     *negotiator.RenderSurfaceDescriptor
	device  *gpu.Device
	surface *gpu.Surface
	format  gputypes.TextureFormat

	clearColor      gputypes.Color
	depthEnabled    bool
	depthClearValue float32
	presentMode     *PresentMode
	sampleCount     MSAASampleCount
	profiler        *profiler.Profiler
	factory         PipelineFactory

	width, height int
	targets       *frameTargets
	needsRecreate bool

	frameGroup     bind_group_provider.BindGroupProvider
	objectLayout   *gpu.BindGroupLayout
	materialLayout *gpu.BindGroupLayout
	objects        []bind_group_provider.BindGroupProvider

	cache     pipeline.Cache
	variants  map[variantKey]pipeline.Pipeline
	materials map[uint64]material.Material
	geometry  map[model.Model]struct{}

	caps     RendererCapabilities
	stats    FrameStats
	disposed bool
}

// Renderer draws frames into a negotiated surface.
//
// Each frame runs in a fixed order: frame uniforms are written, a swapchain image is acquired,
// one render pass clears and draws every visible drawable, the command buffer is submitted and
// the image is presented. A frame that cannot acquire an image is dropped and counted as a fault
// instead of failing the render loop.
//
// A Renderer is not meant to be driven from several goroutines at once; calls are serialized.
type Renderer interface {
	// RenderFrame draws one frame.
	//
	// Parameters:
	//   - frame: the camera, lights and drawables of the frame
	//
	// Returns:
	//   - error: ValidationError for malformed input, the cause of a dropped frame when it is not
	//     recoverable by retrying (device loss, state errors), nil otherwise
	RenderFrame(frame FrameInput) error

	// Clear renders a frame that only clears the surface to color.
	//
	// Parameters:
	//   - color: the clear color
	//
	// Returns:
	//   - error: same contract as RenderFrame
	Clear(color gputypes.Color) error

	// SetSize resizes the swapchain and rebuilds the depth and multisample targets. Setting the
	// current size does nothing.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - error: ValidationError for non-positive sizes, the swapchain or allocation error
	SetSize(width, height int) error

	// Size returns the current swapchain size.
	Size() (width, height int)

	// Stats returns the frame statistics.
	//
	// Returns:
	//   - FrameStats: a copy of the counters
	Stats() FrameStats

	// Capabilities returns the device description captured at construction. Repeated calls
	// return identical values.
	Capabilities() RendererCapabilities

	// PipelineCache returns the structural pipeline cache.
	PipelineCache() pipeline.Cache

	// Device returns the device the renderer draws with.
	Device() *gpu.Device

	// Dispose releases the frame targets, pipelines, bind groups, uploaded geometry, material
	// resources and finally the render surface descriptor. Subsequent calls are no-ops.
	//
	// Returns:
	//   - error: joined release failures, or nil
	Dispose() error
}

var _ Renderer = &renderer{}

// NewRenderer creates a renderer over an initialized render surface. On success the renderer
// owns rsd and disposes it in Dispose; on failure rsd is left untouched.
//
// Parameters:
//   - rsd: the negotiated instance, surface, adapter and device
//   - options: functional options to configure the renderer
//
// Returns:
//   - Renderer: the renderer
//   - error: ValidationError for bad options, or the allocation error
func NewRenderer(rsd *negotiator.RenderSurfaceDescriptor, options ...RendererBuilderOption) (Renderer, error) {
	const op = "NewRenderer"
	if rsd == nil || rsd.Device == nil || rsd.Surface == nil || rsd.Adapter == nil {
		return nil, &gpu.ValidationError{Op: op, Field: "rsd", Reason: "render surface descriptor is incomplete"}
	}
	r := &renderer{
		mu:              &sync.Mutex{},
		rsd:             rsd,
		device:          rsd.Device,
		surface:         rsd.Surface,
		format:          rsd.Config.Format,
		clearColor:      gputypes.Color{R: 0, G: 0, B: 0, A: 1},
		depthEnabled:    true,
		depthClearValue: 1,
		sampleCount:     MSAAOff,
		factory:         DefaultPipelineFactory,
		cache:           pipeline.NewCache(),
		variants:        make(map[variantKey]pipeline.Pipeline),
		materials:       make(map[uint64]material.Material),
		geometry:        make(map[model.Model]struct{}),
	}
	for _, opt := range options {
		opt(r)
	}
	if r.depthClearValue < 0 || r.depthClearValue > 1 {
		return nil, &gpu.ValidationError{Op: op, Field: "depthClearValue", Reason: fmt.Sprintf("must be in [0,1], got %v", r.depthClearValue)}
	}
	if r.sampleCount != MSAAOff && r.sampleCount != MSAA4x {
		return nil, &gpu.ValidationError{Op: op, Field: "sampleCount", Reason: fmt.Sprintf("must be 1 or 4, got %d", r.sampleCount)}
	}
	if r.sampleCount > MSAAOff && !rsd.Adapter.SupportsMultisample(r.format, uint32(r.sampleCount)) {
		logger.Logger().Warn("renderer: multisampling unsupported, rendering without it", "format", r.format, "samples", r.sampleCount)
		r.sampleCount = MSAAOff
	}

	if r.presentMode != nil {
		if cfg, ok := r.surface.Configuration(); ok && cfg.PresentMode != r.presentMode.GPU() {
			cfg.PresentMode = r.presentMode.GPU()
			if err := r.surface.Configure(r.device, cfg); err != nil {
				return nil, fmt.Errorf("renderer: present mode %s: %w", r.presentMode, err)
			}
		}
	}
	r.width, r.height = r.surface.Extent()

	if err := r.init(); err != nil {
		_ = r.release()
		return nil, err
	}
	r.caps = capabilities(rsd)
	logger.Logger().Info("renderer: ready",
		"backend", r.caps.Backend, "device", r.caps.DeviceName,
		"width", r.width, "height", r.height, "samples", r.sampleCount)
	return r, nil
}

// init creates the shared bind group layouts, the frame bind group and the frame targets.
func (r *renderer) init() error {
	r.frameGroup = bind_group_provider.NewBindGroupProvider("frame",
		bind_group_provider.WithGroup(FrameGroup),
		bind_group_provider.WithUniform(cameraUniform),
		bind_group_provider.WithUniform(lightingUniform),
	)
	if err := r.frameGroup.Init(r.device); err != nil {
		return fmt.Errorf("renderer: %w", err)
	}
	var err error
	if r.objectLayout, err = bind_group_provider.NewLayout(r.device, "object", objectUniform); err != nil {
		return fmt.Errorf("renderer: object layout: %w", err)
	}
	if r.materialLayout, err = bind_group_provider.NewLayout(r.device, "material", material.Uniform); err != nil {
		return fmt.Errorf("renderer: material layout: %w", err)
	}
	r.targets, err = newFrameTargets(r.device, r.format, r.depthFormat(), r.width, r.height, uint32(r.sampleCount))
	return err
}

func (r *renderer) depthFormat() gputypes.TextureFormat {
	if !r.depthEnabled {
		return gputypes.TextureFormatUndefined
	}
	return gputypes.TextureFormatDepth24Plus
}

// capabilities derives the renderer capabilities from the negotiated capability report.
func capabilities(rsd *negotiator.RenderSurfaceDescriptor) RendererCapabilities {
	report := rsd.Report()
	return RendererCapabilities{
		Backend:               report.Backend,
		MaxTextureSize:        report.Limits.MaxTextureSize,
		MaxVertexAttributes:   report.Limits.MaxVertexAttributes,
		DeviceName:            report.Adapter.Name,
		DriverVersion:         report.DriverVersion,
		SupportsCompute:       report.Status(negotiator.FeatureCompute).Satisfies(),
		SupportsRayTracing:    report.Status(negotiator.FeatureRayTracing).Satisfies(),
		SupportsMultisampling: report.Status(negotiator.FeatureMultisampling).Satisfies(),
	}
}

// DefaultPipelineFactory draws a material with its own shader pair and feature options on top of
// the renderer's base options.
//
// Parameters:
//   - m: the material
//   - base: the renderer's vertex layout and attachment options
//
// Returns:
//   - pipeline.Pipeline: the unbuilt pipeline
func DefaultPipelineFactory(m material.Material, base []pipeline.PipelineBuilderOption) pipeline.Pipeline {
	vs, fs := m.Shaders()
	opts := append(base[:len(base):len(base)], m.PipelineOptions()...)
	return pipeline.NewPipeline(vs, fs, opts...)
}

func (r *renderer) RenderFrame(frame FrameInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ready("RenderFrame"); err != nil {
		return err
	}
	start := time.Now()
	visible, err := r.prepare(frame)
	if err != nil {
		return err
	}
	return r.present(start, visible, r.clearColor)
}

func (r *renderer) Clear(color gputypes.Color) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ready("Clear"); err != nil {
		return err
	}
	return r.present(time.Now(), nil, color)
}

func (r *renderer) ready(op string) error {
	if r.disposed {
		return &gpu.StateError{Op: op, Reason: "renderer is disposed", Err: gpu.ErrDisposed}
	}
	return nil
}

// prepare writes the frame uniforms, uploads geometry, initializes materials and writes the
// object uniforms. It returns the visible drawables in draw order.
func (r *renderer) prepare(frame FrameInput) ([]scene.Drawable, error) {
	visible := make([]scene.Drawable, 0, len(frame.Drawables))
	for i, d := range frame.Drawables {
		if !d.Visible {
			continue
		}
		if d.Geometry == nil || d.Material == nil {
			return nil, &gpu.ValidationError{
				Op:     "RenderFrame",
				Field:  fmt.Sprintf("Drawables[%d]", i),
				Reason: "a visible drawable needs geometry and a material",
			}
		}
		visible = append(visible, d)
	}

	if frame.Camera != nil {
		u := frame.Camera.Uniform()
		if err := r.frameGroup.Write(cameraUniform.Binding, 0, u.Marshal()); err != nil {
			return nil, fmt.Errorf("renderer: camera uniform: %w", err)
		}
	}
	lighting := light.Pack(frame.Lights)
	if err := r.frameGroup.Write(lightingUniform.Binding, 0, lighting.Marshal()); err != nil {
		return nil, fmt.Errorf("renderer: lighting uniform: %w", err)
	}

	for _, d := range visible {
		if err := r.useGeometry(d.Geometry); err != nil {
			return nil, err
		}
		if err := r.useMaterial(d.Material); err != nil {
			return nil, err
		}
	}
	if err := r.writeObjects(visible, frame.Packer); err != nil {
		return nil, err
	}
	return visible, nil
}

func (r *renderer) useGeometry(g model.Model) error {
	if err := g.Upload(r.device); err != nil {
		return fmt.Errorf("renderer: geometry %s: %w", g.Name(), err)
	}
	r.geometry[g] = struct{}{}
	return nil
}

func (r *renderer) useMaterial(m material.Material) error {
	if err := m.Init(r.device, r.materialLayout); err != nil {
		return fmt.Errorf("renderer: %w", err)
	}
	r.materials[m.ID()] = m
	return m.Upload()
}

// writeObjects grows the pool of object bind groups to one per visible drawable and uploads
// each drawable's model matrix.
func (r *renderer) writeObjects(visible []scene.Drawable, packer ObjectPacker) error {
	for len(r.objects) < len(visible) {
		p := bind_group_provider.NewBindGroupProvider(fmt.Sprintf("object %d", len(r.objects)),
			bind_group_provider.WithGroup(ObjectGroup),
			bind_group_provider.WithUniform(objectUniform),
			bind_group_provider.WithBindGroupLayout(r.objectLayout),
		)
		if err := p.Init(r.device); err != nil {
			return fmt.Errorf("renderer: %w", err)
		}
		r.objects = append(r.objects, p)
	}
	if len(visible) == 0 {
		return nil
	}

	var packed []byte
	if packer != nil {
		packed = packer.PackObjectUniforms(visible)
	}
	if len(packed) != len(visible)*model.GPUModelDataSize {
		packed = make([]byte, len(visible)*model.GPUModelDataSize)
		scene.PackObjectData(visible, packed)
	}

	writes := make([]bind_group_provider.BufferWrite, len(visible))
	for i := range visible {
		writes[i] = bind_group_provider.BufferWrite{
			Provider: r.objects[i],
			Binding:  objectUniform.Binding,
			Data:     packed[i*model.GPUModelDataSize : (i+1)*model.GPUModelDataSize],
		}
	}
	if err := bind_group_provider.Apply(writes...); err != nil {
		return fmt.Errorf("renderer: object uniforms: %w", err)
	}
	return nil
}

// present runs acquire, record, submit and present for one frame and updates the statistics.
func (r *renderer) present(start time.Time, visible []scene.Drawable, color gputypes.Color) error {
	if r.needsRecreate {
		if err := r.resize(r.width, r.height, true); err != nil {
			return r.drop("recreate", err)
		}
	}

	frame, err := r.surface.AcquireNextImage()
	if err != nil {
		return r.drop("acquire", err)
	}
	stats, err := r.record(frame, visible, color)
	if err != nil {
		_ = r.surface.DiscardImage(frame)
		return r.drop("record", err)
	}
	if err := r.surface.PresentImage(frame); err != nil {
		return r.drop("present", err)
	}
	if frame.Suboptimal {
		r.needsRecreate = true
	}

	r.stats.Frames++
	r.stats.DrawCalls = stats.DrawCalls
	r.stats.Triangles = stats.Triangles
	r.stats.PipelineSwitches = stats.PipelineSwitches
	r.stats.TotalDrawCalls += uint64(stats.DrawCalls)
	r.stats.TotalTriangles += uint64(stats.Triangles)
	r.stats.LastFrame = time.Since(start)

	if r.profiler != nil {
		r.profiler.Tick(
			slog.Int("draw_calls", stats.DrawCalls),
			slog.Int("triangles", stats.Triangles),
			slog.Int("pipeline_switches", stats.PipelineSwitches),
			slog.Uint64("faults", r.stats.Faults),
		)
	}
	return nil
}

// record encodes the frame's single render pass and submits it.
func (r *renderer) record(frame *gpu.SurfaceFrame, visible []scene.Drawable, color gputypes.Color) (gpu.PassStats, error) {
	if r.targets == nil || r.targets.width != r.width || r.targets.height != r.height {
		return gpu.PassStats{}, &gpu.ResourceError{Op: "record", Kind: gpu.ResourceAllocationFailed, Err: errors.New("frame targets not built for the current size")}
	}
	enc, err := r.device.CreateCommandEncoder("frame")
	if err != nil {
		return gpu.PassStats{}, err
	}
	defer enc.Dispose()

	pass, err := enc.BeginRenderPass(gpu.RenderPassDescriptor{
		Label:                  "frame",
		ColorAttachments:       []gpu.ColorAttachment{r.targets.colorAttachment(frame.View(), color)},
		DepthStencilAttachment: r.targets.depthAttachment(r.depthClearValue),
	})
	if err != nil {
		return gpu.PassStats{}, err
	}
	if err := r.draw(pass, visible); err != nil {
		return gpu.PassStats{}, err
	}
	if err := pass.End(); err != nil {
		return gpu.PassStats{}, err
	}
	stats := pass.Stats()

	cb, err := enc.Finish()
	if err != nil {
		return gpu.PassStats{}, err
	}
	if err := r.device.Queue().Submit(cb); err != nil {
		_ = cb.Dispose()
		return gpu.PassStats{}, err
	}
	return stats, nil
}

func (r *renderer) draw(pass *gpu.RenderPassEncoder, visible []scene.Drawable) error {
	var bound *gpu.RenderPipeline
	for i, d := range visible {
		p, err := r.pipelineFor(d.Material)
		if err != nil {
			return err
		}
		if rp := p.RenderPipeline(); rp != bound {
			if err := pass.SetPipeline(rp); err != nil {
				return err
			}
			if bound == nil {
				if err := pass.SetBindGroup(FrameGroup, r.frameGroup.BindGroup()); err != nil {
					return err
				}
			}
			bound = rp
		}
		if err := pass.SetBindGroup(ObjectGroup, r.objects[i].BindGroup()); err != nil {
			return err
		}
		if err := pass.SetBindGroup(MaterialGroup, d.Material.BindGroupProvider().BindGroup()); err != nil {
			return err
		}

		g := d.Geometry
		if err := pass.SetVertexBuffer(0, g.VertexBuffer(), 0); err != nil {
			return err
		}
		if !g.Indexed() {
			if err := pass.Draw(uint32(g.VertexCount()), 1, 0, 0); err != nil {
				return err
			}
			continue
		}
		if err := pass.SetIndexBuffer(g.IndexBuffer(), g.IndexFormat(), 0); err != nil {
			return err
		}
		if err := pass.DrawIndexed(uint32(g.IndexCount()), 1, 0, 0, 0); err != nil {
			return err
		}
	}
	return nil
}

// pipelineFor returns the pipeline variant of m, building it through the structural cache on
// first use.
func (r *renderer) pipelineFor(m material.Material) (pipeline.Pipeline, error) {
	vk := variantKey{materialID: m.ID(), features: m.Features()}
	if p, ok := r.variants[vk]; ok {
		return p, nil
	}

	candidate := r.factory(m, r.baseOptions())
	groups := []*gpu.BindGroupLayout{r.frameGroup.BindGroupLayout(), r.objectLayout, r.materialLayout}
	p, err := r.cache.GetOrCreate(candidate.Key(), func() (pipeline.Pipeline, error) {
		if err := candidate.Build(r.device, groups); err != nil {
			return nil, err
		}
		return candidate, nil
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: material %s: %w", m.Name(), err)
	}
	r.variants[vk] = p
	return p, nil
}

func (r *renderer) baseOptions() []pipeline.PipelineBuilderOption {
	return []pipeline.PipelineBuilderOption{
		pipeline.WithVertexLayouts(model.VertexLayout()),
		pipeline.WithColorFormat(r.format),
		pipeline.WithDepthFormat(r.depthFormat()),
		pipeline.WithSampleCount(uint32(r.sampleCount)),
	}
}

// drop records a dropped frame. Swapchain loss schedules a recreation before the next frame.
// Errors a render loop recovers from by retrying are swallowed; anything else is returned.
func (r *renderer) drop(step string, err error) error {
	r.stats.Faults++
	r.stats.LastFault = fmt.Errorf("%w: %s: %w", ErrFrameSkipped, step, err)
	if errors.Is(err, gpu.ErrSwapchainOutOfDate) {
		r.needsRecreate = true
	}
	if errors.Is(err, gpu.ErrDeviceLost) {
		logger.Logger().Warn("renderer: device lost", "step", step, "faults", r.stats.Faults)
		return err
	}
	if !gpu.IsRecoverable(err) {
		return err
	}
	logger.Logger().Debug("renderer: frame dropped", "step", step, "faults", r.stats.Faults, "err", err)
	return nil
}

func (r *renderer) SetSize(width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ready("SetSize"); err != nil {
		return err
	}
	return r.resize(width, height, false)
}

// resize recreates the swapchain and the frame targets. Unless force is set an unchanged size
// does nothing.
func (r *renderer) resize(width, height int, force bool) error {
	if !force && width == r.width && height == r.height {
		return nil
	}
	if err := r.surface.RecreateSwapchain(width, height); err != nil {
		return err
	}
	r.width, r.height = width, height
	r.needsRecreate = false
	if r.targets != nil && r.targets.width == width && r.targets.height == height {
		return nil
	}

	// Old targets are released only once the replacement exists; a failed build is retried by
	// the next frame.
	targets, err := newFrameTargets(r.device, r.format, r.depthFormat(), width, height, uint32(r.sampleCount))
	if err != nil {
		r.needsRecreate = true
		return err
	}
	if r.targets != nil {
		if err := r.targets.release(); err != nil {
			logger.Logger().Warn("renderer: releasing frame targets", "err", err)
		}
	}
	r.targets = targets
	return nil
}

func (r *renderer) Size() (width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

func (r *renderer) Stats() FrameStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *renderer) Capabilities() RendererCapabilities { return r.caps }

func (r *renderer) PipelineCache() pipeline.Cache { return r.cache }

func (r *renderer) Device() *gpu.Device { return r.device }

func (r *renderer) Dispose() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return nil
	}
	r.disposed = true
	err := r.release()
	return errors.Join(err, r.rsd.Dispose())
}

// release frees everything the renderer created, newest first. It tolerates a partially
// initialized renderer.
func (r *renderer) release() error {
	var errs []error
	if r.targets != nil {
		errs = append(errs, r.targets.release())
		r.targets = nil
	}
	errs = append(errs, r.cache.Release())
	clear(r.variants)
	for _, m := range r.materials {
		errs = append(errs, m.Release())
	}
	clear(r.materials)
	for g := range r.geometry {
		errs = append(errs, g.Release())
	}
	clear(r.geometry)
	for i := len(r.objects) - 1; i >= 0; i-- {
		errs = append(errs, r.objects[i].Release())
	}
	r.objects = nil
	for _, l := range []**gpu.BindGroupLayout{&r.materialLayout, &r.objectLayout} {
		if *l != nil {
			errs = append(errs, (*l).Dispose())
			*l = nil
		}
	}
	if r.frameGroup != nil {
		errs = append(errs, r.frameGroup.Release())
	}
	return errors.Join(errs...)
}
