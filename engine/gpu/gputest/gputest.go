// Package gputest provides an in-memory gpu.Backend that records every command, counts live
// native objects and injects faults on demand. It backs the tests of every package above engine/gpu.
package gputest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/gogpu/gputypes"
)

// ErrInjected is the default error returned by injected faults.
var ErrInjected = errors.New("gputest: injected failure")

// OutOfDate returns the error a native swapchain reports when it must be recreated.
func OutOfDate(op string) error {
	return &gpu.ResourceError{Kind: gpu.ResourceSwapchainOutOfDate, Op: op, Err: gpu.ErrSwapchainOutOfDate}
}

// DeviceLost returns the error a native device reports once it is lost.
func DeviceLost(op string) error {
	return &gpu.ResourceError{Kind: gpu.ResourceDeviceLost, Op: op, Err: gpu.ErrDeviceLost}
}

// Backend is a fake gpu.Backend. Its zero configuration exposes one adapter with
// gputypes.DefaultLimits, BGRA8Unorm/RGBA8Unorm surface formats and 4x multisampling.
type Backend struct {
	id string

	mu             sync.Mutex
	available      bool
	adapterCount   int
	info           gpu.AdapterInfo
	limits         gputypes.Limits
	features       gputypes.Features
	multisample    bool
	formats        []gputypes.TextureFormat
	presentModes   []gputypes.PresentMode
	live           map[*object]struct{}
	created        int
	doubleReleases int
	failCreateAt   int
	createCalls    int
	failOpen       error
	acquireErrs    []error
	presentErrs    []error
	submitErrs     []error
	releaseErrs    map[string]error
	openGate       chan struct{}
	submissions    [][]string
	commands       []string
	writes         []BufferWrite
}

// BufferWrite records one queue buffer upload.
type BufferWrite struct {
	Label  string
	Offset uint64
	Data   []byte
}

// Option configures a Backend.
type Option func(*Backend)

// WithID sets the backend id. Defaults to "gputest".
func WithID(id string) Option {
	return func(b *Backend) { b.id = id }
}

// WithLimits sets the adapter limits.
func WithLimits(l gputypes.Limits) Option {
	return func(b *Backend) { b.limits = l }
}

// WithFeatures sets the adapter features.
func WithFeatures(f gputypes.Features) Option {
	return func(b *Backend) { b.features = f }
}

// WithAdapterInfo sets the adapter description.
func WithAdapterInfo(info gpu.AdapterInfo) Option {
	return func(b *Backend) { b.info = info }
}

// WithAdapters sets how many adapters EnumerateAdapters returns.
func WithAdapters(n int) Option {
	return func(b *Backend) { b.adapterCount = n }
}

// WithMultisample toggles 4x multisample support.
func WithMultisample(enabled bool) Option {
	return func(b *Backend) { b.multisample = enabled }
}

// WithUnavailable makes Available report false.
func WithUnavailable() Option {
	return func(b *Backend) { b.available = false }
}

// WithOpenError makes OpenInstance fail with err.
func WithOpenError(err error) Option {
	return func(b *Backend) { b.failOpen = err }
}

// New creates an unregistered fake backend.
func New(options ...Option) *Backend {
	b := &Backend{
		id:           "gputest",
		available:    true,
		adapterCount: 1,
		info: gpu.AdapterInfo{
			Name:          "gputest adapter",
			Vendor:        "gputest",
			Architecture:  "in-memory",
			DriverVersion: "1.0.0",
			DeviceID:      0x1234,
			DeviceType:    gputypes.DeviceTypeDiscreteGPU,
		},
		limits:       gputypes.DefaultLimits(),
		multisample:  true,
		formats:      []gputypes.TextureFormat{gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatRGBA8Unorm},
		presentModes: []gputypes.PresentMode{gputypes.PresentModeFifo, gputypes.PresentModeImmediate, gputypes.PresentModeMailbox},
		live:         make(map[*object]struct{}),
		releaseErrs:  make(map[string]error),
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

// Install creates a backend, registers it and unregisters it when the test ends.
func Install(t testing.TB, options ...Option) *Backend {
	t.Helper()
	b := New(options...)
	gpu.RegisterBackend(b)
	t.Cleanup(func() { gpu.UnregisterBackend(b.id) })
	return b
}

func (b *Backend) ID() string { return b.id }

func (b *Backend) Available() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.available
}

func (b *Backend) OpenInstance(gpu.InstanceDescriptor) (gpu.NativeInstance, error) {
	b.mu.Lock()
	err := b.failOpen
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &instance{object: b.newObject("instance", "")}, nil
}

// Live returns the number of native objects created and not yet released.
func (b *Backend) Live() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.live)
}

// LiveKinds returns the kinds of all unreleased native objects, for leak diagnostics.
func (b *Backend) LiveKinds() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	kinds := make([]string, 0, len(b.live))
	for o := range b.live {
		kinds = append(kinds, o.kind)
	}
	return kinds
}

// Created returns the total number of native objects ever created.
func (b *Backend) Created() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.created
}

// DoubleReleases returns how many times an already released object was released again.
func (b *Backend) DoubleReleases() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.doubleReleases
}

// Submissions returns the labels of the command buffers of every queue submission, in order.
func (b *Backend) Submissions() [][]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([][]string, len(b.submissions))
	copy(out, b.submissions)
	return out
}

// Commands returns every command executed by the queue, in order.
func (b *Backend) Commands() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.commands...)
}

// Writes returns every buffer upload, in order.
func (b *Backend) Writes() []BufferWrite {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]BufferWrite(nil), b.writes...)
}

// FailCreateAt makes the n-th subsequent resource creation (1-based) fail.
func (b *Backend) FailCreateAt(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.createCalls = 0
	b.failCreateAt = n
}

// FailNextAcquire queues err for the next surface acquisition.
func (b *Backend) FailNextAcquire(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.acquireErrs = append(b.acquireErrs, err)
}

// FailNextPresent queues err for the next present.
func (b *Backend) FailNextPresent(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.presentErrs = append(b.presentErrs, err)
}

// FailNextSubmit queues err for the next queue submission.
func (b *Backend) FailNextSubmit(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submitErrs = append(b.submitErrs, err)
}

// FailRelease makes every release of objects of kind return err. The object is still released.
func (b *Backend) FailRelease(kind string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.releaseErrs[kind] = err
}

// BlockOpenDevice makes OpenDevice wait until the returned function is called or the request
// context ends.
func (b *Backend) BlockOpenDevice() (unblock func()) {
	gate := make(chan struct{})
	b.mu.Lock()
	b.openGate = gate
	b.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func popErr(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

func (b *Backend) newObject(kind, label string) *object {
	o := &object{b: b, kind: kind, label: label}
	b.mu.Lock()
	b.live[o] = struct{}{}
	b.created++
	b.mu.Unlock()
	return o
}

// create counts a resource creation and applies FailCreateAt.
func (b *Backend) create(kind, label string) (*object, error) {
	b.mu.Lock()
	b.createCalls++
	fail := b.failCreateAt > 0 && b.createCalls == b.failCreateAt
	b.mu.Unlock()
	if fail {
		return nil, fmt.Errorf("create %s: %w", kind, ErrInjected)
	}
	return b.newObject(kind, label), nil
}

type object struct {
	b        *Backend
	kind     string
	label    string
	released bool
}

func (o *object) Release() error {
	b := o.b
	b.mu.Lock()
	defer b.mu.Unlock()
	if o.released {
		b.doubleReleases++
		return fmt.Errorf("gputest: %s released twice", o.kind)
	}
	o.released = true
	delete(b.live, o)
	return b.releaseErrs[o.kind]
}

type instance struct{ *object }

func (i *instance) CreateSurface(target gpu.SurfaceTarget) (gpu.NativeSurface, error) {
	o, err := i.b.create("surface", "")
	if err != nil {
		return nil, err
	}
	return &surface{object: o}, nil
}

func (i *instance) EnumerateAdapters(ctx context.Context, _ gpu.NativeSurface) ([]gpu.NativeAdapter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]gpu.NativeAdapter, 0, i.b.adapterCount)
	for range i.b.adapterCount {
		out = append(out, &adapter{object: i.b.newObject("adapter", i.b.info.Name)})
	}
	return out, nil
}

type adapter struct{ *object }

func (a *adapter) Info() gpu.AdapterInfo         { return a.b.info }
func (a *adapter) Limits() gputypes.Limits       { return a.b.limits }
func (a *adapter) Features() gputypes.Features   { return a.b.features }
func (a *adapter) SupportsMultisample(_ gputypes.TextureFormat, samples uint32) bool {
	return a.b.multisample && samples == 4
}

func (a *adapter) SurfaceCapabilities(gpu.NativeSurface) gpu.SurfaceCapabilities {
	return gpu.SurfaceCapabilities{
		Formats:      a.b.formats,
		PresentModes: a.b.presentModes,
		AlphaModes:   []gputypes.CompositeAlphaMode{gputypes.CompositeAlphaModeOpaque},
	}
}

func (a *adapter) OpenDevice(ctx context.Context, desc gpu.DeviceDescriptor) (gpu.NativeDevice, error) {
	a.b.mu.Lock()
	gate := a.b.openGate
	a.b.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	o, err := a.b.create("device", desc.Label)
	if err != nil {
		return nil, err
	}
	return &device{object: o, queue: &queue{b: a.b}}, nil
}

type device struct {
	*object
	queue *queue
}

func (d *device) Queue() gpu.NativeQueue { return d.queue }

func (d *device) CreateBuffer(desc *gpu.BufferDescriptor) (gpu.NativeObject, error) {
	return d.b.create("buffer", desc.Label)
}

func (d *device) CreateTexture(desc *gpu.TextureDescriptor) (gpu.NativeObject, error) {
	return d.b.create("texture", desc.Label)
}

func (d *device) CreateTextureView(_ gpu.NativeObject, desc *gpu.TextureViewDescriptor) (gpu.NativeObject, error) {
	return d.b.create("texture view", desc.Label)
}

func (d *device) CreateSampler(desc *gpu.SamplerDescriptor) (gpu.NativeObject, error) {
	return d.b.create("sampler", desc.Label)
}

func (d *device) CreateShaderModule(desc *gpu.ShaderModuleDescriptor) (gpu.NativeObject, error) {
	return d.b.create("shader module", desc.Label)
}

func (d *device) CreateBindGroupLayout(desc *gpu.BindGroupLayoutDescriptor) (gpu.NativeObject, error) {
	return d.b.create("bind group layout", desc.Label)
}

func (d *device) CreateBindGroup(desc *gpu.BindGroupDescriptor) (gpu.NativeObject, error) {
	return d.b.create("bind group", desc.Label)
}

func (d *device) CreatePipelineLayout(desc *gpu.PipelineLayoutDescriptor) (gpu.NativeObject, error) {
	return d.b.create("pipeline layout", desc.Label)
}

func (d *device) CreateRenderPipeline(desc *gpu.RenderPipelineDescriptor) (gpu.NativeObject, error) {
	return d.b.create("render pipeline", desc.Label)
}

func (d *device) CreateComputePipeline(desc *gpu.ComputePipelineDescriptor) (gpu.NativeObject, error) {
	return d.b.create("compute pipeline", desc.Label)
}

func (d *device) CreateCommandEncoder(label string) (gpu.NativeCommandEncoder, error) {
	o, err := d.b.create("command encoder", label)
	if err != nil {
		return nil, err
	}
	return &encoder{object: o}, nil
}

type encoder struct {
	*object
	log []string
}

func (e *encoder) BeginRenderPass(desc *gpu.RenderPassDescriptor) (gpu.NativeRenderPass, error) {
	e.log = append(e.log, fmt.Sprintf("begin render pass colors=%d depth=%t", len(desc.ColorAttachments), desc.DepthStencilAttachment != nil))
	return &pass{enc: e}, nil
}

func (e *encoder) BeginComputePass(label string) (gpu.NativeComputePass, error) {
	e.log = append(e.log, "begin compute pass")
	return &pass{enc: e}, nil
}

// Finish consumes the encoder: its native object is handed over to the command buffer.
func (e *encoder) Finish() (gpu.NativeObject, error) {
	e.b.mu.Lock()
	delete(e.b.live, e.object)
	e.object.released = true
	e.b.mu.Unlock()
	return &commandBuffer{object: e.b.newObject("command buffer", e.label), log: e.log}, nil
}

type pass struct{ enc *encoder }

func (p *pass) record(format string, args ...any) {
	p.enc.log = append(p.enc.log, fmt.Sprintf(format, args...))
}

func (p *pass) SetPipeline(gpu.NativeObject) { p.record("set pipeline") }
func (p *pass) SetBindGroup(index uint32, _ gpu.NativeObject, _ []uint32) {
	p.record("set bind group %d", index)
}
func (p *pass) SetVertexBuffer(slot uint32, _ gpu.NativeObject, offset uint64) {
	p.record("set vertex buffer %d", slot)
}
func (p *pass) SetIndexBuffer(_ gpu.NativeObject, format gputypes.IndexFormat, _ uint64) {
	p.record("set index buffer %s", format)
}
func (p *pass) SetViewport(x, y, w, h, minD, maxD float32) { p.record("set viewport %vx%v", w, h) }
func (p *pass) SetScissorRect(x, y, w, h uint32)          { p.record("set scissor %dx%d", w, h) }
func (p *pass) Draw(vc, ic, fv, fi uint32)                { p.record("draw %d %d", vc, ic) }
func (p *pass) DrawIndexed(ic, inst, fi uint32, bv int32, finst uint32) {
	p.record("draw indexed %d %d", ic, inst)
}
func (p *pass) Dispatch(x, y, z uint32) { p.record("dispatch %d %d %d", x, y, z) }
func (p *pass) End() error              { p.record("end pass"); return nil }

type commandBuffer struct {
	*object
	log []string
}

type queue struct{ b *Backend }

// Submit executes the buffers and releases them, simulating immediate completion.
func (q *queue) Submit(buffers []gpu.NativeObject) error {
	q.b.mu.Lock()
	err := popErr(&q.b.submitErrs)
	q.b.mu.Unlock()
	if err != nil {
		return err
	}
	labels := make([]string, 0, len(buffers))
	var commands []string
	for _, nb := range buffers {
		cb := nb.(*commandBuffer)
		labels = append(labels, cb.label)
		commands = append(commands, cb.log...)
	}
	q.b.mu.Lock()
	q.b.submissions = append(q.b.submissions, labels)
	q.b.commands = append(q.b.commands, commands...)
	q.b.mu.Unlock()
	for _, nb := range buffers {
		_ = nb.Release()
	}
	return nil
}

func (q *queue) WriteBuffer(buffer gpu.NativeObject, offset uint64, data []byte) error {
	w := BufferWrite{Offset: offset, Data: append([]byte(nil), data...)}
	if o, ok := buffer.(*object); ok {
		w.Label = o.label
	}
	q.b.mu.Lock()
	q.b.writes = append(q.b.writes, w)
	q.b.mu.Unlock()
	return nil
}

func (q *queue) WriteTexture(*gpu.TextureCopy, []byte, gpu.TextureDataLayout, gputypes.Extent3D) error {
	return nil
}

type surface struct {
	*object
	configured bool
}

func (s *surface) Configure(gpu.NativeDevice, *gpu.SurfaceConfiguration) error {
	s.configured = true
	return nil
}

func (s *surface) Unconfigure(gpu.NativeDevice) { s.configured = false }

func (s *surface) Acquire() (gpu.NativeSurfaceTexture, error) {
	s.b.mu.Lock()
	err := popErr(&s.b.acquireErrs)
	s.b.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if !s.configured {
		return nil, errors.New("gputest: acquire on unconfigured surface")
	}
	return &surfaceTexture{view: s.b.newObject("swapchain view", "")}, nil
}

func (s *surface) Present(t gpu.NativeSurfaceTexture) error {
	_ = t.(*surfaceTexture).view.Release()
	s.b.mu.Lock()
	err := popErr(&s.b.presentErrs)
	s.b.mu.Unlock()
	return err
}

func (s *surface) Discard(t gpu.NativeSurfaceTexture) {
	_ = t.(*surfaceTexture).view.Release()
}

type surfaceTexture struct{ view *object }

func (t *surfaceTexture) View() gpu.NativeObject { return t.view }
func (t *surfaceTexture) Suboptimal() bool       { return false }

var (
	_ gpu.Backend              = &Backend{}
	_ gpu.NativeInstance       = &instance{}
	_ gpu.NativeAdapter        = &adapter{}
	_ gpu.NativeDevice         = &device{}
	_ gpu.NativeCommandEncoder = &encoder{}
	_ gpu.NativeRenderPass     = &pass{}
	_ gpu.NativeComputePass    = &pass{}
	_ gpu.NativeQueue          = &queue{}
	_ gpu.NativeSurface        = &surface{}
)
