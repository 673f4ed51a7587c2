package bind_group_provider

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/gogpu/gputypes"
)

// Uniform declares one uniform buffer binding of a bind group.
type Uniform struct {
	// Binding is the slot index inside the group.
	Binding uint32
	// Size is the byte size of the backing buffer and the minimum binding size.
	Size int64
	// Visibility lists the shader stages that read the binding.
	Visibility gputypes.ShaderStages
}

// LayoutEntries converts uniform declarations to bind group layout entries.
//
// Parameters:
//   - uniforms: the uniform bindings
//
// Returns:
//   - []gputypes.BindGroupLayoutEntry: one buffer entry per uniform
func LayoutEntries(uniforms ...Uniform) []gputypes.BindGroupLayoutEntry {
	entries := make([]gputypes.BindGroupLayoutEntry, 0, len(uniforms))
	for _, u := range uniforms {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    u.Binding,
			Visibility: u.Visibility,
			Buffer: &gputypes.BufferBindingLayout{
				Type:           gputypes.BufferBindingTypeUniform,
				MinBindingSize: uint64(u.Size),
			},
		})
	}
	return entries
}

// NewLayout creates a bind group layout for uniforms that many providers can share.
//
// Parameters:
//   - device: the device to create the layout on
//   - label: debug label
//   - uniforms: the uniform bindings
//
// Returns:
//   - *gpu.BindGroupLayout: the layout, owned by the caller
//   - error: the device error
func NewLayout(device *gpu.Device, label string, uniforms ...Uniform) (*gpu.BindGroupLayout, error) {
	return device.CreateBindGroupLayout(gpu.BindGroupLayoutDescriptor{Label: label, Entries: LayoutEntries(uniforms...)})
}

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string
	// group is the bind group index the provider is bound at.
	group    uint32
	uniforms []Uniform

	// The following fields are GPU allocated resources, populated by Init.

	bindGroup *gpu.BindGroup
	// bindGroupLayout is either shared (set by WithBindGroupLayout) or created and owned by Init.
	bindGroupLayout *gpu.BindGroupLayout
	ownsLayout      bool
	// buffers holds the uniform buffers keyed by binding index.
	buffers map[uint32]*gpu.Buffer
}

// BindGroupProvider owns the uniform buffers and the bind group of one bind group slot.
// Components (Camera, Light, scene objects, Material) hold a provider to describe their GPU binding
// requirements; the Renderer initializes it once and rewrites the uniforms every frame.
//
// Usage pattern:
//  1. Component creates a provider with its uniform declarations and group index
//  2. Renderer calls Init(device) to create the buffers and the bind group
//  3. Renderer calls Write, or Apply with batched BufferWrites, to update uniforms
//  4. Renderer binds BindGroup() at Group() for draw calls
type BindGroupProvider interface {
	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Group returns the bind group index the provider binds at.
	//
	// Returns:
	//   - uint32: the group index
	Group() uint32

	// Uniforms returns the uniform declarations.
	Uniforms() []Uniform

	// Init creates the layout (unless one is shared), one COPY_DST uniform buffer per binding and
	// the bind group. On failure everything created so far is released. Calling Init on an
	// initialized provider does nothing.
	//
	// Parameters:
	//   - device: the device to allocate on
	//
	// Returns:
	//   - error: the device error
	Init(device *gpu.Device) error

	// Initialized reports whether Init succeeded and Release has not run since.
	Initialized() bool

	// BindGroup returns the created bind group, or nil if not initialized.
	//
	// Returns:
	//   - *gpu.BindGroup: the bind group or nil
	BindGroup() *gpu.BindGroup

	// BindGroupLayout returns the layout the bind group was created against, or nil.
	//
	// Returns:
	//   - *gpu.BindGroupLayout: the layout or nil
	BindGroupLayout() *gpu.BindGroupLayout

	// Buffer returns the uniform buffer of a binding, or nil.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *gpu.Buffer: the buffer or nil
	Buffer(binding uint32) *gpu.Buffer

	// Write uploads data into the uniform buffer of binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - offset: byte offset into the buffer
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: StateError before Init, or the buffer write error
	Write(binding uint32, offset int64, data []byte) error

	// Release releases the buffers, the bind group and an owned layout. A shared layout stays
	// with its owner.
	//
	// Returns:
	//   - error: joined disposal failures, or nil
	Release() error
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates an uninitialized BindGroupProvider with the provided options.
//
// Parameters:
//   - label: debug label of the created GPU objects
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new instance of BindGroupProvider configured with the provided options
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:   label,
		buffers: make(map[uint32]*gpu.Buffer),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string                         { return p.label }
func (p *bindGroupProvider) Group() uint32                         { return p.group }
func (p *bindGroupProvider) Uniforms() []Uniform                   { return slices.Clone(p.uniforms) }
func (p *bindGroupProvider) Initialized() bool                     { return p.bindGroup != nil }
func (p *bindGroupProvider) BindGroup() *gpu.BindGroup             { return p.bindGroup }
func (p *bindGroupProvider) BindGroupLayout() *gpu.BindGroupLayout { return p.bindGroupLayout }
func (p *bindGroupProvider) Buffer(binding uint32) *gpu.Buffer     { return p.buffers[binding] }

func (p *bindGroupProvider) Init(device *gpu.Device) error {
	if p.bindGroup != nil {
		return nil
	}
	if p.bindGroupLayout == nil {
		layout, err := NewLayout(device, p.label, p.uniforms...)
		if err != nil {
			return fmt.Errorf("bind group %s: %w", p.label, err)
		}
		p.bindGroupLayout, p.ownsLayout = layout, true
	}

	entries := make([]gpu.BindGroupEntry, 0, len(p.uniforms))
	for _, u := range p.uniforms {
		buf, err := device.CreateBuffer(gpu.BufferDescriptor{
			Label: fmt.Sprintf("%s.%d", p.label, u.Binding),
			Size:  u.Size,
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			_ = p.Release()
			return fmt.Errorf("bind group %s: binding %d: %w", p.label, u.Binding, err)
		}
		p.buffers[u.Binding] = buf
		entries = append(entries, gpu.BindGroupEntry{Binding: u.Binding, Buffer: buf, Size: uint64(u.Size)})
	}

	bg, err := device.CreateBindGroup(gpu.BindGroupDescriptor{Label: p.label, Layout: p.bindGroupLayout, Entries: entries})
	if err != nil {
		_ = p.Release()
		return fmt.Errorf("bind group %s: %w", p.label, err)
	}
	p.bindGroup = bg
	return nil
}

func (p *bindGroupProvider) Write(binding uint32, offset int64, data []byte) error {
	buf := p.buffers[binding]
	if buf == nil {
		return &gpu.StateError{Op: "BindGroupProvider.Write", Reason: fmt.Sprintf("%s: binding %d has no buffer", p.label, binding)}
	}
	return buf.Write(data, offset)
}

func (p *bindGroupProvider) Release() error {
	var errs []error
	if p.bindGroup != nil {
		errs = append(errs, p.bindGroup.Dispose())
		p.bindGroup = nil
	}
	for binding, buf := range p.buffers {
		errs = append(errs, buf.Dispose())
		delete(p.buffers, binding)
	}
	if p.ownsLayout && p.bindGroupLayout != nil {
		errs = append(errs, p.bindGroupLayout.Dispose())
		p.bindGroupLayout, p.ownsLayout = nil, false
	}
	return errors.Join(errs...)
}
