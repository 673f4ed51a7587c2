package gpu

import (
	"slices"

	"github.com/gogpu/gputypes"
)

// BindGroupLayout is the schema of a bind group: binding numbers, stage visibility and resource types.
type BindGroupLayout struct {
	resource
	entries []gputypes.BindGroupLayoutEntry
}

// CreateBindGroupLayout validates desc and creates a layout.
//
// Parameters:
//   - desc: the layout entries
//
// Returns:
//   - *BindGroupLayout: the new layout
//   - error: ValidationError, StateError, or ResourceError
func (d *Device) CreateBindGroupLayout(desc BindGroupLayoutDescriptor) (*BindGroupLayout, error) {
	const op = "CreateBindGroupLayout"
	if err := d.ready(op); err != nil {
		return nil, err
	}
	if err := validateBindGroupLayoutDescriptor(&desc, d.limits); err != nil {
		return nil, err
	}
	native, err := d.native.CreateBindGroupLayout(&desc)
	if err != nil {
		return nil, d.nativeFailure(op, err)
	}
	l := &BindGroupLayout{entries: slices.Clone(desc.Entries)}
	l.adopt(d, "bind group layout", desc.Label, native)
	d.children.add(l)
	return l, nil
}

// Entries returns a copy of the layout entries.
func (l *BindGroupLayout) Entries() []gputypes.BindGroupLayoutEntry { return slices.Clone(l.entries) }

// BindGroup is a concrete binding of resources against a layout.
type BindGroup struct {
	resource
	layout *BindGroupLayout
}

// CreateBindGroup validates that every layout entry is bound exactly once with a resource of
// the declared type, then creates the group.
//
// Parameters:
//   - desc: the layout and resources
//
// Returns:
//   - *BindGroup: the new group
//   - error: ValidationError, StateError, or ResourceError
func (d *Device) CreateBindGroup(desc BindGroupDescriptor) (*BindGroup, error) {
	const op = "CreateBindGroup"
	if err := d.ready(op); err != nil {
		return nil, err
	}
	if err := d.validateBindGroupDescriptor(&desc); err != nil {
		return nil, err
	}
	native, err := d.native.CreateBindGroup(&desc)
	if err != nil {
		return nil, d.nativeFailure(op, err)
	}
	g := &BindGroup{layout: desc.Layout}
	g.adopt(d, "bind group", desc.Label, native)
	d.children.add(g)
	return g, nil
}

// Layout returns the layout the group was built against.
func (g *BindGroup) Layout() *BindGroupLayout { return g.layout }

// PipelineLayout maps bind group indices to layouts for a pipeline.
type PipelineLayout struct {
	resource
	groups []*BindGroupLayout
}

// CreatePipelineLayout validates desc and creates a pipeline layout.
//
// Parameters:
//   - desc: the bind group layouts, indexed by group
//
// Returns:
//   - *PipelineLayout: the new layout
//   - error: ValidationError, StateError, or ResourceError
func (d *Device) CreatePipelineLayout(desc PipelineLayoutDescriptor) (*PipelineLayout, error) {
	const op = "CreatePipelineLayout"
	if err := d.ready(op); err != nil {
		return nil, err
	}
	if err := d.validatePipelineLayoutDescriptor(&desc); err != nil {
		return nil, err
	}
	native, err := d.native.CreatePipelineLayout(&desc)
	if err != nil {
		return nil, d.nativeFailure(op, err)
	}
	l := &PipelineLayout{groups: slices.Clone(desc.BindGroupLayouts)}
	l.adopt(d, "pipeline layout", desc.Label, native)
	d.children.add(l)
	return l, nil
}

// BindGroupLayouts returns the group layouts in index order.
func (l *PipelineLayout) BindGroupLayouts() []*BindGroupLayout { return slices.Clone(l.groups) }
