package gpu

import (
	"github.com/gogpu/gputypes"
)

// RenderPipeline is an immutable compiled render state.
type RenderPipeline struct {
	resource
	layout       *PipelineLayout
	colorFormats []gputypes.TextureFormat
	depthFormat  gputypes.TextureFormat
	sampleCount  uint32
	topology     gputypes.PrimitiveTopology
}

// CreateRenderPipeline validates desc against the device limits and creates a render pipeline.
//
// Parameters:
//   - desc: the pipeline descriptor
//
// Returns:
//   - *RenderPipeline: the new pipeline
//   - error: ValidationError, StateError, or ResourceError
func (d *Device) CreateRenderPipeline(desc RenderPipelineDescriptor) (*RenderPipeline, error) {
	const op = "CreateRenderPipeline"
	if err := d.ready(op); err != nil {
		return nil, err
	}
	if err := d.validateRenderPipelineDescriptor(&desc); err != nil {
		return nil, err
	}
	native, err := d.native.CreateRenderPipeline(&desc)
	if err != nil {
		return nil, d.nativeFailure(op, err)
	}
	p := &RenderPipeline{layout: desc.Layout, sampleCount: desc.Multisample.Count, topology: desc.Primitive.Topology}
	if desc.Fragment != nil {
		for _, t := range desc.Fragment.Targets {
			p.colorFormats = append(p.colorFormats, t.Format)
		}
	}
	if desc.DepthStencil != nil {
		p.depthFormat = desc.DepthStencil.Format
	}
	p.adopt(d, "render pipeline", desc.Label, native)
	d.children.add(p)
	return p, nil
}

func (p *RenderPipeline) Layout() *PipelineLayout             { return p.layout }
func (p *RenderPipeline) DepthFormat() gputypes.TextureFormat { return p.depthFormat }
func (p *RenderPipeline) SampleCount() uint32                 { return p.sampleCount }
func (p *RenderPipeline) Topology() gputypes.PrimitiveTopology { return p.topology }

// triangles returns how many triangles count vertices or indices assemble into.
func (p *RenderPipeline) triangles(count uint32) int {
	switch p.topology {
	case gputypes.PrimitiveTopologyTriangleList:
		return int(count / 3)
	case gputypes.PrimitiveTopologyTriangleStrip:
		if count < 3 {
			return 0
		}
		return int(count - 2)
	}
	return 0
}

// ColorFormats returns the formats of the pipeline's color targets.
func (p *RenderPipeline) ColorFormats() []gputypes.TextureFormat {
	return append([]gputypes.TextureFormat(nil), p.colorFormats...)
}

// ComputePipeline is an immutable compiled compute state.
type ComputePipeline struct {
	resource
	layout *PipelineLayout
}

// CreateComputePipeline validates desc and creates a compute pipeline.
//
// Parameters:
//   - desc: the pipeline descriptor
//
// Returns:
//   - *ComputePipeline: the new pipeline
//   - error: ValidationError, StateError, or ResourceError
func (d *Device) CreateComputePipeline(desc ComputePipelineDescriptor) (*ComputePipeline, error) {
	const op = "CreateComputePipeline"
	if err := d.ready(op); err != nil {
		return nil, err
	}
	if err := d.validateComputePipelineDescriptor(&desc); err != nil {
		return nil, err
	}
	native, err := d.native.CreateComputePipeline(&desc)
	if err != nil {
		return nil, d.nativeFailure(op, err)
	}
	p := &ComputePipeline{layout: desc.Layout}
	p.adopt(d, "compute pipeline", desc.Label, native)
	d.children.add(p)
	return p, nil
}

func (p *ComputePipeline) Layout() *PipelineLayout { return p.layout }
