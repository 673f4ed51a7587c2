package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/Carmen-Shannon/materia/engine/shader"
	"github.com/gogpu/gputypes"
)

// BlendMode selects how the color target combines with what is already in the framebuffer.
type BlendMode int

const (
	// BlendOpaque replaces the destination.
	BlendOpaque BlendMode = iota

	// BlendAlpha mixes by source alpha.
	BlendAlpha

	// BlendPremultiplied mixes colors that already carry their alpha.
	BlendPremultiplied
)

func (m BlendMode) String() string {
	switch m {
	case BlendOpaque:
		return "opaque"
	case BlendAlpha:
		return "alpha"
	case BlendPremultiplied:
		return "premultiplied"
	}
	return fmt.Sprintf("BlendMode(%d)", int(m))
}

// Key is the structural identity of a render pipeline. Pipelines with equal keys are
// interchangeable, so a Key is what the Cache deduplicates on.
type Key struct {
	// VertexShader and FragmentShader are shader content hashes, see shader.Shader.Hash.
	VertexShader   uint64
	FragmentShader uint64
	// VertexLayout is the canonical form of the vertex buffer layouts, see VertexLayoutKey.
	VertexLayout string
	ColorFormat  gputypes.TextureFormat
	// DepthFormat is TextureFormatUndefined for pipelines without depth.
	DepthFormat  gputypes.TextureFormat
	DepthWrite   bool
	DepthCompare gputypes.CompareFunction
	Blend        BlendMode
	CullMode     gputypes.CullMode
	FrontFace    gputypes.FrontFace
	Topology     gputypes.PrimitiveTopology
	SampleCount  uint32
	WriteMask    gputypes.ColorWriteMask
}

func (k Key) String() string {
	return fmt.Sprintf("%016x+%016x [%s] %s/%s %s %s %s x%d", k.VertexShader, k.FragmentShader, k.VertexLayout,
		k.ColorFormat, k.DepthFormat, k.Blend, k.CullMode, k.Topology, k.SampleCount)
}

// VertexLayoutKey renders vertex buffer layouts in a canonical, comparable form.
//
// Parameters:
//   - layouts: the layouts in slot order
//
// Returns:
//   - string: equal for structurally equal layouts
func VertexLayoutKey(layouts []gputypes.VertexBufferLayout) string {
	var sb strings.Builder
	for i, l := range layouts {
		if i > 0 {
			sb.WriteByte('|')
		}
		fmt.Fprintf(&sb, "%d/%d:", l.ArrayStride, l.StepMode)
		for j, a := range l.Attributes {
			if j > 0 {
				sb.WriteByte(',')
			}
			fmt.Fprintf(&sb, "%d@%d>%d", a.Format, a.Offset, a.ShaderLocation)
		}
	}
	return sb.String()
}

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	label string

	vertexShader, fragmentShader shader.Shader
	vertexLayouts                []gputypes.VertexBufferLayout

	colorFormat         gputypes.TextureFormat
	depthFormat         gputypes.TextureFormat
	depthTestEnabled    bool
	depthWriteEnabled   bool
	depthBias           int32
	depthBiasSlopeScale float32
	blendMode           BlendMode
	cullMode            gputypes.CullMode
	topology            gputypes.PrimitiveTopology
	frontFace           gputypes.FrontFace
	writeMask           gputypes.ColorWriteMask
	sampleCount         uint32

	layout         *gpu.PipelineLayout
	renderPipeline *gpu.RenderPipeline
}

// Pipeline is a render pipeline configuration plus, once built, its device objects.
type Pipeline interface {
	// Key returns the structural identity of the configuration.
	//
	// Returns:
	//   - Key: the pipeline key
	Key() Key

	// Shader retrieves the shader of stage, or nil.
	//
	// Parameters:
	//   - stage: shader.StageVertex or shader.StageFragment
	//
	// Returns:
	//   - shader.Shader: the shader of that stage
	Shader(stage shader.Stage) shader.Shader

	// VertexLayouts returns the vertex buffer layouts in slot order.
	VertexLayouts() []gputypes.VertexBufferLayout

	// RenderPipeline returns the device pipeline, nil before Build.
	RenderPipeline() *gpu.RenderPipeline

	// Layout returns the pipeline layout, nil before Build.
	Layout() *gpu.PipelineLayout

	DepthTestEnabled() bool
	DepthWriteEnabled() bool
	DepthBias() int32
	DepthBiasSlopeScale() float32
	BlendMode() BlendMode
	CullMode() gputypes.CullMode
	Topology() gputypes.PrimitiveTopology
	FrontFace() gputypes.FrontFace
	WriteMask() gputypes.ColorWriteMask

	// BlendState returns the color target blend state, nil for BlendOpaque.
	//
	// Returns:
	//   - *gputypes.BlendState: the blend state
	BlendState() *gputypes.BlendState

	// Build creates the pipeline layout and render pipeline on device. Bind group layouts are
	// indexed by group and stay owned by the caller.
	//
	// Parameters:
	//   - device: the device to build on
	//   - groups: the bind group layouts, group 0 first
	//
	// Returns:
	//   - error: shader module or pipeline creation failure; nothing is left allocated
	Build(device *gpu.Device, groups []*gpu.BindGroupLayout) error

	// Release disposes the render pipeline and its layout.
	//
	// Returns:
	//   - error: joined disposal failures, or nil
	Release() error
}

var _ Pipeline = &pipeline{}

// NewPipeline creates an unbuilt render pipeline configuration for a vertex and fragment shader.
//
// Parameters:
//   - vertex: the vertex stage shader
//   - fragment: the fragment stage shader
//   - opts: builder options
//
// Returns:
//   - Pipeline: the configuration
func NewPipeline(vertex, fragment shader.Shader, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		label:             vertex.Key() + "+" + fragment.Key(),
		vertexShader:      vertex,
		fragmentShader:    fragment,
		colorFormat:       gputypes.TextureFormatBGRA8Unorm,
		depthFormat:       gputypes.TextureFormatUndefined,
		depthTestEnabled:  true,
		depthWriteEnabled: true,
		blendMode:         BlendOpaque,
		cullMode:          gputypes.CullModeNone,
		topology:          gputypes.PrimitiveTopologyTriangleList,
		frontFace:         gputypes.FrontFaceCCW,
		writeMask:         gputypes.ColorWriteMaskAll,
		sampleCount:       1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) Key() Key {
	k := Key{
		VertexShader:   p.vertexShader.Hash(),
		FragmentShader: p.fragmentShader.Hash(),
		VertexLayout:   VertexLayoutKey(p.vertexLayouts),
		ColorFormat:    p.colorFormat,
		DepthFormat:    p.depthFormat,
		Blend:          p.blendMode,
		CullMode:       p.cullMode,
		FrontFace:      p.frontFace,
		Topology:       p.topology,
		SampleCount:    p.sampleCount,
		WriteMask:      p.writeMask,
	}
	if ds := p.depthStencil(); ds != nil {
		k.DepthWrite = ds.DepthWriteEnabled
		k.DepthCompare = ds.DepthCompare
	}
	return k
}

func (p *pipeline) Shader(stage shader.Stage) shader.Shader {
	switch stage {
	case shader.StageVertex:
		return p.vertexShader
	case shader.StageFragment:
		return p.fragmentShader
	}
	return nil
}

func (p *pipeline) VertexLayouts() []gputypes.VertexBufferLayout { return p.vertexLayouts }
func (p *pipeline) RenderPipeline() *gpu.RenderPipeline          { return p.renderPipeline }
func (p *pipeline) Layout() *gpu.PipelineLayout                  { return p.layout }
func (p *pipeline) DepthTestEnabled() bool                       { return p.depthTestEnabled }
func (p *pipeline) DepthWriteEnabled() bool                      { return p.depthWriteEnabled }
func (p *pipeline) DepthBias() int32                             { return p.depthBias }
func (p *pipeline) DepthBiasSlopeScale() float32                 { return p.depthBiasSlopeScale }
func (p *pipeline) BlendMode() BlendMode                         { return p.blendMode }
func (p *pipeline) CullMode() gputypes.CullMode                  { return p.cullMode }
func (p *pipeline) Topology() gputypes.PrimitiveTopology         { return p.topology }
func (p *pipeline) FrontFace() gputypes.FrontFace                { return p.frontFace }
func (p *pipeline) WriteMask() gputypes.ColorWriteMask           { return p.writeMask }

func (p *pipeline) BlendState() *gputypes.BlendState {
	var bs gputypes.BlendState
	switch p.blendMode {
	case BlendAlpha:
		bs = gputypes.BlendStateAlpha()
	case BlendPremultiplied:
		bs = gputypes.BlendStatePremultiplied()
	default:
		return nil
	}
	return &bs
}

// depthStencil returns the depth state, nil when the pipeline renders without depth.
func (p *pipeline) depthStencil() *gpu.DepthStencilState {
	if p.depthFormat == gputypes.TextureFormatUndefined {
		return nil
	}
	ds := &gpu.DepthStencilState{
		Format:              p.depthFormat,
		DepthWriteEnabled:   p.depthWriteEnabled,
		DepthCompare:        gputypes.CompareFunctionAlways,
		DepthBias:           p.depthBias,
		DepthBiasSlopeScale: p.depthBiasSlopeScale,
	}
	if p.depthTestEnabled {
		ds.DepthCompare = gputypes.CompareFunctionLess
	}
	return ds
}

func (p *pipeline) Build(device *gpu.Device, groups []*gpu.BindGroupLayout) error {
	vs, err := p.vertexShader.Module(device)
	if err != nil {
		return fmt.Errorf("pipeline: %s: %w", p.label, err)
	}
	fs, err := p.fragmentShader.Module(device)
	if err != nil {
		return fmt.Errorf("pipeline: %s: %w", p.label, err)
	}

	layout, err := device.CreatePipelineLayout(gpu.PipelineLayoutDescriptor{Label: p.label, BindGroupLayouts: groups})
	if err != nil {
		return fmt.Errorf("pipeline: %s: layout: %w", p.label, err)
	}
	rp, err := device.CreateRenderPipeline(gpu.RenderPipelineDescriptor{
		Label:  p.label,
		Layout: layout,
		Vertex: gpu.VertexState{
			Module:     vs,
			EntryPoint: p.vertexShader.EntryPoint(),
			Buffers:    p.vertexLayouts,
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  p.topology,
			FrontFace: p.frontFace,
			CullMode:  p.cullMode,
		},
		DepthStencil: p.depthStencil(),
		Multisample:  gputypes.MultisampleState{Count: p.sampleCount},
		Fragment: &gpu.FragmentState{
			Module:     fs,
			EntryPoint: p.fragmentShader.EntryPoint(),
			Targets: []gputypes.ColorTargetState{{
				Format:    p.colorFormat,
				Blend:     p.BlendState(),
				WriteMask: p.writeMask,
			}},
		},
	})
	if err != nil {
		_ = layout.Dispose()
		return fmt.Errorf("pipeline: %s: %w", p.label, err)
	}
	p.layout, p.renderPipeline = layout, rp
	return nil
}

func (p *pipeline) Release() error {
	var errs []error
	if p.renderPipeline != nil {
		errs = append(errs, p.renderPipeline.Dispose())
		p.renderPipeline = nil
	}
	if p.layout != nil {
		errs = append(errs, p.layout.Dispose())
		p.layout = nil
	}
	return errors.Join(errs...)
}
