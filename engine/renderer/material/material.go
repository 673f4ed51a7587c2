package material

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/Carmen-Shannon/materia/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/materia/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/materia/engine/shader"
	"github.com/gogpu/gputypes"
)

// Group is the bind group index of material uniforms.
const Group = 2

// Feature is a pipeline variant a material requires. Features combine into a FeatureSet.
type Feature uint32

const (
	// FeatureAlphaBlend renders with alpha blending instead of replacing the target.
	FeatureAlphaBlend Feature = 1 << iota
	// FeatureDoubleSided disables back-face culling.
	FeatureDoubleSided
	// FeatureNoDepthWrite tests against depth without writing it.
	FeatureNoDepthWrite
	// FeatureWireframe draws edges as a line list.
	FeatureWireframe
)

// FeatureSet is a bitmask of Features.
type FeatureSet uint32

// Has reports whether f is in the set.
func (s FeatureSet) Has(f Feature) bool { return s&FeatureSet(f) != 0 }

func (s FeatureSet) String() string {
	if s == 0 {
		return "none"
	}
	var names []string
	for _, f := range []struct {
		f    Feature
		name string
	}{
		{FeatureAlphaBlend, "alpha-blend"},
		{FeatureDoubleSided, "double-sided"},
		{FeatureNoDepthWrite, "no-depth-write"},
		{FeatureWireframe, "wireframe"},
	} {
		if s.Has(f.f) {
			names = append(names, f.name)
		}
	}
	return strings.Join(names, "|")
}

// Uniform is the material uniform declaration at binding 0 of group 2.
var Uniform = bind_group_provider.Uniform{
	Binding:    0,
	Size:       GPUMaterialSize,
	Visibility: gputypes.ShaderStageFragment,
}

var nextID atomic.Uint64

// material is the implementation of the Material interface.
type material struct {
	id        uint64
	name      string
	baseColor [4]float32
	features  FeatureSet

	vertexShader   shader.Shader
	fragmentShader shader.Shader

	bindGroupProvider bind_group_provider.BindGroupProvider
	dirty             bool
}

// Material defines a render material: surface properties, the shader pair it is drawn with,
// the pipeline features it requires and the group 2 bind group holding its uniform.
//
// Surface properties are mutable; a change marks the uniform dirty and the next Upload rewrites it.
// GPU resources are created by Init during the renderer's first use of the material.
type Material interface {
	// ID retrieves the process-unique material identity.
	//
	// Returns:
	//   - uint64: the material id
	ID() uint64

	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// BaseColor retrieves the albedo RGBA color of the material.
	//
	// Returns:
	//   - [4]float32: the base color as RGBA values
	BaseColor() [4]float32

	// SetBaseColor changes the base color and marks the uniform dirty.
	//
	// Parameters:
	//   - color: the base color as RGBA values
	SetBaseColor(color [4]float32)

	// Features retrieves the pipeline features the material requires.
	//
	// Returns:
	//   - FeatureSet: the required features
	Features() FeatureSet

	// Shaders retrieves the vertex and fragment shaders.
	//
	// Returns:
	//   - shader.Shader: the vertex shader
	//   - shader.Shader: the fragment shader
	Shaders() (shader.Shader, shader.Shader)

	// PipelineOptions translates the feature set into pipeline builder options.
	//
	// Returns:
	//   - []pipeline.PipelineBuilderOption: the options for the material's pipeline variant
	PipelineOptions() []pipeline.PipelineBuilderOption

	// Init creates the group 2 bind group against layout and uploads the uniform. Calling Init on an
	// initialized material does nothing.
	//
	// Parameters:
	//   - device: the device to allocate on
	//   - layout: the shared material bind group layout
	//
	// Returns:
	//   - error: the allocation or upload error
	Init(device *gpu.Device, layout *gpu.BindGroupLayout) error

	// Upload rewrites the uniform if it changed since the last upload.
	//
	// Returns:
	//   - error: the buffer write error
	Upload() error

	// BindGroupProvider retrieves the group 2 provider, or nil before Init.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the bind group provider, or nil
	BindGroupProvider() bind_group_provider.BindGroupProvider

	// Release releases the material's GPU resources. Shaders are shared and stay alive.
	//
	// Returns:
	//   - error: joined disposal failures, or nil
	Release() error
}

var _ Material = &material{}

// NewMaterial creates a new Material instance configured with the provided options. Without
// shader options the material draws with the built-in unlit shader.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
//   - error: shader resolution error
func NewMaterial(options ...MaterialBuilderOption) (Material, error) {
	m := &material{
		id:        nextID.Add(1),
		baseColor: [4]float32{1, 1, 1, 1},
		dirty:     true,
	}
	for _, opt := range options {
		opt(m)
	}
	if m.name == "" {
		m.name = fmt.Sprintf("material-%d", m.id)
	}
	if m.vertexShader == nil || m.fragmentShader == nil {
		vs, fs, err := unlitShaders()
		if err != nil {
			return nil, err
		}
		if m.vertexShader == nil {
			m.vertexShader = vs
		}
		if m.fragmentShader == nil {
			m.fragmentShader = fs
		}
	}
	return m, nil
}

var (
	unlitOnce sync.Once
	unlit     struct {
		vs, fs shader.Shader
		err    error
	}
)

// unlitShaders returns the process-wide unlit shader pair, so default materials share one
// module per device.
func unlitShaders() (shader.Shader, shader.Shader, error) {
	unlitOnce.Do(func() {
		unlit.vs, unlit.err = shader.NewShader(shader.UnlitVertex())
		if unlit.err != nil {
			return
		}
		unlit.fs, unlit.err = shader.NewShader(shader.UnlitFragment())
	})
	return unlit.vs, unlit.fs, unlit.err
}

func (m *material) ID() uint64            { return m.id }
func (m *material) Name() string          { return m.name }
func (m *material) BaseColor() [4]float32 { return m.baseColor }
func (m *material) Features() FeatureSet  { return m.features }

func (m *material) SetBaseColor(color [4]float32) {
	if color != m.baseColor {
		m.baseColor = color
		m.dirty = true
	}
}

func (m *material) Shaders() (shader.Shader, shader.Shader) {
	return m.vertexShader, m.fragmentShader
}

func (m *material) PipelineOptions() []pipeline.PipelineBuilderOption {
	opts := []pipeline.PipelineBuilderOption{pipeline.WithCullMode(gputypes.CullModeBack)}
	if m.features.Has(FeatureAlphaBlend) {
		opts = append(opts, pipeline.WithBlendMode(pipeline.BlendAlpha))
	}
	if m.features.Has(FeatureDoubleSided) {
		opts = append(opts, pipeline.WithCullMode(gputypes.CullModeNone))
	}
	if m.features.Has(FeatureNoDepthWrite) {
		opts = append(opts, pipeline.WithDepthWriteEnabled(false))
	}
	if m.features.Has(FeatureWireframe) {
		opts = append(opts, pipeline.WithTopology(gputypes.PrimitiveTopologyLineList))
	}
	return opts
}

func (m *material) BindGroupProvider() bind_group_provider.BindGroupProvider {
	return m.bindGroupProvider
}

func (m *material) Init(device *gpu.Device, layout *gpu.BindGroupLayout) error {
	if m.bindGroupProvider != nil && m.bindGroupProvider.Initialized() {
		return nil
	}
	p := bind_group_provider.NewBindGroupProvider(m.name,
		bind_group_provider.WithGroup(Group),
		bind_group_provider.WithUniform(Uniform),
		bind_group_provider.WithBindGroupLayout(layout),
	)
	if err := p.Init(device); err != nil {
		return fmt.Errorf("material %s: %w", m.name, err)
	}
	m.bindGroupProvider = p
	m.dirty = true
	return m.Upload()
}

func (m *material) Upload() error {
	if !m.dirty || m.bindGroupProvider == nil {
		return nil
	}
	u := GPUMaterial{BaseColor: m.baseColor}
	if err := m.bindGroupProvider.Write(Uniform.Binding, 0, u.Marshal()); err != nil {
		return fmt.Errorf("material %s: %w", m.name, err)
	}
	m.dirty = false
	return nil
}

func (m *material) Release() error {
	if m.bindGroupProvider == nil {
		return nil
	}
	err := m.bindGroupProvider.Release()
	m.bindGroupProvider = nil
	m.dirty = true
	return err
}
