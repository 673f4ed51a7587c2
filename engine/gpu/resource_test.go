package gpu_test

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/Carmen-Shannon/materia/engine/gpu/gputest"
	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisposeIsIdempotent(t *testing.T) {
	f := newFixture(t)
	buf := f.buffer(t, 64, gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
	view := f.colorTarget(t)
	sampler, err := f.device.CreateSampler(gpu.SamplerDescriptor{LodMaxClamp: 32})
	require.NoError(t, err)

	for _, d := range []gpu.Disposable{buf, view, view.Texture(), sampler} {
		require.NoError(t, d.Dispose())
		live := f.backend.Live()
		assert.NoError(t, d.Dispose())
		assert.Equal(t, live, f.backend.Live())
	}
	assert.Zero(t, f.backend.DoubleReleases())
	assert.True(t, buf.Disposed())
	assert.Zero(t, f.device.LiveObjects())
}

func TestUseAfterDisposeIsStateError(t *testing.T) {
	f := newFixture(t)
	buf := f.buffer(t, 16, gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	require.NoError(t, buf.Dispose())

	err := buf.Write([]byte{1, 2, 3, 4}, 0)
	var se *gpu.StateError
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, gpu.ErrDisposed)
}

func TestTextureDisposesViewsFirst(t *testing.T) {
	f := newFixture(t)
	view := f.colorTarget(t)
	tex := view.Texture()
	second, err := tex.CreateView(&gpu.TextureViewDescriptor{Label: "second"})
	require.NoError(t, err)

	require.NoError(t, tex.Dispose())
	assert.True(t, view.Disposed())
	assert.True(t, second.Disposed())
	_, err = tex.CreateView(nil)
	assert.ErrorIs(t, err, gpu.ErrDisposed)
}

func TestDeviceDisposeInvalidatesChildren(t *testing.T) {
	f := newFixture(t)
	buf := f.buffer(t, 64, gputypes.BufferUsageVertex)
	view := f.colorTarget(t)
	p := f.pipeline(t, gputypes.TextureFormatRGBA8Unorm)
	enc, err := f.device.CreateCommandEncoder("pending")
	require.NoError(t, err)

	require.NoError(t, f.device.Dispose())
	for _, h := range []interface{ Disposed() bool }{buf, view, view.Texture(), p, enc, f.device} {
		assert.True(t, h.Disposed())
	}
	// Instance and adapter remain.
	assert.Equal(t, 2, f.backend.Live(), f.backend.LiveKinds())

	_, err = f.device.CreateBuffer(gpu.BufferDescriptor{Size: 4, Usage: gputypes.BufferUsageVertex})
	assert.ErrorIs(t, err, gpu.ErrDisposed)

	require.NoError(t, f.instance.Dispose())
	assert.Zero(t, f.backend.Live())
	assert.Zero(t, f.backend.DoubleReleases())
}

func TestCreateBufferValidation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name  string
		desc  gpu.BufferDescriptor
		field string
	}{
		{"zero size", gpu.BufferDescriptor{Size: 0, Usage: gputypes.BufferUsageVertex}, "Size"},
		{"negative size", gpu.BufferDescriptor{Size: -4, Usage: gputypes.BufferUsageVertex}, "Size"},
		{"no usage", gpu.BufferDescriptor{Size: 16}, "Usage"},
		{"map read with vertex", gpu.BufferDescriptor{Size: 16, Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageVertex}, "Usage"},
		{"map write with copy dst", gpu.BufferDescriptor{Size: 16, Usage: gputypes.BufferUsageMapWrite | gputypes.BufferUsageCopyDst}, "Usage"},
		{"unaligned mapped", gpu.BufferDescriptor{Size: 6, Usage: gputypes.BufferUsageVertex, MappedAtCreation: true}, "Size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			created := f.backend.Created()
			_, err := f.device.CreateBuffer(tt.desc)
			var ve *gpu.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, created, f.backend.Created(), "native API must not be reached")
		})
	}
}

func TestBufferWriteBounds(t *testing.T) {
	f := newFixture(t)
	buf := f.buffer(t, 16, gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)

	require.NoError(t, buf.Write(make([]byte, 16), 0))
	require.NoError(t, buf.WriteFloats([]float32{1, 2}, 8))

	var ve *gpu.ValidationError
	assert.ErrorAs(t, buf.Write(make([]byte, 8), 12), &ve)
	assert.ErrorAs(t, buf.Write(make([]byte, 4), 2), &ve)
	assert.ErrorAs(t, buf.WriteFloats([]float32{1, 2, 3, 4, 5}, 0), &ve)

	readOnly := f.buffer(t, 16, gputypes.BufferUsageVertex)
	assert.ErrorAs(t, readOnly.Write(make([]byte, 4), 0), &ve)
	assert.Equal(t, "usage", ve.Field)
}

func TestCreateTextureValidation(t *testing.T) {
	f := newFixture(t)
	base := gpu.TextureDescriptor{
		Size:   gputypes.Extent3D{Width: 256, Height: 256},
		Format: gputypes.TextureFormatRGBA8Unorm,
		Usage:  gputypes.TextureUsageTextureBinding,
	}
	tests := []struct {
		name   string
		mutate func(*gpu.TextureDescriptor)
		field  string
	}{
		{"zero width", func(d *gpu.TextureDescriptor) { d.Size.Width = 0 }, "Size"},
		{"too large", func(d *gpu.TextureDescriptor) { d.Size.Width = 1 << 20 }, "Size"},
		{"too many mips", func(d *gpu.TextureDescriptor) { d.MipLevelCount = 10 }, "MipLevelCount"},
		{"sample count 2", func(d *gpu.TextureDescriptor) { d.SampleCount = 2 }, "SampleCount"},
		{"multisample without attachment", func(d *gpu.TextureDescriptor) { d.SampleCount = 4 }, "Usage"},
		{"no usage", func(d *gpu.TextureDescriptor) { d.Usage = gputypes.TextureUsageNone }, "Usage"},
		{"no format", func(d *gpu.TextureDescriptor) { d.Format = gputypes.TextureFormatUndefined }, "Format"},
		{"depth storage", func(d *gpu.TextureDescriptor) {
			d.Format = gputypes.TextureFormatDepth32Float
			d.Usage = gputypes.TextureUsageStorageBinding
		}, "Usage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := base
			tt.mutate(&desc)
			_, err := f.device.CreateTexture(desc)
			var ve *gpu.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}

	desc := base
	desc.MipLevelCount = 9
	tex, err := f.device.CreateTexture(desc)
	require.NoError(t, err)
	assert.Equal(t, uint32(9), tex.MipLevelCount())
	assert.Equal(t, uint32(1), tex.SampleCount())
}

func TestShaderModuleIsOpaque(t *testing.T) {
	f := newFixture(t)
	m, err := f.device.CreateShaderModule(gpu.ShaderModuleDescriptor{Code: "not parsed", Language: gpu.ShaderLanguageWGSL})
	require.NoError(t, err)
	assert.Equal(t, "not parsed", m.Code())
	assert.Equal(t, gpu.ShaderLanguageWGSL, m.Language())

	var ve *gpu.ValidationError
	_, err = f.device.CreateShaderModule(gpu.ShaderModuleDescriptor{Language: gpu.ShaderLanguageWGSL})
	assert.ErrorAs(t, err, &ve)
	_, err = f.device.CreateShaderModule(gpu.ShaderModuleDescriptor{Code: "abc", Language: gpu.ShaderLanguageSPIRV})
	assert.ErrorAs(t, err, &ve)
}

func TestBindGroupValidation(t *testing.T) {
	f := newFixture(t)
	layout, err := f.device.CreateBindGroupLayout(gpu.BindGroupLayoutDescriptor{
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageVertex, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageFragment, Sampler: &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering}},
		},
	})
	require.NoError(t, err)
	uniform := f.buffer(t, 64, gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	vertex := f.buffer(t, 64, gputypes.BufferUsageVertex)
	sampler, err := f.device.CreateSampler(gpu.SamplerDescriptor{})
	require.NoError(t, err)

	tests := []struct {
		name    string
		entries []gpu.BindGroupEntry
	}{
		{"missing binding", []gpu.BindGroupEntry{{Binding: 0, Buffer: uniform}}},
		{"wrong kind", []gpu.BindGroupEntry{{Binding: 0, Sampler: sampler}, {Binding: 1, Sampler: sampler}}},
		{"wrong usage", []gpu.BindGroupEntry{{Binding: 0, Buffer: vertex}, {Binding: 1, Sampler: sampler}}},
		{"out of range", []gpu.BindGroupEntry{{Binding: 0, Buffer: uniform, Size: 128}, {Binding: 1, Sampler: sampler}}},
		{"unknown binding", []gpu.BindGroupEntry{{Binding: 0, Buffer: uniform}, {Binding: 1, Sampler: sampler}, {Binding: 7, Sampler: sampler}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.device.CreateBindGroup(gpu.BindGroupDescriptor{Layout: layout, Entries: tt.entries})
			var ve *gpu.ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}

	g, err := f.device.CreateBindGroup(gpu.BindGroupDescriptor{
		Layout:  layout,
		Entries: []gpu.BindGroupEntry{{Binding: 0, Buffer: uniform}, {Binding: 1, Sampler: sampler}},
	})
	require.NoError(t, err)
	assert.Same(t, layout, g.Layout())
}

func TestBindGroupLayoutValidation(t *testing.T) {
	f := newFixture(t)
	var ve *gpu.ValidationError
	_, err := f.device.CreateBindGroupLayout(gpu.BindGroupLayoutDescriptor{
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageVertex, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 0, Visibility: gputypes.ShaderStageVertex, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
		},
	})
	assert.ErrorAs(t, err, &ve)

	_, err = f.device.CreateBindGroupLayout(gpu.BindGroupLayoutDescriptor{
		Entries: []gputypes.BindGroupLayoutEntry{{Binding: 0, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}}},
	})
	assert.ErrorAs(t, err, &ve)
	assert.Equal(t, "Entries.Visibility", ve.Field)
}

func TestRenderPipelineValidation(t *testing.T) {
	f := newFixture(t, gputest.WithLimits(func() gputypes.Limits {
		l := gputypes.DefaultLimits()
		l.MaxVertexAttributes = 1
		return l
	}()))
	mod, err := f.device.CreateShaderModule(gpu.ShaderModuleDescriptor{Code: "x", Language: gpu.ShaderLanguageWGSL})
	require.NoError(t, err)
	layout, err := f.device.CreatePipelineLayout(gpu.PipelineLayoutDescriptor{})
	require.NoError(t, err)

	desc := gpu.RenderPipelineDescriptor{
		Layout: layout,
		Vertex: gpu.VertexState{Module: mod, EntryPoint: "vs", Buffers: []gputypes.VertexBufferLayout{{
			ArrayStride: 20,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x3, ShaderLocation: 0},
				{Format: gputypes.VertexFormatFloat32x2, Offset: 12, ShaderLocation: 1},
			},
		}}},
		Fragment: &gpu.FragmentState{Module: mod, EntryPoint: "fs", Targets: []gputypes.ColorTargetState{{Format: gputypes.TextureFormatBGRA8Unorm}}},
	}
	var ve *gpu.ValidationError
	_, err = f.device.CreateRenderPipeline(desc)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Vertex.Buffers", ve.Field)

	desc.Vertex.Buffers[0].Attributes = desc.Vertex.Buffers[0].Attributes[:1]
	desc.DepthStencil = &gpu.DepthStencilState{Format: gputypes.TextureFormatRGBA8Unorm}
	_, err = f.device.CreateRenderPipeline(desc)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "DepthStencil.Format", ve.Field)

	desc.DepthStencil = nil
	desc.Vertex.EntryPoint = ""
	_, err = f.device.CreateRenderPipeline(desc)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Vertex.EntryPoint", ve.Field)
}

func TestNativeCreationFailureIsResourceError(t *testing.T) {
	f := newFixture(t)
	f.backend.FailCreateAt(1)
	_, err := f.device.CreateBuffer(gpu.BufferDescriptor{Size: 16, Usage: gputypes.BufferUsageVertex})
	var re *gpu.ResourceError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, gpu.ResourceAllocationFailed, re.Kind)
	assert.True(t, gpu.IsRecoverable(err))
	assert.Zero(t, f.device.LiveObjects())
}

func TestResourceFromAnotherDevice(t *testing.T) {
	f := newFixture(t)
	other, err := f.adapter.RequestDevice(t.Context(), gpu.DeviceDescriptor{Label: "other"})
	require.NoError(t, err)
	foreign, err := other.CreateBuffer(gpu.BufferDescriptor{Size: 64, Usage: gputypes.BufferUsageUniform})
	require.NoError(t, err)
	layout, err := f.device.CreateBindGroupLayout(gpu.BindGroupLayoutDescriptor{
		Entries: []gputypes.BindGroupLayoutEntry{{Binding: 0, Visibility: gputypes.ShaderStageVertex, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}}},
	})
	require.NoError(t, err)

	_, err = f.device.CreateBindGroup(gpu.BindGroupDescriptor{Layout: layout, Entries: []gpu.BindGroupEntry{{Binding: 0, Buffer: foreign}}})
	var ve *gpu.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Reason, "another device")
	assert.False(t, errors.Is(err, gpu.ErrDisposed))
}
