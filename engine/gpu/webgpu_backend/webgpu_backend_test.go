package webgpu_backend

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackend_Available(t *testing.T) {
	assert.True(t, New(WithGOOS("linux")).Available())
	assert.False(t, New(WithGOOS("android")).Available())
	assert.True(t, New(WithPlatforms("android"), WithGOOS("android")).Available())
	assert.Equal(t, ID, New().ID())
}

func TestBackend_Registered(t *testing.T) {
	b, err := gpu.LookupBackend(ID)
	require.NoError(t, err)
	assert.Equal(t, ID, b.ID())
}

func TestLookup_RecordsFirstUnsupportedValue(t *testing.T) {
	c := &converter{op: "CreateTexture"}
	assert.Equal(t, wgpu.TextureFormatRGBA8Unorm, lookup(c, textureFormats, gputypes.TextureFormatRGBA8Unorm, "Format"))
	assert.NoError(t, c.err)

	lookup(c, textureFormats, gputypes.TextureFormatBC1RGBAUnorm, "Format")
	lookup(c, vertexFormats, gputypes.VertexFormatUint8x2, "Vertex")

	var ve *gpu.ValidationError
	require.ErrorAs(t, c.err, &ve)
	assert.Equal(t, "CreateTexture", ve.Op)
	assert.Equal(t, "Format", ve.Field)
	assert.Contains(t, ve.Reason, "not supported by the webgpu backend")
}

func TestEnumTables_TranslateByName(t *testing.T) {
	assert.Equal(t, wgpu.LoadOpClear, loadOps[gputypes.LoadOpClear])
	assert.Equal(t, wgpu.LoadOpLoad, loadOps[gputypes.LoadOpLoad])
	assert.Equal(t, wgpu.PresentModeFifo, presentModes[gputypes.PresentModeFifo])
	assert.Equal(t, wgpu.TextureFormatDepth24Plus, textureFormats[gputypes.TextureFormatDepth24Plus])
	assert.Equal(t, wgpu.TextureAspectAll, textureAspects[gputypes.TextureAspectUndefined])
	assert.Len(t, textureFormatsBack, len(textureFormats))
	assert.Len(t, presentModesBack, len(presentModes))
	assert.Len(t, alphaModesBack, len(alphaModes))
}

func TestFlags(t *testing.T) {
	assert.Equal(t, wgpu.BufferUsageVertex|wgpu.BufferUsageCopyDst,
		flags(bufferUsages, gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst))
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment,
		flags(shaderStages, gputypes.ShaderStageVertex|gputypes.ShaderStageFragment))
	assert.Equal(t, wgpu.TextureUsage(0), flags(textureUsages, gputypes.TextureUsage(0)))
}

func TestLimits(t *testing.T) {
	base := wgpu.DefaultLimits()
	want := gputypes.DefaultLimits()
	want.MaxBindGroups = 8
	got := toLimits(base, want)
	assert.EqualValues(t, 8, got.MaxBindGroups)

	back := fromLimits(got)
	assert.Equal(t, uint32(8), back.MaxBindGroups)
	assert.Equal(t, want.MaxTextureDimension2D, back.MaxTextureDimension2D)
}

func TestBlend(t *testing.T) {
	c := &converter{op: "CreateRenderPipeline"}
	assert.Nil(t, c.blend(nil))

	state := gputypes.BlendStateReplace()
	b := c.blend(&state)
	require.NotNil(t, b)
	assert.Equal(t, wgpu.BlendFactorOne, b.Color.SrcFactor)
	assert.Equal(t, wgpu.BlendFactorZero, b.Color.DstFactor)
	assert.Equal(t, wgpu.BlendOperationAdd, b.Alpha.Operation)
	assert.NoError(t, c.err)
}

func TestLayoutEntries(t *testing.T) {
	c := &converter{op: "CreateBindGroupLayout"}
	entries := c.layoutEntries([]gputypes.BindGroupLayoutEntry{
		{Binding: 0, Visibility: gputypes.ShaderStageVertex, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
		{Binding: 1, Visibility: gputypes.ShaderStageFragment, Sampler: &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering}},
	})
	require.NoError(t, c.err)
	require.Len(t, entries, 2)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, entries[0].Buffer.Type)
	assert.Equal(t, wgpu.SamplerBindingTypeUndefined, entries[0].Sampler.Type)
	assert.Equal(t, wgpu.SamplerBindingTypeFiltering, entries[1].Sampler.Type)
	assert.Equal(t, wgpu.ShaderStageFragment, entries[1].Visibility)
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		msg  string
		kind gpu.ResourceKind
	}{
		{"Device lost: driver reset", gpu.ResourceDeviceLost},
		{"surface texture is Outdated", gpu.ResourceSwapchainOutOfDate},
		{"Out of memory", gpu.ResourceOutOfMemory},
		{"validation failed", gpu.ResourceAllocationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			cause := errors.New(tt.msg)
			var re *gpu.ResourceError
			require.ErrorAs(t, translate("op", cause), &re)
			assert.Equal(t, tt.kind, re.Kind)
			assert.ErrorIs(t, re, cause)
		})
	}
	assert.NoError(t, translate("op", nil))
}

func TestCreateSurface_RequiresDescriber(t *testing.T) {
	i := &instance{}
	_, err := i.CreateSurface(gpu.HeadlessTarget{Width: 1, Height: 1})
	var re *gpu.ResourceError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, gpu.ResourceSurfaceLost, re.Kind)
}

func TestAdapter_SupportsMultisample(t *testing.T) {
	a := &adapter{}
	assert.True(t, a.SupportsMultisample(gputypes.TextureFormatBGRA8Unorm, 4))
	assert.True(t, a.SupportsMultisample(gputypes.TextureFormatBGRA8Unorm, 1))
	assert.False(t, a.SupportsMultisample(gputypes.TextureFormatBGRA8Unorm, 8))
}
