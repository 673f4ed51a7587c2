package webgpu_backend

import (
	"fmt"

	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/gputypes"
)

// converter translates gputypes values to wgpu values and keeps the first unsupported one.
type converter struct {
	op  string
	err error
}

func lookup[K comparable, V any](c *converter, table map[K]V, k K, field string) V {
	v, ok := table[k]
	if !ok && c.err == nil {
		c.err = &gpu.ValidationError{Op: c.op, Field: field, Reason: fmt.Sprintf("%v is not supported by the webgpu backend", k)}
	}
	return v
}

type bitset interface {
	~uint32 | ~uint64
}

func flags[K, V bitset](table map[K]V, f K) V {
	var out V
	for k, v := range table {
		if f&k != 0 {
			out |= v
		}
	}
	return out
}

func invert[K, V comparable](table map[K]V) map[V]K {
	out := make(map[V]K, len(table))
	for k, v := range table {
		out[v] = k
	}
	return out
}

var textureFormats = map[gputypes.TextureFormat]wgpu.TextureFormat{
	gputypes.TextureFormatUndefined:           wgpu.TextureFormatUndefined,
	gputypes.TextureFormatR16Uint:             wgpu.TextureFormatR16Uint,
	gputypes.TextureFormatR16Sint:             wgpu.TextureFormatR16Sint,
	gputypes.TextureFormatR32Float:            wgpu.TextureFormatR32Float,
	gputypes.TextureFormatR32Uint:             wgpu.TextureFormatR32Uint,
	gputypes.TextureFormatR32Sint:             wgpu.TextureFormatR32Sint,
	gputypes.TextureFormatRG32Float:           wgpu.TextureFormatRG32Float,
	gputypes.TextureFormatRG32Uint:            wgpu.TextureFormatRG32Uint,
	gputypes.TextureFormatRG32Sint:            wgpu.TextureFormatRG32Sint,
	gputypes.TextureFormatRGBA8Unorm:          wgpu.TextureFormatRGBA8Unorm,
	gputypes.TextureFormatRGBA8UnormSrgb:      wgpu.TextureFormatRGBA8UnormSrgb,
	gputypes.TextureFormatRGBA8Snorm:          wgpu.TextureFormatRGBA8Snorm,
	gputypes.TextureFormatRGBA8Uint:           wgpu.TextureFormatRGBA8Uint,
	gputypes.TextureFormatRGBA8Sint:           wgpu.TextureFormatRGBA8Sint,
	gputypes.TextureFormatBGRA8Unorm:          wgpu.TextureFormatBGRA8Unorm,
	gputypes.TextureFormatBGRA8UnormSrgb:      wgpu.TextureFormatBGRA8UnormSrgb,
	gputypes.TextureFormatRGBA16Float:         wgpu.TextureFormatRGBA16Float,
	gputypes.TextureFormatRGBA16Uint:          wgpu.TextureFormatRGBA16Uint,
	gputypes.TextureFormatRGBA16Sint:          wgpu.TextureFormatRGBA16Sint,
	gputypes.TextureFormatRGBA32Float:         wgpu.TextureFormatRGBA32Float,
	gputypes.TextureFormatRGBA32Uint:          wgpu.TextureFormatRGBA32Uint,
	gputypes.TextureFormatRGBA32Sint:          wgpu.TextureFormatRGBA32Sint,
	gputypes.TextureFormatDepth24Plus:         wgpu.TextureFormatDepth24Plus,
	gputypes.TextureFormatDepth24PlusStencil8: wgpu.TextureFormatDepth24PlusStencil8,
	gputypes.TextureFormatDepth32Float:        wgpu.TextureFormatDepth32Float,
}

var textureFormatsBack = invert(textureFormats)

var vertexFormats = map[gputypes.VertexFormat]wgpu.VertexFormat{
	gputypes.VertexFormatFloat16x2: wgpu.VertexFormatFloat16x2,
	gputypes.VertexFormatFloat16x4: wgpu.VertexFormatFloat16x4,
	gputypes.VertexFormatFloat32:   wgpu.VertexFormatFloat32,
	gputypes.VertexFormatFloat32x2: wgpu.VertexFormatFloat32x2,
	gputypes.VertexFormatFloat32x3: wgpu.VertexFormatFloat32x3,
	gputypes.VertexFormatFloat32x4: wgpu.VertexFormatFloat32x4,
	gputypes.VertexFormatUint32:    wgpu.VertexFormatUint32,
	gputypes.VertexFormatUint32x2:  wgpu.VertexFormatUint32x2,
	gputypes.VertexFormatUint32x3:  wgpu.VertexFormatUint32x3,
	gputypes.VertexFormatUint32x4:  wgpu.VertexFormatUint32x4,
	gputypes.VertexFormatSint32:    wgpu.VertexFormatSint32,
	gputypes.VertexFormatSint32x2:  wgpu.VertexFormatSint32x2,
	gputypes.VertexFormatSint32x3:  wgpu.VertexFormatSint32x3,
	gputypes.VertexFormatSint32x4:  wgpu.VertexFormatSint32x4,
}

var textureDimensions = map[gputypes.TextureDimension]wgpu.TextureDimension{
	gputypes.TextureDimensionUndefined: wgpu.TextureDimension2D,
	gputypes.TextureDimension1D:        wgpu.TextureDimension1D,
	gputypes.TextureDimension2D:        wgpu.TextureDimension2D,
	gputypes.TextureDimension3D:        wgpu.TextureDimension3D,
}

var viewDimensions = map[gputypes.TextureViewDimension]wgpu.TextureViewDimension{
	gputypes.TextureViewDimensionUndefined: wgpu.TextureViewDimensionUndefined,
	gputypes.TextureViewDimension1D:        wgpu.TextureViewDimension1D,
	gputypes.TextureViewDimension2D:        wgpu.TextureViewDimension2D,
	gputypes.TextureViewDimension2DArray:   wgpu.TextureViewDimension2DArray,
	gputypes.TextureViewDimensionCube:      wgpu.TextureViewDimensionCube,
	gputypes.TextureViewDimensionCubeArray: wgpu.TextureViewDimensionCubeArray,
	gputypes.TextureViewDimension3D:        wgpu.TextureViewDimension3D,
}

var textureAspects = map[gputypes.TextureAspect]wgpu.TextureAspect{
	gputypes.TextureAspectUndefined:   wgpu.TextureAspectAll,
	gputypes.TextureAspectAll:         wgpu.TextureAspectAll,
	gputypes.TextureAspectDepthOnly:   wgpu.TextureAspectDepthOnly,
	gputypes.TextureAspectStencilOnly: wgpu.TextureAspectStencilOnly,
}

var addressModes = map[gputypes.AddressMode]wgpu.AddressMode{
	gputypes.AddressModeUndefined:    wgpu.AddressModeClampToEdge,
	gputypes.AddressModeClampToEdge:  wgpu.AddressModeClampToEdge,
	gputypes.AddressModeRepeat:       wgpu.AddressModeRepeat,
	gputypes.AddressModeMirrorRepeat: wgpu.AddressModeMirrorRepeat,
}

var filterModes = map[gputypes.FilterMode]wgpu.FilterMode{
	gputypes.FilterModeUndefined: wgpu.FilterModeNearest,
	gputypes.FilterModeNearest:   wgpu.FilterModeNearest,
	gputypes.FilterModeLinear:    wgpu.FilterModeLinear,
}

var mipmapFilterModes = map[gputypes.FilterMode]wgpu.MipmapFilterMode{
	gputypes.FilterModeUndefined: wgpu.MipmapFilterModeNearest,
	gputypes.FilterModeNearest:   wgpu.MipmapFilterModeNearest,
	gputypes.FilterModeLinear:    wgpu.MipmapFilterModeLinear,
}

var compareFunctions = map[gputypes.CompareFunction]wgpu.CompareFunction{
	gputypes.CompareFunctionUndefined:    wgpu.CompareFunctionUndefined,
	gputypes.CompareFunctionNever:        wgpu.CompareFunctionNever,
	gputypes.CompareFunctionLess:         wgpu.CompareFunctionLess,
	gputypes.CompareFunctionEqual:        wgpu.CompareFunctionEqual,
	gputypes.CompareFunctionLessEqual:    wgpu.CompareFunctionLessEqual,
	gputypes.CompareFunctionGreater:      wgpu.CompareFunctionGreater,
	gputypes.CompareFunctionNotEqual:     wgpu.CompareFunctionNotEqual,
	gputypes.CompareFunctionGreaterEqual: wgpu.CompareFunctionGreaterEqual,
	gputypes.CompareFunctionAlways:       wgpu.CompareFunctionAlways,
}

var topologies = map[gputypes.PrimitiveTopology]wgpu.PrimitiveTopology{
	gputypes.PrimitiveTopologyPointList:     wgpu.PrimitiveTopologyPointList,
	gputypes.PrimitiveTopologyLineList:      wgpu.PrimitiveTopologyLineList,
	gputypes.PrimitiveTopologyLineStrip:     wgpu.PrimitiveTopologyLineStrip,
	gputypes.PrimitiveTopologyTriangleList:  wgpu.PrimitiveTopologyTriangleList,
	gputypes.PrimitiveTopologyTriangleStrip: wgpu.PrimitiveTopologyTriangleStrip,
}

var frontFaces = map[gputypes.FrontFace]wgpu.FrontFace{
	gputypes.FrontFaceCCW: wgpu.FrontFaceCCW,
	gputypes.FrontFaceCW:  wgpu.FrontFaceCW,
}

var cullModes = map[gputypes.CullMode]wgpu.CullMode{
	gputypes.CullModeNone:  wgpu.CullModeNone,
	gputypes.CullModeFront: wgpu.CullModeFront,
	gputypes.CullModeBack:  wgpu.CullModeBack,
}

var indexFormats = map[gputypes.IndexFormat]wgpu.IndexFormat{
	gputypes.IndexFormatUint16: wgpu.IndexFormatUint16,
	gputypes.IndexFormatUint32: wgpu.IndexFormatUint32,
}

var stepModes = map[gputypes.VertexStepMode]wgpu.VertexStepMode{
	gputypes.VertexStepModeUndefined: wgpu.VertexStepModeVertex,
	gputypes.VertexStepModeVertex:    wgpu.VertexStepModeVertex,
	gputypes.VertexStepModeInstance:  wgpu.VertexStepModeInstance,
}

var blendFactors = map[gputypes.BlendFactor]wgpu.BlendFactor{
	gputypes.BlendFactorZero:              wgpu.BlendFactorZero,
	gputypes.BlendFactorOne:               wgpu.BlendFactorOne,
	gputypes.BlendFactorSrc:               wgpu.BlendFactorSrc,
	gputypes.BlendFactorOneMinusSrc:       wgpu.BlendFactorOneMinusSrc,
	gputypes.BlendFactorSrcAlpha:          wgpu.BlendFactorSrcAlpha,
	gputypes.BlendFactorOneMinusSrcAlpha:  wgpu.BlendFactorOneMinusSrcAlpha,
	gputypes.BlendFactorDst:               wgpu.BlendFactorDst,
	gputypes.BlendFactorOneMinusDst:       wgpu.BlendFactorOneMinusDst,
	gputypes.BlendFactorDstAlpha:          wgpu.BlendFactorDstAlpha,
	gputypes.BlendFactorOneMinusDstAlpha:  wgpu.BlendFactorOneMinusDstAlpha,
	gputypes.BlendFactorSrcAlphaSaturated: wgpu.BlendFactorSrcAlphaSaturated,
	gputypes.BlendFactorConstant:          wgpu.BlendFactorConstant,
	gputypes.BlendFactorOneMinusConstant:  wgpu.BlendFactorOneMinusConstant,
}

var blendOperations = map[gputypes.BlendOperation]wgpu.BlendOperation{
	gputypes.BlendOperationAdd:             wgpu.BlendOperationAdd,
	gputypes.BlendOperationSubtract:        wgpu.BlendOperationSubtract,
	gputypes.BlendOperationReverseSubtract: wgpu.BlendOperationReverseSubtract,
	gputypes.BlendOperationMin:             wgpu.BlendOperationMin,
	gputypes.BlendOperationMax:             wgpu.BlendOperationMax,
}

var loadOps = map[gputypes.LoadOp]wgpu.LoadOp{
	gputypes.LoadOpClear: wgpu.LoadOpClear,
	gputypes.LoadOpLoad:  wgpu.LoadOpLoad,
}

var storeOps = map[gputypes.StoreOp]wgpu.StoreOp{
	gputypes.StoreOpStore:   wgpu.StoreOpStore,
	gputypes.StoreOpDiscard: wgpu.StoreOpDiscard,
}

var presentModes = map[gputypes.PresentMode]wgpu.PresentMode{
	gputypes.PresentModeFifo:        wgpu.PresentModeFifo,
	gputypes.PresentModeFifoRelaxed: wgpu.PresentModeFifoRelaxed,
	gputypes.PresentModeImmediate:   wgpu.PresentModeImmediate,
	gputypes.PresentModeMailbox:     wgpu.PresentModeMailbox,
}

var presentModesBack = invert(presentModes)

var alphaModes = map[gputypes.CompositeAlphaMode]wgpu.CompositeAlphaMode{
	gputypes.CompositeAlphaModeAuto:            wgpu.CompositeAlphaModeAuto,
	gputypes.CompositeAlphaModeOpaque:          wgpu.CompositeAlphaModeOpaque,
	gputypes.CompositeAlphaModePremultiplied:   wgpu.CompositeAlphaModePremultiplied,
	gputypes.CompositeAlphaModeUnpremultiplied: wgpu.CompositeAlphaModeUnpremultiplied,
	gputypes.CompositeAlphaModeInherit:         wgpu.CompositeAlphaModeInherit,
}

var alphaModesBack = invert(alphaModes)

var bufferBindingTypes = map[gputypes.BufferBindingType]wgpu.BufferBindingType{
	gputypes.BufferBindingTypeUndefined:       wgpu.BufferBindingTypeUndefined,
	gputypes.BufferBindingTypeUniform:         wgpu.BufferBindingTypeUniform,
	gputypes.BufferBindingTypeStorage:         wgpu.BufferBindingTypeStorage,
	gputypes.BufferBindingTypeReadOnlyStorage: wgpu.BufferBindingTypeReadOnlyStorage,
}

var samplerBindingTypes = map[gputypes.SamplerBindingType]wgpu.SamplerBindingType{
	gputypes.SamplerBindingTypeUndefined:   wgpu.SamplerBindingTypeUndefined,
	gputypes.SamplerBindingTypeFiltering:   wgpu.SamplerBindingTypeFiltering,
	gputypes.SamplerBindingTypeNonFiltering: wgpu.SamplerBindingTypeNonFiltering,
	gputypes.SamplerBindingTypeComparison:  wgpu.SamplerBindingTypeComparison,
}

var sampleTypes = map[gputypes.TextureSampleType]wgpu.TextureSampleType{
	gputypes.TextureSampleTypeUndefined:         wgpu.TextureSampleTypeUndefined,
	gputypes.TextureSampleTypeFloat:             wgpu.TextureSampleTypeFloat,
	gputypes.TextureSampleTypeUnfilterableFloat: wgpu.TextureSampleTypeUnfilterableFloat,
	gputypes.TextureSampleTypeDepth:             wgpu.TextureSampleTypeDepth,
	gputypes.TextureSampleTypeSint:              wgpu.TextureSampleTypeSint,
	gputypes.TextureSampleTypeUint:              wgpu.TextureSampleTypeUint,
}

var storageAccesses = map[gputypes.StorageTextureAccess]wgpu.StorageTextureAccess{
	gputypes.StorageTextureAccessUndefined: wgpu.StorageTextureAccessUndefined,
	gputypes.StorageTextureAccessWriteOnly: wgpu.StorageTextureAccessWriteOnly,
	gputypes.StorageTextureAccessReadOnly:  wgpu.StorageTextureAccessReadOnly,
	gputypes.StorageTextureAccessReadWrite: wgpu.StorageTextureAccessReadWrite,
}

var bufferUsages = map[gputypes.BufferUsage]wgpu.BufferUsage{
	gputypes.BufferUsageMapRead:      wgpu.BufferUsageMapRead,
	gputypes.BufferUsageMapWrite:     wgpu.BufferUsageMapWrite,
	gputypes.BufferUsageCopySrc:      wgpu.BufferUsageCopySrc,
	gputypes.BufferUsageCopyDst:      wgpu.BufferUsageCopyDst,
	gputypes.BufferUsageIndex:        wgpu.BufferUsageIndex,
	gputypes.BufferUsageVertex:       wgpu.BufferUsageVertex,
	gputypes.BufferUsageUniform:      wgpu.BufferUsageUniform,
	gputypes.BufferUsageStorage:      wgpu.BufferUsageStorage,
	gputypes.BufferUsageIndirect:     wgpu.BufferUsageIndirect,
	gputypes.BufferUsageQueryResolve: wgpu.BufferUsageQueryResolve,
}

var textureUsages = map[gputypes.TextureUsage]wgpu.TextureUsage{
	gputypes.TextureUsageCopySrc:          wgpu.TextureUsageCopySrc,
	gputypes.TextureUsageCopyDst:          wgpu.TextureUsageCopyDst,
	gputypes.TextureUsageTextureBinding:   wgpu.TextureUsageTextureBinding,
	gputypes.TextureUsageStorageBinding:   wgpu.TextureUsageStorageBinding,
	gputypes.TextureUsageRenderAttachment: wgpu.TextureUsageRenderAttachment,
}

var shaderStages = map[gputypes.ShaderStage]wgpu.ShaderStage{
	gputypes.ShaderStageVertex:   wgpu.ShaderStageVertex,
	gputypes.ShaderStageFragment: wgpu.ShaderStageFragment,
	gputypes.ShaderStageCompute:  wgpu.ShaderStageCompute,
}

var colorWriteMasks = map[gputypes.ColorWriteMask]wgpu.ColorWriteMask{
	gputypes.ColorWriteMaskRed:   wgpu.ColorWriteMaskRed,
	gputypes.ColorWriteMaskGreen: wgpu.ColorWriteMaskGreen,
	gputypes.ColorWriteMaskBlue:  wgpu.ColorWriteMaskBlue,
	gputypes.ColorWriteMaskAlpha: wgpu.ColorWriteMaskAlpha,
}

var features = map[gputypes.Feature]wgpu.FeatureName{
	gputypes.FeatureDepthClipControl:         wgpu.FeatureNameDepthClipControl,
	gputypes.FeatureDepth32FloatStencil8:     wgpu.FeatureNameDepth32FloatStencil8,
	gputypes.FeatureTextureCompressionBC:     wgpu.FeatureNameTextureCompressionBC,
	gputypes.FeatureTextureCompressionETC2:   wgpu.FeatureNameTextureCompressionETC2,
	gputypes.FeatureTextureCompressionASTC:   wgpu.FeatureNameTextureCompressionASTC,
	gputypes.FeatureIndirectFirstInstance:    wgpu.FeatureNameIndirectFirstInstance,
	gputypes.FeatureShaderF16:                wgpu.FeatureNameShaderF16,
	gputypes.FeatureRG11B10UfloatRenderable:  wgpu.FeatureNameRG11B10UfloatRenderable,
	gputypes.FeatureBGRA8UnormStorage:        wgpu.FeatureNameBGRA8UnormStorage,
	gputypes.FeatureFloat32Filterable:        wgpu.FeatureNameFloat32Filterable,
	gputypes.FeatureTimestampQuery:           wgpu.FeatureNameTimestampQuery,
}

var deviceTypes = map[wgpu.AdapterType]gputypes.DeviceType{
	wgpu.AdapterTypeDiscreteGPU:   gputypes.DeviceTypeDiscreteGPU,
	wgpu.AdapterTypeIntegratedGPU: gputypes.DeviceTypeIntegratedGPU,
	wgpu.AdapterTypeCPU:           gputypes.DeviceTypeCPU,
	wgpu.AdapterTypeUnknown:       gputypes.DeviceTypeOther,
}

func toColor(c gputypes.Color) wgpu.Color {
	return wgpu.Color{R: c.R, G: c.G, B: c.B, A: c.A}
}

func toExtent(e gputypes.Extent3D) wgpu.Extent3D {
	return wgpu.Extent3D{Width: e.Width, Height: e.Height, DepthOrArrayLayers: max(e.DepthOrArrayLayers, 1)}
}

func (c *converter) blend(b *gputypes.BlendState) *wgpu.BlendState {
	if b == nil {
		return nil
	}
	component := func(bc gputypes.BlendComponent, field string) wgpu.BlendComponent {
		return wgpu.BlendComponent{
			SrcFactor: lookup(c, blendFactors, bc.SrcFactor, field+".SrcFactor"),
			DstFactor: lookup(c, blendFactors, bc.DstFactor, field+".DstFactor"),
			Operation: lookup(c, blendOperations, bc.Operation, field+".Operation"),
		}
	}
	return &wgpu.BlendState{
		Color: component(b.Color, "Blend.Color"),
		Alpha: component(b.Alpha, "Blend.Alpha"),
	}
}

func (c *converter) vertexLayouts(layouts []gputypes.VertexBufferLayout) []wgpu.VertexBufferLayout {
	out := make([]wgpu.VertexBufferLayout, len(layouts))
	for i, l := range layouts {
		attrs := make([]wgpu.VertexAttribute, len(l.Attributes))
		for j, a := range l.Attributes {
			attrs[j] = wgpu.VertexAttribute{
				Format:         lookup(c, vertexFormats, a.Format, "Vertex.Buffers.Attributes.Format"),
				Offset:         a.Offset,
				ShaderLocation: a.ShaderLocation,
			}
		}
		out[i] = wgpu.VertexBufferLayout{
			ArrayStride: l.ArrayStride,
			StepMode:    lookup(c, stepModes, l.StepMode, "Vertex.Buffers.StepMode"),
			Attributes:  attrs,
		}
	}
	return out
}

func (c *converter) layoutEntries(entries []gputypes.BindGroupLayoutEntry) []wgpu.BindGroupLayoutEntry {
	out := make([]wgpu.BindGroupLayoutEntry, len(entries))
	for i, e := range entries {
		out[i] = wgpu.BindGroupLayoutEntry{
			Binding:    e.Binding,
			Visibility: flags(shaderStages, e.Visibility),
		}
		if e.Buffer != nil {
			out[i].Buffer.Type = lookup(c, bufferBindingTypes, e.Buffer.Type, "Entries.Buffer.Type")
			out[i].Buffer.HasDynamicOffset = e.Buffer.HasDynamicOffset
			out[i].Buffer.MinBindingSize = e.Buffer.MinBindingSize
		}
		if e.Sampler != nil {
			out[i].Sampler.Type = lookup(c, samplerBindingTypes, e.Sampler.Type, "Entries.Sampler.Type")
		}
		if e.Texture != nil {
			out[i].Texture.SampleType = lookup(c, sampleTypes, e.Texture.SampleType, "Entries.Texture.SampleType")
			out[i].Texture.ViewDimension = lookup(c, viewDimensions, e.Texture.ViewDimension, "Entries.Texture.ViewDimension")
			out[i].Texture.Multisampled = e.Texture.Multisampled
		}
		if e.StorageTexture != nil {
			out[i].StorageTexture.Access = lookup(c, storageAccesses, e.StorageTexture.Access, "Entries.StorageTexture.Access")
			out[i].StorageTexture.Format = lookup(c, textureFormats, e.StorageTexture.Format, "Entries.StorageTexture.Format")
			out[i].StorageTexture.ViewDimension = lookup(c, viewDimensions, e.StorageTexture.ViewDimension, "Entries.StorageTexture.ViewDimension")
		}
	}
	return out
}

// fromLimits overlays the limits the core validates against onto the WebGPU defaults.
func fromLimits(l wgpu.Limits) gputypes.Limits {
	out := gputypes.DefaultLimits()
	out.MaxTextureDimension1D = uint32(l.MaxTextureDimension1D)
	out.MaxTextureDimension2D = uint32(l.MaxTextureDimension2D)
	out.MaxTextureDimension3D = uint32(l.MaxTextureDimension3D)
	out.MaxTextureArrayLayers = uint32(l.MaxTextureArrayLayers)
	out.MaxBindGroups = uint32(l.MaxBindGroups)
	out.MaxBindingsPerBindGroup = uint32(l.MaxBindingsPerBindGroup)
	out.MinUniformBufferOffsetAlignment = uint32(l.MinUniformBufferOffsetAlignment)
	out.MinStorageBufferOffsetAlignment = uint32(l.MinStorageBufferOffsetAlignment)
	out.MaxVertexBuffers = uint32(l.MaxVertexBuffers)
	out.MaxVertexAttributes = uint32(l.MaxVertexAttributes)
	out.MaxColorAttachments = uint32(l.MaxColorAttachments)
	out.MaxComputeWorkgroupsPerDimension = uint32(l.MaxComputeWorkgroupsPerDimension)
	return out
}

func set[T bitset](dst *T, v uint64) { *dst = T(v) }

// toLimits raises base to the requested limits.
func toLimits(base wgpu.Limits, want gputypes.Limits) wgpu.Limits {
	set(&base.MaxTextureDimension1D, uint64(want.MaxTextureDimension1D))
	set(&base.MaxTextureDimension2D, uint64(want.MaxTextureDimension2D))
	set(&base.MaxTextureDimension3D, uint64(want.MaxTextureDimension3D))
	set(&base.MaxTextureArrayLayers, uint64(want.MaxTextureArrayLayers))
	set(&base.MaxBindGroups, uint64(want.MaxBindGroups))
	set(&base.MaxVertexBuffers, uint64(want.MaxVertexBuffers))
	set(&base.MaxVertexAttributes, uint64(want.MaxVertexAttributes))
	return base
}
