package gpu

import (
	"math/bits"

	"github.com/gogpu/gputypes"
)

func validateBufferDescriptor(desc *BufferDescriptor) error {
	const op = "CreateBuffer"
	if desc.Size <= 0 {
		return invalid(op, "Size", "must be > 0, got %d", desc.Size)
	}
	if desc.Usage == gputypes.BufferUsageNone {
		return invalid(op, "Usage", "must not be empty")
	}
	if desc.Usage.ContainsUnknownBits() {
		return invalid(op, "Usage", "contains unknown bits %#x", uint64(desc.Usage))
	}
	if desc.Usage.Contains(gputypes.BufferUsageMapRead) &&
		desc.Usage&^(gputypes.BufferUsageMapRead|gputypes.BufferUsageCopyDst) != 0 {
		return invalid(op, "Usage", "MAP_READ may only be combined with COPY_DST")
	}
	if desc.Usage.Contains(gputypes.BufferUsageMapWrite) &&
		desc.Usage&^(gputypes.BufferUsageMapWrite|gputypes.BufferUsageCopySrc) != 0 {
		return invalid(op, "Usage", "MAP_WRITE may only be combined with COPY_SRC")
	}
	if desc.MappedAtCreation && desc.Size%4 != 0 {
		return invalid(op, "Size", "must be a multiple of 4 when mapped at creation, got %d", desc.Size)
	}
	return nil
}

// maxMipLevels returns floor(log2(max dimension)) + 1.
func maxMipLevels(size gputypes.Extent3D, dim gputypes.TextureDimension) uint32 {
	m := size.Width
	if dim != gputypes.TextureDimension1D {
		m = max(m, size.Height)
	}
	if dim == gputypes.TextureDimension3D {
		m = max(m, size.DepthOrArrayLayers)
	}
	return uint32(bits.Len32(m))
}

// normalizeTextureDescriptor applies the defaults for zero-valued optional fields.
func normalizeTextureDescriptor(desc *TextureDescriptor) {
	if desc.Dimension == gputypes.TextureDimensionUndefined {
		desc.Dimension = gputypes.TextureDimension2D
	}
	if desc.Size.DepthOrArrayLayers == 0 {
		desc.Size.DepthOrArrayLayers = 1
	}
	if desc.MipLevelCount == 0 {
		desc.MipLevelCount = 1
	}
	if desc.SampleCount == 0 {
		desc.SampleCount = 1
	}
}

func validateTextureDescriptor(desc *TextureDescriptor, limits gputypes.Limits) error {
	const op = "CreateTexture"
	s := desc.Size
	if s.Width == 0 || s.Height == 0 || s.DepthOrArrayLayers == 0 {
		return invalid(op, "Size", "all dimensions must be > 0, got %dx%dx%d", s.Width, s.Height, s.DepthOrArrayLayers)
	}
	switch desc.Dimension {
	case gputypes.TextureDimension1D:
		if s.Height != 1 || s.DepthOrArrayLayers != 1 {
			return invalid(op, "Size", "1D textures must have height and depth 1")
		}
		if s.Width > limits.MaxTextureDimension1D {
			return invalid(op, "Size.Width", "%d exceeds limit %d", s.Width, limits.MaxTextureDimension1D)
		}
	case gputypes.TextureDimension2D:
		if s.Width > limits.MaxTextureDimension2D || s.Height > limits.MaxTextureDimension2D {
			return invalid(op, "Size", "%dx%d exceeds limit %d", s.Width, s.Height, limits.MaxTextureDimension2D)
		}
		if s.DepthOrArrayLayers > limits.MaxTextureArrayLayers {
			return invalid(op, "Size.DepthOrArrayLayers", "%d exceeds limit %d", s.DepthOrArrayLayers, limits.MaxTextureArrayLayers)
		}
	case gputypes.TextureDimension3D:
		if max(s.Width, s.Height, s.DepthOrArrayLayers) > limits.MaxTextureDimension3D {
			return invalid(op, "Size", "exceeds 3D limit %d", limits.MaxTextureDimension3D)
		}
	default:
		return invalid(op, "Dimension", "unknown dimension %d", desc.Dimension)
	}
	if maxMips := maxMipLevels(s, desc.Dimension); desc.MipLevelCount > maxMips {
		return invalid(op, "MipLevelCount", "%d exceeds maximum %d for this size", desc.MipLevelCount, maxMips)
	}
	if desc.Format == gputypes.TextureFormatUndefined {
		return invalid(op, "Format", "must be set")
	}
	if desc.Usage == gputypes.TextureUsageNone {
		return invalid(op, "Usage", "must not be empty")
	}
	if desc.Usage.ContainsUnknownBits() {
		return invalid(op, "Usage", "contains unknown bits %#x", uint64(desc.Usage))
	}
	if desc.Format.IsDepthStencil() {
		if desc.Usage.Contains(gputypes.TextureUsageStorageBinding) {
			return invalid(op, "Usage", "depth/stencil format %s cannot be used as a storage binding", desc.Format)
		}
		if desc.Dimension != gputypes.TextureDimension2D {
			return invalid(op, "Dimension", "depth/stencil format %s requires a 2D texture", desc.Format)
		}
	}
	switch desc.SampleCount {
	case 1:
	case 4:
		if desc.MipLevelCount != 1 {
			return invalid(op, "MipLevelCount", "multisampled textures must have exactly one mip level")
		}
		if desc.Dimension != gputypes.TextureDimension2D || s.DepthOrArrayLayers != 1 {
			return invalid(op, "Dimension", "multisampled textures must be single-layer 2D")
		}
		if !desc.Usage.Contains(gputypes.TextureUsageRenderAttachment) {
			return invalid(op, "Usage", "multisampled textures require RENDER_ATTACHMENT")
		}
		if desc.Usage.Contains(gputypes.TextureUsageStorageBinding) {
			return invalid(op, "Usage", "multisampled textures cannot be storage bindings")
		}
	default:
		return invalid(op, "SampleCount", "must be 1 or 4, got %d", desc.SampleCount)
	}
	return nil
}

// resolveViewDescriptor fills inherited fields and checks the view against its texture.
func resolveViewDescriptor(tex *TextureDescriptor, desc *TextureViewDescriptor) error {
	const op = "CreateView"
	if desc.Format == gputypes.TextureFormatUndefined {
		desc.Format = tex.Format
	} else if desc.Format != tex.Format {
		return invalid(op, "Format", "%s does not match texture format %s", desc.Format, tex.Format)
	}
	if desc.Dimension == gputypes.TextureViewDimensionUndefined {
		switch tex.Dimension {
		case gputypes.TextureDimension1D:
			desc.Dimension = gputypes.TextureViewDimension1D
		case gputypes.TextureDimension3D:
			desc.Dimension = gputypes.TextureViewDimension3D
		default:
			desc.Dimension = gputypes.TextureViewDimension2D
			if tex.Size.DepthOrArrayLayers > 1 {
				desc.Dimension = gputypes.TextureViewDimension2DArray
			}
		}
	}
	if desc.BaseMipLevel >= tex.MipLevelCount {
		return invalid(op, "BaseMipLevel", "%d out of range for %d levels", desc.BaseMipLevel, tex.MipLevelCount)
	}
	if desc.MipLevelCount == 0 {
		desc.MipLevelCount = tex.MipLevelCount - desc.BaseMipLevel
	}
	if desc.BaseMipLevel+desc.MipLevelCount > tex.MipLevelCount {
		return invalid(op, "MipLevelCount", "range %d+%d exceeds %d levels", desc.BaseMipLevel, desc.MipLevelCount, tex.MipLevelCount)
	}
	layers := uint32(1)
	if tex.Dimension == gputypes.TextureDimension2D {
		layers = tex.Size.DepthOrArrayLayers
	}
	if desc.BaseArrayLayer >= layers {
		return invalid(op, "BaseArrayLayer", "%d out of range for %d layers", desc.BaseArrayLayer, layers)
	}
	if desc.ArrayLayerCount == 0 {
		desc.ArrayLayerCount = layers - desc.BaseArrayLayer
	}
	if desc.BaseArrayLayer+desc.ArrayLayerCount > layers {
		return invalid(op, "ArrayLayerCount", "range %d+%d exceeds %d layers", desc.BaseArrayLayer, desc.ArrayLayerCount, layers)
	}
	return nil
}

func validateSamplerDescriptor(desc *SamplerDescriptor) error {
	const op = "CreateSampler"
	if desc.LodMinClamp < 0 {
		return invalid(op, "LodMinClamp", "must be >= 0, got %v", desc.LodMinClamp)
	}
	if desc.LodMinClamp > desc.LodMaxClamp {
		return invalid(op, "LodMaxClamp", "%v is below LodMinClamp %v", desc.LodMaxClamp, desc.LodMinClamp)
	}
	if desc.MaxAnisotropy == 0 {
		desc.MaxAnisotropy = 1
	}
	if desc.MaxAnisotropy > 1 &&
		(desc.MagFilter != gputypes.FilterModeLinear || desc.MinFilter != gputypes.FilterModeLinear || desc.MipmapFilter != gputypes.FilterModeLinear) {
		return invalid(op, "MaxAnisotropy", "anisotropic filtering requires linear filters")
	}
	return nil
}

func validateShaderModuleDescriptor(desc *ShaderModuleDescriptor) error {
	const op = "CreateShaderModule"
	if desc.Code == "" {
		return invalid(op, "Code", "must not be empty")
	}
	switch desc.Language {
	case ShaderLanguageWGSL:
	case ShaderLanguageSPIRV:
		if len(desc.Code)%4 != 0 {
			return invalid(op, "Code", "SPIR-V length %d is not a multiple of 4", len(desc.Code))
		}
	default:
		return invalid(op, "Language", "unsupported language %d", desc.Language)
	}
	return nil
}

// entryKind returns the single resource kind of a layout entry, or "" when zero or several are set.
func entryKind(e gputypes.BindGroupLayoutEntry) string {
	kind, n := "", 0
	if e.Buffer != nil {
		kind, n = "buffer", n+1
	}
	if e.Sampler != nil {
		kind, n = "sampler", n+1
	}
	if e.Texture != nil {
		kind, n = "texture", n+1
	}
	if e.StorageTexture != nil {
		kind, n = "storage texture", n+1
	}
	if n != 1 {
		return ""
	}
	return kind
}

func validateBindGroupLayoutDescriptor(desc *BindGroupLayoutDescriptor, limits gputypes.Limits) error {
	const op = "CreateBindGroupLayout"
	if uint32(len(desc.Entries)) > limits.MaxBindingsPerBindGroup {
		return invalid(op, "Entries", "%d entries exceed limit %d", len(desc.Entries), limits.MaxBindingsPerBindGroup)
	}
	seen := make(map[uint32]bool, len(desc.Entries))
	for _, e := range desc.Entries {
		if seen[e.Binding] {
			return invalid(op, "Entries", "duplicate binding %d", e.Binding)
		}
		seen[e.Binding] = true
		if e.Visibility == gputypes.ShaderStageNone {
			return invalid(op, "Entries.Visibility", "binding %d is visible to no stage", e.Binding)
		}
		if entryKind(e) == "" {
			return invalid(op, "Entries", "binding %d must declare exactly one resource type", e.Binding)
		}
		if e.Buffer != nil && e.Buffer.Type == gputypes.BufferBindingTypeUndefined {
			return invalid(op, "Entries.Buffer.Type", "binding %d has no buffer binding type", e.Binding)
		}
	}
	return nil
}

func (d *Device) validateBindGroupDescriptor(desc *BindGroupDescriptor) error {
	const op = "CreateBindGroup"
	if desc.Layout == nil {
		return invalid(op, "Layout", "must not be nil")
	}
	if err := d.owns(op, "Layout", &desc.Layout.resource); err != nil {
		return err
	}
	layout := make(map[uint32]gputypes.BindGroupLayoutEntry, len(desc.Layout.entries))
	for _, e := range desc.Layout.entries {
		layout[e.Binding] = e
	}
	bound := make(map[uint32]bool, len(desc.Entries))
	for _, e := range desc.Entries {
		le, ok := layout[e.Binding]
		if !ok {
			return invalid(op, "Entries", "binding %d is not in the layout", e.Binding)
		}
		if bound[e.Binding] {
			return invalid(op, "Entries", "binding %d bound twice", e.Binding)
		}
		bound[e.Binding] = true
		if err := d.validateBindGroupEntry(op, le, e); err != nil {
			return err
		}
	}
	for binding := range layout {
		if !bound[binding] {
			return invalid(op, "Entries", "layout binding %d is not bound", binding)
		}
	}
	return nil
}

func (d *Device) validateBindGroupEntry(op string, le gputypes.BindGroupLayoutEntry, e BindGroupEntry) error {
	set := 0
	for _, present := range []bool{e.Buffer != nil, e.Sampler != nil, e.TextureView != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return invalid(op, "Entries", "binding %d must bind exactly one resource", e.Binding)
	}
	switch entryKind(le) {
	case "buffer":
		if e.Buffer == nil {
			return invalid(op, "Entries", "binding %d expects a buffer", e.Binding)
		}
		if err := d.owns(op, "Entries.Buffer", &e.Buffer.resource); err != nil {
			return err
		}
		size := e.Size
		if size == 0 {
			if e.Offset >= uint64(e.Buffer.size) {
				return invalid(op, "Entries.Offset", "binding %d offset %d is past the buffer end", e.Binding, e.Offset)
			}
			size = uint64(e.Buffer.size) - e.Offset
		}
		if e.Offset+size > uint64(e.Buffer.size) {
			return invalid(op, "Entries.Size", "binding %d range %d+%d exceeds buffer size %d", e.Binding, e.Offset, size, e.Buffer.size)
		}
		if size < le.Buffer.MinBindingSize {
			return invalid(op, "Entries.Size", "binding %d range %d is below minimum %d", e.Binding, size, le.Buffer.MinBindingSize)
		}
		want, align := gputypes.BufferUsageStorage, d.limits.MinStorageBufferOffsetAlignment
		if le.Buffer.Type == gputypes.BufferBindingTypeUniform {
			want, align = gputypes.BufferUsageUniform, d.limits.MinUniformBufferOffsetAlignment
		}
		if align > 0 && e.Offset%uint64(align) != 0 {
			return invalid(op, "Entries.Offset", "binding %d offset %d is not aligned to %d", e.Binding, e.Offset, align)
		}
		if !e.Buffer.usage.Contains(want) {
			return invalid(op, "Entries.Buffer", "binding %d requires buffer usage %#x", e.Binding, uint64(want))
		}
	case "sampler":
		if e.Sampler == nil {
			return invalid(op, "Entries", "binding %d expects a sampler", e.Binding)
		}
		return d.owns(op, "Entries.Sampler", &e.Sampler.resource)
	case "texture", "storage texture":
		if e.TextureView == nil {
			return invalid(op, "Entries", "binding %d expects a texture view", e.Binding)
		}
		if err := e.TextureView.usable(op, d); err != nil {
			return err
		}
		if le.Texture != nil && le.Texture.Multisampled != (e.TextureView.sampleCount > 1) {
			return invalid(op, "Entries.TextureView", "binding %d multisample state does not match the layout", e.Binding)
		}
	}
	return nil
}

func (d *Device) validatePipelineLayoutDescriptor(desc *PipelineLayoutDescriptor) error {
	const op = "CreatePipelineLayout"
	if uint32(len(desc.BindGroupLayouts)) > d.limits.MaxBindGroups {
		return invalid(op, "BindGroupLayouts", "%d groups exceed limit %d", len(desc.BindGroupLayouts), d.limits.MaxBindGroups)
	}
	for _, l := range desc.BindGroupLayouts {
		if l == nil {
			return invalid(op, "BindGroupLayouts", "must not contain nil layouts")
		}
		if err := d.owns(op, "BindGroupLayouts", &l.resource); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) validateStage(op, field string, module *ShaderModule, entryPoint string) error {
	if module == nil {
		return invalid(op, field+".Module", "must not be nil")
	}
	if err := d.owns(op, field+".Module", &module.resource); err != nil {
		return err
	}
	if entryPoint == "" {
		return invalid(op, field+".EntryPoint", "must not be empty")
	}
	return nil
}

func (d *Device) validateRenderPipelineDescriptor(desc *RenderPipelineDescriptor) error {
	const op = "CreateRenderPipeline"
	if desc.Layout == nil {
		return invalid(op, "Layout", "must not be nil")
	}
	if err := d.owns(op, "Layout", &desc.Layout.resource); err != nil {
		return err
	}
	if err := d.validateStage(op, "Vertex", desc.Vertex.Module, desc.Vertex.EntryPoint); err != nil {
		return err
	}
	if uint32(len(desc.Vertex.Buffers)) > d.limits.MaxVertexBuffers {
		return invalid(op, "Vertex.Buffers", "%d buffers exceed limit %d", len(desc.Vertex.Buffers), d.limits.MaxVertexBuffers)
	}
	locations := make(map[uint32]bool)
	for i, vb := range desc.Vertex.Buffers {
		for _, a := range vb.Attributes {
			if locations[a.ShaderLocation] {
				return invalid(op, "Vertex.Buffers.Attributes", "shader location %d used twice", a.ShaderLocation)
			}
			locations[a.ShaderLocation] = true
			if vb.ArrayStride > 0 && a.Offset+a.Format.Size() > vb.ArrayStride {
				return invalid(op, "Vertex.Buffers.Attributes", "buffer %d attribute at location %d overruns stride %d", i, a.ShaderLocation, vb.ArrayStride)
			}
		}
	}
	if uint32(len(locations)) > d.limits.MaxVertexAttributes {
		return invalid(op, "Vertex.Buffers", "%d attributes exceed limit %d", len(locations), d.limits.MaxVertexAttributes)
	}
	if desc.Fragment == nil && desc.DepthStencil == nil {
		return invalid(op, "Fragment", "pipeline has neither color targets nor a depth attachment")
	}
	if desc.Fragment != nil {
		if err := d.validateStage(op, "Fragment", desc.Fragment.Module, desc.Fragment.EntryPoint); err != nil {
			return err
		}
		if len(desc.Fragment.Targets) == 0 {
			return invalid(op, "Fragment.Targets", "must not be empty")
		}
		if uint32(len(desc.Fragment.Targets)) > d.limits.MaxColorAttachments {
			return invalid(op, "Fragment.Targets", "%d targets exceed limit %d", len(desc.Fragment.Targets), d.limits.MaxColorAttachments)
		}
		for _, t := range desc.Fragment.Targets {
			if t.Format == gputypes.TextureFormatUndefined || t.Format.IsDepthStencil() {
				return invalid(op, "Fragment.Targets.Format", "%s is not a color format", t.Format)
			}
		}
	}
	if desc.DepthStencil != nil && !desc.DepthStencil.Format.HasDepth() {
		return invalid(op, "DepthStencil.Format", "%s is not a depth format", desc.DepthStencil.Format)
	}
	if desc.Multisample.Count == 0 {
		desc.Multisample.Count = 1
	}
	if desc.Multisample.Mask == 0 {
		desc.Multisample.Mask = 0xFFFFFFFF
	}
	if desc.Multisample.Count != 1 && desc.Multisample.Count != 4 {
		return invalid(op, "Multisample.Count", "must be 1 or 4, got %d", desc.Multisample.Count)
	}
	return nil
}

func (d *Device) validateComputePipelineDescriptor(desc *ComputePipelineDescriptor) error {
	const op = "CreateComputePipeline"
	if desc.Layout == nil {
		return invalid(op, "Layout", "must not be nil")
	}
	if err := d.owns(op, "Layout", &desc.Layout.resource); err != nil {
		return err
	}
	return d.validateStage(op, "Compute", desc.Module, desc.EntryPoint)
}

func (d *Device) validateRenderPassDescriptor(desc *RenderPassDescriptor) error {
	const op = "BeginRenderPass"
	if len(desc.ColorAttachments) == 0 && desc.DepthStencilAttachment == nil {
		return invalid(op, "ColorAttachments", "pass has no attachments")
	}
	if uint32(len(desc.ColorAttachments)) > d.limits.MaxColorAttachments {
		return invalid(op, "ColorAttachments", "%d attachments exceed limit %d", len(desc.ColorAttachments), d.limits.MaxColorAttachments)
	}
	var samples, width, height uint32
	match := func(field string, v *TextureView) error {
		if samples == 0 {
			samples, width, height = v.sampleCount, v.width, v.height
			return nil
		}
		if v.sampleCount != samples {
			return invalid(op, field, "sample count %d differs from %d", v.sampleCount, samples)
		}
		if v.width != width || v.height != height {
			return invalid(op, field, "size %dx%d differs from %dx%d", v.width, v.height, width, height)
		}
		return nil
	}
	for _, ca := range desc.ColorAttachments {
		if ca.View == nil {
			return invalid(op, "ColorAttachments.View", "must not be nil")
		}
		if err := ca.View.usable(op, d); err != nil {
			return err
		}
		if ca.View.format.IsDepthStencil() {
			return invalid(op, "ColorAttachments.View", "%s is a depth format", ca.View.format)
		}
		if ca.LoadOp == gputypes.LoadOpUndefined || ca.StoreOp == gputypes.StoreOpUndefined {
			return invalid(op, "ColorAttachments.LoadOp", "load and store ops must be set")
		}
		if err := match("ColorAttachments.View", ca.View); err != nil {
			return err
		}
		if ca.ResolveTarget != nil {
			if err := ca.ResolveTarget.usable(op, d); err != nil {
				return err
			}
			if ca.View.sampleCount == 1 || ca.ResolveTarget.sampleCount != 1 {
				return invalid(op, "ColorAttachments.ResolveTarget", "resolve requires a multisampled view and a single-sampled target")
			}
			if ca.ResolveTarget.format != ca.View.format {
				return invalid(op, "ColorAttachments.ResolveTarget", "format %s differs from %s", ca.ResolveTarget.format, ca.View.format)
			}
		}
	}
	if ds := desc.DepthStencilAttachment; ds != nil {
		if ds.View == nil {
			return invalid(op, "DepthStencilAttachment.View", "must not be nil")
		}
		if err := ds.View.usable(op, d); err != nil {
			return err
		}
		if !ds.View.format.HasDepth() {
			return invalid(op, "DepthStencilAttachment.View", "%s is not a depth format", ds.View.format)
		}
		if ds.DepthLoadOp == gputypes.LoadOpClear && (ds.DepthClearValue < 0 || ds.DepthClearValue > 1) {
			return invalid(op, "DepthStencilAttachment.DepthClearValue", "%v is outside [0, 1]", ds.DepthClearValue)
		}
		if err := match("DepthStencilAttachment.View", ds.View); err != nil {
			return err
		}
	}
	return nil
}
