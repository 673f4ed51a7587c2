package webgpu_backend

import (
	"errors"
	"sync/atomic"

	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

var errNoDescriptor = errors.New("webgpu_backend: surface target cannot describe a native surface")

const errSPIRV = "SPIR-V modules are not supported by the webgpu backend, translate to WGSL first"

type device struct {
	adapter  *wgpu.Adapter
	raw      *wgpu.Device
	queue    *queue
	released atomic.Bool
}

var _ gpu.NativeDevice = &device{}

func newDevice(a *wgpu.Adapter, raw *wgpu.Device) *device {
	d := &device{adapter: a, raw: raw}
	d.queue = &queue{raw: raw.GetQueue()}
	return d
}

func (d *device) Release() error {
	if !d.released.CompareAndSwap(false, true) {
		return errReleased
	}
	d.queue.raw.Release()
	d.raw.Release()
	return nil
}

func (d *device) Queue() gpu.NativeQueue { return d.queue }

func (d *device) CreateBuffer(desc *gpu.BufferDescriptor) (gpu.NativeObject, error) {
	raw, err := d.raw.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            desc.Label,
		Size:             uint64(desc.Size),
		Usage:            flags(bufferUsages, desc.Usage),
		MappedAtCreation: desc.MappedAtCreation,
	})
	if err != nil {
		return nil, translate("CreateBuffer", err)
	}
	return wrap(raw), nil
}

func (d *device) CreateTexture(desc *gpu.TextureDescriptor) (gpu.NativeObject, error) {
	c := &converter{op: "CreateTexture"}
	td := &wgpu.TextureDescriptor{
		Label:         desc.Label,
		Size:          toExtent(desc.Size),
		MipLevelCount: max(desc.MipLevelCount, 1),
		SampleCount:   max(desc.SampleCount, 1),
		Dimension:     lookup(c, textureDimensions, desc.Dimension, "Dimension"),
		Format:        lookup(c, textureFormats, desc.Format, "Format"),
		Usage:         flags(textureUsages, desc.Usage),
	}
	if c.err != nil {
		return nil, c.err
	}
	raw, err := d.raw.CreateTexture(td)
	if err != nil {
		return nil, translate("CreateTexture", err)
	}
	return wrap(raw), nil
}

func (d *device) CreateTextureView(texture gpu.NativeObject, desc *gpu.TextureViewDescriptor) (gpu.NativeObject, error) {
	c := &converter{op: "CreateTextureView"}
	vd := &wgpu.TextureViewDescriptor{
		Label:           desc.Label,
		Format:          lookup(c, textureFormats, desc.Format, "Format"),
		Dimension:       lookup(c, viewDimensions, desc.Dimension, "Dimension"),
		BaseMipLevel:    desc.BaseMipLevel,
		MipLevelCount:   desc.MipLevelCount,
		BaseArrayLayer:  desc.BaseArrayLayer,
		ArrayLayerCount: desc.ArrayLayerCount,
		Aspect:          lookup(c, textureAspects, desc.Aspect, "Aspect"),
	}
	if c.err != nil {
		return nil, c.err
	}
	raw, err := unwrap[*wgpu.Texture](texture).CreateView(vd)
	if err != nil {
		return nil, translate("CreateTextureView", err)
	}
	return wrap(raw), nil
}

func (d *device) CreateSampler(desc *gpu.SamplerDescriptor) (gpu.NativeObject, error) {
	c := &converter{op: "CreateSampler"}
	sd := &wgpu.SamplerDescriptor{
		Label:         desc.Label,
		AddressModeU:  lookup(c, addressModes, desc.AddressModeU, "AddressModeU"),
		AddressModeV:  lookup(c, addressModes, desc.AddressModeV, "AddressModeV"),
		AddressModeW:  lookup(c, addressModes, desc.AddressModeW, "AddressModeW"),
		MagFilter:     lookup(c, filterModes, desc.MagFilter, "MagFilter"),
		MinFilter:     lookup(c, filterModes, desc.MinFilter, "MinFilter"),
		MipmapFilter:  lookup(c, mipmapFilterModes, desc.MipmapFilter, "MipmapFilter"),
		LodMinClamp:   desc.LodMinClamp,
		LodMaxClamp:   desc.LodMaxClamp,
		Compare:       lookup(c, compareFunctions, desc.Compare, "Compare"),
		MaxAnisotropy: max(desc.MaxAnisotropy, 1),
	}
	if c.err != nil {
		return nil, c.err
	}
	raw, err := d.raw.CreateSampler(sd)
	if err != nil {
		return nil, translate("CreateSampler", err)
	}
	return wrap(raw), nil
}

func (d *device) CreateShaderModule(desc *gpu.ShaderModuleDescriptor) (gpu.NativeObject, error) {
	if desc.Language != gpu.ShaderLanguageWGSL {
		return nil, &gpu.ValidationError{Op: "CreateShaderModule", Field: "Language", Reason: errSPIRV}
	}
	raw, err := d.raw.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          desc.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: desc.Code},
	})
	if err != nil {
		return nil, translate("CreateShaderModule", err)
	}
	return wrap(raw), nil
}

func (d *device) CreateBindGroupLayout(desc *gpu.BindGroupLayoutDescriptor) (gpu.NativeObject, error) {
	c := &converter{op: "CreateBindGroupLayout"}
	entries := c.layoutEntries(desc.Entries)
	if c.err != nil {
		return nil, c.err
	}
	raw, err := d.raw.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{Label: desc.Label, Entries: entries})
	if err != nil {
		return nil, translate("CreateBindGroupLayout", err)
	}
	return wrap(raw), nil
}

func (d *device) CreateBindGroup(desc *gpu.BindGroupDescriptor) (gpu.NativeObject, error) {
	entries := make([]wgpu.BindGroupEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		entries[i].Binding = e.Binding
		switch {
		case e.Buffer != nil:
			entries[i].Buffer = unwrap[*wgpu.Buffer](e.Buffer.Native())
			entries[i].Offset = e.Offset
			entries[i].Size = e.Size
			if e.Size == 0 {
				entries[i].Size = wgpu.WholeSize
			}
		case e.Sampler != nil:
			entries[i].Sampler = unwrap[*wgpu.Sampler](e.Sampler.Native())
		case e.TextureView != nil:
			entries[i].TextureView = unwrap[*wgpu.TextureView](e.TextureView.Native())
		}
	}
	raw, err := d.raw.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   desc.Label,
		Layout:  unwrap[*wgpu.BindGroupLayout](desc.Layout.Native()),
		Entries: entries,
	})
	if err != nil {
		return nil, translate("CreateBindGroup", err)
	}
	return wrap(raw), nil
}

func (d *device) CreatePipelineLayout(desc *gpu.PipelineLayoutDescriptor) (gpu.NativeObject, error) {
	layouts := make([]*wgpu.BindGroupLayout, len(desc.BindGroupLayouts))
	for i, l := range desc.BindGroupLayouts {
		layouts[i] = unwrap[*wgpu.BindGroupLayout](l.Native())
	}
	raw, err := d.raw.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{Label: desc.Label, BindGroupLayouts: layouts})
	if err != nil {
		return nil, translate("CreatePipelineLayout", err)
	}
	return wrap(raw), nil
}

func (d *device) CreateRenderPipeline(desc *gpu.RenderPipelineDescriptor) (gpu.NativeObject, error) {
	c := &converter{op: "CreateRenderPipeline"}
	rd := &wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: unwrap[*wgpu.PipelineLayout](desc.Layout.Native()),
		Vertex: wgpu.VertexState{
			Module:     unwrap[*wgpu.ShaderModule](desc.Vertex.Module.Native()),
			EntryPoint: desc.Vertex.EntryPoint,
			Buffers:    c.vertexLayouts(desc.Vertex.Buffers),
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  lookup(c, topologies, desc.Primitive.Topology, "Primitive.Topology"),
			FrontFace: lookup(c, frontFaces, desc.Primitive.FrontFace, "Primitive.FrontFace"),
			CullMode:  lookup(c, cullModes, desc.Primitive.CullMode, "Primitive.CullMode"),
		},
		Multisample: wgpu.MultisampleState{
			Count: max(desc.Multisample.Count, 1),
			Mask:  0xFFFFFFFF,
		},
	}
	if m := desc.Multisample.Mask; m != 0 {
		rd.Multisample.Mask = uint32(m)
	}
	if ds := desc.DepthStencil; ds != nil {
		face := wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways}
		rd.DepthStencil = &wgpu.DepthStencilState{
			Format:              lookup(c, textureFormats, ds.Format, "DepthStencil.Format"),
			DepthWriteEnabled:   ds.DepthWriteEnabled,
			DepthCompare:        lookup(c, compareFunctions, ds.DepthCompare, "DepthStencil.DepthCompare"),
			DepthBias:           ds.DepthBias,
			DepthBiasSlopeScale: ds.DepthBiasSlopeScale,
			StencilFront:        face,
			StencilBack:         face,
		}
	}
	if fs := desc.Fragment; fs != nil {
		targets := make([]wgpu.ColorTargetState, len(fs.Targets))
		for i, t := range fs.Targets {
			targets[i] = wgpu.ColorTargetState{
				Format:    lookup(c, textureFormats, t.Format, "Fragment.Targets.Format"),
				Blend:     c.blend(t.Blend),
				WriteMask: flags(colorWriteMasks, t.WriteMask),
			}
		}
		rd.Fragment = &wgpu.FragmentState{
			Module:     unwrap[*wgpu.ShaderModule](fs.Module.Native()),
			EntryPoint: fs.EntryPoint,
			Targets:    targets,
		}
	}
	if c.err != nil {
		return nil, c.err
	}
	raw, err := d.raw.CreateRenderPipeline(rd)
	if err != nil {
		return nil, translate("CreateRenderPipeline", err)
	}
	return wrap(raw), nil
}

func (d *device) CreateComputePipeline(desc *gpu.ComputePipelineDescriptor) (gpu.NativeObject, error) {
	raw, err := d.raw.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  desc.Label,
		Layout: unwrap[*wgpu.PipelineLayout](desc.Layout.Native()),
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     unwrap[*wgpu.ShaderModule](desc.Module.Native()),
			EntryPoint: desc.EntryPoint,
		},
	})
	if err != nil {
		return nil, translate("CreateComputePipeline", err)
	}
	return wrap(raw), nil
}

func (d *device) CreateCommandEncoder(label string) (gpu.NativeCommandEncoder, error) {
	raw, err := d.raw.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, translate("CreateCommandEncoder", err)
	}
	return &encoder{raw: raw}, nil
}
