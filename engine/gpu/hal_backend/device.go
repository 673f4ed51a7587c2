package hal_backend

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/Carmen-Shannon/materia/engine/logger"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

type device struct {
	raw      hal.Device
	queue    *queue
	released atomic.Bool
}

var _ gpu.NativeDevice = &device{}

func newDevice(open hal.OpenDevice) *device {
	d := &device{raw: open.Device}
	d.queue = &queue{raw: open.Queue, device: d}
	return d
}

// Release waits for the GPU to go idle, runs every deferred destruction and destroys the device.
func (d *device) Release() error {
	if !d.released.CompareAndSwap(false, true) {
		return errReleased
	}
	if err := d.raw.WaitIdle(); err != nil {
		logger.Logger().Warn("hal_backend: wait idle before device destroy", "error", err)
	}
	d.queue.drain()
	d.raw.Destroy()
	return nil
}

func (d *device) Queue() gpu.NativeQueue { return d.queue }

// release wraps raw so that its destruction waits for every submission that may still use it.
func release[T any](d *device, raw T, destroy func(T)) *object[T] {
	return wrap(raw, func(r T) {
		d.queue.destroyAfterSubmitted(func() { destroy(r) })
	})
}

func (d *device) CreateBuffer(desc *gpu.BufferDescriptor) (gpu.NativeObject, error) {
	raw, err := d.raw.CreateBuffer(&hal.BufferDescriptor{
		Label:            desc.Label,
		Size:             uint64(desc.Size),
		Usage:            desc.Usage,
		MappedAtCreation: desc.MappedAtCreation,
	})
	if err != nil {
		return nil, translate("CreateBuffer", err)
	}
	return release(d, raw, d.raw.DestroyBuffer), nil
}

func (d *device) CreateTexture(desc *gpu.TextureDescriptor) (gpu.NativeObject, error) {
	raw, err := d.raw.CreateTexture(&hal.TextureDescriptor{
		Label: desc.Label,
		Size: hal.Extent3D{
			Width:              desc.Size.Width,
			Height:             desc.Size.Height,
			DepthOrArrayLayers: max(desc.Size.DepthOrArrayLayers, 1),
		},
		MipLevelCount: max(desc.MipLevelCount, 1),
		SampleCount:   max(desc.SampleCount, 1),
		Dimension:     desc.Dimension,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		return nil, translate("CreateTexture", err)
	}
	return release(d, raw, d.raw.DestroyTexture), nil
}

func (d *device) CreateTextureView(texture gpu.NativeObject, desc *gpu.TextureViewDescriptor) (gpu.NativeObject, error) {
	raw, err := d.raw.CreateTextureView(unwrap[hal.Texture](texture), &hal.TextureViewDescriptor{
		Label:           desc.Label,
		Format:          desc.Format,
		Dimension:       desc.Dimension,
		Aspect:          aspect(desc.Aspect),
		BaseMipLevel:    desc.BaseMipLevel,
		MipLevelCount:   desc.MipLevelCount,
		BaseArrayLayer:  desc.BaseArrayLayer,
		ArrayLayerCount: desc.ArrayLayerCount,
	})
	if err != nil {
		return nil, translate("CreateTextureView", err)
	}
	return release(d, raw, d.raw.DestroyTextureView), nil
}

func (d *device) CreateSampler(desc *gpu.SamplerDescriptor) (gpu.NativeObject, error) {
	raw, err := d.raw.CreateSampler(&hal.SamplerDescriptor{
		Label:        desc.Label,
		AddressModeU: desc.AddressModeU,
		AddressModeV: desc.AddressModeV,
		AddressModeW: desc.AddressModeW,
		MagFilter:    desc.MagFilter,
		MinFilter:    desc.MinFilter,
		MipmapFilter: desc.MipmapFilter,
		LodMinClamp:  desc.LodMinClamp,
		LodMaxClamp:  desc.LodMaxClamp,
		Compare:      desc.Compare,
		Anisotropy:   max(desc.MaxAnisotropy, 1),
	})
	if err != nil {
		return nil, translate("CreateSampler", err)
	}
	return release(d, raw, d.raw.DestroySampler), nil
}

func (d *device) CreateShaderModule(desc *gpu.ShaderModuleDescriptor) (gpu.NativeObject, error) {
	source := hal.ShaderSource{}
	switch desc.Language {
	case gpu.ShaderLanguageWGSL:
		source.WGSL = desc.Code
	case gpu.ShaderLanguageSPIRV:
		words, err := spirvWords(desc.Code)
		if err != nil {
			return nil, &gpu.ValidationError{Op: "CreateShaderModule", Field: "Code", Reason: err.Error()}
		}
		source.SPIRV = words
	}
	raw, err := d.raw.CreateShaderModule(&hal.ShaderModuleDescriptor{Label: desc.Label, Source: source})
	if err != nil {
		return nil, translate("CreateShaderModule", err)
	}
	return release(d, raw, d.raw.DestroyShaderModule), nil
}

func (d *device) CreateBindGroupLayout(desc *gpu.BindGroupLayoutDescriptor) (gpu.NativeObject, error) {
	raw, err := d.raw.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{Label: desc.Label, Entries: desc.Entries})
	if err != nil {
		return nil, translate("CreateBindGroupLayout", err)
	}
	return release(d, raw, d.raw.DestroyBindGroupLayout), nil
}

func (d *device) CreateBindGroup(desc *gpu.BindGroupDescriptor) (gpu.NativeObject, error) {
	entries := make([]gputypes.BindGroupEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		entries[i].Binding = e.Binding
		switch {
		case e.Buffer != nil:
			entries[i].Resource = gputypes.BufferBinding{
				Buffer: unwrap[hal.Buffer](e.Buffer.Native()).NativeHandle(),
				Offset: e.Offset,
				Size:   e.Size,
			}
		case e.Sampler != nil:
			entries[i].Resource = gputypes.SamplerBinding{
				Sampler: unwrap[hal.Sampler](e.Sampler.Native()).NativeHandle(),
			}
		case e.TextureView != nil:
			entries[i].Resource = gputypes.TextureViewBinding{
				TextureView: unwrap[hal.TextureView](e.TextureView.Native()).NativeHandle(),
			}
		}
	}
	raw, err := d.raw.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   desc.Label,
		Layout:  unwrap[hal.BindGroupLayout](desc.Layout.Native()),
		Entries: entries,
	})
	if err != nil {
		return nil, translate("CreateBindGroup", err)
	}
	return release(d, raw, d.raw.DestroyBindGroup), nil
}

func (d *device) CreatePipelineLayout(desc *gpu.PipelineLayoutDescriptor) (gpu.NativeObject, error) {
	layouts := make([]hal.BindGroupLayout, len(desc.BindGroupLayouts))
	for i, l := range desc.BindGroupLayouts {
		layouts[i] = unwrap[hal.BindGroupLayout](l.Native())
	}
	raw, err := d.raw.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{Label: desc.Label, BindGroupLayouts: layouts})
	if err != nil {
		return nil, translate("CreatePipelineLayout", err)
	}
	return release(d, raw, d.raw.DestroyPipelineLayout), nil
}

func (d *device) CreateRenderPipeline(desc *gpu.RenderPipelineDescriptor) (gpu.NativeObject, error) {
	hd := &hal.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: unwrap[hal.PipelineLayout](desc.Layout.Native()),
		Vertex: hal.VertexState{
			Module:     unwrap[hal.ShaderModule](desc.Vertex.Module.Native()),
			EntryPoint: desc.Vertex.EntryPoint,
			Buffers:    desc.Vertex.Buffers,
		},
		Primitive:   desc.Primitive,
		Multisample: desc.Multisample,
	}
	if hd.Multisample.Count == 0 {
		hd.Multisample.Count = 1
	}
	if hd.Multisample.Mask == 0 {
		hd.Multisample.Mask = ^uint64(0)
	}
	if ds := desc.DepthStencil; ds != nil {
		face := hal.StencilFaceState{Compare: gputypes.CompareFunctionAlways}
		hd.DepthStencil = &hal.DepthStencilState{
			Format:              ds.Format,
			DepthWriteEnabled:   ds.DepthWriteEnabled,
			DepthCompare:        ds.DepthCompare,
			StencilFront:        face,
			StencilBack:         face,
			DepthBias:           ds.DepthBias,
			DepthBiasSlopeScale: ds.DepthBiasSlopeScale,
		}
	}
	if fs := desc.Fragment; fs != nil {
		hd.Fragment = &hal.FragmentState{
			Module:     unwrap[hal.ShaderModule](fs.Module.Native()),
			EntryPoint: fs.EntryPoint,
			Targets:    fs.Targets,
		}
	}
	raw, err := d.raw.CreateRenderPipeline(hd)
	if err != nil {
		return nil, translate("CreateRenderPipeline", err)
	}
	return release(d, raw, d.raw.DestroyRenderPipeline), nil
}

func (d *device) CreateComputePipeline(desc *gpu.ComputePipelineDescriptor) (gpu.NativeObject, error) {
	raw, err := d.raw.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  desc.Label,
		Layout: unwrap[hal.PipelineLayout](desc.Layout.Native()),
		Compute: hal.ComputeState{
			Module:     unwrap[hal.ShaderModule](desc.Module.Native()),
			EntryPoint: desc.EntryPoint,
		},
	})
	if err != nil {
		return nil, translate("CreateComputePipeline", err)
	}
	return release(d, raw, d.raw.DestroyComputePipeline), nil
}

func (d *device) CreateCommandEncoder(label string) (gpu.NativeCommandEncoder, error) {
	raw, err := d.raw.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, translate("CreateCommandEncoder", err)
	}
	if err := raw.BeginEncoding(label); err != nil {
		raw.Destroy()
		return nil, translate("BeginEncoding", err)
	}
	return &encoder{device: d, raw: raw}, nil
}

func aspect(a gputypes.TextureAspect) gputypes.TextureAspect {
	if a == gputypes.TextureAspectUndefined {
		return gputypes.TextureAspectAll
	}
	return a
}

// spirvWords reinterprets a little-endian SPIR-V byte stream as 32-bit words.
func spirvWords(code string) ([]uint32, error) {
	if len(code)%4 != 0 {
		return nil, fmt.Errorf("SPIR-V length %d is not a multiple of 4", len(code))
	}
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32([]byte(code[i*4 : i*4+4]))
	}
	return words, nil
}
