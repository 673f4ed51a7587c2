package hal_backend

import (
	"sync/atomic"

	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// encoder owns a hal command encoder until Finish hands its recording to a commandBuffer.
// A finished encoder is never destroyed: on Vulkan freeing the command buffer recycles the
// encoder's pool.
type encoder struct {
	device   *device
	raw      hal.CommandEncoder
	released atomic.Bool
}

var _ gpu.NativeCommandEncoder = &encoder{}

func (e *encoder) Release() error {
	if !e.released.CompareAndSwap(false, true) {
		return errReleased
	}
	e.raw.DiscardEncoding()
	e.raw.Destroy()
	return nil
}

func (e *encoder) BeginRenderPass(desc *gpu.RenderPassDescriptor) (gpu.NativeRenderPass, error) {
	hd := &hal.RenderPassDescriptor{
		Label:            desc.Label,
		ColorAttachments: make([]hal.RenderPassColorAttachment, len(desc.ColorAttachments)),
	}
	for i, c := range desc.ColorAttachments {
		hd.ColorAttachments[i] = hal.RenderPassColorAttachment{
			View:       unwrap[hal.TextureView](c.View.Native()),
			LoadOp:     c.LoadOp,
			StoreOp:    c.StoreOp,
			ClearValue: c.ClearColor,
		}
		if c.ResolveTarget != nil {
			hd.ColorAttachments[i].ResolveTarget = unwrap[hal.TextureView](c.ResolveTarget.Native())
		}
	}
	if ds := desc.DepthStencilAttachment; ds != nil {
		hd.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:            unwrap[hal.TextureView](ds.View.Native()),
			DepthLoadOp:     ds.DepthLoadOp,
			DepthStoreOp:    ds.DepthStoreOp,
			DepthClearValue: ds.DepthClearValue,
			DepthReadOnly:   ds.DepthReadOnly,
			StencilReadOnly: true,
		}
	}
	return &renderPass{raw: e.raw.BeginRenderPass(hd)}, nil
}

func (e *encoder) BeginComputePass(label string) (gpu.NativeComputePass, error) {
	return &computePass{raw: e.raw.BeginComputePass(&hal.ComputePassDescriptor{Label: label})}, nil
}

func (e *encoder) Finish() (gpu.NativeObject, error) {
	raw, err := e.raw.EndEncoding()
	if err != nil {
		return nil, translate("Finish", err)
	}
	e.released.Store(true)
	return &commandBuffer{device: e.device, raw: raw}, nil
}

// commandBuffer is freed by the queue once its submission completes. Release only frees a
// buffer that was never submitted.
type commandBuffer struct {
	device    *device
	raw       hal.CommandBuffer
	submitted atomic.Bool
	released  atomic.Bool
}

func (c *commandBuffer) Release() error {
	if !c.released.CompareAndSwap(false, true) {
		return errReleased
	}
	if !c.submitted.Load() {
		c.device.raw.FreeCommandBuffer(c.raw)
	}
	return nil
}

type renderPass struct {
	raw hal.RenderPassEncoder
}

func (p *renderPass) SetPipeline(pipeline gpu.NativeObject) {
	p.raw.SetPipeline(unwrap[hal.RenderPipeline](pipeline))
}

func (p *renderPass) SetBindGroup(index uint32, group gpu.NativeObject, dynamicOffsets []uint32) {
	p.raw.SetBindGroup(index, unwrap[hal.BindGroup](group), dynamicOffsets)
}

func (p *renderPass) SetVertexBuffer(slot uint32, buffer gpu.NativeObject, offset uint64) {
	p.raw.SetVertexBuffer(slot, unwrap[hal.Buffer](buffer), offset)
}

func (p *renderPass) SetIndexBuffer(buffer gpu.NativeObject, format gputypes.IndexFormat, offset uint64) {
	p.raw.SetIndexBuffer(unwrap[hal.Buffer](buffer), format, offset)
}

func (p *renderPass) SetViewport(x, y, width, height, minDepth, maxDepth float32) {
	p.raw.SetViewport(x, y, width, height, minDepth, maxDepth)
}

func (p *renderPass) SetScissorRect(x, y, width, height uint32) {
	p.raw.SetScissorRect(x, y, width, height)
}

func (p *renderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.raw.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (p *renderPass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	p.raw.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

func (p *renderPass) End() error {
	p.raw.End()
	return nil
}

type computePass struct {
	raw hal.ComputePassEncoder
}

func (p *computePass) SetPipeline(pipeline gpu.NativeObject) {
	p.raw.SetPipeline(unwrap[hal.ComputePipeline](pipeline))
}

func (p *computePass) SetBindGroup(index uint32, group gpu.NativeObject, dynamicOffsets []uint32) {
	p.raw.SetBindGroup(index, unwrap[hal.BindGroup](group), dynamicOffsets)
}

func (p *computePass) Dispatch(x, y, z uint32) { p.raw.Dispatch(x, y, z) }

func (p *computePass) End() error {
	p.raw.End()
	return nil
}
