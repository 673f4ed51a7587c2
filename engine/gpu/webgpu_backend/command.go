package webgpu_backend

import (
	"sync/atomic"

	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/gputypes"
)

type encoder struct {
	raw      *wgpu.CommandEncoder
	released atomic.Bool
}

var _ gpu.NativeCommandEncoder = &encoder{}

func (e *encoder) Release() error {
	if !e.released.CompareAndSwap(false, true) {
		return errReleased
	}
	e.raw.Release()
	return nil
}

func (e *encoder) BeginRenderPass(desc *gpu.RenderPassDescriptor) (gpu.NativeRenderPass, error) {
	c := &converter{op: "BeginRenderPass"}
	rd := &wgpu.RenderPassDescriptor{
		Label:            desc.Label,
		ColorAttachments: make([]wgpu.RenderPassColorAttachment, len(desc.ColorAttachments)),
	}
	for i, a := range desc.ColorAttachments {
		rd.ColorAttachments[i] = wgpu.RenderPassColorAttachment{
			View:       unwrap[*wgpu.TextureView](a.View.Native()),
			LoadOp:     lookup(c, loadOps, a.LoadOp, "ColorAttachments.LoadOp"),
			StoreOp:    lookup(c, storeOps, a.StoreOp, "ColorAttachments.StoreOp"),
			ClearValue: toColor(a.ClearColor),
		}
		if a.ResolveTarget != nil {
			rd.ColorAttachments[i].ResolveTarget = unwrap[*wgpu.TextureView](a.ResolveTarget.Native())
		}
	}
	if ds := desc.DepthStencilAttachment; ds != nil {
		rd.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            unwrap[*wgpu.TextureView](ds.View.Native()),
			DepthLoadOp:     lookup(c, loadOps, ds.DepthLoadOp, "DepthStencilAttachment.DepthLoadOp"),
			DepthStoreOp:    lookup(c, storeOps, ds.DepthStoreOp, "DepthStencilAttachment.DepthStoreOp"),
			DepthClearValue: ds.DepthClearValue,
			DepthReadOnly:   ds.DepthReadOnly,
		}
	}
	if c.err != nil {
		return nil, c.err
	}
	return &renderPass{raw: e.raw.BeginRenderPass(rd)}, nil
}

func (e *encoder) BeginComputePass(label string) (gpu.NativeComputePass, error) {
	return &computePass{raw: e.raw.BeginComputePass(&wgpu.ComputePassDescriptor{Label: label})}, nil
}

// Finish drops the encoder reference; the command buffer holds what it recorded.
func (e *encoder) Finish() (gpu.NativeObject, error) {
	raw, err := e.raw.Finish(nil)
	if err != nil {
		return nil, translate("Finish", err)
	}
	if e.released.CompareAndSwap(false, true) {
		e.raw.Release()
	}
	return &commandBuffer{raw: raw}, nil
}

// commandBuffer drops its reference once submitted; wgpu-native keeps the work alive.
type commandBuffer struct {
	raw      *wgpu.CommandBuffer
	released atomic.Bool
}

func (c *commandBuffer) Release() error {
	if !c.released.CompareAndSwap(false, true) {
		return errReleased
	}
	c.raw.Release()
	return nil
}

type renderPass struct {
	raw *wgpu.RenderPassEncoder
}

func (p *renderPass) SetPipeline(pipeline gpu.NativeObject) {
	p.raw.SetPipeline(unwrap[*wgpu.RenderPipeline](pipeline))
}

func (p *renderPass) SetBindGroup(index uint32, group gpu.NativeObject, dynamicOffsets []uint32) {
	p.raw.SetBindGroup(index, unwrap[*wgpu.BindGroup](group), dynamicOffsets)
}

func (p *renderPass) SetVertexBuffer(slot uint32, buffer gpu.NativeObject, offset uint64) {
	p.raw.SetVertexBuffer(slot, unwrap[*wgpu.Buffer](buffer), offset, wgpu.WholeSize)
}

func (p *renderPass) SetIndexBuffer(buffer gpu.NativeObject, format gputypes.IndexFormat, offset uint64) {
	p.raw.SetIndexBuffer(unwrap[*wgpu.Buffer](buffer), indexFormats[format], offset, wgpu.WholeSize)
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

// End closes the pass. wgpu-native requires the pass released before the encoder finishes.
func (p *renderPass) End() error {
	p.raw.End()
	p.raw.Release()
	return nil
}

type computePass struct {
	raw *wgpu.ComputePassEncoder
}

func (p *computePass) SetPipeline(pipeline gpu.NativeObject) {
	p.raw.SetPipeline(unwrap[*wgpu.ComputePipeline](pipeline))
}

func (p *computePass) SetBindGroup(index uint32, group gpu.NativeObject, dynamicOffsets []uint32) {
	p.raw.SetBindGroup(index, unwrap[*wgpu.BindGroup](group), dynamicOffsets)
}

func (p *computePass) Dispatch(x, y, z uint32) {
	p.raw.DispatchWorkgroups(x, y, z)
}

func (p *computePass) End() error {
	p.raw.End()
	p.raw.Release()
	return nil
}
