package gpu

import (
	"slices"

	"github.com/gogpu/gputypes"
)

// RenderPassEncoder records draw commands between BeginRenderPass and End. Misuse is reported
// at the call, never deferred to submission.
type RenderPassEncoder struct {
	encoder      *CommandEncoder
	native       NativeRenderPass
	ended        bool
	colorFormats []gputypes.TextureFormat
	depthFormat  gputypes.TextureFormat
	sampleCount  uint32

	pipeline    *RenderPipeline
	indexBuffer *Buffer
	indexFormat gputypes.IndexFormat
	indexOffset uint64
	stats       PassStats
}

func (p *RenderPassEncoder) active(op string) error {
	if p.ended {
		return &StateError{Op: op, State: "Ended", Reason: "render pass has ended"}
	}
	return p.encoder.check(op)
}

// Stats returns the work recorded so far in this pass.
func (p *RenderPassEncoder) Stats() PassStats { return p.stats }

// SetPipeline binds a render pipeline whose targets match the pass attachments.
//
// Parameters:
//   - pipeline: the pipeline to bind
//
// Returns:
//   - error: ValidationError if the pipeline does not fit the attachments, StateError after End
func (p *RenderPassEncoder) SetPipeline(pipeline *RenderPipeline) error {
	const op = "SetPipeline"
	if err := p.active(op); err != nil {
		return err
	}
	if pipeline == nil {
		return invalid(op, "pipeline", "must not be nil")
	}
	if err := p.encoder.device.owns(op, "pipeline", &pipeline.resource); err != nil {
		return err
	}
	if !slices.Equal(pipeline.colorFormats, p.colorFormats) {
		return invalid(op, "pipeline", "color formats %v do not match pass attachments %v", pipeline.colorFormats, p.colorFormats)
	}
	if pipeline.depthFormat != gputypes.TextureFormatUndefined && pipeline.depthFormat != p.depthFormat {
		return invalid(op, "pipeline", "depth format %s does not match pass attachment %s", pipeline.depthFormat, p.depthFormat)
	}
	if pipeline.sampleCount != p.sampleCount {
		return invalid(op, "pipeline", "sample count %d does not match pass attachments %d", pipeline.sampleCount, p.sampleCount)
	}
	if p.pipeline != pipeline {
		p.stats.PipelineSwitches++
	}
	p.pipeline = pipeline
	p.native.SetPipeline(pipeline.native)
	return nil
}

// SetBindGroup binds group at index.
func (p *RenderPassEncoder) SetBindGroup(index uint32, group *BindGroup, dynamicOffsets ...uint32) error {
	const op = "SetBindGroup"
	if err := p.active(op); err != nil {
		return err
	}
	if group == nil {
		return invalid(op, "group", "must not be nil")
	}
	if err := p.encoder.device.owns(op, "group", &group.resource); err != nil {
		return err
	}
	if index >= p.encoder.device.limits.MaxBindGroups {
		return invalid(op, "index", "%d exceeds limit %d", index, p.encoder.device.limits.MaxBindGroups)
	}
	p.native.SetBindGroup(index, group.native, dynamicOffsets)
	return nil
}

// SetVertexBuffer binds buffer to a vertex slot.
func (p *RenderPassEncoder) SetVertexBuffer(slot uint32, buffer *Buffer, offset uint64) error {
	const op = "SetVertexBuffer"
	if err := p.active(op); err != nil {
		return err
	}
	if buffer == nil {
		return invalid(op, "buffer", "must not be nil")
	}
	if err := p.encoder.device.owns(op, "buffer", &buffer.resource); err != nil {
		return err
	}
	if !buffer.usage.Contains(gputypes.BufferUsageVertex) {
		return invalid(op, "buffer", "%q lacks VERTEX usage", buffer.label)
	}
	if slot >= p.encoder.device.limits.MaxVertexBuffers {
		return invalid(op, "slot", "%d exceeds limit %d", slot, p.encoder.device.limits.MaxVertexBuffers)
	}
	if offset > uint64(buffer.size) {
		return invalid(op, "offset", "%d is past the buffer end %d", offset, buffer.size)
	}
	p.native.SetVertexBuffer(slot, buffer.native, offset)
	return nil
}

// SetIndexBuffer binds buffer as the index source for DrawIndexed.
func (p *RenderPassEncoder) SetIndexBuffer(buffer *Buffer, format gputypes.IndexFormat, offset uint64) error {
	const op = "SetIndexBuffer"
	if err := p.active(op); err != nil {
		return err
	}
	if buffer == nil {
		return invalid(op, "buffer", "must not be nil")
	}
	if err := p.encoder.device.owns(op, "buffer", &buffer.resource); err != nil {
		return err
	}
	if !buffer.usage.Contains(gputypes.BufferUsageIndex) {
		return invalid(op, "buffer", "%q lacks INDEX usage", buffer.label)
	}
	if format != gputypes.IndexFormatUint16 && format != gputypes.IndexFormatUint32 {
		return invalid(op, "format", "unsupported index format %s", format)
	}
	if offset%uint64(format.Size()) != 0 || offset > uint64(buffer.size) {
		return invalid(op, "offset", "%d is misaligned or past the buffer end", offset)
	}
	p.indexBuffer, p.indexFormat, p.indexOffset = buffer, format, offset
	p.native.SetIndexBuffer(buffer.native, format, offset)
	return nil
}

// SetViewport sets the viewport transform.
func (p *RenderPassEncoder) SetViewport(x, y, width, height, minDepth, maxDepth float32) error {
	const op = "SetViewport"
	if err := p.active(op); err != nil {
		return err
	}
	if width < 0 || height < 0 {
		return invalid(op, "size", "must not be negative")
	}
	if minDepth < 0 || maxDepth > 1 || minDepth > maxDepth {
		return invalid(op, "depth", "range [%v, %v] must lie ordered within [0, 1]", minDepth, maxDepth)
	}
	p.native.SetViewport(x, y, width, height, minDepth, maxDepth)
	return nil
}

// SetScissorRect restricts rasterization to a rectangle.
func (p *RenderPassEncoder) SetScissorRect(x, y, width, height uint32) error {
	if err := p.active("SetScissorRect"); err != nil {
		return err
	}
	p.native.SetScissorRect(x, y, width, height)
	return nil
}

func (p *RenderPassEncoder) requirePipeline(op string) error {
	if p.pipeline == nil {
		return &StateError{Op: op, State: EncoderRenderPassActive.String(), Reason: "no pipeline bound"}
	}
	return nil
}

// Draw records a non-indexed draw.
//
// Parameters:
//   - vertexCount: vertices per instance
//   - instanceCount: number of instances
//   - firstVertex: first vertex index
//   - firstInstance: first instance index
//
// Returns:
//   - error: StateError if no pipeline is bound or the pass has ended
func (p *RenderPassEncoder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) error {
	const op = "Draw"
	if err := p.active(op); err != nil {
		return err
	}
	if err := p.requirePipeline(op); err != nil {
		return err
	}
	p.native.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
	p.stats.DrawCalls++
	p.stats.Triangles += p.pipeline.triangles(vertexCount) * int(instanceCount)
	return nil
}

// DrawIndexed records an indexed draw from the bound index buffer.
//
// Parameters:
//   - indexCount: indices per instance
//   - instanceCount: number of instances
//   - firstIndex: first index in the buffer
//   - baseVertex: value added to each index
//   - firstInstance: first instance index
//
// Returns:
//   - error: StateError if no pipeline or index buffer is bound, ValidationError if the index range overruns the buffer
func (p *RenderPassEncoder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) error {
	const op = "DrawIndexed"
	if err := p.active(op); err != nil {
		return err
	}
	if err := p.requirePipeline(op); err != nil {
		return err
	}
	if p.indexBuffer == nil {
		return &StateError{Op: op, State: EncoderRenderPassActive.String(), Reason: "no index buffer bound"}
	}
	end := p.indexOffset + (uint64(firstIndex)+uint64(indexCount))*uint64(p.indexFormat.Size())
	if end > uint64(p.indexBuffer.size) {
		return invalid(op, "indexCount", "indices %d..%d overrun the index buffer", firstIndex, firstIndex+indexCount)
	}
	p.native.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
	p.stats.DrawCalls++
	p.stats.Triangles += p.pipeline.triangles(indexCount) * int(instanceCount)
	return nil
}

// End closes the pass and returns the encoder to Idle.
func (p *RenderPassEncoder) End() error {
	const op = "End"
	if err := p.active(op); err != nil {
		return err
	}
	p.ended = true
	p.encoder.state = EncoderIdle
	p.encoder.stats.add(p.stats)
	if err := p.native.End(); err != nil {
		return p.encoder.device.nativeFailure(op, err)
	}
	return nil
}
