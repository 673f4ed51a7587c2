package gpu

import (
	"sync/atomic"
)

// EncoderState is the recording state of a CommandEncoder.
type EncoderState int

const (
	EncoderIdle EncoderState = iota
	EncoderRenderPassActive
	EncoderComputePassActive
	EncoderFinished
)

func (s EncoderState) String() string {
	switch s {
	case EncoderIdle:
		return "Idle"
	case EncoderRenderPassActive:
		return "RenderPassActive"
	case EncoderComputePassActive:
		return "ComputePassActive"
	case EncoderFinished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// PassStats counts the work recorded into render passes.
type PassStats struct {
	DrawCalls        int
	Triangles        int
	PipelineSwitches int
	Dispatches       int
}

func (s *PassStats) add(o PassStats) {
	s.DrawCalls += o.DrawCalls
	s.Triangles += o.Triangles
	s.PipelineSwitches += o.PipelineSwitches
	s.Dispatches += o.Dispatches
}

// CommandEncoder is a single-threaded recording session. It holds at most one active pass and is
// consumed by Finish.
type CommandEncoder struct {
	resource
	enc   NativeCommandEncoder
	state EncoderState
	frame *SurfaceFrame
	stats PassStats
}

// CreateCommandEncoder starts a new recording session.
//
// Parameters:
//   - label: optional debug label
//
// Returns:
//   - *CommandEncoder: the encoder in the Idle state
//   - error: StateError or ResourceError
func (d *Device) CreateCommandEncoder(label string) (*CommandEncoder, error) {
	const op = "CreateCommandEncoder"
	if err := d.ready(op); err != nil {
		return nil, err
	}
	native, err := d.native.CreateCommandEncoder(label)
	if err != nil {
		return nil, d.nativeFailure(op, err)
	}
	e := &CommandEncoder{enc: native}
	e.adopt(d, "command encoder", label, native)
	d.children.add(e)
	return e, nil
}

// State returns the current recording state.
func (e *CommandEncoder) State() EncoderState { return e.state }

func (e *CommandEncoder) expect(op string, want EncoderState) error {
	if e.state != EncoderFinished {
		if err := e.check(op); err != nil {
			return err
		}
	}
	if e.state == want {
		return nil
	}
	reason := "encoder is not idle"
	switch e.state {
	case EncoderRenderPassActive:
		reason = "render pass already active"
	case EncoderComputePassActive:
		reason = "compute pass already active"
	case EncoderFinished:
		reason = "encoder already finished"
	}
	return &StateError{Op: op, State: e.state.String(), Reason: reason}
}

// BeginRenderPass moves the encoder from Idle to RenderPassActive.
//
// Parameters:
//   - desc: the color and optional depth attachments
//
// Returns:
//   - *RenderPassEncoder: the pass recorder, valid until End
//   - error: StateError if a pass is active or the encoder finished, ValidationError for bad
//     attachments, PresentationError if a swapchain view is no longer current
func (e *CommandEncoder) BeginRenderPass(desc RenderPassDescriptor) (*RenderPassEncoder, error) {
	const op = "BeginRenderPass"
	if err := e.expect(op, EncoderIdle); err != nil {
		return nil, err
	}
	if err := e.device.ready(op); err != nil {
		return nil, err
	}
	if err := e.device.validateRenderPassDescriptor(&desc); err != nil {
		return nil, err
	}

	pass := &RenderPassEncoder{encoder: e}
	for _, ca := range desc.ColorAttachments {
		pass.colorFormats = append(pass.colorFormats, ca.View.format)
		pass.sampleCount = ca.View.sampleCount
		frame := ca.View.frame
		if frame == nil && ca.ResolveTarget != nil {
			frame = ca.ResolveTarget.frame
		}
		if frame == nil {
			continue
		}
		if !frame.surface.isCurrent(frame) {
			return nil, &PresentationError{Op: op, Reason: "swapchain image is no longer the current acquisition"}
		}
		if e.frame != nil && e.frame != frame {
			return nil, invalid(op, "ColorAttachments.View", "encoder already targets another swapchain image")
		}
		e.frame = frame
	}
	if ds := desc.DepthStencilAttachment; ds != nil {
		pass.depthFormat = ds.View.format
		pass.sampleCount = ds.View.sampleCount
	}

	native, err := e.enc.BeginRenderPass(&desc)
	if err != nil {
		return nil, e.device.nativeFailure(op, err)
	}
	pass.native = native
	e.state = EncoderRenderPassActive
	return pass, nil
}

// BeginComputePass moves the encoder from Idle to ComputePassActive.
//
// Parameters:
//   - label: optional debug label
//
// Returns:
//   - *ComputePassEncoder: the pass recorder, valid until End
//   - error: StateError if a pass is active or the encoder finished
func (e *CommandEncoder) BeginComputePass(label string) (*ComputePassEncoder, error) {
	const op = "BeginComputePass"
	if err := e.expect(op, EncoderIdle); err != nil {
		return nil, err
	}
	if err := e.device.ready(op); err != nil {
		return nil, err
	}
	native, err := e.enc.BeginComputePass(label)
	if err != nil {
		return nil, e.device.nativeFailure(op, err)
	}
	e.state = EncoderComputePassActive
	return &ComputePassEncoder{encoder: e, native: native}, nil
}

// Finish ends recording and returns the immutable command buffer. The encoder is consumed.
//
// Returns:
//   - *CommandBuffer: the recorded commands
//   - error: StateError if a pass is still active or Finish was already called
func (e *CommandEncoder) Finish() (*CommandBuffer, error) {
	const op = "Finish"
	if err := e.expect(op, EncoderIdle); err != nil {
		return nil, err
	}
	native, err := e.enc.Finish()
	if err != nil {
		_ = e.Dispose()
		return nil, e.device.nativeFailure(op, err)
	}
	e.state = EncoderFinished
	// The native encoder is consumed by Finish and must not be released again.
	e.markDisposed()
	e.device.children.remove(e.id)

	cb := &CommandBuffer{frame: e.frame, stats: e.stats}
	cb.adopt(e.device, "command buffer", e.label, native)
	e.device.children.add(cb)
	return cb, nil
}

// Dispose abandons an unfinished recording. After Finish it is a no-op.
func (e *CommandEncoder) Dispose() error {
	if e.state == EncoderFinished {
		return nil
	}
	return e.resource.Dispose()
}

// CommandBuffer is a finished, submit-once recording.
type CommandBuffer struct {
	resource
	frame     *SurfaceFrame
	stats     PassStats
	submitted atomic.Bool
}

// Frame returns the swapchain frame the buffer renders into, or nil.
func (b *CommandBuffer) Frame() *SurfaceFrame { return b.frame }

// Stats returns the work recorded into the buffer.
func (b *CommandBuffer) Stats() PassStats { return b.stats }

// Submitted reports whether the buffer has been handed to a queue.
func (b *CommandBuffer) Submitted() bool { return b.submitted.Load() }

// Dispose releases an unsubmitted buffer. A submitted buffer belongs to the backend.
func (b *CommandBuffer) Dispose() error {
	if b.submitted.Load() {
		if b.markDisposed() {
			b.device.children.remove(b.id)
		}
		return nil
	}
	return b.resource.Dispose()
}
