package gpu

// ComputePassEncoder records dispatches between BeginComputePass and End.
type ComputePassEncoder struct {
	encoder  *CommandEncoder
	native   NativeComputePass
	ended    bool
	pipeline *ComputePipeline
}

func (p *ComputePassEncoder) active(op string) error {
	if p.ended {
		return &StateError{Op: op, State: "Ended", Reason: "compute pass has ended"}
	}
	return p.encoder.check(op)
}

// SetPipeline binds a compute pipeline.
func (p *ComputePassEncoder) SetPipeline(pipeline *ComputePipeline) error {
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
	p.pipeline = pipeline
	p.native.SetPipeline(pipeline.native)
	return nil
}

// SetBindGroup binds group at index.
func (p *ComputePassEncoder) SetBindGroup(index uint32, group *BindGroup, dynamicOffsets ...uint32) error {
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

// DispatchWorkgroups records a dispatch of x*y*z workgroups.
func (p *ComputePassEncoder) DispatchWorkgroups(x, y, z uint32) error {
	const op = "DispatchWorkgroups"
	if err := p.active(op); err != nil {
		return err
	}
	if p.pipeline == nil {
		return &StateError{Op: op, State: EncoderComputePassActive.String(), Reason: "no pipeline bound"}
	}
	limit := p.encoder.device.limits.MaxComputeWorkgroupsPerDimension
	if x > limit || y > limit || z > limit {
		return invalid(op, "workgroups", "%dx%dx%d exceeds per-dimension limit %d", x, y, z, limit)
	}
	p.native.Dispatch(x, y, z)
	p.encoder.stats.Dispatches++
	return nil
}

// End closes the pass and returns the encoder to Idle.
func (p *ComputePassEncoder) End() error {
	const op = "End"
	if err := p.active(op); err != nil {
		return err
	}
	p.ended = true
	p.encoder.state = EncoderIdle
	if err := p.native.End(); err != nil {
		return p.encoder.device.nativeFailure(op, err)
	}
	return nil
}
