package gpu

// Sampler describes how shaders read textures.
type Sampler struct {
	resource
	desc SamplerDescriptor
}

// CreateSampler validates desc and creates a sampler.
//
// Parameters:
//   - desc: the sampler descriptor, zero anisotropy defaults to 1
//
// Returns:
//   - *Sampler: the new sampler
//   - error: ValidationError, StateError, or ResourceError
func (d *Device) CreateSampler(desc SamplerDescriptor) (*Sampler, error) {
	const op = "CreateSampler"
	if err := d.ready(op); err != nil {
		return nil, err
	}
	if err := validateSamplerDescriptor(&desc); err != nil {
		return nil, err
	}
	native, err := d.native.CreateSampler(&desc)
	if err != nil {
		return nil, d.nativeFailure(op, err)
	}
	s := &Sampler{desc: desc}
	s.adopt(d, "sampler", desc.Label, native)
	d.children.add(s)
	return s, nil
}

// Descriptor returns the normalized descriptor the sampler was created with.
func (s *Sampler) Descriptor() SamplerDescriptor { return s.desc }
