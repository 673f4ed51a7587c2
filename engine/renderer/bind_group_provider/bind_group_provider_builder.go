package bind_group_provider

import "github.com/Carmen-Shannon/materia/engine/gpu"

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithGroup sets the bind group index the provider binds at.
//
// Parameters:
//   - group: the group index
//
// Returns:
//   - BindGroupProviderOption: a function that sets the group index for this provider
func WithGroup(group uint32) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.group = group
	}
}

// WithUniform declares a uniform buffer binding.
//
// Parameters:
//   - u: the binding index, size and stage visibility
//
// Returns:
//   - BindGroupProviderOption: a function that adds the uniform to this provider
func WithUniform(u Uniform) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.uniforms = append(p.uniforms, u)
	}
}

// WithBindGroupLayout shares an existing layout instead of creating one in Init. The layout must
// match the uniform declarations and stays owned by the caller.
//
// Parameters:
//   - bgl: the bind group layout to use for this provider
//
// Returns:
//   - BindGroupProviderOption: a function that sets the bind group layout for this provider
func WithBindGroupLayout(bgl *gpu.BindGroupLayout) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.bindGroupLayout = bgl
		p.ownsLayout = false
	}
}
