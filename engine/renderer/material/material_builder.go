package material

import "github.com/Carmen-Shannon/materia/engine/shader"

// MaterialBuilderOption is a function that configures a material instance during construction.
type MaterialBuilderOption func(*material)

// WithName is an option builder that sets the name of the material.
//
// Parameters:
//   - name: the identifier for the material
//
// Returns:
//   - MaterialBuilderOption: a function that applies the name option to a material
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		m.name = name
	}
}

// WithBaseColor is an option builder that sets the albedo RGBA color of the material.
//
// Parameters:
//   - color: the base color as RGBA float32 values
//
// Returns:
//   - MaterialBuilderOption: a function that applies the base color option to a material
func WithBaseColor(color [4]float32) MaterialBuilderOption {
	return func(m *material) {
		m.baseColor = color
	}
}

// WithFeatures is an option builder that adds required pipeline features.
//
// Parameters:
//   - features: the features the material needs
//
// Returns:
//   - MaterialBuilderOption: a function that applies the features to a material
func WithFeatures(features ...Feature) MaterialBuilderOption {
	return func(m *material) {
		for _, f := range features {
			m.features |= FeatureSet(f)
		}
	}
}

// WithShaders is an option builder that replaces the built-in unlit shader pair. The shaders must
// read the material uniform at group 2, binding 0.
//
// Parameters:
//   - vertex: the vertex stage shader
//   - fragment: the fragment stage shader
//
// Returns:
//   - MaterialBuilderOption: a function that applies the shaders to a material
func WithShaders(vertex, fragment shader.Shader) MaterialBuilderOption {
	return func(m *material) {
		m.vertexShader = vertex
		m.fragmentShader = fragment
	}
}
