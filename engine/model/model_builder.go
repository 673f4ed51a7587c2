package model

import "slices"

// ModelBuilderOption is a function that configures a model instance during construction.
type ModelBuilderOption func(*model)

// WithName is an option builder that sets the name of the model.
//
// Parameters:
//   - name: the identifier for the model
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a model
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		m.name = name
	}
}

// WithVertices is an option builder that sets the vertex data of the model.
//
// Parameters:
//   - vertices: the mesh vertices
//
// Returns:
//   - ModelBuilderOption: a function that applies the vertices to a model
func WithVertices(vertices ...GPUVertex) ModelBuilderOption {
	return func(m *model) {
		m.vertices = slices.Clone(vertices)
	}
}

// WithIndices is an option builder that sets the triangle indices of the model.
//
// Parameters:
//   - indices: indices into the vertex list
//
// Returns:
//   - ModelBuilderOption: a function that applies the indices to a model
func WithIndices(indices ...uint32) ModelBuilderOption {
	return func(m *model) {
		m.indices = slices.Clone(indices)
	}
}
