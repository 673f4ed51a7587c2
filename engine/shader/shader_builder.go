package shader

// ShaderBuilderOption configures a Shader.
type ShaderBuilderOption func(*shader)

// WithSPIRVTranslation makes Module translate WGSL code to SPIR-V before creating the module,
// for devices whose backend only consumes SPIR-V.
//
// Parameters:
//   - enabled: whether to translate
//
// Returns:
//   - ShaderBuilderOption: the option
func WithSPIRVTranslation(enabled bool) ShaderBuilderOption {
	return func(s *shader) {
		s.translate = enabled
	}
}

// WithLabel overrides the debug label of created modules, which defaults to the source key.
func WithLabel(label string) ShaderBuilderOption {
	return func(s *shader) {
		s.label = label
	}
}
