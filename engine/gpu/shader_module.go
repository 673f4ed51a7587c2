package gpu

// ShaderModule is an opaque pair of shader code and source language. The core never parses it.
type ShaderModule struct {
	resource
	code     string
	language ShaderLanguage
}

// CreateShaderModule creates a shader module from opaque code.
//
// Parameters:
//   - desc: the code and its language tag
//
// Returns:
//   - *ShaderModule: the new module
//   - error: ValidationError, StateError, or ResourceError (including backend compile failures)
func (d *Device) CreateShaderModule(desc ShaderModuleDescriptor) (*ShaderModule, error) {
	const op = "CreateShaderModule"
	if err := d.ready(op); err != nil {
		return nil, err
	}
	if err := validateShaderModuleDescriptor(&desc); err != nil {
		return nil, err
	}
	native, err := d.native.CreateShaderModule(&desc)
	if err != nil {
		return nil, d.nativeFailure(op, err)
	}
	m := &ShaderModule{code: desc.Code, language: desc.Language}
	m.adopt(d, "shader module", desc.Label, native)
	d.children.add(m)
	return m, nil
}

func (m *ShaderModule) Code() string             { return m.code }
func (m *ShaderModule) Language() ShaderLanguage { return m.language }
