package shader

import (
	"fmt"

	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/gogpu/naga"
)

// ToSPIRV translates a WGSL source into a SPIR-V source with the same key, stage and entry point.
// SPIR-V sources are returned unchanged.
//
// Parameters:
//   - src: the source to translate
//
// Returns:
//   - Source: the SPIR-V source, its Code holding the little-endian binary
//   - error: the compiler error for invalid WGSL
func ToSPIRV(src Source) (Source, error) {
	switch src.Language {
	case gpu.ShaderLanguageSPIRV:
		return src, nil
	case gpu.ShaderLanguageWGSL:
	default:
		return Source{}, fmt.Errorf("shader: %s: cannot translate %s to SPIR-V", src.Key, src.Language)
	}
	if src.EntryPoint == "" {
		src.EntryPoint = parseEntryPoint(src.Code, src.Stage)
	}
	binary, err := naga.Compile(src.Code)
	if err != nil {
		return Source{}, fmt.Errorf("shader: %s: compile WGSL: %w", src.Key, err)
	}
	src.Code = string(binary)
	src.Language = gpu.ShaderLanguageSPIRV
	return src, nil
}
