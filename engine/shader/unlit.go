package shader

import (
	_ "embed"

	"github.com/Carmen-Shannon/materia/engine/gpu"
)

// UnlitWGSL is the built-in shader of the default material: flat base color with an ambient
// term and one directional light. It expects the camera and light uniforms in group 0, the
// object model matrix in group 1 and the material color in group 2.
//
//go:embed assets/unlit.wgsl
var UnlitWGSL string

// UnlitVertex returns the vertex stage source of UnlitWGSL.
func UnlitVertex() Source {
	return Source{Key: "unlit.vs", Code: UnlitWGSL, Language: gpu.ShaderLanguageWGSL, EntryPoint: "vs_main", Stage: StageVertex}
}

// UnlitFragment returns the fragment stage source of UnlitWGSL.
func UnlitFragment() Source {
	return Source{Key: "unlit.fs", Code: UnlitWGSL, Language: gpu.ShaderLanguageWGSL, EntryPoint: "fs_main", Stage: StageFragment}
}
