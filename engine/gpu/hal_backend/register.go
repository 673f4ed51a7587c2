package hal_backend

import (
	"github.com/Carmen-Shannon/materia/engine/gpu"

	// Links the platform hal backends (Vulkan, Metal, GLES) and the software rasterizer.
	_ "github.com/gogpu/wgpu/hal/allbackends"
)

func init() {
	for _, b := range Defaults() {
		gpu.RegisterBackend(b)
	}
}
