package scene

import (
	"github.com/Carmen-Shannon/materia/engine/camera"
	"github.com/Carmen-Shannon/materia/engine/light"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithCamera sets the scene's camera.
//
// Parameters:
//   - cam: the camera
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithCamera(cam camera.Camera) SceneBuilderOption {
	return func(s *scene) {
		s.cam = cam
	}
}

// WithLights adds initial lights to the scene.
//
// Parameters:
//   - lights: the lights to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLights(lights ...light.Light) SceneBuilderOption {
	return func(s *scene) {
		s.lights = append(s.lights, lights...)
	}
}

// WithDrawables adds initial drawables to the scene in order.
//
// Parameters:
//   - drawables: the drawables to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithDrawables(drawables ...Drawable) SceneBuilderOption {
	return func(s *scene) {
		for _, d := range drawables {
			s.entries = append(s.entries, entry{id: s.nextID, drawable: d})
			s.nextID++
		}
	}
}

// WithWorkers sets the number of worker goroutines used by PackObjectUniforms.
// Defaults to runtime.NumCPU()-1.
//
// Parameters:
//   - n: the number of workers (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		s.workers = max(n, 1)
	}
}

// WithChunkSize sets how many drawables one packing task handles. Lists no longer than one
// chunk are packed on the caller's goroutine.
//
// Parameters:
//   - n: drawables per task (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithChunkSize(n int) SceneBuilderOption {
	return func(s *scene) {
		s.chunkSize = max(n, 1)
	}
}

// WithCulling enables CPU frustum culling in Drawables. Disabled by default.
//
// Parameters:
//   - enabled: true to mark drawables outside the camera frustum invisible
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithCulling(enabled bool) SceneBuilderOption {
	return func(s *scene) {
		s.cullingEnabled = enabled
	}
}
