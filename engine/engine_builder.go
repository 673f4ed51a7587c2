package engine

import (
	"time"

	"github.com/Carmen-Shannon/materia/engine/config"
	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/Carmen-Shannon/materia/engine/negotiator"
	"github.com/Carmen-Shannon/materia/engine/profiler"
	"github.com/Carmen-Shannon/materia/engine/renderer"
	"github.com/Carmen-Shannon/materia/engine/scene"
	"github.com/Carmen-Shannon/materia/engine/window"
	"github.com/gogpu/gputypes"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithConfig replaces config.Default as the engine configuration.
//
// Parameters:
//   - cfg: the configuration
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfig(cfg config.Config) EngineBuilderOption {
	return func(e *engine) {
		e.cfg = cfg
	}
}

// WithConfigFile loads the configuration from a TOML file when the engine is built.
// Takes precedence over WithConfig.
//
// Parameters:
//   - path: the TOML file path
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfigFile(path string) EngineBuilderOption {
	return func(e *engine) {
		e.configPath = path
	}
}

// WithTitle sets the title of the engine-created window and the device label.
//
// Parameters:
//   - title: the title
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTitle(title string) EngineBuilderOption {
	return func(e *engine) {
		e.title = title
	}
}

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithProfiler replaces the engine's default profiler.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		if p != nil {
			e.profiler = p
		}
	}
}

// WithTickRate overrides the configured tick rate in frames per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Duration(float64(time.Second) / fps)
	}
}

// WithWindow sets a custom configured window for the engine to use rather than allowing the engine
// to create and manage one internally. The engine does not close it.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithTarget renders to a surface target other than a window, such as gpu.HeadlessTarget.
// Run then blocks until ctx is done or Quit is called.
//
// Parameters:
//   - target: the presentation target
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTarget(target gpu.SurfaceTarget) EngineBuilderOption {
	return func(e *engine) {
		e.target = target
	}
}

// WithSurfaceFormat sets the swapchain format. Defaults to BGRA8Unorm.
//
// Parameters:
//   - format: the texture format
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithSurfaceFormat(format gputypes.TextureFormat) EngineBuilderOption {
	return func(e *engine) {
		e.format = format
	}
}

// WithNegotiatorOptions appends negotiator options after those derived from the configuration.
//
// Parameters:
//   - options: the negotiator options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithNegotiatorOptions(options ...negotiator.NegotiatorBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.negotiation = append(e.negotiation, options...)
	}
}

// WithRendererOptions appends renderer options after those derived from the configuration.
//
// Parameters:
//   - options: the renderer options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRendererOptions(options ...renderer.RendererBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.rendering = append(e.rendering, options...)
	}
}

// WithScene registers a scene at the given z-index key during engine construction.
// Scenes are composited in ascending key order.
//
// Parameters:
//   - key: the z-index determining draw order (lower draws first)
//   - s: the Scene to register
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScene(key int, s scene.Scene) EngineBuilderOption {
	return func(e *engine) {
		e.scenes[key] = s
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.renderFrameLimit = frameLimit(fps)
	}
}
