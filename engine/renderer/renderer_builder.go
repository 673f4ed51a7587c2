package renderer

import (
	"github.com/Carmen-Shannon/materia/engine/profiler"
	"github.com/gogpu/gputypes"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithClearColor sets the color every frame's render pass clears to. Defaults to opaque black.
//
// Parameters:
//   - color: the clear color
//
// Returns:
//   - RendererBuilderOption: a function that applies the clear color option to a renderer
func WithClearColor(color gputypes.Color) RendererBuilderOption {
	return func(r *renderer) {
		r.clearColor = color
	}
}

// WithDepth toggles the Depth24Plus depth attachment. Enabled by default.
//
// Parameters:
//   - enabled: true to render with a depth attachment
//
// Returns:
//   - RendererBuilderOption: a function that applies the depth option to a renderer
func WithDepth(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.depthEnabled = enabled
	}
}

// WithDepthClearValue sets the depth the attachment is cleared to each frame. Defaults to 1.0.
//
// Parameters:
//   - value: the clear depth, in [0,1]
//
// Returns:
//   - RendererBuilderOption: a function that applies the depth clear option to a renderer
func WithDepthClearValue(value float32) RendererBuilderOption {
	return func(r *renderer) {
		r.depthClearValue = value
	}
}

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
// Without it the surface keeps the present mode it was configured with.
//
// Parameters:
//   - mode: the PresentMode to use (VSync, Uncapped or Mailbox)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.presentMode = &mode
	}
}

// WithMSAA sets the multisample anti-aliasing sample count for the renderer.
// When not specified MSAA is off. An adapter without 4x support for the surface format falls
// back to MSAAOff with a warning.
//
// Parameters:
//   - count: the MSAASampleCount to use (MSAAOff or MSAA4x)
//
// Returns:
//   - RendererBuilderOption: a function that applies the MSAA option to a renderer
func WithMSAA(count MSAASampleCount) RendererBuilderOption {
	return func(r *renderer) {
		r.sampleCount = count
	}
}

// WithSampleCount is WithMSAA for a raw sample count.
func WithSampleCount(count uint32) RendererBuilderOption {
	return WithMSAA(MSAASampleCount(count))
}

// WithProfiler ticks p once per presented frame with the frame's draw statistics.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - RendererBuilderOption: a function that applies the profiler option to a renderer
func WithProfiler(p *profiler.Profiler) RendererBuilderOption {
	return func(r *renderer) {
		r.profiler = p
	}
}

// WithPipelineFactory replaces DefaultPipelineFactory.
//
// Parameters:
//   - factory: creates the pipeline of a material
//
// Returns:
//   - RendererBuilderOption: a function that applies the factory option to a renderer
func WithPipelineFactory(factory PipelineFactory) RendererBuilderOption {
	return func(r *renderer) {
		if factory != nil {
			r.factory = factory
		}
	}
}
