package negotiator

import (
	"context"

	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/Carmen-Shannon/materia/engine/logger"
	"github.com/gogpu/gputypes"
)

// SurfaceConfig describes the presentation target and the device to open for it.
type SurfaceConfig struct {
	// Target defaults to a gpu.HeadlessTarget of Width x Height.
	Target gpu.SurfaceTarget
	// Width and Height default to the target's framebuffer size.
	Width, Height int
	Format        gputypes.TextureFormat
	Usage         gputypes.TextureUsage
	PresentMode   gputypes.PresentMode
	AlphaMode     gputypes.CompositeAlphaMode

	DeviceLabel      string
	RequiredFeatures gputypes.Features
	RequiredLimits   *gputypes.Limits
}

// RenderSurfaceDescriptor owns the platform objects of one initialized backend.
type RenderSurfaceDescriptor struct {
	Instance  *gpu.Instance
	Surface   *gpu.Surface
	Adapter   *gpu.Adapter
	Device    *gpu.Device
	Config    gpu.SurfaceConfiguration
	Selection *BackendSelection

	owned *gpu.DisposableContainer
}

// Dispose releases device, adapter, surface and instance in that order. Subsequent calls are no-ops.
func (r *RenderSurfaceDescriptor) Dispose() error {
	return r.owned.Dispose()
}

// Report returns the capability report of the initialized adapter: the negotiated report when
// the descriptor came from Negotiate, otherwise one built from the adapter on demand.
func (r *RenderSurfaceDescriptor) Report() DeviceCapabilityReport {
	if r.Selection != nil {
		return r.Selection.Report
	}
	return buildReport(r.Adapter.Backend(), r.Adapter, r.Surface)
}

// DeviceResult is the outcome of an asynchronous device acquisition.
type DeviceResult struct {
	Device *gpu.Device
	Err    error
}

// AcquireDevice requests a device without blocking the caller. A device that arrives after ctx
// is cancelled is disposed and the cancellation is reported instead.
//
// Parameters:
//   - ctx: cancels the acquisition
//   - adapter: the adapter to open the device on
//   - desc: requested features and limits
//
// Returns:
//   - <-chan DeviceResult: receives exactly one result, then closes
func AcquireDevice(ctx context.Context, adapter *gpu.Adapter, desc gpu.DeviceDescriptor) <-chan DeviceResult {
	out := make(chan DeviceResult, 1)
	go func() {
		defer close(out)
		device, err := adapter.RequestDevice(ctx, desc)
		if err == nil && ctx.Err() != nil {
			_ = device.Dispose()
			device, err = nil, ctx.Err()
		}
		out <- DeviceResult{Device: device, Err: err}
	}()
	return out
}

func (n *negotiator) InitializePlatform(ctx context.Context, backendID string, config SurfaceConfig) (*RenderSurfaceDescriptor, error) {
	owned := gpu.NewDisposableContainer()
	fail := func(err error) (*RenderSurfaceDescriptor, error) {
		if derr := owned.Dispose(); derr != nil {
			logger.Logger().Warn("negotiator: teardown after failed initialization", "backend", backendID, "error", derr)
		}
		return nil, err
	}

	target := config.Target
	if target == nil {
		target = gpu.HeadlessTarget{Width: config.Width, Height: config.Height}
	}
	width, height := config.Width, config.Height
	if width == 0 && height == 0 {
		width, height = target.FramebufferSize()
	}

	instance, err := gpu.CreateInstance(backendID, gpu.WithLabel(config.DeviceLabel), gpu.WithValidation(n.validation))
	if err != nil {
		return nil, err
	}
	_ = owned.Add(instance)

	surface, err := instance.CreateSurface(target)
	if err != nil {
		return fail(err)
	}
	_ = owned.Add(surface)

	adapter, err := instance.RequestAdapter(ctx, &gpu.RequestAdapterOptions{CompatibleSurface: surface, PowerPreference: n.power})
	if err != nil {
		return fail(err)
	}
	_ = owned.Add(adapter)

	result := <-AcquireDevice(ctx, adapter, gpu.DeviceDescriptor{
		Label:            config.DeviceLabel,
		RequiredFeatures: config.RequiredFeatures,
		RequiredLimits:   config.RequiredLimits,
	})
	if result.Err != nil {
		return fail(result.Err)
	}
	_ = owned.Add(result.Device)

	err = surface.Configure(result.Device, gpu.SurfaceConfiguration{
		Format:      config.Format,
		Usage:       config.Usage,
		Width:       width,
		Height:      height,
		PresentMode: config.PresentMode,
		AlphaMode:   config.AlphaMode,
	})
	if err != nil {
		return fail(err)
	}
	applied, _ := surface.Configuration()

	logger.Logger().Debug("negotiator: platform initialized",
		"backend", backendID,
		"adapter", adapter.Info().Name,
		"width", applied.Width,
		"height", applied.Height,
		"format", applied.Format,
	)
	return &RenderSurfaceDescriptor{
		Instance: instance,
		Surface:  surface,
		Adapter:  adapter,
		Device:   result.Device,
		Config:   applied,
		owned:    owned,
	}, nil
}
