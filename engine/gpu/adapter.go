package gpu

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
)

// Adapter is a physical device exposed by an Instance. Its info, limits and features are
// captured once and never change.
type Adapter struct {
	handle
	instance *Instance
	native   NativeAdapter
	info     AdapterInfo
	limits   gputypes.Limits
	features gputypes.Features
	devices  ownership
}

// Info returns the adapter description.
func (a *Adapter) Info() AdapterInfo { return a.info }

// Backend returns the id of the backend the adapter belongs to.
func (a *Adapter) Backend() string { return a.instance.Backend() }

// Instance returns the owning instance.
func (a *Adapter) Instance() *Instance { return a.instance }

// Limits returns the best limits the adapter supports.
func (a *Adapter) Limits() gputypes.Limits { return a.limits }

// Features returns the optional features the adapter supports.
func (a *Adapter) Features() gputypes.Features { return a.features }

// Native returns the backend object behind the adapter.
func (a *Adapter) Native() NativeAdapter { return a.native }

// SupportsMultisample reports whether format can be rendered with the given sample count.
func (a *Adapter) SupportsMultisample(format gputypes.TextureFormat, samples uint32) bool {
	if samples <= 1 {
		return true
	}
	return a.native.SupportsMultisample(format, samples)
}

// SurfaceCapabilities returns the formats and modes the adapter can present to s.
//
// Parameters:
//   - s: the surface to query
//
// Returns:
//   - SurfaceCapabilities: supported formats, present modes and alpha modes
//   - error: StateError if the adapter or surface is disposed
func (a *Adapter) SurfaceCapabilities(s *Surface) (SurfaceCapabilities, error) {
	const op = "SurfaceCapabilities"
	if err := a.check(op); err != nil {
		return SurfaceCapabilities{}, err
	}
	if s == nil {
		return SurfaceCapabilities{}, invalid(op, "surface", "must not be nil")
	}
	if err := s.check(op); err != nil {
		return SurfaceCapabilities{}, err
	}
	return a.native.SurfaceCapabilities(s.native), nil
}

// RequestDevice opens a logical device. The call may block on native negotiation; if ctx is
// cancelled the device is released before the cancellation error is returned.
//
// Parameters:
//   - ctx: cancels the acquisition
//   - desc: requested features and limits
//
// Returns:
//   - *Device: the new device
//   - error: ValidationError for unsupported requests, the context error, or ResourceError
func (a *Adapter) RequestDevice(ctx context.Context, desc DeviceDescriptor) (*Device, error) {
	const op = "RequestDevice"
	if err := a.check(op); err != nil {
		return nil, err
	}
	if !a.features.ContainsAll(desc.RequiredFeatures) {
		return nil, invalid(op, "RequiredFeatures", "adapter %q lacks requested features", a.info.Name)
	}
	limits := a.limits
	if desc.RequiredLimits != nil {
		if err := limitsWithin(op, *desc.RequiredLimits, a.limits); err != nil {
			return nil, err
		}
		limits = *desc.RequiredLimits
		desc.RequiredLimits = &limits
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	native, err := a.native.OpenDevice(ctx, desc)
	if err != nil {
		if native != nil {
			_ = native.Release()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, asResourceError(op, err)
	}
	if err := ctx.Err(); err != nil {
		_ = native.Release()
		return nil, err
	}

	d := &Device{adapter: a, native: native, limits: limits, features: desc.RequiredFeatures}
	d.init("device", desc.Label)
	d.queue = &Queue{device: d, native: native.Queue()}
	d.queue.init("queue", desc.Label)
	a.devices.add(d)
	return d, nil
}

func limitsWithin(op string, want, have gputypes.Limits) error {
	switch {
	case want.MaxTextureDimension2D > have.MaxTextureDimension2D:
		return invalid(op, "RequiredLimits.MaxTextureDimension2D", "%d exceeds adapter limit %d", want.MaxTextureDimension2D, have.MaxTextureDimension2D)
	case want.MaxVertexAttributes > have.MaxVertexAttributes:
		return invalid(op, "RequiredLimits.MaxVertexAttributes", "%d exceeds adapter limit %d", want.MaxVertexAttributes, have.MaxVertexAttributes)
	case want.MaxBindGroups > have.MaxBindGroups:
		return invalid(op, "RequiredLimits.MaxBindGroups", "%d exceeds adapter limit %d", want.MaxBindGroups, have.MaxBindGroups)
	case want.MaxVertexBuffers > have.MaxVertexBuffers:
		return invalid(op, "RequiredLimits.MaxVertexBuffers", "%d exceeds adapter limit %d", want.MaxVertexBuffers, have.MaxVertexBuffers)
	}
	return nil
}

// Dispose releases every device opened from the adapter, then the adapter. Subsequent calls are no-ops.
func (a *Adapter) Dispose() error {
	if !a.markDisposed() {
		return nil
	}
	errs := a.devices.disposeReversed()
	if err := a.native.Release(); err != nil {
		errs = append(errs, fmt.Errorf("gpu: release adapter: %w", err))
	}
	a.instance.children.remove(a.id)
	return errors.Join(errs...)
}
