package hal_backend

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

type instance struct {
	raw      hal.Instance
	variant  gputypes.Backend
	released atomic.Bool
}

var _ gpu.NativeInstance = &instance{}

func (i *instance) Release() error {
	if !i.released.CompareAndSwap(false, true) {
		return errReleased
	}
	i.raw.Destroy()
	return nil
}

func (i *instance) CreateSurface(target gpu.SurfaceTarget) (gpu.NativeSurface, error) {
	display, window := target.NativeHandles()
	raw, err := i.raw.CreateSurface(display, window)
	if err != nil {
		return nil, translate("CreateSurface", err)
	}
	return &surface{raw: raw}, nil
}

func (i *instance) EnumerateAdapters(ctx context.Context, s gpu.NativeSurface) ([]gpu.NativeAdapter, error) {
	var hint hal.Surface
	if s != nil {
		hint = s.(*surface).raw
	}
	exposed := i.raw.EnumerateAdapters(hint)
	if err := ctx.Err(); err != nil {
		for _, e := range exposed {
			e.Adapter.Destroy()
		}
		return nil, err
	}
	adapters := make([]gpu.NativeAdapter, 0, len(exposed))
	for _, e := range exposed {
		adapters = append(adapters, &adapter{exposed: e})
	}
	return adapters, nil
}

type adapter struct {
	exposed  hal.ExposedAdapter
	released atomic.Bool
}

var _ gpu.NativeAdapter = &adapter{}

func (a *adapter) Release() error {
	if !a.released.CompareAndSwap(false, true) {
		return errReleased
	}
	a.exposed.Adapter.Destroy()
	return nil
}

func (a *adapter) Info() gpu.AdapterInfo {
	info := a.exposed.Info
	return gpu.AdapterInfo{
		Name:          info.Name,
		Vendor:        info.Vendor,
		Architecture:  info.Backend.String(),
		DriverVersion: strings.TrimSpace(info.Driver + " " + info.DriverInfo),
		VendorID:      info.VendorID,
		DeviceID:      info.DeviceID,
		DeviceType:    info.DeviceType,
	}
}

func (a *adapter) Limits() gputypes.Limits { return a.exposed.Capabilities.Limits }

func (a *adapter) Features() gputypes.Features { return a.exposed.Features }

func (a *adapter) SupportsMultisample(format gputypes.TextureFormat, samples uint32) bool {
	if samples <= 1 {
		return true
	}
	caps := a.exposed.Adapter.TextureFormatCapabilities(format)
	return caps.Flags&hal.TextureFormatCapabilityMultisample != 0
}

func (a *adapter) SurfaceCapabilities(s gpu.NativeSurface) gpu.SurfaceCapabilities {
	caps := a.exposed.Adapter.SurfaceCapabilities(s.(*surface).raw)
	if caps == nil {
		return gpu.SurfaceCapabilities{}
	}
	return gpu.SurfaceCapabilities{
		Formats:      caps.Formats,
		PresentModes: caps.PresentModes,
		AlphaModes:   caps.AlphaModes,
	}
}

type openResult struct {
	open hal.OpenDevice
	err  error
}

// OpenDevice runs the blocking hal Open on its own goroutine so ctx can abandon it. A device
// that finishes opening after cancellation is destroyed as soon as it arrives.
func (a *adapter) OpenDevice(ctx context.Context, desc gpu.DeviceDescriptor) (gpu.NativeDevice, error) {
	limits := a.exposed.Capabilities.Limits
	if desc.RequiredLimits != nil {
		limits = *desc.RequiredLimits
	}

	done := make(chan openResult, 1)
	go func() {
		open, err := a.exposed.Adapter.Open(desc.RequiredFeatures, limits)
		done <- openResult{open: open, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, translate("OpenDevice", r.err)
		}
		return newDevice(r.open), nil
	case <-ctx.Done():
		go func() {
			if r := <-done; r.err == nil {
				r.open.Device.Destroy()
			}
		}()
		return nil, ctx.Err()
	}
}
