package webgpu_backend

import (
	"context"
	"strings"

	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/Carmen-Shannon/materia/engine/logger"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/gputypes"
)

// SurfaceDescriber is implemented by surface targets that can describe themselves to wgpu-native.
// The glfw window does this through wgpuglfw.
type SurfaceDescriber interface {
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
}

type instance struct {
	raw           *wgpu.Instance
	forceFallback bool
}

var _ gpu.NativeInstance = &instance{}

func (i *instance) Release() error {
	i.raw.Release()
	return nil
}

func (i *instance) CreateSurface(target gpu.SurfaceTarget) (gpu.NativeSurface, error) {
	describer, ok := target.(SurfaceDescriber)
	if !ok {
		return nil, &gpu.ResourceError{Kind: gpu.ResourceSurfaceLost, Op: "CreateSurface", Err: errNoDescriptor}
	}
	desc := describer.SurfaceDescriptor()
	if desc == nil {
		return nil, &gpu.ResourceError{Kind: gpu.ResourceSurfaceLost, Op: "CreateSurface", Err: errNoDescriptor}
	}
	return &surface{raw: i.raw.CreateSurface(desc)}, nil
}

// EnumerateAdapters returns the single adapter wgpu-native picks for the surface.
func (i *instance) EnumerateAdapters(ctx context.Context, s gpu.NativeSurface) ([]gpu.NativeAdapter, error) {
	opts := &wgpu.RequestAdapterOptions{ForceFallbackAdapter: i.forceFallback}
	if s != nil {
		opts.CompatibleSurface = s.(*surface).raw
	}
	type result struct {
		raw *wgpu.Adapter
		err error
	}
	done := make(chan result, 1)
	go func() {
		raw, err := i.raw.RequestAdapter(opts)
		done <- result{raw, err}
	}()
	select {
	case r := <-done:
		if r.err != nil {
			return nil, translate("EnumerateAdapters", r.err)
		}
		return []gpu.NativeAdapter{&adapter{raw: r.raw}}, nil
	case <-ctx.Done():
		go func() {
			if r := <-done; r.raw != nil {
				r.raw.Release()
			}
		}()
		return nil, ctx.Err()
	}
}

type adapter struct {
	raw *wgpu.Adapter
}

var _ gpu.NativeAdapter = &adapter{}

func (a *adapter) Release() error {
	a.raw.Release()
	return nil
}

func (a *adapter) Info() gpu.AdapterInfo {
	info := a.raw.GetInfo()
	return gpu.AdapterInfo{
		Name:          info.Name,
		Vendor:        info.VendorName,
		Architecture:  info.Architecture,
		DriverVersion: strings.TrimSpace(info.DriverDescription),
		VendorID:      info.VendorId,
		DeviceID:      info.DeviceId,
		DeviceType:    deviceTypes[info.AdapterType],
	}
}

func (a *adapter) Limits() gputypes.Limits {
	return fromLimits(a.raw.GetLimits().Limits)
}

func (a *adapter) Features() gputypes.Features {
	var out gputypes.Features
	for f, name := range features {
		if a.raw.HasFeature(name) {
			out.Insert(f)
		}
	}
	return out
}

// SupportsMultisample reports the sample counts WebGPU guarantees for renderable formats.
func (a *adapter) SupportsMultisample(format gputypes.TextureFormat, samples uint32) bool {
	if _, ok := textureFormats[format]; !ok {
		return false
	}
	return samples == 1 || samples == 4
}

func (a *adapter) SurfaceCapabilities(s gpu.NativeSurface) gpu.SurfaceCapabilities {
	caps := s.(*surface).raw.GetCapabilities(a.raw)
	var out gpu.SurfaceCapabilities
	for _, f := range caps.Formats {
		if v, ok := textureFormatsBack[f]; ok {
			out.Formats = append(out.Formats, v)
		}
	}
	for _, m := range caps.PresentModes {
		if v, ok := presentModesBack[m]; ok {
			out.PresentModes = append(out.PresentModes, v)
		}
	}
	for _, m := range caps.AlphaModes {
		if v, ok := alphaModesBack[m]; ok {
			out.AlphaModes = append(out.AlphaModes, v)
		}
	}
	return out
}

func (a *adapter) OpenDevice(ctx context.Context, desc gpu.DeviceDescriptor) (gpu.NativeDevice, error) {
	limits := a.raw.GetLimits().Limits
	if desc.RequiredLimits != nil {
		limits = toLimits(wgpu.DefaultLimits(), *desc.RequiredLimits)
	}
	var required []wgpu.FeatureName
	for f, name := range features {
		if desc.RequiredFeatures.Contains(f) {
			required = append(required, name)
		}
	}
	wd := &wgpu.DeviceDescriptor{
		Label:            desc.Label,
		RequiredFeatures: required,
		RequiredLimits:   &wgpu.RequiredLimits{Limits: limits},
	}
	type result struct {
		raw *wgpu.Device
		err error
	}
	done := make(chan result, 1)
	go func() {
		raw, err := a.raw.RequestDevice(wd)
		done <- result{raw, err}
	}()
	select {
	case r := <-done:
		if r.err != nil {
			return nil, translate("OpenDevice", r.err)
		}
		return newDevice(a.raw, r.raw), nil
	case <-ctx.Done():
		go func() {
			if r := <-done; r.raw != nil {
				logger.Logger().Debug("webgpu_backend: releasing device opened after cancellation")
				r.raw.Release()
			}
		}()
		return nil, ctx.Err()
	}
}
