package gpu_test

import (
	"context"
	"testing"

	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/Carmen-Shannon/materia/engine/gpu/gputest"
	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	backend  *gputest.Backend
	instance *gpu.Instance
	adapter  *gpu.Adapter
	device   *gpu.Device
}

func newFixture(t *testing.T, options ...gputest.Option) *fixture {
	t.Helper()
	b := gputest.Install(t, append([]gputest.Option{gputest.WithID(t.Name())}, options...)...)
	inst, err := gpu.CreateInstance(b.ID())
	require.NoError(t, err)
	t.Cleanup(func() { _ = inst.Dispose() })

	a, err := inst.RequestAdapter(context.Background(), nil)
	require.NoError(t, err)
	d, err := a.RequestDevice(context.Background(), gpu.DeviceDescriptor{Label: "test device"})
	require.NoError(t, err)
	return &fixture{backend: b, instance: inst, adapter: a, device: d}
}

func (f *fixture) surface(t *testing.T, width, height int) *gpu.Surface {
	t.Helper()
	s, err := f.instance.CreateSurface(gpu.HeadlessTarget{Width: width, Height: height})
	require.NoError(t, err)
	require.NoError(t, s.Configure(f.device, gpu.SurfaceConfiguration{
		Format: gputypes.TextureFormatBGRA8Unorm,
		Width:  width,
		Height: height,
	}))
	return s
}

func (f *fixture) buffer(t *testing.T, size int64, usage gputypes.BufferUsage) *gpu.Buffer {
	t.Helper()
	b, err := f.device.CreateBuffer(gpu.BufferDescriptor{Label: "buf", Size: size, Usage: usage})
	require.NoError(t, err)
	return b
}

func (f *fixture) pipeline(t *testing.T, format gputypes.TextureFormat) *gpu.RenderPipeline {
	t.Helper()
	mod, err := f.device.CreateShaderModule(gpu.ShaderModuleDescriptor{
		Label:    "triangle",
		Code:     "@vertex fn vs_main() {} @fragment fn fs_main() {}",
		Language: gpu.ShaderLanguageWGSL,
	})
	require.NoError(t, err)
	layout, err := f.device.CreatePipelineLayout(gpu.PipelineLayoutDescriptor{Label: "empty"})
	require.NoError(t, err)
	p, err := f.device.CreateRenderPipeline(gpu.RenderPipelineDescriptor{
		Label:  "triangle",
		Layout: layout,
		Vertex: gpu.VertexState{
			Module:     mod,
			EntryPoint: "vs_main",
			Buffers: []gputypes.VertexBufferLayout{{
				ArrayStride: 12,
				StepMode:    gputypes.VertexStepModeVertex,
				Attributes:  []gputypes.VertexAttribute{{Format: gputypes.VertexFormatFloat32x3, ShaderLocation: 0}},
			}},
		},
		Fragment: &gpu.FragmentState{
			Module:     mod,
			EntryPoint: "fs_main",
			Targets:    []gputypes.ColorTargetState{{Format: format, WriteMask: gputypes.ColorWriteMaskAll}},
		},
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) colorTarget(t *testing.T) *gpu.TextureView {
	t.Helper()
	tex, err := f.device.CreateTexture(gpu.TextureDescriptor{
		Label:  "target",
		Size:   gputypes.Extent3D{Width: 64, Height: 64},
		Format: gputypes.TextureFormatRGBA8Unorm,
		Usage:  gputypes.TextureUsageRenderAttachment,
	})
	require.NoError(t, err)
	v, err := tex.CreateView(nil)
	require.NoError(t, err)
	return v
}

func clearPass(view *gpu.TextureView) gpu.RenderPassDescriptor {
	return gpu.RenderPassDescriptor{
		ColorAttachments: []gpu.ColorAttachment{{
			View:    view,
			LoadOp:  gputypes.LoadOpClear,
			StoreOp: gputypes.StoreOpStore,
		}},
	}
}
