package hal_backend

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

var errUnconfigured = errors.New("hal_backend: surface is not configured")

type surface struct {
	raw hal.Surface

	mu       sync.Mutex
	device   *device
	format   gputypes.TextureFormat
	released atomic.Bool
}

var _ gpu.NativeSurface = &surface{}

func (s *surface) Release() error {
	if !s.released.CompareAndSwap(false, true) {
		return errReleased
	}
	s.raw.Destroy()
	return nil
}

func (s *surface) Configure(nd gpu.NativeDevice, config *gpu.SurfaceConfiguration) error {
	d := nd.(*device)
	err := s.raw.Configure(d.raw, &hal.SurfaceConfiguration{
		Width:       uint32(config.Width),
		Height:      uint32(config.Height),
		Format:      config.Format,
		Usage:       config.Usage,
		PresentMode: config.PresentMode,
		AlphaMode:   config.AlphaMode,
	})
	if err != nil {
		return translate("Configure", err)
	}
	s.mu.Lock()
	s.device = d
	s.format = config.Format
	s.mu.Unlock()
	return nil
}

func (s *surface) Unconfigure(nd gpu.NativeDevice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw.Unconfigure(nd.(*device).raw)
	s.device = nil
}

func (s *surface) Acquire() (gpu.NativeSurfaceTexture, error) {
	s.mu.Lock()
	d, format := s.device, s.format
	s.mu.Unlock()
	if d == nil {
		return nil, translate("Acquire", errUnconfigured)
	}

	acquired, err := s.raw.AcquireTexture(nil)
	if err != nil {
		return nil, translate("Acquire", err)
	}
	view, err := d.raw.CreateTextureView(acquired.Texture, &hal.TextureViewDescriptor{
		Label:           "swapchain view",
		Format:          format,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	if err != nil {
		s.raw.DiscardTexture(acquired.Texture)
		return nil, translate("Acquire", err)
	}
	return &surfaceTexture{
		raw:        acquired.Texture,
		view:       release(d, view, d.raw.DestroyTextureView),
		device:     d,
		suboptimal: acquired.Suboptimal,
	}, nil
}

func (s *surface) Present(t gpu.NativeSurfaceTexture) error {
	st := t.(*surfaceTexture)
	err := st.device.queue.present(s.raw, st.raw)
	_ = st.view.Release()
	return err
}

func (s *surface) Discard(t gpu.NativeSurfaceTexture) {
	st := t.(*surfaceTexture)
	s.raw.DiscardTexture(st.raw)
	_ = st.view.Release()
}

type surfaceTexture struct {
	raw        hal.SurfaceTexture
	view       *object[hal.TextureView]
	device     *device
	suboptimal bool
}

func (t *surfaceTexture) View() gpu.NativeObject { return t.view }

func (t *surfaceTexture) Suboptimal() bool { return t.suboptimal }
