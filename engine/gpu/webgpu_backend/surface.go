package webgpu_backend

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

var errUnconfigured = errors.New("webgpu_backend: surface is not configured")

type surface struct {
	raw *wgpu.Surface

	mu         sync.Mutex
	configured bool
	released   atomic.Bool
}

var _ gpu.NativeSurface = &surface{}

func (s *surface) Release() error {
	if !s.released.CompareAndSwap(false, true) {
		return errReleased
	}
	s.raw.Release()
	return nil
}

func (s *surface) Configure(nd gpu.NativeDevice, config *gpu.SurfaceConfiguration) error {
	d := nd.(*device)
	c := &converter{op: "Configure"}
	cfg := &wgpu.SurfaceConfiguration{
		Usage:       flags(textureUsages, config.Usage),
		Format:      lookup(c, textureFormats, config.Format, "Format"),
		Width:       uint32(config.Width),
		Height:      uint32(config.Height),
		PresentMode: lookup(c, presentModes, config.PresentMode, "PresentMode"),
		AlphaMode:   lookup(c, alphaModes, config.AlphaMode, "AlphaMode"),
	}
	if c.err != nil {
		return c.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw.Configure(d.adapter, d.raw, cfg)
	s.configured = true
	return nil
}

// Unconfigure only forgets the configuration; wgpu-native drops the swapchain with the surface.
func (s *surface) Unconfigure(gpu.NativeDevice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configured = false
}

func (s *surface) Acquire() (gpu.NativeSurfaceTexture, error) {
	s.mu.Lock()
	configured := s.configured
	s.mu.Unlock()
	if !configured {
		return nil, translate("Acquire", errUnconfigured)
	}

	tex, err := s.raw.GetCurrentTexture()
	if err != nil {
		// GetCurrentTexture fails on outdated, lost and timed out swapchains alike; all recover by reconfiguring.
		return nil, &gpu.ResourceError{Kind: gpu.ResourceSwapchainOutOfDate, Op: "Acquire", Err: err}
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, translate("Acquire", err)
	}
	return &surfaceTexture{raw: tex, view: wrap(view)}, nil
}

func (s *surface) Present(t gpu.NativeSurfaceTexture) error {
	st := t.(*surfaceTexture)
	s.raw.Present()
	st.release()
	return nil
}

func (s *surface) Discard(t gpu.NativeSurfaceTexture) {
	t.(*surfaceTexture).release()
}

type surfaceTexture struct {
	raw  *wgpu.Texture
	view *object[*wgpu.TextureView]
}

func (t *surfaceTexture) View() gpu.NativeObject { return t.view }

func (t *surfaceTexture) Suboptimal() bool { return false }

func (t *surfaceTexture) release() {
	_ = t.view.Release()
	t.raw.Release()
}
