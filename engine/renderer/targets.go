package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/gogpu/gputypes"
)

// frameTargets holds the size-dependent attachments that live across frames: the MSAA color
// target and the depth target. Both are rebuilt when the swapchain is resized.
type frameTargets struct {
	width, height int
	sampleCount   uint32

	msaaView  *gpu.TextureView
	depthView *gpu.TextureView

	owned *gpu.DisposableContainer
}

// newFrameTargets creates the attachments for a width x height swapchain. When samples is above 1
// the render pass draws into the MSAA texture and resolves into the swapchain image. A depth
// target is only created when depthFormat is not Undefined; its sample count must match the
// color attachment.
func newFrameTargets(device *gpu.Device, colorFormat, depthFormat gputypes.TextureFormat, width, height int, samples uint32) (*frameTargets, error) {
	t := &frameTargets{width: width, height: height, sampleCount: samples, owned: gpu.NewDisposableContainer()}
	size := gputypes.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1}

	if samples > 1 {
		view, err := t.attachment(device, "msaa", colorFormat, size, samples)
		if err != nil {
			return nil, err
		}
		t.msaaView = view
	}
	if depthFormat != gputypes.TextureFormatUndefined {
		view, err := t.attachment(device, "depth", depthFormat, size, samples)
		if err != nil {
			return nil, err
		}
		t.depthView = view
	}
	return t, nil
}

// attachment creates a render attachment texture and its view. On failure everything the
// targets own so far is released.
func (t *frameTargets) attachment(device *gpu.Device, label string, format gputypes.TextureFormat, size gputypes.Extent3D, samples uint32) (*gpu.TextureView, error) {
	tex, err := device.CreateTexture(gpu.TextureDescriptor{
		Label:         label + " texture",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   samples,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		_ = t.release()
		return nil, fmt.Errorf("renderer: %s target: %w", label, err)
	}
	_ = t.owned.Add(tex)

	view, err := tex.CreateView(&gpu.TextureViewDescriptor{Label: label + " view"})
	if err != nil {
		_ = t.release()
		return nil, fmt.Errorf("renderer: %s target: %w", label, err)
	}
	_ = t.owned.Add(view)
	return view, nil
}

// colorAttachment returns the color attachment that ends up in frame. With MSAA the pass draws
// into the MSAA view, resolves into frame and discards the multisampled data.
func (t *frameTargets) colorAttachment(frame *gpu.TextureView, clear gputypes.Color) gpu.ColorAttachment {
	ca := gpu.ColorAttachment{
		View:       frame,
		LoadOp:     gputypes.LoadOpClear,
		StoreOp:    gputypes.StoreOpStore,
		ClearColor: clear,
	}
	if t.msaaView != nil {
		ca.View = t.msaaView
		ca.ResolveTarget = frame
		ca.StoreOp = gputypes.StoreOpDiscard
	}
	return ca
}

// depthAttachment returns the depth attachment, or nil when depth is disabled.
func (t *frameTargets) depthAttachment(clearValue float32) *gpu.DepthStencilAttachment {
	if t.depthView == nil {
		return nil
	}
	return &gpu.DepthStencilAttachment{
		View:            t.depthView,
		DepthLoadOp:     gputypes.LoadOpClear,
		DepthStoreOp:    gputypes.StoreOpDiscard,
		DepthClearValue: clearValue,
	}
}

// release disposes every view before the texture it was created from.
func (t *frameTargets) release() error {
	t.msaaView, t.depthView = nil, nil
	return t.owned.Dispose()
}
