package gpu

import (
	"errors"

	"github.com/gogpu/gputypes"
)

// Texture is GPU image memory. It owns every view created from it; disposing the texture
// disposes its views first.
type Texture struct {
	resource
	desc  TextureDescriptor
	views ownership
}

// CreateTexture validates desc and creates a texture.
//
// Parameters:
//   - desc: the texture descriptor, zero mip and sample counts default to 1
//
// Returns:
//   - *Texture: the new texture
//   - error: ValidationError naming the offending field, StateError, or ResourceError
func (d *Device) CreateTexture(desc TextureDescriptor) (*Texture, error) {
	const op = "CreateTexture"
	if err := d.ready(op); err != nil {
		return nil, err
	}
	normalizeTextureDescriptor(&desc)
	if err := validateTextureDescriptor(&desc, d.limits); err != nil {
		return nil, err
	}
	if desc.SampleCount > 1 && !d.adapter.SupportsMultisample(desc.Format, desc.SampleCount) {
		return nil, invalid(op, "SampleCount", "%dx multisampling is not supported for %s", desc.SampleCount, desc.Format)
	}
	native, err := d.native.CreateTexture(&desc)
	if err != nil {
		return nil, d.nativeFailure(op, err)
	}
	t := &Texture{desc: desc}
	t.adopt(d, "texture", desc.Label, native)
	d.children.add(t)
	return t, nil
}

func (t *Texture) Size() gputypes.Extent3D              { return t.desc.Size }
func (t *Texture) Format() gputypes.TextureFormat       { return t.desc.Format }
func (t *Texture) Usage() gputypes.TextureUsage         { return t.desc.Usage }
func (t *Texture) Dimension() gputypes.TextureDimension { return t.desc.Dimension }
func (t *Texture) MipLevelCount() uint32                { return t.desc.MipLevelCount }
func (t *Texture) SampleCount() uint32                  { return t.desc.SampleCount }

// CreateView creates a view into the texture. A nil descriptor views the whole texture.
//
// Parameters:
//   - desc: optional view descriptor
//
// Returns:
//   - *TextureView: the new view
//   - error: ValidationError, StateError, or ResourceError
func (t *Texture) CreateView(desc *TextureViewDescriptor) (*TextureView, error) {
	const op = "CreateView"
	if err := t.check(op); err != nil {
		return nil, err
	}
	if err := t.device.ready(op); err != nil {
		return nil, err
	}
	var vd TextureViewDescriptor
	if desc != nil {
		vd = *desc
	}
	if err := resolveViewDescriptor(&t.desc, &vd); err != nil {
		return nil, err
	}
	native, err := t.device.native.CreateTextureView(t.native, &vd)
	if err != nil {
		return nil, t.device.nativeFailure(op, err)
	}
	v := &TextureView{
		texture:     t,
		format:      vd.Format,
		sampleCount: t.desc.SampleCount,
		width:       max(t.desc.Size.Width>>vd.BaseMipLevel, 1),
		height:      max(t.desc.Size.Height>>vd.BaseMipLevel, 1),
	}
	v.adopt(t.device, "texture view", vd.Label, native)
	t.views.add(v)
	return v, nil
}

// Dispose disposes every view of the texture, then releases the texture. Subsequent calls are no-ops.
func (t *Texture) Dispose() error {
	if t.Disposed() {
		return nil
	}
	errs := t.views.disposeReversed()
	if err := t.resource.Dispose(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// TextureView is a read-only derived handle into a Texture or a swapchain image. It references
// but does not own the memory.
type TextureView struct {
	resource
	texture     *Texture
	frame       *SurfaceFrame
	format      gputypes.TextureFormat
	sampleCount uint32
	width       uint32
	height      uint32
}

// Texture returns the texture the view was created from, or nil for a swapchain image view.
func (v *TextureView) Texture() *Texture { return v.texture }

// Frame returns the swapchain frame the view belongs to, or nil.
func (v *TextureView) Frame() *SurfaceFrame { return v.frame }

func (v *TextureView) Format() gputypes.TextureFormat { return v.format }
func (v *TextureView) SampleCount() uint32            { return v.sampleCount }

// Extent returns the pixel size of the viewed mip level.
func (v *TextureView) Extent() (width, height uint32) { return v.width, v.height }

// usable checks that the view and whatever it views are alive and belong to d.
func (v *TextureView) usable(op string, d *Device) error {
	if v.device != d {
		return invalid(op, "view", "belongs to another device")
	}
	if v.frame != nil && v.Disposed() {
		return &PresentationError{Op: op, Reason: "swapchain image is no longer the current acquisition"}
	}
	if err := v.check(op); err != nil {
		return err
	}
	if v.texture != nil {
		return v.texture.check(op)
	}
	return nil
}

// Dispose releases the view. Views of swapchain images are released by their surface instead.
func (v *TextureView) Dispose() error {
	if v.frame != nil {
		v.markDisposed()
		return nil
	}
	if !v.markDisposed() {
		return nil
	}
	v.texture.views.remove(v.id)
	return v.native.Release()
}
