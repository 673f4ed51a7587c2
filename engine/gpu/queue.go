package gpu

import (
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
)

// Queue executes command buffers in submission order. Each Device has exactly one.
type Queue struct {
	handle
	device      *Device
	native      NativeQueue
	mu          sync.Mutex
	submissions atomic.Uint64
}

// Device returns the owning device.
func (q *Queue) Device() *Device { return q.device }

// Submissions returns how many Submit calls reached the backend.
func (q *Queue) Submissions() uint64 { return q.submissions.Load() }

// Submit executes buffers in list order. Every buffer is submit-once. A buffer that renders into
// a swapchain image is rejected unless that image is still the surface's current acquisition.
//
// Parameters:
//   - buffers: finished command buffers from this device
//
// Returns:
//   - error: StateError for resubmission or disposed buffers, PresentationError for stale
//     swapchain images, ResourceError when the device is lost
func (q *Queue) Submit(buffers ...*CommandBuffer) error {
	const op = "Submit"
	if err := q.check(op); err != nil {
		return err
	}
	if err := q.device.ready(op); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	seen := make(map[HandleID]bool, len(buffers))
	natives := make([]NativeObject, 0, len(buffers))
	for _, b := range buffers {
		if b == nil {
			return invalid(op, "buffers", "must not contain nil")
		}
		if seen[b.id] || b.submitted.Load() {
			return &StateError{Op: op, Reason: "command buffer already submitted"}
		}
		seen[b.id] = true
		if err := q.device.owns(op, "buffers", &b.resource); err != nil {
			return err
		}
		if b.frame != nil && !b.frame.surface.isCurrent(b.frame) {
			return &PresentationError{Op: op, Reason: "command buffer targets a swapchain image that is no longer current"}
		}
		natives = append(natives, b.native)
	}

	if err := q.native.Submit(natives); err != nil {
		return q.device.nativeFailure(op, err)
	}
	q.submissions.Add(1)
	for _, b := range buffers {
		b.submitted.Store(true)
		_ = b.Dispose()
	}
	return nil
}

func (q *Queue) writeBuffer(op string, b *Buffer, offset uint64, data []byte) error {
	if err := q.device.ready(op); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := q.native.WriteBuffer(b.native, offset, data); err != nil {
		return q.device.nativeFailure(op, err)
	}
	return nil
}

// WriteBuffer uploads data into buffer at offset. Equivalent to buffer.Write.
func (q *Queue) WriteBuffer(buffer *Buffer, offset int64, data []byte) error {
	if buffer == nil {
		return invalid("WriteBuffer", "buffer", "must not be nil")
	}
	if err := q.device.owns("WriteBuffer", "buffer", &buffer.resource); err != nil {
		return err
	}
	return buffer.Write(data, offset)
}

// WriteTexture uploads texel data into a texture region.
//
// Parameters:
//   - dst: the destination texture, mip level and origin
//   - data: the texel bytes
//   - layout: row stride and image height of data
//   - size: extent of the region to write
//
// Returns:
//   - error: ValidationError if the region or data size is out of range
func (q *Queue) WriteTexture(dst TextureCopy, data []byte, layout TextureDataLayout, size gputypes.Extent3D) error {
	const op = "WriteTexture"
	if err := q.check(op); err != nil {
		return err
	}
	if err := q.device.ready(op); err != nil {
		return err
	}
	t := dst.Texture
	if t == nil {
		return invalid(op, "dst.Texture", "must not be nil")
	}
	if err := q.device.owns(op, "dst.Texture", &t.resource); err != nil {
		return err
	}
	if !t.desc.Usage.Contains(gputypes.TextureUsageCopyDst) {
		return invalid(op, "dst.Texture", "%q lacks COPY_DST", t.label)
	}
	if t.desc.SampleCount > 1 {
		return invalid(op, "dst.Texture", "multisampled textures cannot be written")
	}
	if dst.MipLevel >= t.desc.MipLevelCount {
		return invalid(op, "dst.MipLevel", "%d out of range for %d levels", dst.MipLevel, t.desc.MipLevelCount)
	}
	if size.DepthOrArrayLayers == 0 {
		size.DepthOrArrayLayers = 1
	}
	mipW := max(t.desc.Size.Width>>dst.MipLevel, 1)
	mipH := max(t.desc.Size.Height>>dst.MipLevel, 1)
	if dst.Origin.X+size.Width > mipW || dst.Origin.Y+size.Height > mipH ||
		dst.Origin.Z+size.DepthOrArrayLayers > t.desc.Size.DepthOrArrayLayers {
		return invalid(op, "size", "region exceeds the texture extent")
	}
	if size.Height > 1 && layout.BytesPerRow == 0 {
		return invalid(op, "layout.BytesPerRow", "must be set for multi-row writes")
	}
	rows := uint64(layout.RowsPerImage)
	if rows == 0 {
		rows = uint64(size.Height)
	}
	required := layout.Offset + uint64(layout.BytesPerRow)*(rows*uint64(size.DepthOrArrayLayers-1)+uint64(size.Height))
	if uint64(len(data)) < required {
		return invalid(op, "data", "%d bytes is less than the %d the layout requires", len(data), required)
	}
	if err := q.native.WriteTexture(&dst, data, layout, size); err != nil {
		return q.device.nativeFailure(op, err)
	}
	return nil
}
