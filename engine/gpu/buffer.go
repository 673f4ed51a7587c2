package gpu

import (
	"github.com/Carmen-Shannon/materia/common"
	"github.com/gogpu/gputypes"
)

// Buffer is a linear block of GPU memory.
type Buffer struct {
	resource
	size             int64
	usage            gputypes.BufferUsage
	mappedAtCreation bool
}

// CreateBuffer validates desc and creates a buffer.
//
// Parameters:
//   - desc: the buffer descriptor
//
// Returns:
//   - *Buffer: the new buffer
//   - error: ValidationError naming the offending field, StateError, or ResourceError
func (d *Device) CreateBuffer(desc BufferDescriptor) (*Buffer, error) {
	const op = "CreateBuffer"
	if err := d.ready(op); err != nil {
		return nil, err
	}
	if err := validateBufferDescriptor(&desc); err != nil {
		return nil, err
	}
	native, err := d.native.CreateBuffer(&desc)
	if err != nil {
		return nil, d.nativeFailure(op, err)
	}
	b := &Buffer{size: desc.Size, usage: desc.Usage, mappedAtCreation: desc.MappedAtCreation}
	b.adopt(d, "buffer", desc.Label, native)
	d.children.add(b)
	return b, nil
}

func (b *Buffer) Size() int64                 { return b.size }
func (b *Buffer) Usage() gputypes.BufferUsage { return b.usage }
func (b *Buffer) MappedAtCreation() bool      { return b.mappedAtCreation }

// Write uploads data at offset through the device queue.
//
// Parameters:
//   - data: the bytes to write
//   - offset: byte offset into the buffer, 4-byte aligned
//
// Returns:
//   - error: ValidationError if the write is out of range or the buffer is not writable
func (b *Buffer) Write(data []byte, offset int64) error {
	const op = "Buffer.Write"
	if err := b.check(op); err != nil {
		return err
	}
	if offset < 0 || offset%4 != 0 {
		return invalid(op, "offset", "must be a non-negative multiple of 4, got %d", offset)
	}
	if offset+int64(len(data)) > b.size {
		return invalid(op, "data", "offset %d + %d bytes exceeds buffer size %d", offset, len(data), b.size)
	}
	if !b.usage.Contains(gputypes.BufferUsageCopyDst) && !b.usage.Contains(gputypes.BufferUsageMapWrite) {
		return invalid(op, "usage", "buffer %q lacks COPY_DST", b.label)
	}
	return b.device.queue.writeBuffer(op, b, uint64(offset), data)
}

// WriteFloats uploads values as little-endian float32 at offset.
func (b *Buffer) WriteFloats(values []float32, offset int64) error {
	return b.Write(common.Float32sToBytes(values), offset)
}
