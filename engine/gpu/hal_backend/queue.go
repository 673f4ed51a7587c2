package hal_backend

import (
	"sync"

	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// inflight is a submission whose command buffers are freed once the GPU completes it.
type inflight struct {
	index   uint64
	buffers []hal.CommandBuffer
}

// deferred is a destruction waiting for the submission that may still reference the object.
type deferred struct {
	index   uint64
	destroy func()
}

type queue struct {
	raw    hal.Queue
	device *device

	mu            sync.Mutex
	lastSubmitted uint64
	inflight      []inflight
	deferred      []deferred
}

var _ gpu.NativeQueue = &queue{}

func (q *queue) Submit(buffers []gpu.NativeObject) error {
	raws := make([]hal.CommandBuffer, len(buffers))
	for i, b := range buffers {
		raws[i] = b.(*commandBuffer).raw
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	index, err := q.raw.Submit(raws)
	if err != nil {
		return translate("Submit", err)
	}
	for _, b := range buffers {
		b.(*commandBuffer).submitted.Store(true)
	}
	q.lastSubmitted = index
	q.inflight = append(q.inflight, inflight{index: index, buffers: raws})
	q.triageLocked()
	return nil
}

func (q *queue) WriteBuffer(buffer gpu.NativeObject, offset uint64, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return translate("WriteBuffer", q.raw.WriteBuffer(unwrap[hal.Buffer](buffer), offset, data))
}

func (q *queue) WriteTexture(dst *gpu.TextureCopy, data []byte, layout gpu.TextureDataLayout, size gputypes.Extent3D) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	err := q.raw.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  unwrap[hal.Texture](dst.Texture.Native()),
			MipLevel: dst.MipLevel,
			Origin:   hal.Origin3D{X: dst.Origin.X, Y: dst.Origin.Y, Z: dst.Origin.Z},
			Aspect:   aspect(dst.Aspect),
		},
		data,
		&hal.ImageDataLayout{Offset: layout.Offset, BytesPerRow: layout.BytesPerRow, RowsPerImage: layout.RowsPerImage},
		&hal.Extent3D{Width: size.Width, Height: size.Height, DepthOrArrayLayers: max(size.DepthOrArrayLayers, 1)},
	)
	return translate("WriteTexture", err)
}

func (q *queue) present(s hal.Surface, texture hal.SurfaceTexture) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return translate("Present", q.raw.Present(s, texture, nil))
}

// destroyAfterSubmitted runs destroy now if the GPU has finished every submission, otherwise
// once it has finished the most recent one.
func (q *queue) destroyAfterSubmitted(destroy func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.lastSubmitted <= q.raw.PollCompleted() {
		destroy()
		return
	}
	q.deferred = append(q.deferred, deferred{index: q.lastSubmitted, destroy: destroy})
}

// triageLocked frees command buffers and runs destructions whose submission has completed.
func (q *queue) triageLocked() {
	completed := q.raw.PollCompleted()

	pending := q.inflight[:0]
	for _, f := range q.inflight {
		if f.index > completed {
			pending = append(pending, f)
			continue
		}
		for _, cb := range f.buffers {
			q.device.raw.FreeCommandBuffer(cb)
		}
	}
	q.inflight = pending

	waiting := q.deferred[:0]
	for _, d := range q.deferred {
		if d.index > completed {
			waiting = append(waiting, d)
			continue
		}
		d.destroy()
	}
	q.deferred = waiting
}

// drain releases everything still pending. The device must be idle.
func (q *queue) drain() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, f := range q.inflight {
		for _, cb := range f.buffers {
			q.device.raw.FreeCommandBuffer(cb)
		}
	}
	for _, d := range q.deferred {
		d.destroy()
	}
	q.inflight = nil
	q.deferred = nil
}
