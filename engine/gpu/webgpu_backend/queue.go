package webgpu_backend

import (
	"sync"

	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/gputypes"
)

type queue struct {
	mu  sync.Mutex
	raw *wgpu.Queue
}

var _ gpu.NativeQueue = &queue{}

// Submit hands the buffers to wgpu-native and drops their references.
func (q *queue) Submit(buffers []gpu.NativeObject) error {
	raws := make([]*wgpu.CommandBuffer, len(buffers))
	for i, b := range buffers {
		raws[i] = b.(*commandBuffer).raw
	}
	q.mu.Lock()
	q.raw.Submit(raws...)
	q.mu.Unlock()
	for _, b := range buffers {
		_ = b.Release()
	}
	return nil
}

func (q *queue) WriteBuffer(buffer gpu.NativeObject, offset uint64, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.raw.WriteBuffer(unwrap[*wgpu.Buffer](buffer), offset, data)
	return nil
}

func (q *queue) WriteTexture(dst *gpu.TextureCopy, data []byte, layout gpu.TextureDataLayout, size gputypes.Extent3D) error {
	extent := toExtent(size)
	q.mu.Lock()
	defer q.mu.Unlock()
	q.raw.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  unwrap[*wgpu.Texture](dst.Texture.Native()),
			MipLevel: dst.MipLevel,
			Origin:   wgpu.Origin3D{X: dst.Origin.X, Y: dst.Origin.Y, Z: dst.Origin.Z},
			Aspect:   textureAspects[dst.Aspect],
		},
		data,
		&wgpu.TextureDataLayout{
			Offset:       layout.Offset,
			BytesPerRow:  layout.BytesPerRow,
			RowsPerImage: layout.RowsPerImage,
		},
		&extent,
	)
	return nil
}
