package model

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/gogpu/gputypes"
)

// ErrEmptyGeometry is returned when a model without vertices is uploaded.
var ErrEmptyGeometry = errors.New("model: geometry has no vertices")

// model is the implementation of the Model interface.
type model struct {
	name           string
	vertices       []GPUVertex
	indices        []uint32
	boundingRadius float32

	vertexBuffer *gpu.Buffer
	indexBuffer  *gpu.Buffer
	indexFormat  gputypes.IndexFormat
}

// Model defines the interface for a mesh: CPU-side vertex/index data plus, once uploaded, the
// vertex and index buffers the renderer binds for a draw. It is the geometry handle of a
// scene drawable.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Vertices retrieves the CPU-side vertices.
	Vertices() []GPUVertex

	// Indices retrieves the CPU-side indices, empty for non-indexed geometry.
	Indices() []uint32

	// VertexCount returns the number of vertices.
	VertexCount() int

	// IndexCount returns the number of indices, 0 for non-indexed geometry.
	//
	// Returns:
	//   - int: the index count
	IndexCount() int

	// Indexed reports whether the model draws with an index buffer.
	Indexed() bool

	// BoundingRadius returns the radius of the origin-centered sphere enclosing every vertex.
	BoundingRadius() float32

	// Upload creates and fills the vertex buffer and, for indexed geometry, the index buffer.
	// Indices fitting in 16 bits upload as uint16. Uploading an uploaded model does nothing.
	//
	// Parameters:
	//   - device: the device to allocate on
	//
	// Returns:
	//   - error: ErrEmptyGeometry, or the allocation or write error; nothing stays allocated on failure
	Upload(device *gpu.Device) error

	// Uploaded reports whether the GPU buffers exist.
	Uploaded() bool

	// VertexBuffer returns the vertex buffer, or nil before Upload.
	//
	// Returns:
	//   - *gpu.Buffer: the vertex buffer or nil
	VertexBuffer() *gpu.Buffer

	// IndexBuffer returns the index buffer, or nil before Upload and for non-indexed geometry.
	//
	// Returns:
	//   - *gpu.Buffer: the index buffer or nil
	IndexBuffer() *gpu.Buffer

	// IndexFormat returns the format the index buffer was uploaded with.
	IndexFormat() gputypes.IndexFormat

	// Release releases the GPU buffers. CPU-side data is kept so the model can be uploaded again.
	//
	// Returns:
	//   - error: joined disposal failures, or nil
	Release() error
}

var _ Model = &model{}

// NewModel creates a new Model instance configured with the provided options.
//
// Parameters:
//   - options: variadic list of ModelBuilderOption functions to configure the model
//
// Returns:
//   - Model: a new Model instance
func NewModel(options ...ModelBuilderOption) Model {
	m := &model{indexFormat: gputypes.IndexFormatUint32}
	for _, opt := range options {
		opt(m)
	}
	m.boundingRadius = ComputeBoundingRadius(m.vertices)
	return m
}

func (m *model) Name() string                       { return m.name }
func (m *model) Vertices() []GPUVertex              { return m.vertices }
func (m *model) Indices() []uint32                  { return m.indices }
func (m *model) VertexCount() int                   { return len(m.vertices) }
func (m *model) IndexCount() int                    { return len(m.indices) }
func (m *model) Indexed() bool                      { return len(m.indices) > 0 }
func (m *model) BoundingRadius() float32            { return m.boundingRadius }
func (m *model) Uploaded() bool                     { return m.vertexBuffer != nil }
func (m *model) VertexBuffer() *gpu.Buffer          { return m.vertexBuffer }
func (m *model) IndexBuffer() *gpu.Buffer           { return m.indexBuffer }
func (m *model) IndexFormat() gputypes.IndexFormat { return m.indexFormat }

func (m *model) Upload(device *gpu.Device) error {
	if m.vertexBuffer != nil {
		return nil
	}
	if len(m.vertices) == 0 {
		return fmt.Errorf("%s: %w", m.name, ErrEmptyGeometry)
	}

	vb, err := uploadBuffer(device, m.name+".vertices", gputypes.BufferUsageVertex, MarshalVertices(m.vertices))
	if err != nil {
		return fmt.Errorf("model %s: %w", m.name, err)
	}
	if len(m.indices) == 0 {
		m.vertexBuffer = vb
		return nil
	}

	data, format := marshalIndices(m.indices)
	ib, err := uploadBuffer(device, m.name+".indices", gputypes.BufferUsageIndex, data)
	if err != nil {
		_ = vb.Dispose()
		return fmt.Errorf("model %s: %w", m.name, err)
	}
	m.vertexBuffer, m.indexBuffer, m.indexFormat = vb, ib, format
	return nil
}

func (m *model) Release() error {
	var errs []error
	if m.indexBuffer != nil {
		errs = append(errs, m.indexBuffer.Dispose())
		m.indexBuffer = nil
	}
	if m.vertexBuffer != nil {
		errs = append(errs, m.vertexBuffer.Dispose())
		m.vertexBuffer = nil
	}
	return errors.Join(errs...)
}

// uploadBuffer creates a COPY_DST buffer of usage sized to data rounded up to 4 bytes and writes data.
func uploadBuffer(device *gpu.Device, label string, usage gputypes.BufferUsage, data []byte) (*gpu.Buffer, error) {
	if pad := len(data) % 4; pad != 0 {
		data = append(data, make([]byte, 4-pad)...)
	}
	buf, err := device.CreateBuffer(gpu.BufferDescriptor{
		Label: label,
		Size:  int64(len(data)),
		Usage: usage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	if err := buf.Write(data, 0); err != nil {
		_ = buf.Dispose()
		return nil, err
	}
	return buf, nil
}

// marshalIndices packs indices as uint16 when every index fits, otherwise as uint32.
func marshalIndices(indices []uint32) ([]byte, gputypes.IndexFormat) {
	if slices.Max(indices) <= math.MaxUint16 {
		buf := make([]byte, len(indices)*2)
		for i, idx := range indices {
			binary.LittleEndian.PutUint16(buf[i*2:], uint16(idx))
		}
		return buf, gputypes.IndexFormatUint16
	}
	buf := make([]byte, len(indices)*4)
	for i, idx := range indices {
		binary.LittleEndian.PutUint32(buf[i*4:], idx)
	}
	return buf, gputypes.IndexFormatUint32
}
