package gpu

import (
	"github.com/gogpu/gputypes"
)

// InstanceDescriptor configures instance creation.
type InstanceDescriptor struct {
	// Validation enables native API validation layers where the backend has them.
	Validation bool
}

// AdapterInfo describes a physical device. It is immutable once the adapter is obtained.
type AdapterInfo struct {
	Name          string
	Vendor        string
	Architecture  string
	DriverVersion string
	VendorID      uint32
	DeviceID      uint32
	DeviceType    gputypes.DeviceType
}

// DeviceDescriptor describes a logical device request.
type DeviceDescriptor struct {
	Label            string
	RequiredFeatures gputypes.Features
	// RequiredLimits defaults to the adapter's own limits when nil.
	RequiredLimits *gputypes.Limits
}

// SurfaceCapabilities lists what an adapter can present to a surface.
type SurfaceCapabilities struct {
	Formats      []gputypes.TextureFormat
	PresentModes []gputypes.PresentMode
	AlphaModes   []gputypes.CompositeAlphaMode
}

// SurfaceConfiguration configures the swapchain of a Surface.
type SurfaceConfiguration struct {
	Format      gputypes.TextureFormat
	Usage       gputypes.TextureUsage
	Width       int
	Height      int
	PresentMode gputypes.PresentMode
	AlphaMode   gputypes.CompositeAlphaMode
}

// BufferDescriptor describes a GPU buffer.
type BufferDescriptor struct {
	Label            string
	Size             int64
	Usage            gputypes.BufferUsage
	MappedAtCreation bool
}

// TextureDescriptor describes a GPU texture.
type TextureDescriptor struct {
	Label         string
	Size          gputypes.Extent3D
	MipLevelCount uint32
	SampleCount   uint32
	Dimension     gputypes.TextureDimension
	Format        gputypes.TextureFormat
	Usage         gputypes.TextureUsage
}

// TextureViewDescriptor describes a view into a texture. Zero values inherit from the texture.
type TextureViewDescriptor struct {
	Label           string
	Format          gputypes.TextureFormat
	Dimension       gputypes.TextureViewDimension
	Aspect          gputypes.TextureAspect
	BaseMipLevel    uint32
	MipLevelCount   uint32
	BaseArrayLayer  uint32
	ArrayLayerCount uint32
}

// SamplerDescriptor describes a texture sampler.
type SamplerDescriptor struct {
	Label                                    string
	AddressModeU, AddressModeV, AddressModeW gputypes.AddressMode
	MagFilter, MinFilter, MipmapFilter       gputypes.FilterMode
	LodMinClamp, LodMaxClamp                 float32
	Compare                                  gputypes.CompareFunction
	MaxAnisotropy                            uint16
}

// ShaderLanguage tags the source format of a shader module.
type ShaderLanguage int

const (
	ShaderLanguageWGSL ShaderLanguage = iota
	ShaderLanguageSPIRV
)

func (l ShaderLanguage) String() string {
	switch l {
	case ShaderLanguageWGSL:
		return "WGSL"
	case ShaderLanguageSPIRV:
		return "SPIRV"
	default:
		return "unknown"
	}
}

// ShaderModuleDescriptor carries opaque shader code. SPIR-V code holds the little-endian
// word stream as bytes.
type ShaderModuleDescriptor struct {
	Label    string
	Code     string
	Language ShaderLanguage
}

// BindGroupLayoutDescriptor describes the schema of a bind group.
type BindGroupLayoutDescriptor struct {
	Label   string
	Entries []gputypes.BindGroupLayoutEntry
}

// BindGroupEntry binds exactly one of Buffer, Sampler or TextureView to a binding slot.
type BindGroupEntry struct {
	Binding uint32
	Buffer  *Buffer
	Offset  uint64
	// Size of the buffer range, 0 binds the rest of the buffer.
	Size        uint64
	Sampler     *Sampler
	TextureView *TextureView
}

// BindGroupDescriptor describes a concrete set of resources for a layout.
type BindGroupDescriptor struct {
	Label   string
	Layout  *BindGroupLayout
	Entries []BindGroupEntry
}

// PipelineLayoutDescriptor lists the bind group layouts of a pipeline, indexed by group.
type PipelineLayoutDescriptor struct {
	Label            string
	BindGroupLayouts []*BindGroupLayout
}

// VertexState is the vertex stage of a render pipeline.
type VertexState struct {
	Module     *ShaderModule
	EntryPoint string
	Buffers    []gputypes.VertexBufferLayout
}

// FragmentState is the fragment stage of a render pipeline.
type FragmentState struct {
	Module     *ShaderModule
	EntryPoint string
	Targets    []gputypes.ColorTargetState
}

// DepthStencilState configures depth testing.
type DepthStencilState struct {
	Format              gputypes.TextureFormat
	DepthWriteEnabled   bool
	DepthCompare        gputypes.CompareFunction
	DepthBias           int32
	DepthBiasSlopeScale float32
}

// RenderPipelineDescriptor describes a render pipeline.
type RenderPipelineDescriptor struct {
	Label        string
	Layout       *PipelineLayout
	Vertex       VertexState
	Primitive    gputypes.PrimitiveState
	DepthStencil *DepthStencilState
	Multisample  gputypes.MultisampleState
	Fragment     *FragmentState
}

// ComputePipelineDescriptor describes a compute pipeline.
type ComputePipelineDescriptor struct {
	Label      string
	Layout     *PipelineLayout
	Module     *ShaderModule
	EntryPoint string
}

// ColorAttachment is one color target of a render pass.
type ColorAttachment struct {
	View          *TextureView
	ResolveTarget *TextureView
	LoadOp        gputypes.LoadOp
	StoreOp       gputypes.StoreOp
	ClearColor    gputypes.Color
}

// DepthStencilAttachment is the optional depth target of a render pass.
type DepthStencilAttachment struct {
	View            *TextureView
	DepthLoadOp     gputypes.LoadOp
	DepthStoreOp    gputypes.StoreOp
	DepthClearValue float32
	DepthReadOnly   bool
}

// RenderPassDescriptor describes the attachments of a render pass.
type RenderPassDescriptor struct {
	Label                  string
	ColorAttachments       []ColorAttachment
	DepthStencilAttachment *DepthStencilAttachment
}

// TextureCopy addresses a region of a texture for uploads.
type TextureCopy struct {
	Texture  *Texture
	MipLevel uint32
	Origin   gputypes.Origin3D
	Aspect   gputypes.TextureAspect
}

// TextureDataLayout describes the layout of texel data in CPU memory.
type TextureDataLayout struct {
	Offset       uint64
	BytesPerRow  uint32
	RowsPerImage uint32
}
