// Package shader holds shader sources as opaque code plus a language tag and turns them into
// device shader modules. Sources are produced elsewhere; the only transformation applied here is
// the optional WGSL to SPIR-V translation for consumers that only accept SPIR-V.
package shader

import (
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"sync"

	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/Carmen-Shannon/materia/engine/logger"
	"github.com/gogpu/gputypes"
)

// Stage identifies the pipeline stage a shader entry point runs in.
type Stage int

const (
	// StageVertex is a @vertex entry point.
	StageVertex Stage = iota

	// StageFragment is a @fragment entry point.
	StageFragment

	// StageCompute is a @compute entry point.
	StageCompute
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Visibility returns the bind group visibility bit of the stage.
func (s Stage) Visibility() gputypes.ShaderStages {
	switch s {
	case StageVertex:
		return gputypes.ShaderStageVertex
	case StageFragment:
		return gputypes.ShaderStageFragment
	case StageCompute:
		return gputypes.ShaderStageCompute
	}
	return 0
}

// Source is shader code handed to the renderer by its producer.
type Source struct {
	// Key names the source in labels and logs. Pipeline identity uses the content hash instead.
	Key        string
	Code       string
	Language   gpu.ShaderLanguage
	EntryPoint string
	Stage      Stage
}

// ErrEmptyKey is returned for sources without a Key.
var ErrEmptyKey = errors.New("shader: source key is empty")

// Shader is a source plus the device modules created from it.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for caching and pipeline keys.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Hash returns the FNV-1a hash of the stage, language, entry point and code.
	//
	// Returns:
	//   - uint64: equal only for shaders that compile to the same module
	Hash() uint64

	// Source retrieves the source the shader was created from, with EntryPoint resolved.
	//
	// Returns:
	//   - Source: the source
	Source() Source

	// EntryPoint returns the entry point name, either given or found in the WGSL code.
	//
	// Returns:
	//   - string: the entry point name (e.g. "vs_main")
	EntryPoint() string

	// Module returns the shader module for device, creating it on first use.
	// Concurrent callers for the same device share one module.
	//
	// Parameters:
	//   - device: the device the module belongs to
	//
	// Returns:
	//   - *gpu.ShaderModule: the module
	//   - error: translation or creation failure
	Module(device *gpu.Device) (*gpu.ShaderModule, error)

	// Release disposes every module created from this shader.
	//
	// Returns:
	//   - error: joined disposal failures, or nil
	Release() error
}

type shader struct {
	source    Source
	hash      uint64
	translate bool
	label     string

	mu      sync.Mutex
	modules map[gpu.HandleID]*gpu.ShaderModule
}

var _ Shader = &shader{}

// NewShader validates src and resolves its entry point. WGSL sources without an EntryPoint use
// the first entry point of the source's stage.
//
// Parameters:
//   - src: the shader source
//   - options: builder options
//
// Returns:
//   - Shader: the shader
//   - error: ErrEmptyKey, or an error when no entry point can be resolved
func NewShader(src Source, options ...ShaderBuilderOption) (Shader, error) {
	if src.Key == "" {
		return nil, ErrEmptyKey
	}
	s := &shader{
		source:  src,
		label:   src.Key,
		modules: make(map[gpu.HandleID]*gpu.ShaderModule),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.source.EntryPoint == "" && s.source.Language == gpu.ShaderLanguageWGSL {
		s.source.EntryPoint = parseEntryPoint(s.source.Code, s.source.Stage)
	}
	if s.source.EntryPoint == "" {
		return nil, fmt.Errorf("shader: %s has no %s entry point", src.Key, src.Stage)
	}
	s.hash = contentHash(s.source)
	return s, nil
}

func contentHash(src Source) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte{byte(src.Stage), byte(src.Language)})
	_, _ = io.WriteString(h, src.EntryPoint)
	_, _ = h.Write([]byte{0})
	_, _ = io.WriteString(h, src.Code)
	return h.Sum64()
}

func (s *shader) Key() string { return s.source.Key }

func (s *shader) Hash() uint64 { return s.hash }

func (s *shader) Source() Source { return s.source }

func (s *shader) EntryPoint() string { return s.source.EntryPoint }

func (s *shader) Module(device *gpu.Device) (*gpu.ShaderModule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.modules[device.ID()]; ok && !m.Disposed() {
		return m, nil
	}

	src := s.source
	if s.translate && src.Language == gpu.ShaderLanguageWGSL {
		var err error
		if src, err = ToSPIRV(src); err != nil {
			return nil, err
		}
	}
	m, err := device.CreateShaderModule(gpu.ShaderModuleDescriptor{
		Label:    s.label,
		Code:     src.Code,
		Language: src.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("shader: create module %s: %w", s.source.Key, err)
	}
	s.modules[device.ID()] = m
	logger.Logger().Debug("shader: module created", "key", s.source.Key, "language", src.Language, "device", device.ID())
	return m, nil
}

func (s *shader) Release() error {
	s.mu.Lock()
	modules := s.modules
	s.modules = make(map[gpu.HandleID]*gpu.ShaderModule)
	s.mu.Unlock()

	var errs []error
	for _, m := range modules {
		if err := m.Dispose(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
