package scene

import (
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/materia/common"
	"github.com/Carmen-Shannon/materia/engine/camera"
	"github.com/Carmen-Shannon/materia/engine/light"
	"github.com/Carmen-Shannon/materia/engine/model"
	"github.com/Carmen-Shannon/materia/engine/renderer/material"
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultChunkSize is the number of drawables packed by one worker task.
const DefaultChunkSize = 256

// Drawable is one entry of the per-frame draw list: a transform, the geometry to draw and the
// material to draw it with. Invisible drawables stay in the list but are skipped by the renderer.
type Drawable struct {
	Transform mgl32.Mat4
	Geometry  model.Model
	Material  material.Material
	Visible   bool
}

// entry pairs a drawable with the ID Add assigned to it.
type entry struct {
	id       uint64
	drawable Drawable
}

// scene is the implementation of the Scene interface.
type scene struct {
	mu *sync.RWMutex

	name    string
	cam     camera.Camera
	lights  []light.Light
	entries []entry
	nextID  uint64

	cullingEnabled bool

	// packPool runs per-object uniform packing. Workers persist across frames; a WaitGroup
	// gives the per-frame barrier since pool.Wait blocks until workers idle-exit.
	packPool  worker.DynamicWorkerPool
	workers   int
	chunkSize int
	closed    bool
}

// Scene is the scene-graph collaborator of the renderer. It keeps an ordered list of drawables
// together with the camera and lights used to render them, and packs the per-object uniforms
// of a frame concurrently. It never touches the GPU.
// Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// Camera returns the scene's camera.
	Camera() camera.Camera

	// SetCamera replaces the scene's camera.
	//
	// Parameters:
	//   - cam: the new camera
	SetCamera(cam camera.Camera)

	// AddLight adds a light source to the scene.
	//
	// Parameters:
	//   - l: the Light to add
	AddLight(l light.Light)

	// RemoveLight removes a light source from the scene by reference.
	//
	// Parameters:
	//   - l: the Light to remove
	RemoveLight(l light.Light)

	// Lights returns a copy of the lights currently registered in the scene.
	//
	// Returns:
	//   - []light.Light: the scene's light list
	Lights() []light.Light

	// Add appends a drawable to the end of the draw order.
	//
	// Parameters:
	//   - d: the drawable to add
	//
	// Returns:
	//   - uint64: the assigned drawable ID, never 0
	Add(d Drawable) uint64

	// Get retrieves a drawable by its ID.
	//
	// Parameters:
	//   - id: the drawable ID returned by Add
	//
	// Returns:
	//   - Drawable: the drawable
	//   - bool: false if no drawable has this ID
	Get(id uint64) (Drawable, bool)

	// Remove removes a drawable, keeping the order of the remaining ones.
	//
	// Parameters:
	//   - id: the drawable ID returned by Add
	//
	// Returns:
	//   - bool: false if no drawable has this ID
	Remove(id uint64) bool

	// SetTransform replaces the transform of a drawable.
	//
	// Parameters:
	//   - id: the drawable ID
	//   - transform: the new model-to-world matrix
	//
	// Returns:
	//   - bool: false if no drawable has this ID
	SetTransform(id uint64, transform mgl32.Mat4) bool

	// SetVisible shows or hides a drawable.
	//
	// Parameters:
	//   - id: the drawable ID
	//   - visible: whether the drawable is drawn
	//
	// Returns:
	//   - bool: false if no drawable has this ID
	SetVisible(id uint64, visible bool) bool

	// Len returns the number of drawables.
	Len() int

	// Clear removes every drawable. Lights and camera are kept; GPU resources are not released.
	Clear()

	// Drawables returns the ordered drawable list for a frame. When culling is enabled and the
	// scene has a camera, drawables whose bounding sphere lies outside the camera frustum are
	// returned with Visible set to false.
	//
	// Returns:
	//   - []Drawable: a snapshot in insertion order
	Drawables() []Drawable

	// PackObjectUniforms packs the 64-byte model matrix of every drawable, in order, splitting
	// the work across the scene's worker pool.
	//
	// Parameters:
	//   - drawables: the drawables to pack
	//
	// Returns:
	//   - []byte: len(drawables) * model.GPUModelDataSize bytes
	PackObjectUniforms(drawables []Drawable) []byte

	// Close stops the worker pool. Packing after Close runs on the caller's goroutine.
	Close()
}

var _ Scene = &scene{}

// NewScene creates a new Scene configured with the provided options.
//
// Parameters:
//   - name: the name of the scene
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:        &sync.RWMutex{},
		name:      name,
		nextID:    1,
		workers:   max(runtime.NumCPU()-1, 1),
		chunkSize: DefaultChunkSize,
	}
	for _, option := range options {
		option(s)
	}

	// Created after options so WithWorkers can override the default.
	s.packPool = worker.NewDynamicWorkerPool(s.workers, 256, 1*time.Second)
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) Camera() camera.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cam
}

func (s *scene) SetCamera(cam camera.Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cam = cam
}

func (s *scene) AddLight(l light.Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lights = append(s.lights, l)
}

func (s *scene) RemoveLight(l light.Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.lights {
		if existing == l {
			s.lights = append(s.lights[:i], s.lights[i+1:]...)
			return
		}
	}
}

func (s *scene) Lights() []light.Light {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.lights)
}

func (s *scene) Add(d Drawable) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.entries = append(s.entries, entry{id: id, drawable: d})
	return id
}

func (s *scene) Get(id uint64) (Drawable, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.entries[i].drawable, true
	}
	return Drawable{}, false
}

func (s *scene) Remove(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.entries = slices.Delete(s.entries, i, i+1)
	return true
}

func (s *scene) SetTransform(id uint64, transform mgl32.Mat4) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.entries[i].drawable.Transform = transform
	return true
}

func (s *scene) SetVisible(id uint64, visible bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.entries[i].drawable.Visible = visible
	return true
}

func (s *scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}

func (s *scene) Drawables() []Drawable {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Drawable, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.drawable
	}
	if !s.cullingEnabled || s.cam == nil {
		return out
	}

	frustum := common.ExtractFrustum(s.cam.ViewProjectionMatrix())
	for i := range out {
		d := &out[i]
		if !d.Visible || d.Geometry == nil {
			continue
		}
		center, radius := BoundingSphere(d.Transform, d.Geometry.BoundingRadius())
		if !frustum.ContainsSphere(center, radius) {
			d.Visible = false
		}
	}
	return out
}

func (s *scene) PackObjectUniforms(drawables []Drawable) []byte {
	dst := make([]byte, len(drawables)*model.GPUModelDataSize)

	s.mu.RLock()
	chunk, closed := s.chunkSize, s.closed
	s.mu.RUnlock()

	if closed || len(drawables) <= chunk {
		PackObjectData(drawables, dst)
		return dst
	}

	var wg sync.WaitGroup
	taskID := 0
	for start := 0; start < len(drawables); start += chunk {
		end := min(start+chunk, len(drawables))
		wg.Add(1)
		s.packPool.SubmitTask(worker.Task{
			ID: taskID,
			Do: func() (any, error) {
				defer wg.Done()
				PackObjectData(drawables[start:end], dst[start*model.GPUModelDataSize:end*model.GPUModelDataSize])
				return nil, nil
			},
		})
		taskID++
	}
	wg.Wait()
	return dst
}

func (s *scene) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.packPool.Stop()
}

// indexOf returns the entry index of id, or -1. Callers hold s.mu.
func (s *scene) indexOf(id uint64) int {
	return slices.IndexFunc(s.entries, func(e entry) bool { return e.id == id })
}

// PackObjectData writes the model matrix of each drawable into dst on the calling goroutine.
//
// Parameters:
//   - drawables: the drawables to pack
//   - dst: destination holding at least len(drawables) * model.GPUModelDataSize bytes
func PackObjectData(drawables []Drawable, dst []byte) {
	for i := range drawables {
		data := model.GPUModelData{Model: drawables[i].Transform}
		data.MarshalTo(dst[i*model.GPUModelDataSize:])
	}
}

// BoundingSphere transforms a model-space bounding sphere around the origin into world space.
// The radius is scaled by the largest axis scale of the transform.
//
// Parameters:
//   - transform: the model-to-world matrix
//   - radius: the model-space radius
//
// Returns:
//   - mgl32.Vec3: the world-space center
//   - float32: the world-space radius
func BoundingSphere(transform mgl32.Mat4, radius float32) (mgl32.Vec3, float32) {
	scale := max(transform.Col(0).Vec3().Len(), transform.Col(1).Vec3().Len(), transform.Col(2).Vec3().Len())
	return transform.Col(3).Vec3(), radius * scale
}
