package gpu

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/materia/engine/logger"
	"github.com/gogpu/gputypes"
)

// swapchainImageCount is the number of images the swapchain cycles through.
const swapchainImageCount = 3

// FrameState is the lifecycle state of a SurfaceFrame.
type FrameState int

const (
	FrameAcquired FrameState = iota
	FramePresented
	FrameDiscarded
	// FrameStale marks a frame superseded by a later acquisition or a reconfiguration.
	FrameStale
)

func (s FrameState) String() string {
	switch s {
	case FrameAcquired:
		return "Acquired"
	case FramePresented:
		return "Presented"
	case FrameDiscarded:
		return "Discarded"
	case FrameStale:
		return "Stale"
	default:
		return "Unknown"
	}
}

// SurfaceFrame is one acquired swapchain image. It must be presented or discarded before the
// next acquisition, otherwise the next acquisition supersedes it.
type SurfaceFrame struct {
	// ImageIndex identifies the swapchain image.
	ImageIndex uint32
	// Suboptimal is set when the swapchain still works but should be recreated.
	Suboptimal bool

	surface    *Surface
	generation uint64
	view       *TextureView
	native     NativeSurfaceTexture
	state      FrameState
}

// View returns the render target view of the image.
func (f *SurfaceFrame) View() *TextureView { return f.view }

// Surface returns the surface the frame was acquired from.
func (f *SurfaceFrame) Surface() *Surface { return f.surface }

// Generation returns the acquisition sequence number of the frame, starting at 1.
func (f *SurfaceFrame) Generation() uint64 { return f.generation }

// State returns the current lifecycle state of the frame.
func (f *SurfaceFrame) State() FrameState {
	f.surface.mu.Lock()
	defer f.surface.mu.Unlock()
	return f.state
}

// Surface is a presentation target and its swapchain. Acquire and present are strictly ordered:
// only the most recently acquired, unpresented image may be presented.
type Surface struct {
	handle
	instance *Instance
	native   NativeSurface
	target   SurfaceTarget

	mu         sync.Mutex
	device     *Device
	config     SurfaceConfiguration
	configured bool
	width      int
	height     int
	generation uint64
	current    *SurfaceFrame
}

// Native returns the backend object behind the surface.
func (s *Surface) Native() NativeSurface { return s.native }

// Target returns the windowing target the surface was created for.
func (s *Surface) Target() SurfaceTarget { return s.target }

// Extent returns the current swapchain size. It reflects RecreateSwapchain immediately.
func (s *Surface) Extent() (width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Configuration returns the active configuration and whether the surface is configured.
func (s *Surface) Configuration() (SurfaceConfiguration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config, s.configured
}

// Configure binds the surface to device and creates its swapchain.
//
// Parameters:
//   - device: a device opened from this surface's instance
//   - config: format, usage, size, present mode and alpha mode
//
// Returns:
//   - error: ValidationError for unsupported settings, StateError while a frame is outstanding,
//     ResourceError on native failure
func (s *Surface) Configure(device *Device, config SurfaceConfiguration) error {
	const op = "Configure"
	if err := s.check(op); err != nil {
		return err
	}
	if device == nil {
		return invalid(op, "device", "must not be nil")
	}
	if err := device.ready(op); err != nil {
		return err
	}
	if device.adapter.instance != s.instance {
		return invalid(op, "device", "belongs to another instance")
	}
	if err := validateSurfaceConfiguration(op, &config, device.adapter.native.SurfaceCapabilities(s.native)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && s.current.state == FrameAcquired {
		return &StateError{Op: op, State: "FrameOutstanding", Reason: "cannot reconfigure while a frame is outstanding"}
	}
	if s.configured && s.device != device {
		s.unconfigureLocked()
	}
	if err := s.native.Configure(device.native, &config); err != nil {
		return device.nativeFailure(op, err)
	}
	if s.device != device {
		device.trackSurface(s)
	}
	s.device, s.config, s.configured = device, config, true
	s.width, s.height = config.Width, config.Height
	return nil
}

func validateSurfaceConfiguration(op string, config *SurfaceConfiguration, caps SurfaceCapabilities) error {
	if config.Width <= 0 {
		return invalid(op, "Width", "must be > 0, got %d", config.Width)
	}
	if config.Height <= 0 {
		return invalid(op, "Height", "must be > 0, got %d", config.Height)
	}
	if config.Usage == gputypes.TextureUsageNone {
		config.Usage = gputypes.TextureUsageRenderAttachment
	}
	if config.PresentMode == gputypes.PresentModeUndefined {
		config.PresentMode = gputypes.PresentModeFifo
	}
	if config.Format == gputypes.TextureFormatUndefined && len(caps.Formats) > 0 {
		config.Format = caps.Formats[0]
	}
	if len(caps.Formats) > 0 && !slices.Contains(caps.Formats, config.Format) {
		return invalid(op, "Format", "%s is not supported by the surface", config.Format)
	}
	if len(caps.PresentModes) > 0 && !slices.Contains(caps.PresentModes, config.PresentMode) {
		return invalid(op, "PresentMode", "%s is not supported by the surface", config.PresentMode)
	}
	if config.AlphaMode != gputypes.CompositeAlphaModeAuto && len(caps.AlphaModes) > 0 &&
		!slices.Contains(caps.AlphaModes, config.AlphaMode) {
		return invalid(op, "AlphaMode", "%s is not supported by the surface", config.AlphaMode)
	}
	return nil
}

// AcquireNextImage acquires the next swapchain image and makes it the current outstanding frame.
// An earlier frame that was neither presented nor discarded is superseded and becomes stale.
//
// Returns:
//   - *SurfaceFrame: the acquired frame
//   - error: StateError if unconfigured, ResourceError (SwapchainOutOfDate, SurfaceLost, DeviceLost)
func (s *Surface) AcquireNextImage() (*SurfaceFrame, error) {
	const op = "AcquireNextImage"
	if err := s.check(op); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.configured {
		return nil, &StateError{Op: op, State: "Unconfigured", Reason: "surface is not configured"}
	}
	if err := s.device.ready(op); err != nil {
		return nil, err
	}
	if prev := s.current; prev != nil && prev.state == FrameAcquired {
		s.retireLocked(prev, FrameStale)
		logger.Logger().Debug("gpu: frame superseded", "surface", s.id, "generation", prev.generation)
	}

	native, err := s.native.Acquire()
	if err != nil {
		return nil, s.device.nativeFailure(op, err)
	}
	s.generation++
	f := &SurfaceFrame{
		ImageIndex: uint32(s.generation % swapchainImageCount),
		Suboptimal: native.Suboptimal(),
		surface:    s,
		generation: s.generation,
		native:     native,
		state:      FrameAcquired,
	}
	f.view = &TextureView{
		frame:       f,
		format:      s.config.Format,
		sampleCount: 1,
		width:       uint32(s.width),
		height:      uint32(s.height),
	}
	f.view.adopt(s.device, "swapchain view", fmt.Sprintf("swapchain %d", f.ImageIndex), native.View())
	s.current = f
	return f, nil
}

// AcquireFrame is an alias of AcquireNextImage.
func (s *Surface) AcquireFrame() (*SurfaceFrame, error) { return s.AcquireNextImage() }

// retireLocked ends an acquired frame without presenting it. s.mu must be held.
func (s *Surface) retireLocked(f *SurfaceFrame, state FrameState) {
	s.native.Discard(f.native)
	f.state = state
	f.view.markDisposed()
	if s.current == f {
		s.current = nil
	}
}

func (s *Surface) frameError(op string, f *SurfaceFrame) error {
	if f == nil {
		return invalid(op, "frame", "must not be nil")
	}
	if f.surface != s {
		return invalid(op, "frame", "was acquired from another surface")
	}
	switch {
	case f.state == FramePresented:
		return &PresentationError{Op: op, Reason: "frame already presented"}
	case f.state == FrameDiscarded:
		return &PresentationError{Op: op, Reason: "frame was discarded"}
	case f.state == FrameStale || f != s.current:
		return &PresentationError{Op: op, Reason: fmt.Sprintf("frame %d is not the most recently acquired image", f.generation)}
	}
	return nil
}

// PresentImage presents the current outstanding frame.
//
// Parameters:
//   - f: the frame returned by the latest AcquireNextImage
//
// Returns:
//   - error: PresentationError for stale, discarded or already presented frames,
//     ResourceError if the swapchain went out of date
func (s *Surface) PresentImage(f *SurfaceFrame) error {
	const op = "PresentImage"
	if err := s.check(op); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.frameError(op, f); err != nil {
		return err
	}
	f.state = FramePresented
	f.view.markDisposed()
	s.current = nil
	if err := s.native.Present(f.native); err != nil {
		return s.device.nativeFailure(op, err)
	}
	return nil
}

// DiscardImage releases the current outstanding frame without presenting it.
func (s *Surface) DiscardImage(f *SurfaceFrame) error {
	const op = "DiscardImage"
	if err := s.check(op); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.frameError(op, f); err != nil {
		return err
	}
	s.retireLocked(f, FrameDiscarded)
	return nil
}

// isCurrent reports whether f is the outstanding, unpresented acquisition.
func (s *Surface) isCurrent(f *SurfaceFrame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return f == s.current && f.state == FrameAcquired && !s.Disposed()
}

// RecreateSwapchain resizes the swapchain synchronously. Extent reflects the new size as soon as
// the call returns. An unconfigured surface only records the size for its next Configure.
//
// Parameters:
//   - width: new width in pixels, > 0
//   - height: new height in pixels, > 0
//
// Returns:
//   - error: ValidationError for non-positive sizes, StateError while a frame is outstanding,
//     ResourceError on native failure
func (s *Surface) RecreateSwapchain(width, height int) error {
	const op = "RecreateSwapchain"
	if width <= 0 {
		return invalid(op, "width", "must be > 0, got %d", width)
	}
	if height <= 0 {
		return invalid(op, "height", "must be > 0, got %d", height)
	}
	if err := s.check(op); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && s.current.state == FrameAcquired {
		return &StateError{Op: op, State: "FrameOutstanding", Reason: "cannot resize while a frame is outstanding"}
	}
	if !s.configured {
		s.width, s.height = width, height
		return nil
	}
	if err := s.device.ready(op); err != nil {
		return err
	}
	cfg := s.config
	cfg.Width, cfg.Height = width, height
	if err := s.native.Configure(s.device.native, &cfg); err != nil {
		return s.device.nativeFailure(op, err)
	}
	s.config = cfg
	s.width, s.height = width, height
	return nil
}

// unconfigure detaches the surface from d. Called by Device.Dispose.
func (s *Surface) unconfigure(d *Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device == d {
		s.unconfigureLocked()
	}
}

func (s *Surface) unconfigureLocked() {
	if !s.configured {
		return
	}
	if s.current != nil && s.current.state == FrameAcquired {
		s.retireLocked(s.current, FrameStale)
	}
	s.native.Unconfigure(s.device.native)
	s.device.untrackSurface(s)
	s.device, s.configured = nil, false
}

// Dispose unconfigures and releases the surface. Subsequent calls are no-ops.
func (s *Surface) Dispose() error {
	if !s.markDisposed() {
		return nil
	}
	s.mu.Lock()
	s.unconfigureLocked()
	s.mu.Unlock()

	var errs []error
	if err := s.native.Release(); err != nil {
		errs = append(errs, fmt.Errorf("gpu: release surface: %w", err))
	}
	s.instance.children.remove(s.id)
	return errors.Join(errs...)
}
