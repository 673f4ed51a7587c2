package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/materia/common"
	"github.com/Carmen-Shannon/materia/engine/config"
	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/Carmen-Shannon/materia/engine/logger"
	"github.com/Carmen-Shannon/materia/engine/negotiator"
	"github.com/Carmen-Shannon/materia/engine/profiler"
	"github.com/Carmen-Shannon/materia/engine/renderer"
	"github.com/Carmen-Shannon/materia/engine/scene"
	"github.com/Carmen-Shannon/materia/engine/window"
	"github.com/gogpu/gputypes"

	// Register the native backends the default profiles negotiate between.
	_ "github.com/Carmen-Shannon/materia/engine/gpu/hal_backend"
	_ "github.com/Carmen-Shannon/materia/engine/gpu/webgpu_backend"
)

const defaultTitle = "materia"

// engine implements the Engine interface.
// Coordinates the tick and render goroutines with the window message loop.
type engine struct {
	mu sync.RWMutex

	cfg        config.Config
	configPath string
	title      string

	window      window.Window
	ownsWindow  bool
	target      gpu.SurfaceTarget
	format      gputypes.TextureFormat
	negotiation []negotiator.NegotiatorBuilderOption
	rendering   []renderer.RendererBuilderOption

	rsd      *negotiator.RenderSurfaceDescriptor
	renderer renderer.Renderer

	tickRateChannel chan time.Duration
	engineTickRate  time.Duration
	tickCallback    func(deltaTime float32)
	renderCallback  func(deltaTime float32)

	scenes map[int]scene.Scene

	profiler         *profiler.Profiler
	profilingEnabled bool

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped

	running   bool
	wg        sync.WaitGroup
	quit      chan struct{}
	quitOnce  sync.Once
	closeOnce sync.Once
	runErr    error
}

// Engine is the main entry point of an application. It negotiates a backend for its window,
// owns the renderer built on it and drives the tick and render loops.
type Engine interface {
	// Window returns the window the engine renders to, or nil when rendering to a custom target.
	Window() window.Window

	// Renderer returns the frame renderer.
	Renderer() renderer.Renderer

	// Descriptor returns the negotiated platform objects.
	//
	// Returns:
	//   - *negotiator.RenderSurfaceDescriptor: instance, surface, adapter, device and the backend selection
	Descriptor() *negotiator.RenderSurfaceDescriptor

	// Config returns the configuration the engine was built from.
	Config() config.Config

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for game logic updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	// Use this for game logic, input processing and transform updates.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each rendered frame.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// AddScene registers a scene at the given z-index key.
	// Scenes are composited into one frame in ascending key order.
	//
	// Parameters:
	//   - key: the z-index determining draw order (lower draws first)
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given z-index key.
	//
	// Parameters:
	//   - key: the z-index of the scene to remove
	RemoveScene(key int)

	// Scene retrieves the scene registered at the given z-index key.
	// Returns nil if no scene exists at that key.
	//
	// Parameters:
	//   - key: the z-index of the scene to retrieve
	//
	// Returns:
	//   - scene.Scene: the scene at the key, or nil if not found
	Scene(key int) scene.Scene

	// Scenes returns a copy of all registered scenes keyed by z-index.
	//
	// Returns:
	//   - map[int]scene.Scene: a copy of the scenes map
	Scenes() map[int]scene.Scene

	// Frame renders the registered scenes once on the calling goroutine.
	//
	// Returns:
	//   - error: device loss or a non-recoverable renderer error
	Frame() error

	// Run starts the tick and render loops and blocks until the window closes, ctx is done,
	// Quit is called or the renderer fails.
	//
	// Parameters:
	//   - ctx: stops the loops when done
	//
	// Returns:
	//   - error: the renderer failure that stopped the loops, or nil
	Run(ctx context.Context) error

	// Quit signals the loops to stop. Safe to call multiple times.
	Quit()

	// Close stops the loops, closes the scenes and releases the renderer, the platform objects
	// and an engine-created window. Subsequent calls are no-ops.
	//
	// Returns:
	//   - error: the joined release errors
	Close() error
}

// NewEngine loads the configuration, opens a window unless a target is given, negotiates a
// backend for it and builds the renderer.
//
// Parameters:
//   - ctx: cancels backend negotiation
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the engine, ready to Run
//   - error: a configuration, window, negotiation or renderer error; nothing stays open
func NewEngine(ctx context.Context, options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		cfg:             config.Default(),
		format:          gputypes.TextureFormatBGRA8Unorm,
		tickRateChannel: make(chan time.Duration, 1),
		quit:            make(chan struct{}),
		scenes:          make(map[int]scene.Scene),
		profiler:        profiler.NewProfiler(),
	}
	for _, opt := range options {
		opt(e)
	}

	if e.configPath != "" {
		cfg, err := config.Load(e.configPath)
		if err != nil {
			return nil, err
		}
		e.cfg = cfg
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if e.engineTickRate == 0 {
		e.engineTickRate = time.Second / time.Duration(e.cfg.Renderer.TickRate)
	}

	if err := e.open(ctx); err != nil {
		_ = e.release()
		return nil, err
	}

	if e.window != nil {
		e.window.SetResizeCallback(e.resize)
		e.window.SetUpdateCallback(func() {
			select {
			case <-e.quit:
				_ = e.window.Close()
			default:
			}
		})
	}
	return e, nil
}

// open creates the window if needed, negotiates the backend and builds the renderer.
func (e *engine) open(ctx context.Context) error {
	if e.target == nil && e.window == nil {
		w, err := window.NewWindow(
			window.WithTitle(common.Coalesce(e.title, defaultTitle)),
			window.WithWidth(e.cfg.Renderer.Width),
			window.WithHeight(e.cfg.Renderer.Height),
		)
		if err != nil {
			return fmt.Errorf("engine: %w", err)
		}
		e.window = w
		e.ownsWindow = true
	}
	if e.target == nil {
		e.target = e.window
	}

	opts, err := e.cfg.NegotiatorOptions()
	if err != nil {
		return err
	}
	n := negotiator.NewNegotiator(append(opts, e.negotiation...)...)
	rsd, err := n.Negotiate(ctx, negotiator.SurfaceConfig{
		Target:      e.target,
		Width:       e.cfg.Renderer.Width,
		Height:      e.cfg.Renderer.Height,
		Format:      e.format,
		DeviceLabel: common.Coalesce(e.title, defaultTitle),
	})
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	e.rsd = rsd

	ropts, err := e.cfg.RendererOptions()
	if err != nil {
		return err
	}
	r, err := renderer.NewRenderer(rsd, append(ropts, e.rendering...)...)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	e.renderer = r

	logger.Logger().Info("engine: ready",
		"backend", rsd.Selection.Profile.BackendID,
		"width", e.cfg.Renderer.Width,
		"height", e.cfg.Renderer.Height,
		"tick", e.engineTickRate,
	)
	return nil
}

// resize forwards a framebuffer size change to the renderer and the scene cameras.
func (e *engine) resize(width, height int) {
	if err := e.renderer.SetSize(width, height); err != nil {
		logger.Logger().Warn("engine: resize", "width", width, "height", height, "err", err)
		return
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, s := range e.scenes {
		if c := s.Camera(); c != nil {
			c.SetAspect(float32(width) / float32(height))
		}
	}
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Descriptor() *negotiator.RenderSurfaceDescriptor {
	return e.rsd
}

func (e *engine) Config() config.Config {
	return e.cfg
}

func (e *engine) Frame() error {
	e.mu.RLock()
	in, ok := e.frame()
	e.mu.RUnlock()
	if !ok {
		return nil
	}
	return e.renderer.RenderFrame(in)
}

// frame composites the registered scenes in ascending key order. The first scene with a camera
// supplies the camera and packs the object uniforms; lights and drawables are concatenated.
func (e *engine) frame() (renderer.FrameInput, bool) {
	var in renderer.FrameInput
	if len(e.scenes) == 0 {
		return in, false
	}
	for i, k := range slices.Sorted(maps.Keys(e.scenes)) {
		s := e.scenes[k]
		if i == 0 {
			in.Packer = s
		}
		if in.Camera == nil && s.Camera() != nil {
			in.Camera = s.Camera()
			in.Packer = s
		}
		in.Lights = append(in.Lights, s.Lights()...)
		in.Drawables = append(in.Drawables, s.Drawables()...)
	}
	return in, true
}

func (e *engine) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return errors.New("engine: already running")
	}
	e.running = true
	e.mu.Unlock()

	e.wg.Add(3)
	go e.handleEngine()
	go e.handleRender()
	go e.handleContext(ctx)

	if e.window != nil {
		e.window.ProcessMessages()
		e.signalQuit()
	} else {
		<-e.quit
	}
	e.wg.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
	return e.runErr
}

// Quit signals all engine goroutines to stop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quit)
	})
}

// handleContext stops the loops when ctx is done.
func (e *engine) handleContext(ctx context.Context) {
	defer e.wg.Done()
	select {
	case <-ctx.Done():
		e.signalQuit()
	case <-e.quit:
	}
}

// handleEngine runs the fixed-rate tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quit:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			e.mu.RLock()
			cb := e.tickCallback
			e.mu.RUnlock()
			if cb != nil {
				cb(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// A renderer error that survives the renderer's own recovery stops the engine.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.fail(fmt.Errorf("engine: render goroutine panicked: %v", r))
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quit:
			return
		default:
		}

		now := time.Now()
		dt := float32(now.Sub(lastRender).Seconds())
		lastRender = now

		if err := e.Frame(); err != nil {
			e.fail(err)
			return
		}

		e.mu.RLock()
		cb, limit, profiling := e.renderCallback, e.renderFrameLimit, e.profilingEnabled
		e.mu.RUnlock()
		if cb != nil {
			cb(dt)
		}
		if profiling {
			stats := e.renderer.Stats()
			e.profiler.Tick(
				slog.Int("draw_calls", stats.DrawCalls),
				slog.Int("triangles", stats.Triangles),
				slog.Uint64("faults", stats.Faults),
			)
		}

		if limit > 0 {
			if remaining := limit - time.Since(now); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

func (e *engine) fail(err error) {
	logger.Logger().Error("engine: stopping", "err", err)
	e.mu.Lock()
	if e.runErr == nil {
		e.runErr = err
	}
	e.mu.Unlock()
	e.signalQuit()
}

func (e *engine) EnableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	e.mu.RLock()
	running := e.running
	e.mu.RUnlock()
	if !running {
		e.engineTickRate = newRate
		return
	}
	// Replace a pending update rather than block.
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.renderCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.renderFrameLimit = frameLimit(fps)
}

func frameLimit(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}

func (e *engine) AddScene(key int, s scene.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.scenes, key)
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return maps.Clone(e.scenes)
}

func (e *engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.signalQuit()
		e.wg.Wait()
		e.mu.Lock()
		for _, s := range e.scenes {
			s.Close()
		}
		e.mu.Unlock()
		err = e.release()
	})
	return err
}

// release disposes whatever open managed to create. The renderer owns the descriptor once built.
func (e *engine) release() error {
	var errs []error
	switch {
	case e.renderer != nil:
		errs = append(errs, e.renderer.Dispose())
	case e.rsd != nil:
		errs = append(errs, e.rsd.Dispose())
	}
	if e.ownsWindow && e.window != nil && e.window.IsRunning() {
		errs = append(errs, e.window.Close())
	}
	return errors.Join(errs...)
}
