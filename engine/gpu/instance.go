package gpu

import (
	"context"
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/materia/engine/logger"
	"github.com/gogpu/gputypes"
)

// liveInstances tracks every undisposed instance for DisposeAll.
var liveInstances ownership

// Instance is the process-wide entry point into one backend. It owns the surfaces and adapters
// created from it.
type Instance struct {
	handle
	backend    Backend
	native     NativeInstance
	validation bool
	children   ownership
}

// RequestAdapterOptions narrows adapter selection.
type RequestAdapterOptions struct {
	// CompatibleSurface restricts the choice to adapters that can present to it.
	CompatibleSurface *Surface
	PowerPreference   gputypes.PowerPreference
}

// CreateInstance opens the backend registered under backendID.
//
// Parameters:
//   - backendID: the registered backend id
//   - options: instance builder options
//
// Returns:
//   - *Instance: the new instance
//   - error: ErrBackendNotRegistered, ErrBackendUnavailable, or a ResourceError from the native API
func CreateInstance(backendID string, options ...InstanceBuilderOption) (*Instance, error) {
	b, err := LookupBackend(backendID)
	if err != nil {
		return nil, err
	}
	if !b.Available() {
		return nil, fmt.Errorf("%w: %q", ErrBackendUnavailable, backendID)
	}

	inst := &Instance{backend: b}
	inst.init("instance", backendID)
	for _, opt := range options {
		opt(inst)
	}

	native, err := b.OpenInstance(InstanceDescriptor{Validation: inst.validation})
	if err != nil {
		return nil, asResourceError("CreateInstance", err)
	}
	inst.native = native
	liveInstances.add(inst)
	logger.Logger().Debug("gpu: instance created", "backend", backendID, "id", inst.id)
	return inst, nil
}

// Backend returns the id of the backend this instance was opened on.
func (i *Instance) Backend() string { return i.backend.ID() }

// Native returns the backend object behind the instance.
func (i *Instance) Native() NativeInstance { return i.native }

// CreateSurface creates a presentation surface for target.
//
// Parameters:
//   - target: native window handles and framebuffer size from the windowing collaborator
//
// Returns:
//   - *Surface: the unconfigured surface
//   - error: StateError if the instance is disposed, ResourceError on native failure
func (i *Instance) CreateSurface(target SurfaceTarget) (*Surface, error) {
	const op = "CreateSurface"
	if err := i.check(op); err != nil {
		return nil, err
	}
	if target == nil {
		return nil, invalid(op, "target", "must not be nil")
	}
	native, err := i.native.CreateSurface(target)
	if err != nil {
		return nil, asResourceError(op, err)
	}
	w, h := target.FramebufferSize()
	s := &Surface{instance: i, native: native, target: target, width: w, height: h}
	s.init("surface", "")
	i.children.add(s)
	return s, nil
}

// EnumerateAdapters returns every adapter of the backend, optionally filtered to those that can
// present to surface. All returned adapters are owned by the instance.
//
// Parameters:
//   - ctx: cancels enumeration; adapters obtained before cancellation are released
//   - surface: optional compatible surface
//
// Returns:
//   - []*Adapter: the adapters
//   - error: the context error, StateError, or ResourceError
func (i *Instance) EnumerateAdapters(ctx context.Context, surface *Surface) ([]*Adapter, error) {
	const op = "EnumerateAdapters"
	if err := i.check(op); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var nativeSurface NativeSurface
	if surface != nil {
		if err := surface.check(op); err != nil {
			return nil, err
		}
		nativeSurface = surface.native
	}

	natives, err := i.native.EnumerateAdapters(ctx, nativeSurface)
	if err != nil {
		releaseAll(natives)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, asResourceError(op, err)
	}
	if err := ctx.Err(); err != nil {
		releaseAll(natives)
		return nil, err
	}

	adapters := make([]*Adapter, 0, len(natives))
	for _, n := range natives {
		adapters = append(adapters, i.adoptAdapter(n))
	}
	return adapters, nil
}

// RequestAdapter picks one adapter and releases the rest.
// A discrete GPU wins under high-performance preference, an integrated GPU under low-power;
// otherwise the first enumerated adapter is chosen.
//
// Parameters:
//   - ctx: cancels the request
//   - opts: optional selection constraints
//
// Returns:
//   - *Adapter: the chosen adapter
//   - error: ErrNoAdapter when nothing matches
func (i *Instance) RequestAdapter(ctx context.Context, opts *RequestAdapterOptions) (*Adapter, error) {
	var surface *Surface
	pref := gputypes.PowerPreferenceNone
	if opts != nil {
		surface = opts.CompatibleSurface
		pref = opts.PowerPreference
	}
	adapters, err := i.EnumerateAdapters(ctx, surface)
	if err != nil {
		return nil, err
	}
	if len(adapters) == 0 {
		return nil, fmt.Errorf("%w on backend %q", ErrNoAdapter, i.Backend())
	}

	chosen := adapters[0]
	for _, a := range adapters {
		if preferred(a.info.DeviceType, pref) {
			chosen = a
			break
		}
	}
	for _, a := range adapters {
		if a != chosen {
			_ = a.Dispose()
		}
	}
	logger.Logger().Debug("gpu: adapter selected", "backend", i.Backend(), "name", chosen.info.Name)
	return chosen, nil
}

func preferred(t gputypes.DeviceType, pref gputypes.PowerPreference) bool {
	switch pref {
	case gputypes.PowerPreferenceHighPerformance:
		return t == gputypes.DeviceTypeDiscreteGPU
	case gputypes.PowerPreferenceLowPower:
		return t == gputypes.DeviceTypeIntegratedGPU
	}
	return false
}

func (i *Instance) adoptAdapter(n NativeAdapter) *Adapter {
	a := &Adapter{instance: i, native: n, info: n.Info(), limits: n.Limits(), features: n.Features()}
	a.init("adapter", a.info.Name)
	i.children.add(a)
	return a
}

// LiveObjects returns the number of undisposed surfaces and adapters owned by the instance.
func (i *Instance) LiveObjects() int { return i.children.len() }

// Dispose releases every surface, adapter and device created from the instance, newest first,
// then the instance itself. Subsequent calls are no-ops.
func (i *Instance) Dispose() error {
	if !i.markDisposed() {
		return nil
	}
	errs := i.children.disposeReversed()
	if err := i.native.Release(); err != nil {
		errs = append(errs, fmt.Errorf("gpu: release instance: %w", err))
	}
	liveInstances.remove(i.id)
	return errors.Join(errs...)
}

// DisposeAll disposes every live instance in reverse creation order, tearing down all GPU
// objects held by the process.
//
// Returns:
//   - error: all disposal failures joined, or nil
func DisposeAll() error {
	return errors.Join(liveInstances.disposeReversed()...)
}

func releaseAll[T NativeObject](objs []T) {
	for _, o := range objs {
		if err := o.Release(); err != nil {
			logger.Logger().Warn("gpu: release failed", "error", err)
		}
	}
}

// asResourceError keeps a backend-classified ResourceError and classifies anything else as an
// allocation failure.
func asResourceError(op string, err error) error {
	var re *ResourceError
	if errors.As(err, &re) {
		return err
	}
	return &ResourceError{Kind: ResourceAllocationFailed, Op: op, Err: err}
}
