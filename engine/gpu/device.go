package gpu

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/materia/engine/logger"
	"github.com/gogpu/gputypes"
)

// Device is a logical GPU context. It exclusively owns one Queue and is the only factory for
// every other resource. Disposing the device disposes every resource it created.
type Device struct {
	handle
	adapter  *Adapter
	native   NativeDevice
	queue    *Queue
	limits   gputypes.Limits
	features gputypes.Features
	children ownership
	lost     atomic.Bool

	surfacesMu sync.Mutex
	surfaces   map[HandleID]*Surface
}

// Adapter returns the adapter the device was opened from.
func (d *Device) Adapter() *Adapter { return d.adapter }

// Queue returns the device's only queue.
func (d *Device) Queue() *Queue { return d.queue }

// Limits returns the limits the device was opened with.
func (d *Device) Limits() gputypes.Limits { return d.limits }

// Features returns the features enabled on the device.
func (d *Device) Features() gputypes.Features { return d.features }

// Native returns the backend object behind the device.
func (d *Device) Native() NativeDevice { return d.native }

// Lost reports whether the device has been lost. A lost device rejects all work with a
// ResourceError of kind ResourceDeviceLost and must be rebuilt.
func (d *Device) Lost() bool { return d.lost.Load() }

// LiveObjects returns the number of undisposed resources created by the device.
func (d *Device) LiveObjects() int { return d.children.len() }

func (d *Device) ready(op string) error {
	if err := d.check(op); err != nil {
		return err
	}
	if d.lost.Load() {
		return &ResourceError{Kind: ResourceDeviceLost, Op: op, Err: ErrDeviceLost}
	}
	return nil
}

// nativeFailure classifies a backend error and marks the device lost when the backend says so.
func (d *Device) nativeFailure(op string, err error) error {
	err = asResourceError(op, err)
	if errors.Is(err, ErrDeviceLost) && d.lost.CompareAndSwap(false, true) {
		logger.Logger().Warn("gpu: device lost", "device", d.id, "op", op)
	}
	return err
}

// owns reports whether h was created by this device and is still alive.
func (d *Device) owns(op, field string, h *resource) error {
	if h.device != d {
		return invalid(op, field, "belongs to another device")
	}
	return h.check(op)
}

func (d *Device) trackSurface(s *Surface) {
	d.surfacesMu.Lock()
	defer d.surfacesMu.Unlock()
	if d.surfaces == nil {
		d.surfaces = make(map[HandleID]*Surface)
	}
	d.surfaces[s.id] = s
}

func (d *Device) untrackSurface(s *Surface) {
	d.surfacesMu.Lock()
	defer d.surfacesMu.Unlock()
	delete(d.surfaces, s.id)
}

// Dispose unconfigures any surface bound to the device, disposes every resource it created in
// reverse creation order, then releases the device. Subsequent calls are no-ops.
func (d *Device) Dispose() error {
	if !d.markDisposed() {
		return nil
	}
	d.surfacesMu.Lock()
	surfaces := make([]*Surface, 0, len(d.surfaces))
	for _, s := range d.surfaces {
		surfaces = append(surfaces, s)
	}
	d.surfaces = nil
	d.surfacesMu.Unlock()
	for _, s := range surfaces {
		s.unconfigure(d)
	}

	errs := d.children.disposeReversed()
	d.queue.markDisposed()
	if err := d.native.Release(); err != nil {
		errs = append(errs, fmt.Errorf("gpu: release device: %w", err))
	}
	d.adapter.devices.remove(d.id)
	return errors.Join(errs...)
}

// resource is the base of every device-created handle.
type resource struct {
	handle
	device *Device
	native NativeObject
}

func (r *resource) adopt(d *Device, kind, label string, native NativeObject) {
	r.init(kind, label)
	r.device = d
	r.native = native
}

// Device returns the device that created the resource.
func (r *resource) Device() *Device { return r.device }

// Native returns the backend object behind the resource.
func (r *resource) Native() NativeObject { return r.native }

// Dispose releases the native object once and removes the resource from its device.
func (r *resource) Dispose() error {
	if !r.markDisposed() {
		return nil
	}
	r.device.children.remove(r.id)
	if err := r.native.Release(); err != nil {
		return fmt.Errorf("gpu: release %s %d: %w", r.kind, r.id, err)
	}
	return nil
}
