package gpu

import (
	"slices"
	"sync"
	"sync/atomic"
)

// HandleID is a process-unique, monotonically increasing handle identifier.
type HandleID uint64

var handleIDs atomic.Uint64

func nextHandleID() HandleID {
	return HandleID(handleIDs.Add(1))
}

// Disposable is anything that holds native resources and releases them on Dispose.
// Dispose must be idempotent.
type Disposable interface {
	Dispose() error
}

// handle carries the identity and disposal state every GPU handle shares.
type handle struct {
	id       HandleID
	label    string
	kind     string
	disposed atomic.Bool
}

func (h *handle) init(kind, label string) {
	h.id = nextHandleID()
	h.kind = kind
	h.label = label
}

// ID returns the process-unique id of the handle.
func (h *handle) ID() HandleID { return h.id }

// Label returns the debug label given at creation.
func (h *handle) Label() string { return h.label }

// Disposed reports whether Dispose has been called.
func (h *handle) Disposed() bool { return h.disposed.Load() }

func (h *handle) check(op string) error {
	if h.disposed.Load() {
		return disposedError(op, h.kind)
	}
	return nil
}

// markDisposed flips the handle to disposed and reports whether this call did so.
func (h *handle) markDisposed() bool {
	return h.disposed.CompareAndSwap(false, true)
}

// ownedHandle is a child tracked by an ownership table.
type ownedHandle interface {
	ID() HandleID
	Dispose() error
}

// ownership tracks live children in creation order so a parent can dispose them in reverse.
type ownership struct {
	mu    sync.Mutex
	order []HandleID
	items map[HandleID]ownedHandle
}

func (o *ownership) add(h ownedHandle) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.items == nil {
		o.items = make(map[HandleID]ownedHandle)
	}
	o.items[h.ID()] = h
	o.order = append(o.order, h.ID())
}

func (o *ownership) remove(id HandleID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.items[id]; !ok {
		return
	}
	delete(o.items, id)
	if i := slices.Index(o.order, id); i >= 0 {
		o.order = slices.Delete(o.order, i, i+1)
	}
}

func (o *ownership) len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.items)
}

// reversed returns the live children, newest first.
func (o *ownership) reversed() []ownedHandle {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]ownedHandle, 0, len(o.order))
	for i := len(o.order) - 1; i >= 0; i-- {
		out = append(out, o.items[o.order[i]])
	}
	return out
}

// disposeReversed disposes every child newest first and collects failures.
func (o *ownership) disposeReversed() []error {
	var errs []error
	for _, child := range o.reversed() {
		if err := child.Dispose(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
