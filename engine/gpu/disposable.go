package gpu

import (
	"errors"
	"sync"

	"github.com/Carmen-Shannon/materia/engine/logger"
)

// DisposeFunc adapts a plain function to the Disposable interface.
type DisposeFunc func() error

func (f DisposeFunc) Dispose() error { return f() }

// DisposableContainer aggregates composite ownership. Members are disposed in reverse order of
// acquisition, and a failed release never stops the remaining members from being released.
type DisposableContainer struct {
	mu       sync.Mutex
	items    []Disposable
	disposed bool
}

// NewDisposableContainer creates an empty container.
func NewDisposableContainer() *DisposableContainer {
	return &DisposableContainer{}
}

// Add appends d to the container. Adding to an already disposed container disposes d immediately
// so it can never be leaked.
//
// Parameters:
//   - d: the member to own
//
// Returns:
//   - error: the disposal error of d if the container was already disposed, nil otherwise
func (c *DisposableContainer) Add(d Disposable) error {
	if d == nil {
		return nil
	}
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return d.Dispose()
	}
	c.items = append(c.items, d)
	c.mu.Unlock()
	return nil
}

// Len returns the number of members not yet disposed by the container.
func (c *DisposableContainer) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Dispose releases every member, newest first. Subsequent calls are no-ops.
//
// Returns:
//   - error: all member failures joined, or nil
func (c *DisposableContainer) Dispose() error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil
	}
	c.disposed = true
	items := c.items
	c.items = nil
	c.mu.Unlock()

	var errs []error
	for i := len(items) - 1; i >= 0; i-- {
		if err := items[i].Dispose(); err != nil {
			logger.Logger().Warn("gpu: dispose failed", "index", i, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
