package hal_backend

import (
	"errors"
	"sync/atomic"
)

var errReleased = errors.New("hal_backend: object released twice")

// object wraps a hal resource and destroys it exactly once.
type object[T any] struct {
	raw      T
	destroy  func(T)
	released atomic.Bool
}

func wrap[T any](raw T, destroy func(T)) *object[T] {
	return &object[T]{raw: raw, destroy: destroy}
}

func (o *object[T]) Release() error {
	if !o.released.CompareAndSwap(false, true) {
		return errReleased
	}
	o.destroy(o.raw)
	return nil
}

// unwrap returns the hal resource behind a native object created by this package.
func unwrap[T any](o interface{ Release() error }) T {
	return o.(*object[T]).raw
}
