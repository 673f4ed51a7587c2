package webgpu_backend

import (
	"errors"
	"sync/atomic"
)

var errReleased = errors.New("webgpu_backend: object released twice")

type releaser interface {
	Release()
}

// object drops one wgpu-native reference exactly once. wgpu-native keeps objects alive while
// submitted work still uses them.
type object[T releaser] struct {
	raw      T
	released atomic.Bool
}

func wrap[T releaser](raw T) *object[T] {
	return &object[T]{raw: raw}
}

func (o *object[T]) Release() error {
	if !o.released.CompareAndSwap(false, true) {
		return errReleased
	}
	o.raw.Release()
	return nil
}

func unwrap[T releaser](o interface{ Release() error }) T {
	return o.(*object[T]).raw
}
