package bind_group_provider

import (
	"errors"
	"fmt"
)

// BufferWrite describes a single GPU buffer write operation targeting a specific binding
// on a BindGroupProvider at a given byte offset.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  uint32
	Offset   int64
	Data     []byte
}

// Apply performs writes in order. A failed write does not stop the remaining ones.
//
// Parameters:
//   - writes: the batched writes
//
// Returns:
//   - error: joined write failures, or nil
func Apply(writes ...BufferWrite) error {
	var errs []error
	for _, w := range writes {
		if err := w.Provider.Write(w.Binding, w.Offset, w.Data); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", w.Provider.Label(), err))
		}
	}
	return errors.Join(errs...)
}
