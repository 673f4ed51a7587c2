package gpu_test

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisposableContainerReverseOrder(t *testing.T) {
	var order []string
	c := gpu.NewDisposableContainer()
	for _, name := range []string{"instance", "surface", "adapter", "device"} {
		require.NoError(t, c.Add(gpu.DisposeFunc(func() error {
			order = append(order, name)
			return nil
		})))
	}
	assert.Equal(t, 4, c.Len())

	require.NoError(t, c.Dispose())
	assert.Equal(t, []string{"device", "adapter", "surface", "instance"}, order)
	assert.Zero(t, c.Len())

	require.NoError(t, c.Dispose())
	assert.Len(t, order, 4)
}

func TestDisposableContainerContinuesPastFailures(t *testing.T) {
	errA := errors.New("a failed")
	errC := errors.New("c failed")
	var calls int
	member := func(err error) gpu.Disposable {
		return gpu.DisposeFunc(func() error {
			calls++
			return err
		})
	}
	c := gpu.NewDisposableContainer()
	require.NoError(t, c.Add(member(errA)))
	require.NoError(t, c.Add(member(nil)))
	require.NoError(t, c.Add(member(errC)))

	err := c.Dispose()
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errC)
	assert.Equal(t, 3, calls)
}

func TestDisposableContainerAddAfterDispose(t *testing.T) {
	c := gpu.NewDisposableContainer()
	require.NoError(t, c.Dispose())

	disposed := false
	require.NoError(t, c.Add(gpu.DisposeFunc(func() error {
		disposed = true
		return nil
	})))
	assert.True(t, disposed)
	assert.Zero(t, c.Len())
}
