package profiler

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickReportsOncePerInterval(t *testing.T) {
	var buf bytes.Buffer
	now := time.Unix(1000, 0)
	p := NewProfiler(
		WithInterval(time.Second),
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
		WithClock(func() time.Time { return now }),
	)

	for range 59 {
		now = now.Add(10 * time.Millisecond)
		assert.False(t, p.Tick())
	}
	assert.Zero(t, buf.Len())

	now = now.Add(410 * time.Millisecond)
	require.True(t, p.Tick(slog.Int("draw_calls", 7)))
	assert.InDelta(t, 60.0, p.Last().FPS, 1e-9)
	assert.Contains(t, buf.String(), "msg=profiler")
	assert.Contains(t, buf.String(), "draw_calls=7")

	now = now.Add(500 * time.Millisecond)
	assert.False(t, p.Tick(), "counter restarts after a report")
}
