package engine

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/materia/engine/camera"
	"github.com/Carmen-Shannon/materia/engine/config"
	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/Carmen-Shannon/materia/engine/gpu/gputest"
	"github.com/Carmen-Shannon/materia/engine/light"
	"github.com/Carmen-Shannon/materia/engine/model"
	"github.com/Carmen-Shannon/materia/engine/renderer/material"
	"github.com/Carmen-Shannon/materia/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(backendID string) config.Config {
	cfg := config.Default()
	cfg.Renderer.Width, cfg.Renderer.Height = 320, 240
	cfg.Negotiation.Platform = "linux"
	cfg.Profiles = []config.ProfileConfig{{
		Backend:   backendID,
		Features:  []string{"RENDER"},
		Platforms: []string{"linux"},
	}}
	return cfg
}

func newEngine(t *testing.T, options ...EngineBuilderOption) (*gputest.Backend, Engine) {
	t.Helper()
	b := gputest.Install(t, gputest.WithID(t.Name()))
	e, err := NewEngine(context.Background(), append([]EngineBuilderOption{
		WithConfig(testConfig(b.ID())),
		WithTarget(gpu.HeadlessTarget{Width: 320, Height: 240}),
		WithRenderFrameLimit(240),
	}, options...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return b, e
}

func triangleScene(t *testing.T, name string) scene.Scene {
	t.Helper()
	m, err := material.NewMaterial()
	require.NoError(t, err)
	return scene.NewScene(name,
		scene.WithCamera(camera.NewCamera(camera.WithPosition(mgl32.Vec3{0, 0, 3}))),
		scene.WithLights(light.NewLight(light.LightTypeDirectional)),
		scene.WithDrawables(scene.Drawable{
			Transform: mgl32.Ident4(),
			Geometry:  model.Triangle(),
			Material:  m,
			Visible:   true,
		}),
	)
}

func TestNewEngineNegotiatesConfiguredBackend(t *testing.T) {
	b, e := newEngine(t)
	assert.Nil(t, e.Window())
	require.NotNil(t, e.Descriptor().Selection)
	assert.Equal(t, b.ID(), e.Descriptor().Selection.Profile.BackendID)
	assert.Equal(t, b.ID(), e.Renderer().Capabilities().Backend)
	w, h := e.Renderer().Size()
	assert.Equal(t, 320, w)
	assert.Equal(t, 240, h)
}

func TestNewEngineWithoutQualifyingBackend(t *testing.T) {
	b := gputest.Install(t, gputest.WithID(t.Name()))
	cfg := testConfig("missing")
	_, err := NewEngine(context.Background(), WithConfig(cfg), WithTarget(gpu.HeadlessTarget{Width: 320, Height: 240}))
	var ce *gpu.CapabilityError
	require.ErrorAs(t, err, &ce)
	assert.Zero(t, b.Live())
}

func TestNewEngineRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Renderer.MSAA = 3
	_, err := NewEngine(context.Background(), WithConfig(cfg), WithTarget(gpu.HeadlessTarget{Width: 1, Height: 1}))
	assert.ErrorContains(t, err, "msaa")
}

func TestNewEngineConfigFile(t *testing.T) {
	b := gputest.Install(t, gputest.WithID(t.Name()))
	cfg := testConfig(b.ID())
	cfg.Renderer.Depth = false
	data, err := cfg.Marshal()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "materia.toml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	e, err := NewEngine(context.Background(), WithConfigFile(path), WithTarget(gpu.HeadlessTarget{Width: 320, Height: 240}))
	require.NoError(t, err)
	defer e.Close()

	assert.False(t, e.Config().Renderer.Depth)
	require.NoError(t, e.Renderer().Clear(gputypes.Color{A: 1}))
	assert.Contains(t, b.Commands(), "begin render pass colors=1 depth=false")
}

func TestFrameCompositesScenes(t *testing.T) {
	b, e := newEngine(t)
	require.NoError(t, e.Frame())
	assert.Empty(t, b.Submissions())

	e.AddScene(1, triangleScene(t, "overlay"))
	e.AddScene(0, triangleScene(t, "world"))
	assert.Len(t, e.Scenes(), 2)
	assert.Equal(t, "world", e.Scene(0).Name())

	require.NoError(t, e.Frame())
	assert.Equal(t, 2, e.Renderer().Stats().DrawCalls)
	assert.Len(t, b.Submissions(), 1)

	e.RemoveScene(1)
	require.NoError(t, e.Frame())
	assert.Equal(t, 1, e.Renderer().Stats().DrawCalls)
}

func TestRunStopsOnQuit(t *testing.T) {
	b, e := newEngine(t, WithTickRate(500))
	e.AddScene(0, triangleScene(t, "world"))

	var ticks atomic.Int32
	e.SetTickCallback(func(float32) {
		if ticks.Add(1) == 3 {
			e.Quit()
		}
	})
	require.NoError(t, e.Run(context.Background()))
	assert.GreaterOrEqual(t, ticks.Load(), int32(3))

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	assert.Zero(t, b.Live(), "leaked %v", b.LiveKinds())
	assert.Zero(t, b.DoubleReleases())
}

func TestRunStopsOnContext(t *testing.T) {
	_, e := newEngine(t)
	e.AddScene(0, triangleScene(t, "world"))

	var frames atomic.Int32
	e.SetRenderCallback(func(float32) { frames.Add(1) })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, e.Run(ctx))
	assert.Positive(t, frames.Load())
	assert.Positive(t, e.Renderer().Stats().Frames)
}

func TestRunReturnsDeviceLoss(t *testing.T) {
	b, e := newEngine(t)
	e.AddScene(0, triangleScene(t, "world"))
	b.FailNextSubmit(gputest.DeviceLost("submit"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := e.Run(ctx)
	require.ErrorIs(t, err, gpu.ErrDeviceLost)
	assert.NoError(t, ctx.Err())
}
