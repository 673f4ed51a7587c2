// Package config loads renderer and backend negotiation settings from TOML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/Carmen-Shannon/materia/engine/negotiator"
	"github.com/Carmen-Shannon/materia/engine/renderer"
	"github.com/gogpu/gputypes"
	"github.com/pelletier/go-toml/v2"
)

// Config is the file-level configuration of an application.
//
//	[renderer]
//	clear_color = [0.1, 0.1, 0.1, 1.0]
//	present_mode = "vsync"
//	msaa = 4
//
//	[negotiation]
//	preferred_backend = "vulkan"
//
//	[[profiles]]
//	backend = "vulkan"
//	features = ["RENDER", "COMPUTE"]
//	priority = 0
//	platforms = ["linux", "windows"]
type Config struct {
	Renderer    RendererConfig    `toml:"renderer"`
	Negotiation NegotiationConfig `toml:"negotiation"`
	// Profiles replaces negotiator.DefaultProfiles when not empty.
	Profiles []ProfileConfig `toml:"profiles,omitempty"`
}

// RendererConfig mirrors the renderer builder options.
type RendererConfig struct {
	Width           int        `toml:"width"`
	Height          int        `toml:"height"`
	ClearColor      [4]float64 `toml:"clear_color"`
	Depth           bool       `toml:"depth"`
	DepthClearValue float32    `toml:"depth_clear_value"`
	PresentMode     string     `toml:"present_mode"`
	MSAA            uint32     `toml:"msaa"`
	// TickRate is the target frames per second of the engine loop.
	TickRate int `toml:"tick_rate"`
}

// NegotiationConfig mirrors the negotiator builder options.
type NegotiationConfig struct {
	// Platform overrides the detected platform; empty detects it.
	Platform            string `toml:"platform"`
	PreferredBackend    string `toml:"preferred_backend"`
	Validation          bool   `toml:"validation"`
	Workers             int    `toml:"workers"`
	MinTextureSize      uint32 `toml:"min_texture_size"`
	MinVertexAttributes uint32 `toml:"min_vertex_attributes"`
	// PowerPreference is "", "low-power" or "high-performance".
	PowerPreference string `toml:"power_preference"`
}

// ProfileConfig is one candidate backend profile.
type ProfileConfig struct {
	Backend   string   `toml:"backend"`
	Features  []string `toml:"features"`
	Priority  int      `toml:"priority"`
	Platforms []string `toml:"platforms"`
	Offscreen bool     `toml:"offscreen"`
}

// Default returns the configuration used when no file is given.
//
// Returns:
//   - Config: 1280x720, vsync, depth on, MSAA off, 60 ticks per second, the default feature floor
func Default() Config {
	floor := negotiator.DefaultFeatureFloor()
	return Config{
		Renderer: RendererConfig{
			Width:           1280,
			Height:          720,
			ClearColor:      [4]float64{0, 0, 0, 1},
			Depth:           true,
			DepthClearValue: 1,
			PresentMode:     renderer.PresentModeVSync.String(),
			MSAA:            uint32(renderer.MSAAOff),
			TickRate:        60,
		},
		Negotiation: NegotiationConfig{
			MinTextureSize:      floor.MaxTextureSize,
			MinVertexAttributes: floor.MaxVertexAttributes,
		},
	}
}

// Load reads and parses the TOML file at path on top of Default.
//
// Parameters:
//   - path: the file path
//
// Returns:
//   - Config: the configuration
//   - error: the read, decode or validation error
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	c, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return c, nil
}

// Parse parses a TOML document on top of Default.
//
// Parameters:
//   - data: the document
//
// Returns:
//   - Config: the configuration
//   - error: the decode or validation error
func Parse(data []byte) (Config, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads a TOML document from r on top of Default. Keys that do not map to a field are
// rejected.
//
// Parameters:
//   - r: the document source
//
// Returns:
//   - Config: the configuration
//   - error: the decode or validation error
func Decode(r io.Reader) (Config, error) {
	c := Default()
	if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(&c); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("unknown keys:\n%s", strict.String())
		}
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Marshal encodes c as TOML.
func (c Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

// Validate checks values the TOML types cannot express.
func (c Config) Validate() error {
	var errs []error
	if c.Renderer.Width <= 0 || c.Renderer.Height <= 0 {
		errs = append(errs, fmt.Errorf("renderer: size must be positive, got %dx%d", c.Renderer.Width, c.Renderer.Height))
	}
	if c.Renderer.DepthClearValue < 0 || c.Renderer.DepthClearValue > 1 {
		errs = append(errs, fmt.Errorf("renderer: depth_clear_value must be in [0,1], got %v", c.Renderer.DepthClearValue))
	}
	if _, err := renderer.ParsePresentMode(c.Renderer.PresentMode); err != nil {
		errs = append(errs, err)
	}
	if m := renderer.MSAASampleCount(c.Renderer.MSAA); m != renderer.MSAAOff && m != renderer.MSAA4x {
		errs = append(errs, fmt.Errorf("renderer: msaa must be 1 or 4, got %d", c.Renderer.MSAA))
	}
	if c.Renderer.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("renderer: tick_rate must be positive, got %d", c.Renderer.TickRate))
	}
	if _, err := powerPreference(c.Negotiation.PowerPreference); err != nil {
		errs = append(errs, err)
	}
	if p := c.Negotiation.Platform; p != "" && !slices.Contains(platforms, negotiator.Platform(p)) {
		errs = append(errs, fmt.Errorf("negotiation: unknown platform %q", p))
	}
	for i, p := range c.Profiles {
		if _, err := p.profile(); err != nil {
			errs = append(errs, fmt.Errorf("profiles[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

var platforms = []negotiator.Platform{
	negotiator.PlatformLinux,
	negotiator.PlatformWindows,
	negotiator.PlatformDarwin,
	negotiator.PlatformAndroid,
	negotiator.PlatformIOS,
	negotiator.PlatformWeb,
}

func powerPreference(s string) (gputypes.PowerPreference, error) {
	switch s {
	case "":
		return gputypes.PowerPreferenceNone, nil
	case "low-power":
		return gputypes.PowerPreferenceLowPower, nil
	case "high-performance":
		return gputypes.PowerPreferenceHighPerformance, nil
	}
	return 0, fmt.Errorf("negotiation: unknown power_preference %q", s)
}

func (p ProfileConfig) profile() (negotiator.RenderingBackendProfile, error) {
	if p.Backend == "" {
		return negotiator.RenderingBackendProfile{}, errors.New("backend is required")
	}
	out := negotiator.RenderingBackendProfile{BackendID: p.Backend, FallbackPriority: p.Priority, Offscreen: p.Offscreen}
	for _, f := range p.Features {
		if !slices.Contains(negotiator.AllFeatures(), negotiator.Feature(f)) {
			return negotiator.RenderingBackendProfile{}, fmt.Errorf("%s: unknown feature %q", p.Backend, f)
		}
		out.RequiredFeatures = append(out.RequiredFeatures, negotiator.Feature(f))
	}
	for _, pl := range p.Platforms {
		if !slices.Contains(platforms, negotiator.Platform(pl)) {
			return negotiator.RenderingBackendProfile{}, fmt.Errorf("%s: unknown platform %q", p.Backend, pl)
		}
		out.PlatformTargets = append(out.PlatformTargets, negotiator.Platform(pl))
	}
	return out, nil
}

// RendererOptions converts the renderer section to builder options.
//
// Returns:
//   - []renderer.RendererBuilderOption: clear color, depth, present mode and MSAA options
//   - error: an invalid present mode
func (c Config) RendererOptions() ([]renderer.RendererBuilderOption, error) {
	rc := c.Renderer
	mode, err := renderer.ParsePresentMode(rc.PresentMode)
	if err != nil {
		return nil, err
	}
	return []renderer.RendererBuilderOption{
		renderer.WithClearColor(gputypes.Color{R: rc.ClearColor[0], G: rc.ClearColor[1], B: rc.ClearColor[2], A: rc.ClearColor[3]}),
		renderer.WithDepth(rc.Depth),
		renderer.WithDepthClearValue(rc.DepthClearValue),
		renderer.WithPresentMode(mode),
		renderer.WithSampleCount(rc.MSAA),
	}, nil
}

// NegotiatorOptions converts the negotiation section and the profiles to builder options.
//
// Returns:
//   - []negotiator.NegotiatorBuilderOption: the options
//   - error: an invalid power preference or profile
func (c Config) NegotiatorOptions() ([]negotiator.NegotiatorBuilderOption, error) {
	nc := c.Negotiation
	power, err := powerPreference(nc.PowerPreference)
	if err != nil {
		return nil, err
	}
	opts := []negotiator.NegotiatorBuilderOption{
		negotiator.WithFeatureFloor(negotiator.FeatureFloor{
			MaxTextureSize:      nc.MinTextureSize,
			MaxVertexAttributes: nc.MinVertexAttributes,
		}),
		negotiator.WithValidation(nc.Validation),
		negotiator.WithPowerPreference(power),
	}
	if nc.Platform != "" {
		opts = append(opts, negotiator.WithPlatform(negotiator.Platform(nc.Platform)))
	}
	if nc.PreferredBackend != "" {
		opts = append(opts, negotiator.WithPreferredBackend(nc.PreferredBackend))
	}
	if nc.Workers > 0 {
		opts = append(opts, negotiator.WithWorkerCount(nc.Workers))
	}
	if len(c.Profiles) > 0 {
		profiles := make([]negotiator.RenderingBackendProfile, 0, len(c.Profiles))
		for _, p := range c.Profiles {
			profile, err := p.profile()
			if err != nil {
				return nil, err
			}
			profiles = append(profiles, profile)
		}
		opts = append(opts, negotiator.WithProfiles(profiles...))
	}
	return opts, nil
}
