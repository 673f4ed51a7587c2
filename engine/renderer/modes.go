package renderer

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped

	// PresentModeMailbox keeps only the newest queued frame: no tearing and low latency.
	PresentModeMailbox
)

// GPU returns the surface present mode of m.
func (m PresentMode) GPU() gputypes.PresentMode {
	switch m {
	case PresentModeUncapped:
		return gputypes.PresentModeImmediate
	case PresentModeMailbox:
		return gputypes.PresentModeMailbox
	}
	return gputypes.PresentModeFifo
}

func (m PresentMode) String() string {
	switch m {
	case PresentModeVSync:
		return "vsync"
	case PresentModeUncapped:
		return "uncapped"
	case PresentModeMailbox:
		return "mailbox"
	}
	return fmt.Sprintf("PresentMode(%d)", int(m))
}

// ParsePresentMode maps "vsync", "uncapped" or "mailbox" to a PresentMode.
func ParsePresentMode(s string) (PresentMode, error) {
	for _, m := range []PresentMode{PresentModeVSync, PresentModeUncapped, PresentModeMailbox} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("renderer: unknown present mode %q", s)
}

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// WebGPU guarantees support for 1 (off) and 4.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1). This is the default.
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4x multisample anti-aliasing.
	MSAA4x MSAASampleCount = 4
)
