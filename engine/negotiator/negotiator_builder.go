package negotiator

import "github.com/gogpu/gputypes"

// NegotiatorBuilderOption configures a Negotiator.
type NegotiatorBuilderOption func(*negotiator)

// WithProfiles replaces the candidate profiles.
//
// Parameters:
//   - profiles: the candidates, in any order
//
// Returns:
//   - NegotiatorBuilderOption: the option
func WithProfiles(profiles ...RenderingBackendProfile) NegotiatorBuilderOption {
	return func(n *negotiator) {
		n.profiles = profiles
	}
}

// WithPlatform overrides the detected platform.
//
// Parameters:
//   - p: the platform selection targets
//
// Returns:
//   - NegotiatorBuilderOption: the option
func WithPlatform(p Platform) NegotiatorBuilderOption {
	return func(n *negotiator) {
		n.policy.Platform = p
	}
}

// WithFeatureFloor overrides the hard limits floor.
//
// Parameters:
//   - floor: the minimum limits a selected backend must report
//
// Returns:
//   - NegotiatorBuilderOption: the option
func WithFeatureFloor(floor FeatureFloor) NegotiatorBuilderOption {
	return func(n *negotiator) {
		n.policy.Floor = floor
	}
}

// WithPreferredBackend tries backendID first whenever it qualifies.
func WithPreferredBackend(backendID string) NegotiatorBuilderOption {
	return func(n *negotiator) {
		n.policy.PreferredBackend = backendID
	}
}

// WithWorkerCount sets how many backends are probed concurrently.
func WithWorkerCount(count int) NegotiatorBuilderOption {
	return func(n *negotiator) {
		if count > 0 {
			n.workers = count
		}
	}
}

// WithValidation enables native validation layers on every instance the negotiator opens.
func WithValidation(enabled bool) NegotiatorBuilderOption {
	return func(n *negotiator) {
		n.validation = enabled
	}
}

// WithPowerPreference sets the adapter power preference.
func WithPowerPreference(pref gputypes.PowerPreference) NegotiatorBuilderOption {
	return func(n *negotiator) {
		n.power = pref
	}
}
