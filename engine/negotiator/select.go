package negotiator

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/Carmen-Shannon/materia/engine/logger"
)

// FeatureFloor holds the hard minimums every selected backend must meet.
type FeatureFloor struct {
	MaxTextureSize      uint32
	MaxVertexAttributes uint32
}

// DefaultFeatureFloor returns the floor of a 2048 texel texture and 16 vertex attributes.
func DefaultFeatureFloor() FeatureFloor {
	return FeatureFloor{MaxTextureSize: 2048, MaxVertexAttributes: 16}
}

// Policy parameterizes backend selection.
type Policy struct {
	Platform Platform
	Floor    FeatureFloor
	// PreferredBackend is tried before the priority order when it qualifies. It is only set through
	// WithPreferredBackend; a report's own PreferredBackend is informational.
	PreferredBackend string
	// Windowed rejects Offscreen profiles. Negotiate sets it when the target has a window handle.
	Windowed bool
}

// DefaultPolicy selects for the current platform with the default floor.
func DefaultPolicy() Policy {
	return Policy{Platform: CurrentPlatform(), Floor: DefaultFeatureFloor()}
}

// BackendSelection is the outcome of a successful negotiation.
type BackendSelection struct {
	Profile RenderingBackendProfile
	Report  DeviceCapabilityReport
	// EmulatedFeatures lists required features the device only emulates.
	EmulatedFeatures []Feature
	// Rejected lists the candidates tried before the selected one.
	Rejected []gpu.Rejection
}

// SelectBackend evaluates every candidate against one device report.
//
// Parameters:
//   - report: the detected device capabilities
//   - candidates: the profiles to choose from
//   - policy: platform, feature floor and preference
//
// Returns:
//   - BackendSelection: the first qualifying candidate by fallback priority
//   - error: *gpu.CapabilityError listing every rejected candidate when none qualifies
func SelectBackend(report DeviceCapabilityReport, candidates []RenderingBackendProfile, policy Policy) (BackendSelection, error) {
	return selectFrom(candidates, policy, func(RenderingBackendProfile) (*DeviceCapabilityReport, string) {
		return &report, ""
	})
}

// SelectBackendFromReports evaluates each candidate against the report of its own backend.
// Candidates without a report are rejected.
//
// Parameters:
//   - reports: capability reports keyed by backend id
//   - candidates: the profiles to choose from
//   - policy: platform, feature floor and preference
//
// Returns:
//   - BackendSelection: the first qualifying candidate by fallback priority
//   - error: *gpu.CapabilityError listing every rejected candidate when none qualifies
func SelectBackendFromReports(reports map[string]DeviceCapabilityReport, candidates []RenderingBackendProfile, policy Policy) (BackendSelection, error) {
	return selectFromReports(reports, nil, candidates, policy)
}

func selectFromReports(reports map[string]DeviceCapabilityReport, failures map[string]error, candidates []RenderingBackendProfile, policy Policy) (BackendSelection, error) {
	return selectFrom(candidates, policy, func(p RenderingBackendProfile) (*DeviceCapabilityReport, string) {
		if r, ok := reports[p.BackendID]; ok {
			return &r, ""
		}
		if err, ok := failures[p.BackendID]; ok {
			return nil, fmt.Sprintf("detection failed: %v", err)
		}
		return nil, "no capability report"
	})
}

func selectFrom(candidates []RenderingBackendProfile, policy Policy, reportFor func(RenderingBackendProfile) (*DeviceCapabilityReport, string)) (BackendSelection, error) {
	ordered := slices.Clone(candidates)
	slices.SortStableFunc(ordered, func(a, b RenderingBackendProfile) int {
		return cmp.Compare(a.FallbackPriority, b.FallbackPriority)
	})
	if policy.PreferredBackend != "" {
		if i := slices.IndexFunc(ordered, func(p RenderingBackendProfile) bool { return p.BackendID == policy.PreferredBackend }); i > 0 {
			preferred := ordered[i]
			ordered = slices.Insert(slices.Delete(ordered, i, i+1), 0, preferred)
		}
	}

	var rejections []gpu.Rejection
	for _, candidate := range ordered {
		report, absent := reportFor(candidate)
		rejection, emulated, ok := evaluate(candidate, report, absent, policy)
		if !ok {
			logger.Logger().Info("negotiator: backend rejected", "backend", candidate.BackendID, "reason", rejection.String())
			rejections = append(rejections, rejection)
			continue
		}
		if len(emulated) > 0 {
			logger.Logger().Warn("negotiator: accepting emulated features", "backend", candidate.BackendID, "features", emulated)
		}
		if candidate.Offscreen {
			logger.Logger().Warn("negotiator: selected offscreen backend, frames are not presented", "backend", candidate.BackendID)
		} else {
			logger.Logger().Debug("negotiator: backend selected", "backend", candidate.BackendID, "priority", candidate.FallbackPriority)
		}
		return BackendSelection{Profile: candidate, Report: *report, EmulatedFeatures: emulated, Rejected: rejections}, nil
	}
	return BackendSelection{}, &gpu.CapabilityError{Platform: string(policy.Platform), Rejections: rejections}
}

// evaluate checks one candidate. EMULATED satisfies a requirement exactly like SUPPORTED.
func evaluate(candidate RenderingBackendProfile, report *DeviceCapabilityReport, absent string, policy Policy) (gpu.Rejection, []Feature, bool) {
	rejection := gpu.Rejection{BackendID: candidate.BackendID}
	if !candidate.Targets(policy.Platform) {
		rejection.Reason = fmt.Sprintf("platform %s not targeted", policy.Platform)
		return rejection, nil, false
	}
	if candidate.Offscreen && policy.Windowed {
		rejection.Reason = "offscreen backend cannot present to a window"
		return rejection, nil, false
	}
	if report == nil {
		rejection.Reason = absent
		return rejection, nil, false
	}

	var emulated []Feature
	for _, f := range candidate.RequiredFeatures {
		switch report.Status(f) {
		case StatusSupported:
		case StatusEmulated:
			emulated = append(emulated, f)
		default:
			rejection.Missing = append(rejection.Missing, string(f))
		}
	}

	var reasons []string
	if report.Limits.MaxTextureSize < policy.Floor.MaxTextureSize {
		reasons = append(reasons, fmt.Sprintf("max texture size %d below floor %d", report.Limits.MaxTextureSize, policy.Floor.MaxTextureSize))
	}
	if report.Limits.MaxVertexAttributes < policy.Floor.MaxVertexAttributes {
		reasons = append(reasons, fmt.Sprintf("max vertex attributes %d below floor %d", report.Limits.MaxVertexAttributes, policy.Floor.MaxVertexAttributes))
	}
	rejection.Reason = strings.Join(reasons, "; ")

	if len(rejection.Missing) > 0 || rejection.Reason != "" {
		return rejection, nil, false
	}
	return gpu.Rejection{}, emulated, true
}
