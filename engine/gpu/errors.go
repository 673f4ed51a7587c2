package gpu

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDisposed is wrapped by every StateError raised for use of a disposed handle.
	ErrDisposed = errors.New("gpu: handle disposed")
	// ErrDeviceLost is wrapped by ResourceError values of kind ResourceDeviceLost.
	ErrDeviceLost = errors.New("gpu: device lost")
	// ErrSwapchainOutOfDate is wrapped by ResourceError values of kind ResourceSwapchainOutOfDate.
	ErrSwapchainOutOfDate = errors.New("gpu: swapchain out of date")
	// ErrBackendNotRegistered is returned when a backend id has no registered implementation.
	ErrBackendNotRegistered = errors.New("gpu: backend not registered")
	// ErrBackendUnavailable is returned when a registered backend cannot run on this platform.
	ErrBackendUnavailable = errors.New("gpu: backend unavailable")
	// ErrNoAdapter is returned when an instance exposes no usable adapter.
	ErrNoAdapter = errors.New("gpu: no adapter available")
)

// ValidationError reports a malformed descriptor or argument. The native API is never reached.
type ValidationError struct {
	Op     string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("gpu: %s: invalid %s: %s", e.Op, e.Field, e.Reason)
}

func invalid(op, field, format string, args ...any) *ValidationError {
	return &ValidationError{Op: op, Field: field, Reason: fmt.Sprintf(format, args...)}
}

// StateError reports protocol misuse such as a draw without a pipeline or use after dispose.
type StateError struct {
	Op     string
	State  string
	Reason string
	Err    error
}

func (e *StateError) Error() string {
	if e.State == "" {
		return fmt.Sprintf("gpu: %s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("gpu: %s: %s (state %s)", e.Op, e.Reason, e.State)
}

func (e *StateError) Unwrap() error { return e.Err }

// ResourceKind classifies a recoverable ResourceError.
type ResourceKind int

const (
	ResourceAllocationFailed ResourceKind = iota
	ResourceOutOfMemory
	ResourceDeviceLost
	ResourceSwapchainOutOfDate
	ResourceSurfaceLost
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceAllocationFailed:
		return "AllocationFailed"
	case ResourceOutOfMemory:
		return "OutOfMemory"
	case ResourceDeviceLost:
		return "DeviceLost"
	case ResourceSwapchainOutOfDate:
		return "SwapchainOutOfDate"
	case ResourceSurfaceLost:
		return "SurfaceLost"
	default:
		return fmt.Sprintf("ResourceKind(%d)", int(k))
	}
}

// ResourceError reports a native allocation failure, device loss or an out-of-date swapchain.
// The caller may rebuild the affected resource and resume.
type ResourceError struct {
	Kind ResourceKind
	Op   string
	Err  error
}

func (e *ResourceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("gpu: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("gpu: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// Is matches the kind sentinels so errors.Is(err, ErrDeviceLost) holds for every device-lost ResourceError.
func (e *ResourceError) Is(target error) bool {
	switch target {
	case ErrDeviceLost:
		return e.Kind == ResourceDeviceLost
	case ErrSwapchainOutOfDate:
		return e.Kind == ResourceSwapchainOutOfDate
	}
	return false
}

// Rejection records why one candidate backend was refused during negotiation.
type Rejection struct {
	BackendID string
	Missing   []string
	Reason    string
}

func (r Rejection) String() string {
	var b strings.Builder
	b.WriteString(r.BackendID)
	if len(r.Missing) > 0 {
		b.WriteString(": missing ")
		b.WriteString(strings.Join(r.Missing, ", "))
	}
	if r.Reason != "" {
		if len(r.Missing) > 0 {
			b.WriteString("; ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(r.Reason)
	}
	return b.String()
}

// CapabilityError reports that no candidate backend meets the required feature floor.
type CapabilityError struct {
	Platform   string
	Rejections []Rejection
}

func (e *CapabilityError) Error() string {
	if len(e.Rejections) == 0 {
		return fmt.Sprintf("gpu: no backend candidates for platform %s", e.Platform)
	}
	parts := make([]string, len(e.Rejections))
	for i, r := range e.Rejections {
		parts[i] = r.String()
	}
	return fmt.Sprintf("gpu: no backend satisfies requirements on %s: [%s]", e.Platform, strings.Join(parts, "] ["))
}

// MissingFeatures returns the union of missing features across all rejected candidates in first-seen order.
func (e *CapabilityError) MissingFeatures() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range e.Rejections {
		for _, m := range r.Missing {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out
}

// PresentationError reports presenting a stale, superseded or already-presented frame.
// Acquiring a fresh frame recovers.
type PresentationError struct {
	Op     string
	Reason string
}

func (e *PresentationError) Error() string {
	return fmt.Sprintf("gpu: %s: %s", e.Op, e.Reason)
}

// IsRecoverable reports whether err is a ResourceError or PresentationError, the two classes a
// render loop may recover from by skipping a frame or rebuilding.
func IsRecoverable(err error) bool {
	var re *ResourceError
	var pe *PresentationError
	return errors.As(err, &re) || errors.As(err, &pe)
}

func disposedError(op string, kind string) *StateError {
	return &StateError{Op: op, Reason: kind + " is disposed", Err: ErrDisposed}
}
