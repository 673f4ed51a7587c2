// Package negotiator detects GPU capabilities per backend, selects the backend that meets the
// feature floor, and initializes the surface, adapter and device of the chosen backend.
package negotiator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/materia/engine/gpu"
	"github.com/gogpu/gputypes"
)

// Negotiator chooses and opens a rendering backend.
type Negotiator interface {
	// DetectCapabilities opens the requested backend, reads its adapter and releases everything it opened.
	//
	// Parameters:
	//   - ctx: cancels adapter enumeration
	//   - req: the backend to probe and optional presentation target
	//
	// Returns:
	//   - DeviceCapabilityReport: the capabilities of the adapter the backend would use
	//   - error: error if the backend cannot be opened or exposes no adapter
	DetectCapabilities(ctx context.Context, req DetectionRequest) (DeviceCapabilityReport, error)

	// DetectAll probes several backends concurrently on the worker pool.
	//
	// Parameters:
	//   - ctx: cancels every probe
	//   - backendIDs: the backends to probe
	//
	// Returns:
	//   - map[string]DeviceCapabilityReport: the reports of every backend that could be probed
	//   - error: the joined failures of the remaining backends, or nil
	DetectAll(ctx context.Context, backendIDs []string) (map[string]DeviceCapabilityReport, error)

	// SelectBackend picks from the configured profiles using one device report.
	//
	// Parameters:
	//   - report: the detected device capabilities
	//
	// Returns:
	//   - BackendSelection: the selected profile
	//   - error: *gpu.CapabilityError when no profile qualifies
	SelectBackend(report DeviceCapabilityReport) (BackendSelection, error)

	// InitializePlatform creates instance, surface, adapter and device for backendID and configures
	// the surface. Nothing it created survives a failure or cancellation.
	//
	// Parameters:
	//   - ctx: cancels adapter and device acquisition
	//   - backendID: the backend to open
	//   - config: the presentation target and swapchain settings
	//
	// Returns:
	//   - *RenderSurfaceDescriptor: the owned platform objects
	//   - error: error from any stage, after teardown
	InitializePlatform(ctx context.Context, backendID string, config SurfaceConfig) (*RenderSurfaceDescriptor, error)

	// Negotiate probes every profile targeting the platform, selects one and initializes it.
	// When selection fails no instance is left open.
	//
	// Parameters:
	//   - ctx: cancels detection and initialization
	//   - config: the presentation target and swapchain settings
	//
	// Returns:
	//   - *RenderSurfaceDescriptor: the initialized platform, with its Selection set
	//   - error: *gpu.CapabilityError when no backend qualifies, or an initialization error
	Negotiate(ctx context.Context, config SurfaceConfig) (*RenderSurfaceDescriptor, error)

	// Profiles returns the candidate profiles.
	Profiles() []RenderingBackendProfile

	// Policy returns the selection policy.
	Policy() Policy
}

type negotiator struct {
	profiles   []RenderingBackendProfile
	policy     Policy
	workers    int
	validation bool
	power      gputypes.PowerPreference
}

var _ Negotiator = &negotiator{}

// NewNegotiator creates a Negotiator over DefaultProfiles and DefaultPolicy.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - Negotiator: the negotiator
func NewNegotiator(options ...NegotiatorBuilderOption) Negotiator {
	n := &negotiator{
		profiles: DefaultProfiles(),
		policy:   DefaultPolicy(),
		workers:  4,
	}
	for _, opt := range options {
		opt(n)
	}
	return n
}

func (n *negotiator) Profiles() []RenderingBackendProfile { return slices.Clone(n.profiles) }

func (n *negotiator) Policy() Policy { return n.policy }

func (n *negotiator) SelectBackend(report DeviceCapabilityReport) (BackendSelection, error) {
	return SelectBackend(report, n.profiles, n.policy)
}

func (n *negotiator) DetectAll(ctx context.Context, backendIDs []string) (map[string]DeviceCapabilityReport, error) {
	reports, failures := n.detectAll(ctx, backendIDs, nil)
	errs := make([]error, 0, len(failures))
	for _, id := range backendIDs {
		if err, ok := failures[id]; ok {
			errs = append(errs, err)
		}
	}
	return reports, errors.Join(errs...)
}

// detectAll probes backendIDs concurrently. A non-nil target is probed for presentation support.
func (n *negotiator) detectAll(ctx context.Context, backendIDs []string, target gpu.SurfaceTarget) (map[string]DeviceCapabilityReport, map[string]error) {
	type result struct {
		report DeviceCapabilityReport
		err    error
	}
	results := make([]result, len(backendIDs))

	pool := worker.NewDynamicWorkerPool(min(n.workers, max(len(backendIDs), 1)), len(backendIDs), time.Second)
	defer pool.Stop()

	var wg sync.WaitGroup
	for i, id := range backendIDs {
		wg.Add(1)
		pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				r, err := n.DetectCapabilities(ctx, DetectionRequest{BackendID: id, Target: target})
				results[i] = result{r, err}
				return nil, err
			},
		})
	}
	wg.Wait()

	reports := make(map[string]DeviceCapabilityReport, len(backendIDs))
	failures := make(map[string]error)
	for i, id := range backendIDs {
		if results[i].err != nil {
			failures[id] = results[i].err
			continue
		}
		reports[id] = results[i].report
	}
	return reports, failures
}

func (n *negotiator) Negotiate(ctx context.Context, config SurfaceConfig) (*RenderSurfaceDescriptor, error) {
	target := config.Target
	if target == nil {
		target = gpu.HeadlessTarget{Width: config.Width, Height: config.Height}
	}
	policy := n.policy
	_, window := target.NativeHandles()
	policy.Windowed = window != 0

	var ids []string
	for _, p := range n.profiles {
		if p.Offscreen && policy.Windowed {
			continue
		}
		if p.Targets(policy.Platform) && !slices.Contains(ids, p.BackendID) {
			ids = append(ids, p.BackendID)
		}
	}
	reports, failures := n.detectAll(ctx, ids, target)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	selection, err := selectFromReports(reports, failures, n.profiles, policy)
	if err != nil {
		return nil, err
	}
	rsd, err := n.InitializePlatform(ctx, selection.Profile.BackendID, config)
	if err != nil {
		return nil, fmt.Errorf("negotiator: initialize %q: %w", selection.Profile.BackendID, err)
	}
	rsd.Selection = &selection
	return rsd, nil
}
