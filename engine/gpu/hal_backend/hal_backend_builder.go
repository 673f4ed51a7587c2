package hal_backend

import "github.com/gogpu/wgpu/hal"

// BackendBuilderOption configures a Backend.
type BackendBuilderOption func(*Backend)

// WithPlatforms restricts the backend to the given GOOS values. No platforms means every platform.
func WithPlatforms(goos ...string) BackendBuilderOption {
	return func(b *Backend) {
		b.platforms = goos
	}
}

// WithAPI uses api directly instead of looking the variant up in the hal registry.
func WithAPI(api hal.Backend) BackendBuilderOption {
	return func(b *Backend) {
		b.api = api
	}
}

// WithGOOS overrides the platform the backend believes it runs on.
func WithGOOS(goos string) BackendBuilderOption {
	return func(b *Backend) {
		b.goos = goos
	}
}
