package webgpu_backend

// BackendBuilderOption configures a Backend.
type BackendBuilderOption func(*Backend)

// WithPlatforms restricts the backend to the given GOOS values.
//
// Parameters:
//   - goos: the platforms the backend reports as available on
//
// Returns:
//   - BackendBuilderOption: the option
func WithPlatforms(goos ...string) BackendBuilderOption {
	return func(b *Backend) {
		b.platforms = goos
	}
}

// WithFallbackAdapter requests the software fallback adapter when enumerating.
//
// Parameters:
//   - force: whether to force the fallback adapter
//
// Returns:
//   - BackendBuilderOption: the option
func WithFallbackAdapter(force bool) BackendBuilderOption {
	return func(b *Backend) {
		b.forceFallback = force
	}
}

// WithGOOS overrides the platform the backend believes it runs on.
func WithGOOS(goos string) BackendBuilderOption {
	return func(b *Backend) {
		b.goos = goos
	}
}
