package gpu

// InstanceBuilderOption configures an Instance at creation.
type InstanceBuilderOption func(*Instance)

// WithLabel sets the debug label of the instance.
func WithLabel(label string) InstanceBuilderOption {
	return func(i *Instance) {
		i.label = label
	}
}

// WithValidation enables native validation layers when the backend has them.
func WithValidation(enabled bool) InstanceBuilderOption {
	return func(i *Instance) {
		i.validation = enabled
	}
}
