package ports

import "context"

// HealthChecker abstracts a dependency health probe.
// Implementations should return error if unhealthy.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthDetailer is optionally implemented by a HealthChecker to add
// component state (slot usage, cache size) to the health report.
type HealthDetailer interface {
	Details() map[string]any
}
