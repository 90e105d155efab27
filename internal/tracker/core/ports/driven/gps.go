package driven

import (
	"context"

	"freight-tracker/internal/tracker/core/domain/model"
)

// WatchOptions throttle a position watch: a sample is delivered when at least
// Interval has passed and the device moved at least DistanceMeters.
type WatchOptions struct {
	IntervalMillis int64
	DistanceMeters float64
}

// ILocationSource is the on-device GPS. Current blocks for one fix; Watch
// delivers throttled fixes until the returned stop function is called.
// Implementations return an error when location access is denied, which
// callers treat as a silent degrade.
type ILocationSource interface {
	Current(ctx context.Context) (model.LocationPoint, error)
	Watch(ctx context.Context, opts WatchOptions, fn func(model.LocationPoint)) (stop func(), err error)
}
