package contract

import "context"

// BaselineRepository keeps the rolling magnitude history the result
// validator compares fresh results against.
type BaselineRepository interface {
	Record(ctx context.Context, action, metric string, value float64) error

	// RecentAverage returns the mean over the most recent window
	// observations and how many observations exist. A count of zero means
	// no baseline yet, which the caller must treat as "cannot judge".
	RecentAverage(ctx context.Context, action, metric string, window int) (avg float64, count int, err error)
}
