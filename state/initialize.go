package state

import (
	"time"

	"pleasant/metrics"
)

// newLocalEnv creates a new LocalEnv instance with default values, metrics
// are discarded until configuration selects an exporter.
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		start:   time.Now(),
		Metrics: metrics.NewNop(),
	}
}
