package logging

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/johnbrandborg/s3-inventory-report/pkg/humanfmt"
)

// ProgressTracker tracks data-file completions across a run. It is safe
// for concurrent use by the file workers.
type ProgressTracker struct {
	total     int64
	completed atomic.Int64
	records   atomic.Uint64
	malformed atomic.Uint64
	startTime time.Time
	log       zerolog.Logger
	phase     string
}

// NewProgressTracker creates a tracker for a set of data files.
func NewProgressTracker(phase string, total int64, log zerolog.Logger) *ProgressTracker {
	return &ProgressTracker{
		total:     total,
		startTime: time.Now(),
		log:       log,
		phase:     phase,
	}
}

// FileDone records a completed data file and logs run progress.
func (pt *ProgressTracker) FileDone(key string, records, malformed uint64, d time.Duration) {
	done := pt.completed.Add(1)
	pt.records.Add(records)
	pt.malformed.Add(malformed)

	ev := pt.log.Info().
		Str("phase", pt.phase).
		Str("file", key).
		Uint64("records", records).
		Str("took", humanfmt.Duration(d)).
		Int64("completed", done).
		Int64("total", pt.total).
		Float64("pct", pt.Pct())
	if malformed > 0 {
		ev = ev.Uint64("malformed", malformed)
	}
	ev.Msg("inventory file processed")
}

// Pct returns the progress percentage (0-100).
func (pt *ProgressTracker) Pct() float64 {
	if pt.total == 0 {
		return 100.0
	}
	return float64(pt.completed.Load()) * 100.0 / float64(pt.total)
}

// Completed returns the number of files completed so far.
func (pt *ProgressTracker) Completed() int64 {
	return pt.completed.Load()
}

// Records returns the total records folded in so far.
func (pt *ProgressTracker) Records() uint64 {
	return pt.records.Load()
}

// Elapsed returns time since tracking started.
func (pt *ProgressTracker) Elapsed() time.Duration {
	return time.Since(pt.startTime)
}
