package jobs

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when operating on an unknown job id.
var ErrNotFound = errors.New("job not found")

// ErrNotRunning is returned when cancelling a job with no in-flight task.
var ErrNotRunning = errors.New("job is not running")

// ErrCancelled marks a job aborted by an explicit cancellation request.
var ErrCancelled = errors.New("job cancelled")

// TimeoutError marks a stage that exceeded its configured ceiling.
type TimeoutError struct {
	Stage string
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout: %s stage exceeded %s", e.Stage, e.Limit)
}

// ArtifactMissingError marks an acquisition that reported success without
// leaving the expected audio artifact on disk.
type ArtifactMissingError struct {
	Path string
}

func (e *ArtifactMissingError) Error() string {
	return "acquisition reported success but audio artifact is missing: " + e.Path
}
